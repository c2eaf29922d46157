package main

import (
	"context"
	"fmt"

	"github.com/aerae/accelerator/internal/config"
	"github.com/aerae/accelerator/internal/llm"
	"github.com/aerae/accelerator/internal/store"
	"github.com/aerae/accelerator/internal/vectorstore"
	"github.com/aerae/accelerator/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type seedOptions struct {
	file string
}

func newSeedCmd() *cobra.Command {
	o := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Embed and store the governance policy corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context())
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "YAML list of {id, text} policies (defaults to the bundled AI-ethics rules)")
	return cmd
}

func (o *seedOptions) run(ctx context.Context) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	undo := log.Setup(cfg.Service.LogLevel)
	defer undo()

	policies := vectorstore.BundledPolicies()
	if o.file != "" {
		if policies, err = vectorstore.LoadPolicies(o.file); err != nil {
			return err
		}
	}

	db, err := store.InitDB(cfg)
	if err != nil {
		return fmt.Errorf("initializing data store: %w", err)
	}
	s := store.NewStore(db)
	defer s.Close()

	if err := s.InitialMigration(); err != nil {
		return fmt.Errorf("running initial migration: %w", err)
	}

	index, err := vectorstore.NewIndex(ctx, cfg, s)
	if err != nil {
		return err
	}
	embedder := llm.NewAzureProvider(cfg)

	zap.S().Infof("Seeding %d policies into the %s index", len(policies), cfg.Vector.Backend)
	n, err := vectorstore.Seed(ctx, embedder, index, policies)
	if err != nil {
		return fmt.Errorf("seeded %d of %d policies: %w", n, len(policies), err)
	}

	query, err := embedder.Embed(ctx, policies[0].Text)
	if err != nil {
		return fmt.Errorf("embedding sanity query: %w", err)
	}
	hits, err := index.Search(ctx, query, len(policies))
	if err != nil {
		return fmt.Errorf("sanity search: %w", err)
	}

	fmt.Printf("Sanity search (top %d for %q):\n", len(hits), policies[0].ID)
	for _, h := range hits {
		fmt.Printf("  %s\tdist=%.4f\t%s\n", h.ID, h.Distance, truncate(h.Document, 60))
	}
	fmt.Printf("Done, %d policies stored\n", n)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
