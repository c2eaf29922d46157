package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/aerae/accelerator/internal/api_server"
	"github.com/aerae/accelerator/internal/analysis"
	"github.com/aerae/accelerator/internal/archive"
	"github.com/aerae/accelerator/internal/config"
	"github.com/aerae/accelerator/internal/document"
	"github.com/aerae/accelerator/internal/handlers/v1alpha1"
	"github.com/aerae/accelerator/internal/ingestion"
	"github.com/aerae/accelerator/internal/llm"
	"github.com/aerae/accelerator/internal/opa"
	"github.com/aerae/accelerator/internal/service"
	"github.com/aerae/accelerator/internal/store"
	"github.com/aerae/accelerator/internal/vectorstore"
	"github.com/aerae/accelerator/pkg/log"
	"github.com/aerae/accelerator/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the assessment api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		undo := log.Setup(cfg.Service.LogLevel)
		defer undo()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			zap.S().Fatalw("running initial migration", "error", err)
		}

		if err := prometheus.Register(metrics.NewStoreStatsCollector(s)); err != nil {
			zap.S().Warnw("store statistics will not be exported", "error", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		if cfg.Service.UploadDir != "" {
			if err := os.MkdirAll(cfg.Service.UploadDir, 0o750); err != nil {
				zap.S().Fatalw("creating upload directory", "error", err)
			}
		}

		gate, release, err := opa.NewGatekeeper(cfg)
		if err != nil {
			zap.S().Fatalw("initializing policy gate", "error", err)
		}
		defer release()

		azure, gemini := llm.NewAzureProvider(cfg), llm.NewGeminiProvider(cfg)

		pipeline, err := newPipeline(ctx, cfg, s, gate, azure, gemini)
		if err != nil {
			zap.S().Fatalw("initializing assessment pipeline", "error", err)
		}

		runner := service.NewRunner()
		h := v1alpha1.NewServiceHandler(
			service.NewAssessmentService(s, *pipeline, runner),
			service.NewGenerateService(azure, gemini),
			cfg.Service.UploadDir,
			cfg.Service.MaxUploadSize,
		)

		serverDone := make(chan struct{})
		go func() {
			defer close(serverDone)
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, listener, h)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("Error running server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("failed to run metrics server", "error", err)
			}
		}()

		<-ctx.Done()
		// requests still being served may start jobs
		<-serverDone

		drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Service.DrainTimeout)
		defer drainCancel()
		if err := runner.Shutdown(drainCtx); err != nil {
			zap.S().Warnw("assessment jobs did not finish before shutdown", "error", err)
		}

		return nil
	},
}

func newPipeline(ctx context.Context, cfg *config.Config, s store.Store, gate opa.Gatekeeper, azure, gemini *llm.OpenAIProvider) (*service.Pipeline, error) {
	index, err := vectorstore.NewIndex(ctx, cfg, s)
	if err != nil {
		return nil, err
	}

	pipeline := &service.Pipeline{
		Fetcher:   ingestion.NewFetcher(cfg.Scanner.GitPath),
		Scanner:   ingestion.NewSecretScanner(cfg.Scanner.GitleaksPath, cfg.Scanner.Timeout),
		Documents: document.NewExtractor(azure, gemini.WithModel(cfg.LLM.GeminiDocumentModel)),
		Analyzer:  analysis.NewEngine(azure, index, azure.WithModel(cfg.LLM.AzureRiskModel), cfg.Vector.TopK),
		Gate:      gate,
	}

	if cfg.Archive.Endpoint == "" {
		return pipeline, nil
	}

	a, err := archive.NewMinioArchive(
		archive.WithEndpoint(cfg.Archive.Endpoint),
		archive.WithBucket(cfg.Archive.Bucket),
		archive.WithAccessKey(cfg.Archive.AccessKey),
		archive.WithSecretKey(cfg.Archive.SecretKey),
		archive.WithSSL(cfg.Archive.UseSSL),
	)
	if err != nil {
		return nil, err
	}
	if err := a.EnsureBucket(ctx); err != nil {
		zap.S().Named("archive").Errorw("document archive disabled", "error", err)
		return pipeline, nil
	}
	pipeline.Archive = a

	return pipeline, nil
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
