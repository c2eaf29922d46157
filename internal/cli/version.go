package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aerae/accelerator/pkg/version"
	"github.com/spf13/cobra"
)

type VersionOptions struct{}

func DefaultVersionOptions() *VersionOptions {
	return &VersionOptions{}
}

func NewCmdVersion() *cobra.Command {
	o := DefaultVersionOptions()
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print AERAE version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
	}
	return cmd
}

func (o *VersionOptions) Run(ctx context.Context, w io.Writer) error {
	fmt.Fprintf(w, "AERAE Version: %s\n", version.Get().String())
	return nil
}
