package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aerae/accelerator/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

type InfoOptions struct {
	GlobalOptions
	Output string
	Remote bool
}

func DefaultInfoOptions() *InfoOptions {
	return &InfoOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdInfo() *cobra.Command {
	o := DefaultInfoOptions()
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print AERAE information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *InfoOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
	fs.BoolVar(&o.Remote, "remote", o.Remote, "Get information from the remote service")
}

func (o *InfoOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *InfoOptions) Validate() error {
	if err := o.GlobalOptions.Validate([]string{}); err != nil {
		return err
	}
	if len(o.Output) > 0 && !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

// InfoResponse represents the information we want to display
type InfoResponse struct {
	GitCommit   string `json:"gitCommit"`
	VersionName string `json:"versionName"`
}

func (o *InfoOptions) Run(ctx context.Context, w io.Writer) error {
	info := InfoResponse{
		GitCommit:   version.Get().GitCommit,
		VersionName: version.Get().GitVersion,
	}

	if o.Remote {
		c, err := o.Client()
		if err != nil {
			return fmt.Errorf("creating client: %w", err)
		}
		remote, err := c.Info(ctx)
		if err != nil {
			return fmt.Errorf("failed to get remote info: %w", err)
		}
		info = InfoResponse{GitCommit: remote.GitCommit, VersionName: remote.VersionName}
	}

	if o.Output != "" {
		return printStructured(w, info, o.Output)
	}

	source := "Local CLI"
	if o.Remote {
		source = fmt.Sprintf("Remote Service (%s)", o.ServerUrl)
	}
	fmt.Fprintf(w, "Source: %s\n", source)
	fmt.Fprintf(w, "Version: %s\n", info.VersionName)
	fmt.Fprintf(w, "Git Commit: %s\n", dash(info.GitCommit))
	return nil
}
