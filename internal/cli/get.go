package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aerae/accelerator/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

type GetOptions struct {
	GlobalOptions

	Output string
}

func DefaultGetOptions() *GetOptions {
	return &GetOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdGet() *cobra.Command {
	o := DefaultGetOptions()
	cmd := &cobra.Command{
		Use:   "get job/ID",
		Short: "Display an assessment job.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *GetOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *GetOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *GetOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}

	if _, _, err := parseAndValidateKindId(args[0]); err != nil {
		return err
	}

	if len(o.Output) > 0 && !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}

	return nil
}

func (o *GetOptions) Run(ctx context.Context, w io.Writer, args []string) error {
	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	_, id, err := parseAndValidateKindId(args[0])
	if err != nil {
		return err
	}

	job, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	return printJob(w, job, o.Output)
}

// jobSummary holds the part of a job result shown in the table view.
type jobSummary struct {
	TrustScore *int   `json:"trust_score"`
	Decision   string `json:"decision"`
	Error      string `json:"error"`
}

func printJob(w io.Writer, job *client.Job, output string) error {
	if output != "" {
		return printStructured(w, job, output)
	}

	summary := jobSummary{}
	if len(job.Result) > 0 {
		if err := json.Unmarshal(job.Result, &summary); err != nil {
			return fmt.Errorf("decoding job result: %w", err)
		}
	}

	tw := tabwriter.NewWriter(w, 0, 8, 1, '\t', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTRUST SCORE\tDECISION\tERROR")
	score := "-"
	if summary.TrustScore != nil {
		score = fmt.Sprintf("%d", *summary.TrustScore)
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", job.JobID, job.Status, score, dash(summary.Decision), dash(summary.Error))
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
