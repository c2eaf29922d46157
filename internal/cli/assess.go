package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

type AssessOptions struct {
	GlobalOptions

	GithubURL    string
	PdfFile      string
	Wait         bool
	PollInterval time.Duration
	WaitTimeout  time.Duration
	Output       string
}

func DefaultAssessOptions() *AssessOptions {
	return &AssessOptions{
		GlobalOptions: DefaultGlobalOptions(),
		PollInterval:  3 * time.Second,
		WaitTimeout:   15 * time.Minute,
	}
}

func NewCmdAssess() *cobra.Command {
	o := DefaultAssessOptions()
	cmd := &cobra.Command{
		Use:   "assess --github-url URL [--pdf FILE]",
		Short: "Submit a repository, and optionally its project document, for assessment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	o.Bind(cmd.Flags())
	return cmd
}

func (o *AssessOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.GithubURL, "github-url", o.GithubURL, "HTTPS url of the repository to assess")
	fs.StringVarP(&o.PdfFile, "pdf", "f", o.PdfFile, "Path to the project document (PDF)")
	fs.BoolVarP(&o.Wait, "wait", "w", o.Wait, "Poll the job until it is complete or failed")
	fs.DurationVar(&o.PollInterval, "poll-interval", o.PollInterval, "Interval between two polls when waiting")
	fs.DurationVar(&o.WaitTimeout, "wait-timeout", o.WaitTimeout, "Give up waiting after this duration")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *AssessOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.GithubURL == "" {
		return fmt.Errorf("must specify a repository with --github-url")
	}
	if o.Wait && o.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if len(o.Output) > 0 && !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

func (o *AssessOptions) Run(ctx context.Context, w io.Writer) error {
	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	job, err := c.Submit(ctx, o.GithubURL, o.PdfFile)
	if err != nil {
		return err
	}

	if !o.Wait {
		if o.Output != "" {
			return printStructured(w, job, o.Output)
		}
		fmt.Fprintf(w, "Assessment job started (ID: %s). Follow it with: get %s/%s\n", job.JobID, JobKind, job.JobID)
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, o.WaitTimeout)
	defer cancel()

	job, err = c.Wait(waitCtx, job.JobID, o.PollInterval, nil)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := printJob(w, job, o.Output); err != nil {
		return err
	}
	if job.Status != "Complete" {
		return fmt.Errorf("%s/%s failed", JobKind, job.JobID)
	}
	return nil
}
