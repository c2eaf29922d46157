package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aerae/accelerator/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type GlobalOptions struct {
	ServerUrl      string
	ConfigFilePath string
	Timeout        time.Duration
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: client.DefaultConfigPath(),
		Timeout:        client.DefaultTimeout,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, fmt.Sprintf("Address of the server (defaults to the config file, then %s)", client.DefaultServer))
	fs.StringVar(&o.ConfigFilePath, "config", o.ConfigFilePath, "Path to the client config file")
	fs.DurationVar(&o.Timeout, "request-timeout", o.Timeout, "Timeout of a single request to the server")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	if o.ServerUrl != "" {
		return nil
	}

	cfg, err := client.ParseConfigFile(o.ConfigFilePath)
	switch {
	case err == nil:
		o.ServerUrl = cfg.Service.Server
	case errors.Is(err, os.ErrNotExist):
		o.ServerUrl = client.DefaultServer
	default:
		return err
	}
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if o.Timeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

func (o *GlobalOptions) Client() (*client.AssessmentClient, error) {
	return client.NewFromConfig(&client.Config{Service: client.Service{Server: o.ServerUrl}}, o.Timeout)
}
