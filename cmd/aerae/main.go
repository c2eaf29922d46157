package main

import (
	"os"

	"github.com/aerae/accelerator/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	command := NewAeraeCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewAeraeCtlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aerae [flags] [options]",
		Short: "aerae submits repositories to the AERAE assessment service.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdAssess())
	cmd.AddCommand(cli.NewCmdGet())
	cmd.AddCommand(cli.NewCmdGenerate())
	cmd.AddCommand(cli.NewCmdInfo())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
