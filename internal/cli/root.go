// Package cli implements the serverops command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/serverops/config"
)

// Version is set at build time.
var Version = "dev"

// Options holds CLI-level configuration.
type Options struct {
	ConfigPath string
}

// NewRootCmd wires the cobra root command.
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:           "serverops",
		Short:         "Embedded HTTP server with pool health checks",
		Long:          "serverops runs an HTTP server whose request pool is watched by threshold health checks.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML configuration file")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newCheckCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

func (o *Options) load(ctx context.Context) (*config.Config, error) {
	if o.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(ctx, o.ConfigPath)
}
