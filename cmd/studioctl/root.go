package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tendant/content-studio/pkg/studio/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "studioctl",
		Short:        "Inspect and maintain the content studio schema, configuration and documents",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML config file applied before environment variables")

	cmd.AddCommand(newSchemaCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newDocumentsCmd(opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "studioctl %s\n", version)
		},
	})
	return cmd
}

// load reads the server configuration the same way studio-server does.
func (o *rootOptions) load() (*config.ServerConfig, error) {
	var opts []config.Option
	if o.configFile != "" {
		opts = append(opts, config.WithConfigFile(o.configFile))
	}
	opts = append(opts, config.WithEnv())
	return config.Load(opts...)
}
