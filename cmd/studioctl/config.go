package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tendant/content-studio/pkg/studio"
	"github.com/tendant/content-studio/pkg/studio/config"
	"gopkg.in/yaml.v3"
)

// configView is what config show prints. Credentials are left out.
type configView struct {
	Studio   studio.Summary `json:"studio" yaml:"studio"`
	Server   serverView     `json:"server" yaml:"server"`
	Storage  []storageView  `json:"storage" yaml:"storage"`
	Database string         `json:"database" yaml:"database"`
	Events   []string       `json:"events" yaml:"events"`
}

type serverView struct {
	Port        string `json:"port" yaml:"port"`
	Environment string `json:"environment" yaml:"environment"`
	LogLevel    string `json:"logLevel" yaml:"logLevel"`
	LogFormat   string `json:"logFormat" yaml:"logFormat"`
}

type storageView struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Default bool   `json:"default,omitempty" yaml:"default,omitempty"`
}

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration studio-server would run with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			view := newConfigView(cfg)
			out := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(view); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			default:
				return fmt.Errorf("unsupported format %q (use json or yaml)", format)
			}
		},
	}
	show.Flags().StringVarP(&format, "format", "f", "yaml", "output format: json or yaml")

	usage := &cobra.Command{
		Use:   "env",
		Short: "List the environment variables studio-server reads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := config.EnvUsage()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.AddCommand(show, usage)
	return cmd
}

func newConfigView(cfg *config.ServerConfig) configView {
	view := configView{
		Studio: cfg.StudioConfig().Summary(),
		Server: serverView{
			Port:        cfg.Port,
			Environment: cfg.Environment,
			LogLevel:    cfg.LogLevel,
			LogFormat:   cfg.LogFormat,
		},
		Database: cfg.DatabaseType,
		Events:   []string{},
	}
	for _, b := range cfg.StorageBackends {
		view.Storage = append(view.Storage, storageView{
			Name:    b.Name,
			Type:    b.Type,
			Default: b.Name == cfg.DefaultStorageBackend,
		})
	}
	if cfg.EnableEventLogging {
		view.Events = append(view.Events, "log")
	}
	if cfg.NATSURL != "" {
		view.Events = append(view.Events, "nats")
	}
	return view
}
