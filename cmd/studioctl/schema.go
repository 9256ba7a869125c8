package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendant/content-studio/pkg/studio"
	"github.com/tendant/content-studio/pkg/studio/schema"
)

// errInvalidDocument is returned when schema validate finds markers.
var errInvalidDocument = errors.New("document is invalid")

func newSchemaCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Work with the studio document types",
	}
	cmd.AddCommand(newSchemaExportCmd(root), newSchemaValidateCmd(root))
	return cmd
}

func newSchemaExportCmd(root *rootOptions) *cobra.Command {
	var (
		format string
		at     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print every document type with its fields and rules",
		Long: `Print every document type with its fields and rules.

Computed initial values are evaluated at --at (RFC 3339, default now).

Example:
  studioctl schema export --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			now := time.Now()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}
			specs := cfg.StudioConfig().Schema.Types.Export(now)
			switch format {
			case "json":
				return schema.WriteJSON(cmd.OutOrStdout(), specs)
			case "yaml":
				return schema.WriteYAML(cmd.OutOrStdout(), specs)
			default:
				return fmt.Errorf("unsupported format %q (use json or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	cmd.Flags().StringVar(&at, "at", "", "evaluate initial values at this RFC 3339 time")
	return cmd
}

func newSchemaValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <type> <file>",
		Short: "Check a JSON document against a document type",
		Long: `Check a JSON document against a document type's field rules.
References are not resolved. Use "-" to read the document from stdin.

Example:
  studioctl schema validate post ./post.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			t, ok := cfg.StudioConfig().Schema.Types.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", studio.ErrUnknownDocumentType, args[0])
			}

			raw, err := readDocument(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			fields, _, err := studio.SplitSystemKeys(raw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			markers := t.Validate(fields)
			if len(markers) == 0 {
				fmt.Fprintf(out, "%s: valid %s document\n", args[1], t.Name)
				return nil
			}
			for _, m := range markers {
				fmt.Fprintf(out, "%s: %s\n", args[1], m)
			}
			return fmt.Errorf("%w: %d problem(s)", errInvalidDocument, len(markers))
		},
	}
}

func readDocument(stdin io.Reader, path string) (map[string]any, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return raw, nil
}
