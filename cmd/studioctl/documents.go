package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tendant/content-studio/pkg/studio"
	"github.com/tendant/content-studio/pkg/studio/config"
	"github.com/tendant/content-studio/pkg/studio/scan"
)

var errScanFailed = errors.New("some documents failed")

type scanFlags struct {
	batchSize int
	dryRun    bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.batchSize, "batch-size", scan.DefaultBatchSize, "documents listed per batch")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "list matching documents without processing them")
}

func newDocumentsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Batch operations over stored documents",
	}

	var revalidate scanFlags
	revalidateCmd := &cobra.Command{
		Use:   "revalidate [type...]",
		Short: "Check stored documents against the current schema",
		Long: "Lists every stored document of the given types (all types when none\n" +
			"are given) and reports those that no longer pass validation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, root, args, revalidate, func(svc studio.Service, cfg *config.ServerConfig, logger *slog.Logger) (scan.DocumentProcessor, func(), error) {
				return scan.Revalidate(svc), nil, nil
			})
		},
	}
	revalidate.register(revalidateCmd)

	var replay scanFlags
	replayCmd := &cobra.Command{
		Use:   "replay [type...]",
		Short: "Re-emit stored documents as update events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, root, args, replay, func(svc studio.Service, cfg *config.ServerConfig, logger *slog.Logger) (scan.DocumentProcessor, func(), error) {
				sink, closeSink, err := cfg.BuildEventSink(logger)
				if err != nil {
					return nil, nil, err
				}
				return scan.Replay(sink), closeSink, nil
			})
		},
	}
	replay.register(replayCmd)

	cmd.AddCommand(revalidateCmd, replayCmd)
	return cmd
}

type processorFactory func(studio.Service, *config.ServerConfig, *slog.Logger) (scan.DocumentProcessor, func(), error)

func runScan(cmd *cobra.Command, root *rootOptions, types []string, flags scanFlags, newProcessor processorFactory) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	// The service used for listing emits no events of its own; only the
	// processor talks to the configured sinks.
	sinkCfg := *cfg
	cfg.NATSURL, cfg.EnableEventLogging = "", false
	logger := cfg.Logger(cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, cleanup, err := cfg.BuildService(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, t := range types {
		if _, ok := svc.Config().Schema.Types.Get(t); !ok {
			return fmt.Errorf("%w: %s", studio.ErrUnknownDocumentType, t)
		}
	}

	opts := scan.ScanOptions{
		Types:     types,
		BatchSize: flags.batchSize,
		DryRun:    flags.dryRun,
	}
	if !flags.dryRun {
		processor, closeProcessor, err := newProcessor(svc, &sinkCfg, logger)
		if err != nil {
			return err
		}
		if closeProcessor != nil {
			defer closeProcessor()
		}
		opts.Processor = processor
	}

	result, err := scan.New(svc, logger).Scan(ctx, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range result.Errors {
		fmt.Fprintln(out, e)
	}
	fmt.Fprintf(out, "found %d, processed %d, failed %d\n", result.TotalFound, result.TotalProcessed, result.TotalFailed)
	if result.TotalFailed > 0 {
		return fmt.Errorf("%w: %d of %d", errScanFailed, result.TotalFailed, result.TotalFound)
	}
	return nil
}
