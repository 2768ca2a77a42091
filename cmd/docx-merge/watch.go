// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docx-merge/internal/merge"
	"github.com/pdiddy/docx-merge/internal/progress"
	"github.com/pdiddy/docx-merge/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Merge again whenever the input folder changes",
	Long: `Watch merges the input folder once, then again after every burst of
changes to its .docx files. PDF conversion is never run in watch mode.
Merge errors are reported and watching continues. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", 0, "quiet period before merging (overrides watch.debounce)")
	_ = viper.BindPFlag("watch.debounce", watchCmd.Flags().Lookup("debounce"))

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(withoutPDF)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := progress.NewPrinter(out)
	seq := merge.New(cfg, out)

	mergeOnce := func(ctx context.Context) {
		report, err := seq.Run(ctx)
		if report != nil {
			recordHistory(ctx, cfg, report, printer)
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				printer.Warnf("%v", err)
			}
			return
		}
		printer.Summary(report)
	}

	w, err := watch.New(cfg.InputFolder, cfg.Watch.Debounce, watch.Ignoring(seq.OutputPath()))
	if err != nil {
		return err
	}
	defer w.Close()

	ctx := cmd.Context()
	printer.Infof("Watching %s (Ctrl-C to stop)", filepath.Clean(cfg.InputFolder))
	mergeOnce(ctx)

	if err := w.Run(ctx, mergeOnce); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
