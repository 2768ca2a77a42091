// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docx-merge/internal/convert"
	"github.com/pdiddy/docx-merge/internal/history"
	"github.com/pdiddy/docx-merge/internal/merge"
	"github.com/pdiddy/docx-merge/internal/office"
	"github.com/pdiddy/docx-merge/internal/progress"
	"github.com/pdiddy/docx-merge/pkg/types"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge the input folder into one document",
	Long: `Merge lists the .docx files in the input folder, orders them, and
appends each one to the first. A file that cannot be read is reported and
skipped; the rest are still merged and saved. When PDF conversion is
enabled you are asked before LibreOffice is run.`,
	Args: cobra.NoArgs,
	RunE: runMerge,
}

func init() {
	addMergeFlags(mergeCmd)
	rootCmd.AddCommand(mergeCmd)
}

func addMergeFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("yes", "y", false, "convert to PDF without asking")
	cmd.Flags().Bool("no-pdf", false, "skip PDF conversion")
}

func runMerge(cmd *cobra.Command, args []string) error {
	var adjust []func(*types.Config)
	if noPDF, _ := cmd.Flags().GetBool("no-pdf"); noPDF {
		adjust = append(adjust, withoutPDF)
	}
	cfg, err := loadConfig(adjust...)
	if err != nil {
		return err
	}
	yes, _ := cmd.Flags().GetBool("yes")

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	printer := progress.NewPrinter(out)
	bar := progress.NewBar(out, "Merging documents")

	report, err := merge.New(cfg, bar, merge.WithProgress(bar)).Run(ctx)
	if err != nil {
		if report != nil {
			recordHistory(ctx, cfg, report, printer)
		}
		return err
	}

	if cfg.PDF.ConvertToPDF {
		if err := convertToPDF(cmd, cfg, report, yes); err != nil {
			recordHistory(ctx, cfg, report, printer)
			return err
		}
	}

	recordHistory(ctx, cfg, report, printer)
	printer.Summary(report)
	return nil
}

// convertToPDF asks for confirmation and converts the merged document. Only
// a missing office suite is returned as an error; conversion failures are
// recorded on the report.
func convertToPDF(cmd *cobra.Command, cfg types.Config, report *types.MergeReport, yes bool) error {
	out := cmd.OutOrStdout()
	if !yes {
		ok, err := progress.Confirm(cmd.InOrStdin(), out, "Convert to PDF?")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	rt, err := office.Detect(cfg.PDF.OfficeBinary)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Converting to PDF with %s...\n", rt.Path())
	_ = convert.ConvertReport(cmd.Context(), convert.NewPDFConverter(rt, cfg.PDF.PDFFilename), report, out)
	return nil
}

// recordHistory stores the run when history is enabled. Failures are
// warnings; they never fail the merge.
func recordHistory(ctx context.Context, cfg types.Config, report *types.MergeReport, printer *progress.Printer) {
	if !cfg.History.Enabled {
		return
	}
	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		printer.Warnf("run not recorded: %v", err)
		return
	}
	defer store.Close()
	if err := store.Record(context.WithoutCancel(ctx), report); err != nil {
		printer.Warnf("run not recorded: %v", err)
	}
}
