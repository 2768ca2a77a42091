// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/docx-merge/internal/history"
	"github.com/pdiddy/docx-merge/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past merge runs",
	Long: `History lists merge runs recorded in the history database, newest
first. Use "history show" for the per-file outcomes of one run and
"history export" to write every run to YAML or JSON.`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the file outcomes of one run (id prefixes accepted)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every run to YAML or JSON",
	Args:  cobra.NoArgs,
	RunE:  runHistoryExport,
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.History.DBPath)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-8s  %-16s  %-6s  %-6s  %-8s  %s\n", "Run", "Started", "Merged", "Failed", "Size", "Output")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, r := range runs {
		fmt.Fprintf(out, "%-8s  %-16s  %-6d  %-6d  %-8s  %s\n",
			shortID(r.ID), humanize.Time(r.StartedAt), r.Merged, r.Failed,
			humanize.Bytes(uint64(r.OutputSize)), r.OutputPath)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:     %s\n", report.RunID)
	fmt.Fprintf(out, "Started: %s\n", report.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Input:   %s (%s order, page breaks: %t)\n", report.InputDir, report.Order, report.PageBreaks)
	fmt.Fprintf(out, "Output:  %s (%s)\n", report.OutputPath, humanize.Bytes(uint64(report.OutputSize)))
	if report.PDFPath != "" {
		fmt.Fprintf(out, "PDF:     %s\n", report.PDFPath)
	}
	if report.ConversionError != "" {
		fmt.Fprintf(out, "PDF:     failed: %s\n", report.ConversionError)
	}
	fmt.Fprintln(out)
	for i, o := range report.Outcomes {
		line := fmt.Sprintf("%3d  %-9s %s", i+1, o.Status, o.Name)
		if o.Status == types.OutcomeFailed {
			line += "  (" + o.Reason + ")"
		} else {
			line += fmt.Sprintf("  %d blocks", o.Blocks)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	path, _ := cmd.Flags().GetString("out")

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	switch format {
	case "yaml", "":
		if path == "" {
			path = "history.yaml"
		}
		err = store.ExportYAML(cmd.Context(), path)
	case "json":
		if path == "" {
			path = "history.json"
		}
		err = store.ExportJSON(cmd.Context(), path)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("out", "", "output file (default history.yaml or history.json)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
