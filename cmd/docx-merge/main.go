// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docx-merge CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docx-merge/internal/config"
	"github.com/pdiddy/docx-merge/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the docx-merge CLI. Without a subcommand
// it runs a merge.
var rootCmd = &cobra.Command{
	Use:   "docx-merge",
	Short: "Merge a folder of .docx files into one document",
	Long: `docx-merge concatenates every .docx file in the input folder into a
single document, in numeric filename order (part2 before part10), with
optional page breaks between files. The merged document can then be
converted to PDF with LibreOffice.

Settings come from docx-merge.yaml, DOCX_MERGE_* environment variables
and flags. Run "docx-merge config --defaults" for a commented sample.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	RunE:              runMerge,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docx-merge.yaml or ~/.config/docx-merge/docx-merge.yaml)")
	rootCmd.PersistentFlags().String("input", "", "input folder (overrides input_folder)")
	rootCmd.PersistentFlags().String("output", "", "output folder (overrides output_folder)")

	_ = viper.BindPFlag("input_folder", rootCmd.PersistentFlags().Lookup("input"))
	_ = viper.BindPFlag("output_folder", rootCmd.PersistentFlags().Lookup("output"))

	addMergeFlags(rootCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if err := config.Load(viper.GetViper(), cfgFile); err != nil {
		return err
	}
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", used)
	}
	return nil
}

// loadConfig decodes the resolved settings into a validated Config,
// applying adjust before validation.
func loadConfig(adjust ...func(*types.Config)) (types.Config, error) {
	return config.Decode(viper.GetViper(), adjust...)
}

// withoutPDF turns PDF conversion off.
func withoutPDF(cfg *types.Config) {
	cfg.PDF.ConvertToPDF = false
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
