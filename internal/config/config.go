// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves the merge configuration with precedence
// defaults < file < environment < flags and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/docx-merge/pkg/types"
)

const (
	// ConfigName is the config file name without extension.
	ConfigName = "docx-merge"

	// EnvPrefix prefixes environment overrides, e.g. DOCX_MERGE_INPUT_FOLDER.
	EnvPrefix = "DOCX_MERGE"
)

// Option is one configuration key with its default and meaning.
type Option struct {
	Key     string
	Default any
	Comment string
}

// Options returns every configuration key in rendering order.
func Options() []Option {
	return []Option{
		{Key: "input_folder", Default: "input", Comment: "Folder holding the .docx files to merge (not searched recursively)"},
		{Key: "output_folder", Default: "output", Comment: "Folder the merged document is written to; created if missing"},
		{Key: "output_filename", Default: "merged_output.docx", Comment: "Name of the merged document"},

		{Key: "merge_options.page_break_between_files", Default: true, Comment: "Insert a page break before each appended document"},
		{Key: "merge_options.numeric_sorting", Default: true, Comment: "Order files by the first number in their name (part2 before part10)"},

		{Key: "pdf_options.convert_to_pdf", Default: true, Comment: "Offer to convert the merged document to PDF"},
		{Key: "pdf_options.pdf_filename", Default: "merged_output.pdf", Comment: "Name of the PDF written next to the merged document"},
		{Key: "pdf_options.office_binary", Default: "", Comment: "Path to soffice; empty searches known install locations and PATH"},

		{Key: "history.enabled", Default: true, Comment: "Record every run in the history database"},
		{Key: "history.db_path", Default: filepath.Join(".docx-merge", "history.db"), Comment: "SQLite file for run history"},

		{Key: "watch.debounce", Default: 500 * time.Millisecond, Comment: "Quiet period after the last change before watch mode merges"},
	}
}

// applyDefaults seeds v with the defaults from Options.
func applyDefaults(v *viper.Viper) {
	for _, o := range Options() {
		v.SetDefault(o.Key, o.Default)
	}
}

// Load prepares v: defaults, the config file and environment overrides. An
// explicit file set with v.SetConfigFile must exist; otherwise ./docx-merge.yaml
// and ~/.config/docx-merge/docx-merge.yaml are tried and may be absent.
func Load(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
	}

	applyDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Decode unmarshals v into a Config and validates it. Each adjust runs on
// the decoded Config before validation, so command-line overrides such as
// disabling PDF conversion decide which settings are checked.
func Decode(v *viper.Viper, adjust ...func(*types.Config)) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	for _, fn := range adjust {
		fn(&cfg)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every invalid setting in cfg.
func Validate(cfg types.Config) error {
	var errs []error
	if strings.TrimSpace(cfg.InputFolder) == "" {
		errs = append(errs, errors.New("input_folder is required"))
	}
	if strings.TrimSpace(cfg.OutputFolder) == "" {
		errs = append(errs, errors.New("output_folder is required"))
	}
	if err := checkFilename("output_filename", cfg.OutputFilename, ".docx"); err != nil {
		errs = append(errs, err)
	}
	if cfg.PDF.ConvertToPDF {
		if err := checkFilename("pdf_options.pdf_filename", cfg.PDF.PDFFilename, ".pdf"); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.DBPath) == "" {
		errs = append(errs, errors.New("history.db_path is required when history is enabled"))
	}
	if cfg.Watch.Debounce <= 0 {
		errs = append(errs, errors.New("watch.debounce must be greater than 0"))
	}
	return errors.Join(errs...)
}

func checkFilename(key, name, ext string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%s is required", key)
	case filepath.Base(name) != name:
		return fmt.Errorf("%s must be a file name, not a path: %q", key, name)
	case !strings.EqualFold(filepath.Ext(name), ext):
		return fmt.Errorf("%s must end in %s: %q", key, ext, name)
	}
	return nil
}
