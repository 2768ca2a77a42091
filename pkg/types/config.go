package types

import "time"

// MergeOptions controls how source documents are ordered and joined.
type MergeOptions struct {
	// PageBreakBetweenFiles inserts a page break before each appended document.
	PageBreakBetweenFiles bool `json:"page_break_between_files" yaml:"page_break_between_files" mapstructure:"page_break_between_files"`

	// NumericSorting orders files by the first integer in their name
	// instead of lexicographically.
	NumericSorting bool `json:"numeric_sorting" yaml:"numeric_sorting" mapstructure:"numeric_sorting"`
}

// PDFOptions holds settings for the optional PDF conversion step.
type PDFOptions struct {
	// ConvertToPDF offers conversion of the merged document after saving.
	ConvertToPDF bool `json:"convert_to_pdf" yaml:"convert_to_pdf" mapstructure:"convert_to_pdf"`

	// PDFFilename is the name of the converted file in the output folder.
	PDFFilename string `json:"pdf_filename" yaml:"pdf_filename" mapstructure:"pdf_filename"`

	// OfficeBinary is an explicit path to the office suite executable.
	// Empty means auto-detect.
	OfficeBinary string `json:"office_binary" yaml:"office_binary" mapstructure:"office_binary"`
}

// HistoryOptions controls the run history ledger.
type HistoryOptions struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	DBPath  string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// WatchOptions holds settings for watch mode.
type WatchOptions struct {
	// Debounce is the quiet period after the last change before a merge runs.
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce"`
}

// Config is the full configuration for a merge run. It is built once at
// startup and passed to the merge sequencer explicitly.
type Config struct {
	InputFolder    string         `json:"input_folder" yaml:"input_folder" mapstructure:"input_folder"`
	OutputFolder   string         `json:"output_folder" yaml:"output_folder" mapstructure:"output_folder"`
	OutputFilename string         `json:"output_filename" yaml:"output_filename" mapstructure:"output_filename"`
	Merge          MergeOptions   `json:"merge_options" yaml:"merge_options" mapstructure:"merge_options"`
	PDF            PDFOptions     `json:"pdf_options" yaml:"pdf_options" mapstructure:"pdf_options"`
	History        HistoryOptions `json:"history" yaml:"history" mapstructure:"history"`
	Watch          WatchOptions   `json:"watch" yaml:"watch" mapstructure:"watch"`
}
