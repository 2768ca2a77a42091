// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// OutcomeStatus records what happened to one source file during a merge.
type OutcomeStatus string

const (
	// OutcomeSeeded marks the file the accumulator was initialised from.
	OutcomeSeeded   OutcomeStatus = "seeded"
	OutcomeAppended OutcomeStatus = "appended"
	OutcomeFailed   OutcomeStatus = "failed"
)

// FileOutcome is the result of processing one source document.
type FileOutcome struct {
	// Name is the base filename as listed in the input folder.
	Name string `json:"name" yaml:"name"`

	// Path is the full path the file was loaded from.
	Path string `json:"path" yaml:"path"`

	Status OutcomeStatus `json:"status" yaml:"status"`

	// Reason holds the failure message when Status is OutcomeFailed.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Blocks is the number of top-level body elements contributed.
	Blocks int `json:"blocks" yaml:"blocks"`

	// Checksum is the hex BLAKE3 digest of the source file bytes.
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// OrderMode names the file ordering used for a run.
type OrderMode string

const (
	OrderNumeric OrderMode = "numeric"
	OrderLexical OrderMode = "lexical"
)

// MergeReport summarises a merge run.
type MergeReport struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	InputDir   string        `json:"input_dir" yaml:"input_dir"`
	OutputPath string        `json:"output_path" yaml:"output_path"`
	OutputSize int64         `json:"output_size" yaml:"output_size"`
	PageBreaks bool          `json:"page_breaks" yaml:"page_breaks"`
	Order      OrderMode     `json:"order" yaml:"order"`
	Outcomes   []FileOutcome `json:"outcomes" yaml:"outcomes"`

	// PDFPath is set when the merged document was converted.
	PDFPath string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`

	// ConversionError holds the conversion failure, if any.
	ConversionError string `json:"conversion_error,omitempty" yaml:"conversion_error,omitempty"`
}

// Merged returns the number of files whose content reached the output.
func (r MergeReport) Merged() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status != OutcomeFailed {
			n++
		}
	}
	return n
}

// Failed returns the number of files that were skipped because of errors.
func (r MergeReport) Failed() int {
	return len(r.Outcomes) - r.Merged()
}

// HasFailures reports whether any file failed to merge.
func (r MergeReport) HasFailures() bool {
	return r.Failed() > 0
}
