// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge concatenates the .docx files of an input folder into one
// document. Files are processed strictly in order; a file that cannot be
// loaded or appended is reported and skipped, and the run still saves
// whatever was merged.
package merge

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/pdiddy/docx-merge/internal/docx"
	"github.com/pdiddy/docx-merge/internal/order"
	"github.com/pdiddy/docx-merge/pkg/types"
)

// minInputs is the smallest number of documents worth merging.
const minInputs = 2

// ConfigurationError reports an unusable input folder.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("input folder %q not usable: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InsufficientInputError reports that too few documents were found.
type InsufficientInputError struct {
	Dir   string
	Found int
}

func (e *InsufficientInputError) Error() string {
	return fmt.Sprintf("not enough .docx files to merge in %q: found %d, need at least %d", e.Dir, e.Found, minInputs)
}

// ErrNothingMerged is returned when none of the input files could be loaded.
var ErrNothingMerged = errors.New("no input document could be loaded")

// Progress receives one Step per processed file between Start and Finish.
type Progress interface {
	Start(total int)
	Step(name string)
	Finish()
}

type noProgress struct{}

func (noProgress) Start(int)   {}
func (noProgress) Step(string) {}
func (noProgress) Finish()     {}

// Sequencer merges the documents of one input folder.
type Sequencer struct {
	cfg      types.Config
	w        io.Writer
	progress Progress
	now      func() time.Time
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithProgress reports per-file progress to p.
func WithProgress(p Progress) Option {
	return func(s *Sequencer) { s.progress = p }
}

// WithClock overrides the time source used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

// New returns a Sequencer for cfg. Status and warning lines are written to w.
func New(cfg types.Config, w io.Writer, opts ...Option) *Sequencer {
	s := &Sequencer{
		cfg:      cfg,
		w:        w,
		progress: noProgress{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OutputPath returns the path the merged document is saved to.
func (s *Sequencer) OutputPath() string {
	return filepath.Join(s.cfg.OutputFolder, s.cfg.OutputFilename)
}

// Plan validates the input folder and returns the files to merge in order.
func (s *Sequencer) Plan() ([]string, error) {
	dir := s.cfg.InputFolder
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &ConfigurationError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &ConfigurationError{Path: dir, Err: errors.New("not a directory")}
	}

	paths, err := order.Paths(dir, order.Mode(s.cfg.Merge.NumericSorting))
	if err != nil {
		return nil, &ConfigurationError{Path: dir, Err: err}
	}
	if len(paths) < minInputs {
		return nil, &InsufficientInputError{Dir: dir, Found: len(paths)}
	}
	return paths, nil
}

// Run merges every planned file into one document and saves it. The
// returned report lists one outcome per input file, in order. The report
// is non-nil whenever planning succeeded, even if Run also returns an
// error.
func (s *Sequencer) Run(ctx context.Context) (*types.MergeReport, error) {
	paths, err := s.Plan()
	if err != nil {
		return nil, err
	}

	report := &types.MergeReport{
		RunID:      uuid.NewString(),
		StartedAt:  s.now(),
		InputDir:   s.cfg.InputFolder,
		OutputPath: s.OutputPath(),
		PageBreaks: s.cfg.Merge.PageBreakBetweenFiles,
		Order:      order.Mode(s.cfg.Merge.NumericSorting),
	}

	fmt.Fprintf(s.w, "Found %d .docx files in %s\n", len(paths), s.cfg.InputFolder)

	var acc *docx.Document
	s.progress.Start(len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			s.progress.Finish()
			report.FinishedAt = s.now()
			return report, err
		}

		outcome := types.FileOutcome{Name: filepath.Base(p), Path: p}
		doc, err := s.load(p, &outcome)
		switch {
		case err != nil:
			s.fail(&outcome, err)
		case acc == nil:
			acc = doc
			outcome.Status = types.OutcomeSeeded
			outcome.Blocks = doc.Len()
		default:
			if err := acc.Append(doc, s.appendOptions()...); err != nil {
				s.fail(&outcome, err)
			} else {
				outcome.Status = types.OutcomeAppended
				outcome.Blocks = doc.Len()
			}
		}
		report.Outcomes = append(report.Outcomes, outcome)
		s.progress.Step(outcome.Name)
	}
	s.progress.Finish()

	if acc == nil {
		report.FinishedAt = s.now()
		return report, ErrNothingMerged
	}

	if err := os.MkdirAll(s.cfg.OutputFolder, 0o755); err != nil {
		return report, fmt.Errorf("creating output folder %s: %w", s.cfg.OutputFolder, err)
	}
	if err := acc.Save(report.OutputPath); err != nil {
		return report, fmt.Errorf("saving merged document: %w", err)
	}
	if info, err := os.Stat(report.OutputPath); err == nil {
		report.OutputSize = info.Size()
	}
	report.FinishedAt = s.now()
	return report, nil
}

// load reads and parses one source file, recording its checksum.
func (s *Sequencer) load(path string, outcome *types.FileOutcome) (*docx.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(data)
	outcome.Checksum = hex.EncodeToString(sum[:])
	return docx.Read(data)
}

func (s *Sequencer) appendOptions() []docx.AppendOption {
	if s.cfg.Merge.PageBreakBetweenFiles {
		return []docx.AppendOption{docx.WithPageBreak()}
	}
	return nil
}

func (s *Sequencer) fail(outcome *types.FileOutcome, err error) {
	outcome.Status = types.OutcomeFailed
	outcome.Reason = err.Error()
	fmt.Fprintf(s.w, "warning: error merging %s: %v\n", outcome.Name, err)
}
