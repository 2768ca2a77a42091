// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docx-merge/internal/docx"
	"github.com/pdiddy/docx-merge/internal/docx/docxtest"
	"github.com/pdiddy/docx-merge/pkg/types"
)

const pageBreak = "<PB>"

func testConfig(t *testing.T) types.Config {
	t.Helper()
	root := t.TempDir()
	in := filepath.Join(root, "input")
	require.NoError(t, os.MkdirAll(in, 0o755))
	return types.Config{
		InputFolder:    in,
		OutputFolder:   filepath.Join(root, "output"),
		OutputFilename: "merged_output.docx",
		Merge: types.MergeOptions{
			PageBreakBetweenFiles: true,
			NumericSorting:        true,
		},
	}
}

// outputTexts opens the merged document and returns one entry per block.
func outputTexts(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	d, err := docx.Read(data)
	require.NoError(t, err)
	var out []string
	for _, b := range d.Blocks() {
		if b.IsPageBreak() {
			out = append(out, pageBreak)
			continue
		}
		out = append(out, b.Text())
	}
	return out
}

// recordingProgress captures progress calls.
type recordingProgress struct {
	total    int
	steps    []string
	finished bool
}

func (r *recordingProgress) Start(total int)  { r.total = total }
func (r *recordingProgress) Step(name string) { r.steps = append(r.steps, name) }
func (r *recordingProgress) Finish()          { r.finished = true }

func TestRun_NumericOrder(t *testing.T) {
	cfg := testConfig(t)
	docxtest.Write(t, cfg.InputFolder, "part2.docx", "two")
	docxtest.Write(t, cfg.InputFolder, "part10.docx", "ten")
	docxtest.Write(t, cfg.InputFolder, "part1.docx", "one")

	var log bytes.Buffer
	progress := &recordingProgress{}
	report, err := New(cfg, &log, WithProgress(progress)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"one", pageBreak, "two", pageBreak, "ten"}, outputTexts(t, report.OutputPath))
	assert.Equal(t, 3, progress.total)
	assert.Equal(t, []string{"part1.docx", "part2.docx", "part10.docx"}, progress.steps)
	assert.True(t, progress.finished)

	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, types.OutcomeSeeded, report.Outcomes[0].Status)
	assert.Equal(t, types.OutcomeAppended, report.Outcomes[1].Status)
	assert.Equal(t, types.OutcomeAppended, report.Outcomes[2].Status)
	assert.Len(t, report.Outcomes[0].Checksum, 64)
	assert.Equal(t, 3, report.Merged())
	assert.False(t, report.HasFailures())
	assert.Equal(t, types.OrderNumeric, report.Order)
	assert.NotEmpty(t, report.RunID)
	assert.Positive(t, report.OutputSize)
	assert.Contains(t, log.String(), "Found 3 .docx files")
}

func TestRun_PageBreakFlag(t *testing.T) {
	tests := []struct {
		name      string
		pageBreak bool
		want      []string
	}{
		{name: "enabled", pageBreak: true, want: []string{"a", "b", pageBreak, "c", pageBreak, "d"}},
		{name: "disabled", pageBreak: false, want: []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Merge.PageBreakBetweenFiles = tt.pageBreak
			docxtest.Write(t, cfg.InputFolder, "1.docx", "a", "b")
			docxtest.Write(t, cfg.InputFolder, "2.docx", "c")
			docxtest.Write(t, cfg.InputFolder, "3.docx", "d")

			var log bytes.Buffer
			report, err := New(cfg, &log).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, outputTexts(t, report.OutputPath))
			assert.Equal(t, tt.pageBreak, report.PageBreaks)
		})
	}
}

func TestRun_LexicalOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Merge.NumericSorting = false
	cfg.Merge.PageBreakBetweenFiles = false
	docxtest.Write(t, cfg.InputFolder, "part2.docx", "two")
	docxtest.Write(t, cfg.InputFolder, "part10.docx", "ten")
	docxtest.Write(t, cfg.InputFolder, "part1.docx", "one")

	var log bytes.Buffer
	report, err := New(cfg, &log).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "ten", "two"}, outputTexts(t, report.OutputPath))
	assert.Equal(t, types.OrderLexical, report.Order)
}

func TestRun_CorruptFileIsSkipped(t *testing.T) {
	tests := []struct {
		name        string
		corrupt     string
		want        []string
		wantSeeded  string
		wantFailIdx int
	}{
		{
			name:        "corrupt in the middle",
			corrupt:     "2.docx",
			want:        []string{"one", "three", "four"},
			wantSeeded:  "1.docx",
			wantFailIdx: 1,
		},
		{
			name:        "corrupt first file",
			corrupt:     "1.docx",
			want:        []string{"two", "three", "four"},
			wantSeeded:  "2.docx",
			wantFailIdx: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Merge.PageBreakBetweenFiles = false
			texts := map[string]string{"1.docx": "one", "2.docx": "two", "3.docx": "three", "4.docx": "four"}
			for name, text := range texts {
				if name == tt.corrupt {
					docxtest.WriteBytes(t, cfg.InputFolder, name, []byte("not a zip archive"))
					continue
				}
				docxtest.Write(t, cfg.InputFolder, name, text)
			}

			var log bytes.Buffer
			report, err := New(cfg, &log).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.want, outputTexts(t, report.OutputPath))
			assert.Equal(t, 1, strings.Count(log.String(), "warning:"))
			assert.Contains(t, log.String(), tt.corrupt)

			require.Len(t, report.Outcomes, 4)
			failed := report.Outcomes[tt.wantFailIdx]
			assert.Equal(t, types.OutcomeFailed, failed.Status)
			assert.NotEmpty(t, failed.Reason)
			assert.Equal(t, 1, report.Failed())
			for _, o := range report.Outcomes {
				if o.Status == types.OutcomeSeeded {
					assert.Equal(t, tt.wantSeeded, o.Name)
				}
			}
		})
	}
}

func TestRun_NothingLoadable(t *testing.T) {
	cfg := testConfig(t)
	docxtest.WriteBytes(t, cfg.InputFolder, "a.docx", []byte("junk"))
	docxtest.WriteBytes(t, cfg.InputFolder, "b.docx", []byte("junk"))

	var log bytes.Buffer
	report, err := New(cfg, &log).Run(context.Background())
	require.ErrorIs(t, err, ErrNothingMerged)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Failed())

	_, statErr := os.Stat(filepath.Join(cfg.OutputFolder, cfg.OutputFilename))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_InsufficientInput(t *testing.T) {
	cfg := testConfig(t)
	docxtest.Write(t, cfg.InputFolder, "only.docx", "alone")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputFolder, "notes.txt"), []byte("x"), 0o644))

	var log bytes.Buffer
	report, err := New(cfg, &log).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)

	var insufficient *InsufficientInputError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Found)

	_, statErr := os.Stat(cfg.OutputFolder)
	assert.True(t, os.IsNotExist(statErr), "no output should be written")
}

func TestRun_MissingInputFolder(t *testing.T) {
	cfg := testConfig(t)
	cfg.InputFolder = filepath.Join(t.TempDir(), "nope")

	var log bytes.Buffer
	_, err := New(cfg, &log).Run(context.Background())
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, cfg.InputFolder, cfgErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_InputIsAFile(t *testing.T) {
	cfg := testConfig(t)
	file := filepath.Join(t.TempDir(), "file.docx")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	cfg.InputFolder = file

	_, err := New(cfg, &bytes.Buffer{}).Plan()
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestRun_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	docxtest.Write(t, cfg.InputFolder, "s1.docx", "alpha", "beta")
	docxtest.Write(t, cfg.InputFolder, "s2.docx", "gamma")

	run := func() []byte {
		report, err := New(cfg, &bytes.Buffer{}).Run(context.Background())
		require.NoError(t, err)
		data, err := os.ReadFile(report.OutputPath)
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, run(), run())
}

func TestRun_Cancelled(t *testing.T) {
	cfg := testConfig(t)
	docxtest.Write(t, cfg.InputFolder, "1.docx", "one")
	docxtest.Write(t, cfg.InputFolder, "2.docx", "two")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(cfg, &bytes.Buffer{}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, report.Outcomes)

	_, statErr := os.Stat(filepath.Join(cfg.OutputFolder, cfg.OutputFilename))
	assert.True(t, os.IsNotExist(statErr))
}
