// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

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

	"github.com/pdiddy/docx-merge/internal/docx/docxtest"
	"github.com/pdiddy/docx-merge/internal/merge"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// The commands share global flag and viper state, so the scenarios run in
// sequence within one test.
func TestCLI(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	in := filepath.Join(dir, "input")
	require.NoError(t, os.MkdirAll(in, 0o755))

	t.Run("too few files", func(t *testing.T) {
		docxtest.Write(t, in, "part2.docx", "two")
		_, err := execute(t, "", "merge")
		var insufficient *merge.InsufficientInputError
		require.True(t, errors.As(err, &insufficient))
		assert.NoDirExists(t, filepath.Join(dir, "output"))
	})

	t.Run("merge declines conversion", func(t *testing.T) {
		docxtest.Write(t, in, "part10.docx", "ten")
		docxtest.Write(t, in, "part1.docx", "one")

		out, err := execute(t, "n\n", "merge")
		require.NoError(t, err)
		assert.Contains(t, out, "Found 3 .docx files")
		assert.Contains(t, out, "Convert to PDF? [y/N]")
		assert.Contains(t, out, "Merge completed successfully: 3 files merged")
		assert.FileExists(t, filepath.Join(dir, "output", "merged_output.docx"))
		assert.NoFileExists(t, filepath.Join(dir, "output", "merged_output.pdf"))
		assert.FileExists(t, filepath.Join(dir, ".docx-merge", "history.db"))
	})

	t.Run("history lists the run", func(t *testing.T) {
		out, err := execute(t, "", "history")
		require.NoError(t, err)
		assert.Contains(t, out, filepath.Join("output", "merged_output.docx"))
		assert.NotContains(t, out, "No runs recorded.")
	})

	t.Run("history export", func(t *testing.T) {
		out, err := execute(t, "", "history", "export", "--format", "json", "--out", "runs.json")
		require.NoError(t, err)
		assert.Contains(t, out, "Exported to runs.json")
		data, err := os.ReadFile(filepath.Join(dir, "runs.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"part10.docx"`)
	})

	t.Run("config defaults", func(t *testing.T) {
		out, err := execute(t, "", "config", "--defaults")
		require.NoError(t, err)
		assert.Contains(t, out, "page_break_between_files: true")
	})

	t.Run("version", func(t *testing.T) {
		out, err := execute(t, "", "version")
		require.NoError(t, err)
		assert.Equal(t, "docx-merge dev\n", out)
	})

	// Runs last: cobra keeps flag values between executions.
	t.Run("no-pdf skips pdf settings", func(t *testing.T) {
		t.Setenv("DOCX_MERGE_PDF_OPTIONS_PDF_FILENAME", "merged.txt")
		out, err := execute(t, "", "merge", "--no-pdf")
		require.NoError(t, err)
		assert.NotContains(t, out, "Convert to PDF?")
		assert.Contains(t, out, "Merge completed successfully: 3 files merged")
	})
}
