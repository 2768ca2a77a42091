// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package office locates an office suite and runs headless document
// conversions with it.
package office

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
)

const (
	binSoffice     = "soffice"
	binLibreoffice = "libreoffice"
)

// ErrNotFound is returned by Detect when no office binary can be located.
var ErrNotFound = errors.New("no office suite found")

// knownLocations lists install paths checked before the PATH search, per GOOS.
var knownLocations = map[string][]string{
	"windows": {
		`C:\Program Files\LibreOffice\program\soffice.exe`,
		`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
	},
	"darwin": {
		"/Applications/LibreOffice.app/Contents/MacOS/soffice",
	},
	"linux": {
		"/usr/bin/soffice",
		"/usr/lib/libreoffice/program/soffice",
		"/opt/libreoffice/program/soffice",
		"/snap/bin/libreoffice",
	},
}

// Runtime converts documents with an office suite binary.
type Runtime interface {
	// Path returns the office binary in use.
	Path() string

	// Convert converts input to format, writing the result into outDir
	// under the input's base name with the format as extension.
	Convert(ctx context.Context, input, format, outDir string) error
}

// executor abstracts filesystem and process access for testing.
type executor interface {
	LookPath(file string) (string, error)
	IsFile(path string) bool
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (o *osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// suite implements Runtime for one located binary.
type suite struct {
	bin  string
	exec executor
}

func (s *suite) Path() string { return s.bin }

func (s *suite) Convert(ctx context.Context, input, format, outDir string) error {
	args := []string{"--headless", "--convert-to", format, "--outdir", outDir, input}
	out, err := s.exec.Run(ctx, s.bin, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("running %s on %s: %w: %s", filepath.Base(s.bin), input, err, msg)
		}
		return fmt.Errorf("running %s on %s: %w", filepath.Base(s.bin), input, err)
	}
	return nil
}

var defaultExec = &osExecutor{}

// Detect locates an office binary. A non-empty configured path is used if
// it exists; otherwise the known install locations for this platform are
// tried, then soffice and libreoffice on PATH.
func Detect(configured string) (Runtime, error) {
	return detect(defaultExec, configured, goruntime.GOOS)
}

func detect(exec executor, configured, goos string) (Runtime, error) {
	if configured != "" {
		if exec.IsFile(configured) {
			return &suite{bin: configured, exec: exec}, nil
		}
		if p, err := exec.LookPath(configured); err == nil {
			return &suite{bin: p, exec: exec}, nil
		}
		return nil, fmt.Errorf("%w: configured binary %s does not exist", ErrNotFound, configured)
	}

	for _, p := range knownLocations[goos] {
		if exec.IsFile(p) {
			return &suite{bin: p, exec: exec}, nil
		}
	}

	for _, name := range []string{binSoffice, binLibreoffice} {
		if p, err := exec.LookPath(name); err == nil {
			return &suite{bin: p, exec: exec}, nil
		}
	}

	return nil, fmt.Errorf("%w: install LibreOffice or set pdf_options.office_binary", ErrNotFound)
}
