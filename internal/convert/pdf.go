// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docx-merge/internal/office"
)

const formatPDF = "pdf"

// PDFConverter converts documents to PDF with an office suite. It depends
// on an office.Runtime injected at construction time.
type PDFConverter struct {
	runtime  office.Runtime
	filename string
}

// NewPDFConverter creates a converter that writes PDFs next to their input.
// A non-empty filename renames the result; otherwise the PDF keeps the
// input's base name.
func NewPDFConverter(rt office.Runtime, filename string) *PDFConverter {
	return &PDFConverter{runtime: rt, filename: filename}
}

// Convert runs the office suite on inputPath and returns the PDF path.
func (p *PDFConverter) Convert(ctx context.Context, inputPath string) (string, error) {
	outDir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	produced := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+"."+formatPDF)

	if err := p.runtime.Convert(ctx, inputPath, formatPDF, outDir); err != nil {
		return "", fmt.Errorf("converting %s to PDF: %w", inputPath, err)
	}
	if _, err := os.Stat(produced); err != nil {
		return "", fmt.Errorf("%s produced no PDF for %s: %w", filepath.Base(p.runtime.Path()), inputPath, err)
	}

	if p.filename == "" || p.filename == filepath.Base(produced) {
		return produced, nil
	}
	target := filepath.Join(outDir, p.filename)
	if err := os.Rename(produced, target); err != nil {
		return "", fmt.Errorf("renaming %s to %s: %w", produced, target, err)
	}
	return target, nil
}
