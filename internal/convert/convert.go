// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns the merged document into other formats through
// pluggable converters. Conversion is best effort: failures are reported
// on the report and never touch the merged document.
package convert

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/docx-merge/pkg/types"
)

// DocumentConverter converts one document and returns the path of the
// converted file.
type DocumentConverter interface {
	Convert(ctx context.Context, inputPath string) (string, error)
}

// ConvertReport converts the report's output document with c and records
// the result on the report. Status lines are written to w. The returned
// error is the conversion failure, already recorded and reported.
func ConvertReport(ctx context.Context, c DocumentConverter, report *types.MergeReport, w io.Writer) error {
	out, err := c.Convert(ctx, report.OutputPath)
	if err != nil {
		report.ConversionError = err.Error()
		fmt.Fprintf(w, "warning: conversion failed: %v\n", err)
		return err
	}
	report.PDFPath = out
	report.ConversionError = ""
	fmt.Fprintf(w, "converted: %s\n", out)
	return nil
}
