// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package order enumerates source documents in an input folder and puts
// them in merge order.
package order

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pdiddy/docx-merge/pkg/types"
)

// docxExt is matched case-insensitively against file names.
const docxExt = ".docx"

// List returns the names of regular files directly under dir whose name
// ends in .docx (any case). Subdirectories are not descended into. The
// returned names are in directory listing order.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(entry.Name()), docxExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Sort orders names in place according to mode.
func Sort(names []string, mode types.OrderMode) {
	switch mode {
	case types.OrderLexical:
		slices.Sort(names)
	default:
		SortNumeric(names)
	}
}

// SortNumeric stable-sorts names by the integer value of the first digit
// run in each name. Names without digits keep their relative order and
// come after every numbered name.
func SortNumeric(names []string) {
	slices.SortStableFunc(names, func(a, b string) int {
		ka, aok := Key(a)
		kb, bok := Key(b)
		return compareKeys(ka, aok, kb, bok)
	})
}

// Key returns the first maximal run of ASCII digits in name, with leading
// zeros removed ("007" becomes "7", "000" becomes "0"). ok is false when
// name contains no digit.
func Key(name string) (digits string, ok bool) {
	start := strings.IndexFunc(name, isDigit)
	if start < 0 {
		return "", false
	}
	end := start
	for end < len(name) && isDigit(rune(name[end])) {
		end++
	}
	run := strings.TrimLeft(name[start:end], "0")
	if run == "" {
		run = "0"
	}
	return run, true
}

// compareKeys orders two Key results. Digit strings carry no leading zeros,
// so a longer string is a larger number and equal lengths compare bytewise.
func compareKeys(a string, aok bool, b string, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Mode maps the numeric_sorting flag to an OrderMode.
func Mode(numeric bool) types.OrderMode {
	if numeric {
		return types.OrderNumeric
	}
	return types.OrderLexical
}

// Paths lists dir, orders the names and joins them with dir.
func Paths(dir string, mode types.OrderMode) ([]string, error) {
	names, err := List(dir)
	if err != nil {
		return nil, err
	}
	Sort(names, mode)
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}
