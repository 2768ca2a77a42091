//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI, merges input/ and converts the result to PDF
// without prompting. Requires LibreOffice.
func Convert() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath, "merge", "--yes")
}
