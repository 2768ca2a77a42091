// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress renders merge progress, status lines and the
// confirmation prompt on the console.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"
)

const (
	barWidth  = 40
	clearLine = "\r\x1b[2K"
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f any) bool {
	file, ok := f.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// Bar is a single-line progress bar for a known number of steps. On a
// terminal it redraws in place; elsewhere it prints one line per step.
//
// Bar is also an io.Writer: text written through it is printed above the
// bar, so warnings emitted mid-run do not garble the display.
type Bar struct {
	out   io.Writer
	tty   bool
	label string
	model progress.Model

	total int
	done  int
	drawn bool
}

// NewBar returns a bar writing to out, prefixed with label.
func NewBar(out io.Writer, label string) *Bar {
	return &Bar{
		out:   out,
		tty:   IsTerminal(out),
		label: label,
		model: progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage()),
	}
}

// Start resets the bar for total steps.
func (b *Bar) Start(total int) {
	b.total = total
	b.done = 0
	b.draw()
}

// Step advances the bar by one and names the file just processed.
func (b *Bar) Step(name string) {
	b.done++
	if !b.tty {
		fmt.Fprintf(b.out, "%s [%d/%d] %s\n", b.label, b.done, b.total, name)
		return
	}
	b.draw()
}

// Finish ends the bar line.
func (b *Bar) Finish() {
	if b.drawn {
		fmt.Fprintln(b.out)
		b.drawn = false
	}
}

// Write prints p above the bar.
func (b *Bar) Write(p []byte) (int, error) {
	if !b.drawn {
		return b.out.Write(p)
	}
	if _, err := io.WriteString(b.out, clearLine); err != nil {
		return 0, err
	}
	n, err := b.out.Write(p)
	if err != nil {
		return n, err
	}
	if len(p) > 0 && p[len(p)-1] != '\n' {
		if _, err := io.WriteString(b.out, "\n"); err != nil {
			return n, err
		}
	}
	b.drawn = false
	b.draw()
	return n, err
}

func (b *Bar) draw() {
	if !b.tty || b.total == 0 {
		return
	}
	pct := float64(b.done) / float64(b.total)
	fmt.Fprintf(b.out, "%s%s %s %d/%d", clearLine, b.label, b.model.ViewAs(pct), b.done, b.total)
	b.drawn = true
}

