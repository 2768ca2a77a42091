// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/pdiddy/docx-merge/pkg/types"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// Printer writes status lines, styled only on terminals.
type Printer struct {
	out    io.Writer
	styled bool
}

// NewPrinter returns a Printer for out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, styled: IsTerminal(out)}
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

// Infof prints a plain status line.
func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Successf prints a success line.
func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(okStyle, fmt.Sprintf(format, args...)))
}

// Warnf prints a line prefixed with "warning:".
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(warnStyle, "warning: "+fmt.Sprintf(format, args...)))
}

// Summary prints the completion summary of a merge run.
func (p *Printer) Summary(r *types.MergeReport) {
	fmt.Fprintln(p.out)
	if r.HasFailures() {
		p.Successf("Merge completed: %d of %d files merged", r.Merged(), len(r.Outcomes))
		for _, o := range r.Outcomes {
			if o.Status == types.OutcomeFailed {
				p.Warnf("skipped %s: %s", o.Name, o.Reason)
			}
		}
	} else {
		p.Successf("Merge completed successfully: %d files merged", r.Merged())
	}
	size := ""
	if r.OutputSize > 0 {
		size = " " + p.render(dimStyle, "("+humanize.Bytes(uint64(r.OutputSize))+")")
	}
	fmt.Fprintf(p.out, "Output file: %s%s\n", r.OutputPath, size)
	if r.PDFPath != "" {
		fmt.Fprintf(p.out, "PDF file: %s\n", r.PDFPath)
	}
	if !r.FinishedAt.IsZero() && !r.StartedAt.IsZero() {
		fmt.Fprintln(p.out, p.render(dimStyle, "Took "+r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()))
	}
}

// ErrAborted is returned when the interactive confirmation is cancelled.
var ErrAborted = errors.New("aborted")

// Confirm asks a yes/no question. On a terminal it shows an interactive
// confirm; otherwise it prints the question to out and reads one line from
// in, where only "y" or "yes" count as yes.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if IsTerminal(in) && IsTerminal(out) {
		return confirmTTY(question)
	}
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	fmt.Fprintln(out)
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func confirmTTY(question string) (bool, error) {
	answer := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&answer),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, ErrAborted
		}
		return false, err
	}
	return answer, nil
}
