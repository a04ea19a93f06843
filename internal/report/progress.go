package report

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-isatty"
)

// ProgressPrinter draws a single-line progress bar for transfer batches.
// It prints nothing unless the writer is a terminal.
type ProgressPrinter struct {
	w       io.Writer
	bar     progress.Model
	enabled bool
}

// NewProgressPrinter creates a ProgressPrinter writing to w.
func NewProgressPrinter(w io.Writer, enabled bool) *ProgressPrinter {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40
	return &ProgressPrinter{
		w:       w,
		bar:     bar,
		enabled: enabled && IsTerminal(w),
	}
}

// Update redraws the bar for done out of total candidates.
func (p *ProgressPrinter) Update(done, total int) {
	if !p.enabled || total == 0 {
		return
	}
	fmt.Fprintf(p.w, "\r%s %d/%d", p.bar.ViewAs(float64(done)/float64(total)), done, total)
	if done == total {
		fmt.Fprintln(p.w)
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
