package progress

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Bar is a Sink that draws a single aggregate progress bar.
type Bar struct {
	bar *progressbar.ProgressBar
}

// NewBar creates a bar counting up to total bytes, drawn to w.
func NewBar(w io.Writer, total int64, description string) *Bar {
	return &Bar{bar: progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
	)}
}

// Add advances the bar by n bytes.
func (b *Bar) Add(n int64) {
	_ = b.bar.Add64(n)
}

// Current returns the bytes counted so far.
func (b *Bar) Current() int64 {
	return b.bar.State().CurrentNum
}

// Finish fills the bar and stops rendering.
func (b *Bar) Finish() error {
	return b.bar.Finish()
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
