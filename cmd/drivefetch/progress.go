package main

import (
	"os"

	"github.com/ligustah/drivefetch/internal/progress"
)

// startProgress returns the sink downloads report to and a function that
// stops the display. Both are no-ops when progress is disabled.
func (a *app) startProgress(label string, total int64, files, parts int) (progress.Sink, func()) {
	if !a.cfg.Progress {
		return nil, func() {}
	}

	if f, ok := a.stderr.(*os.File); ok && progress.IsTerminal(f) {
		bar := progress.NewBar(f, total, label)
		return bar, func() { _ = bar.Finish() }
	}

	r := progress.NewReporter(progress.Options{
		Max:    total,
		Files:  files,
		Parts:  parts,
		Output: a.stderr,
		Label:  label,
	})
	r.Start()
	return r, r.Stop
}
