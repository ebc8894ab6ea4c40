package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives progress deltas as bytes arrive.
type Sink interface {
	Add(delta int64)
}

// Counter is an aggregate byte counter shared by concurrent fetches.
type Counter struct {
	n atomic.Int64
}

// Add adds delta to the counter.
func (c *Counter) Add(delta int64) {
	c.n.Add(delta)
}

// Load returns the current total.
func (c *Counter) Load() int64 {
	return c.n.Load()
}

type tee []Sink

func (t tee) Add(delta int64) {
	for _, s := range t {
		s.Add(delta)
	}
}

// Tee returns a Sink that forwards every delta to each non-nil sink.
func Tee(sinks ...Sink) Sink {
	var t tee
	for _, s := range sinks {
		if s != nil {
			t = append(t, s)
		}
	}
	return t
}

// Options configures the progress reporter.
type Options struct {
	// Max is the value displayed as 100%.
	Max int64

	// Files is the number of files being downloaded.
	Files int

	// Parts is the number of partitions per file.
	Parts int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// Label describes what is being downloaded (for display).
	Label string
}

// Reporter outputs human-readable progress information for an aggregate
// download. It is itself a Sink.
type Reporter struct {
	opts Options

	Counter

	mu         sync.Mutex
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    bool
	stopped    bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.startTime = time.Now()
	r.lastUpdate = r.startTime
	r.mu.Unlock()

	fmt.Fprintf(r.opts.Output, "[drivefetch] Downloading: %s\n", r.opts.Label)
	fmt.Fprintf(r.opts.Output, "[drivefetch] Total size: %s | Files: %d | Parts per file: %d\n",
		formatBytes(r.opts.Max),
		r.opts.Files,
		r.opts.Parts,
	)

	go r.updateLoop()
}

// Stop stops the progress reporter and prints the final status.
// It blocks until the final status has been written.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	now := time.Now()
	completed := r.Load()

	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(completed-r.lastBytes) / elapsed

	r.lastUpdate = now
	r.lastBytes = completed

	var percent float64
	eta := "calculating..."
	if r.opts.Max > 0 {
		percent = float64(completed) / float64(r.opts.Max) * 100
		if speed > 0 {
			remaining := float64(r.opts.Max - completed)
			eta = formatDuration(time.Duration(remaining / speed * float64(time.Second)))
		}
	}

	fmt.Fprintf(r.opts.Output, "\r[drivefetch] Progress: %.1f%% | %s / %s | Speed: %s/s | ETA: %s    ",
		percent,
		formatBytes(completed),
		formatBytes(r.opts.Max),
		formatBytes(int64(speed)),
		eta,
	)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	completed := r.Load()
	duration := time.Since(r.startTime)
	avgSpeed := float64(completed) / max(duration.Seconds(), 0.001)

	fmt.Fprintf(r.opts.Output, "\r[drivefetch] Progress: %s / %s    \n",
		formatBytes(completed),
		formatBytes(r.opts.Max),
	)
	fmt.Fprintf(r.opts.Output, "[drivefetch] Total time: %s | Average speed: %s/s\n",
		formatDuration(duration),
		formatBytes(int64(avgSpeed)),
	)
}

// formatBytes formats bytes using binary (IEC) units.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}

	units := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}
	value := float64(b) / unit
	i := 0
	for value >= unit && i < len(units)-1 {
		value /= unit
		i++
	}

	if value >= 100 {
		return fmt.Sprintf("%.0f %s", value, units[i])
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

// ParseBytes parses a human-readable byte string such as "256KiB" or "25MB".
// IEC suffixes (KiB, MiB, ...) are powers of 1024; SI suffixes (KB, MB, ...)
// are powers of 1000.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)

	suffixes := []struct {
		suffix     string
		multiplier int64
	}{
		{"TiB", 1 << 40},
		{"GiB", 1 << 30},
		{"MiB", 1 << 20},
		{"KiB", 1 << 10},
		{"TB", 1000 * 1000 * 1000 * 1000},
		{"GB", 1000 * 1000 * 1000},
		{"MB", 1000 * 1000},
		{"KB", 1000},
		{"B", 1},
	}

	var multiplier int64 = 1
	for _, sfx := range suffixes {
		if strings.HasSuffix(s, sfx.suffix) {
			multiplier = sfx.multiplier
			s = strings.TrimSpace(strings.TrimSuffix(s, sfx.suffix))
			break
		}
	}

	var value float64
	if _, err := fmt.Sscanf(s, "%f", &value); err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte string: %q", s)
	}

	return int64(value * float64(multiplier)), nil
}
