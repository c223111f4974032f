package pipeline

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ProgressCallback receives region-level progress from RunParallel. Counts
// are 1-based and OnProgress is called once per finished region, failed or
// not, so current reaches total exactly once.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
	OnError(current int, err error)
}

// Progresses fans one event out to several callbacks in order.
type Progresses []ProgressCallback

func (ps Progresses) OnStart(total int) {
	for _, p := range ps {
		p.OnStart(total)
	}
}

func (ps Progresses) OnProgress(current, total int) {
	for _, p := range ps {
		p.OnProgress(current, total)
	}
}

func (ps Progresses) OnComplete() {
	for _, p := range ps {
		p.OnComplete()
	}
}

func (ps Progresses) OnError(current int, err error) {
	for _, p := range ps {
		p.OnError(current, err)
	}
}

const progressBarWidth = 30

// ConsoleProgress redraws a single status line on w, at most once per
// interval except for the final region.
type ConsoleProgress struct {
	w        io.Writer
	label    string
	interval time.Duration

	mu      sync.Mutex
	total   int
	failed  int
	started time.Time
	drawn   time.Time
}

// NewConsoleProgress returns a console reporter prefixing every line with label.
func NewConsoleProgress(w io.Writer, label string, interval time.Duration) *ConsoleProgress {
	return &ConsoleProgress{w: w, label: label, interval: interval}
}

func (c *ConsoleProgress) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total, c.failed = total, 0
	c.started = time.Now()
	c.drawn = time.Time{}
	_, _ = fmt.Fprintf(c.w, "%s0/%d regions\n", c.label, total)
}

func (c *ConsoleProgress) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if current < total && now.Sub(c.drawn) < c.interval {
		return
	}
	c.drawn = now
	_, _ = io.WriteString(c.w, "\r"+c.statusLine(current, total, now.Sub(c.started)))
}

func (c *ConsoleProgress) statusLine(current, total int, elapsed time.Duration) string {
	if total <= 0 {
		return c.label
	}
	filled := progressBarWidth * current / total
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s%s] %d/%d", c.label,
		strings.Repeat("#", filled), strings.Repeat(".", progressBarWidth-filled), current, total)
	if elapsed > 0 && current > 0 {
		perRegion := elapsed / time.Duration(current)
		fmt.Fprintf(&b, " %.1f/s", float64(current)/elapsed.Seconds())
		if current < total {
			fmt.Fprintf(&b, " eta %v", (perRegion * time.Duration(total-current)).Round(time.Second))
		}
	}
	return b.String()
}

func (c *ConsoleProgress) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := time.Since(c.started).Round(time.Millisecond)
	if c.failed > 0 {
		_, _ = fmt.Fprintf(c.w, "\n%sdone: %d regions (%d failed) in %v\n", c.label, c.total, c.failed, elapsed)
		return
	}
	_, _ = fmt.Fprintf(c.w, "\n%sdone: %d regions in %v\n", c.label, c.total, elapsed)
}

func (c *ConsoleProgress) OnError(current int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed++
	_, _ = fmt.Fprintf(c.w, "\n%sregion %d failed: %v\n", c.label, current, err)
}

// LogProgress emits progress as log events every step regions.
type LogProgress struct {
	logger zerolog.Logger
	level  zerolog.Level
	step   int

	mu      sync.Mutex
	last    int
	started time.Time
}

// NewLogProgress logs at level every step regions; step below 1 means 10.
func NewLogProgress(logger zerolog.Logger, level zerolog.Level, step int) *LogProgress {
	if step < 1 {
		step = 10
	}
	return &LogProgress{logger: logger, level: level, step: step}
}

func (l *LogProgress) OnStart(total int) {
	l.mu.Lock()
	l.started, l.last = time.Now(), 0
	l.mu.Unlock()
	l.logger.WithLevel(l.level).Int("total", total).Msg("starting segmentation batch")
}

func (l *LogProgress) OnProgress(current, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current != total && current-l.last < l.step {
		return
	}
	l.last = current
	ev := l.logger.WithLevel(l.level).Int("current", current).Int("total", total)
	if total > 0 {
		ev = ev.Float64("percent", 100*float64(current)/float64(total))
	}
	ev.Dur("elapsed", time.Since(l.started).Round(time.Millisecond)).Msg("progress")
}

func (l *LogProgress) OnComplete() {
	l.mu.Lock()
	elapsed := time.Since(l.started)
	l.mu.Unlock()
	l.logger.WithLevel(l.level).Dur("elapsed", elapsed.Round(time.Millisecond)).Msg("segmentation batch completed")
}

func (l *LogProgress) OnError(current int, err error) {
	l.logger.Error().Int("current", current).Err(err).Msg("segmentation failed")
}
