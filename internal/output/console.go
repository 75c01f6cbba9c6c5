package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sevengram/drover/internal/loadgen/metrics"
)

// ANSI escape sequences for live line redrawing
const (
	cursorUp  = "\033[1A"
	clearLine = "\033[2K"
)

// LiveStats is one sample of an in-flight load pass, rendered by
// Update.
type LiveStats struct {
	Progress    float64
	Elapsed     time.Duration
	ActiveUsers int
	TargetUsers int
	Requests    int64
	RPS         float64
	Errors      int64
	ErrorRate   float64
	LatencyMean time.Duration
	LatencyP95  time.Duration
}

// StatsFromSnapshot converts a metrics snapshot into live stats for
// display. Returns nil when the pass has not produced a snapshot yet.
func StatsFromSnapshot(snapshot *metrics.Snapshot, progress float64, targetUsers int) *LiveStats {
	if snapshot == nil {
		return nil
	}
	return &LiveStats{
		Progress:    progress,
		Elapsed:     snapshot.Elapsed,
		ActiveUsers: snapshot.ActiveUsers,
		TargetUsers: targetUsers,
		Requests:    snapshot.TotalRequests,
		RPS:         snapshot.RPS,
		Errors:      snapshot.FailedRequests,
		ErrorRate:   snapshot.ErrorRate,
		LatencyMean: snapshot.Latency.Mean,
		LatencyP95:  snapshot.Latency.P95,
	}
}

// SweepInfo describes the sweep for the header banner.
type SweepInfo struct {
	Endpoint     string
	TypeSelector string
	TargetURL    string
	Levels       []int
	Repetitions  int
	TotalRuns    int
	Profile      string
	Requests     int64
	Duration     time.Duration
	Managed      bool
	Warmup       bool
}

// SweepStats summarizes a finished sweep for the closing lines.
type SweepStats struct {
	TotalRuns   int
	Passed      int
	Failed      int
	Skipped     int
	Duration    time.Duration
	LogDir      string
	OutcomeFile string
	Levels      []LevelStat
}

// LevelStat is one row of the closing per-level table: load numbers
// for a concurrency level averaged over the passes that ran.
type LevelStat struct {
	Concurrency  int
	Loads        int
	RPS          float64
	P99          time.Duration
	Availability float64
}

// ConsoleConfig configures console output behavior.
type ConsoleConfig struct {
	// Writer defaults to os.Stdout
	Writer io.Writer

	// Quiet suppresses everything except failures and the final verdict
	Quiet bool

	// NoColor disables colors even on a color-capable terminal
	NoColor bool

	// ForceColors enables colors even when the writer is not a terminal
	ForceColors bool

	// ForceTTY treats the writer as interactive (for testing)
	ForceTTY bool
}

// Console renders sweep progress for humans: a banner, a live view of
// the pass in flight, one line per finished pass, and a closing
// summary. It never renders report blocks; those go through
// BenchReport.
type Console struct {
	writer    io.Writer
	isTTY     bool
	useColors bool
	quiet     bool
	scheme    *ColorScheme

	mu        sync.Mutex
	liveLines int
}

// NewConsole creates a console for the given configuration.
func NewConsole(cfg ConsoleConfig) *Console {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	isTTY := cfg.ForceTTY || isTerminal(writer)

	useColors := supportsColors(isTTY)
	if cfg.NoColor {
		useColors = false
	}
	if cfg.ForceColors {
		useColors = true
	}

	scheme := NoColorScheme()
	if useColors {
		scheme = ForcedColorScheme()
	}

	return &Console{
		writer:    writer,
		isTTY:     isTTY,
		useColors: useColors,
		quiet:     cfg.Quiet,
		scheme:    scheme,
	}
}

// IsTTY reports whether the console renders interactively.
func (c *Console) IsTTY() bool {
	return c.isTTY
}

// supportsColors decides whether to emit colors, honoring the usual
// environment overrides.
func supportsColors(isTTY bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if !isTTY {
		return false
	}
	term := os.Getenv("TERM")
	if term == "dumb" || term == "" {
		return false
	}
	return true
}

// SweepHeader prints the banner describing the sweep about to run.
func (c *Console) SweepHeader(info *SweepInfo) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln("")
	c.writeln(fmt.Sprintf("%s  %s (type %s)",
		c.scheme.Highlight.Sprint("drover sweep"), info.Endpoint, info.TypeSelector))
	c.writeln(fmt.Sprintf("  target       %s", info.TargetURL))
	c.writeln(fmt.Sprintf("  concurrency  %s", levelsSummary(info.Levels)))
	c.writeln(fmt.Sprintf("  repetitions  %d (%d passes)", info.Repetitions, info.TotalRuns))
	if info.Requests > 0 {
		c.writeln(fmt.Sprintf("  profile      %s, %d requests per user", info.Profile, info.Requests))
	} else {
		c.writeln(fmt.Sprintf("  profile      %s, %s per pass", info.Profile, formatDuration(info.Duration)))
	}
	if info.Managed {
		c.writeln("  service      managed per pass")
	} else {
		c.writeln("  service      externally managed")
	}
	if info.Warmup {
		c.writeln("  warm-up      enabled")
	}
	c.writeln("")
}

// StartPass prints the context line for the pass about to run. The live
// view renders beneath it.
func (c *Console) StartPass(endpoint string, concurrency, repetition, completed, total int) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(fmt.Sprintf("%s %s c=%d rep=%d",
		c.scheme.Faint.Sprintf("[%*d/%d]", totalWidth(total), completed+1, total),
		endpoint, concurrency, repetition))
}

// Update renders one live sample. On a terminal it redraws in place;
// otherwise it appends a one-line progress report.
func (c *Console) Update(stats *LiveStats) {
	if c.quiet || stats == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isTTY {
		c.writeln(fmt.Sprintf("  [%s] %3.0f%%  users %d/%d  reqs %s  %.1f rps  errs %s  p95 %s",
			formatDuration(stats.Elapsed),
			stats.Progress*100,
			stats.ActiveUsers, stats.TargetUsers,
			formatNumber(stats.Requests),
			stats.RPS,
			formatNumber(stats.Errors),
			formatDurationShort(stats.LatencyP95)))
		return
	}

	c.eraseLive()

	bar := renderProgressBar(stats.Progress, 30)
	if c.useColors {
		bar = c.scheme.Info.Sprint(bar)
	}
	c.writeln(fmt.Sprintf("  %s %5.1f%%  %s", bar, stats.Progress*100, formatDuration(stats.Elapsed)))

	errs := formatNumber(stats.Errors)
	if stats.Errors > 0 {
		errs = c.scheme.Error.Sprint(errs)
	}
	c.writeln(fmt.Sprintf("  users %d/%d  reqs %s  %.1f rps  errs %s (%.1f%%)  mean %s  p95 %s",
		stats.ActiveUsers, stats.TargetUsers,
		formatNumber(stats.Requests),
		stats.RPS,
		errs, stats.ErrorRate*100,
		formatDurationShort(stats.LatencyMean),
		formatDurationShort(stats.LatencyP95)))

	c.liveLines = 2
}

// EndPass removes the live view so the pass outcome line replaces it.
func (c *Console) EndPass() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eraseLive()
}

// PassDone prints the outcome line for a finished pass. In quiet mode
// only failures appear.
func (c *Console) PassDone(completed, total, concurrency, repetition int, outcome, detail string) {
	if c.quiet && outcome == "passed" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.eraseLive()

	line := fmt.Sprintf("%s %s c=%d rep=%d",
		c.scheme.OutcomeIcon(outcome),
		c.scheme.Faint.Sprintf("[%*d/%d]", totalWidth(total), completed, total),
		concurrency, repetition)
	if detail != "" {
		line += "  " + detail
	}
	c.writeln(line)
}

// SweepSummary prints the closing lines after the sweep finishes.
func (c *Console) SweepSummary(stats *SweepStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eraseLive()

	verdict := c.scheme.Success.Sprint("PASSED")
	if stats.Failed > 0 {
		verdict = c.scheme.Error.Sprint("FAILED")
	}

	if c.quiet {
		c.writeln(fmt.Sprintf("%s  %d/%d passes, %d failed, %d skipped, %s",
			verdict, stats.Passed, stats.TotalRuns, stats.Failed, stats.Skipped,
			formatDuration(stats.Duration)))
		return
	}

	c.writeln("")
	c.writeln(fmt.Sprintf("%s  %d of %d passes in %s",
		verdict, stats.Passed, stats.TotalRuns, formatDuration(stats.Duration)))
	if stats.Failed > 0 {
		c.writeln(fmt.Sprintf("  failed   %d", stats.Failed))
	}
	if stats.Skipped > 0 {
		c.writeln(fmt.Sprintf("  skipped  %d", stats.Skipped))
	}
	if len(stats.Levels) > 0 {
		c.writeln("")
		c.writeln(c.scheme.Faint.Sprint("      c      rps      p99  avail"))
		for _, lv := range stats.Levels {
			c.writeln(fmt.Sprintf("  %5d  %7.1f  %7s  %4.1f%%",
				lv.Concurrency, lv.RPS, formatDurationShort(lv.P99), lv.Availability*100))
		}
	}
	if stats.LogDir != "" {
		c.writeln(fmt.Sprintf("  reports  %s", stats.LogDir))
	}
	if stats.OutcomeFile != "" {
		c.writeln(fmt.Sprintf("  outcomes %s", stats.OutcomeFile))
	}
	c.writeln("")
}

// Errorln prints an error line, even in quiet mode.
func (c *Console) Errorln(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eraseLive()
	c.writeln(fmt.Sprintf("%s %s", c.scheme.Error.Sprint("error:"), msg))
}

// eraseLive clears the live view lines. Callers hold the mutex.
func (c *Console) eraseLive() {
	if !c.isTTY || c.liveLines == 0 {
		return
	}
	for i := 0; i < c.liveLines; i++ {
		c.write(cursorUp + clearLine + "\r")
	}
	c.liveLines = 0
}

func (c *Console) write(s string) {
	fmt.Fprint(c.writer, s)
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

// renderProgressBar renders a bar of the given width for progress in
// [0, 1].
func renderProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	filled := int(progress * float64(width))
	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < width; i++ {
		if i < filled {
			bar.WriteString("█")
		} else {
			bar.WriteString("░")
		}
	}
	bar.WriteString("]")
	return bar.String()
}

// levelsSummary renders the concurrency levels compactly, naming the
// step when it is uniform.
func levelsSummary(levels []int) string {
	switch len(levels) {
	case 0:
		return "none"
	case 1:
		return fmt.Sprintf("%d", levels[0])
	}

	step := levels[1] - levels[0]
	uniform := true
	for i := 2; i < len(levels); i++ {
		if levels[i]-levels[i-1] != step {
			uniform = false
			break
		}
	}

	if uniform {
		return fmt.Sprintf("%d..%d step %d (%d levels)",
			levels[0], levels[len(levels)-1], step, len(levels))
	}
	return fmt.Sprintf("%d levels (%d..%d)", len(levels), levels[0], levels[len(levels)-1])
}

// totalWidth is the digit width of the pass counter, to keep the
// bracketed counters aligned.
func totalWidth(total int) int {
	return len(fmt.Sprintf("%d", total))
}
