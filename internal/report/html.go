// Package report renders sweep results as standalone HTML pages and
// machine-readable JSON files.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sevengram/drover/internal/driver"
)

// page is parsed once at load time. The template is embedded, so a
// parse failure is a programming error and Must is the right response.
var page = template.Must(template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate))

// ReportData is what the page template renders: the sweep result plus
// aggregates computed from its iterations.
type ReportData struct {
	*driver.SweepResult

	Title        string
	Endpoint     string
	TypeSelector string
	Totals       Totals
	Levels       []LevelPoint
	LevelsJSON   template.JS
}

// Totals aggregates load numbers across every iteration that ran a
// load pass.
type Totals struct {
	Requests     int64
	Bytes        int64
	Availability float64
	PeakRPS      float64
	WorstP95     time.Duration
}

// LevelPoint is one chart point: the load numbers for a concurrency
// level averaged across the repetitions that ran a pass. Latencies are
// nanoseconds; the chart script converts them to milliseconds.
type LevelPoint struct {
	Concurrency  int     `json:"concurrency"`
	Runs         int     `json:"runs"`
	RPS          float64 `json:"rps"`
	Availability float64 `json:"availability"`
	Effective    float64 `json:"effective"`
	LatencyP50   int64   `json:"latencyP50"`
	LatencyP95   int64   `json:"latencyP95"`
	LatencyP99   int64   `json:"latencyP99"`
}

// GenerateHTML renders the sweep report and writes it to a file.
func GenerateHTML(result *driver.SweepResult, outputPath string) error {
	html, err := GenerateHTMLString(result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	return nil
}

// GenerateHTMLString renders the sweep report and returns it as a string.
func GenerateHTMLString(result *driver.SweepResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result cannot be nil")
	}

	levels := convertLevels(result)
	levelsJSON := []byte("[]")
	if len(levels) > 0 {
		var err error
		if levelsJSON, err = json.Marshal(levels); err != nil {
			return "", fmt.Errorf("failed to encode level data: %w", err)
		}
	}

	endpoint, selector := sweepTarget(result)
	data := ReportData{
		SweepResult:  result,
		Title:        reportTitle(result, endpoint),
		Endpoint:     endpoint,
		TypeSelector: selector,
		Totals:       computeTotals(result),
		Levels:       levels,
		LevelsJSON:   template.JS(levelsJSON),
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// WriteJSON writes the full sweep result as indented JSON.
func WriteJSON(result *driver.SweepResult, outputPath string) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(outputPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}

// sweepTarget returns the endpoint and type selector the sweep drove.
// Every iteration shares them, so the first one is authoritative.
func sweepTarget(result *driver.SweepResult) (endpoint, selector string) {
	if len(result.Iterations) > 0 {
		return result.Iterations[0].Endpoint, result.Iterations[0].TypeSelector
	}
	return "", ""
}

// reportTitle picks the page title: the configured sweep name when one
// is set, otherwise the endpoint.
func reportTitle(result *driver.SweepResult, endpoint string) string {
	if result.Name != "" {
		return result.Name
	}
	if endpoint != "" {
		return endpoint + " sweep"
	}
	return "benchmark sweep"
}

// convertLevels folds the iterations into one point per concurrency
// level, in sweep order. Iterations that never ran a load pass do not
// contribute.
func convertLevels(result *driver.SweepResult) []LevelPoint {
	var points []LevelPoint
	index := make(map[int]int)

	for i := range result.Iterations {
		iter := &result.Iterations[i]
		if iter.Load == nil {
			continue
		}

		idx, ok := index[iter.Concurrency]
		if !ok {
			idx = len(points)
			index[iter.Concurrency] = idx
			points = append(points, LevelPoint{Concurrency: iter.Concurrency})
		}

		p := &points[idx]
		p.Runs++
		p.RPS += iter.Load.RPS
		p.Availability += iter.Load.Availability
		p.Effective += iter.Load.Concurrency
		p.LatencyP50 += int64(iter.Load.Latency.P50)
		p.LatencyP95 += int64(iter.Load.Latency.P95)
		p.LatencyP99 += int64(iter.Load.Latency.P99)
	}

	for i := range points {
		p := &points[i]
		n := int64(p.Runs)
		p.RPS /= float64(n)
		p.Availability /= float64(n)
		p.Effective /= float64(n)
		p.LatencyP50 /= n
		p.LatencyP95 /= n
		p.LatencyP99 /= n
	}

	return points
}

// computeTotals sums the load passes into the headline numbers.
func computeTotals(result *driver.SweepResult) Totals {
	var totals Totals
	var succeeded int64

	for i := range result.Iterations {
		load := result.Iterations[i].Load
		if load == nil {
			continue
		}
		totals.Requests += load.TotalRequests
		totals.Bytes += load.BytesReceived
		succeeded += load.Succeeded
		if load.RPS > totals.PeakRPS {
			totals.PeakRPS = load.RPS
		}
		if load.Latency.P95 > totals.WorstP95 {
			totals.WorstP95 = load.Latency.P95
		}
	}

	if totals.Requests > 0 {
		totals.Availability = float64(succeeded) / float64(totals.Requests)
	}
	return totals
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDuration": formatDuration,
		"formatNumber":   formatNumber,
		"formatLatency":  formatLatency,
		"formatBytes":    formatBytes,
		"mul":            mul,
		"elapsed":        elapsed,
		"outcomeClass":   outcomeClass,
		"outcomeIcon":    outcomeIcon,
		"failureReason":  failureReason,
	}
}

// formatDuration renders wall-clock spans: sub-second values in one
// unit, longer ones as minute/hour pairs.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		m, s := int(d.Minutes()), int(d.Seconds())%60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h, m := int(d.Hours()), int(d.Minutes())%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// formatNumber inserts thousands separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// formatLatency renders latencies with three significant digits of
// precision across the ns-to-seconds range.
func formatLatency(d time.Duration) string {
	switch {
	case d == 0:
		return "0"
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		if us := float64(d.Microseconds()); us < 100 {
			return fmt.Sprintf("%.1fµs", us)
		}
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		ms := float64(d.Microseconds()) / 1000.0
		switch {
		case ms < 10:
			return fmt.Sprintf("%.2fms", ms)
		case ms < 100:
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	}
	s := d.Seconds()
	if s < 10 {
		return fmt.Sprintf("%.2fs", s)
	}
	return fmt.Sprintf("%.1fs", s)
}

// formatBytes renders byte counts in binary units up to TB.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	val, exp := float64(n)/unit, 0
	for val >= unit && exp < 3 {
		val /= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", val, "KMGT"[exp])
}

// mul is exposed to the template for percentage math.
func mul(a, b float64) float64 {
	return a * b
}

// elapsed returns the wall time between two timestamps.
func elapsed(start, end time.Time) time.Duration {
	return end.Sub(start)
}

// outcomeClass maps an iteration outcome to its badge CSS class.
func outcomeClass(outcome driver.Outcome) string {
	switch outcome {
	case driver.OutcomePassed:
		return "pass"
	case driver.OutcomeSkipped:
		return "skip"
	default:
		return "fail"
	}
}

// outcomeIcon maps an iteration outcome to its badge glyph.
func outcomeIcon(outcome driver.Outcome) string {
	switch outcome {
	case driver.OutcomePassed:
		return "✓"
	case driver.OutcomeSkipped:
		return "~"
	default:
		return "✗"
	}
}

// failureReason returns the first failed step of an iteration as
// "step: error", or an empty string when every step passed.
func failureReason(iter driver.IterationResult) string {
	for _, step := range iter.Steps {
		if !step.OK {
			return fmt.Sprintf("%s: %s", step.Step, step.Err)
		}
	}
	return ""
}
