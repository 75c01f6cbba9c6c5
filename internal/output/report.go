package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sevengram/drover/internal/loadgen"
)

const reportRule = "================================================================"

// BenchReport writes the summary block for one completed load pass.
//
// The block is self-delimited: it opens with a rule line and closes with
// a blank line, so repeated passes against the same endpoint can append
// to one log file and stay readable.
func BenchReport(w io.Writer, result *loadgen.Result) error {
	var b strings.Builder

	b.WriteString(reportRule + "\n")
	b.WriteString(fmt.Sprintf("%s  %s  %s\n",
		result.StartTime.Format(time.RFC3339), result.Name, result.URL))
	if result.RequestsPerUser > 0 {
		b.WriteString(fmt.Sprintf("users: %d  requests per user: %d\n",
			result.Users, result.RequestsPerUser))
	} else {
		b.WriteString(fmt.Sprintf("users: %d\n", result.Users))
	}
	b.WriteString("\n")

	writeRow := func(label, value, unit string) {
		if unit != "" {
			b.WriteString(fmt.Sprintf("%-26s%12s %s\n", label+":", value, unit))
		} else {
			b.WriteString(fmt.Sprintf("%-26s%12s\n", label+":", value))
		}
	}

	throughput := 0.0
	if result.Elapsed.Seconds() > 0 {
		throughput = float64(result.BytesReceived) / (1024 * 1024) / result.Elapsed.Seconds()
	}

	writeRow("Transactions", formatNumber(result.TotalRequests), "hits")
	writeRow("Availability", fmt.Sprintf("%.2f", result.Availability*100), "%")
	writeRow("Elapsed time", fmt.Sprintf("%.2f", result.Elapsed.Seconds()), "secs")
	writeRow("Data transferred", formatMegabytes(result.BytesReceived), "MB")
	writeRow("Response time", fmt.Sprintf("%.2f", result.Latency.Mean.Seconds()), "secs")
	writeRow("Transaction rate", fmt.Sprintf("%.2f", result.RPS), "trans/sec")
	if result.RunningRPS > 0 {
		writeRow("Running rate", fmt.Sprintf("%.2f", result.RunningRPS), "trans/sec")
	}
	writeRow("Throughput", fmt.Sprintf("%.2f", throughput), "MB/sec")
	writeRow("Concurrency", fmt.Sprintf("%.2f", result.Concurrency), "")
	writeRow("Successful transactions", formatNumber(result.Succeeded), "")
	writeRow("Failed transactions", formatNumber(result.Failed), "")
	writeRow("Longest transaction", fmt.Sprintf("%.2f", result.Latency.Max.Seconds()), "secs")
	writeRow("Shortest transaction", fmt.Sprintf("%.2f", result.Latency.Min.Seconds()), "secs")

	b.WriteString(fmt.Sprintf("\nPercentiles:  p50 %s  p90 %s  p95 %s  p99 %s\n\n",
		formatDurationShort(result.Latency.P50),
		formatDurationShort(result.Latency.P90),
		formatDurationShort(result.Latency.P95),
		formatDurationShort(result.Latency.P99)))

	_, err := io.WriteString(w, b.String())
	return err
}
