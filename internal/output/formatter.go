package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/sevengram/drover/internal/httpx"
)

// Formatter renders probe requests and responses as human-readable
// text.
type Formatter struct {
	Verbose bool
	NoColor bool
}

// NewFormatter creates a text formatter with the given options.
func NewFormatter(verbose, noColor bool) *Formatter {
	return &Formatter{
		Verbose: verbose,
		NoColor: noColor,
	}
}

// FormatRequest formats the outgoing probe request for display.
func (f *Formatter) FormatRequest(method, rawURL string, headers map[string]string) string {
	var buf strings.Builder

	methodColor := color.New(color.FgBlue, color.Bold)
	if f.NoColor {
		methodColor.DisableColor()
	}

	buf.WriteString(fmt.Sprintf("▶ REQUEST: %s %s\n", methodColor.Sprint(method), rawURL))

	if len(headers) > 0 {
		buf.WriteString("  Headers:\n")
		for key, value := range headers {
			buf.WriteString(fmt.Sprintf("    %s: %s\n", key, value))
		}
	}

	return buf.String()
}

// FormatResponse formats the probe response, with the timing breakdown
// and headers in verbose mode.
func (f *Formatter) FormatResponse(resp *httpx.Response) string {
	var buf strings.Builder

	statusColor := color.New(color.Bold)
	switch {
	case resp.IsSuccess():
		statusColor.Add(color.FgGreen)
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		statusColor.Add(color.FgYellow)
	default:
		statusColor.Add(color.FgRed)
	}
	if f.NoColor {
		statusColor.DisableColor()
	}

	buf.WriteString(fmt.Sprintf("◀ RESPONSE: %s (%s)\n",
		statusColor.Sprint(resp.Status),
		formatDurationShort(resp.Timing.Total)))

	if f.Verbose {
		buf.WriteString("  Timing:\n")
		buf.WriteString(fmt.Sprintf("    DNS lookup:        %s\n", formatDurationShort(resp.Timing.DNSLookup)))
		buf.WriteString(fmt.Sprintf("    TCP connect:       %s\n", formatDurationShort(resp.Timing.Connect)))
		buf.WriteString(fmt.Sprintf("    TLS handshake:     %s\n", formatDurationShort(resp.Timing.TLSHandshake)))
		buf.WriteString(fmt.Sprintf("    First byte:        %s\n", formatDurationShort(resp.Timing.FirstByte)))
		buf.WriteString(fmt.Sprintf("    Content transfer:  %s\n", formatDurationShort(resp.Timing.Transfer)))
		buf.WriteString(fmt.Sprintf("    Total:             %s\n", formatDurationShort(resp.Timing.Total)))

		buf.WriteString("  Headers:\n")
		for key, values := range resp.Headers {
			for _, value := range values {
				buf.WriteString(fmt.Sprintf("    %s: %s\n", key, value))
			}
		}
	}

	if body := resp.BodyString(); body != "" {
		buf.WriteString("  Body:\n")
		buf.WriteString(formatJSONString(body))
		buf.WriteString("\n")
	}

	return buf.String()
}

// formatJSONString attempts to pretty-print a JSON string, returning
// the input unchanged when it is not JSON.
func formatJSONString(s string) string {
	var prettyJSON bytes.Buffer
	err := json.Indent(&prettyJSON, []byte(s), "  ", "  ")
	if err != nil {
		return s
	}
	return prettyJSON.String()
}
