package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevengram/drover/internal/httpx"
	"github.com/sevengram/drover/internal/output"
	"github.com/sevengram/drover/pkg/jsonpath"
)

var probeCmd = &cobra.Command{
	Use:   "probe URL",
	Short: "Make a single GET request and inspect the response",
	Long: `Probe sends one GET request and prints the response with its timing
breakdown. It is the quick check before committing to a sweep: verify
the service answers, see what an endpoint returns, or assert on the
response body.

Check a health endpoint:
  drover probe 127.0.0.1:33600/health --expect status=ok

Inspect a cached read as JSON:
  drover probe "127.0.0.1:33600/motor?type=2" -o json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runProbe(cmd, args)
	},
}

func runProbe(cmd *cobra.Command, args []string) {
	rawURL := args[0]
	headerArgs, _ := cmd.Flags().GetStringArray("header")
	expectArgs, _ := cmd.Flags().GetStringArray("expect")
	verbose, _ := cmd.Flags().GetBool("verbose")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	noColor, _ := cmd.Flags().GetBool("no-color")
	formatArg, _ := cmd.Flags().GetString("output")

	format, err := output.ParseFormat(formatArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	want, err := parseExpectations(expectArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}

	headers := make(map[string]string)
	for _, header := range headerArgs {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	formatter := output.GetFormatter(format, verbose, noColor)

	// Structured formats carry the request data in the response record.
	if format == output.FormatText {
		fmt.Print(formatter.FormatRequest("GET", rawURL, headers))
	}

	client := httpx.NewClient(httpx.WithTimeout(timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := client.Do(ctx, "GET", rawURL, headers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(formatter.FormatResponse(resp))

	if err := jsonpath.Expect(resp.BodyString(), want); err != nil {
		fmt.Fprintf(os.Stderr, "Expectation failed: %v\n", err)
		os.Exit(1)
	}
}

// parseExpectations turns repeated path=value flags into an
// expectation map.
func parseExpectations(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}

	want := make(map[string]string, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid expectation %q (want path=value)", arg)
		}
		want[parts[0]] = parts[1]
	}
	return want, nil
}

func init() {
	addProbeFlags(probeCmd)
}

// addProbeFlags registers the probe flag set.
func addProbeFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("header", "H", []string{}, "HTTP headers to include (can be used multiple times)")
	cmd.Flags().StringArray("expect", []string{}, "JSONPath expectation on the body, as path=value (can be used multiple times)")
	cmd.Flags().StringP("output", "o", "", "Output format: text, json or yaml")
	cmd.Flags().BoolP("verbose", "v", false, "Show response headers and the full timing breakdown")
	cmd.Flags().DurationP("timeout", "t", 30*time.Second, "Request timeout")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
}
