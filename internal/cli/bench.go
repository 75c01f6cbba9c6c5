package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevengram/drover/internal/config"
	"github.com/sevengram/drover/internal/httpx"
	"github.com/sevengram/drover/internal/loadgen"
	"github.com/sevengram/drover/internal/output"
)

var benchCmd = &cobra.Command{
	Use:   "bench ENDPOINT [TYPE]",
	Short: "Run a single load pass against an endpoint",
	Long: `Bench runs one load pass at a fixed concurrency and prints the report
to stdout. It never starts or stops the service under test; point
--target at a running instance.

Run 50 users with the default 20 requests each:
  drover bench motor 2

Run a timed pass instead of a counted one:
  drover bench mongo 0 -c 200 -d 30s`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		runBench(cmd, args)
	},
}

func runBench(cmd *cobra.Command, args []string) {
	target, _ := cmd.Flags().GetString("target")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	requests, _ := cmd.Flags().GetInt64("requests")
	duration, _ := cmd.Flags().GetDuration("duration")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	quiet, _ := cmd.Flags().GetBool("quiet")
	noColor, _ := cmd.Flags().GetBool("no-color")
	verbose, _ := cmd.Flags().GetCount("verbose")

	output.InitLogging(os.Stderr, output.LogLevel(verbose, quiet))
	console := output.NewConsole(output.ConsoleConfig{Quiet: quiet, NoColor: noColor})

	selector := "0"
	if len(args) > 1 {
		selector = args[1]
	}
	if cmd.Flags().Changed("duration") && !cmd.Flags().Changed("requests") {
		requests = 0
	}

	runCfg, err := benchConfig(args[0], selector, target, concurrency, requests, duration, timeout)
	if err != nil {
		console.Errorln(err.Error())
		os.Exit(1)
	}

	runner, err := loadgen.NewRunner(runCfg)
	if err != nil {
		console.Errorln(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console.StartPass(args[0], concurrency, 1, 0, 1)
	watch := watchPass(console, runner, concurrency)

	result, runErr := runner.Run(ctx)

	watch.stop()
	console.EndPass()

	if result != nil {
		if err := output.BenchReport(os.Stdout, result); err != nil {
			console.Errorln(err.Error())
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			console.Errorln("bench interrupted")
		} else {
			console.Errorln(runErr.Error())
		}
		os.Exit(1)
	}
}

// benchConfig builds the runner configuration for a single pass. A zero
// request count with a positive duration selects the timed executor.
func benchConfig(endpoint, selector, target string, concurrency int, requests int64, duration, timeout time.Duration) (loadgen.RunConfig, error) {
	rawURL, err := httpx.BuildURL(target, endpoint, url.Values{"type": {selector}})
	if err != nil {
		return loadgen.RunConfig{}, fmt.Errorf("invalid target: %w", err)
	}

	exec := loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           concurrency,
		RequestsPerUser: requests,
		GracefulStop:    5 * time.Second,
	}
	if requests == 0 && duration > 0 {
		exec = loadgen.Config{
			Type:         loadgen.TypeTimed,
			Users:        concurrency,
			Duration:     duration,
			GracefulStop: 5 * time.Second,
		}
	}

	client := loadgen.DefaultClientConfig()
	client.Timeout = timeout
	if concurrency > client.MaxIdleConnsPerHost {
		client.MaxIdleConnsPerHost = concurrency
	}

	return loadgen.RunConfig{
		Plan: &loadgen.Plan{
			Name:   endpoint,
			Method: "GET",
			URL:    rawURL,
		},
		Executor: exec,
		Client:   client,
	}, nil
}

func init() {
	addBenchFlags(benchCmd)
}

// addBenchFlags registers the bench flag set.
func addBenchFlags(cmd *cobra.Command) {
	cmd.Flags().String("target", "http://127.0.0.1:33600", "Base URL of the service under test")
	cmd.Flags().IntP("concurrency", "c", 50, "Number of concurrent users")
	cmd.Flags().Int64P("requests", "n", config.BenchRequestsPerUser, "Requests per user")
	cmd.Flags().DurationP("duration", "d", 0, "Run a timed pass of this length instead of a counted one")
	cmd.Flags().DurationP("timeout", "t", 30*time.Second, "Per-request timeout")
	cmd.Flags().BoolP("quiet", "q", false, "Only report failures and the final verdict")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
}
