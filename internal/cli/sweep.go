package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevengram/drover/internal/config"
	"github.com/sevengram/drover/internal/driver"
	"github.com/sevengram/drover/internal/loadgen"
	"github.com/sevengram/drover/internal/output"
	"github.com/sevengram/drover/internal/report"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep ENDPOINT [TYPE]",
	Short: "Run a concurrency sweep against an endpoint",
	Long: `Sweep drives load at ENDPOINT across a matrix of concurrency levels,
repeating every level and appending one report block per pass to
<log-dir>/<endpoint>_<workers>_<concurrency>_<requests>.log.

TYPE is the value of the "type" query parameter sent with every load
request (default "0"). Type "2" selects the cached variant; drover then
issues a type "0" warm-up call before each pass so the cache is
populated before it is measured.

Sweep a managed service:
  drover sweep motor 2 --service-cmd "./bin/service -port 33600"

Sweep an already running service with a short smoke profile:
  drover sweep amysql 0 --no-service --profile smoke --end 200`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		runSweep(cmd, args)
	},
}

// runSweep assembles the configuration, runs the sweep with console
// reporting wired in, and writes the requested artifacts.
func runSweep(cmd *cobra.Command, args []string) {
	quiet, _ := cmd.Flags().GetBool("quiet")
	noColor, _ := cmd.Flags().GetBool("no-color")
	verbose, _ := cmd.Flags().GetCount("verbose")
	outputPath, _ := cmd.Flags().GetString("output")

	output.InitLogging(os.Stderr, output.LogLevel(verbose, quiet))
	console := output.NewConsole(output.ConsoleConfig{Quiet: quiet, NoColor: noColor})

	cfg, err := sweepConfigFromFlags(cmd, args)
	if err != nil {
		console.Errorln(err.Error())
		os.Exit(1)
	}

	var (
		completed int
		total     int
		watch     *passWatch
	)

	drv, err := driver.New(cfg,
		driver.WithPassObserver(func(iter *driver.IterationResult, runner *loadgen.Runner) {
			console.StartPass(iter.Endpoint, iter.Concurrency, iter.Repetition, completed, total)
			watch = watchPass(console, runner, iter.Concurrency)
		}),
		driver.WithIterationObserver(func(iter *driver.IterationResult, done, totalRuns int) {
			if watch != nil {
				watch.stop()
				watch = nil
			}
			completed = done
			console.PassDone(done, totalRuns, iter.Concurrency, iter.Repetition,
				string(iter.Outcome), passDetail(iter))
		}),
	)
	if err != nil {
		console.Errorln(err.Error())
		os.Exit(1)
	}
	total = drv.TotalRuns()

	console.SweepHeader(&output.SweepInfo{
		Endpoint:     cfg.Target.Endpoint,
		TypeSelector: cfg.Target.TypeSelector,
		TargetURL:    cfg.Target.BaseURL,
		Levels:       drv.Levels(),
		Repetitions:  cfg.Matrix.Repetitions,
		TotalRuns:    total,
		Profile:      profileName(&cfg.Load),
		Requests:     cfg.Load.RequestsPerUser,
		Duration:     cfg.Load.Duration.GetDuration(0),
		Managed:      len(cfg.Service.Command) > 0,
		Warmup:       cfg.WarmupEnabled(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep, runErr := drv.Run(ctx)

	if sweep != nil {
		console.SweepSummary(&output.SweepStats{
			TotalRuns:   sweep.TotalRuns,
			Passed:      sweep.Passed,
			Failed:      sweep.Failed,
			Skipped:     sweep.Skipped,
			Duration:    sweep.Duration,
			LogDir:      cfg.Log.Dir,
			OutcomeFile: outcomePath(cfg),
			Levels:      levelStats(sweep),
		})
		writeArtifacts(console, sweep, outputPath)
	}

	if runErr != nil {
		switch {
		case errors.Is(runErr, context.Canceled):
			console.Errorln("sweep interrupted")
		case sweep == nil:
			console.Errorln(runErr.Error())
		}
		os.Exit(1)
	}
}

// sweepConfigFromFlags loads the config file when one is given and lays
// the command-line overrides on top, then fills the remaining defaults.
func sweepConfigFromFlags(cmd *cobra.Command, args []string) (*config.SweepConfig, error) {
	configFile, _ := cmd.Flags().GetString("config")

	cfg := &config.SweepConfig{}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.Target.Endpoint = args[0]
	if len(args) > 1 {
		cfg.Target.TypeSelector = args[1]
	}
	if cfg.Target.TypeSelector == "" {
		cfg.Target.TypeSelector = "0"
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("name"); v != "" {
		cfg.Name = v
	}
	if v, _ := flags.GetString("target"); v != "" {
		cfg.Target.BaseURL = v
	}
	if v, _ := flags.GetString("log-dir"); v != "" {
		cfg.Log.Dir = v
	}
	if v, _ := flags.GetString("profile"); v != "" {
		cfg.Load.Profile = v
		// Re-resolve the request count from the profile unless the
		// count or a timed window was given explicitly.
		if !flags.Changed("requests") && !flags.Changed("duration") {
			cfg.Load.RequestsPerUser = 0
		}
	}

	if flags.Changed("levels") {
		cfg.Matrix.Levels, _ = flags.GetIntSlice("levels")
	}
	if flags.Changed("start") {
		cfg.Matrix.Start, _ = flags.GetInt("start")
	}
	if flags.Changed("end") {
		cfg.Matrix.End, _ = flags.GetInt("end")
	}
	if flags.Changed("step") {
		cfg.Matrix.Step, _ = flags.GetInt("step")
	}
	if flags.Changed("repetitions") {
		cfg.Matrix.Repetitions, _ = flags.GetInt("repetitions")
	}

	if flags.Changed("requests") {
		cfg.Load.RequestsPerUser, _ = flags.GetInt64("requests")
	}
	if flags.Changed("duration") {
		d, _ := flags.GetDuration("duration")
		cfg.Load.Duration = config.Duration(d)
		// A timed pass replaces the per-user request count unless one
		// was given explicitly.
		if !flags.Changed("requests") {
			cfg.Load.RequestsPerUser = 0
		}
	}

	if v, _ := flags.GetString("service-cmd"); v != "" {
		cfg.Service.Command = strings.Fields(v)
	}
	if noService, _ := flags.GetBool("no-service"); noService {
		cfg.Service.Command = nil
	}
	if flags.Changed("workers") {
		cfg.Service.Workers, _ = flags.GetInt("workers")
	}

	if flags.Changed("warmup") {
		warmup, _ := flags.GetBool("warmup")
		cfg.Warmup.Enabled = &warmup
	}

	config.ApplyDefaults(cfg)
	return cfg, nil
}

// consoleUpdateInterval is how often the live pass view refreshes.
const consoleUpdateInterval = time.Second

// passWatch feeds the console with live runner stats until stopped.
type passWatch struct {
	stopCh chan struct{}
	doneCh chan struct{}
}

// watchPass polls a runner in the background and pushes its snapshots
// to the console. Callers must stop the watch before printing anything
// that should outlive the live view.
func watchPass(console *output.Console, runner *loadgen.Runner, targetUsers int) *passWatch {
	w := &passWatch{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go func() {
		defer close(w.doneCh)
		ticker := time.NewTicker(consoleUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-w.stopCh:
				return
			case <-ticker.C:
				if !runner.IsRunning() {
					continue
				}
				console.Update(output.StatsFromSnapshot(runner.GetSnapshot(), runner.GetProgress(), targetUsers))
			}
		}
	}()
	return w
}

// stop halts the watcher and waits for its last console write.
func (w *passWatch) stop() {
	close(w.stopCh)
	<-w.doneCh
}

// passDetail summarizes an iteration for its outcome line: the first
// failed step when something broke, the load numbers otherwise.
func passDetail(iter *driver.IterationResult) string {
	for _, step := range iter.Steps {
		if !step.OK {
			return fmt.Sprintf("%s: %s", step.Step, step.Err)
		}
	}
	if load := iter.Step(driver.StepLoad); load != nil {
		return load.Detail
	}
	return ""
}

// profileName names the load shape for the sweep header.
func profileName(load *config.LoadConfig) string {
	if load.RequestsPerUser == 0 && load.Duration.GetDuration(0) > 0 {
		return "timed"
	}
	if load.Profile != "" {
		return load.Profile
	}
	switch load.RequestsPerUser {
	case config.SmokeRequestsPerUser:
		return config.ProfileSmoke
	case config.BenchRequestsPerUser:
		return config.ProfileBench
	}
	return "custom"
}

// levelStats folds the iterations into one summary row per concurrency
// level, in sweep order, averaging over the passes that ran a load.
func levelStats(sweep *driver.SweepResult) []output.LevelStat {
	var rows []output.LevelStat
	index := make(map[int]int)

	for i := range sweep.Iterations {
		iter := &sweep.Iterations[i]
		if iter.Load == nil {
			continue
		}

		idx, ok := index[iter.Concurrency]
		if !ok {
			idx = len(rows)
			index[iter.Concurrency] = idx
			rows = append(rows, output.LevelStat{Concurrency: iter.Concurrency})
		}

		row := &rows[idx]
		row.Loads++
		row.RPS += iter.Load.RPS
		row.P99 += iter.Load.Latency.P99
		row.Availability += iter.Load.Availability
	}

	for i := range rows {
		row := &rows[i]
		n := row.Loads
		row.RPS /= float64(n)
		row.P99 /= time.Duration(n)
		row.Availability /= float64(n)
	}
	return rows
}

// outcomePath resolves the outcome log location: relative paths live
// under the log directory.
func outcomePath(cfg *config.SweepConfig) string {
	if cfg.Log.OutcomeFile == "" || filepath.IsAbs(cfg.Log.OutcomeFile) {
		return cfg.Log.OutcomeFile
	}
	return filepath.Join(cfg.Log.Dir, cfg.Log.OutcomeFile)
}

// writeArtifacts writes the sweep result to the requested output path.
// ".html" renders the HTML report, ".json" the raw result, and a path
// without either extension gets both.
func writeArtifacts(console *output.Console, sweep *driver.SweepResult, outputPath string) {
	if outputPath == "" {
		return
	}

	lower := strings.ToLower(outputPath)
	switch {
	case strings.HasSuffix(lower, ".html"):
		if err := report.GenerateHTML(sweep, outputPath); err != nil {
			console.Errorln(err.Error())
		}
	case strings.HasSuffix(lower, ".json"):
		if err := report.WriteJSON(sweep, outputPath); err != nil {
			console.Errorln(err.Error())
		}
	default:
		if err := report.GenerateHTML(sweep, outputPath+".html"); err != nil {
			console.Errorln(err.Error())
		}
		if err := report.WriteJSON(sweep, outputPath+".json"); err != nil {
			console.Errorln(err.Error())
		}
	}
}

func init() {
	addSweepFlags(sweepCmd)
}

// addSweepFlags registers the sweep flag set.
func addSweepFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Sweep configuration file (YAML or JSON)")
	cmd.Flags().String("name", "", "Sweep name used in reports")
	cmd.Flags().String("target", "", "Base URL of the service under test")
	cmd.Flags().String("log-dir", "", "Directory for per-run report files")
	cmd.Flags().String("profile", "", "Load profile: bench or smoke")
	cmd.Flags().Int64P("requests", "n", 0, "Requests per user for every pass")
	cmd.Flags().DurationP("duration", "d", 0, "Run timed passes of this length instead of counted ones")
	cmd.Flags().IntSlice("levels", nil, "Explicit concurrency levels (overrides the range)")
	cmd.Flags().Int("start", 0, "First concurrency level")
	cmd.Flags().Int("end", 0, "Last concurrency level (inclusive)")
	cmd.Flags().Int("step", 0, "Concurrency increment between levels")
	cmd.Flags().IntP("repetitions", "r", 0, "Repetitions per concurrency level")
	cmd.Flags().String("service-cmd", "", "Command that starts the service under test")
	cmd.Flags().Int("workers", 0, "Worker count passed to the service and used in log file names")
	cmd.Flags().Bool("no-service", false, "Probe an externally managed service instead of starting one")
	cmd.Flags().Bool("warmup", false, "Force the warm-up request on or off")
	cmd.Flags().StringP("output", "o", "", "Write the sweep result (.html, .json, or both without extension)")
	cmd.Flags().BoolP("quiet", "q", false, "Only report failures and the final verdict")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
}
