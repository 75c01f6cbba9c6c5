package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sevengram/drover/internal/loadgen"
	"github.com/sevengram/drover/internal/output"
)

// LogFile returns the deterministic per-run report path:
// <dir>/<endpoint>_<workers>_<concurrency>_<requests>.log. Repeated
// runs with identical parameters append to the same file.
func LogFile(dir, endpoint string, workers, concurrency, requests int) string {
	name := strings.ReplaceAll(endpoint, "/", "_")
	return filepath.Join(dir, fmt.Sprintf("%s_%d_%d_%d.log", name, workers, concurrency, requests))
}

func ensureLogDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// appendReport writes one report block to the per-run log file.
func (d *Driver) appendReport(path string, result *loadgen.Result) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if err := output.BenchReport(file, result); err != nil {
		return fmt.Errorf("failed to append report: %w", err)
	}
	return nil
}

// recordOutcome appends the iteration as one JSON line to the outcome
// file and summarizes it through the structured logger. The time
// series is trimmed from the line; the HTML report carries it.
func (d *Driver) recordOutcome(iter *IterationResult) {
	trimmed := *iter
	if iter.Load != nil {
		load := *iter.Load
		load.TimeSeries = nil
		trimmed.Load = &load
	}

	line, err := json.Marshal(&trimmed)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Error encoding iteration outcome")
		return
	}

	path := d.cfg.Log.OutcomeFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.cfg.Log.Dir, path)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.WithFields(log.Fields{"path": path, "error": err}).Error("Error opening outcome file")
		return
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		log.WithFields(log.Fields{"path": path, "error": err}).Error("Error writing outcome file")
	}

	log.WithFields(log.Fields{
		"endpoint":    iter.Endpoint,
		"concurrency": iter.Concurrency,
		"repetition":  iter.Repetition,
		"outcome":     iter.Outcome,
	}).Info("Iteration finished")
}
