// Package storage persists terminal scan contexts as JSON snapshots and
// human-readable summaries. The snapshot shape round-trips losslessly for
// JSON value types (string, number, boolean, null, nested maps and
// sequences).
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"github.com/wueestry/autoscout/pkg/engine"
)

// ResultRecord is the serialized form of one engine.Result.
type ResultRecord struct {
	ScanName        string         `json:"scan_name"`
	Success         bool           `json:"success"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	DurationSeconds float64        `json:"duration_seconds"`
	RawOutput       string         `json:"raw_output"`
	ParsedData      map[string]any `json:"parsed_data"`
	Error           string         `json:"error,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Snapshot is the serialized form of a terminal scan context.
type Snapshot struct {
	Target      string                  `json:"target"`
	OutputDir   string                  `json:"output_dir"`
	Results     map[string]ResultRecord `json:"results"`
	ResultOrder []string                `json:"result_order"`
	Metadata    map[string]any          `json:"metadata,omitempty"`
}

// Capture converts a scan context into its persistence shape.
func Capture(sc *engine.ScanContext) Snapshot {
	results := sc.Results()
	snap := Snapshot{
		Target:      sc.TargetIP,
		OutputDir:   sc.OutputDir,
		Results:     make(map[string]ResultRecord, len(results)),
		ResultOrder: make([]string, 0, len(results)),
		Metadata:    sc.MetadataMap(),
	}
	for _, r := range results {
		snap.Results[r.ScanName] = recordFromResult(r)
		snap.ResultOrder = append(snap.ResultOrder, r.ScanName)
	}
	return snap
}

func recordFromResult(r *engine.Result) ResultRecord {
	return ResultRecord{
		ScanName:        r.ScanName,
		Success:         r.Success,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationSeconds: r.Duration().Seconds(),
		RawOutput:       r.RawOutput,
		ParsedData:      r.ParsedData,
		Error:           r.Error,
		Metadata:        r.Metadata,
	}
}

// ToResult converts a record back into an engine.Result.
func (rec ResultRecord) ToResult() *engine.Result {
	return &engine.Result{
		ScanName:   rec.ScanName,
		Success:    rec.Success,
		StartTime:  rec.StartTime,
		EndTime:    rec.EndTime,
		RawOutput:  rec.RawOutput,
		ParsedData: rec.ParsedData,
		Error:      rec.Error,
		Metadata:   rec.Metadata,
	}
}

// OrderedResults returns the snapshot's results in their recorded
// completion order.
func (s Snapshot) OrderedResults() []*engine.Result {
	out := make([]*engine.Result, 0, len(s.ResultOrder))
	for _, name := range s.ResultOrder {
		if rec, ok := s.Results[name]; ok {
			out = append(out, rec.ToResult())
		}
	}
	return out
}

// Save writes the context snapshot as JSON into the run's output
// directory. A file lock guards against concurrent invocations writing
// the same output directory.
func Save(sc *engine.ScanContext, filename string) (string, error) {
	if filename == "" {
		filename = "results.json"
	}
	path := filepath.Join(sc.OutputDir, filename)

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("lock results file: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to release results lock")
		}
	}()

	data, err := json.MarshalIndent(Capture(sc), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}

	log.Info().Str("path", path).Msg("results saved")
	return path, nil
}

// Load reads a snapshot previously written by Save.
func Load(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("read results: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parse results: %w", err)
	}
	return snap, nil
}

// SaveSummary writes a plain-text run summary next to the JSON snapshot.
func SaveSummary(sc *engine.ScanContext, filename string) (string, error) {
	if filename == "" {
		filename = "summary.txt"
	}
	path := filepath.Join(sc.OutputDir, filename)

	var b strings.Builder
	divider := strings.Repeat("=", 70)
	b.WriteString(divider + "\n")
	b.WriteString("AUTOSCOUT SCAN SUMMARY\n")
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "Target: %s\n", sc.TargetIP)
	fmt.Fprintf(&b, "Output Directory: %s\n", sc.OutputDir)
	fmt.Fprintf(&b, "Run ID: %s\n\n", sc.RunID())

	results := sc.Results()
	fmt.Fprintf(&b, "Completed Scans: %d/%d\n\n", len(sc.SuccessfulResults()), len(results))
	for _, r := range results {
		status := "FAIL"
		if r.Success {
			status = "OK"
		}
		fmt.Fprintf(&b, "[%s] %s: %.2fs\n", status, r.ScanName, r.Duration().Seconds())
		if r.Error != "" {
			fmt.Fprintf(&b, "      error: %s\n", r.Error)
		}
	}

	if openPorts := sc.OpenPorts(); len(openPorts) > 0 {
		fmt.Fprintf(&b, "\nOpen Ports (%d):\n  %s\n", len(openPorts), joinInts(openPorts))
	}
	if services := sc.Services(); len(services) > 0 {
		fmt.Fprintf(&b, "\nDetected Services (%d):\n", len(services))
		ports := make([]int, 0, len(services))
		for port := range services {
			ports = append(ports, port)
		}
		sort.Ints(ports)
		for _, port := range ports {
			fmt.Fprintf(&b, "  %5d - %s\n", port, services[port])
		}
	}
	b.WriteString("\n" + divider + "\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	log.Info().Str("path", path).Msg("summary saved")
	return path, nil
}

func joinInts(values []int) string {
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(strs, ", ")
}
