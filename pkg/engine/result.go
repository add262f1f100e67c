package engine

import "time"

// Result is the outcome of one scan execution. Results are created by a
// scan's Execute method or synthesized by the Executor (skip, timeout,
// failure) and must not be modified after construction.
type Result struct {
	ScanName   string
	Success    bool
	StartTime  time.Time
	EndTime    time.Time
	RawOutput  string
	ParsedData map[string]any
	Error      string
	Metadata   map[string]any
}

// Duration returns how long the scan ran.
func (r *Result) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Skipped reports whether the result was synthesized for a scan whose
// CanRun predicate returned false.
func (r *Result) Skipped() bool {
	if r.Metadata == nil {
		return false
	}
	skipped, _ := r.Metadata["skipped"].(bool)
	return skipped
}

// TimedOut reports whether the result was synthesized for a scan that
// exceeded its deadline.
func (r *Result) TimedOut() bool {
	if r.Metadata == nil {
		return false
	}
	timedOut, _ := r.Metadata["timeout"].(bool)
	return timedOut
}

func skippedResult(scanName string) *Result {
	now := time.Now()
	return &Result{
		ScanName:  scanName,
		Success:   true,
		StartTime: now,
		EndTime:   now,
		Metadata:  map[string]any{"skipped": true},
	}
}

func failureResult(scanName string, start, end time.Time, errMsg string) *Result {
	return &Result{
		ScanName:  scanName,
		Success:   false,
		StartTime: start,
		EndTime:   end,
		Error:     errMsg,
	}
}

func timeoutResult(scanName string, start, end time.Time, timeout time.Duration) *Result {
	return &Result{
		ScanName:  scanName,
		Success:   false,
		StartTime: start,
		EndTime:   end,
		Error:     "scan timed out after " + timeout.String(),
		Metadata:  map[string]any{"timeout": true},
	}
}
