package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Executor runs scans against a context with timeout enforcement and
// uniform failure capture. It guarantees exactly one result is recorded
// per invocation: failures, panics, and timeouts all become results and
// never propagate to the caller.
type Executor struct{}

// NewExecutor creates an Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

type outcome struct {
	result *Result
	err    error
}

// Run executes one scan. The scan's CanRun predicate is consulted first;
// a false answer yields a skipped result with zero duration and Execute is
// never invoked. Otherwise Execute runs under a deadline of the scan's
// timeout. On every path the produced result is recorded into the scan
// context before Run returns.
func (e *Executor) Run(ctx context.Context, scan Scan, sc *ScanContext) *Result {
	logger := log.With().Str("scan", scan.Name()).Logger()

	if !scan.CanRun(sc) {
		logger.Info().Msg("scan skipped, conditions not met")
		res := skippedResult(scan.Name())
		sc.RecordResult(res)
		return res
	}

	timeout := scan.Timeout()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger.Info().Dur("timeout", timeout).Msg("executing scan")
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("scan panicked: %v", p)}
			}
		}()
		res, err := scan.Execute(runCtx, sc)
		done <- outcome{result: res, err: err}
	}()

	var res *Result
	select {
	case out := <-done:
		end := time.Now()
		switch {
		case out.err != nil:
			// A scan may observe the deadline itself and hand back its
			// context error before this select sees runCtx.Done; that is
			// still a timeout.
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				logger.Error().Dur("timeout", timeout).Msg("scan timed out")
				res = timeoutResult(scan.Name(), start, end, timeout)
				break
			}
			logger.Error().Err(out.err).Msg("scan failed")
			res = failureResult(scan.Name(), start, end, out.err.Error())
		case out.result == nil:
			res = failureResult(scan.Name(), start, end, "scan returned no result")
		default:
			res = out.result
			if res.Success {
				logger.Info().Dur("duration", res.Duration()).Msg("scan completed")
			} else {
				logger.Warn().Dur("duration", res.Duration()).Str("error", res.Error).Msg("scan completed with errors")
			}
		}
	case <-runCtx.Done():
		// Cancelling runCtx is the best-effort termination signal for
		// in-flight work: scans launch external processes with
		// exec.CommandContext, which kills them on cancellation.
		end := time.Now()
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			logger.Error().Dur("timeout", timeout).Msg("scan timed out")
			res = timeoutResult(scan.Name(), start, end, timeout)
		} else {
			logger.Warn().Msg("scan cancelled")
			res = failureResult(scan.Name(), start, end, runCtx.Err().Error())
		}
	}

	sc.RecordResult(res)
	return res
}

// RunBatch executes the given scans concurrently against one shared
// context and waits for all of them. Each scan succeeds, fails, or times
// out independently of its siblings. The returned slice matches the order
// the scans were supplied, not their completion order.
func (e *Executor) RunBatch(ctx context.Context, scanList []Scan, sc *ScanContext) []*Result {
	if len(scanList) == 0 {
		return nil
	}

	log.Info().Int("count", len(scanList)).Msg("executing scans in parallel")

	results := make([]*Result, len(scanList))
	var wg sync.WaitGroup
	for i, s := range scanList {
		wg.Add(1)
		go func(i int, s Scan) {
			defer wg.Done()
			results[i] = e.Run(ctx, s, sc)
		}(i, s)
	}
	wg.Wait()

	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	log.Info().Int("successful", successful).Int("total", len(scanList)).Msg("parallel execution complete")
	return results
}
