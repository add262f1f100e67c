package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubScan is a configurable scan for engine tests.
type stubScan struct {
	name         string
	timeout      time.Duration
	canRun       func(sc *ScanContext) bool
	execute      func(ctx context.Context, sc *ScanContext) (*Result, error)
	executeCalls atomic.Int32
}

func (s *stubScan) Name() string        { return s.name }
func (s *stubScan) Description() string { return "stub scan" }
func (s *stubScan) Timeout() time.Duration {
	if s.timeout > 0 {
		return s.timeout
	}
	return 5 * time.Second
}
func (s *stubScan) RequiresRoot() bool { return false }

func (s *stubScan) CanRun(sc *ScanContext) bool {
	if s.canRun != nil {
		return s.canRun(sc)
	}
	return true
}

func (s *stubScan) Execute(ctx context.Context, sc *ScanContext) (*Result, error) {
	s.executeCalls.Add(1)
	if s.execute != nil {
		res, err := s.execute(ctx, sc)
		if res != nil && res.ScanName == "" {
			res.ScanName = s.name
		}
		return res, err
	}
	now := time.Now()
	return &Result{ScanName: s.name, Success: true, StartTime: now, EndTime: now}, nil
}

// successAfter returns an execute func that sleeps, then succeeds. The
// sleep respects cancellation so timed-out scans exit promptly.
func successAfter(delay time.Duration, parsed map[string]any) func(context.Context, *ScanContext) (*Result, error) {
	return func(ctx context.Context, sc *ScanContext) (*Result, error) {
		start := time.Now()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &Result{
			Success:    true,
			StartTime:  start,
			EndTime:    time.Now(),
			ParsedData: parsed,
		}, nil
	}
}

func newTestContext(t *testing.T) *ScanContext {
	t.Helper()
	sc, err := NewScanContext("192.0.2.10", t.TempDir())
	require.NoError(t, err)
	return sc
}

func TestExecutorSkipsWhenCanRunFalse(t *testing.T) {
	sc := newTestContext(t)
	scan := &stubScan{
		name:   "gated",
		canRun: func(*ScanContext) bool { return false },
	}

	res := NewExecutor().Run(context.Background(), scan, sc)

	assert.True(t, res.Success)
	assert.True(t, res.Skipped())
	assert.Equal(t, time.Duration(0), res.Duration())
	assert.Equal(t, int32(0), scan.executeCalls.Load(), "execute must not be invoked for a skipped scan")

	recorded, ok := sc.Result("gated")
	require.True(t, ok, "skipped scans still get their slot in the context")
	assert.Same(t, res, recorded)
}

func TestExecutorCapturesExecuteError(t *testing.T) {
	sc := newTestContext(t)
	scan := &stubScan{
		name: "broken",
		execute: func(context.Context, *ScanContext) (*Result, error) {
			return nil, errors.New("connection refused")
		},
	}

	res := NewExecutor().Run(context.Background(), scan, sc)

	assert.False(t, res.Success)
	assert.Equal(t, "connection refused", res.Error)
	assert.True(t, sc.HasResult("broken"))
}

func TestExecutorCapturesPanic(t *testing.T) {
	sc := newTestContext(t)
	scan := &stubScan{
		name: "panicky",
		execute: func(context.Context, *ScanContext) (*Result, error) {
			panic("index out of range")
		},
	}

	res := NewExecutor().Run(context.Background(), scan, sc)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "index out of range")
	assert.True(t, sc.HasResult("panicky"))
}

func TestExecutorNilResultIsFailure(t *testing.T) {
	sc := newTestContext(t)
	scan := &stubScan{
		name: "empty",
		execute: func(context.Context, *ScanContext) (*Result, error) {
			return nil, nil
		},
	}

	res := NewExecutor().Run(context.Background(), scan, sc)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestExecutorTimeout(t *testing.T) {
	sc := newTestContext(t)
	const timeout = 100 * time.Millisecond
	scan := &stubScan{
		name:    "slow",
		timeout: timeout,
		execute: func(ctx context.Context, _ *ScanContext) (*Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	start := time.Now()
	res := NewExecutor().Run(context.Background(), scan, sc)
	elapsed := time.Since(start)

	assert.False(t, res.Success)
	assert.True(t, res.TimedOut())
	assert.Contains(t, res.Error, "timed out")
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+900*time.Millisecond, "timeout must fire within a bounded margin")
	assert.True(t, sc.HasResult("slow"))
}

func TestExecutorTimeoutWhenScanReturnsContextError(t *testing.T) {
	// A scan that watches its context races the executor's own deadline
	// select. Whichever side wins, the result must classify as a timeout.
	for i := 0; i < 10; i++ {
		sc := newTestContext(t)
		scan := &stubScan{
			name:    "racy",
			timeout: 20 * time.Millisecond,
			execute: func(ctx context.Context, _ *ScanContext) (*Result, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}

		res := NewExecutor().Run(context.Background(), scan, sc)

		assert.False(t, res.Success)
		assert.True(t, res.TimedOut())
		assert.Contains(t, res.Error, "timed out")
	}
}

func TestExecutorParentCancellation(t *testing.T) {
	sc := newTestContext(t)
	scan := &stubScan{
		name: "cancelled",
		execute: func(ctx context.Context, _ *ScanContext) (*Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res := NewExecutor().Run(ctx, scan, sc)

	assert.False(t, res.Success)
	assert.False(t, res.TimedOut(), "parent cancellation is not a timeout")
	assert.True(t, sc.HasResult("cancelled"))
}

func TestRunBatchPreservesInputOrder(t *testing.T) {
	sc := newTestContext(t)
	scans := []Scan{
		&stubScan{name: "a", execute: successAfter(150*time.Millisecond, nil)},
		&stubScan{name: "b", execute: successAfter(30*time.Millisecond, nil)},
		&stubScan{name: "c", execute: successAfter(80*time.Millisecond, nil)},
	}

	start := time.Now()
	results := NewExecutor().RunBatch(context.Background(), scans, sc)
	elapsed := time.Since(start)

	require.Len(t, results, 3)
	// Input order, regardless of completion order.
	assert.Equal(t, "a", results[0].ScanName)
	assert.Equal(t, "b", results[1].ScanName)
	assert.Equal(t, "c", results[2].ScanName)

	// Concurrent: roughly the max of the three, nowhere near the sum.
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, 260*time.Millisecond)
}

func TestRunBatchFailureDoesNotAffectSiblings(t *testing.T) {
	sc := newTestContext(t)
	scans := []Scan{
		&stubScan{name: "good", execute: successAfter(50*time.Millisecond, nil)},
		&stubScan{name: "bad", execute: func(context.Context, *ScanContext) (*Result, error) {
			return nil, errors.New("boom")
		}},
		&stubScan{name: "slowpoke", timeout: 50 * time.Millisecond, execute: func(ctx context.Context, _ *ScanContext) (*Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	}

	results := NewExecutor().RunBatch(context.Background(), scans, sc)

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].TimedOut())
	for _, name := range []string{"good", "bad", "slowpoke"} {
		assert.True(t, sc.HasResult(name))
	}
}
