package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowStagesRunInOrder(t *testing.T) {
	sc := newTestContext(t)

	wf := NewWorkflow("staged", sc).
		AddStage("first", &stubScan{name: "one"}).
		AddStage("second", &stubScan{name: "two"}, &stubScan{name: "three"})

	results, err := wf.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "one", results[0].ScanName)
	assert.Equal(t, "two", results[1].ScanName)
	assert.Equal(t, "three", results[2].ScanName)
	assert.Equal(t, []string{"one", "two", "three"}, resultNames(sc))
}

// Discovery feeds detail which feeds assessment: the classic pipeline.
// Stage one publishes ports, later stages gate on them through CanRun.
func TestWorkflowPipelineGating(t *testing.T) {
	sc := newTestContext(t)

	discovery := &stubScan{
		name: "port_discovery",
		execute: func(_ context.Context, _ *ScanContext) (*Result, error) {
			now := time.Now()
			return &Result{
				ScanName:  "port_discovery",
				Success:   true,
				StartTime: now,
				EndTime:   now,
				ParsedData: map[string]any{
					"ports": []any{22, 80, 443},
				},
			}, nil
		},
	}
	detail := &stubScan{
		name:   "service_detail",
		canRun: func(sc *ScanContext) bool { return sc.HasOpenPorts() },
	}
	assess := &stubScan{
		name:   "assessment",
		canRun: func(sc *ScanContext) bool { return len(sc.OpenPorts()) >= 3 },
	}

	wf := NewWorkflow("pipeline", sc).
		AddStage("discover", discovery).
		AddStage("detail", detail).
		AddStage("assess", assess)

	results, err := wf.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.True(t, res.Success)
		assert.False(t, res.Skipped(), "all gates should open with three ports found")
	}
	assert.Equal(t, int32(1), detail.executeCalls.Load())
	assert.Equal(t, int32(1), assess.executeCalls.Load())
}

func TestWorkflowGatesSkipWithoutPorts(t *testing.T) {
	sc := newTestContext(t)

	discovery := &stubScan{name: "port_discovery"} // no ports in parsed data
	detail := &stubScan{
		name:   "service_detail",
		canRun: func(sc *ScanContext) bool { return sc.HasOpenPorts() },
	}

	wf := NewWorkflow("gated", sc).
		AddStage("discover", discovery).
		AddStage("detail", detail)

	results, err := wf.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[1].Skipped())
	assert.Equal(t, int32(0), detail.executeCalls.Load())
}

func TestWorkflowCancelledBetweenStages(t *testing.T) {
	sc := newTestContext(t)
	second := &stubScan{name: "never"}

	ctx, cancel := context.WithCancel(context.Background())
	first := &stubScan{
		name: "canceller",
		execute: func(_ context.Context, _ *ScanContext) (*Result, error) {
			cancel()
			now := time.Now()
			return &Result{ScanName: "canceller", Success: true, StartTime: now, EndTime: now}, nil
		},
	}

	wf := NewWorkflow("aborted", sc).
		AddStage("first", first).
		AddStage("second", second)

	results, err := wf.Run(ctx)
	assert.Error(t, err)
	assert.Len(t, results, 1, "later stages must not start after cancellation")
	assert.Equal(t, int32(0), second.executeCalls.Load())
}

func TestWorkflowEmpty(t *testing.T) {
	sc := newTestContext(t)
	results, err := NewWorkflow("empty", sc).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func resultNames(sc *ScanContext) []string {
	var names []string
	for _, res := range sc.Results() {
		names = append(names, res.ScanName)
	}
	return names
}
