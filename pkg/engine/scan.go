package engine

import (
	"context"
	"time"
)

// DefaultTimeout applies to scans that do not declare their own deadline.
const DefaultTimeout = 300 * time.Second

// Scan is the capability set every probe implements. The Executor depends
// only on this interface, never on a concrete scan type.
type Scan interface {
	// Name is the unique identifier, matching the scan's registry key.
	Name() string

	// Description is informational only.
	Description() string

	// Timeout governs Executor-enforced cancellation. Non-positive
	// values fall back to DefaultTimeout.
	Timeout() time.Duration

	// RequiresRoot is advisory; the framework does not verify privilege.
	RequiresRoot() bool

	// CanRun decides, from accumulated findings, whether the scan should
	// execute. It must be side-effect free. It is evaluated once,
	// immediately before execution.
	CanRun(sc *ScanContext) bool

	// Execute performs the probe. It may read the scan context freely
	// but must not record results into it; that is the Executor's job.
	// Returning an error is equivalent to returning a failed result.
	Execute(ctx context.Context, sc *ScanContext) (*Result, error)
}

// Info is the discovery/help surface for a registered scan.
type Info struct {
	Name         string
	Description  string
	Timeout      time.Duration
	RequiresRoot bool
}
