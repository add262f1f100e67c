package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateScan indicates two scans were registered under one name.
	ErrDuplicateScan = errors.New("scan already registered")

	// ErrScanNotFound indicates a lookup for an unregistered scan name.
	ErrScanNotFound = errors.New("scan not found")

	// ErrNilFactory indicates a registration attempt with a nil factory
	// or a factory returning nil.
	ErrNilFactory = errors.New("scan factory returned nil")
)

// NewDuplicateScanError wraps ErrDuplicateScan with the offending name.
func NewDuplicateScanError(name string) error {
	return fmt.Errorf("%w: %s", ErrDuplicateScan, name)
}

// NewScanNotFoundError wraps ErrScanNotFound with the requested name.
func NewScanNotFoundError(name string) error {
	return fmt.Errorf("%w: %s", ErrScanNotFound, name)
}

// ExitCode maps registry and discovery errors to CLI exit codes. Scan
// failures never surface here; they are recorded as results and the run
// continues.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrScanNotFound):
		return 4
	case errors.Is(err, ErrDuplicateScan):
		return 2
	default:
		return 1
	}
}
