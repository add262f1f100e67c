package scans

import (
	"context"
	"time"

	"github.com/wueestry/autoscout/pkg/engine"
)

// QuickNmap is a fast TCP SYN discovery scan across all ports. It is the
// usual first stage of a workflow; later scans condition on the open
// ports it finds.
type QuickNmap struct{}

// NewQuickNmap creates the quick discovery scan.
func NewQuickNmap() *QuickNmap { return &QuickNmap{} }

func (s *QuickNmap) Name() string        { return "quick_nmap" }
func (s *QuickNmap) Description() string { return "Fast TCP SYN scan of all ports (1-65535)" }
func (s *QuickNmap) Timeout() time.Duration {
	return 10 * time.Minute
}

// RequiresRoot is true because SYN scans need raw socket access.
func (s *QuickNmap) RequiresRoot() bool { return true }

func (s *QuickNmap) CanRun(*engine.ScanContext) bool { return true }

func (s *QuickNmap) Execute(ctx context.Context, sc *engine.ScanContext) (*engine.Result, error) {
	args := []string{
		"-sS",
		"-Pn",
		"-p-",
		"--max-retries", "3",
		"--min-rate", "1000",
	}
	res, err := runNmap(ctx, sc, s.Name(), "nmap_quick", args)
	if err != nil || !res.Success {
		return res, err
	}
	res.Metadata["port_count"] = countPorts(res.ParsedData)
	return res, nil
}
