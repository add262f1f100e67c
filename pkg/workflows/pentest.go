// Package workflows provides ready-made stage sequences built from the
// builtin scans.
package workflows

import (
	"github.com/wueestry/autoscout/pkg/engine"
	"github.com/wueestry/autoscout/pkg/scans"
)

// Pentest is the standard reconnaissance sequence: reachability probe and
// port discovery run concurrently, then service fingerprinting, then
// vulnerability assessment. The later stages decide for themselves
// whether the discovered ports justify running.
func Pentest(sc *engine.ScanContext) *engine.Workflow {
	return engine.NewWorkflow("pentest", sc).
		AddStage("discover", scans.NewPingProbe(), scans.NewQuickNmap()).
		AddStage("fingerprint", scans.NewDetailedNmap()).
		AddStage("assess", scans.NewVulnNmap())
}

// Quick runs only the discovery stage.
func Quick(sc *engine.ScanContext) *engine.Workflow {
	return engine.NewWorkflow("quick", sc).
		AddStage("discover", scans.NewQuickNmap())
}
