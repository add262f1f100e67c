package scans

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wueestry/autoscout/pkg/engine"
)

// ForceVulnScanKey is the context metadata flag that overrides the vuln
// scan's minimum-ports condition.
const ForceVulnScanKey = "force_vuln_scan"

// vulnMinOpenPorts is the threshold below which the vuln scripts are not
// worth their runtime unless explicitly forced.
const vulnMinOpenPorts = 3

// VulnNmap runs nmap's vulnerability detection scripts against the
// discovered open ports.
type VulnNmap struct{}

// NewVulnNmap creates the vulnerability assessment scan.
func NewVulnNmap() *VulnNmap { return &VulnNmap{} }

func (s *VulnNmap) Name() string { return "vuln_nmap" }
func (s *VulnNmap) Description() string {
	return "Run Nmap vulnerability detection scripts on open ports"
}

// Timeout is generous because the vuln script set can be slow.
func (s *VulnNmap) Timeout() time.Duration { return 30 * time.Minute }
func (s *VulnNmap) RequiresRoot() bool     { return true }

func (s *VulnNmap) CanRun(sc *engine.ScanContext) bool {
	openPorts := sc.OpenPorts()
	if len(openPorts) == 0 {
		log.Info().Msg("no open ports found, skipping vulnerability scan")
		return false
	}
	if len(openPorts) < vulnMinOpenPorts {
		if sc.MetadataBool(ForceVulnScanKey) {
			return true
		}
		log.Info().Int("open_ports", len(openPorts)).Msg("too few open ports, skipping vulnerability scan")
		return false
	}
	return true
}

func (s *VulnNmap) Execute(ctx context.Context, sc *engine.ScanContext) (*engine.Result, error) {
	openPorts := sc.OpenPorts()
	log.Warn().Msg("vulnerability scan can take a long time")

	args := []string{
		"-p", portListArg(openPorts),
		"--script", "vuln",
	}

	res, err := runNmap(ctx, sc, s.Name(), "nmap_vuln", args)
	if err != nil || !res.Success {
		return res, err
	}

	vulnPorts := 0
	if list, ok := res.ParsedData["ports"].([]any); ok {
		for _, raw := range list {
			if entry, ok := raw.(map[string]any); ok {
				if _, hasScripts := entry["scripts"]; hasScripts {
					vulnPorts++
				}
			}
		}
	}
	res.Metadata["vuln_ports"] = vulnPorts
	res.Metadata["scanned_ports"] = len(openPorts)
	return res, nil
}
