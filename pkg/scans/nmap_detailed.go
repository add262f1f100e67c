package scans

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/wueestry/autoscout/pkg/engine"
)

// DetailedNmap fingerprints services on the ports discovered by earlier
// scans. It only runs once open ports are known.
type DetailedNmap struct{}

// NewDetailedNmap creates the service fingerprinting scan.
func NewDetailedNmap() *DetailedNmap { return &DetailedNmap{} }

func (s *DetailedNmap) Name() string { return "detailed_nmap" }
func (s *DetailedNmap) Description() string {
	return "Service version detection and OS fingerprinting on open ports"
}
func (s *DetailedNmap) Timeout() time.Duration { return 15 * time.Minute }
func (s *DetailedNmap) RequiresRoot() bool     { return true }

func (s *DetailedNmap) CanRun(sc *engine.ScanContext) bool {
	if !sc.HasOpenPorts() {
		log.Info().Msg("no open ports found, skipping detailed scan")
		return false
	}
	return true
}

func (s *DetailedNmap) Execute(ctx context.Context, sc *engine.ScanContext) (*engine.Result, error) {
	openPorts := sc.OpenPorts()
	args := []string{
		"-sV",
		"-sC",
		"-O",
		"-p", portListArg(openPorts),
	}

	res, err := runNmap(ctx, sc, s.Name(), "nmap_detailed", args)
	if err != nil || !res.Success {
		return res, err
	}

	serviceCount := 0
	for _, raw := range cast.ToSlice(res.ParsedData["ports"]) {
		if entry, ok := raw.(map[string]any); ok && cast.ToString(entry["service_name"]) != "" {
			serviceCount++
		}
	}
	res.Metadata["service_count"] = serviceCount
	res.Metadata["scanned_ports"] = len(openPorts)
	return res, nil
}
