package scans

import "github.com/wueestry/autoscout/pkg/engine"

// RegisterBuiltins registers every builtin scan into the given registry.
// This is the single bootstrap point: nothing registers itself through
// package import side effects.
func RegisterBuiltins(r *engine.Registry) error {
	factories := []engine.Factory{
		func() engine.Scan { return NewPingProbe() },
		func() engine.Scan { return NewQuickNmap() },
		func() engine.Scan { return NewDetailedNmap() },
		func() engine.Scan { return NewVulnNmap() },
	}
	for _, f := range factories {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}
