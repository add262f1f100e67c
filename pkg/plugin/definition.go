// Package plugin loads declarative scan definitions from disk. A
// definition describes an external command to run against the target and
// the conditions under which it should run; each one is registered into
// the scan registry as a CommandScan.
package plugin

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"

	"github.com/wueestry/autoscout/pkg/engine"
)

var validate = validator.New()

// RunConditions gate a definition's execution on accumulated findings.
// Zero values impose no condition.
type RunConditions struct {
	// MinOpenPorts requires at least this many open ports discovered by
	// earlier scans.
	MinOpenPorts int `yaml:"min_open_ports" json:"min_open_ports" validate:"gte=0"`

	// Services requires at least one discovered service whose name
	// matches one of the given patterns (substring, case-insensitive).
	Services []string `yaml:"services" json:"services"`

	// MetadataFlag names a context metadata key that must be truthy.
	MetadataFlag string `yaml:"metadata_flag" json:"metadata_flag"`
}

// Definition is one external scan definition file.
type Definition struct {
	Name         string        `yaml:"name" json:"name" validate:"required"`
	Version      string        `yaml:"version" json:"version" validate:"required"`
	Description  string        `yaml:"description" json:"description"`
	Timeout      string        `yaml:"timeout" json:"timeout"`
	RequiresRoot bool          `yaml:"requires_root" json:"requires_root"`
	Command      []string      `yaml:"command" json:"command" validate:"required,min=1"`
	Requires     RunConditions `yaml:"requires" json:"requires"`

	// Parse selects how stdout becomes parsed data: "none" (default)
	// stores nothing beyond the exit code, "json" decodes stdout as a
	// JSON object.
	Parse string `yaml:"parse" json:"parse" validate:"omitempty,oneof=none json"`

	// Set by the loader.
	FilePath string    `yaml:"-" json:"-"`
	LoadedAt time.Time `yaml:"-" json:"-"`

	timeout time.Duration
}

// Validate checks required fields, the semver version string, and the
// timeout format.
func (d *Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid definition: %w", err)
	}
	if _, err := semver.NewVersion(d.Version); err != nil {
		return fmt.Errorf("invalid version %q: %w", d.Version, err)
	}
	d.timeout = engine.DefaultTimeout
	if d.Timeout != "" {
		dur, err := time.ParseDuration(d.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", d.Timeout, err)
		}
		if dur <= 0 {
			return fmt.Errorf("invalid timeout %q: must be positive", d.Timeout)
		}
		d.timeout = dur
	}
	return nil
}

// EffectiveTimeout returns the parsed timeout, defaulting to
// engine.DefaultTimeout. Only meaningful after Validate.
func (d *Definition) EffectiveTimeout() time.Duration {
	if d.timeout <= 0 {
		return engine.DefaultTimeout
	}
	return d.timeout
}
