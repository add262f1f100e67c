// Package config loads application configuration with koanf: hardcoded
// defaults, then an optional YAML config file, then command-line flags,
// in increasing precedence.
package config

import (
	"fmt"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config is the full application configuration.
type Config struct {
	Log  LogConfig  `koanf:"log"`
	Scan ScanConfig `koanf:"scan"`
}

// LogConfig controls logging behavior.
type LogConfig struct {
	Level string `koanf:"level"`
}

// ScanConfig carries run defaults for the scan command.
type ScanConfig struct {
	OutputDir string `koanf:"output_dir"`
	ScansDir  string `koanf:"scans_dir"`
	Workflow  string `koanf:"workflow"`
	ForceVuln bool   `koanf:"force_vuln"`
	CVELookup bool   `koanf:"cve_lookup"`
	NVDAPIKey string `koanf:"nvd_api_key"`
}

// Default returns the baseline configuration used when no other source
// overrides a value.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "warn"},
		Scan: ScanConfig{
			OutputDir: "./output",
			Workflow:  "pentest",
		},
	}
}

func defaultAsMap() map[string]any {
	def := Default()
	return map[string]any{
		"log.level":        def.Log.Level,
		"scan.output_dir":  def.Scan.OutputDir,
		"scan.scans_dir":   def.Scan.ScansDir,
		"scan.workflow":    def.Scan.Workflow,
		"scan.force_vuln":  def.Scan.ForceVuln,
		"scan.cve_lookup":  def.Scan.CVELookup,
		"scan.nvd_api_key": def.Scan.NVDAPIKey,
	}
}

// Manager handles loading and accessing configuration.
type Manager struct {
	mu      sync.RWMutex
	koanf   *koanf.Koanf
	current Config
}

// NewManager creates a config manager holding the defaults.
func NewManager() *Manager {
	return &Manager{
		koanf:   koanf.New("."),
		current: Default(),
	}
}

// Load merges defaults, the optional config file, and flags into the
// current configuration.
func (m *Manager) Load(flags *pflag.FlagSet, configFile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.koanf.Load(confmap.Provider(defaultAsMap(), "."), nil); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}

	if configFile != "" {
		if err := m.koanf.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}

	if flags != nil {
		if err := m.koanf.Load(posflag.Provider(flags, ".", m.koanf), nil); err != nil {
			return fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := m.koanf.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	m.current = cfg
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}
