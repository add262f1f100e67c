package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wueestry/autoscout/pkg/engine"
)

// Load reads and validates a single definition file. YAML and JSON are
// supported, selected by extension.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition file: %w", err)
	}

	var def Definition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse YAML definition: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse JSON definition: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported definition extension: %s (must be .yaml, .yml, or .json)", filepath.Ext(path))
	}

	def.FilePath = path
	def.LoadedAt = time.Now()

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadScan adapts Load to the registry's DiscoverFunc: one definition
// file in, one scan factory out.
func LoadScan(path string) (engine.Factory, error) {
	def, err := Load(path)
	if err != nil {
		return nil, err
	}
	return func() engine.Scan { return NewCommandScan(def) }, nil
}
