package engine

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// ScanContext carries state and results through a workflow run. It is owned
// by exactly one Workflow for the lifetime of one run; scans read from it
// freely but only the Executor writes results into it.
type ScanContext struct {
	TargetIP  string
	OutputDir string

	mu       sync.RWMutex
	results  map[string]*Result
	order    []string // completion order
	metadata map[string]any
}

// NewScanContext creates a context for a single run and ensures the output
// directory exists. A fresh run ID is stamped into the metadata.
func NewScanContext(target, outputDir string) (*ScanContext, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", outputDir, err)
	}
	return &ScanContext{
		TargetIP:  target,
		OutputDir: outputDir,
		results:   make(map[string]*Result),
		metadata:  map[string]any{"run_id": uuid.NewString()},
	}, nil
}

// RunID returns the identifier assigned to this run.
func (c *ScanContext) RunID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cast.ToString(c.metadata["run_id"])
}

// RecordResult stores a result under its scan name. Completion order is
// preserved; recording under an existing name overwrites (the Registry
// prevents duplicate names at registration time).
func (c *ScanContext) RecordResult(r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.results[r.ScanName]; !exists {
		c.order = append(c.order, r.ScanName)
	}
	c.results[r.ScanName] = r
}

// Result returns the result of a specific scan, if recorded.
func (c *ScanContext) Result(scanName string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[scanName]
	return r, ok
}

// HasResult reports whether a scan has been executed.
func (c *ScanContext) HasResult(scanName string) bool {
	_, ok := c.Result(scanName)
	return ok
}

// Results returns all recorded results in completion order.
func (c *ScanContext) Results() []*Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Result, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.results[name])
	}
	return out
}

// SuccessfulResults returns recorded results with success=true, in
// completion order.
func (c *ScanContext) SuccessfulResults() []*Result {
	var out []*Result
	for _, r := range c.Results() {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

// SetMetadata stores an annotation on the context.
func (c *ScanContext) SetMetadata(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

// Metadata returns an annotation previously set on the context.
func (c *ScanContext) Metadata(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.metadata[key]
	return v, ok
}

// MetadataBool returns a metadata value coerced to bool, or false when the
// key is absent.
func (c *ScanContext) MetadataBool(key string) bool {
	v, ok := c.Metadata(key)
	return ok && cast.ToBool(v)
}

// MetadataMap returns a shallow copy of all metadata.
func (c *ScanContext) MetadataMap() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

// The accessors below derive facts from the parsed data of successful
// results. Nothing is cached: they always reflect the latest completed
// scans. Port entries live under the "ports" key and are either bare
// numbers or maps carrying at least "port_id" and optionally
// "service_name".

// HasOpenPorts reports whether any recorded result discovered open ports.
func (c *ScanContext) HasOpenPorts() bool {
	return len(c.OpenPorts()) > 0
}

// OpenPorts returns the sorted union of all discovered open ports.
func (c *ScanContext) OpenPorts() []int {
	seen := make(map[int]struct{})
	c.eachPortEntry(func(port int, _ map[string]any) {
		seen[port] = struct{}{}
	})
	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}

// Services returns a port to service name mapping. Ports without an
// identified service map to "unknown".
func (c *ScanContext) Services() map[int]string {
	services := make(map[int]string)
	c.eachPortEntry(func(port int, entry map[string]any) {
		name := "unknown"
		if entry != nil {
			if s := cast.ToString(entry["service_name"]); s != "" {
				name = s
			}
		}
		// Keep an already-identified service over "unknown" from a
		// less detailed scan.
		if existing, ok := services[port]; ok && existing != "unknown" && name == "unknown" {
			return
		}
		services[port] = name
	})
	return services
}

// CPEs returns a port to CPE identifier mapping aggregated from parsed
// port entries, preserving discovery order per port without duplicates.
func (c *ScanContext) CPEs() map[int][]string {
	out := make(map[int][]string)
	c.eachPortEntry(func(port int, entry map[string]any) {
		if entry == nil {
			return
		}
		for _, cpe := range cast.ToStringSlice(entry["cpes"]) {
			if cpe == "" || slices.Contains(out[port], cpe) {
				continue
			}
			out[port] = append(out[port], cpe)
		}
	})
	return out
}

// PortsByService returns sorted ports whose service name contains the
// given pattern (case-insensitive).
func (c *ScanContext) PortsByService(pattern string) []int {
	pattern = strings.ToLower(pattern)
	var ports []int
	for port, service := range c.Services() {
		if strings.Contains(strings.ToLower(service), pattern) {
			ports = append(ports, port)
		}
	}
	sort.Ints(ports)
	return ports
}

// eachPortEntry walks every port entry in the parsed data of successful
// results. The entry map is nil for bare numeric entries.
func (c *ScanContext) eachPortEntry(fn func(port int, entry map[string]any)) {
	for _, r := range c.Results() {
		if !r.Success || r.ParsedData == nil {
			continue
		}
		list, err := cast.ToSliceE(r.ParsedData["ports"])
		if err != nil {
			continue
		}
		for _, raw := range list {
			if entry, ok := raw.(map[string]any); ok {
				if port, err := cast.ToIntE(entry["port_id"]); err == nil && port > 0 {
					fn(port, entry)
				}
				continue
			}
			if port, err := cast.ToIntE(raw); err == nil && port > 0 {
				fn(port, nil)
			}
		}
	}
}
