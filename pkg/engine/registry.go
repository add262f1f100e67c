package engine

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Factory creates a fresh scan instance. Registered factories are invoked
// for discovery surfaces and every time a workflow needs the scan.
type Factory func() Scan

// DiscoverFunc loads a single external scan definition file into a
// factory. It is supplied by the definition loader so the registry stays
// independent of any on-disk format.
type DiscoverFunc func(path string) (Factory, error)

// Registry is the catalog mapping scan names to factories. Builtins are
// registered through an explicit bootstrap call at process start; external
// definitions go through Discover. There is no implicit registration.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	order     []string // registration order
}

// NewRegistry creates an empty scan registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a scan factory, deriving the name from an instantiated
// scan. Registering a second scan under an existing name fails with
// ErrDuplicateScan and leaves the registry unchanged.
func (r *Registry) Register(factory Factory) error {
	if factory == nil {
		return ErrNilFactory
	}
	probe := factory()
	if probe == nil {
		return ErrNilFactory
	}
	name := probe.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return NewDuplicateScanError(name)
	}
	r.factories[name] = factory
	r.order = append(r.order, name)
	log.Debug().Str("scan", name).Msg("registered scan")
	return nil
}

// Get returns the factory for a scan name, or ErrScanNotFound.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	if !ok {
		return nil, NewScanNotFoundError(name)
	}
	return factory, nil
}

// Names returns all registered scan names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// List enumerates registered scans in registration order for help and
// discovery surfaces.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		s := r.factories[name]()
		infos = append(infos, Info{
			Name:         s.Name(),
			Description:  s.Description(),
			Timeout:      s.Timeout(),
			RequiresRoot: s.RequiresRoot(),
		})
	}
	return infos
}

// Len returns the number of registered scans.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Discover loads every eligible definition file under dir (non-recursive)
// and registers the scans it declares. A malformed file is logged and
// skipped; a duplicate name aborts the pass with the registry keeping all
// previously completed registrations. Returns the number of scans
// registered by this pass.
func (r *Registry) Discover(dir string, load DiscoverFunc) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	registered := 0
	for _, entry := range entries {
		if entry.IsDir() || !eligibleDefinition(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		factory, err := load(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping malformed scan definition")
			continue
		}
		if err := r.Register(factory); err != nil {
			return registered, err
		}
		registered++
	}
	log.Info().Str("dir", dir).Int("registered", registered).Msg("scan discovery complete")
	return registered, nil
}

func eligibleDefinition(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
