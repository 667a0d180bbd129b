package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ux3d/ANARI-SDK/internal/feature"
)

// Factory loads a library. The status callback must be used for every
// diagnostic the library emits.
type Factory func(library string, status StatusFunc) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under name. Registering the same
// name twice panics, as with database/sql drivers.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("backend: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("backend: Register called twice for " + name)
	}
	registry[name] = factory
}

// Registered lists registered backend names in sorted order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open loads the library registered under name. Any failure is returned
// as an *InitError.
func Open(library string, status StatusFunc) (Backend, error) {
	registryMu.RLock()
	factory, ok := registry[library]
	registryMu.RUnlock()
	if !ok {
		return nil, &InitError{
			Library: library,
			Stage:   "library",
			Err:     fmt.Errorf("unknown library (registered: %v)", Registered()),
		}
	}
	if status == nil {
		status = func(string) {}
	}
	b, err := factory(library, status)
	if err != nil {
		return nil, &InitError{Library: library, Stage: "library", Err: err}
	}
	return b, nil
}

// OpenGenerator opens a generator on b, wrapping failures as *InitError.
func OpenGenerator(b Backend, library, device string) (Generator, error) {
	g, err := b.NewGenerator(device)
	if err != nil {
		return nil, &InitError{Library: library, Device: device, Stage: "generator", Err: err}
	}
	return g, nil
}

// QueryFeatures asks b for the device's capability flags, wrapping
// failures as *InitError.
func QueryFeatures(b Backend, library, device string) (feature.Set, error) {
	set, err := b.QueryFeatures(device)
	if err != nil {
		return nil, &InitError{Library: library, Device: device, Stage: "features", Err: err}
	}
	return set, nil
}
