package control

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrModuleNotFound is returned by Load for an unregistered name.
var ErrModuleNotFound = errors.New("control: module not found")

// Module is a loadable controller.
type Module interface {
	// Name returns the registered module name.
	Name() string

	// Init runs once after loading, before the first frame.
	Init(h Host) error

	// Close releases module resources.
	Close() error
}

// Factory builds a module from its configuration table. cfg may be nil.
type Factory func(cfg map[string]any) (Module, error)

var (
	registryMu sync.RWMutex
	modules    = make(map[string]Factory)
)

// Register registers a module factory under name, replacing any previous
// registration.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	modules[name] = f
}

// Unregister removes a module factory.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(modules, name)
}

// Available returns the registered module names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Load builds the named module.
func Load(name string, cfg map[string]any) (Module, error) {
	registryMu.RLock()
	f, ok := modules[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, name)
	}
	m, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("control: load %s: %w", name, err)
	}
	return m, nil
}
