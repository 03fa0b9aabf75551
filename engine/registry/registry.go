// Package registry maps engine names to constructors so tools can pick an
// engine at run time. The native engine is always present; stbi and opencv
// are added when built with the matching build tag.
package registry

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/kpfaulkner/stbi-go/engine"
	"github.com/kpfaulkner/stbi-go/engine/native"
)

const Default = "native"

var (
	mu      sync.RWMutex
	engines = map[string]func() engine.Engine{
		Default: func() engine.Engine { return native.New() },
	}
)

// Register adds or replaces the constructor for name.
func Register(name string, newEngine func() engine.Engine) {
	mu.Lock()
	defer mu.Unlock()
	engines[name] = newEngine
}

func New(name string) (engine.Engine, error) {
	mu.RLock()
	newEngine, ok := engines[name]
	mu.RUnlock()

	if !ok {
		return nil, errors.Errorf("unknown engine %q, have %v", name, Names())
	}
	return newEngine(), nil
}

// Names lists the registered engines in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
