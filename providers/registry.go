package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/brightloom/orchestra/core"
)

// Factory creates AI clients for a given provider and reports whether that
// provider is usable in the current environment (an API key env var set,
// AWS credentials resolvable, etc).
type Factory interface {
	Create(config *AIConfig) core.AIClient
	DetectEnvironment() (priority int, available bool)
	Name() string
	Description() string
}

// registry holds every provider package that imported this one for its
// side-effecting init(). cmd/orchestrad's buildClients looks factories up
// by name with Get; which provider serves a model is decided there by a
// model-id prefix match, not by an auto-detection contest.
type registry struct {
	mu        sync.RWMutex
	providers map[string]Factory
}

var globalRegistry = &registry{providers: make(map[string]Factory)}

// Register registers a provider factory. Intended to be called from a
// provider package's init().
func Register(factory Factory) error {
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}
	name := factory.Name()
	if name == "" {
		return fmt.Errorf("factory.Name() cannot be empty")
	}

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.providers[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	globalRegistry.providers[name] = factory
	return nil
}

// MustRegister registers a provider and panics on error. Use from init().
func MustRegister(factory Factory) {
	if err := Register(factory); err != nil {
		panic(fmt.Sprintf("failed to register AI provider: %v", err))
	}
}

// Get retrieves a registered provider factory by name.
func Get(name string) (Factory, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	factory, exists := globalRegistry.providers[name]
	return factory, exists
}

// Names returns every registered provider name, sorted.
func Names() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	names := make([]string, 0, len(globalRegistry.providers))
	for name := range globalRegistry.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info describes a registered provider for operator-facing listings.
type Info struct {
	Name        string
	Description string
	Available   bool
	Priority    int
}

// Available returns info for every registered provider, highest-priority
// and available-in-this-environment providers first.
func Available() []Info {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	info := make([]Info, 0, len(globalRegistry.providers))
	for name, factory := range globalRegistry.providers {
		priority, available := factory.DetectEnvironment()
		info = append(info, Info{
			Name:        name,
			Description: factory.Description(),
			Available:   available,
			Priority:    priority,
		})
	}

	sort.Slice(info, func(i, j int) bool {
		if info[i].Available != info[j].Available {
			return info[i].Available
		}
		if info[i].Priority != info[j].Priority {
			return info[i].Priority > info[j].Priority
		}
		return info[i].Name < info[j].Name
	})
	return info
}
