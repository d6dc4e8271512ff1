package forecast

import (
	"sort"

	"github.com/inferloop/tsforecast/pkg/interfaces"
)

// DefaultEngine is the engine used when the caller names none
const DefaultEngine = "decomposition"

// Registry manages forecasting engines by name
type Registry struct {
	engines map[string]interfaces.ForecastEngine
}

// NewRegistry creates a registry with the built-in engines
func NewRegistry() *Registry {
	registry := &Registry{
		engines: make(map[string]interfaces.ForecastEngine),
	}

	registry.Register(NewDecompositionEngine())
	registry.Register(NewLinearEngine(0))

	return registry
}

// Register registers an engine, replacing one with the same name
func (r *Registry) Register(engine interfaces.ForecastEngine) {
	r.engines[engine.Name()] = engine
}

// Get returns an engine by name
func (r *Registry) Get(name string) (interfaces.ForecastEngine, bool) {
	engine, exists := r.engines[name]
	return engine, exists
}

// Names returns the registered engine names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
