package trigger

import (
	"sync"

	"github.com/gyaneshwarpardhi/alerts/internal/config"
)

// Swapper installs a freshly built graph. engine.Engine satisfies it.
type Swapper interface {
	SwapGraph(g *Graph)
}

// ConfigSource re-reads the trigger config and notifies its subscribers.
// config.Loader satisfies it.
type ConfigSource interface {
	Reload() (*config.AlertsConfig, error)
	OnChange(fn func(*config.AlertsConfig))
}

// Reloader rebuilds the graph whenever the config source changes.
type Reloader struct {
	src    ConfigSource
	av     ActionValidator
	target Swapper

	mu      sync.Mutex
	last    *Graph
	lastErr error
}

// NewReloader subscribes to src. Every config it publishes is compiled and,
// when valid, swapped into target.
func NewReloader(src ConfigSource, av ActionValidator, target Swapper) *Reloader {
	r := &Reloader{src: src, av: av, target: target}
	src.OnChange(func(cfg *config.AlertsConfig) { r.Apply(cfg) })
	return r
}

// Apply builds cfg and swaps the result in. A graph that fails to build leaves
// the current one in place.
func (r *Reloader) Apply(cfg *config.AlertsConfig) (*Graph, error) {
	g, err := Build(cfg, r.av)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
	if err != nil {
		return nil, err
	}
	r.last = g
	r.target.SwapGraph(g)
	return g, nil
}

// Reload re-reads the config and reports the outcome of the resulting rebuild.
func (r *Reloader) Reload() (*Graph, error) {
	if _, err := r.src.Reload(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.lastErr
}
