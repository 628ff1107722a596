// Package registry is the in-memory model repository: it discovers model
// configurations on disk and holds the loaded backend for each model
// version. Concrete backends are constructed by a caller-supplied Factory;
// this package never links a compute runtime.
package registry

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"inferd/internal/core"
	"inferd/internal/model"
	"inferd/internal/status"
	"inferd/pkg/types"
)

// Factory builds a backend for one model version from its configuration.
type Factory interface {
	New(cfg *model.Config, version int64) (core.Backend, error)
}

// Registry maps model name -> version -> loaded backend. Safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	paths   []string
	factory Factory
	models  map[string]map[int64]core.Backend
	log     zerolog.Logger
}

// New builds a registry over the given repository paths. factory may be nil,
// in which case Load fails until one is installed.
func New(paths []string, factory Factory, log zerolog.Logger) *Registry {
	return &Registry{
		paths:   append([]string(nil), paths...),
		factory: factory,
		models:  make(map[string]map[int64]core.Backend),
		log:     log,
	}
}

// Register adds a loaded backend, replacing any backend already serving the
// same model version.
func (r *Registry) Register(b core.Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	versions, ok := r.models[b.Name()]
	if !ok {
		versions = make(map[int64]core.Backend)
		r.models[b.Name()] = versions
	}
	versions[b.Version()] = b
	r.log.Info().Str("model", b.Name()).Int64("version", b.Version()).Msg("registered backend")
}

// Unregister removes one model version.
func (r *Registry) Unregister(name string, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	versions, ok := r.models[name]
	if !ok {
		return status.NotFoundf("model '%s' is not loaded", name)
	}
	if _, ok := versions[version]; !ok {
		return status.NotFoundf("model '%s' version %d is not loaded", name, version)
	}
	delete(versions, version)
	if len(versions) == 0 {
		delete(r.models, name)
	}
	return nil
}

// UnregisterModel removes every version of a model.
func (r *Registry) UnregisterModel(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[name]; !ok {
		return status.NotFoundf("model '%s' is not loaded", name)
	}
	delete(r.models, name)
	r.log.Info().Str("model", name).Msg("unregistered model")
	return nil
}

// GetBackend resolves the backend serving a model version. Version <= 0
// selects the highest loaded version.
func (r *Registry) GetBackend(name string, version int64) (core.Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions, ok := r.models[name]
	if !ok || len(versions) == 0 {
		return nil, status.NotFoundf("model '%s' is not loaded", name)
	}
	if version <= 0 {
		var latest int64
		for v := range versions {
			if v > latest {
				latest = v
			}
		}
		return versions[latest], nil
	}
	b, ok := versions[version]
	if !ok {
		return nil, status.NotFoundf("model '%s' version %d is not loaded", name, version)
	}
	return b, nil
}

// ReadyVersions lists the loaded versions of a model, ascending.
func (r *Registry) ReadyVersions(name string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.models[name]
	out := make([]int64, 0, len(versions))
	for v := range versions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Models reports every loaded backend for status aggregation.
func (r *Registry) Models() []types.ModelStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.ModelStatus
	for name, versions := range r.models {
		for v, b := range versions {
			out = append(out, types.ModelStatus{
				Name:         name,
				Version:      v,
				State:        "ready",
				MaxBatchSize: b.Config().MaxBatchSize,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}
