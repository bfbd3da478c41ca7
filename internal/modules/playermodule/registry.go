package playermodule

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/media"
)

// Registry holds the registered playback back-ends and resolves the best one
// for a given item.
type Registry struct {
	logger hclog.Logger

	mu      sync.RWMutex
	plugins []Plugin
}

// NewRegistry creates an empty plugin registry.
func NewRegistry(logger hclog.Logger) *Registry {
	return &Registry{logger: logger.Named("player-registry")}
}

// Register adds a plugin. Duplicate IDs are rejected.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.ID() == p.ID() {
			return fmt.Errorf("player plugin already registered: %s", p.ID())
		}
	}
	r.plugins = append(r.plugins, p)
	r.logger.Info("player plugin registered", "id", p.ID(), "name", p.Name(), "priority", p.Priority())
	return nil
}

// Get returns a plugin by ID.
func (r *Registry) Get(id string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

// List returns all plugins in registration order.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// ForItem resolves the preferred plugin for an item: among plugins whose
// CanPlayItem returns true, the lowest priority wins, ties broken by
// registration order.
func (r *Registry) ForItem(item *media.Item) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []Plugin
	for _, p := range r.plugins {
		if p.CanPlayItem(item) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority() < candidates[j].Priority()
	})
	return candidates[0], true
}

// ForMediaType resolves the preferred plugin for a bare media type.
func (r *Registry) ForMediaType(mediaType media.MediaType) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []Plugin
	for _, p := range r.plugins {
		if p.CanPlayMediaType(mediaType) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority() < candidates[j].Priority()
	})
	return candidates[0], true
}
