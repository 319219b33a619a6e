package plugins

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dgallion1/freelink/internal/freelink"
)

// Factory constructs a handler from its dependencies.
type Factory func(Deps) freelink.Handler

// Config enables one handler and overrides its settings.
type Config struct {
	ID       string
	Enabled  bool
	Settings freelink.Settings
}

// Catalog maps handler ids to factories. The zero value is empty; use
// NewCatalog for the standard handlers.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
	order     []string
}

// NewCatalog returns a catalog with every standard handler registered.
func NewCatalog() *Catalog {
	c := &Catalog{}
	for _, r := range []struct {
		id string
		f  Factory
	}{
		{"nodetitle", newNodeTitle},
		{"nid", newNID},
		{"user", newUser},
		{"path_alias", newPathAlias},
		{"file", newFile},
		{"search", newSearch},
		{"google", newGoogle},
		{"wiki", newWiki},
		{"drupalorg", newDrupalOrg},
		{"external", newExternal},
	} {
		if err := c.Register(r.id, r.f); err != nil {
			panic(err)
		}
	}
	return c
}

// Register adds a factory. Ids must be unique.
func (c *Catalog) Register(id string, f Factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.factories == nil {
		c.factories = make(map[string]Factory)
	}
	if _, ok := c.factories[id]; ok {
		return fmt.Errorf("handler %q already registered", id)
	}
	c.factories[id] = f
	c.order = append(c.order, id)
	return nil
}

// IDs lists registered handler ids in registration order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// Has reports whether id is registered.
func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[id]
	return ok
}

// Handlers constructs every registered handler in registration order.
func (c *Catalog) Handlers(deps Deps) []freelink.Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	deps = deps.withDefaults()
	out := make([]freelink.Handler, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.factories[id](deps))
	}
	return out
}

// Build constructs the enabled set for cfgs. Enabled handlers keep their
// configured order. Hidden handlers are always enabled; those not listed are
// placed first so configured handlers win ties. Each entry's settings are the
// handler defaults overlaid with the configured values.
func (c *Catalog) Build(cfgs []Config, deps Deps) (freelink.EnabledSet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	deps = deps.withDefaults()

	listed := make(map[string]bool, len(cfgs))
	var configured freelink.EnabledSet
	for _, cfg := range cfgs {
		factory, ok := c.factories[cfg.ID]
		if !ok {
			return nil, fmt.Errorf("unknown handler %q", cfg.ID)
		}
		if listed[cfg.ID] {
			return nil, fmt.Errorf("handler %q configured twice", cfg.ID)
		}
		listed[cfg.ID] = true

		h := factory(deps)
		if !cfg.Enabled && !h.Hidden() {
			continue
		}
		configured = append(configured, freelink.Entry{
			Handler:  h,
			Settings: h.DefaultSettings().Merge(cfg.Settings),
		})
	}

	var set freelink.EnabledSet
	for _, id := range c.order {
		if listed[id] {
			continue
		}
		if h := c.factories[id](deps); h.Hidden() {
			set = append(set, freelink.Entry{Handler: h, Settings: h.DefaultSettings()})
		}
	}
	return append(set, configured...), nil
}
