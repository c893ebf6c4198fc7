package mapstore

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// InUseProbe reports whether a preset is currently referenced. The dispatch
// engine registers one for live playbacks, the binding store for bindings.
type InUseProbe func(name string) bool

// Catalog holds the preset patterns. Read-mostly: the engine resolves
// presets on every trigger while the editor mutates occasionally.
type Catalog struct {
	presets *xsync.MapOf[string, Preset]
	probes  []InUseProbe
}

func NewCatalog() *Catalog {
	return &Catalog{
		presets: xsync.NewMapOf[string, Preset](),
	}
}

// RegisterInUseProbe adds a probe consulted by Delete. Not safe to call
// after the agent has started; probes are wired once at construction time.
func (c *Catalog) RegisterInUseProbe(probe InUseProbe) {
	c.probes = append(c.probes, probe)
}

func (c *Catalog) Get(name string) (Preset, error) {
	preset, ok := c.presets.Load(name)
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return preset, nil
}

func (c *Catalog) Has(name string) bool {
	_, ok := c.presets.Load(name)
	return ok
}

// Put validates and stores a preset, replacing any previous definition
// under the same name.
func (c *Catalog) Put(preset Preset) error {
	if err := preset.Validate(); err != nil {
		return err
	}
	c.presets.Store(preset.Name, preset)
	return nil
}

// Delete removes a preset. It fails with ErrPresetInUse while any binding
// or live playback still references it.
func (c *Catalog) Delete(name string) error {
	if _, ok := c.presets.Load(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	for _, probe := range c.probes {
		if probe(name) {
			return fmt.Errorf("%w: %s", ErrPresetInUse, name)
		}
	}
	c.presets.Delete(name)
	return nil
}

func (c *Catalog) Names() []string {
	names := make([]string, 0, c.presets.Size())
	c.presets.Range(func(name string, _ Preset) bool {
		names = append(names, name)
		return true
	})
	return names
}

func (c *Catalog) replaceAll(presets map[string]Preset) {
	c.presets.Clear()
	for name, preset := range presets {
		c.presets.Store(name, preset)
	}
}
