package mapstore

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// Bindings maps logical inputs to bindings. It also tracks which named
// bindings are currently disabled; the engine toggles that set at runtime
// when a binding with Disables/Enables fires.
type Bindings struct {
	catalog  *Catalog
	byInput  *xsync.MapOf[LogicalInput, Binding]
	disabled *xsync.MapOf[string, struct{}]
}

func NewBindings(catalog *Catalog) *Bindings {
	b := &Bindings{
		catalog:  catalog,
		byInput:  xsync.NewMapOf[LogicalInput, Binding](),
		disabled: xsync.NewMapOf[string, struct{}](),
	}
	catalog.RegisterInUseProbe(b.references)
	return b
}

// Resolve looks up the binding for an input. Unbound inputs are not an
// error; the engine treats them as a no-op.
func (b *Bindings) Resolve(input LogicalInput) (Binding, bool) {
	return b.byInput.Load(input)
}

// Upsert validates and stores a binding, replacing any previous binding on
// the same input (last write wins).
func (b *Bindings) Upsert(binding Binding) error {
	if err := binding.validate(); err != nil {
		return err
	}
	if !b.catalog.Has(binding.Preset) {
		return fmt.Errorf("%w: binding %s references %s", ErrUnknownPreset, binding.Input, binding.Preset)
	}
	b.byInput.Store(binding.Input, binding)
	if binding.StartDisabled && binding.Name != "" {
		b.disabled.Store(binding.Name, struct{}{})
	}
	return nil
}

func (b *Bindings) Remove(input LogicalInput) {
	b.byInput.Delete(input)
}

func (b *Bindings) All() []Binding {
	out := make([]Binding, 0, b.byInput.Size())
	b.byInput.Range(func(_ LogicalInput, binding Binding) bool {
		out = append(out, binding)
		return true
	})
	return out
}

// references reports whether any binding points at the preset. Registered
// with the catalog as an in-use probe.
func (b *Bindings) references(preset string) bool {
	found := false
	b.byInput.Range(func(_ LogicalInput, binding Binding) bool {
		if binding.Preset == preset {
			found = true
			return false
		}
		return true
	})
	return found
}

func (b *Bindings) IsDisabled(name string) bool {
	if name == "" {
		return false
	}
	_, ok := b.disabled.Load(name)
	return ok
}

func (b *Bindings) SetDisabled(name string, disabled bool) {
	if name == "" {
		return
	}
	if disabled {
		b.disabled.Store(name, struct{}{})
	} else {
		b.disabled.Delete(name)
	}
}

func (b *Bindings) replaceAll(bindings []Binding) {
	b.byInput.Clear()
	b.disabled.Clear()
	for _, binding := range bindings {
		b.byInput.Store(binding.Input, binding)
		if binding.StartDisabled && binding.Name != "" {
			b.disabled.Store(binding.Name, struct{}{})
		}
	}
}
