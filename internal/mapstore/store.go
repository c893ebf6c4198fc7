package mapstore

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hapticbridge/hapticbridge/internal/mapstore/mapdsl"
)

// SnapshotVersion is written into exported snapshots. Loading ignores
// unknown fields, so newer snapshots with additional fields still load.
const SnapshotVersion = 1

// Snapshot is the serializable state of both stores.
type Snapshot struct {
	Version  int               `json:"version"`
	Presets  map[string]Preset `json:"presets"`
	Bindings []Binding         `json:"bindings"`
}

// MappingFile is the user-facing YAML layout: presets keyed by name and
// bindings as input-string to statement-string pairs.
type MappingFile struct {
	Version  int               `json:"version"`
	Presets  map[string]Preset `json:"presets"`
	Bindings map[string]string `json:"bindings"`
}

// Store bundles the preset catalog and the binding store and owns
// snapshot import/export.
type Store struct {
	Catalog  *Catalog
	Bindings *Bindings
}

func NewStore() *Store {
	catalog := NewCatalog()
	return &Store{
		Catalog:  catalog,
		Bindings: NewBindings(catalog),
	}
}

// ExportState returns a snapshot of both stores. Presets are keyed by
// name and bindings sorted by input for deterministic output.
func (s *Store) ExportState() Snapshot {
	presets := make(map[string]Preset)
	s.Catalog.presets.Range(func(name string, preset Preset) bool {
		presets[name] = preset
		return true
	})
	bindings := s.Bindings.All()
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].Input.String() < bindings[j].Input.String()
	})
	return Snapshot{
		Version:  SnapshotVersion,
		Presets:  presets,
		Bindings: bindings,
	}
}

// ImportState validates and replaces the contents of both stores. On
// validation failure nothing is replaced. Events already in flight keep
// the bindings they resolved before the import completed.
func (s *Store) ImportState(snapshot Snapshot) error {
	presets := make(map[string]Preset, len(snapshot.Presets))
	for name, preset := range snapshot.Presets {
		if preset.Name == "" {
			preset.Name = name
		}
		if preset.Name != name {
			return fmt.Errorf("%w: preset %q keyed as %q", ErrInvalidPreset, preset.Name, name)
		}
		if err := preset.Validate(); err != nil {
			return err
		}
		presets[name] = preset
	}
	// Duplicate inputs are allowed in the snapshot; the later entry wins,
	// matching last-write-wins at configuration time.
	for _, binding := range snapshot.Bindings {
		if err := binding.validate(); err != nil {
			return err
		}
		if _, ok := presets[binding.Preset]; !ok {
			return fmt.Errorf("%w: binding %s references %s", ErrUnknownPreset, binding.Input, binding.Preset)
		}
	}
	s.Catalog.replaceAll(presets)
	s.Bindings.replaceAll(snapshot.Bindings)
	return nil
}

// LoadMappingFile converts the user-facing file layout into a snapshot,
// parsing binding statements.
func LoadMappingFile(file MappingFile) (Snapshot, error) {
	bindings := make([]Binding, 0, len(file.Bindings))
	for inputStr, stmtStr := range file.Bindings {
		binding, err := ParseBinding(inputStr, stmtStr)
		if err != nil {
			return Snapshot{}, err
		}
		bindings = append(bindings, binding)
	}
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].Input.String() < bindings[j].Input.String()
	})
	return Snapshot{
		Version:  file.Version,
		Presets:  file.Presets,
		Bindings: bindings,
	}, nil
}

// ParseBinding builds a Binding from the textual input identifier and a
// binding statement.
func ParseBinding(inputStr, stmtStr string) (Binding, error) {
	input, err := ParseInput(inputStr)
	if err != nil {
		return Binding{}, fmt.Errorf("%w: %v", ErrInvalidBinding, err)
	}
	stmt, err := mapdsl.Parse(stmtStr)
	if err != nil {
		return Binding{}, fmt.Errorf("%w: %s: %v", ErrInvalidBinding, inputStr, err)
	}
	binding := Binding{
		Input:  input,
		Preset: stmt.Preset,
		Mode:   Mode(stmt.Mode),
	}
	for _, opt := range stmt.Options {
		switch opt.Name {
		case "name":
			if opt.Value.String == nil {
				return Binding{}, fmt.Errorf("%w: %s: name must be a string", ErrInvalidBinding, inputStr)
			}
			binding.Name = *opt.Value.String
		case "hold":
			d, err := optionDuration(opt)
			if err != nil {
				return Binding{}, fmt.Errorf("%w: %s: %v", ErrInvalidBinding, inputStr, err)
			}
			binding.HoldMs = int(d / time.Millisecond)
		case "turbo":
			d, err := optionDuration(opt)
			if err != nil {
				return Binding{}, fmt.Errorf("%w: %s: %v", ErrInvalidBinding, inputStr, err)
			}
			binding.TurboMs = int(d / time.Millisecond)
		case "disabled":
			if opt.Value.Boolean == nil {
				return Binding{}, fmt.Errorf("%w: %s: disabled must be a boolean", ErrInvalidBinding, inputStr)
			}
			binding.StartDisabled = bool(*opt.Value.Boolean)
		case "disables":
			names, err := optionNames(opt)
			if err != nil {
				return Binding{}, fmt.Errorf("%w: %s: %v", ErrInvalidBinding, inputStr, err)
			}
			binding.Disables = names
		case "enables":
			names, err := optionNames(opt)
			if err != nil {
				return Binding{}, fmt.Errorf("%w: %s: %v", ErrInvalidBinding, inputStr, err)
			}
			binding.Enables = names
		default:
			return Binding{}, fmt.Errorf("%w: %s: unknown option %q", ErrInvalidBinding, inputStr, opt.Name)
		}
	}
	if err := binding.validate(); err != nil {
		return Binding{}, err
	}
	return binding, nil
}

func optionDuration(opt mapdsl.Option) (time.Duration, error) {
	if opt.Value.Duration == nil {
		return 0, fmt.Errorf("%s must be a duration", opt.Name)
	}
	return time.Duration(*opt.Value.Duration), nil
}

func optionNames(opt mapdsl.Option) ([]string, error) {
	if opt.Value.String == nil {
		return nil, fmt.Errorf("%s must be a space-separated string of binding names", opt.Name)
	}
	return strings.Fields(*opt.Value.String), nil
}
