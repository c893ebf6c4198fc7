package mapstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reloadPreset() Preset {
	return Preset{
		Name: "reload",
		Vest: &VestPattern{Steps: []VestStep{
			{Node: 2, Intensity: 0.6, DurationMs: 150},
		}},
	}
}

func leanPreset() Preset {
	return Preset{
		Name: "lean_x",
		Axis: &AxisMap{Output: "left_x", Deadzone: 0.1},
	}
}

func TestCatalog(t *testing.T) {
	catalog := NewCatalog()

	_, err := catalog.Get("reload")
	require.ErrorIs(t, err, ErrUnknownPreset)

	require.NoError(t, catalog.Put(reloadPreset()))
	preset, err := catalog.Get("reload")
	require.NoError(t, err)
	assert.Equal(t, "reload", preset.Name)

	// Replacing under the same name is allowed.
	replaced := reloadPreset()
	replaced.Vest.Steps[0].Intensity = 0.8
	require.NoError(t, catalog.Put(replaced))
	preset, err = catalog.Get("reload")
	require.NoError(t, err)
	assert.Equal(t, 0.8, preset.Vest.Steps[0].Intensity)

	require.NoError(t, catalog.Delete("reload"))
	require.ErrorIs(t, catalog.Delete("reload"), ErrUnknownPreset)
}

func TestCatalogDeleteInUse(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Catalog.Put(reloadPreset()))

	input, err := ParseInput("key.r")
	require.NoError(t, err)
	require.NoError(t, store.Bindings.Upsert(Binding{
		Input:  input,
		Preset: "reload",
		Mode:   ModeOnPress,
	}))

	require.ErrorIs(t, store.Catalog.Delete("reload"), ErrPresetInUse)

	store.Bindings.Remove(input)
	require.NoError(t, store.Catalog.Delete("reload"))
}

func TestBindingsUpsert(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Catalog.Put(reloadPreset()))
	require.NoError(t, store.Catalog.Put(leanPreset()))

	key, err := ParseInput("key.r")
	require.NoError(t, err)
	axis, err := ParseInput("joy0.axis0")
	require.NoError(t, err)

	// Unknown preset is rejected.
	require.ErrorIs(t, store.Bindings.Upsert(Binding{
		Input:  key,
		Preset: "missing",
		Mode:   ModeOnPress,
	}), ErrUnknownPreset)

	// Mode must match the input kind.
	require.ErrorIs(t, store.Bindings.Upsert(Binding{
		Input:  axis,
		Preset: "reload",
		Mode:   ModeOnPress,
	}), ErrInvalidBinding)
	require.ErrorIs(t, store.Bindings.Upsert(Binding{
		Input:  key,
		Preset: "lean_x",
		Mode:   ModeContinuousAxis,
	}), ErrInvalidBinding)

	// Hold and turbo need the input to stay pressed, so release-triggered
	// bindings cannot carry them.
	require.ErrorIs(t, store.Bindings.Upsert(Binding{
		Input:   key,
		Preset:  "reload",
		Mode:    ModeOnRelease,
		TurboMs: 100,
	}), ErrInvalidBinding)
	require.ErrorIs(t, store.Bindings.Upsert(Binding{
		Input:  key,
		Preset: "reload",
		Mode:   ModeOnRelease,
		HoldMs: 200,
	}), ErrInvalidBinding)

	require.NoError(t, store.Bindings.Upsert(Binding{
		Input:  key,
		Preset: "reload",
		Mode:   ModeOnPress,
	}))
	// Last write wins.
	require.NoError(t, store.Bindings.Upsert(Binding{
		Input:   key,
		Preset:  "reload",
		Mode:    ModeWhileHeld,
		TurboMs: 100,
	}))
	binding, ok := store.Bindings.Resolve(key)
	require.True(t, ok)
	assert.Equal(t, ModeWhileHeld, binding.Mode)
	assert.Equal(t, 100, binding.TurboMs)

	_, ok = store.Bindings.Resolve(axis)
	assert.False(t, ok)
}

func TestBindingsDisabledSet(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Catalog.Put(reloadPreset()))

	input, err := ParseInput("key.f")
	require.NoError(t, err)
	require.NoError(t, store.Bindings.Upsert(Binding{
		Name:          "flash",
		Input:         input,
		Preset:        "reload",
		Mode:          ModeOnPress,
		StartDisabled: true,
	}))

	assert.True(t, store.Bindings.IsDisabled("flash"))
	store.Bindings.SetDisabled("flash", false)
	assert.False(t, store.Bindings.IsDisabled("flash"))
	assert.False(t, store.Bindings.IsDisabled(""))
}

func TestExportImportRoundTrip(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Catalog.Put(reloadPreset()))
	require.NoError(t, store.Catalog.Put(leanPreset()))

	key, err := ParseInput("key.r")
	require.NoError(t, err)
	axis, err := ParseInput("joy0.axis0")
	require.NoError(t, err)
	require.NoError(t, store.Bindings.Upsert(Binding{Input: key, Preset: "reload", Mode: ModeOnPress}))
	require.NoError(t, store.Bindings.Upsert(Binding{Input: axis, Preset: "lean_x", Mode: ModeContinuousAxis}))

	snapshot := store.ExportState()
	assert.Equal(t, SnapshotVersion, snapshot.Version)

	restored := NewStore()
	require.NoError(t, restored.ImportState(snapshot))
	assert.Equal(t, snapshot, restored.ExportState())
}

func TestImportStateRejectsInvalid(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Catalog.Put(reloadPreset()))

	key, err := ParseInput("key.r")
	require.NoError(t, err)

	// Binding referencing a preset missing from the snapshot.
	err = store.ImportState(Snapshot{
		Version: SnapshotVersion,
		Presets: map[string]Preset{"reload": reloadPreset()},
		Bindings: []Binding{
			{Input: key, Preset: "missing", Mode: ModeOnPress},
		},
	})
	require.ErrorIs(t, err, ErrUnknownPreset)

	// Preset keyed under the wrong name.
	err = store.ImportState(Snapshot{
		Version: SnapshotVersion,
		Presets: map[string]Preset{"other": reloadPreset()},
	})
	require.ErrorIs(t, err, ErrInvalidPreset)

	// A failed import leaves the previous state intact.
	assert.True(t, store.Catalog.Has("reload"))
}

func TestLoadMappingFile(t *testing.T) {
	file := MappingFile{
		Version: SnapshotVersion,
		Presets: map[string]Preset{
			"reload": reloadPreset(),
			"lean_x": leanPreset(),
		},
		Bindings: map[string]string{
			"key.r":      `onPress(reload, hold=200ms)`,
			"joy0.axis0": `axis(lean_x)`,
		},
	}
	snapshot, err := LoadMappingFile(file)
	require.NoError(t, err)
	require.Len(t, snapshot.Bindings, 2)

	store := NewStore()
	require.NoError(t, store.ImportState(snapshot))

	key, err := ParseInput("key.r")
	require.NoError(t, err)
	binding, ok := store.Bindings.Resolve(key)
	require.True(t, ok)
	assert.Equal(t, ModeOnPress, binding.Mode)
	assert.Equal(t, 200, binding.HoldMs)
}

func TestParseBinding(t *testing.T) {
	binding, err := ParseBinding("key.lctrl", `onPress(reload)`)
	require.Error(t, err)

	binding, err = ParseBinding("key.leftctrl", `whileHeld(sprint, name="sprint", turbo=100ms, disabled=true, disables="walk crouch")`)
	require.NoError(t, err)
	assert.Equal(t, "sprint", binding.Name)
	assert.Equal(t, ModeWhileHeld, binding.Mode)
	assert.Equal(t, 100, binding.TurboMs)
	assert.True(t, binding.StartDisabled)
	assert.Equal(t, []string{"walk", "crouch"}, binding.Disables)

	_, err = ParseBinding("key.r", `onPress(reload, volume=3)`)
	require.ErrorIs(t, err, ErrInvalidBinding)

	_, err = ParseBinding("joy0.axis0", `axis(lean_x, hold=50ms)`)
	require.ErrorIs(t, err, ErrInvalidBinding)
}
