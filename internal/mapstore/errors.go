package mapstore

import "errors"

var (
	// ErrUnknownPreset is returned when a binding references a preset that
	// is not present in the catalog, or a preset is looked up by an unknown
	// name.
	ErrUnknownPreset = errors.New("unknown preset")

	// ErrPresetInUse blocks deletion of a preset that is still referenced
	// by a binding or a live playback.
	ErrPresetInUse = errors.New("preset in use")

	// ErrInvalidPreset is wrapped with the specific violated constraint.
	ErrInvalidPreset = errors.New("invalid preset")

	// ErrInvalidBinding is wrapped with the specific violated constraint.
	ErrInvalidBinding = errors.New("invalid binding")
)
