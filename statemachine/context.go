package statemachine

import (
	"maps"
)

// ShallowMerge is the default UpdateFunc. It copies ext and folds the updates
// onto the copy left to right, each fragment overwriting same-named keys.
// Nested values are replaced wholesale, never merged. ext is not modified.
func ShallowMerge(ext ExtendedState, updates []ExtendedState) ExtendedState {
	merged := ext.Clone()

	for _, update := range updates {
		maps.Copy(merged, update)
	}

	return merged
}

// Clone returns a shallow copy of the extended state. A nil state clones to an empty one.
func (e ExtendedState) Clone() ExtendedState {
	clone := make(ExtendedState, len(e))
	maps.Copy(clone, e)

	return clone
}

// Get retrieves a value from the extended state.
func (e ExtendedState) Get(key string) (any, bool) {
	val, ok := e[key]

	return val, ok
}

// GetString retrieves a string value from the extended state.
func (e ExtendedState) GetString(key string) (string, bool) {
	val, ok := e.Get(key)
	if !ok {
		return "", false
	}

	str, ok := val.(string)

	return str, ok
}

// GetBool retrieves a boolean value from the extended state.
func (e ExtendedState) GetBool(key string) (bool, bool) {
	val, ok := e.Get(key)
	if !ok {
		return false, false
	}

	b, ok := val.(bool)

	return b, ok
}

// GetInt retrieves an integer value from the extended state.
func (e ExtendedState) GetInt(key string) (int, bool) {
	val, ok := e.Get(key)
	if !ok {
		return 0, false
	}

	i, ok := val.(int)

	return i, ok
}
