package settings

import "context"

// StaticOptions is an in-memory OptionStore backed by a plain map.
// Useful for tests and for CLI runs with no dynamic option backend.
// The map must not be mutated after construction.
type StaticOptions map[string]any

// Lookup implements OptionStore.
func (s StaticOptions) Lookup(_ context.Context, name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

// StaticProjectOptions is an in-memory ProjectOptionStore keyed by project
// id. Each project's value is the raw override object stored under
// ProjectOptionKey.
type StaticProjectOptions map[int64]map[string]any

// ProjectOptions implements ProjectOptionStore.
func (s StaticProjectOptions) ProjectOptions(_ context.Context, projectID int64, key string) (map[string]any, error) {
	if key != ProjectOptionKey {
		return nil, nil
	}
	return s[projectID], nil
}
