package flight

import "fmt"

// StageKey identifies a single-flighted pipeline stage for a given
// (version, mapping) pair, e.g. ("remap", "1.21.10", "yarn").
type StageKey struct {
	Stage   string
	Version string
	Mapping string
}

// String implements fmt.Stringer so StageKey can be used directly as a
// Keyed[StageKey, V] key without an extra conversion at call sites.
func (k StageKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Stage, k.Version, k.Mapping)
}
