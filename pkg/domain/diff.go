package domain

import (
	"reflect"
	"sort"
)

// VariableDiff represents the changes between two variable snapshots.
// It is designed to be serialized to JSON for hosts reporting what an
// execution did.
type VariableDiff struct {
	// Set contains added or modified variables.
	Set map[string]Variable `json:"set,omitempty"`
	// Removed lists names present before and absent after.
	Removed []string `json:"removed,omitempty"`
}

// Diff calculates the difference between two snapshots.
// A nil before means everything in after is new. Returns nil when nothing changed.
func Diff(before, after map[string]Variable) *VariableDiff {
	diff := &VariableDiff{Set: make(map[string]Variable)}

	for name, v := range after {
		old, exists := before[name]
		if !exists || !reflect.DeepEqual(old.Value, v.Value) || old.TypeName() != v.TypeName() {
			diff.Set[name] = v
		}
	}

	for name := range before {
		if _, exists := after[name]; !exists {
			diff.Removed = append(diff.Removed, name)
		}
	}
	sort.Strings(diff.Removed)

	if diff.IsEmpty() {
		return nil
	}
	if len(diff.Set) == 0 {
		diff.Set = nil
	}
	return diff
}

// IsEmpty checks if the diff contains any change.
func (d *VariableDiff) IsEmpty() bool {
	return d == nil || (len(d.Set) == 0 && len(d.Removed) == 0)
}
