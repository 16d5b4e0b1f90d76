package domain

import "sort"

// Dependency types understood by config validation hosts.
const (
	DependencyPlugin = "plugin"
	DependencyConfig = "config"
	DependencyModule = "module"
)

// DependencyRef names one thing an expression depends on.
type DependencyRef struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// DependencySet is an unordered set of dependency references.
type DependencySet map[DependencyRef]struct{}

// NewDependencySet creates a set holding refs.
func NewDependencySet(refs ...DependencyRef) DependencySet {
	s := make(DependencySet, len(refs))
	for _, r := range refs {
		s[r] = struct{}{}
	}
	return s
}

// Add inserts a reference.
func (s DependencySet) Add(ref DependencyRef) {
	s[ref] = struct{}{}
}

// Merge adds every reference of other.
func (s DependencySet) Merge(other DependencySet) {
	for r := range other {
		s[r] = struct{}{}
	}
}

// Contains reports whether ref is in the set.
func (s DependencySet) Contains(ref DependencyRef) bool {
	_, ok := s[ref]
	return ok
}

// Sorted returns the references ordered by type, then name.
func (s DependencySet) Sorted() []DependencyRef {
	out := make([]DependencyRef, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out
}
