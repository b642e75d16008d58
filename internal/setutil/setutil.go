// Package setutil provides a small string-set data structure used by the
// reachability filter (visited types/aliases).
package setutil

// Strings is a set of strings.
type Strings map[string]struct{}

// NewStrings constructs a Strings set containing the given names.
func NewStrings(names ...string) Strings {
	s := Strings{}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add adds name to the set and reports whether it was not already present.
func (s Strings) Add(name string) bool {
	if _, ok := s[name]; ok {
		return false
	}
	s[name] = struct{}{}
	return true
}

// Remove removes name from the set, if present.
func (s Strings) Remove(name string) {
	delete(s, name)
}

// Contains reports whether name is in the set.
func (s Strings) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of elements in the set.
func (s Strings) Len() int {
	return len(s)
}

// ToSlice returns the set's members in unspecified order.
func (s Strings) ToSlice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
