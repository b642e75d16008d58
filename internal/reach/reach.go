// Package reach computes the set of types reachable from a set of
// user-specified root Composite types, and prunes a Registry down to just
// the types and aliases named in that set.
//
// It is a direct translation of mark_used from the DiUS cser tool's
// cser.c: a depth-first walk starting at the roots, following Decorated
// base types and Composite member base types, marking every name it
// visits.
package reach

import (
	"github.com/dius/cser/internal/cgenerr"
	"github.com/dius/cser/internal/model"
	"github.com/dius/cser/internal/setutil"
)

// Mark walks reg starting from roots and returns the set of type names
// reachable from them, including the roots themselves.
//
// Mark returns a *cgenerr.LookupFailure if a root name isn't registered,
// and a *cgenerr.RootNotComposite if a root resolves to something other
// than a Composite — generation only makes sense starting from a record
// type, matching the original's restriction that roots must be struct
// types.
func Mark(reg *model.Registry, roots []string) (setutil.Strings, error) {
	visited := setutil.NewStrings()

	for _, root := range roots {
		t, ok := reg.LookupType(root)
		if !ok {
			return nil, &cgenerr.LookupFailure{TypeName: root}
		}
		if t.Classification != model.Composite {
			return nil, &cgenerr.RootNotComposite{TypeName: root}
		}
		if err := markType(reg, t, visited); err != nil {
			return nil, err
		}
	}

	return visited, nil
}

func markType(reg *model.Registry, t *model.Type, visited setutil.Strings) error {
	if !visited.Add(t.Name) {
		return nil // already visited; stop the recursion
	}

	switch t.Classification {
	case model.Native:
		// leaf; nothing further to mark
	case model.Decorated:
		return markNamed(reg, t.BaseType, visited)
	case model.Composite:
		for _, m := range t.Members {
			if err := markNamed(reg, m.BaseType, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

// markNamed resolves name through the registry (types, then aliases) and
// marks whatever it finds. A name that resolves to neither a Type nor an
// Alias — e.g. a placeholder that was forward-declared but never completed
// into a real composite — is an internal error per spec.md §4.3: letting it
// through would leave a reference the emitters can't ever fill in.
func markNamed(reg *model.Registry, name string, visited setutil.Strings) error {
	if t, ok := reg.LookupType(name); ok {
		return markType(reg, t, visited)
	}
	if !visited.Add(name) {
		return nil
	}
	// name didn't resolve directly; it may be an alias. Resolving through
	// Lookup finds the ultimate Type, which also needs marking, but the
	// alias name itself must stay in the visited set so Filter keeps it.
	if t, ok := reg.Lookup(name); ok {
		return markType(reg, t, visited)
	}
	return &cgenerr.LookupFailure{TypeName: name}
}

// Filter prunes reg in place to the types and aliases named by used.
func Filter(reg *model.Registry, used setutil.Strings) {
	keep := make(map[string]bool, used.Len())
	for _, name := range used.ToSlice() {
		keep[name] = true
	}
	reg.Filter(keep)
}
