package model

import "fmt"

// Registry is an insertion-ordered collection of Types and Aliases, with
// name lookup that resolves aliases transitively to their final Type.
//
// Unlike the C implementation this descends from — which prepended to a
// linked list and so stored everything in reverse insertion order — the
// Registry keeps ordinary append-ordered slices throughout, per the design
// note in spec.md §9. Member order within a Composite is simply the order
// capture_member built it in; there is no reversal to undo.
type Registry struct {
	types   []*Type
	aliases []*Alias

	typeIdx  map[string]int
	aliasIdx map[string]int

	// placeholders holds forward-declared composite tags: names that have
	// been mentioned (e.g. "struct Foo;") but not yet given a member list.
	// A Member may reference a placeholder name during parsing; it must be
	// resolved to a real Composite before the registry is used for
	// reachability or emission.
	placeholders map[string]bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		typeIdx:      map[string]int{},
		aliasIdx:     map[string]int{},
		placeholders: map[string]bool{},
	}
}

// AddType appends t to the registry, in source order.
func (r *Registry) AddType(t *Type) {
	if idx, ok := r.typeIdx[t.Name]; ok {
		r.types[idx] = t
		return
	}
	r.typeIdx[t.Name] = len(r.types)
	r.types = append(r.types, t)
	delete(r.placeholders, t.Name)
}

// AddAlias appends a to the registry, in source order.
func (r *Registry) AddAlias(a *Alias) {
	if idx, ok := r.aliasIdx[a.Name]; ok {
		r.aliases[idx] = a
		return
	}
	r.aliasIdx[a.Name] = len(r.aliases)
	r.aliases = append(r.aliases, a)
}

// AddPlaceholder registers name as a forward-declared composite tag.
func (r *Registry) AddPlaceholder(name string) {
	if _, ok := r.typeIdx[name]; ok {
		return
	}
	r.placeholders[name] = true
}

// HasPlaceholder reports whether name was forward-declared and is not yet a
// complete Type.
func (r *Registry) HasPlaceholder(name string) bool {
	return r.placeholders[name]
}

// LookupType returns the Type registered directly under name, ignoring
// aliases. It does not resolve through Decorated types.
func (r *Registry) LookupType(name string) (*Type, bool) {
	idx, ok := r.typeIdx[name]
	if !ok {
		return nil, false
	}
	return r.types[idx], true
}

// Lookup searches Types first; on a miss it searches Aliases and recurses
// on the alias's target. It returns (nil, false) if name resolves to
// neither.
func (r *Registry) Lookup(name string) (*Type, bool) {
	if t, ok := r.LookupType(name); ok {
		return t, true
	}
	if idx, ok := r.aliasIdx[name]; ok {
		return r.Lookup(r.aliases[idx].Target)
	}
	return nil, false
}

// Types returns all registered types, in insertion order.
func (r *Registry) Types() []*Type {
	return r.types
}

// Aliases returns all registered aliases, in insertion order.
func (r *Registry) Aliases() []*Alias {
	return r.aliases
}

// Filter replaces the registry's contents with only the Types and Aliases
// whose name is in used, preserving relative order.
func (r *Registry) Filter(used map[string]bool) {
	kept := r.types[:0]
	for _, t := range r.types {
		if used[t.Name] {
			kept = append(kept, t)
		}
	}
	r.types = kept
	r.rebuildTypeIdx()

	keptAliases := r.aliases[:0]
	for _, a := range r.aliases {
		if used[a.Name] {
			keptAliases = append(keptAliases, a)
		}
	}
	r.aliases = keptAliases
	r.rebuildAliasIdx()
}

func (r *Registry) rebuildTypeIdx() {
	r.typeIdx = make(map[string]int, len(r.types))
	for i, t := range r.types {
		r.typeIdx[t.Name] = i
	}
}

func (r *Registry) rebuildAliasIdx() {
	r.aliasIdx = make(map[string]int, len(r.aliases))
	for i, a := range r.aliases {
		r.aliasIdx[a.Name] = i
	}
}

// String renders a Type for verbose (-v) diagnostic output, roughly
// mirroring print_type from the original cser.c.
func (t *Type) String() string {
	switch t.Classification {
	case Native:
		return fmt.Sprintf("%s /* native */", t.Name)
	case Decorated:
		return fmt.Sprintf("typedef %s%s %s", t.BaseType, decString(t.Decorations), t.Name)
	case Composite:
		s := fmt.Sprintf("typedef struct {\n")
		for _, m := range t.Members {
			s += fmt.Sprintf("  %s%s %s;\n", m.BaseType, decString(m.Decorations), m.Name)
		}
		s += fmt.Sprintf("} %s", t.Name)
		return s
	default:
		return "<unknown type>"
	}
}

func decString(d Decorations) string {
	s := ""
	for i := 0; i < d.PtrLevel; i++ {
		s += "*"
	}
	switch d.Cardinality {
	case Single:
	case FixedArray:
		s += fmt.Sprintf("[%s]", d.ArrSz)
	case VarArray:
		s += fmt.Sprintf(" /*vararray:%s*/", d.VarSizeMember)
	case ZeroTermArray:
		s += " /*zeroterm*/"
	}
	return s
}
