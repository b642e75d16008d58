package frontend

// SymKind classifies how the parser should treat a bare identifier it has
// not yet consumed: as a previously-typedef'd type name, a known enum
// constant, or an ordinary identifier. This mirrors the sym_type lookup
// the original's parser needs to resolve C's typedef-name ambiguity.
type SymKind int

const (
	SymIdent SymKind = iota
	SymTypedefName
	SymEnumConstant
)

// SymbolTable tracks the typedef names and enum constants the parser has
// seen so far, so it can classify new identifiers as it encounters them.
type SymbolTable struct {
	typedefNames map[string]bool
	enumConsts   map[string]bool
}

// NewSymbolTable returns an empty SymbolTable.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		typedefNames: map[string]bool{},
		enumConsts:   map[string]bool{},
	}
}

// AddTypedefName records name as a typedef name, to be classified as
// SymTypedefName from now on.
func (s *SymbolTable) AddTypedefName(name string) {
	s.typedefNames[name] = true
}

// AddEnumConstant records name as an enum constant, to be classified as
// SymEnumConstant from now on.
func (s *SymbolTable) AddEnumConstant(name string) {
	s.enumConsts[name] = true
}

// SymType classifies name as the parser currently understands it.
func (s *SymbolTable) SymType(name string) SymKind {
	switch {
	case s.typedefNames[name]:
		return SymTypedefName
	case s.enumConsts[name]:
		return SymEnumConstant
	default:
		return SymIdent
	}
}
