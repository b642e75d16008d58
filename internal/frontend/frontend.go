// Package frontend implements the assembler that receives parser callbacks
// and builds the model.Registry: it maintains nested capture scopes,
// builds Members and Types, folds decorations, resolves typedef chains,
// and handles the "single"/"zeroterm"/"vararray:F"/"omit"/"emit" pragmas.
//
// It is a direct transliteration of frontend.c from the DiUS cser tool:
// Capture/SetType/SetName/NotePointer/NoteArraySize/HandlePragma/
// CaptureMember/EndCapture correspond 1:1 to the C functions of the same
// name, and mergeDecorations/markCharZeroterm reproduce merge_decorations
// and mark_char_zeroterm exactly.
package frontend

import (
	"fmt"
	"strings"

	log "github.com/golang/glog"

	"github.com/dius/cser/internal/cgenerr"
	"github.com/dius/cser/internal/model"
)

// parseInfo accumulates the syntactic decorations seen so far for the
// member or typedef currently being captured. It corresponds to
// parse_info_t in the original.
type parseInfo struct {
	ptr      int
	baseType string
	name     string
	arrSz    string
	// arrayDef mirrors the C "array_def" string: nil means no pragma seen
	// (default inference applies); "0"/"1" mean single/zeroterm; anything
	// else names the variable-length sibling member.
	arrayDef *string
	omit     bool
}

func (p *parseInfo) undecorated() bool {
	return p.arrSz == "" && p.ptr == 0
}

// Assembler implements the parser callback API and builds into a
// model.Registry.
type Assembler struct {
	registry *model.Registry

	infoStack        []*parseInfo
	memberScopeStack [][]model.Member
	capturingDepth   int

	pendingUnnamed  *model.Type
	unnamedCounter  int

	// Warnf receives non-fatal diagnostics (e.g. ignored unsupported
	// members), mirroring the original's fprintf(stderr, "warning: ...").
	// Defaults to glog.Warningf; tests substitute a recording func.
	Warnf func(format string, args ...any)
}

// New returns an Assembler building into reg. reg should already have
// model.RegisterBuiltins applied so that early type lookups resolve.
func New(reg *model.Registry) *Assembler {
	return &Assembler{
		registry:  reg,
		infoStack: []*parseInfo{{}},
		Warnf:     log.Warningf,
	}
}

func (a *Assembler) warn(format string, args ...any) {
	if a.Warnf != nil {
		a.Warnf(format, args...)
	}
}

func (a *Assembler) top() *parseInfo {
	return a.infoStack[len(a.infoStack)-1]
}

func (a *Assembler) resetTop() {
	a.infoStack[len(a.infoStack)-1] = &parseInfo{}
}

// Capture starts a capture. If withMembers, it pushes a new info frame and a
// fresh member-list scope; a bare typedef capture (withMembers == false)
// pushes nothing and keeps accumulating into the frame active at the call
// site.
func (a *Assembler) Capture(withMembers bool) {
	a.capturingDepth++
	if withMembers {
		a.infoStack = append(a.infoStack, &parseInfo{})
		a.memberScopeStack = append(a.memberScopeStack, nil)
	}
}

// SetType records the base type name of the slot currently being captured.
func (a *Assembler) SetType(baseType string) {
	if a.capturingDepth == 0 {
		return
	}
	info := a.top()
	if info.baseType != "" && baseType != "" {
		a.warn("changing basetype from %q to %q", info.baseType, baseType)
	}
	info.baseType = baseType
}

// SetName records the member or typedef name currently being captured.
func (a *Assembler) SetName(name string) {
	if a.capturingDepth == 0 {
		return
	}
	a.top().name = name
}

// NotePointer records one level of pointer indirection on the slot
// currently being captured.
func (a *Assembler) NotePointer() {
	if a.capturingDepth == 0 {
		return
	}
	a.top().ptr++
}

// NoteArraySize records an array extent. Repeated calls combine extents by
// textual multiplication, collapsing e.g. int x[2][3] into "(2)*(3)".
func (a *Assembler) NoteArraySize(expr string) {
	if a.capturingDepth == 0 {
		return
	}
	info := a.top()
	if info.arrSz != "" {
		info.arrSz = fmt.Sprintf("(%s)*(%s)", info.arrSz, expr)
	} else {
		info.arrSz = expr
	}
}

// HandlePragma processes a "cser ..." pragma. Pragmas not prefixed with
// "cser " are ignored (they belong to some other tool); pragmas seen
// outside of a capture scope are ignored entirely.
func (a *Assembler) HandlePragma(text string) {
	if a.capturingDepth == 0 {
		return
	}
	prag := strings.TrimPrefix(text, `"`)
	const marker = "cser "
	if !strings.HasPrefix(prag, marker) {
		return
	}
	prag = strings.TrimSuffix(strings.TrimPrefix(prag, marker), `"`)

	info := a.top()
	switch {
	case prag == "single":
		v := "0"
		info.arrayDef = &v
	case prag == "zeroterm":
		v := "1"
		info.arrayDef = &v
	case strings.HasPrefix(prag, "vararray:"):
		v := strings.TrimPrefix(prag, "vararray:")
		info.arrayDef = &v
	case prag == "omit":
		info.omit = true
	case prag == "emit":
		info.omit = false
	}
}

// AddPlaceholder registers name as a forward-declared composite tag.
func (a *Assembler) AddPlaceholder(name string) {
	a.registry.AddPlaceholder(name)
}

// HasPlaceholder reports whether name was forward-declared and is not yet a
// complete type.
func (a *Assembler) HasPlaceholder(name string) bool {
	return a.registry.HasPlaceholder(name)
}

// mergeDecorations combines the decorations coming from a typedef layer
// (src) with those syntactically present at the current use (info), per
// spec.md §4.2.
func mergeDecorations(dst *model.Decorations, src model.Decorations, info *parseInfo) error {
	dst.PtrLevel = info.ptr + src.PtrLevel

	infoHasArr := info.arrSz != ""
	oneDim := src.Cardinality == model.Single || !infoHasArr
	twoDim := src.Cardinality == model.FixedArray && infoHasArr
	if !oneDim && !twoDim {
		return &cgenerr.UnsupportedShape{
			TypeName: info.name,
			Reason:   fmt.Sprintf("unable to combine arrays for types %q and %q", info.baseType, info.name),
		}
	}

	if oneDim {
		if !infoHasArr && src.Cardinality == model.Single {
			dst.Cardinality = model.Single
		} else {
			dst.Cardinality = model.FixedArray
		}
		if infoHasArr {
			dst.ArrSz = info.arrSz
		} else if src.ArrSz != "" {
			dst.ArrSz = src.ArrSz
		}
		return nil
	}

	dst.Cardinality = model.FixedArray
	dst.ArrSz = fmt.Sprintf("(%s)*(%s)", info.arrSz, src.ArrSz)
	return nil
}

// markCharZeroterm reinterprets a bare "char *" member (no explicit array
// pragma) as a zero-terminated array, i.e. a C string.
func markCharZeroterm(baseType string, d *model.Decorations) {
	if d.PtrLevel == 1 && d.Cardinality == model.Single && baseType == "char" {
		d.Cardinality = model.ZeroTermArray
	}
}

// CaptureMember finalizes one struct member using the current info frame.
func (a *Assembler) CaptureMember() error {
	if len(a.memberScopeStack) == 0 {
		return fmt.Errorf("nowhere to capture member to")
	}

	info := a.top()
	if info.omit {
		a.resetTop()
		return nil
	}
	if info.baseType == "" {
		a.warn("ignoring unsupported member")
		a.resetTop()
		return nil
	}

	t, found := a.registry.Lookup(info.baseType)
	ph := a.registry.HasPlaceholder(info.baseType)
	if !found && !ph {
		return &cgenerr.LookupFailure{TypeName: info.baseType, UsedBy: info.name}
	}

	name := info.name
	if name == "" {
		a.unnamedCounter++
		name = fmt.Sprintf("__unnamed_bitfield_%d", a.unnamedCounter)
	}

	var baseType string
	var src model.Decorations
	switch {
	case found && t.Classification == model.Decorated:
		baseType = t.BaseType
		src = t.Decorations
	case found:
		baseType = t.Name
	default:
		baseType = info.baseType
	}

	m := model.Member{Name: name, BaseType: baseType}
	if err := mergeDecorations(&m.Decorations, src, info); err != nil {
		return err
	}

	if info.arrayDef == nil {
		markCharZeroterm(baseType, &m.Decorations)
	} else {
		if info.ptr == 0 {
			return &cgenerr.UnsupportedShape{TypeName: name, Reason: "pragma can only apply to pointer type"}
		}
		switch *info.arrayDef {
		case "0":
			m.Cardinality = model.Single
		case "1":
			m.Cardinality = model.ZeroTermArray
		default:
			sibling := *info.arrayDef
			m.Cardinality = model.VarArray
			ok := false
			for _, existing := range a.memberScopeStack[len(a.memberScopeStack)-1] {
				if existing.Name == sibling {
					ok = true
					break
				}
			}
			if !ok {
				return &cgenerr.UnsupportedShape{
					TypeName: name,
					Reason:   fmt.Sprintf("variable array size member %q not found", sibling),
				}
			}
			m.VarSizeMember = sibling
		}
	}

	top := len(a.memberScopeStack) - 1
	a.memberScopeStack[top] = append(a.memberScopeStack[top], m)
	a.resetTop()
	return nil
}

// EndCapture produces one Type or Alias from the current info frame. If
// endOfMembers, it pops that frame and its member-list scope; otherwise it
// resets the frame in place.
func (a *Assembler) EndCapture(endOfMembers bool) error {
	a.capturingDepth--

	if endOfMembers {
		info := a.top()
		name := info.name

		a.infoStack = a.infoStack[:len(a.infoStack)-1]
		top := len(a.memberScopeStack) - 1
		members := a.memberScopeStack[top]
		a.memberScopeStack = a.memberScopeStack[:top]

		if name == "" {
			a.pendingUnnamed = &model.Type{Classification: model.Composite, Members: members}
			return nil
		}
		a.registry.AddType(&model.Type{Name: name, Classification: model.Composite, Members: members})
		return nil
	}

	info := a.top()

	if a.pendingUnnamed != nil && info.baseType != "" {
		a.warn("ignoring unmentionable struct/union")
		a.pendingUnnamed = nil
	}

	if a.pendingUnnamed != nil {
		if !info.undecorated() {
			return &cgenerr.UnsupportedShape{TypeName: info.name, Reason: "typedefs to unnamed struct pointers not supported"}
		}
		a.pendingUnnamed.Name = info.name
		a.registry.AddType(a.pendingUnnamed)
		a.pendingUnnamed = nil
		a.resetTop()
		return nil
	}

	t, found := a.registry.Lookup(info.baseType)
	ph := a.registry.HasPlaceholder(info.baseType)
	if !found && !ph {
		return &cgenerr.LookupFailure{TypeName: info.baseType, UsedBy: info.name}
	}

	if info.undecorated() {
		a.registry.AddAlias(&model.Alias{Name: info.name, Target: info.baseType})
		a.resetTop()
		return nil
	}

	var newType *model.Type
	if found {
		switch t.Classification {
		case model.Native, model.Composite:
			d := model.Decorations{PtrLevel: info.ptr, Cardinality: model.Single}
			if info.arrSz != "" {
				d.Cardinality = model.FixedArray
				d.ArrSz = info.arrSz
			}
			newType = &model.Type{
				Name:           info.name,
				Classification: model.Decorated,
				BaseType:       t.Name,
				Decorations:    d,
			}
		case model.Decorated:
			newType = &model.Type{
				Name:           info.name,
				Classification: model.Decorated,
				BaseType:       t.BaseType,
			}
			if err := mergeDecorations(&newType.Decorations, t.Decorations, info); err != nil {
				return err
			}
		}
	} else {
		// Placeholder reference: a pointer/array typedef to a
		// forward-declared composite that is not yet complete.
		d := model.Decorations{PtrLevel: info.ptr, Cardinality: model.Single}
		if info.arrSz != "" {
			d.Cardinality = model.FixedArray
			d.ArrSz = info.arrSz
		}
		newType = &model.Type{
			Name:           info.name,
			Classification: model.Decorated,
			BaseType:       info.baseType,
			Decorations:    d,
		}
	}

	markCharZeroterm(newType.BaseType, &newType.Decorations)
	a.registry.AddType(newType)
	a.resetTop()
	return nil
}
