// Package binarygen is the binary wire-format emitter: given a filtered
// model.Registry, it produces the Go declarations of
//
//	type BinaryWriter func(p []byte) error
//	type BinaryReader func(p []byte) error
//
//	func Store<Type>(val *<Type>, w BinaryWriter) error
//	func Load<Type>(val *<Type>, r BinaryReader) error
//
// for every reachable Native and Composite type, plus forwarders for
// every surviving Alias. It is a direct translation of backend_raw.c:
// the big-endian width loop, the uniform one-byte presence flag ahead of
// every nullable slot, and the fixed/var/zeroterm array loops are all
// carried over unchanged in meaning — only their rendering target
// changes, from fprintf'd C text to dst statement/expression nodes
// printed as Go.
package binarygen

import (
	"go/token"
	"sort"

	"github.com/dave/dst"

	"github.com/dius/cser/internal/cgenerr"
	"github.com/dius/cser/internal/gen/goast"
	"github.com/dius/cser/internal/gen/typesgen"
	"github.com/dius/cser/internal/model"
)

// Generate returns the BinaryWriter/BinaryReader declarations plus one
// Store/Load pair per reachable type and one forwarder pair per alias,
// along with the set of stdlib import paths the generated bodies need
// (cmd/cser merges this into the output file's import block).
func Generate(reg *model.Registry) (decls []dst.Decl, imports []string, err error) {
	need := map[string]bool{}
	decls = append(decls, callbackTypeDecls())

	for _, t := range reg.Types() {
		switch t.Classification {
		case model.Native:
			if t.NativeInfo.Width > 1 {
				need["encoding/binary"] = true
			}
			if t.NativeInfo.Kind == model.KindFloat {
				need["math"] = true
			}
			decls = append(decls, storeNativeFunc(t), loadNativeFunc(t))
		case model.Composite:
			if usesReflectSentinel(t) {
				need["reflect"] = true
			}
			store, serr := storeCompositeFunc(reg, t)
			if serr != nil {
				return nil, nil, serr
			}
			load, lerr := loadCompositeFunc(reg, t)
			if lerr != nil {
				return nil, nil, lerr
			}
			decls = append(decls, store, load)
		}
	}

	for _, a := range reg.Aliases() {
		decls = append(decls, aliasForwarders(reg, a)...)
	}

	for path := range need {
		imports = append(imports, path)
	}
	sort.Strings(imports)

	return decls, imports, nil
}

func usesReflectSentinel(t *model.Type) bool {
	for _, m := range t.Members {
		if m.Cardinality == model.ZeroTermArray && m.BaseType != "char" {
			return true
		}
	}
	return false
}

func callbackTypeDecls() dst.Decl {
	funcType := func() *dst.FuncType {
		return &dst.FuncType{
			Params:  &dst.FieldList{List: []*dst.Field{goast.FieldParam("p", &dst.ArrayType{Elt: goast.Ident("byte")})}},
			Results: &dst.FieldList{List: []*dst.Field{goast.FieldParam("", goast.Ident("error"))}},
		}
	}
	return &dst.GenDecl{
		Tok: token.TYPE,
		Specs: []dst.Spec{
			&dst.TypeSpec{Name: goast.Ident("BinaryWriter"), Type: funcType()},
			&dst.TypeSpec{Name: goast.Ident("BinaryReader"), Type: funcType()},
		},
	}
}

func storeFuncName(reg *model.Registry, baseType string) string {
	if t, ok := reg.LookupType(baseType); ok {
		return "Store" + goast.GoName(t.Name)
	}
	return "Store" + goast.GoName(baseType)
}

func loadFuncName(reg *model.Registry, baseType string) string {
	if t, ok := reg.LookupType(baseType); ok {
		return "Load" + goast.GoName(t.Name)
	}
	return "Load" + goast.GoName(baseType)
}

// storeNativeFunc renders the big-endian width loop of write_store_native
// using encoding/binary (the idiomatic Go replacement for the original's
// hand-rolled byte-shift loop — the exact stdlib tool for this job, and
// it produces byte-identical output) plus math.FloatNbits for the two
// floating-point widths.
func storeNativeFunc(t *model.Type) *dst.FuncDecl {
	name := "Store" + goast.GoName(t.Name)
	goType := t.NativeInfo.GoType
	params := []*dst.Field{
		goast.FieldParam("val", goast.Star(goast.Ident(goType))),
		goast.FieldParam("w", goast.Ident("BinaryWriter")),
	}
	results := []*dst.Field{goast.FieldParam("", goast.Ident("error"))}

	return goast.Func(name, params, results, storeNativeBody(t)...)
}

func storeNativeBody(t *model.Type) []dst.Stmt {
	width := t.NativeInfo.Width
	deref := goast.Star(goast.Ident("val"))

	if width == 1 {
		if t.NativeInfo.Kind == model.KindBool {
			return []dst.Stmt{
				goast.VarDecl("b", goast.Ident("byte")),
				goast.If(deref, goast.Assign(token.ASSIGN, goast.Ident("b"), goast.IntLit(1))),
				goast.Return(goast.Call(goast.Ident("w"),
					&dst.CompositeLit{Type: &dst.ArrayType{Elt: goast.Ident("byte")}, Elts: []dst.Expr{goast.Ident("b")}})),
			}
		}
		byteExpr := goast.Call(goast.Ident("byte"), deref)
		return []dst.Stmt{
			goast.Return(goast.Call(goast.Ident("w"),
				&dst.CompositeLit{Type: &dst.ArrayType{Elt: goast.Ident("byte")}, Elts: []dst.Expr{byteExpr}})),
		}
	}

	buf := goast.VarDecl("buf", goast.ByteArrayType(width))
	putExpr := putUintExpr(width, uintBits(t, deref))
	return []dst.Stmt{
		buf,
		goast.ExprStmt(putExpr),
		goast.Return(goast.Call(goast.Ident("w"), goast.Slice(goast.Ident("buf")))),
	}
}

func loadNativeFunc(t *model.Type) *dst.FuncDecl {
	name := "Load" + goast.GoName(t.Name)
	goType := t.NativeInfo.GoType
	params := []*dst.Field{
		goast.FieldParam("val", goast.Star(goast.Ident(goType))),
		goast.FieldParam("r", goast.Ident("BinaryReader")),
	}
	results := []*dst.Field{goast.FieldParam("", goast.Ident("error"))}

	return goast.Func(name, params, results, loadNativeBody(t)...)
}

func loadNativeBody(t *model.Type) []dst.Stmt {
	width := t.NativeInfo.Width
	goType := t.NativeInfo.GoType

	if width == 1 {
		buf := goast.VarDecl("buf", goast.ByteArrayType(1))
		read := goast.Assign(token.DEFINE, goast.Ident("err"), goast.Call(goast.Ident("r"), goast.Slice(goast.Ident("buf"))))
		var rhs dst.Expr = goast.Index(goast.Ident("buf"), goast.IntLit(0))
		if t.NativeInfo.Kind == model.KindBool {
			rhs = &dst.BinaryExpr{X: rhs, Op: token.NEQ, Y: goast.IntLit(0)}
		} else {
			rhs = goast.Call(goast.Ident(goType), rhs)
		}
		assign := goast.Assign(token.ASSIGN, goast.Star(goast.Ident("val")), rhs)
		return []dst.Stmt{buf, read, goast.IfErrNotNil(goast.Return(goast.Ident("err"))), assign, goast.Return(goast.Ident("nil"))}
	}

	buf := goast.VarDecl("buf", goast.ByteArrayType(width))
	read := goast.Assign(token.DEFINE, goast.Ident("err"), goast.Call(goast.Ident("r"), goast.Slice(goast.Ident("buf"))))
	getExpr := getUintExpr(width)
	assign := goast.Assign(token.ASSIGN, goast.Star(goast.Ident("val")), fromBits(t, getExpr))

	return []dst.Stmt{
		buf,
		read,
		goast.IfErrNotNil(goast.Return(goast.Ident("err"))),
		assign,
		goast.Return(goast.Ident("nil")),
	}
}

func binaryEndianSel(method string) dst.Expr {
	return goast.Sel(goast.Sel(goast.Ident("binary"), "BigEndian"), method)
}

func putUintExpr(width int, value dst.Expr) dst.Expr {
	method := map[int]string{2: "PutUint16", 4: "PutUint32", 8: "PutUint64"}[width]
	return goast.Call(binaryEndianSel(method), goast.Slice(goast.Ident("buf")), value)
}

func getUintExpr(width int) dst.Expr {
	method := map[int]string{2: "Uint16", 4: "Uint32", 8: "Uint64"}[width]
	return goast.Call(binaryEndianSel(method), goast.Slice(goast.Ident("buf")))
}

// uintBits converts a dereferenced native value to the unsigned integer
// expression encoding.BigEndian.PutUintN expects: the value's own bits
// for integers (a same-width int->uint conversion preserves the bit
// pattern), or math.FloatNbits for floats.
func uintBits(t *model.Type, val dst.Expr) dst.Expr {
	width := t.NativeInfo.Width
	if t.NativeInfo.Kind == model.KindFloat {
		fn := map[int]string{4: "Float32bits", 8: "Float64bits"}[width]
		return goast.Call(goast.Sel(goast.Ident("math"), fn), val)
	}
	uintType := map[int]string{2: "uint16", 4: "uint32", 8: "uint64"}[width]
	return goast.Call(goast.Ident(uintType), val)
}

// fromBits converts the unsigned integer read off the wire back to the
// native type's Go rendering.
func fromBits(t *model.Type, bits dst.Expr) dst.Expr {
	width := t.NativeInfo.Width
	if t.NativeInfo.Kind == model.KindFloat {
		fn := map[int]string{4: "Float32frombits", 8: "Float64frombits"}[width]
		return goast.Call(goast.Sel(goast.Ident("math"), fn), bits)
	}
	return goast.Call(goast.Ident(t.NativeInfo.GoType), bits)
}

// storeCompositeFunc renders write_store_struct: one presence-guarded (or
// plain) statement group per member, in declaration order.
func storeCompositeFunc(reg *model.Registry, t *model.Type) (*dst.FuncDecl, error) {
	name := "Store" + goast.GoName(t.Name)
	typeExpr := goast.Ident(goast.GoName(t.Name))
	params := []*dst.Field{
		goast.FieldParam("val", goast.Star(typeExpr)),
		goast.FieldParam("w", goast.Ident("BinaryWriter")),
	}
	results := []*dst.Field{goast.FieldParam("", goast.Ident("error"))}

	var body []dst.Stmt
	for _, m := range t.Members {
		stmts, err := storeMemberStmts(reg, m)
		if err != nil {
			return nil, err
		}
		body = append(body, goast.Block(stmts...))
	}
	body = append(body, goast.Return(goast.Ident("nil")))

	return goast.Func(name, params, results, body...), nil
}

func storeMemberStmts(reg *model.Registry, m model.Member) ([]dst.Stmt, error) {
	field := goast.Sel(goast.Ident("val"), goast.GoName(m.Name))
	fn := storeFuncName(reg, m.BaseType)

	switch m.Cardinality {
	case model.Single:
		if !m.IsPointer() {
			return []dst.Stmt{storeCallAssign(fn, goast.Addr(field))}, nil
		}
		inner := storeCallAssign(fn, field)
		return presenceStoreStmts(&dst.BinaryExpr{X: field, Op: token.NEQ, Y: goast.Ident("nil")}, inner), nil

	case model.FixedArray:
		elt := goast.Index(field, goast.Ident("i"))
		var loopBody dst.Stmt
		if m.IsPointer() {
			inner := storeCallAssign(fn, elt)
			presence := presenceStoreStmts(&dst.BinaryExpr{X: elt, Op: token.NEQ, Y: goast.Ident("nil")}, inner)
			loopBody = goast.Block(presence...)
		} else {
			loopBody = storeCallAssign(fn, goast.Addr(elt))
		}
		return []dst.Stmt{goast.CStyleFor("i", goast.RawExpr(m.ArrSz), loopBody)}, nil

	case model.VarArray:
		count := goast.Call(goast.Ident("int"), goast.Sel(goast.Ident("val"), goast.GoName(m.VarSizeMember)))
		loop := goast.CStyleFor("i", count, storeCallAssign(fn, goast.Addr(goast.Index(field, goast.Ident("i")))))
		cond := &dst.BinaryExpr{X: field, Op: token.NEQ, Y: goast.Ident("nil")}
		return presenceStoreStmts(cond, loop), nil

	case model.ZeroTermArray:
		if m.BaseType == "char" {
			return storeCharStringStmts(field), nil
		}
		return storeZeroTermSliceStmts(reg, field, fn, m.BaseType), nil
	}

	return nil, &cgenerr.UnsupportedShape{TypeName: m.Name, Reason: "unrecognised cardinality"}
}

// storeCallAssign builds "if err := Store<Type>(arg, w); err != nil { return err }".
func storeCallAssign(funcName string, arg dst.Expr) *dst.IfStmt {
	ifs := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
	ifs.Init = goast.Assign(token.DEFINE, goast.Ident("err"), goast.Call(goast.Ident(funcName), arg, goast.Ident("w")))
	return ifs
}

// writeErrIf builds "if err := call; err != nil { return err }" against a
// reader/writer callback invocation.
func writeErrIf(call dst.Expr) *dst.IfStmt {
	ifs := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
	ifs.Init = goast.Assign(token.DEFINE, goast.Ident("err"), call)
	return ifs
}

// presenceStoreStmts writes a one-byte presence flag derived from cond,
// then runs inner only if the flag was set.
func presenceStoreStmts(cond dst.Expr, inner dst.Stmt) []dst.Stmt {
	return []dst.Stmt{
		goast.VarDecl("present", goast.Ident("byte")),
		goast.If(cond, goast.Assign(token.ASSIGN, goast.Ident("present"), goast.IntLit(1))),
		writeErrIf(goast.Call(goast.Ident("w"), &dst.CompositeLit{Type: &dst.ArrayType{Elt: goast.Ident("byte")}, Elts: []dst.Expr{goast.Ident("present")}})),
		goast.If(&dst.BinaryExpr{X: goast.Ident("present"), Op: token.EQL, Y: goast.IntLit(1)}, inner),
	}
}

// storeCharStringStmts writes the presence byte (always 1: a Go string
// has no nil to signal absence with, per the documented simplification),
// then the string's bytes followed by a zero terminator.
func storeCharStringStmts(field dst.Expr) []dst.Stmt {
	writePresent := writeErrIf(goast.Call(goast.Ident("w"),
		&dst.CompositeLit{Type: &dst.ArrayType{Elt: goast.Ident("byte")}, Elts: []dst.Expr{goast.IntLit(1)}}))
	writeBytes := writeErrIf(goast.Call(goast.Ident("w"), goast.Call(goast.Ident("[]byte"), field)))
	writeTerm := writeErrIf(goast.Call(goast.Ident("w"), &dst.CompositeLit{Type: goast.ByteArrayType(1)}))
	return []dst.Stmt{writePresent, writeBytes, writeTerm}
}

// storeZeroTermSliceStmts writes the slice elements followed by an
// all-zero sentinel element, per backend_raw.c's variable-length
// zero-terminated array convention.
func storeZeroTermSliceStmts(reg *model.Registry, field dst.Expr, fn, baseType string) []dst.Stmt {
	cond := &dst.BinaryExpr{X: field, Op: token.NEQ, Y: goast.Ident("nil")}
	loop := goast.RangeStmt(goast.Ident("i"), nil, field, storeCallAssign(fn, goast.Addr(goast.Index(field, goast.Ident("i")))))
	sentinelDecl := goast.VarDecl("sentinel", typesgen.GoTypeExpr(reg, baseType))
	sentinelStore := storeCallAssign(fn, goast.Addr(goast.Ident("sentinel")))
	inner := goast.Block(loop, sentinelDecl, sentinelStore)
	return presenceStoreStmts(cond, inner)
}

// loadCompositeFunc renders write_load_struct.
func loadCompositeFunc(reg *model.Registry, t *model.Type) (*dst.FuncDecl, error) {
	name := "Load" + goast.GoName(t.Name)
	typeExpr := goast.Ident(goast.GoName(t.Name))
	params := []*dst.Field{
		goast.FieldParam("val", goast.Star(typeExpr)),
		goast.FieldParam("r", goast.Ident("BinaryReader")),
	}
	results := []*dst.Field{goast.FieldParam("", goast.Ident("error"))}

	var body []dst.Stmt
	for _, m := range t.Members {
		stmts, err := loadMemberStmts(reg, m)
		if err != nil {
			return nil, err
		}
		body = append(body, goast.Block(stmts...))
	}
	body = append(body, goast.Return(goast.Ident("nil")))

	return goast.Func(name, params, results, body...), nil
}

func loadMemberStmts(reg *model.Registry, m model.Member) ([]dst.Stmt, error) {
	field := goast.Sel(goast.Ident("val"), goast.GoName(m.Name))
	fn := loadFuncName(reg, m.BaseType)

	switch m.Cardinality {
	case model.Single:
		if !m.IsPointer() {
			return []dst.Stmt{loadCallAssign(fn, goast.Addr(field))}, nil
		}
		alloc := goast.Assign(token.ASSIGN, field, goast.Addr(&dst.CompositeLit{Type: typesgen.GoTypeExpr(reg, m.BaseType)}))
		inner := goast.Block(alloc, loadCallAssign(fn, field))
		return presenceLoadStmts(inner), nil

	case model.FixedArray:
		elt := goast.Index(field, goast.Ident("i"))
		var loopBody dst.Stmt
		if m.IsPointer() {
			alloc := goast.Assign(token.ASSIGN, elt, goast.Addr(&dst.CompositeLit{Type: typesgen.GoTypeExpr(reg, m.BaseType)}))
			inner := goast.Block(alloc, loadCallAssign(fn, elt))
			loopBody = goast.Block(presenceLoadStmts(inner)...)
		} else {
			loopBody = loadCallAssign(fn, goast.Addr(elt))
		}
		return []dst.Stmt{goast.CStyleFor("i", goast.RawExpr(m.ArrSz), loopBody)}, nil

	case model.VarArray:
		sizeField := goast.Sel(goast.Ident("val"), goast.GoName(m.VarSizeMember))
		makeSlice := goast.Assign(token.ASSIGN, field,
			goast.Call(goast.Ident("make"), &dst.ArrayType{Elt: typesgen.GoTypeExpr(reg, m.BaseType)}, sizeField))
		loop := goast.CStyleFor("i", sizeField, loadCallAssign(fn, goast.Addr(goast.Index(field, goast.Ident("i")))))
		inner := goast.Block(makeSlice, loop)
		return presenceLoadStmts(inner), nil

	case model.ZeroTermArray:
		if m.BaseType == "char" {
			return loadCharStringStmts(field), nil
		}
		return loadZeroTermSliceStmts(reg, field, fn, m.BaseType), nil
	}

	return nil, &cgenerr.UnsupportedShape{TypeName: m.Name, Reason: "unrecognised cardinality"}
}

func loadCallAssign(funcName string, arg dst.Expr) *dst.IfStmt {
	ifs := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
	ifs.Init = goast.Assign(token.DEFINE, goast.Ident("err"), goast.Call(goast.Ident(funcName), arg, goast.Ident("r")))
	return ifs
}

func presenceLoadStmts(inner dst.Stmt) []dst.Stmt {
	readBuf := goast.VarDecl("presentBuf", goast.ByteArrayType(1))
	read := writeErrIf(goast.Call(goast.Ident("r"), goast.Slice(goast.Ident("presentBuf"))))
	cond := &dst.BinaryExpr{X: goast.Index(goast.Ident("presentBuf"), goast.IntLit(0)), Op: token.EQL, Y: goast.IntLit(1)}
	return []dst.Stmt{readBuf, read, goast.If(cond, inner)}
}

// loadCharStringStmts reads the presence byte and, only when it's set,
// reads the zero-terminated byte run one byte at a time (the run's
// length isn't known ahead of time, so a fixed-width read isn't an
// option).
func loadCharStringStmts(field dst.Expr) []dst.Stmt {
	declBytes := goast.Assign(token.DEFINE, goast.Ident("sb"), &dst.CompositeLit{Type: &dst.ArrayType{Elt: goast.Ident("byte")}})
	declOne := goast.VarDecl("one", goast.ByteArrayType(1))
	readOne := writeErrIf(goast.Call(goast.Ident("r"), goast.Slice(goast.Ident("one"))))
	breakIf := goast.If(&dst.BinaryExpr{X: goast.Index(goast.Ident("one"), goast.IntLit(0)), Op: token.EQL, Y: goast.IntLit(0)}, &dst.BranchStmt{Tok: token.BREAK})
	appendByte := goast.Assign(token.ASSIGN, goast.Ident("sb"), goast.Call(goast.Ident("append"), goast.Ident("sb"), goast.Index(goast.Ident("one"), goast.IntLit(0))))
	loop := &dst.ForStmt{Body: goast.Block(declOne, readOne, breakIf, appendByte)}
	assignField := goast.Assign(token.ASSIGN, field, goast.Call(goast.Ident("string"), goast.Ident("sb")))

	return presenceLoadStmts(goast.Block(declBytes, loop, assignField))
}

// loadZeroTermSliceStmts reads elements until one equals the type's zero
// value (the sentinel written by storeZeroTermSliceStmts), comparing via
// reflect.DeepEqual since element types may not be comparable with ==
// (e.g. a composite containing a slice field).
func loadZeroTermSliceStmts(reg *model.Registry, field dst.Expr, fn, baseType string) []dst.Stmt {
	eltType := typesgen.GoTypeExpr(reg, baseType)
	declItems := goast.Assign(token.DEFINE, goast.Ident("items"), &dst.CompositeLit{Type: &dst.ArrayType{Elt: eltType}})
	declZero := goast.VarDecl("zero", eltType)
	declElem := goast.VarDecl("elem", eltType)
	loadElem := loadCallAssign(fn, goast.Addr(goast.Ident("elem")))
	isZero := goast.Call(goast.Sel(goast.Ident("reflect"), "DeepEqual"), goast.Ident("elem"), goast.Ident("zero"))
	breakIf := goast.If(isZero, &dst.BranchStmt{Tok: token.BREAK})
	appendItem := goast.Assign(token.ASSIGN, goast.Ident("items"), goast.Call(goast.Ident("append"), goast.Ident("items"), goast.Ident("elem")))
	loop := &dst.ForStmt{Body: goast.Block(declElem, loadElem, breakIf, appendItem)}
	assignField := goast.Assign(token.ASSIGN, field, goast.Ident("items"))
	inner := goast.Block(declItems, declZero, loop, assignField)
	return presenceLoadStmts(inner)
}

// aliasForwarders renders one Store/Load pair per alias that calls
// straight through to the target type's Store/Load, mirroring the
// original's "static inline" forwarder stubs.
func aliasForwarders(reg *model.Registry, a *model.Alias) []dst.Decl {
	aliasGoType := goast.Ident(goast.GoName(a.Name))
	storeName := "Store" + goast.GoName(a.Name)
	loadName := "Load" + goast.GoName(a.Name)
	targetStore := storeFuncName(reg, a.Target)
	targetLoad := loadFuncName(reg, a.Target)

	store := goast.Func(storeName,
		[]*dst.Field{goast.FieldParam("val", goast.Star(aliasGoType)), goast.FieldParam("w", goast.Ident("BinaryWriter"))},
		[]*dst.Field{goast.FieldParam("", goast.Ident("error"))},
		goast.Return(goast.Call(goast.Ident(targetStore), goast.Ident("val"), goast.Ident("w"))),
	)
	load := goast.Func(loadName,
		[]*dst.Field{goast.FieldParam("val", goast.Star(aliasGoType)), goast.FieldParam("r", goast.Ident("BinaryReader"))},
		[]*dst.Field{goast.FieldParam("", goast.Ident("error"))},
		goast.Return(goast.Call(goast.Ident(targetLoad), goast.Ident("val"), goast.Ident("r"))),
	)

	return []dst.Decl{store, load}
}
