// Package docgen is the structured-document emitter: given a filtered
// model.Registry, it produces the Go declarations of
//
//	type Tag struct { Name string; HasValue bool }
//	type DocSink interface {
//	    OpenTag(Tag) error
//	    SetValue(string) error
//	    CloseTag(string) error
//	    NextTag() (Tag, error)
//	    GetValue() (string, error)
//	}
//
//	func StoreDoc<Type>(val *<Type>, sink DocSink) error
//	func LoadDoc<Type>(val *<Type>, sink DocSink) error
//
// translating backend_xml.c's nested open/close-tag structure, one
// function per function (write_store_native, write_load_native,
// write_store_struct/write_store_member_item/write_store_begin,
// write_load_struct/write_load_member_item) the same way binarygen
// mirrors backend_raw.c. Function names are prefixed "Doc" so a
// generated file selecting both backends for the same type never
// collides with binarygen's Store<Type>/Load<Type>.
package docgen

import (
	"go/token"
	"sort"

	"github.com/dave/dst"

	"github.com/dius/cser/internal/cgenerr"
	"github.com/dius/cser/internal/gen/goast"
	"github.com/dius/cser/internal/gen/typesgen"
	"github.com/dius/cser/internal/model"
)

// Generate returns the DocSink/Tag declarations plus one StoreDoc/LoadDoc
// pair per reachable type and one forwarder pair per alias, along with
// the stdlib import paths the bodies need. Floating-point Native types
// are rejected at generation time (backend_xml.c's write_store_native /
// write_load_native do the same, refusing to emit for "float"/"double"),
// returning a *cgenerr.EmitterDomain.
func Generate(reg *model.Registry) (decls []dst.Decl, imports []string, err error) {
	need := map[string]bool{"fmt": true, "strconv": true}
	decls = append(decls, tagStructDecl(), docSinkInterfaceDecl())

	for _, t := range reg.Types() {
		switch t.Classification {
		case model.Native:
			if t.NativeInfo.Kind == model.KindFloat {
				return nil, nil, &cgenerr.EmitterDomain{Emitter: "doc", TypeName: t.Name}
			}
			decls = append(decls, storeDocNativeFunc(t), loadDocNativeFunc(t))
		case model.Composite:
			if usesReflectSentinel(t) {
				need["reflect"] = true
			}
			store, serr := storeDocCompositeFunc(reg, t)
			if serr != nil {
				return nil, nil, serr
			}
			load, lerr := loadDocCompositeFunc(reg, t)
			if lerr != nil {
				return nil, nil, lerr
			}
			decls = append(decls, store, load)
		}
	}

	for _, a := range reg.Aliases() {
		decls = append(decls, aliasForwarders(reg, a)...)
	}

	for path, needed := range need {
		if needed {
			imports = append(imports, path)
		}
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

func tagStructDecl() dst.Decl {
	return &dst.GenDecl{
		Tok: token.TYPE,
		Specs: []dst.Spec{
			&dst.TypeSpec{
				Name: goast.Ident("Tag"),
				Type: &dst.StructType{Fields: &dst.FieldList{List: []*dst.Field{
					{Names: []*dst.Ident{goast.Ident("Name")}, Type: goast.Ident("string")},
					{Names: []*dst.Ident{goast.Ident("HasValue")}, Type: goast.Ident("bool")},
				}}},
			},
		},
	}
}

func docSinkInterfaceDecl() dst.Decl {
	method := func(name string, params, results []*dst.Field) *dst.Field {
		return &dst.Field{
			Names: []*dst.Ident{goast.Ident(name)},
			Type:  &dst.FuncType{Params: &dst.FieldList{List: params}, Results: &dst.FieldList{List: results}},
		}
	}
	errResult := []*dst.Field{goast.FieldParam("", goast.Ident("error"))}
	methods := []*dst.Field{
		method("OpenTag", []*dst.Field{goast.FieldParam("tag", goast.Ident("Tag"))}, errResult),
		method("SetValue", []*dst.Field{goast.FieldParam("text", goast.Ident("string"))}, errResult),
		method("CloseTag", []*dst.Field{goast.FieldParam("name", goast.Ident("string"))}, errResult),
		method("NextTag", nil, []*dst.Field{goast.FieldParam("", goast.Ident("Tag")), goast.FieldParam("", goast.Ident("error"))}),
		method("GetValue", nil, []*dst.Field{goast.FieldParam("", goast.Ident("string")), goast.FieldParam("", goast.Ident("error"))}),
	}
	return &dst.GenDecl{
		Tok: token.TYPE,
		Specs: []dst.Spec{
			&dst.TypeSpec{Name: goast.Ident("DocSink"), Type: &dst.InterfaceType{Methods: &dst.FieldList{List: methods}}},
		},
	}
}

func storeDocFuncName(reg *model.Registry, baseType string) string {
	if t, ok := reg.LookupType(baseType); ok {
		return "StoreDoc" + goast.GoName(t.Name)
	}
	return "StoreDoc" + goast.GoName(baseType)
}

func loadDocFuncName(reg *model.Registry, baseType string) string {
	if t, ok := reg.LookupType(baseType); ok {
		return "LoadDoc" + goast.GoName(t.Name)
	}
	return "LoadDoc" + goast.GoName(baseType)
}

// storeDocNativeFunc renders write_store_native's asprintf-to-decimal
// encoding using strconv.FormatInt/FormatUint instead of asprintf.
func storeDocNativeFunc(t *model.Type) *dst.FuncDecl {
	name := "StoreDoc" + goast.GoName(t.Name)
	goType := t.NativeInfo.GoType
	params := []*dst.Field{
		goast.FieldParam("val", goast.Star(goast.Ident(goType))),
		goast.FieldParam("sink", goast.Ident("DocSink")),
	}
	results := []*dst.Field{goast.FieldParam("", goast.Ident("error"))}

	deref := goast.Star(goast.Ident("val"))
	var textExpr dst.Expr
	switch {
	case t.NativeInfo.Kind == model.KindBool:
		n := goast.Ident("n")
		decl := goast.VarDecl("n", goast.Ident("int64"))
		set := goast.If(deref, goast.Assign(token.ASSIGN, n, goast.IntLit(1)))
		textExpr = goast.Call(goast.Sel(goast.Ident("strconv"), "FormatInt"), n, goast.IntLit(10))
		body := []dst.Stmt{
			decl, set,
			goast.Return(goast.Call(goast.Sel(goast.Ident("sink"), "SetValue"), textExpr)),
		}
		return goast.Func(name, params, results, body...)
	case t.NativeInfo.Signed:
		textExpr = goast.Call(goast.Sel(goast.Ident("strconv"), "FormatInt"), goast.Call(goast.Ident("int64"), deref), goast.IntLit(10))
	default:
		textExpr = goast.Call(goast.Sel(goast.Ident("strconv"), "FormatUint"), goast.Call(goast.Ident("uint64"), deref), goast.IntLit(10))
	}

	return goast.Func(name, params, results, goast.Return(goast.Call(goast.Sel(goast.Ident("sink"), "SetValue"), textExpr)))
}

func loadDocNativeFunc(t *model.Type) *dst.FuncDecl {
	name := "LoadDoc" + goast.GoName(t.Name)
	goType := t.NativeInfo.GoType
	params := []*dst.Field{
		goast.FieldParam("val", goast.Star(goast.Ident(goType))),
		goast.FieldParam("sink", goast.Ident("DocSink")),
	}
	results := []*dst.Field{goast.FieldParam("", goast.Ident("error"))}

	getValue := getValueStmts()

	if t.NativeInfo.Kind == model.KindBool {
		parse := goast.Assign(token.DEFINE, goast.Ident("n"), goast.Call(goast.Sel(goast.Ident("strconv"), "ParseInt"), goast.Ident("text"), goast.IntLit(10), goast.IntLit(64)))
		parseErr := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
		parseErr.Init = parse
		assign := goast.Assign(token.ASSIGN, goast.Star(goast.Ident("val")), &dst.BinaryExpr{X: goast.Ident("n"), Op: token.NEQ, Y: goast.IntLit(0)})
		body := append(getValue, parseErr, assign, goast.Return(goast.Ident("nil")))
		return goast.Func(name, params, results, body...)
	}

	parseFn := "ParseInt"
	if !t.NativeInfo.Signed {
		parseFn = "ParseUint"
	}
	parse := goast.Assign(token.DEFINE, goast.Ident("n"), goast.Call(goast.Sel(goast.Ident("strconv"), parseFn), goast.Ident("text"), goast.IntLit(10), goast.IntLit(64)))
	parseErr := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
	parseErr.Init = parse
	assign := goast.Assign(token.ASSIGN, goast.Star(goast.Ident("val")), goast.Call(goast.Ident(goType), goast.Ident("n")))
	body := append(getValue, parseErr, assign, goast.Return(goast.Ident("nil")))
	return goast.Func(name, params, results, body...)
}

// getValueStmts builds "text, err := sink.GetValue(); if err != nil { return err }".
func getValueStmts() []dst.Stmt {
	get := goast.Assign(token.DEFINE, goast.Ident("text"), goast.Call(goast.Sel(goast.Ident("sink"), "GetValue")))
	get.Lhs = []dst.Expr{goast.Ident("text"), goast.Ident("err")}
	return []dst.Stmt{get, goast.IfErrNotNil(goast.Return(goast.Ident("err")))}
}

// storeDocCompositeFunc renders write_store_struct.
func storeDocCompositeFunc(reg *model.Registry, t *model.Type) (*dst.FuncDecl, error) {
	name := "StoreDoc" + goast.GoName(t.Name)
	typeExpr := goast.Ident(goast.GoName(t.Name))
	params := []*dst.Field{
		goast.FieldParam("val", goast.Star(typeExpr)),
		goast.FieldParam("sink", goast.Ident("DocSink")),
	}
	results := []*dst.Field{goast.FieldParam("", goast.Ident("error"))}

	var body []dst.Stmt
	for _, m := range t.Members {
		stmts, err := storeDocMemberStmts(reg, m)
		if err != nil {
			return nil, err
		}
		body = append(body, goast.Block(stmts...))
	}
	body = append(body, goast.Return(goast.Ident("nil")))

	return goast.Func(name, params, results, body...), nil
}

func openTagStmt(name dst.Expr, hasValue dst.Expr) dst.Stmt {
	tag := &dst.CompositeLit{Type: goast.Ident("Tag"), Elts: []dst.Expr{
		&dst.KeyValueExpr{Key: goast.Ident("Name"), Value: name},
		&dst.KeyValueExpr{Key: goast.Ident("HasValue"), Value: hasValue},
	}}
	ifs := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
	ifs.Init = goast.Assign(token.DEFINE, goast.Ident("err"), goast.Call(goast.Sel(goast.Ident("sink"), "OpenTag"), tag))
	return ifs
}

func closeTagStmt(name dst.Expr) dst.Stmt {
	ifs := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
	ifs.Init = goast.Assign(token.DEFINE, goast.Ident("err"), goast.Call(goast.Sel(goast.Ident("sink"), "CloseTag"), name))
	return ifs
}

func setValueStmt(text dst.Expr) dst.Stmt {
	ifs := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
	ifs.Init = goast.Assign(token.DEFINE, goast.Ident("err"), goast.Call(goast.Sel(goast.Ident("sink"), "SetValue"), text))
	return ifs
}

func storeItemCall(fn string, arg dst.Expr) dst.Stmt {
	ifs := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
	ifs.Init = goast.Assign(token.DEFINE, goast.Ident("err"), goast.Call(goast.Ident(fn), arg, goast.Ident("sink")))
	return ifs
}

func storeDocMemberStmts(reg *model.Registry, m model.Member) ([]dst.Stmt, error) {
	field := goast.Sel(goast.Ident("val"), goast.GoName(m.Name))
	fn := storeDocFuncName(reg, m.BaseType)
	nameLit := goast.StringLit(m.Name)
	iLit := goast.StringLit("i")

	switch m.Cardinality {
	case model.Single:
		hasValue := dst.Expr(goast.Ident("true"))
		var itemArg dst.Expr = goast.Addr(field)
		if m.IsPointer() {
			hasValue = &dst.BinaryExpr{X: field, Op: token.NEQ, Y: goast.Ident("nil")}
			itemArg = field
		}
		return []dst.Stmt{
			openTagStmt(nameLit, hasValue),
			goast.If(hasValue, storeItemCall(fn, itemArg)),
			closeTagStmt(nameLit),
		}, nil

	case model.FixedArray:
		elt := goast.Index(field, goast.Ident("i"))
		itemHasValue := dst.Expr(goast.Ident("true"))
		var itemArg dst.Expr = goast.Addr(elt)
		if m.IsPointer() {
			itemHasValue = &dst.BinaryExpr{X: elt, Op: token.NEQ, Y: goast.Ident("nil")}
			itemArg = elt
		}
		itemStmts := []dst.Stmt{
			openTagStmt(iLit, itemHasValue),
			goast.If(itemHasValue, storeItemCall(fn, itemArg)),
			closeTagStmt(iLit),
		}
		loop := goast.CStyleFor("i", goast.RawExpr(m.ArrSz), goast.Block(itemStmts...))
		return []dst.Stmt{
			openTagStmt(nameLit, goast.Ident("true")),
			loop,
			closeTagStmt(nameLit),
		}, nil

	case model.VarArray:
		elt := goast.Index(field, goast.Ident("i"))
		itemStmts := []dst.Stmt{
			openTagStmt(iLit, goast.Ident("true")),
			storeItemCall(fn, goast.Addr(elt)),
			closeTagStmt(iLit),
		}
		loop := goast.CStyleFor("i", goast.Sel(goast.Ident("val"), goast.GoName(m.VarSizeMember)), goast.Block(itemStmts...))
		cond := &dst.BinaryExpr{X: field, Op: token.NEQ, Y: goast.Ident("nil")}
		return []dst.Stmt{
			openTagStmt(nameLit, cond),
			loop,
			closeTagStmt(nameLit),
		}, nil

	case model.ZeroTermArray:
		if m.BaseType == "char" {
			return []dst.Stmt{
				openTagStmt(nameLit, goast.Ident("true")),
				setValueStmt(field),
				closeTagStmt(nameLit),
			}, nil
		}
		elt := goast.Ident("elem")
		loop := goast.RangeStmt(goast.Ident("_"), elt, field, goast.Block(
			openTagStmt(iLit, goast.Ident("true")),
			storeItemCall(fn, goast.Addr(elt)),
			closeTagStmt(iLit),
		))
		sentinelDecl := goast.VarDecl("sentinel", typesgen.GoTypeExpr(reg, m.BaseType))
		sentinelStmts := []dst.Stmt{
			sentinelDecl,
			openTagStmt(iLit, goast.Ident("true")),
			storeItemCall(fn, goast.Addr(goast.Ident("sentinel"))),
			closeTagStmt(iLit),
		}
		cond := &dst.BinaryExpr{X: field, Op: token.NEQ, Y: goast.Ident("nil")}
		return []dst.Stmt{
			openTagStmt(nameLit, cond),
			loop,
			goast.Block(sentinelStmts...),
			closeTagStmt(nameLit),
		}, nil
	}

	return nil, &cgenerr.UnsupportedShape{TypeName: m.Name, Reason: "unrecognised cardinality"}
}

// loadDocCompositeFunc renders write_load_struct.
func loadDocCompositeFunc(reg *model.Registry, t *model.Type) (*dst.FuncDecl, error) {
	name := "LoadDoc" + goast.GoName(t.Name)
	typeExpr := goast.Ident(goast.GoName(t.Name))
	params := []*dst.Field{
		goast.FieldParam("val", goast.Star(typeExpr)),
		goast.FieldParam("sink", goast.Ident("DocSink")),
	}
	results := []*dst.Field{goast.FieldParam("", goast.Ident("error"))}

	var body []dst.Stmt
	for _, m := range t.Members {
		stmts, err := loadDocMemberStmts(reg, m)
		if err != nil {
			return nil, err
		}
		body = append(body, goast.Block(stmts...))
	}
	body = append(body, goast.Return(goast.Ident("nil")))

	return goast.Func(name, params, results, body...), nil
}

// expectTagStmts builds the "tag, err := sink.NextTag(); ...; if tag.Name
// != want { return fmt.Errorf(...) }" preamble every member load starts
// with.
func expectTagStmts(want dst.Expr) []dst.Stmt {
	next := goast.Assign(token.DEFINE, goast.Ident("tag"), goast.Call(goast.Sel(goast.Ident("sink"), "NextTag")))
	next.Lhs = []dst.Expr{goast.Ident("tag"), goast.Ident("err")}
	checkErr := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
	nameCheck := goast.If(
		&dst.BinaryExpr{X: goast.Sel(goast.Ident("tag"), "Name"), Op: token.NEQ, Y: want},
		goast.Return(goast.Call(goast.Sel(goast.Ident("fmt"), "Errorf"),
			goast.StringLit("cser: unexpected tag %q, want %q"), goast.Sel(goast.Ident("tag"), "Name"), want)),
	)
	return []dst.Stmt{next, checkErr, nameCheck}
}

func loadItemCall(fn string, arg dst.Expr) dst.Stmt {
	ifs := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
	ifs.Init = goast.Assign(token.DEFINE, goast.Ident("err"), goast.Call(goast.Ident(fn), arg, goast.Ident("sink")))
	return ifs
}

func loadDocMemberStmts(reg *model.Registry, m model.Member) ([]dst.Stmt, error) {
	field := goast.Sel(goast.Ident("val"), goast.GoName(m.Name))
	fn := loadDocFuncName(reg, m.BaseType)
	nameLit := goast.StringLit(m.Name)
	iLit := goast.StringLit("i")

	preamble := expectTagStmts(nameLit)

	switch m.Cardinality {
	case model.Single:
		if !m.IsPointer() {
			return append(preamble, loadItemCall(fn, goast.Addr(field))), nil
		}
		alloc := goast.Assign(token.ASSIGN, field, goast.Addr(&dst.CompositeLit{Type: typesgen.GoTypeExpr(reg, m.BaseType)}))
		thenBranch := goast.Block(alloc, loadItemCall(fn, field))
		elseBranch := goast.Block(goast.Assign(token.ASSIGN, field, goast.Ident("nil")))
		ifs := goast.If(goast.Sel(goast.Ident("tag"), "HasValue"))
		ifs.Body = thenBranch
		ifs.Else = elseBranch
		return append(preamble, ifs), nil

	case model.FixedArray:
		elt := goast.Index(field, goast.Ident("i"))
		itemPreamble := expectTagStmts(iLit)
		var itemStmt dst.Stmt
		if m.IsPointer() {
			alloc := goast.Assign(token.ASSIGN, elt, goast.Addr(&dst.CompositeLit{Type: typesgen.GoTypeExpr(reg, m.BaseType)}))
			thenBranch := goast.Block(alloc, loadItemCall(fn, elt))
			elseBranch := goast.Block(goast.Assign(token.ASSIGN, elt, goast.Ident("nil")))
			ifs := goast.If(goast.Sel(goast.Ident("tag"), "HasValue"))
			ifs.Body = thenBranch
			ifs.Else = elseBranch
			itemStmt = ifs
		} else {
			itemStmt = loadItemCall(fn, goast.Addr(elt))
		}
		loopBody := append(append([]dst.Stmt{}, itemPreamble...), itemStmt)
		loop := goast.CStyleFor("i", goast.RawExpr(m.ArrSz), goast.Block(loopBody...))
		return append(preamble, loop), nil

	case model.VarArray:
		sizeField := goast.Sel(goast.Ident("val"), goast.GoName(m.VarSizeMember))
		makeSlice := goast.Assign(token.ASSIGN, field,
			goast.Call(goast.Ident("make"), &dst.ArrayType{Elt: typesgen.GoTypeExpr(reg, m.BaseType)}, sizeField))
		itemPreamble := expectTagStmts(iLit)
		loadElt := loadItemCall(fn, goast.Addr(goast.Index(field, goast.Ident("i"))))
		loopBody := append(append([]dst.Stmt{}, itemPreamble...), loadElt)
		loop := goast.CStyleFor("i", sizeField, goast.Block(loopBody...))
		return append(preamble, makeSlice, loop), nil

	case model.ZeroTermArray:
		if m.BaseType == "char" {
			getValue := getValueStmts()
			assign := goast.Assign(token.ASSIGN, field, goast.Ident("text"))
			return append(preamble, append(getValue, assign)...), nil
		}
		eltType := typesgen.GoTypeExpr(reg, m.BaseType)
		declItems := goast.Assign(token.DEFINE, goast.Ident("items"), &dst.CompositeLit{Type: &dst.ArrayType{Elt: eltType}})
		declZero := goast.VarDecl("zero", eltType)
		declElem := goast.VarDecl("elem", eltType)
		itemPreamble := expectTagStmts(iLit)
		loadElem := loadItemCall(fn, goast.Addr(goast.Ident("elem")))
		isZero := goast.Call(goast.Sel(goast.Ident("reflect"), "DeepEqual"), goast.Ident("elem"), goast.Ident("zero"))
		breakIf := goast.If(isZero, &dst.BranchStmt{Tok: token.BREAK})
		appendItem := goast.Assign(token.ASSIGN, goast.Ident("items"), goast.Call(goast.Ident("append"), goast.Ident("items"), goast.Ident("elem")))
		loopBody := append(append([]dst.Stmt{declElem}, itemPreamble...), loadElem, breakIf, appendItem)
		loop := &dst.ForStmt{Body: goast.Block(loopBody...)}
		assignField := goast.Assign(token.ASSIGN, field, goast.Ident("items"))
		return append(preamble, declItems, declZero, loop, assignField), nil
	}

	return nil, &cgenerr.UnsupportedShape{TypeName: m.Name, Reason: "unrecognised cardinality"}
}

// aliasForwarders renders one StoreDoc/LoadDoc pair per alias that calls
// straight through to the target type's StoreDoc/LoadDoc.
func aliasForwarders(reg *model.Registry, a *model.Alias) []dst.Decl {
	aliasGoType := goast.Ident(goast.GoName(a.Name))
	storeName := "StoreDoc" + goast.GoName(a.Name)
	loadName := "LoadDoc" + goast.GoName(a.Name)
	targetStore := storeDocFuncName(reg, a.Target)
	targetLoad := loadDocFuncName(reg, a.Target)

	store := goast.Func(storeName,
		[]*dst.Field{goast.FieldParam("val", goast.Star(aliasGoType)), goast.FieldParam("sink", goast.Ident("DocSink"))},
		[]*dst.Field{goast.FieldParam("", goast.Ident("error"))},
		goast.Return(goast.Call(goast.Ident(targetStore), goast.Ident("val"), goast.Ident("sink"))),
	)
	load := goast.Func(loadName,
		[]*dst.Field{goast.FieldParam("val", goast.Star(aliasGoType)), goast.FieldParam("sink", goast.Ident("DocSink"))},
		[]*dst.Field{goast.FieldParam("", goast.Ident("error"))},
		goast.Return(goast.Call(goast.Ident(targetLoad), goast.Ident("val"), goast.Ident("sink"))),
	)

	return []dst.Decl{store, load}
}
