package docgen_test

import (
	"fmt"
	"testing"

	"github.com/dave/dst"

	"github.com/dius/cser/internal/cgenerr"
	"github.com/dius/cser/internal/gen/docgen"
	"github.com/dius/cser/internal/gen/dsteval"
	"github.com/dius/cser/internal/model"
)

// hostOf indexes every generated FuncDecl by name so dsteval can resolve
// the recursive StoreDoc<Type>/LoadDoc<Type> calls a composite's
// StoreDoc/LoadDoc function makes against its members.
func hostOf(decls []dst.Decl) *dsteval.Host {
	h := &dsteval.Host{Funcs: map[string]*dst.FuncDecl{}}
	for _, d := range decls {
		if fd, ok := d.(*dst.FuncDecl); ok {
			h.Funcs[fd.Name.Name] = fd
		}
	}
	return h
}

// tagEvent records one OpenTag/SetValue/CloseTag call, in order.
type tagEvent struct {
	method   string
	name     string
	hasValue bool
	text     string
}

// fakeSink is a dsteval.Methods implementation standing in for a DocSink,
// recording the exact OpenTag/SetValue/CloseTag call sequence generated
// StoreDoc code makes.
type fakeSink struct {
	events []tagEvent
}

func (f *fakeSink) CallMethod(name string, args []any) ([]any, error) {
	switch name {
	case "OpenTag":
		tag, ok := args[0].(*dsteval.StructVal)
		if !ok {
			return nil, fmt.Errorf("OpenTag arg = %T, want *dsteval.StructVal", args[0])
		}
		f.events = append(f.events, tagEvent{
			method:   "OpenTag",
			name:     tag.Fields["Name"].V.(string),
			hasValue: tag.Fields["HasValue"].V.(bool),
		})
		return []any{nil}, nil
	case "SetValue":
		f.events = append(f.events, tagEvent{method: "SetValue", text: args[0].(string)})
		return []any{nil}, nil
	case "CloseTag":
		f.events = append(f.events, tagEvent{method: "CloseTag", name: args[0].(string)})
		return []any{nil}, nil
	}
	return nil, fmt.Errorf("fakeSink: unsupported method %s", name)
}

func buildRegistry() *model.Registry {
	reg := model.NewRegistry()
	model.RegisterBuiltins(reg)
	reg.AddType(&model.Type{
		Name:           "Widget",
		Classification: model.Composite,
		Members: []model.Member{
			{Name: "count", BaseType: "uint16_t"},
			{Name: "values", BaseType: "int32_t", Decorations: model.Decorations{
				PtrLevel: 1, Cardinality: model.VarArray, VarSizeMember: "count",
			}},
			{Name: "name", BaseType: "char", Decorations: model.Decorations{
				PtrLevel: 1, Cardinality: model.ZeroTermArray,
			}},
		},
	})
	reg.AddAlias(&model.Alias{Name: "widget_id_t", Target: "uint16_t"})
	return reg
}

func findFunc(decls []dst.Decl, name string) *dst.FuncDecl {
	for _, d := range decls {
		if fd, ok := d.(*dst.FuncDecl); ok && fd.Name.Name == name {
			return fd
		}
	}
	return nil
}

func TestGenerateEmitsTagAndDocSink(t *testing.T) {
	reg := buildRegistry()
	decls, _, err := docgen.Generate(reg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	tagDecl, ok := decls[0].(*dst.GenDecl)
	if !ok {
		t.Fatalf("decls[0] = %T", decls[0])
	}
	ts := tagDecl.Specs[0].(*dst.TypeSpec)
	if ts.Name.Name != "Tag" {
		t.Errorf("decls[0] name = %q, want Tag", ts.Name.Name)
	}

	sinkDecl := decls[1].(*dst.GenDecl)
	sts := sinkDecl.Specs[0].(*dst.TypeSpec)
	iface, ok := sts.Type.(*dst.InterfaceType)
	if !ok || len(iface.Methods.List) != 5 {
		t.Fatalf("DocSink = %#v, want interface with 5 methods", sts.Type)
	}
}

func TestGenerateRejectsFloatNatives(t *testing.T) {
	reg := model.NewRegistry()
	reg.AddType(&model.Type{
		Name:           "float_t",
		Classification: model.Native,
		NativeInfo:     model.NativeInfo{Width: 4, Kind: model.KindFloat, GoType: "float32"},
	})
	_, _, err := docgen.Generate(reg)
	if err == nil {
		t.Fatal("expected error for float native, got nil")
	}
	if _, ok := err.(*cgenerr.EmitterDomain); !ok {
		t.Errorf("err = %T, want *cgenerr.EmitterDomain", err)
	}
}

func TestGenerateCompositeStoreOpensMemberTags(t *testing.T) {
	reg := buildRegistry()
	decls, _, err := docgen.Generate(reg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	fd := findFunc(decls, "StoreDocWidget")
	if fd == nil {
		t.Fatal("missing StoreDocWidget")
	}
	if len(fd.Body.List) != 4 { // 3 members + return
		t.Fatalf("body has %d stmts, want 4", len(fd.Body.List))
	}
	block, ok := fd.Body.List[0].(*dst.BlockStmt)
	if !ok {
		t.Fatalf("member 0 block = %T", fd.Body.List[0])
	}
	openIf, ok := block.List[0].(*dst.IfStmt)
	if !ok {
		t.Fatalf("first member stmt = %T, want *dst.IfStmt (OpenTag guard)", block.List[0])
	}
	assign, ok := openIf.Init.(*dst.AssignStmt)
	if !ok {
		t.Fatalf("IfStmt.Init = %T", openIf.Init)
	}
	call, ok := assign.Rhs[0].(*dst.CallExpr)
	if !ok {
		t.Fatalf("Init RHS = %T", assign.Rhs[0])
	}
	sel, ok := call.Fun.(*dst.SelectorExpr)
	if !ok || sel.Sel.Name != "OpenTag" {
		t.Errorf("call = %#v, want sink.OpenTag(...)", call.Fun)
	}
}

func TestGenerateNativeStoreUsesStrconv(t *testing.T) {
	reg := buildRegistry()
	decls, imports, err := docgen.Generate(reg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	found := false
	for _, p := range imports {
		if p == "strconv" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected strconv import, got %v", imports)
	}
	if findFunc(decls, "StoreDocUint16T") == nil {
		t.Error("missing StoreDocUint16T")
	}
	if findFunc(decls, "LoadDocUint16T") == nil {
		t.Error("missing LoadDocUint16T")
	}
}

func TestGenerateAliasForwardersCallThrough(t *testing.T) {
	reg := buildRegistry()
	decls, _, err := docgen.Generate(reg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	fd := findFunc(decls, "StoreDocWidgetIdT")
	if fd == nil {
		t.Fatal("missing StoreDocWidgetIdT")
	}
	ret, ok := fd.Body.List[0].(*dst.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		t.Fatalf("body = %#v", fd.Body.List)
	}
	call, ok := ret.Results[0].(*dst.CallExpr)
	if !ok {
		t.Fatalf("result = %T", ret.Results[0])
	}
	fn, ok := call.Fun.(*dst.Ident)
	if !ok || fn.Name != "StoreDocUint16T" {
		t.Errorf("forwarder calls %#v, want StoreDocUint16T", call.Fun)
	}
}

// TestStoreDocWidgetEmitsTagSequence executes the real generated
// StoreDocWidget body (via dsteval) against a recording fake DocSink,
// covering spec.md §8 scenario 6: the char member name="hi" opens its tag,
// sets the value, then closes the tag — "<name>hi</name>".
func TestStoreDocWidgetEmitsTagSequence(t *testing.T) {
	reg := buildRegistry()
	decls, _, err := docgen.Generate(reg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	host := hostOf(decls)
	storeFD := findFunc(decls, "StoreDocWidget")
	if storeFD == nil {
		t.Fatal("missing StoreDocWidget")
	}

	val := dsteval.NewStruct()
	val.Fields["Count"] = &dsteval.Ref{V: int64(2)}
	val.Fields["Values"] = &dsteval.Ref{V: []*dsteval.Ref{{V: int64(7)}, {V: int64(8)}}}
	val.Fields["Name"] = &dsteval.Ref{V: "hi"}

	sink := &fakeSink{}
	if _, err := dsteval.CallFunc(storeFD, []any{val, sink}, host); err != nil {
		t.Fatalf("StoreDocWidget: %v", err)
	}

	// "count" and "values" members also emit SetValue calls (for their
	// decimal-text natives, under "count"/"i" tags), so isolate the three
	// events bracketed by the "name" member's own OpenTag/CloseTag rather
	// than matching SetValue anywhere in the whole sequence.
	openIdx := -1
	for i, ev := range sink.events {
		if ev.method == "OpenTag" && ev.name == "name" {
			openIdx = i
			break
		}
	}
	if openIdx < 0 || openIdx+2 >= len(sink.events) {
		t.Fatalf("did not find a 3-event OpenTag(name)/.../CloseTag(name) run in %+v", sink.events)
	}
	gotTail := sink.events[openIdx : openIdx+3]
	if gotTail[0].method != "OpenTag" || gotTail[0].name != "name" || !gotTail[0].hasValue {
		t.Errorf("event 0 = %+v, want OpenTag{name, HasValue:true}", gotTail[0])
	}
	if gotTail[1].method != "SetValue" || gotTail[1].text != "hi" {
		t.Errorf("event 1 = %+v, want SetValue(\"hi\")", gotTail[1])
	}
	if gotTail[2].method != "CloseTag" || gotTail[2].name != "name" {
		t.Errorf("event 2 = %+v, want CloseTag(name)", gotTail[2])
	}
}

func TestGenerateZeroTermCompositeRequiresReflect(t *testing.T) {
	reg := buildRegistry()
	reg.AddType(&model.Type{
		Name:           "Inner",
		Classification: model.Composite,
		Members:        []model.Member{{Name: "x", BaseType: "int32_t"}},
	})
	reg.AddType(&model.Type{
		Name:           "Outer",
		Classification: model.Composite,
		Members: []model.Member{
			{Name: "items", BaseType: "Inner", Decorations: model.Decorations{
				PtrLevel: 1, Cardinality: model.ZeroTermArray,
			}},
		},
	})
	_, imports, err := docgen.Generate(reg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	found := false
	for _, p := range imports {
		if p == "reflect" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected reflect import, got %v", imports)
	}
}
