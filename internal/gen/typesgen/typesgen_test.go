package typesgen_test

import (
	"testing"

	"github.com/dave/dst"

	"github.com/dius/cser/internal/gen/typesgen"
	"github.com/dius/cser/internal/model"
)

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

func TestGenerateStructDecl(t *testing.T) {
	reg := buildRegistry()
	decls := typesgen.Generate(reg)

	if len(decls) != 2 {
		t.Fatalf("Generate returned %d decls, want 2", len(decls))
	}

	gd, ok := decls[0].(*dst.GenDecl)
	if !ok {
		t.Fatalf("decls[0] = %T, want *dst.GenDecl", decls[0])
	}
	ts := gd.Specs[0].(*dst.TypeSpec)
	if ts.Name.Name != "Widget" {
		t.Errorf("Name = %q, want Widget", ts.Name.Name)
	}
	st, ok := ts.Type.(*dst.StructType)
	if !ok {
		t.Fatalf("Type = %T, want *dst.StructType", ts.Type)
	}
	if len(st.Fields.List) != 3 {
		t.Fatalf("Fields = %d, want 3", len(st.Fields.List))
	}

	countField := st.Fields.List[0]
	if countField.Names[0].Name != "Count" {
		t.Errorf("field 0 name = %q, want Count", countField.Names[0].Name)
	}
	if ident, ok := countField.Type.(*dst.Ident); !ok || ident.Name != "uint16" {
		t.Errorf("field 0 type = %#v, want uint16", countField.Type)
	}

	valuesField := st.Fields.List[1]
	arrType, ok := valuesField.Type.(*dst.ArrayType)
	if !ok || arrType.Len != nil {
		t.Fatalf("values field type = %#v, want slice (nil Len ArrayType)", valuesField.Type)
	}

	nameField := st.Fields.List[2]
	if ident, ok := nameField.Type.(*dst.Ident); !ok || ident.Name != "string" {
		t.Errorf("name field type = %#v, want string", nameField.Type)
	}
}

func TestGenerateAliasDecl(t *testing.T) {
	reg := buildRegistry()
	decls := typesgen.Generate(reg)

	gd, ok := decls[1].(*dst.GenDecl)
	if !ok {
		t.Fatalf("decls[1] = %T, want *dst.GenDecl", decls[1])
	}
	ts := gd.Specs[0].(*dst.TypeSpec)
	if ts.Name.Name != "WidgetIdT" || !ts.Assign {
		t.Errorf("got Name=%q Assign=%v, want WidgetIdT/true", ts.Name.Name, ts.Assign)
	}
	if ident, ok := ts.Type.(*dst.Ident); !ok || ident.Name != "uint16" {
		t.Errorf("alias target = %#v, want uint16", ts.Type)
	}
}
