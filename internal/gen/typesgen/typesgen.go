// Package typesgen emits the Go struct and alias type declarations that
// back every Composite and Alias in a registry — the structural backbone
// both the binary and structured-document emitters generate Store/Load
// functions against. Native types need no declaration of their own;
// they're rendered directly as the corresponding Go primitive wherever
// they're referenced (see GoTypeExpr).
package typesgen

import (
	"go/token"

	"github.com/dave/dst"

	"github.com/dius/cser/internal/gen/goast"
	"github.com/dius/cser/internal/model"
)

// GoTypeExpr returns the Go type expression a reference to the named type
// renders as: the primitive Go type for a Native, or the exported Go
// type name for a Composite/Decorated/Alias.
func GoTypeExpr(reg *model.Registry, name string) dst.Expr {
	if t, ok := reg.LookupType(name); ok && t.Classification == model.Native {
		if t.NativeInfo.GoType == "" {
			return goast.Ident("struct{}") // void; never instantiated as a field
		}
		return goast.Ident(t.NativeInfo.GoType)
	}
	return goast.Ident(goast.GoName(name))
}

// MemberFieldType returns the Go field type for a Member, applying its
// Decorations per spec.md §4.4's cardinality rules.
func MemberFieldType(reg *model.Registry, m model.Member) dst.Expr {
	base := GoTypeExpr(reg, m.BaseType)

	switch m.Cardinality {
	case model.Single:
		if m.IsPointer() {
			return goast.Star(base)
		}
		return base
	case model.FixedArray:
		elt := base
		if m.IsPointer() {
			elt = goast.Star(base)
		}
		return &dst.ArrayType{Len: goast.RawExpr(m.ArrSz), Elt: elt}
	case model.VarArray:
		return &dst.ArrayType{Elt: base} // Go slice: ArrayType with nil Len
	case model.ZeroTermArray:
		if m.BaseType == "char" {
			return goast.Ident("string")
		}
		return &dst.ArrayType{Elt: base}
	default:
		return base
	}
}

// Generate returns one GenDecl per Composite, Decorated type and Alias in
// reg, in registry order (types first, then aliases): "type Name struct{
// ... }" for composites, a defined type for Decorated types, "type Name =
// Target" for aliases (a Go type alias preserves the original's
// shape-equivalence exactly, unlike a defined type).
func Generate(reg *model.Registry) []dst.Decl {
	var decls []dst.Decl

	for _, t := range reg.Types() {
		switch t.Classification {
		case model.Composite:
			decls = append(decls, structDecl(reg, t))
		case model.Decorated:
			decls = append(decls, decoratedDecl(reg, t))
		}
	}
	for _, a := range reg.Aliases() {
		decls = append(decls, &dst.GenDecl{
			Tok: token.TYPE,
			Specs: []dst.Spec{
				&dst.TypeSpec{
					Name:   goast.Ident(goast.GoName(a.Name)),
					Assign: true,
					Type:   GoTypeExpr(reg, a.Target),
				},
			},
		})
	}
	return decls
}

func structDecl(reg *model.Registry, t *model.Type) dst.Decl {
	fields := make([]*dst.Field, 0, len(t.Members))
	for _, m := range t.Members {
		fields = append(fields, &dst.Field{
			Names: []*dst.Ident{goast.Ident(goast.GoName(m.Name))},
			Type:  MemberFieldType(reg, m),
		})
	}
	return &dst.GenDecl{
		Tok: token.TYPE,
		Specs: []dst.Spec{
			&dst.TypeSpec{
				Name: goast.Ident(goast.GoName(t.Name)),
				Type: &dst.StructType{Fields: &dst.FieldList{List: fields}},
			},
		},
	}
}

// decoratedDecl renders a standalone Decorated typedef (one never folded
// into a Member, e.g. "typedef int32_t Vec4[4];" used only by value, not
// as a struct field) as a defined Go type with the same shape a Member
// carrying those Decorations would get.
func decoratedDecl(reg *model.Registry, t *model.Type) dst.Decl {
	asMember := model.Member{Name: t.Name, BaseType: t.BaseType, Decorations: t.Decorations}
	return &dst.GenDecl{
		Tok: token.TYPE,
		Specs: []dst.Spec{
			&dst.TypeSpec{
				Name: goast.Ident(goast.GoName(t.Name)),
				Type: MemberFieldType(reg, asMember),
			},
		},
	}
}
