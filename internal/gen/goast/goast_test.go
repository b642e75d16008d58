package goast_test

import (
	"go/token"
	"testing"

	"github.com/dave/dst"

	"github.com/dius/cser/internal/gen/goast"
)

func TestIfNotNilBuildsPresenceCheck(t *testing.T) {
	field := goast.Sel(goast.Ident("val"), "Name")
	ifStmt := goast.IfNotNil(field, goast.Return(goast.Ident("nil")))

	cond, ok := ifStmt.Cond.(*dst.BinaryExpr)
	if !ok {
		t.Fatalf("Cond = %T, want *dst.BinaryExpr", ifStmt.Cond)
	}
	if cond.Op != token.NEQ {
		t.Errorf("Op = %v, want NEQ", cond.Op)
	}
	sel, ok := cond.X.(*dst.SelectorExpr)
	if !ok || sel.Sel.Name != "Name" {
		t.Errorf("Cond.X = %#v, want selector to Name", cond.X)
	}
	if len(ifStmt.Body.List) != 1 {
		t.Fatalf("Body.List = %v, want 1 statement", ifStmt.Body.List)
	}
}

func TestCStyleForBuildsBoundedLoop(t *testing.T) {
	loop := goast.CStyleFor("i", goast.IntLit(4), goast.ExprStmt(goast.Call(goast.Ident("noop"))))

	init, ok := loop.Init.(*dst.AssignStmt)
	if !ok || init.Tok != token.DEFINE {
		t.Fatalf("Init = %#v, want i := 0", loop.Init)
	}
	cond, ok := loop.Cond.(*dst.BinaryExpr)
	if !ok || cond.Op != token.LSS {
		t.Fatalf("Cond = %#v, want i < 4", loop.Cond)
	}
	if _, ok := loop.Post.(*dst.IncDecStmt); !ok {
		t.Errorf("Post = %#v, want i++", loop.Post)
	}
}

func TestFuncBuildsSignatureAndBody(t *testing.T) {
	fn := goast.Func("StoreWidget",
		[]*dst.Field{
			goast.FieldParam("val", goast.Star(goast.Ident("Widget"))),
			goast.FieldParam("w", goast.Ident("BinaryWriter")),
		},
		[]*dst.Field{goast.FieldParam("", goast.Ident("error"))},
		goast.Return(goast.Ident("nil")),
	)

	if fn.Name.Name != "StoreWidget" {
		t.Errorf("Name = %q, want StoreWidget", fn.Name.Name)
	}
	if len(fn.Type.Params.List) != 2 {
		t.Fatalf("Params = %v, want 2", fn.Type.Params.List)
	}
	if len(fn.Type.Results.List) != 1 {
		t.Fatalf("Results = %v, want 1", fn.Type.Results.List)
	}
	if len(fn.Body.List) != 1 {
		t.Fatalf("Body = %v, want 1 statement", fn.Body.List)
	}
}

func TestIfErrNotNilChecksErrIdent(t *testing.T) {
	stmt := goast.IfErrNotNil(goast.Return(goast.Ident("err")))
	cond, ok := stmt.Cond.(*dst.BinaryExpr)
	if !ok {
		t.Fatalf("Cond = %T, want *dst.BinaryExpr", stmt.Cond)
	}
	lhs, ok := cond.X.(*dst.Ident)
	if !ok || lhs.Name != "err" {
		t.Errorf("Cond.X = %#v, want ident err", cond.X)
	}
}
