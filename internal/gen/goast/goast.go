// Package goast holds the small set of dst node builders shared by the
// binary and structured-document emitters: call expressions, loops,
// presence-byte conditionals, and field selectors. Building these by hand
// as dst literals — rather than interpolating text — follows the same
// technique golang-open2opaque's rewrite engine uses to construct
// replacement syntax (see internal/fix/assign.go's sel2call helper in the
// teacher repo this is descended from).
package goast

import (
	"go/token"
	"strconv"

	"github.com/dave/dst"
)

// Ident returns a bare identifier.
func Ident(name string) *dst.Ident {
	return dst.NewIdent(name)
}

// Sel returns "x.name".
func Sel(x dst.Expr, name string) *dst.SelectorExpr {
	return &dst.SelectorExpr{X: x, Sel: Ident(name)}
}

// Call returns "fun(args...)".
func Call(fun dst.Expr, args ...dst.Expr) *dst.CallExpr {
	return &dst.CallExpr{Fun: fun, Args: args}
}

// Star returns "*x".
func Star(x dst.Expr) *dst.StarExpr {
	return &dst.StarExpr{X: x}
}

// Addr returns "&x".
func Addr(x dst.Expr) *dst.UnaryExpr {
	return &dst.UnaryExpr{Op: token.AND, X: x}
}

// Index returns "x[i]".
func Index(x, i dst.Expr) *dst.IndexExpr {
	return &dst.IndexExpr{X: x, Index: i}
}

// IntLit returns an untyped integer literal.
func IntLit(n int) *dst.BasicLit {
	return &dst.BasicLit{Kind: token.INT, Value: strconv.Itoa(n)}
}

// StringLit returns a quoted string literal.
func StringLit(s string) *dst.BasicLit {
	return &dst.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}

// ExprStmt wraps an expression as a statement.
func ExprStmt(x dst.Expr) *dst.ExprStmt {
	return &dst.ExprStmt{X: x}
}

// Assign returns "lhs := rhs" (tok = token.DEFINE) or "lhs = rhs"
// (tok = token.ASSIGN).
func Assign(tok token.Token, lhs, rhs dst.Expr) *dst.AssignStmt {
	return &dst.AssignStmt{Lhs: []dst.Expr{lhs}, Tok: tok, Rhs: []dst.Expr{rhs}}
}

// Return returns "return xs...".
func Return(xs ...dst.Expr) *dst.ReturnStmt {
	return &dst.ReturnStmt{Results: xs}
}

// Block returns a brace-delimited statement list.
func Block(stmts ...dst.Stmt) *dst.BlockStmt {
	return &dst.BlockStmt{List: stmts}
}

// IfErrNotNil returns "if err != nil { body }" — the ubiquitous Go error
// check, used after every Store/Load sub-call.
func IfErrNotNil(body ...dst.Stmt) *dst.IfStmt {
	return &dst.IfStmt{
		Cond: &dst.BinaryExpr{X: Ident("err"), Op: token.NEQ, Y: Ident("nil")},
		Body: Block(body...),
	}
}

// IfNotNil returns "if x != nil { body }" — used to guard a pointer
// member's presence.
func IfNotNil(x dst.Expr, body ...dst.Stmt) *dst.IfStmt {
	return &dst.IfStmt{
		Cond: &dst.BinaryExpr{X: x, Op: token.NEQ, Y: Ident("nil")},
		Body: Block(body...),
	}
}

// If returns "if cond { body }" for an arbitrary condition expression.
func If(cond dst.Expr, body ...dst.Stmt) *dst.IfStmt {
	return &dst.IfStmt{Cond: cond, Body: Block(body...)}
}

// VarDecl returns "var name typ" as a statement.
func VarDecl(name string, typ dst.Expr) *dst.DeclStmt {
	return &dst.DeclStmt{Decl: &dst.GenDecl{
		Tok:   token.VAR,
		Specs: []dst.Spec{&dst.ValueSpec{Names: []*dst.Ident{Ident(name)}, Type: typ}},
	}}
}

// ByteArrayType returns "[n]byte".
func ByteArrayType(n int) *dst.ArrayType {
	return &dst.ArrayType{Len: IntLit(n), Elt: Ident("byte")}
}

// Slice returns "x[:]".
func Slice(x dst.Expr) *dst.SliceExpr {
	return &dst.SliceExpr{X: x}
}

// RangeStmt returns "for key, value := range x { body }". Pass a nil value
// to omit it ("for key := range x").
func RangeStmt(key, value dst.Expr, x dst.Expr, body ...dst.Stmt) *dst.RangeStmt {
	tok := token.DEFINE
	rs := &dst.RangeStmt{Key: key, Tok: tok, X: x, Body: Block(body...)}
	if value != nil {
		rs.Value = value
	}
	return rs
}

// CStyleFor returns "for i := 0; i < bound; i++ { body }".
func CStyleFor(loopVar string, bound dst.Expr, body ...dst.Stmt) *dst.ForStmt {
	i := Ident(loopVar)
	return &dst.ForStmt{
		Init: Assign(token.DEFINE, i, IntLit(0)),
		Cond: &dst.BinaryExpr{X: i, Op: token.LSS, Y: bound},
		Post: &dst.IncDecStmt{X: i, Tok: token.INC},
		Body: Block(body...),
	}
}

// FieldParam returns a single-name function parameter/result field.
func FieldParam(name string, typ dst.Expr) *dst.Field {
	f := &dst.Field{Type: typ}
	if name != "" {
		f.Names = []*dst.Ident{Ident(name)}
	}
	return f
}

// Func returns a top-level function declaration.
func Func(name string, params, results []*dst.Field, body ...dst.Stmt) *dst.FuncDecl {
	return &dst.FuncDecl{
		Name: Ident(name),
		Type: &dst.FuncType{
			Params:  &dst.FieldList{List: params},
			Results: &dst.FieldList{List: results},
		},
		Body: Block(body...),
	}
}

