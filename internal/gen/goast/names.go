package goast

import (
	"strings"

	"github.com/dave/dst"
)

// GoName turns a C-family type/member name into an exported Go
// identifier: "unsigned long long" -> "UnsignedLongLong", "int32_t" ->
// "Int32T", "Widget" -> "Widget". Splitting on runs of non-alphanumeric
// characters and capitalizing each piece is the same technique
// make_cname used in the original (there, just to produce a valid C
// identifier by replacing spaces with underscores); here the result also
// needs to be an exported Go identifier, hence the capitalization.
func GoName(name string) string {
	var b strings.Builder
	capNext := true
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			if capNext && r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			b.WriteRune(r)
			capNext = false
		default:
			capNext = true
		}
	}
	return b.String()
}

// RawExpr embeds already-valid Go source text as a single opaque
// expression node, for splicing in array-size expressions and the like
// that are carried as opaque strings from the declaration source (e.g.
// "4" or "(3)*(4)") rather than parsed into a full expression tree.
func RawExpr(src string) *dst.Ident {
	return Ident(src)
}
