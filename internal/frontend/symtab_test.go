package frontend_test

import (
	"testing"

	"github.com/dius/cser/internal/frontend"
)

func TestSymbolTableClassifiesTypedefNames(t *testing.T) {
	st := frontend.NewSymbolTable()
	st.AddTypedefName("widget_t")

	if got := st.SymType("widget_t"); got != frontend.SymTypedefName {
		t.Errorf("SymType(widget_t) = %v, want SymTypedefName", got)
	}
	if got := st.SymType("unseen"); got != frontend.SymIdent {
		t.Errorf("SymType(unseen) = %v, want SymIdent", got)
	}
}

func TestSymbolTableClassifiesEnumConstants(t *testing.T) {
	st := frontend.NewSymbolTable()
	st.AddEnumConstant("RED")

	if got := st.SymType("RED"); got != frontend.SymEnumConstant {
		t.Errorf("SymType(RED) = %v, want SymEnumConstant", got)
	}
}
