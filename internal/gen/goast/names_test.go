package goast_test

import (
	"testing"

	"github.com/dius/cser/internal/gen/goast"
)

func TestGoName(t *testing.T) {
	tests := map[string]string{
		"unsigned long long": "UnsignedLongLong",
		"int32_t":            "Int32T",
		"Widget":              "Widget",
		"uint16_t":            "Uint16T",
	}
	for in, want := range tests {
		if got := goast.GoName(in); got != want {
			t.Errorf("GoName(%q) = %q, want %q", in, got, want)
		}
	}
}
