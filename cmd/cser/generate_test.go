package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dave/dst/decorator"

	"github.com/dius/cser/internal/model"
)

func TestSelectBackendsDefaultsToRaw(t *testing.T) {
	got, err := selectBackends(nil)
	if err != nil {
		t.Fatalf("selectBackends: %v", err)
	}
	if len(got) != 1 || got[0] != "raw" {
		t.Errorf("got %v, want [raw]", got)
	}
}

func TestSelectBackendsOrdersBinaryBeforeDocument(t *testing.T) {
	got, err := selectBackends([]string{"xml", "raw", "xml"})
	if err != nil {
		t.Fatalf("selectBackends: %v", err)
	}
	if want := []string{"raw", "xml"}; !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSelectBackendsRejectsUnknown(t *testing.T) {
	if _, err := selectBackends([]string{"json"}); err == nil {
		t.Fatal("expected error for unknown backend, got nil")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPackageNameSanitizesBasename(t *testing.T) {
	cases := map[string]string{
		"out":          "out",
		"widget-types": "widget_types",
		"":             "pkg",
		"9lives":       "pkg9lives",
		"Out/Dir":      "out_dir",
	}
	for in, want := range cases {
		if got := packageName(in); got != want {
			t.Errorf("packageName(%q) = %q, want %q", in, got, want)
		}
	}
}

func buildRegistry() *model.Registry {
	reg := model.NewRegistry()
	model.RegisterBuiltins(reg)
	reg.AddType(&model.Type{
		Name:           "Widget",
		Classification: model.Composite,
		Members: []model.Member{
			{Name: "count", BaseType: "uint16_t"},
		},
	})
	return reg
}

func TestAssembleFileProducesPrintableOutput(t *testing.T) {
	reg := buildRegistry()
	file, err := assembleFile(reg, "widgets", []string{"widgets.decls"}, []string{"raw", "xml"})
	if err != nil {
		t.Fatalf("assembleFile: %v", err)
	}
	if file.Name.Name != "widgets" {
		t.Errorf("package name = %q, want widgets", file.Name.Name)
	}

	var buf bytes.Buffer
	if err := decorator.Fprint(&buf, file); err != nil {
		t.Fatalf("decorator.Fprint: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"package widgets",
		"Code generated by cser",
		"source: widgets.decls",
		"func StoreWidget",
		"func LoadWidget",
		"func StoreDocWidget",
		"func LoadDocWidget",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAssembleFileRejectsFloatNativeForDocBackend(t *testing.T) {
	reg := model.NewRegistry()
	reg.AddType(&model.Type{
		Name:           "float_t",
		Classification: model.Native,
		NativeInfo:     model.NativeInfo{Width: 4, Kind: model.KindFloat, GoType: "float32"},
	})
	reg.AddType(&model.Type{
		Name:           "Widget",
		Classification: model.Composite,
		Members:        []model.Member{{Name: "f", BaseType: "float_t"}},
	})
	if _, err := assembleFile(reg, "out", nil, []string{"xml"}); err == nil {
		t.Fatal("expected error for float native under the xml backend, got nil")
	}
}
