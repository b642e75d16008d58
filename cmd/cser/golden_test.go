package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/dave/dst/decorator"
	"github.com/kylelemons/godebug/diff"
	"golang.org/x/tools/txtar"

	"github.com/dius/cser/internal/frontend"
	"github.com/dius/cser/internal/langparse"
	"github.com/dius/cser/internal/model"
	"github.com/dius/cser/internal/reach"
)

// TestGoldenWidgetsMultiFileRoundTrip drives the same pipeline Execute does
// (parse multiple -i files into one registry, mark reachable from a root,
// assemble both backends) against a golden testdata/*.txtar fixture, the
// way spec.md §8's multi-type round-trip scenarios are meant to be
// exercised end to end rather than one emitter call at a time.
func TestGoldenWidgetsMultiFileRoundTrip(t *testing.T) {
	data, err := os.ReadFile("testdata/widgets.txtar")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	ar := txtar.Parse(data)

	var wantHeader string
	var includes []string
	var srcs []string
	for _, f := range ar.Files {
		if f.Name == "header" {
			wantHeader = string(f.Data)
			continue
		}
		includes = append(includes, f.Name)
		srcs = append(srcs, string(f.Data))
	}
	if wantHeader == "" {
		t.Fatal("fixture has no \"header\" file")
	}

	reg := model.NewRegistry()
	model.RegisterBuiltins(reg)
	asm := frontend.New(reg)
	asm.Warnf = func(string, ...any) {}
	for i, src := range srcs {
		if err := langparse.Parse(src, asm); err != nil {
			t.Fatalf("Parse(%s): %v", includes[i], err)
		}
	}

	used, err := reach.Mark(reg, []string{"Widget"})
	if err != nil {
		t.Fatalf("reach.Mark: %v", err)
	}
	reach.Filter(reg, used)

	// Point must survive the filter: it is reachable only through
	// Widget's FixedArray member.
	if _, ok := reg.LookupType("Point"); !ok {
		t.Fatal("Point should be reachable through Widget.corners, but Filter pruned it")
	}

	file, err := assembleFile(reg, "widgets", includes, []string{"raw", "xml"})
	if err != nil {
		t.Fatalf("assembleFile: %v", err)
	}

	var buf bytes.Buffer
	if err := decorator.Fprint(&buf, file); err != nil {
		t.Fatalf("decorator.Fprint: %v", err)
	}
	got := buf.String()

	for _, line := range strings.Split(strings.TrimRight(wantHeader, "\n"), "\n") {
		if !strings.Contains(got, line) {
			t.Errorf("generated output missing header line %q\nwant block vs got:\n%s", line, diff.Diff(wantHeader, got))
		}
	}

	for _, want := range []string{
		"func StoreWidget", "func LoadWidget",
		"func StoreDocWidget", "func LoadDocWidget",
		"func StorePoint", "func LoadPoint",
		"func StoreDocPoint", "func LoadDocPoint",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("generated output missing %q", want)
		}
	}
}
