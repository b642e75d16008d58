package main

import (
	"context"
	"fmt"
	"go/token"
	"os"
	"sort"
	"strconv"
	"strings"

	"flag"
	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	log "github.com/golang/glog"
	"github.com/google/subcommands"

	"github.com/dius/cser/internal/cgenerr"
	"github.com/dius/cser/internal/frontend"
	"github.com/dius/cser/internal/gen/binarygen"
	"github.com/dius/cser/internal/gen/docgen"
	"github.com/dius/cser/internal/gen/goast"
	"github.com/dius/cser/internal/gen/typesgen"
	"github.com/dius/cser/internal/langparse"
	"github.com/dius/cser/internal/model"
	"github.com/dius/cser/internal/reach"
	"github.com/dius/cser/internal/stage"
)

// stringList is a repeatable string flag, e.g. "-i a.decls -i b.decls".
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// verbosity counts how many times -v was given, the way getopt's "v" case
// in the original cser.c's main() increments a counter.
type verbosity int

func (v *verbosity) String() string { return strconv.Itoa(int(*v)) }

func (v *verbosity) Set(string) error {
	*v++
	return nil
}

// IsBoolFlag lets "-v" repeat without consuming an argument, the flag
// package's convention for switches like "-v -v -v".
func (v *verbosity) IsBoolFlag() bool { return true }

// backendNames are the valid values for -b, in the fixed emission order
// spec.md §4.6 requires when more than one is selected for one basename.
var backendNames = []string{"raw", "xml"}

// generateCmd implements the generate subcommand of the cser tool: parse
// declarations, mark reachable types from the given roots, and emit Go
// Store/Load functions for the selected backends into "<basename>.go".
type generateCmd struct {
	verbose  verbosity
	outBase  string
	includes stringList
	backends stringList
}

// Name implements subcommand.Command.
func (*generateCmd) Name() string { return "generate" }

// Synopsis implements subcommand.Command.
func (*generateCmd) Synopsis() string {
	return "generate Store/Load serializer functions for the given root types"
}

// Usage implements subcommand.Command.
func (*generateCmd) Usage() string {
	return `Usage: cser generate [-v] [-o basename] [-i file]... [-b raw|xml]... root [root...]

Reads the declarations named by -i, marks every type reachable from the
given root struct names, and writes "<basename>.go" with paired
Store/Load functions for the selected backends.
`
}

// SetFlags implements subcommand.Command.
func (cmd *generateCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&cmd.verbose, "v", "increase verbosity (repeatable)")
	f.StringVar(&cmd.outBase, "o", "out", "output basename; generated into <basename>.go")
	f.Var(&cmd.includes, "i", "declaration file to parse (repeatable)")
	f.Var(&cmd.backends, "b", "backend to emit: raw or xml (repeatable; default raw)")
}

// Execute implements subcommand.Command.
func (cmd *generateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	roots := f.Args()
	if len(roots) == 0 {
		log.Errorf("cser: no root types specified")
		return subcommands.ExitStatus(cgenerr.ExitNoRoots)
	}

	selected, err := selectBackends(cmd.backends)
	if err != nil {
		log.Errorf("cser: %v", err)
		return subcommands.ExitStatus(cgenerr.ExitSyntax)
	}

	ctx = stage.NewContext(ctx)

	reg := model.NewRegistry()
	model.RegisterBuiltins(reg)
	nBuiltins := len(reg.Types())
	asm := frontend.New(reg)

	for _, path := range cmd.includes {
		src, err := os.ReadFile(path)
		if err != nil {
			log.Errorf("cser: %v", err)
			return subcommands.ExitStatus(cgenerr.CodeOf(&cgenerr.IOFailure{Path: path, Err: err}))
		}
		if err := langparse.Parse(string(src), asm); err != nil {
			log.Errorf("cser: parsing %q: %v", path, err)
			return subcommands.ExitStatus(cgenerr.ExitSyntax)
		}
	}
	stage.Mark(ctx, "parse")
	if cmd.verbose > 0 {
		for _, t := range reg.Types()[nBuiltins:] {
			fmt.Fprintln(os.Stderr, t)
		}
	}

	used, err := reach.Mark(reg, roots)
	if err != nil {
		log.Errorf("cser: %v", err)
		return subcommands.ExitStatus(cgenerr.CodeOf(err))
	}
	reach.Filter(reg, used)
	stage.Mark(ctx, "reach")

	file, err := assembleFile(reg, cmd.outBase, cmd.includes, selected)
	if err != nil {
		log.Errorf("cser: %v", err)
		return subcommands.ExitStatus(cgenerr.CodeOf(err))
	}
	stage.Mark(ctx, "emit")

	outPath := cmd.outBase + ".go"
	if err := writeFile(outPath, file); err != nil {
		log.Errorf("cser: %v", err)
		return subcommands.ExitStatus(cgenerr.CodeOf(err))
	}
	stage.Mark(ctx, "write")

	if cmd.verbose > 0 {
		fmt.Fprintln(os.Stderr, stage.Dump(ctx))
	}

	return subcommands.ExitSuccess
}

// selectBackends validates -b's values and returns them in the fixed
// binary-before-document order, deduplicated, defaulting to {"raw"} when
// -b was never given.
func selectBackends(given []string) ([]string, error) {
	if len(given) == 0 {
		return []string{"raw"}, nil
	}
	want := map[string]bool{}
	for _, b := range given {
		valid := false
		for _, n := range backendNames {
			if b == n {
				valid = true
			}
		}
		if !valid {
			return nil, fmt.Errorf("unknown backend %q, want one of %v", b, backendNames)
		}
		want[b] = true
	}
	var selected []string
	for _, n := range backendNames {
		if want[n] {
			selected = append(selected, n)
		}
	}
	return selected, nil
}

// assembleFile builds the complete generated dst.File: type declarations
// from typesgen, then Store/Load functions from each selected backend in
// order, with the import block computed from what the backends actually
// used.
func assembleFile(reg *model.Registry, outBase string, includes []string, backends []string) (*dst.File, error) {
	need := map[string]bool{}
	var body []dst.Decl

	body = append(body, typesgen.Generate(reg)...)

	for _, backend := range backends {
		var decls []dst.Decl
		var imports []string
		var err error
		switch backend {
		case "raw":
			decls, imports, err = binarygen.Generate(reg)
		case "xml":
			decls, imports, err = docgen.Generate(reg)
		}
		if err != nil {
			return nil, err
		}
		body = append(body, decls...)
		for _, p := range imports {
			need[p] = true
		}
	}

	importDecl := importGenDecl(need, includes)

	file := &dst.File{
		Name:  goast.Ident(packageName(outBase)),
		Decls: append([]dst.Decl{importDecl}, body...),
	}
	header := []string{"// Code generated by cser. DO NOT EDIT."}
	for _, inc := range includes {
		header = append(header, fmt.Sprintf("// source: %s", inc))
	}
	importDecl.Decs.Start.Append(header...)

	return file, nil
}

func importGenDecl(need map[string]bool, includes []string) *dst.GenDecl {
	var paths []string
	for p := range need {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	specs := make([]dst.Spec, len(paths))
	for i, p := range paths {
		specs[i] = &dst.ImportSpec{Path: &dst.BasicLit{Kind: token.STRING, Value: strconv.Quote(p)}}
	}
	return &dst.GenDecl{Tok: token.IMPORT, Specs: specs}
}

// packageName derives a valid Go package identifier from the -o basename,
// lower-cased, with anything that isn't a letter/digit/underscore folded
// to "_".
func packageName(base string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "pkg" + name
	}
	return name
}

func writeFile(path string, file *dst.File) error {
	out, err := os.Create(path)
	if err != nil {
		return &cgenerr.IOFailure{Path: path, Err: err}
	}
	defer out.Close()

	if err := decorator.Fprint(out, file); err != nil {
		return &cgenerr.IOFailure{Path: path, Err: err}
	}
	return nil
}

func generateCommand() *generateCmd {
	return &generateCmd{}
}
