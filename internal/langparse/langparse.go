// Package langparse implements a small recursive-descent parser for the
// concrete declaration syntax this tool accepts: C-family typedefs,
// tagged structs, and member pragmas. It drives an *frontend.Assembler
// exactly the way a real C11 front end would, through the same
// capture/set_type/set_name/note_pointer/note_array_size/handle_pragma/
// capture_member/end_capture callback sequence.
//
// The real cser tool parses full C11 via a generated lex/yacc front end;
// that grammar (and the preprocessor behind #include/#pragma) is treated
// as a black box this project doesn't reimplement. This package instead
// recognizes the declaration subset the rest of the tool actually cares
// about: typedefs of natives/composites/arrays/pointers, struct bodies,
// forward-declared tags, and a trailing string-literal pragma in place of
// a real __attribute__((annotate(...))).
package langparse

import (
	"fmt"
	"strings"
	"text/scanner"

	"github.com/dius/cser/internal/frontend"
)

// baseTypeWords are the keyword fragments that combine into a multi-word
// native type name, e.g. "unsigned long long".
var baseTypeWords = map[string]bool{
	"void": true, "bool": true, "_Bool": true, "char": true,
	"short": true, "int": true, "long": true, "signed": true,
	"unsigned": true, "float": true, "double": true,
}

// Parser parses source text and drives an Assembler.
type Parser struct {
	sc  scanner.Scanner
	sym *frontend.SymbolTable
	asm *frontend.Assembler

	tok rune
}

// New returns a Parser reading src, driving asm. sym may be nil, in which
// case the parser keeps its own private symbol table.
func New(src string, asm *frontend.Assembler, sym *frontend.SymbolTable) *Parser {
	p := &Parser{asm: asm, sym: sym}
	if p.sym == nil {
		p.sym = frontend.NewSymbolTable()
	}
	p.sc.Init(strings.NewReader(src))
	p.sc.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	p.sc.Filename = "<declarations>"
	p.next()
	return p
}

// Parse consumes every top-level declaration in the source, driving the
// Assembler, and returns the first error encountered.
func Parse(src string, asm *frontend.Assembler) error {
	return New(src, asm, nil).Parse()
}

func (p *Parser) next() {
	p.tok = p.sc.Scan()
}

func (p *Parser) text() string {
	return p.sc.TokenText()
}

func (p *Parser) errorf(format string, a ...any) error {
	return fmt.Errorf("%s: %s", p.sc.Position, fmt.Sprintf(format, a...))
}

func (p *Parser) expect(tok rune, desc string) error {
	if p.tok != tok {
		return p.errorf("expected %s, got %q", desc, p.text())
	}
	p.next()
	return nil
}

func (p *Parser) expectIdent(desc string) (string, error) {
	if p.tok != scanner.Ident {
		return "", p.errorf("expected %s, got %q", desc, p.text())
	}
	name := p.text()
	p.next()
	return name, nil
}

// Parse consumes every top-level declaration.
func (p *Parser) Parse() error {
	for p.tok != scanner.EOF {
		if err := p.parseTopLevel(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseTopLevel() error {
	switch {
	case p.tok == scanner.Ident && p.text() == "typedef":
		p.next()
		return p.parseTypedef()
	case p.tok == scanner.Ident && p.text() == "struct":
		p.next()
		return p.parseTopLevelStruct()
	default:
		return p.errorf("expected 'typedef' or 'struct', got %q", p.text())
	}
}

// parseTopLevelStruct handles "struct Tag;" (forward declaration) and
// "struct Tag { members };" (composite definition), with no typedef.
func (p *Parser) parseTopLevelStruct() error {
	tag, err := p.expectIdent("struct tag")
	if err != nil {
		return err
	}
	if p.tok == ';' {
		p.next()
		p.asm.AddPlaceholder(tag)
		return nil
	}
	if err := p.expect('{', "'{'"); err != nil {
		return err
	}
	p.asm.Capture(true)
	if err := p.parseMembers(); err != nil {
		return err
	}
	if err := p.expect('}', "'}'"); err != nil {
		return err
	}
	p.asm.SetName(tag)
	if err := p.expect(';', "';'"); err != nil {
		return err
	}
	return p.asm.EndCapture(true)
}

// parseTypedef handles every "typedef ..." form: anonymous-struct
// typedefs, typedefs of a (possibly forward-declared) tag, and ordinary
// decorated/alias typedefs of a type expression.
func (p *Parser) parseTypedef() error {
	if p.tok == scanner.Ident && p.text() == "struct" {
		p.next()
		return p.parseStructTypedef()
	}

	baseType, err := p.parseTypeSpecifier()
	if err != nil {
		return err
	}
	p.asm.Capture(false)
	p.asm.SetType(baseType)
	p.consumePointers()
	name, err := p.expectIdent("typedef name")
	if err != nil {
		return err
	}
	p.asm.SetName(name)
	if err := p.parseArraySuffixes(); err != nil {
		return err
	}
	if err := p.expect(';', "';'"); err != nil {
		return err
	}
	if err := p.asm.EndCapture(false); err != nil {
		return err
	}
	p.sym.AddTypedefName(name)
	return nil
}

func (p *Parser) parseStructTypedef() error {
	if p.tok == '{' {
		p.next()
		p.asm.Capture(true)
		if err := p.parseMembers(); err != nil {
			return err
		}
		if err := p.expect('}', "'}'"); err != nil {
			return err
		}
		name, err := p.expectIdent("typedef name")
		if err != nil {
			return err
		}
		p.asm.SetName(name)
		if err := p.expect(';', "';'"); err != nil {
			return err
		}
		if err := p.asm.EndCapture(true); err != nil {
			return err
		}
		p.sym.AddTypedefName(name)
		return nil
	}

	tag, err := p.expectIdent("struct tag")
	if err != nil {
		return err
	}
	p.asm.Capture(false)
	p.asm.SetType(tag)
	p.consumePointers()
	name, err := p.expectIdent("typedef name")
	if err != nil {
		return err
	}
	p.asm.SetName(name)
	if err := p.parseArraySuffixes(); err != nil {
		return err
	}
	if err := p.expect(';', "';'"); err != nil {
		return err
	}
	if err := p.asm.EndCapture(false); err != nil {
		return err
	}
	p.sym.AddTypedefName(name)
	return nil
}

// parseMembers parses member declarations up to (not including) the
// closing '}'.
func (p *Parser) parseMembers() error {
	for p.tok != '}' {
		baseType, err := p.parseTypeSpecifier()
		if err != nil {
			return err
		}
		p.asm.SetType(baseType)
		p.consumePointers()
		name, err := p.expectIdent("member name")
		if err != nil {
			return err
		}
		p.asm.SetName(name)
		if err := p.parseArraySuffixes(); err != nil {
			return err
		}
		if p.tok == scanner.String {
			p.asm.HandlePragma(p.text())
			p.next()
		}
		if err := p.expect(';', "';'"); err != nil {
			return err
		}
		if err := p.asm.CaptureMember(); err != nil {
			return err
		}
	}
	return nil
}

// parseTypeSpecifier consumes either a run of native keyword fragments
// ("unsigned long long") or a single typedef-name/tag reference, and
// returns the joined base-type string.
func (p *Parser) parseTypeSpecifier() (string, error) {
	var words []string
	for p.tok == scanner.Ident && baseTypeWords[p.text()] {
		words = append(words, p.text())
		p.next()
	}
	if len(words) > 0 {
		return strings.Join(words, " "), nil
	}
	if p.tok != scanner.Ident {
		return "", p.errorf("expected type name, got %q", p.text())
	}
	name := p.text()
	p.next()
	return name, nil
}

func (p *Parser) consumePointers() {
	for p.tok == '*' {
		p.asm.NotePointer()
		p.next()
	}
}

// parseArraySuffixes consumes zero or more "[expr]" array-size suffixes.
func (p *Parser) parseArraySuffixes() error {
	for p.tok == '[' {
		p.next()
		var expr strings.Builder
		for p.tok != ']' {
			if p.tok == scanner.EOF {
				return p.errorf("unterminated array size expression")
			}
			expr.WriteString(p.text())
			p.next()
		}
		p.next() // consume ']'
		p.asm.NoteArraySize(expr.String())
	}
	return nil
}
