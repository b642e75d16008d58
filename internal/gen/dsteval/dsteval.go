// Package dsteval executes the dst statement/expression trees binarygen
// and docgen build, against real byte buffers and sinks, instead of just
// inspecting their shape. It understands exactly the subset of Go those
// two emitters produce (var decls, assignment, if/for/range, the handful
// of builtin conversions and calls they use) — it is not a general Go
// interpreter.
//
// Generated Store/Load functions are looked up by name and re-entered
// recursively, so a composite's Store function really does drive its
// members' native Store functions the way compiled code would; there is
// no separate hand-written model of what the wire format "should" look
// like to drift out of sync with the emitter.
package dsteval

import (
	"fmt"
	"go/token"
	"strconv"

	"github.com/dave/dst"
)

// Ref is an addressable storage cell: every Go variable, struct field, and
// slice element the interpreter touches is one of these, so that "&x"
// and pointer dereference behave the way they do in compiled Go.
type Ref struct{ V any }

// StructVal is the runtime representation of a struct value. Fields are
// created lazily on first address-of or assignment, which is safe here
// because generated Store/Load code always initializes a field before
// any read of it.
type StructVal struct{ Fields map[string]*Ref }

// NewStruct returns an empty struct value.
func NewStruct() *StructVal { return &StructVal{Fields: map[string]*Ref{}} }

func (s *StructVal) field(name string) *Ref {
	if r, ok := s.Fields[name]; ok {
		return r
	}
	r := &Ref{}
	s.Fields[name] = r
	return r
}

// Callback models a BinaryWriter/BinaryReader value: something "w" or "r"
// can be bound to and invoked with a []byte argument.
type Callback interface {
	Invoke(p []byte) error
}

// Env binds names visible in the current function call to their storage
// cells. Generated functions never shadow a name within nested blocks in
// a way that needs real lexical scoping, so one flat map per call serves.
type Env map[string]*Ref

// Host supplies the generated declarations callable by name, keyed by
// dst.FuncDecl.Name.Name (e.g. "StoreInt32T", "LoadWidget").
type Host struct {
	Funcs map[string]*dst.FuncDecl
}

type signal struct {
	kind int // 0 = fell through, 1 = break, 2 = return
	vals []any
}

const (
	sigNone = iota
	sigBreak
	sigReturn
)

// CallFunc binds fd's parameters to args positionally and executes its
// body, returning the single value its return statement carries (every
// Store/Load function binarygen/docgen emit returns exactly one result:
// an error).
func CallFunc(fd *dst.FuncDecl, args []any, host *Host) (any, error) {
	env := Env{}
	params := fd.Type.Params.List
	if len(params) != len(args) {
		return nil, fmt.Errorf("dsteval: %s wants %d args, got %d", fd.Name.Name, len(params), len(args))
	}
	for i, p := range params {
		env[p.Names[0].Name] = &Ref{V: args[i]}
	}
	sig, err := execBlock(fd.Body.List, env, host)
	if err != nil {
		return nil, fmt.Errorf("dsteval: in %s: %w", fd.Name.Name, err)
	}
	if sig.kind == sigReturn && len(sig.vals) > 0 {
		return sig.vals[0], nil
	}
	return nil, nil
}

func execBlock(stmts []dst.Stmt, env Env, host *Host) (signal, error) {
	for _, s := range stmts {
		sig, err := execStmt(s, env, host)
		if err != nil {
			return signal{}, err
		}
		if sig.kind != sigNone {
			return sig, nil
		}
	}
	return signal{}, nil
}

func execStmt(s dst.Stmt, env Env, host *Host) (signal, error) {
	switch s := s.(type) {
	case *dst.BlockStmt:
		return execBlock(s.List, env, host)

	case *dst.DeclStmt:
		gd := s.Decl.(*dst.GenDecl)
		vs := gd.Specs[0].(*dst.ValueSpec)
		zero, err := zeroValue(vs.Type, env, host)
		if err != nil {
			return signal{}, err
		}
		env[vs.Names[0].Name] = &Ref{V: zero}
		return signal{}, nil

	case *dst.AssignStmt:
		if len(s.Lhs) == 2 {
			// e.g. "tag, err := sink.NextTag()" — the only multi-result
			// shape generated code produces.
			call, ok := s.Rhs[0].(*dst.CallExpr)
			if !ok {
				return signal{}, fmt.Errorf("dsteval: 2-lhs assign from %T, want call", s.Rhs[0])
			}
			vals, err := evalCallN(call, env, host)
			if err != nil {
				return signal{}, err
			}
			if len(vals) != 2 {
				return signal{}, fmt.Errorf("dsteval: %v returned %d values, want 2", call.Fun, len(vals))
			}
			for i, lhs := range s.Lhs {
				if id, ok := lhs.(*dst.Ident); ok && id.Name == "_" {
					continue
				}
				if s.Tok == token.DEFINE {
					if id, ok := lhs.(*dst.Ident); ok {
						env[id.Name] = &Ref{V: vals[i]}
						continue
					}
				}
				ref, err := addrOf(lhs, env, host)
				if err != nil {
					return signal{}, err
				}
				ref.V = vals[i]
			}
			return signal{}, nil
		}
		rhs, err := eval(s.Rhs[0], env, host)
		if err != nil {
			return signal{}, err
		}
		if s.Tok == token.DEFINE {
			if id, ok := s.Lhs[0].(*dst.Ident); ok {
				env[id.Name] = &Ref{V: rhs}
				return signal{}, nil
			}
		}
		ref, err := addrOf(s.Lhs[0], env, host)
		if err != nil {
			return signal{}, err
		}
		ref.V = rhs
		return signal{}, nil

	case *dst.IncDecStmt:
		ref, err := addrOf(s.X, env, host)
		if err != nil {
			return signal{}, err
		}
		n, ok := ref.V.(int64)
		if !ok {
			return signal{}, fmt.Errorf("dsteval: ++/-- on non-int %T", ref.V)
		}
		if s.Tok == token.INC {
			ref.V = n + 1
		} else {
			ref.V = n - 1
		}
		return signal{}, nil

	case *dst.IfStmt:
		callEnv := env
		if s.Init != nil {
			if sig, err := execStmt(s.Init, callEnv, host); err != nil || sig.kind != sigNone {
				return sig, err
			}
		}
		cond, err := eval(s.Cond, callEnv, host)
		if err != nil {
			return signal{}, err
		}
		b, ok := cond.(bool)
		if !ok {
			return signal{}, fmt.Errorf("dsteval: if condition is %T, want bool", cond)
		}
		if b {
			return execBlock(s.Body.List, callEnv, host)
		}
		switch e := s.Else.(type) {
		case nil:
			return signal{}, nil
		case *dst.BlockStmt:
			return execBlock(e.List, callEnv, host)
		case *dst.IfStmt:
			return execStmt(e, callEnv, host)
		default:
			return signal{}, fmt.Errorf("dsteval: unsupported else %T", e)
		}

	case *dst.ForStmt:
		if s.Init != nil {
			if sig, err := execStmt(s.Init, env, host); err != nil || sig.kind != sigNone {
				return sig, err
			}
		}
		for {
			if s.Cond != nil {
				cond, err := eval(s.Cond, env, host)
				if err != nil {
					return signal{}, err
				}
				if b, _ := cond.(bool); !b {
					break
				}
			}
			sig, err := execBlock(s.Body.List, env, host)
			if err != nil {
				return signal{}, err
			}
			if sig.kind == sigBreak {
				break
			}
			if sig.kind == sigReturn {
				return sig, nil
			}
			if s.Post != nil {
				if sig, err := execStmt(s.Post, env, host); err != nil || sig.kind != sigNone {
					return sig, err
				}
			}
		}
		return signal{}, nil

	case *dst.RangeStmt:
		xv, err := eval(s.X, env, host)
		if err != nil {
			return signal{}, err
		}
		n, err := sliceLen(xv)
		if err != nil {
			return signal{}, err
		}
		keyName := s.Key.(*dst.Ident).Name
		for i := 0; i < n; i++ {
			env[keyName] = &Ref{V: int64(i)}
			sig, err := execBlock(s.Body.List, env, host)
			if err != nil {
				return signal{}, err
			}
			if sig.kind == sigBreak {
				break
			}
			if sig.kind == sigReturn {
				return sig, nil
			}
		}
		return signal{}, nil

	case *dst.BranchStmt:
		if s.Tok == token.BREAK {
			return signal{kind: sigBreak}, nil
		}
		return signal{}, fmt.Errorf("dsteval: unsupported branch %v", s.Tok)

	case *dst.ReturnStmt:
		var vals []any
		for _, r := range s.Results {
			v, err := eval(r, env, host)
			if err != nil {
				return signal{}, err
			}
			vals = append(vals, v)
		}
		return signal{kind: sigReturn, vals: vals}, nil

	case *dst.ExprStmt:
		_, err := eval(s.X, env, host)
		return signal{}, err

	default:
		return signal{}, fmt.Errorf("dsteval: unsupported statement %T", s)
	}
}

func sliceLen(v any) (int, error) {
	switch v := v.(type) {
	case []byte:
		return len(v), nil
	case []*Ref:
		return len(v), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("dsteval: range over non-slice %T", v)
	}
}

func zeroValue(typ dst.Expr, env Env, host *Host) (any, error) {
	switch t := typ.(type) {
	case *dst.Ident:
		switch t.Name {
		case "bool":
			return false, nil
		case "string":
			return "", nil
		default:
			return int64(0), nil // covers byte/intN/uintN/floatN scalars
		}
	case *dst.ArrayType:
		if t.Len == nil {
			return []byte(nil), nil
		}
		n, err := evalInt(t.Len, env, host)
		if err != nil {
			return nil, err
		}
		return make([]byte, n), nil
	default:
		return nil, fmt.Errorf("dsteval: unsupported var type %T", typ)
	}
}

// addrOf resolves an lvalue expression to the Ref backing its storage.
func addrOf(e dst.Expr, env Env, host *Host) (*Ref, error) {
	switch e := e.(type) {
	case *dst.Ident:
		ref, ok := env[e.Name]
		if !ok {
			return nil, fmt.Errorf("dsteval: undefined: %s", e.Name)
		}
		return ref, nil

	case *dst.SelectorExpr:
		xv, err := eval(e.X, env, host)
		if err != nil {
			return nil, err
		}
		sv, ok := xv.(*StructVal)
		if !ok {
			return nil, fmt.Errorf("dsteval: %s.%s on non-struct %T", e.X, e.Sel.Name, xv)
		}
		return sv.field(e.Sel.Name), nil

	case *dst.IndexExpr:
		xv, err := eval(e.X, env, host)
		if err != nil {
			return nil, err
		}
		idx, err := evalInt(e.Index, env, host)
		if err != nil {
			return nil, err
		}
		slice, ok := xv.([]*Ref)
		if !ok {
			return nil, fmt.Errorf("dsteval: index into non-addressable slice %T", xv)
		}
		if idx < 0 || int(idx) >= len(slice) {
			return nil, fmt.Errorf("dsteval: index %d out of range (len %d)", idx, len(slice))
		}
		return slice[idx], nil

	case *dst.StarExpr:
		xv, err := eval(e.X, env, host)
		if err != nil {
			return nil, err
		}
		ptr, ok := xv.(*Ref)
		if !ok {
			return nil, fmt.Errorf("dsteval: dereferencing non-pointer %T", xv)
		}
		return ptr, nil

	default:
		return nil, fmt.Errorf("dsteval: %T is not addressable", e)
	}
}

func evalInt(e dst.Expr, env Env, host *Host) (int64, error) {
	v, err := eval(e, env, host)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("dsteval: expected int, got %T", v)
	}
	return n, nil
}

func isNil(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case []byte:
		return v == nil
	case []*Ref:
		return v == nil
	case *Ref:
		return v == nil
	case *StructVal:
		return v == nil
	case error:
		return v == nil
	default:
		return false
	}
}

func eval(e dst.Expr, env Env, host *Host) (any, error) {
	switch e := e.(type) {
	case *dst.Ident:
		switch e.Name {
		case "nil":
			return nil, nil
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		if ref, ok := env[e.Name]; ok {
			return ref.V, nil
		}
		return nil, fmt.Errorf("dsteval: undefined: %s", e.Name)

	case *dst.BasicLit:
		switch e.Kind {
		case token.INT:
			n, err := strconv.ParseInt(e.Value, 0, 64)
			return n, err
		case token.STRING:
			return strconv.Unquote(e.Value)
		default:
			return nil, fmt.Errorf("dsteval: unsupported literal kind %v", e.Kind)
		}

	case *dst.BinaryExpr:
		x, err := eval(e.X, env, host)
		if err != nil {
			return nil, err
		}
		y, err := eval(e.Y, env, host)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.EQL:
			return equalValues(x, y), nil
		case token.NEQ:
			return !equalValues(x, y), nil
		case token.LSS:
			xi, xok := x.(int64)
			yi, yok := y.(int64)
			if !xok || !yok {
				return nil, fmt.Errorf("dsteval: < on non-int %T/%T", x, y)
			}
			return xi < yi, nil
		default:
			return nil, fmt.Errorf("dsteval: unsupported binary op %v", e.Op)
		}

	case *dst.UnaryExpr:
		if e.Op != token.AND {
			return nil, fmt.Errorf("dsteval: unsupported unary op %v", e.Op)
		}
		if cl, ok := e.X.(*dst.CompositeLit); ok {
			if _, isArr := cl.Type.(*dst.ArrayType); !isArr {
				return NewStruct(), nil
			}
		}
		return addrOf(e.X, env, host)

	case *dst.StarExpr:
		ref, err := addrOf(e, env, host)
		if err != nil {
			return nil, err
		}
		return ref.V, nil

	case *dst.IndexExpr:
		xv, err := eval(e.X, env, host)
		if err != nil {
			return nil, err
		}
		idx, err := evalInt(e.Index, env, host)
		if err != nil {
			return nil, err
		}
		switch xv := xv.(type) {
		case []byte:
			return int64(xv[idx]), nil
		case []*Ref:
			return xv[idx].V, nil
		default:
			return nil, fmt.Errorf("dsteval: index into %T", xv)
		}

	case *dst.SliceExpr:
		return eval(e.X, env, host)

	case *dst.SelectorExpr:
		xv, err := eval(e.X, env, host)
		if err != nil {
			return nil, err
		}
		sv, ok := xv.(*StructVal)
		if !ok {
			return nil, fmt.Errorf("dsteval: selector on non-struct %T", xv)
		}
		return sv.field(e.Sel.Name).V, nil

	case *dst.CompositeLit:
		if at, ok := e.Type.(*dst.ArrayType); ok {
			if len(e.Elts) == 0 {
				return zeroValue(at, env, host)
			}
			buf := make([]byte, 0, len(e.Elts))
			for _, elt := range e.Elts {
				v, err := eval(elt, env, host)
				if err != nil {
					return nil, err
				}
				n, ok := v.(int64)
				if !ok {
					return nil, fmt.Errorf("dsteval: composite literal element is %T, want int", v)
				}
				buf = append(buf, byte(n))
			}
			return buf, nil
		}
		// A struct literal, e.g. Tag{Name: x, HasValue: y} — every field is
		// keyed (positional struct literals don't appear in generated code).
		sv := NewStruct()
		for _, elt := range e.Elts {
			kv, ok := elt.(*dst.KeyValueExpr)
			if !ok {
				return nil, fmt.Errorf("dsteval: unsupported composite literal element %T", elt)
			}
			key, ok := kv.Key.(*dst.Ident)
			if !ok {
				return nil, fmt.Errorf("dsteval: composite literal key is %T, want *dst.Ident", kv.Key)
			}
			v, err := eval(kv.Value, env, host)
			if err != nil {
				return nil, err
			}
			sv.Fields[key.Name] = &Ref{V: v}
		}
		return sv, nil

	case *dst.CallExpr:
		return evalCall(e, env, host)

	default:
		return nil, fmt.Errorf("dsteval: unsupported expression %T", e)
	}
}

func equalValues(x, y any) bool {
	if isNil(x) || isNil(y) {
		return isNil(x) && isNil(y)
	}
	return x == y
}

func flattenCallee(e dst.Expr) (string, bool) {
	switch e := e.(type) {
	case *dst.Ident:
		return e.Name, true
	case *dst.SelectorExpr:
		base, ok := flattenCallee(e.X)
		if !ok {
			return "", false
		}
		return base + "." + e.Sel.Name, true
	default:
		return "", false
	}
}

// Methods lets an env-bound value (e.g. a DocSink fake) answer "sink.Foo(args)"
// style calls generically, without dsteval knowing the interface's shape.
type Methods interface {
	CallMethod(name string, args []any) ([]any, error)
}

var uintWidths = map[string]int{"PutUint16": 2, "PutUint32": 4, "PutUint64": 8, "Uint16": 2, "Uint32": 4, "Uint64": 8}

func lastSegment(name string) string {
	if i := lastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func firstSegment(name string) (string, string, bool) {
	if i := indexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:], true
	}
	return name, "", false
}

func evalCall(e *dst.CallExpr, env Env, host *Host) (any, error) {
	vals, err := evalCallN(e, env, host)
	if err != nil || len(vals) == 0 {
		return nil, err
	}
	return vals[0], nil
}

func evalCallN(e *dst.CallExpr, env Env, host *Host) ([]any, error) {
	name, ok := flattenCallee(e.Fun)
	if !ok {
		return nil, fmt.Errorf("dsteval: unsupported call target %T", e.Fun)
	}

	// make(Type, n) and make(Type) carry a type expression, not a value,
	// as their first argument; handle before evaluating args generically.
	if name == "make" {
		v, err := evalMake(e, env, host)
		return []any{v}, err
	}

	args := make([]any, len(e.Args))
	for i, a := range e.Args {
		v, err := eval(a, env, host)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if base, method, ok := firstSegment(name); ok {
		if ref, envOK := env[base]; envOK {
			if m, ok := ref.V.(Methods); ok {
				return m.CallMethod(method, args)
			}
		}
	}

	if !contains(name, '.') {
		if ref, ok := env[name]; ok {
			if cb, ok := ref.V.(Callback); ok {
				if p, ok := args[0].([]byte); ok {
					return []any{cb.Invoke(p)}, nil
				}
				return nil, fmt.Errorf("dsteval: %s called with %T, want []byte", name, args[0])
			}
		}
	}

	switch name {
	case "append":
		base, _ := args[0].([]byte)
		n, ok := args[1].(int64)
		if !ok {
			return nil, fmt.Errorf("dsteval: append element is %T, want int", args[1])
		}
		return []any{append(base, byte(n))}, nil
	case "string":
		b, ok := args[0].([]byte)
		if !ok {
			return nil, fmt.Errorf("dsteval: string() of %T", args[0])
		}
		return []any{string(b)}, nil
	case "[]byte":
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("dsteval: []byte() of %T", args[0])
		}
		return []any{[]byte(s)}, nil
	case "byte", "uint8", "uint16", "uint32", "uint64", "uint",
		"int8", "int16", "int32", "int64", "int", "bool":
		n, ok := args[0].(int64)
		if !ok {
			return nil, fmt.Errorf("dsteval: numeric conversion of %T", args[0])
		}
		return []any{n}, nil
	case "float32", "float64":
		n, ok := args[0].(int64)
		if !ok {
			return []any{args[0]}, nil
		}
		return []any{float64(n)}, nil
	}

	if width, ok := uintWidths[lastSegment(name)]; ok {
		buf, ok := args[0].([]byte)
		if !ok {
			return nil, fmt.Errorf("dsteval: %s on %T, want []byte", name, args[0])
		}
		if lastSegment(name)[0] == 'P' { // PutUintN(buf, v): mutates buf in place, no result
			v, ok := args[1].(int64)
			if !ok {
				return nil, fmt.Errorf("dsteval: %s value is %T, want int", name, args[1])
			}
			for i := 0; i < width; i++ {
				shift := uint(8 * (width - 1 - i))
				buf[i] = byte(v >> shift)
			}
			return nil, nil
		}
		var v int64
		for i := 0; i < width; i++ {
			v = v<<8 | int64(buf[i])
		}
		return []any{v}, nil
	}

	if vals, ok, err := evalStrconvCall(name, args); ok {
		return vals, err
	}

	if fd, ok := host.Funcs[name]; ok {
		return CallFunc(fd, args, host)
	}

	return nil, fmt.Errorf("dsteval: unknown call %s", name)
}

// evalStrconvCall handles the strconv.Format*/Parse* calls docgen's
// storeDocNativeFunc/loadDocNativeFunc use to render natives as decimal
// text. The bool "handled" return tells the caller whether name matched
// a strconv call at all, distinct from that call itself erroring.
func evalStrconvCall(name string, args []any) (vals []any, handled bool, err error) {
	const prefix = "strconv."
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return nil, false, nil
	}
	switch lastSegment(name) {
	case "FormatInt":
		n, ok := args[0].(int64)
		if !ok {
			return nil, true, fmt.Errorf("dsteval: FormatInt arg is %T, want int64", args[0])
		}
		return []any{strconv.FormatInt(n, 10)}, true, nil
	case "FormatUint":
		n, ok := args[0].(int64)
		if !ok {
			return nil, true, fmt.Errorf("dsteval: FormatUint arg is %T, want int64", args[0])
		}
		return []any{strconv.FormatUint(uint64(n), 10)}, true, nil
	case "ParseInt":
		s, ok := args[0].(string)
		if !ok {
			return nil, true, fmt.Errorf("dsteval: ParseInt arg is %T, want string", args[0])
		}
		n, perr := strconv.ParseInt(s, 10, 64)
		if perr != nil {
			return []any{int64(0), perr}, true, nil
		}
		return []any{n, nil}, true, nil
	case "ParseUint":
		s, ok := args[0].(string)
		if !ok {
			return nil, true, fmt.Errorf("dsteval: ParseUint arg is %T, want string", args[0])
		}
		n, perr := strconv.ParseUint(s, 10, 64)
		if perr != nil {
			return []any{int64(0), perr}, true, nil
		}
		return []any{int64(n), nil}, true, nil
	}
	return nil, false, nil
}

func evalMake(e *dst.CallExpr, env Env, host *Host) (any, error) {
	at, ok := e.Args[0].(*dst.ArrayType)
	if !ok {
		return nil, fmt.Errorf("dsteval: make() first arg is %T, want *dst.ArrayType", e.Args[0])
	}
	n, err := evalInt(e.Args[1], env, host)
	if err != nil {
		return nil, err
	}
	if id, ok := at.Elt.(*dst.Ident); ok && id.Name == "byte" {
		return make([]byte, n), nil
	}
	slice := make([]*Ref, n)
	for i := range slice {
		slice[i] = &Ref{V: int64(0)}
	}
	return slice, nil
}

func contains(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// Writer is a Callback that appends every write to Buf, modeling a
// BinaryWriter backed by an in-memory byte slice.
type Writer struct{ Buf *[]byte }

func (w *Writer) Invoke(p []byte) error {
	*w.Buf = append(*w.Buf, p...)
	return nil
}

// Reader is a Callback that reads sequentially from Data, modeling a
// BinaryReader backed by a fixed byte slice.
type Reader struct {
	Data []byte
	Pos  int
}

func (r *Reader) Invoke(p []byte) error {
	if r.Pos+len(p) > len(r.Data) {
		return fmt.Errorf("dsteval: short read: want %d bytes at offset %d, have %d", len(p), r.Pos, len(r.Data))
	}
	copy(p, r.Data[r.Pos:r.Pos+len(p)])
	r.Pos += len(p)
	return nil
}
