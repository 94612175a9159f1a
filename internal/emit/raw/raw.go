// Package raw implements the raw systems emitter (spec.md §4.10, C4c): it
// lowers a Core module that has already been monomorphized and raw-type
// lowered into target source with no supporting runtime, in the manner of
// the teacher's cmd/wasm backend (name-table pre-allocation, closure
// hoisting via extra parameters, direct operator/intrinsic recognition).
package raw

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/types"
)

// reservedWords are escaped by appending an underscore, mirroring the
// teacher's per-language keyword-quoting convention.
var reservedWords = map[string]bool{
	"fn": true, "if": true, "else": true, "match": true, "return": true,
	"struct": true, "enum": true, "const": true, "var": true, "type": true,
	"pub": true, "import": true, "self": true, "defer": true,
}

func escape(name string) string {
	if reservedWords[name] {
		return name + "_"
	}
	return name
}

// NameTable pre-allocates every module-level name so hoisted lambdas
// cannot shadow imports or bindings (spec.md §4.10).
type NameTable struct {
	taken   map[string]bool
	counter int
}

func NewNameTable(existing ...string) *NameTable {
	nt := &NameTable{taken: map[string]bool{}}
	for _, n := range existing {
		nt.taken[n] = true
	}
	return nt
}

func (nt *NameTable) Allocate(hint string) string {
	name := escape(hint)
	if !nt.taken[name] {
		nt.taken[name] = true
		return name
	}
	for {
		candidate := fmt.Sprintf("%s_%d", name, nt.counter)
		nt.counter++
		if !nt.taken[candidate] {
			nt.taken[candidate] = true
			return candidate
		}
	}
}

// hoistedFn is one lambda hoisted to module level.
type hoistedFn struct {
	name     string
	params   []string
	captures []string
	body     string
}

// Emitter renders Core modules as raw systems-target source.
type Emitter struct {
	names    *NameTable
	hoisted  []hoistedFn
	captures map[string][]string // hoisted function name -> captured free var names, for recursive call rewriting
}

func NewEmitter(moduleLevelNames []string) *Emitter {
	return &Emitter{
		names:    NewNameTable(moduleLevelNames...),
		captures: map[string][]string{},
	}
}

// EmitModule renders mod, returning the module source and the set of
// source-extension string-literal occurrences rewritten (for source-map
// side files, spec.md §4.10's last bullet).
func (em *Emitter) EmitModule(mod *core.Module, ext string) (string, []string, error) {
	var rewrites []string
	var b strings.Builder

	fmt.Fprintf(&b, "// module %s (raw)\n", mod.Path)

	for _, td := range mod.TypeDeclarations {
		em.emitTypeDecl(&b, td)
	}

	for _, vb := range mod.Values {
		body, rw, err := em.emitTopLevel(vb, ext)
		if err != nil {
			return "", nil, err
		}
		rewrites = append(rewrites, rw...)
		b.WriteString(body)
	}

	// Hoisted lambdas are emitted before any reference to them so forward
	// recursive calls resolve.
	var fns strings.Builder
	for _, h := range em.hoisted {
		params := append(append([]string(nil), h.params...), h.captures...)
		fmt.Fprintf(&fns, "fn %s(%s) {\n%s\n}\n\n", h.name, strings.Join(params, ", "), h.body)
	}

	out := fns.String() + b.String()
	return out, rewrites, nil
}

func (em *Emitter) emitTypeDecl(b *strings.Builder, td core.TypeDeclaration) {
	if td.Info == nil {
		return
	}
	if len(td.Info.Constructors) == 0 {
		return
	}
	name := escape(td.Name)
	fmt.Fprintf(b, "const %s = __taggedUnion(%q, [", name, td.Name)
	ctorNames := make([]string, len(td.Info.Constructors))
	for i, c := range td.Info.Constructors {
		ctorNames[i] = strconv.Quote(c.Name)
	}
	fmt.Fprintf(b, "%s]);\n", strings.Join(ctorNames, ", "))
}

func (em *Emitter) emitTopLevel(vb core.ValueBinding, ext string) (string, []string, error) {
	allocated := em.names.Allocate(vb.Name)
	var rewrites []string
	expr, err := em.emitExprCollecting(vb.Value, &rewrites, ext)
	if err != nil {
		return "", nil, err
	}
	qualifier := ""
	if vb.Exported {
		qualifier = "pub "
	}
	return fmt.Sprintf("%sconst %s = %s;\n", qualifier, allocated, expr), rewrites, nil
}

func (em *Emitter) emitExprCollecting(e core.Expr, rewrites *[]string, ext string) (string, error) {
	s, err := em.emitExpr(e, rewrites, ext)
	return s, err
}

var primNative = map[core.PrimOp]string{
	"int_add": "+", "int_sub": "-", "int_mul": "*",
	"bool_and": "&&", "bool_or": "||", "char_eq": "==",
	"bool_not": "!", "int_neg": "-",
}

func (em *Emitter) emitExpr(e core.Expr, rewrites *[]string, ext string) (string, error) {
	switch n := e.(type) {
	case *core.Literal:
		return em.emitLiteral(n, rewrites, ext)
	case *core.Var:
		return escape(n.Name), nil
	case *core.Tuple:
		parts, err := em.emitExprs(n.Elems, rewrites, ext)
		if err != nil {
			return "", err
		}
		return "." + "{" + strings.Join(parts, ", ") + "}", nil
	case *core.TupleGet:
		target, err := em.emitExpr(n.Target, rewrites, ext)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%d]", target, n.Index), nil
	case *core.Record:
		fields := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			v, err := em.emitExpr(f.Value, rewrites, ext)
			if err != nil {
				return "", err
			}
			fields[i] = fmt.Sprintf(".%s = %s", escape(f.Name), v)
		}
		return ".{" + strings.Join(fields, ", ") + "}", nil
	case *core.RecordGet:
		target, err := em.emitExpr(n.Target, rewrites, ext)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.%s", target, escape(n.Field)), nil
	case *core.Data:
		return em.emitData(n, rewrites, ext)
	case *core.EnumLiteral:
		return fmt.Sprintf("%s.%s", escape(n.TypeName), escape(n.Ctor)), nil
	case *core.Lambda:
		return em.emitLambda(n, rewrites, ext)
	case *core.Call:
		return em.emitCall(n, rewrites, ext)
	case *core.Let:
		val, err := em.emitExpr(n.Binding.Value, rewrites, ext)
		if err != nil {
			return "", err
		}
		body, err := em.emitExpr(n.Body, rewrites, ext)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("blk: { const %s = %s; break :blk %s; }", escape(n.Binding.Name), val, body), nil
	case *core.LetRec:
		var decls []string
		for _, bind := range n.Bindings {
			val, err := em.emitExpr(bind.Value, rewrites, ext)
			if err != nil {
				return "", err
			}
			decls = append(decls, fmt.Sprintf("const %s = %s;", escape(bind.Name), val))
		}
		body, err := em.emitExpr(n.Body, rewrites, ext)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("blk: { %s break :blk %s; }", strings.Join(decls, " "), body), nil
	case *core.If:
		cond, err := em.emitExpr(n.Cond, rewrites, ext)
		if err != nil {
			return "", err
		}
		then, err := em.emitExpr(n.Then, rewrites, ext)
		if err != nil {
			return "", err
		}
		els, err := em.emitExpr(n.Else, rewrites, ext)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(if (%s) %s else %s)", cond, then, els), nil
	case *core.Prim:
		return em.emitPrim(n, rewrites, ext)
	case *core.Match:
		return em.emitMatch(n, rewrites, ext)
	case *core.CarrierMatch:
		return em.emitCarrierMatch(n, rewrites, ext)
	case *core.CarrierUnwrap:
		return em.emitExpr(n.Target, rewrites, ext)
	case *core.CarrierWrap:
		return em.emitExpr(n.Inner, rewrites, ext)
	case *core.Coerce:
		return em.emitExpr(n.Inner, rewrites, ext)
	default:
		return "", fmt.Errorf("emit/raw: unsupported Core expression %T", e)
	}
}

func (em *Emitter) emitExprs(xs []core.Expr, rewrites *[]string, ext string) ([]string, error) {
	out := make([]string, len(xs))
	for i, x := range xs {
		v, err := em.emitExpr(x, rewrites, ext)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (em *Emitter) emitLiteral(lit *core.Literal, rewrites *[]string, ext string) (string, error) {
	switch lit.Kind {
	case types.PInt, types.PBool:
		return fmt.Sprintf("%v", lit.Value), nil
	case types.PChar:
		return "'" + string(lit.Value.(rune)) + "'", nil
	case types.PString:
		s := lit.Value.(string)
		if rewritten, ok := rewriteSourceExtension(s, ext); ok {
			*rewrites = append(*rewrites, s)
			s = rewritten
		}
		return strconv.Quote(s), nil
	case types.PUnit:
		return "{}", nil
	default:
		return "", fmt.Errorf("emit/raw: unsupported literal kind %v", lit.Kind)
	}
}

// rewriteSourceExtension rewrites a string literal referencing the
// source-language extension to the target extension (e.g. build.wm ->
// build.<ext>), spec.md §4.10's closing bullet.
func rewriteSourceExtension(s, ext string) (string, bool) {
	const sourceExt = ".wm"
	if strings.HasSuffix(s, sourceExt) {
		return strings.TrimSuffix(s, sourceExt) + "." + ext, true
	}
	return s, false
}

func (em *Emitter) emitData(d *core.Data, rewrites *[]string, ext string) (string, error) {
	fields, err := em.emitExprs(d.Fields, rewrites, ext)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s(%s)", escape(d.TypeName), escape(d.Ctor), strings.Join(fields, ", ")), nil
}

// emitLambda hoists the lambda to module level. Closures without free
// variables become direct functions; closures that capture free variables
// get those variables appended as extra parameters, and the call site
// (emitCall) appends the same captures.
func (em *Emitter) emitLambda(l *core.Lambda, rewrites *[]string, ext string) (string, error) {
	bound := map[string]bool{}
	for _, p := range l.Params {
		bound[p.Name] = true
	}
	free := map[string]bool{}
	collectFreeVars(l.Body, bound, free)
	captures := make([]string, 0, len(free))
	for name := range free {
		captures = append(captures, name)
	}
	sort.Strings(captures)

	body, err := em.emitExpr(l.Body, rewrites, ext)
	if err != nil {
		return "", err
	}
	name := em.names.Allocate("__lambda")
	params := make([]string, len(l.Params))
	for i, p := range l.Params {
		params[i] = escape(p.Name)
	}
	em.captures[name] = captures
	em.hoisted = append(em.hoisted, hoistedFn{
		name:     name,
		params:   params,
		captures: captures,
		body:     fmt.Sprintf("return %s;", body),
	})
	if len(captures) == 0 {
		return name, nil
	}
	return fmt.Sprintf("__bind(%s, %s)", name, strings.Join(captures, ", ")), nil
}

func collectFreeVars(e core.Expr, bound map[string]bool, free map[string]bool) {
	switch n := e.(type) {
	case *core.Var:
		if !bound[n.Name] {
			free[n.Name] = true
		}
	case *core.Lambda:
		inner := map[string]bool{}
		for k := range bound {
			inner[k] = true
		}
		for _, p := range n.Params {
			inner[p.Name] = true
		}
		collectFreeVars(n.Body, inner, free)
	case *core.Call:
		collectFreeVars(n.Callee, bound, free)
		for _, a := range n.Args {
			collectFreeVars(a, bound, free)
		}
	case *core.Let:
		collectFreeVars(n.Binding.Value, bound, free)
		inner := map[string]bool{}
		for k := range bound {
			inner[k] = true
		}
		inner[n.Binding.Name] = true
		collectFreeVars(n.Body, inner, free)
	case *core.LetRec:
		inner := map[string]bool{}
		for k := range bound {
			inner[k] = true
		}
		for _, bnd := range n.Bindings {
			inner[bnd.Name] = true
		}
		for _, bnd := range n.Bindings {
			collectFreeVars(bnd.Value, inner, free)
		}
		collectFreeVars(n.Body, inner, free)
	case *core.If:
		collectFreeVars(n.Cond, bound, free)
		collectFreeVars(n.Then, bound, free)
		collectFreeVars(n.Else, bound, free)
	case *core.Prim:
		for _, a := range n.Args {
			collectFreeVars(a, bound, free)
		}
	case *core.Tuple:
		for _, el := range n.Elems {
			collectFreeVars(el, bound, free)
		}
	case *core.Record:
		for _, f := range n.Fields {
			collectFreeVars(f.Value, bound, free)
		}
	case *core.RecordGet:
		collectFreeVars(n.Target, bound, free)
	case *core.TupleGet:
		collectFreeVars(n.Target, bound, free)
	case *core.Data:
		for _, f := range n.Fields {
			collectFreeVars(f, bound, free)
		}
	case *core.Match:
		collectFreeVars(n.Scrutinee, bound, free)
		for _, c := range n.Cases {
			collectFreeVars(c.Body, bound, free)
		}
		if n.Fallback != nil {
			collectFreeVars(n.Fallback, bound, free)
		}
	}
}

// emitCall recognizes "__op_<op>" intrinsic callees and compiles them to
// the target's native operator when both arguments are primitive;
// otherwise it emits a direct call, appending any captures the callee
// lambda recorded.
func (em *Emitter) emitCall(c *core.Call, rewrites *[]string, ext string) (string, error) {
	if v, ok := c.Callee.(*core.Var); ok && strings.HasPrefix(v.Name, "__op_") {
		op := strings.TrimPrefix(v.Name, "__op_")
		if native, ok := nativeOperatorFor(op); ok && len(c.Args) == 2 {
			lhs, err := em.emitExpr(c.Args[0], rewrites, ext)
			if err != nil {
				return "", err
			}
			rhs, err := em.emitExpr(c.Args[1], rewrites, ext)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(%s %s %s)", lhs, native, rhs), nil
		}
	}
	callee, err := em.emitExpr(c.Callee, rewrites, ext)
	if err != nil {
		return "", err
	}
	args, err := em.emitExprs(c.Args, rewrites, ext)
	if err != nil {
		return "", err
	}
	if v, ok := c.Callee.(*core.Var); ok {
		if captures, ok := em.captures[v.Name]; ok {
			args = append(args, captures...)
		}
	}
	return fmt.Sprintf("%s(%s)", callee, strings.Join(args, ", ")), nil
}

func nativeOperatorFor(op string) (string, bool) {
	switch op {
	case "+", "-", "*", "/", "<", ">", "<=", ">=", "==", "!=", "&&", "||":
		return op, true
	default:
		return "", false
	}
}

func (em *Emitter) emitPrim(p *core.Prim, rewrites *[]string, ext string) (string, error) {
	args, err := em.emitExprs(p.Args, rewrites, ext)
	if err != nil {
		return "", err
	}
	if p.Op == "int_div" {
		return fmt.Sprintf("@divTrunc(%s, %s)", args[0], args[1]), nil
	}
	if p.Op == "address_of" {
		return "&" + args[0], nil
	}
	native, ok := primNative[p.Op]
	if !ok {
		return "", fmt.Errorf("emit/raw: unsupported prim op %q", p.Op)
	}
	if len(args) == 1 {
		return fmt.Sprintf("(%s%s)", native, args[0]), nil
	}
	return fmt.Sprintf("(%s %s %s)", args[0], native, args[1]), nil
}

// emitMatch lowers an ordinary match to a tag switch. carrier_match nodes
// are lowered separately, by emitCarrierMatch.
func (em *Emitter) emitMatch(m *core.Match, rewrites *[]string, ext string) (string, error) {
	scrutinee, err := em.emitExpr(m.Scrutinee, rewrites, ext)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "switch (%s) {\n", scrutinee)
	for _, c := range m.Cases {
		tag, binds := em.patternArm(c.Pattern, "__s")
		body, err := em.emitExpr(c.Body, rewrites, ext)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, ".%s => blk: { %sbreak :blk %s; },\n", tag, binds, body)
	}
	if m.Fallback != nil {
		fb, err := em.emitExpr(m.Fallback, rewrites, ext)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "else => %s,\n", fb)
	}
	fmt.Fprintf(&b, "}")
	return b.String(), nil
}

func (em *Emitter) emitCarrierMatch(cm *core.CarrierMatch, rewrites *[]string, ext string) (string, error) {
	scrutinee, err := em.emitExpr(cm.Scrutinee, rewrites, ext)
	if err != nil {
		return "", err
	}
	if len(cm.Cases) == 0 {
		return "", fmt.Errorf("emit/raw: carrier_match with no cases")
	}
	bindName := "__v"
	if bp, ok := cm.Cases[0].Pattern.(*core.BindingPattern); ok {
		bindName = escape(bp.Name)
	}
	body, err := em.emitExpr(cm.Cases[0].Body, rewrites, ext)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("switch (%s) { .value => |%s| blk: { break :blk %s; }, else => |e| return e }",
		scrutinee, bindName, body), nil
}

func (em *Emitter) patternArm(p core.Pattern, scrutName string) (string, string) {
	switch pat := p.(type) {
	case *core.ConstructorPattern:
		var binds strings.Builder
		for i, f := range pat.Fields {
			if bp, ok := f.(*core.BindingPattern); ok {
				fmt.Fprintf(&binds, "const %s = %s._%d; ", escape(bp.Name), scrutName, i)
			}
		}
		return pat.Ctor, binds.String()
	case *core.BindingPattern:
		return "_", fmt.Sprintf("const %s = %s; ", escape(pat.Name), scrutName)
	default:
		return "_", ""
	}
}
