package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sunholo/wyrm/internal/carrier"
	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/errors"
	"github.com/sunholo/wyrm/internal/types"
)

// NameState tracks fresh-name generation for one module emission (spec.md
// §5: "Emitter-internal mutable NameStates, one per module emission, not
// shared"). Grounded on internal/elaborate's freshName discipline.
type NameState struct {
	used    map[string]bool
	counter int
}

func newNameState() *NameState {
	return &NameState{used: map[string]bool{}}
}

func (ns *NameState) fresh(prefix string) string {
	for {
		name := fmt.Sprintf("%s%d", prefix, ns.counter)
		ns.counter++
		if !ns.used[name] {
			ns.used[name] = true
			return name
		}
	}
}

// Options configures one module's runtime-assisted emission.
type Options struct {
	InjectPrelude bool
	PreludeImport string // the specifier to import the prelude module from, when InjectPrelude
	ForcedExports []string
	RuntimeImport string // specifier used to reach the runtime library
}

// Emitter renders Core modules as runtime-assisted target source (spec.md
// §4.9).
type Emitter struct {
	ns *NameState
}

func NewEmitter() *Emitter { return &Emitter{ns: newNameState()} }

// EmitModule renders mod as one target source file.
func (em *Emitter) EmitModule(mod *core.Module, opts Options) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "// module %s (runtime-assisted)\n", mod.Path)
	fmt.Fprintf(&b, "const __runtime = require(%q);\n", opts.RuntimeImport)
	for _, imp := range mod.Imports {
		fmt.Fprintf(&b, "const %s = require(%q);\n", sanitizeSpecifier(imp), imp)
	}
	if opts.InjectPrelude {
		fmt.Fprintf(&b, "const __prelude = require(%q);\n", opts.PreludeImport)
	}

	forced := map[string]bool{}
	for _, name := range opts.ForcedExports {
		forced[name] = true
	}

	for _, td := range mod.TypeDeclarations {
		if !td.Infectious {
			continue
		}
		meta, ok := carrier.MetadataFor(&types.TCon{Name: td.Name})
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "__runtime.registerInfectiousType(%q, %s, %s);\n",
			td.Name, jsStringOrNull(meta.ValueConstructor), jsStringArray(meta.EffectConstructors))
	}

	for _, vb := range mod.Values {
		expr, err := em.emitExpr(vb.Value)
		if err != nil {
			return "", errors.WrapReport(errors.NewGeneric("emit.runtime", err))
		}
		fmt.Fprintf(&b, "const %s = %s;\n", vb.Name, expr)
		if vb.Exported || forced[vb.Name] {
			fmt.Fprintf(&b, "module.exports.%s = %s;\n", vb.Name, vb.Name)
		}
	}

	return b.String(), nil
}

func sanitizeSpecifier(s string) string {
	r := strings.NewReplacer("/", "_", ".", "_", "-", "_")
	return "__mod_" + r.Replace(s)
}

func jsStringOrNull(s string) string {
	if s == "" {
		return "null"
	}
	return strconv.Quote(s)
}

func jsStringArray(xs []string) string {
	quoted := make([]string, len(xs))
	for i, x := range xs {
		quoted[i] = strconv.Quote(x)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// emitExpr renders one Core expression as a target-language expression.
func (em *Emitter) emitExpr(e core.Expr) (string, error) {
	switch n := e.(type) {
	case *core.Literal:
		return em.emitLiteral(n)
	case *core.Var:
		return n.Name, nil
	case *core.Tuple:
		parts, err := em.emitExprs(n.Elems)
		if err != nil {
			return "", err
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case *core.Record:
		fields := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			v, err := em.emitExpr(f.Value)
			if err != nil {
				return "", err
			}
			fields[i] = fmt.Sprintf("%s: %s", f.Name, v)
		}
		return "{" + strings.Join(fields, ", ") + "}", nil
	case *core.TupleGet:
		target, err := em.emitExpr(n.Target)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%d]", target, n.Index), nil
	case *core.RecordGet:
		target, err := em.emitExpr(n.Target)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("__runtime.recordGetInfectious(%s, %q)", target, n.Field), nil
	case *core.Data:
		fields, err := em.emitExprs(n.Fields)
		if err != nil {
			return "", err
		}
		parts := []string{fmt.Sprintf("tag: %q", n.Ctor), fmt.Sprintf("type: %q", n.TypeName)}
		for i, f := range fields {
			parts = append(parts, fmt.Sprintf("_%d: %s", i, f))
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	case *core.EnumLiteral:
		return fmt.Sprintf("{tag: %q, type: %q}", n.Ctor, n.TypeName), nil
	case *core.Lambda:
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Name
		}
		body, err := em.emitExpr(n.Body)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(function(%s) { return %s; })", strings.Join(params, ", "), body), nil
	case *core.Call:
		callee, err := em.emitExpr(n.Callee)
		if err != nil {
			return "", err
		}
		args, err := em.emitExprs(n.Args)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("__runtime.callInfectious(%s, %s)", callee, strings.Join(args, ", ")), nil
	case *core.Let:
		val, err := em.emitExpr(n.Binding.Value)
		if err != nil {
			return "", err
		}
		body, err := em.emitExpr(n.Body)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(function() { const %s = %s; return %s; })()", n.Binding.Name, val, body), nil
	case *core.LetRec:
		var decls []string
		for _, bind := range n.Bindings {
			val, err := em.emitExpr(bind.Value)
			if err != nil {
				return "", err
			}
			decls = append(decls, fmt.Sprintf("const %s = %s;", bind.Name, val))
		}
		body, err := em.emitExpr(n.Body)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(function() { %s return %s; })()", strings.Join(decls, " "), body), nil
	case *core.If:
		cond, err := em.emitExpr(n.Cond)
		if err != nil {
			return "", err
		}
		then, err := em.emitExpr(n.Then)
		if err != nil {
			return "", err
		}
		els, err := em.emitExpr(n.Else)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s ? %s : %s)", cond, then, els), nil
	case *core.Prim:
		return em.emitPrim(n)
	case *core.Match:
		return em.emitMatch(n)
	case *core.CarrierMatch:
		return em.emitCarrierMatch(n)
	case *core.CarrierWrap:
		inner, err := em.emitExpr(n.Inner)
		if err != nil {
			return "", err
		}
		state, err := em.emitExpr(n.State)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("__runtime.wrapCarrier(%q, %s, %s)", n.Domain, inner, state), nil
	case *core.CarrierUnwrap:
		target, err := em.emitExpr(n.Target)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("__runtime.unwrapCarrier(%q, %s)", n.Domain, target), nil
	case *core.Coerce:
		return em.emitExpr(n.Inner)
	default:
		return "", fmt.Errorf("emit/runtime: unsupported Core expression %T", e)
	}
}

func (em *Emitter) emitExprs(xs []core.Expr) ([]string, error) {
	out := make([]string, len(xs))
	for i, x := range xs {
		v, err := em.emitExpr(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (em *Emitter) emitLiteral(lit *core.Literal) (string, error) {
	switch lit.Kind {
	case types.PInt:
		return fmt.Sprintf("%v", lit.Value), nil
	case types.PBool:
		return fmt.Sprintf("%v", lit.Value), nil
	case types.PChar:
		return strconv.QuoteRune(lit.Value.(rune)), nil
	case types.PString:
		return strconv.Quote(lit.Value.(string)), nil
	case types.PUnit:
		return "__unit", nil
	default:
		return "", fmt.Errorf("emit/runtime: unsupported literal kind %v", lit.Kind)
	}
}

var primJS = map[core.PrimOp]string{
	"int_add":  "+",
	"int_sub":  "-",
	"int_mul":  "*",
	"bool_and": "&&",
	"bool_or":  "||",
	"char_eq":  "===",
	"bool_not": "!",
	"int_neg":  "-",
}

func (em *Emitter) emitPrim(p *core.Prim) (string, error) {
	args, err := em.emitExprs(p.Args)
	if err != nil {
		return "", err
	}
	if p.Op == "int_div" {
		return fmt.Sprintf("Math.trunc(%s / %s)", args[0], args[1]), nil
	}
	if p.Op == "address_of" {
		return args[0], nil
	}
	op, ok := primJS[p.Op]
	if !ok {
		return "", fmt.Errorf("emit/runtime: unsupported prim op %q", p.Op)
	}
	if len(args) == 1 {
		return fmt.Sprintf("(%s%s)", op, args[0]), nil
	}
	return fmt.Sprintf("(%s %s %s)", args[0], op, args[1]), nil
}

// emitMatch renders an ordinary Core match as a chain of tag tests,
// falling back to nonExhaustiveMatch whenever the match has no synthesized
// fallback; the match's coverage is not consulted (spec.md §4.9's closing
// contract).
func (em *Emitter) emitMatch(m *core.Match) (string, error) {
	scrutinee, err := em.emitExpr(m.Scrutinee)
	if err != nil {
		return "", err
	}
	v := em.ns.fresh("__scrut")
	var arms strings.Builder
	fmt.Fprintf(&arms, "(function() { const %s = %s;\n", v, scrutinee)
	for _, c := range m.Cases {
		cond, binds := em.patternTest(c.Pattern, v)
		body, err := em.emitExpr(c.Body)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&arms, "if (%s) { %sreturn %s; }\n", cond, binds, body)
	}
	if m.Fallback != nil {
		fb, err := em.emitExpr(m.Fallback)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&arms, "return %s;\n", fb)
	} else {
		fmt.Fprintf(&arms, "return __runtime.nonExhaustiveMatch(%s, {patterns: %d});\n", v, len(m.Cases))
	}
	fmt.Fprintf(&arms, "})()")
	return arms.String(), nil
}

// emitCarrierMatch renders the rewrite target of carrier-op elaboration:
// a runtime call that unwraps the scrutinee, short-circuiting on any
// effect-carrying state, and otherwise binds the clean value for the body
// (spec.md §4.5, §4.9).
func (em *Emitter) emitCarrierMatch(cm *core.CarrierMatch) (string, error) {
	scrutinee, err := em.emitExpr(cm.Scrutinee)
	if err != nil {
		return "", err
	}
	if len(cm.Cases) == 0 {
		return "", fmt.Errorf("emit/runtime: carrier_match with no cases")
	}
	bindName := "__v"
	if bp, ok := cm.Cases[0].Pattern.(*core.BindingPattern); ok {
		bindName = bp.Name
	}
	body, err := em.emitExpr(cm.Cases[0].Body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("__runtime.callInfectious(function(%s) { return %s; }, %s)", bindName, body, scrutinee), nil
}

// patternTest renders a boolean test expression plus any binding
// declarations for matching v against pat.
func (em *Emitter) patternTest(pat core.Pattern, v string) (string, string) {
	switch p := pat.(type) {
	case *core.WildcardPattern:
		return "true", ""
	case *core.BindingPattern:
		return "true", fmt.Sprintf("const %s = %s; ", p.Name, v)
	case *core.LiteralPattern:
		return fmt.Sprintf("%s === %v", v, p.Value), ""
	case *core.ConstructorPattern:
		conds := []string{fmt.Sprintf("%s.tag === %q", v, p.Ctor)}
		var binds strings.Builder
		for i, f := range p.Fields {
			fv := fmt.Sprintf("%s._%d", v, i)
			sub, subBinds := em.patternTest(f, fv)
			if sub != "true" {
				conds = append(conds, sub)
			}
			binds.WriteString(subBinds)
		}
		return "(" + strings.Join(conds, " && ") + ")", binds.String()
	case *core.AllErrorsPattern:
		return fmt.Sprintf("__runtime.isErrCarrier(%s)", v), ""
	case *core.PinnedPattern:
		return fmt.Sprintf("%s === %s", v, p.Name), ""
	case *core.TuplePattern:
		conds := make([]string, 0, len(p.Elems))
		var binds strings.Builder
		for i, e := range p.Elems {
			ev := fmt.Sprintf("%s[%d]", v, i)
			c, b := em.patternTest(e, ev)
			if c != "true" {
				conds = append(conds, c)
			}
			binds.WriteString(b)
		}
		if len(conds) == 0 {
			return "true", binds.String()
		}
		return "(" + strings.Join(conds, " && ") + ")", binds.String()
	default:
		return "true", ""
	}
}
