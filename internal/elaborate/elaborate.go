// Package elaborate implements carrier-op elaboration (spec.md §4.5, C3b):
// the pass that rewrites operand positions expecting a clean value, but
// fed a carrier-typed expression, into a carrier_match binding. Grounded
// on the teacher's internal/elaborate/dictionaries.go (DictElaborator),
// which performs the same shape of rewrite for type-class dictionary
// insertion; generalized here from BinOp/UnOp dictionary calls to
// arbitrary operand positions needing a carrier unwrap.
package elaborate

import (
	"fmt"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/types"
)

// Elaborator carries the set of infectious type names (carrier domains)
// collected up front, plus fresh-name bookkeeping that never collides with
// any binder already in the module.
type Elaborator struct {
	domains map[string]bool
	used    map[string]bool
	fresh   int
}

// New collects the carrier domains from every type declaration whose
// Infectious metadata is set, and pre-scans every binder name across decls
// so freshName never collides with an existing one.
func New(typeDecls []core.TypeDeclaration, values []core.ValueBinding) *Elaborator {
	el := &Elaborator{domains: map[string]bool{}, used: map[string]bool{}}
	for _, td := range typeDecls {
		if td.Infectious {
			el.domains[td.Name] = true
		}
	}
	for _, v := range values {
		el.used[v.Name] = true
		collectBinders(v.Value, el.used)
	}
	return el
}

func collectBinders(e core.Expr, out map[string]bool) {
	switch n := e.(type) {
	case *core.Lambda:
		for _, p := range n.Params {
			out[p.Name] = true
		}
		collectBinders(n.Body, out)
	case *core.Let:
		out[n.Binding.Name] = true
		collectBinders(n.Binding.Value, out)
		collectBinders(n.Body, out)
	case *core.LetRec:
		for _, b := range n.Bindings {
			out[b.Name] = true
			collectBinders(b.Value, out)
		}
		collectBinders(n.Body, out)
	case *core.Call:
		collectBinders(n.Callee, out)
		for _, a := range n.Args {
			collectBinders(a, out)
		}
	case *core.If:
		collectBinders(n.Cond, out)
		collectBinders(n.Then, out)
		collectBinders(n.Else, out)
	case *core.Tuple:
		for _, el := range n.Elems {
			collectBinders(el, out)
		}
	case *core.Record:
		for _, f := range n.Fields {
			collectBinders(f.Value, out)
		}
	case *core.TupleGet:
		collectBinders(n.Target, out)
	case *core.RecordGet:
		collectBinders(n.Target, out)
	case *core.Prim:
		for _, a := range n.Args {
			collectBinders(a, out)
		}
	case *core.Match:
		collectBinders(n.Scrutinee, out)
		for _, c := range n.Cases {
			collectPatternBinders(c.Pattern, out)
			if c.Guard != nil {
				collectBinders(c.Guard, out)
			}
			collectBinders(c.Body, out)
		}
	case *core.CarrierMatch:
		collectBinders(n.Scrutinee, out)
		for _, c := range n.Cases {
			collectPatternBinders(c.Pattern, out)
			collectBinders(c.Body, out)
		}
	case *core.CarrierWrap:
		collectBinders(n.Inner, out)
	case *core.CarrierUnwrap:
		collectBinders(n.Target, out)
	case *core.Coerce:
		collectBinders(n.Inner, out)
	case *core.Data:
		for _, f := range n.Fields {
			collectBinders(f, out)
		}
	}
}

func collectPatternBinders(p core.Pattern, out map[string]bool) {
	switch pat := p.(type) {
	case *core.BindingPattern:
		out[pat.Name] = true
	case *core.PinnedPattern:
		out[pat.Name] = true
	case *core.TuplePattern:
		for _, e := range pat.Elems {
			collectPatternBinders(e, out)
		}
	case *core.ConstructorPattern:
		for _, f := range pat.Fields {
			collectPatternBinders(f, out)
		}
	}
}

func (el *Elaborator) freshName() string {
	for {
		el.fresh++
		name := fmt.Sprintf("__carrier_%d", el.fresh)
		if !el.used[name] {
			el.used[name] = true
			return name
		}
	}
}

// carrierDomain reports the carrier domain t belongs to, when t is a TCon
// named after a collected infectious type declaration.
func (el *Elaborator) carrierDomain(t types.Type) (string, bool) {
	tc, ok := t.(*types.TCon)
	if !ok {
		return "", false
	}
	if el.domains[tc.Name] {
		return tc.Name, true
	}
	return "", false
}

// cleanType returns a carrier TCon's first type argument (its clean value
// component), per spec.md §3.1's Carrier{T, state} shape.
func cleanType(t types.Type) types.Type {
	if tc, ok := t.(*types.TCon); ok && len(tc.Args) > 0 {
		return tc.Args[0]
	}
	return t
}

// ElaborateModule rewrites every value binding's body in place.
func (el *Elaborator) ElaborateModule(mod *core.Module) {
	for i := range mod.Values {
		mod.Values[i].Value = el.transform(mod.Values[i].Value)
	}
}

type pendingGuard struct {
	domain    string
	name      string
	expr      core.Expr
	cleanType types.Type
}

// guardOperands transforms each operand, then for every index marked
// guard[i]=true whose transformed type is a carrier domain, substitutes a
// fresh variable and records a pending carrier_match. build receives the
// (possibly substituted) operand list and constructs the rewritten node;
// the result is wrapped by nested carrier_matches, first-guarded-operand
// outermost, so operands are scrutinized in evaluation order, per spec.md §4.5.
func (el *Elaborator) guardOperands(operands []core.Expr, guard []bool, build func([]core.Expr) core.Expr) core.Expr {
	transformed := make([]core.Expr, len(operands))
	for i, o := range operands {
		if o == nil {
			continue
		}
		transformed[i] = el.transform(o)
	}
	substituted := make([]core.Expr, len(operands))
	copy(substituted, transformed)
	var pendings []pendingGuard
	for i, o := range transformed {
		if o == nil || !guard[i] {
			continue
		}
		domain, ok := el.carrierDomain(o.Type())
		if !ok {
			continue
		}
		clean := cleanType(o.Type())
		name := el.freshName()
		substituted[i] = &core.Var{Base: core.Base{Typ: clean}, Name: name}
		pendings = append(pendings, pendingGuard{domain: domain, name: name, expr: o, cleanType: clean})
	}
	body := build(substituted)
	for i := len(pendings) - 1; i >= 0; i-- {
		p := pendings[i]
		body = &core.CarrierMatch{
			Base:        core.Base{Typ: body.Type()},
			CarrierType: p.domain,
			Scrutinee:   p.expr,
			Cases: []core.Case{{
				Pattern: &core.BindingPattern{PatternBase: core.PatternBase{Typ: p.cleanType}, Name: p.name},
				Body:    body,
			}},
		}
	}
	return body
}

func (el *Elaborator) transform(e core.Expr) core.Expr {
	switch n := e.(type) {
	case *core.Literal, *core.Var, *core.EnumLiteral:
		return e

	case *core.Tuple:
		elems := make([]core.Expr, len(n.Elems))
		for i, x := range n.Elems {
			elems[i] = el.transform(x)
		}
		return &core.Tuple{Base: n.Base, Elems: elems}

	case *core.Record:
		fields := make([]core.RecordField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = core.RecordField{Name: f.Name, Value: el.transform(f.Value)}
		}
		return &core.Record{Base: n.Base, Fields: fields}

	case *core.Data:
		fields := make([]core.Expr, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = el.transform(f)
		}
		return &core.Data{Base: n.Base, TypeName: n.TypeName, Ctor: n.Ctor, Fields: fields}

	case *core.TupleGet:
		return el.guardOperands([]core.Expr{n.Target}, []bool{true}, func(a []core.Expr) core.Expr {
			return &core.TupleGet{Base: n.Base, Target: a[0], Index: n.Index}
		})

	case *core.RecordGet:
		return el.guardOperands([]core.Expr{n.Target}, []bool{true}, func(a []core.Expr) core.Expr {
			return &core.RecordGet{Base: n.Base, Target: a[0], Field: n.Field}
		})

	case *core.Lambda:
		return &core.Lambda{Base: n.Base, Params: n.Params, Body: el.transform(n.Body)}

	case *core.Call:
		return el.elaborateCall(n)

	case *core.Let:
		return &core.Let{
			Base:    n.Base,
			Binding: core.Binding{Name: n.Binding.Name, Value: el.transform(n.Binding.Value)},
			Body:    el.transform(n.Body),
		}

	case *core.LetRec:
		bindings := make([]core.Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = core.Binding{Name: b.Name, Value: el.transform(b.Value)}
		}
		return &core.LetRec{Base: n.Base, Bindings: bindings, Body: el.transform(n.Body)}

	case *core.If:
		return el.guardOperands([]core.Expr{n.Cond}, []bool{true}, func(a []core.Expr) core.Expr {
			return &core.If{Base: n.Base, Cond: a[0], Then: el.transform(n.Then), Else: el.transform(n.Else)}
		})

	case *core.Prim:
		guard := make([]bool, len(n.Args))
		for i := range guard {
			guard[i] = true
		}
		return el.guardOperands(n.Args, guard, func(a []core.Expr) core.Expr {
			return &core.Prim{Base: n.Base, Op: n.Op, Args: a}
		})

	case *core.Match:
		discharged := n.Coverage != nil && n.Coverage.Discharges
		cases := make([]core.Case, len(n.Cases))
		for i, c := range n.Cases {
			var guard core.Expr
			if c.Guard != nil {
				guard = el.transform(c.Guard)
			}
			cases[i] = core.Case{Pattern: c.Pattern, Guard: guard, Body: el.transform(c.Body)}
		}
		if discharged {
			scrutinee := el.transform(n.Scrutinee)
			return &core.Match{Base: n.Base, Scrutinee: scrutinee, Cases: cases, Fallback: n.Fallback, Coverage: n.Coverage}
		}
		return el.guardOperands([]core.Expr{n.Scrutinee}, []bool{true}, func(a []core.Expr) core.Expr {
			return &core.Match{Base: n.Base, Scrutinee: a[0], Cases: cases, Fallback: n.Fallback, Coverage: n.Coverage}
		})

	case *core.CarrierMatch:
		cases := make([]core.Case, len(n.Cases))
		for i, c := range n.Cases {
			cases[i] = core.Case{Pattern: c.Pattern, Guard: c.Guard, Body: el.transform(c.Body)}
		}
		return &core.CarrierMatch{Base: n.Base, CarrierType: n.CarrierType, Scrutinee: el.transform(n.Scrutinee), Cases: cases, Fallback: n.Fallback}

	case *core.CarrierWrap:
		return &core.CarrierWrap{Base: n.Base, Domain: n.Domain, Inner: el.transform(n.Inner), State: n.State}

	case *core.CarrierUnwrap:
		return &core.CarrierUnwrap{Base: n.Base, Domain: n.Domain, Target: el.transform(n.Target)}

	case *core.Coerce:
		return &core.Coerce{Base: n.Base, From: n.From, To: n.To, Inner: el.transform(n.Inner)}

	default:
		return e
	}
}

// elaborateCall guards each argument whose corresponding callee parameter
// type is not the same carrier domain the argument carries; the callee
// expression itself is transformed but never guarded.
func (el *Elaborator) elaborateCall(n *core.Call) core.Expr {
	callee := el.transform(n.Callee)
	paramTypes := peelParamTypes(callee.Type(), len(n.Args))

	operands := make([]core.Expr, len(n.Args)+1)
	operands[0] = callee
	copy(operands[1:], n.Args)

	guard := make([]bool, len(operands))
	for i, arg := range n.Args {
		argDomain, isCarrier := el.carrierDomain(argTypeOf(arg))
		if !isCarrier {
			continue
		}
		if i < len(paramTypes) {
			if pd, ok := el.carrierDomain(paramTypes[i]); ok && pd == argDomain {
				continue // callee already expects this carrier domain: no unwrap
			}
		}
		guard[i+1] = true
	}

	return el.guardOperands(operands, guard, func(a []core.Expr) core.Expr {
		return &core.Call{Base: n.Base, Callee: a[0], Args: a[1:]}
	})
}

func argTypeOf(e core.Expr) types.Type {
	if e == nil {
		return types.Unit
	}
	return e.Type()
}

// peelParamTypes walks a (possibly curried) function type and returns up to
// n parameter types in application order.
func peelParamTypes(t types.Type, n int) []types.Type {
	out := make([]types.Type, 0, n)
	cur := t
	for len(out) < n {
		fn, ok := cur.(*types.TFunc)
		if !ok {
			break
		}
		out = append(out, fn.From)
		cur = fn.To
	}
	return out
}
