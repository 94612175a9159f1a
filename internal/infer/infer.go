// Package infer implements the marked-inference boundary (spec.md §4.3):
// an error-tolerant, bidirectional Algorithm-W-style checker over
// internal/wsurface that never aborts on a local failure. Instead it
// records a diag.ConstraintDiagnostic and substitutes a diag.Marked node in
// the tree, so downstream lowering always has a complete, well-formed
// program to walk. Grounded on the teacher's internal/types/inference.go +
// typechecker_core.go (same unify-as-you-go, environment-threading shape),
// adapted from "error aborts the pass" to "error marks the node."
package infer

import (
	"fmt"

	"github.com/sunholo/wyrm/internal/diag"
	"github.com/sunholo/wyrm/internal/types"
	"github.com/sunholo/wyrm/internal/wsurface"
)

// Inferer holds the per-run mutable state: the fresh-variable counter, the
// unifier built over it, and the accumulated inference output. One Inferer
// is constructed per compilation (never shared across runs), matching
// spec.md §5's "counter reset per inference run."
type Inferer struct {
	gen      *types.VarGen
	uni      *types.Unifier
	sub      *types.Substitution
	resolved map[diag.NodeId]types.Type
	diags    []diag.ConstraintDiagnostic
	matches  map[diag.NodeId]*diag.MatchInfo
	nextNode int
}

// New creates an Inferer with a fresh type-variable generator.
func New() *Inferer {
	gen := types.NewVarGen()
	return &Inferer{
		gen:      gen,
		uni:      types.NewUnifier(gen),
		sub:      types.NewSubstitution(),
		resolved: map[diag.NodeId]types.Type{},
		matches:  map[diag.NodeId]*diag.MatchInfo{},
	}
}

// Run infers prog under env, returning the full diag.Result: resolved node
// types, diagnostics, match coverage info, and the marked program.
func (inf *Inferer) Run(prog *wsurface.Program, env types.TypeEnv) *diag.Result {
	var marked *wsurface.Program
	if prog != nil && prog.File != nil {
		markedFile := *prog.File
		for i, fn := range markedFile.Funcs {
			markedFile.Funcs[i] = inf.inferFuncDecl(fn, env)
		}
		for i, stmt := range markedFile.Statements {
			if e, ok := stmt.(wsurface.Expr); ok {
				t, me := inf.infer(e, env)
				inf.resolveNode(e, t)
				markedFile.Statements[i] = me
			}
		}
		marked = &wsurface.Program{File: &markedFile, Module: prog.Module}
	}

	for id, t := range inf.resolved {
		inf.resolved[id] = types.ApplySubstitution(t, inf.sub)
	}

	return &diag.Result{
		ResolvedNodeTypes: inf.resolved,
		Diagnostics:       inf.diags,
		Matches:           inf.matches,
		MarkedProgram:     marked,
	}
}

func (inf *Inferer) inferFuncDecl(fn *wsurface.FuncDecl, env types.TypeEnv) *wsurface.FuncDecl {
	local := env
	for _, p := range fn.Params {
		local = local.Extend(p.Name, &types.TypeScheme{Type: inf.gen.Fresh()})
	}
	bodyType, body := inf.infer(fn.Body, local)
	inf.resolveNode(fn.Body, bodyType)
	next := *fn
	next.Body = body
	return &next
}

func (inf *Inferer) nodeId(e wsurface.Node) diag.NodeId {
	pos := e.Position()
	if pos.Id != 0 {
		return pos.Id
	}
	inf.nextNode++
	return diag.NodeId(-inf.nextNode)
}

func (inf *Inferer) resolveNode(e wsurface.Node, t types.Type) {
	inf.resolved[inf.nodeId(e)] = t
}

func (inf *Inferer) mark(e wsurface.Expr, reason diag.Reason, msg string, data map[string]any) wsurface.Expr {
	id := inf.nodeId(e)
	inf.diags = append(inf.diags, diag.ConstraintDiagnostic{Node: id, Reason: reason, Message: msg, Data: data})
	return &wsurface.Mark{Reason: reason, Subject: e, Pos: e.Position()}
}

// infer returns the inferred type of e and a (possibly Marked) replacement
// expression. On any local failure it records a diagnostic, binds e's node
// id to a fresh Hole, and returns the Marked wrapper rather than aborting.
func (inf *Inferer) infer(e wsurface.Expr, env types.TypeEnv) (types.Type, wsurface.Expr) {
	switch n := e.(type) {
	case *wsurface.Literal:
		return inf.inferLiteral(n), n

	case *wsurface.Identifier:
		scheme, ok := env[n.Name]
		if !ok {
			hole := types.UnknownType(map[string]any{"reason": "free_variable", "name": n.Name}, inf.gen)
			inf.resolveNode(n, hole)
			return hole, inf.mark(n, diag.ReasonFreeVariable, fmt.Sprintf("undefined variable %q", n.Name), map[string]any{"name": n.Name})
		}
		t := types.Instantiate(scheme, inf.gen)
		inf.resolveNode(n, t)
		return t, n

	case *wsurface.BinaryOp:
		return inf.inferBinaryOp(n, env)

	case *wsurface.UnaryOp:
		it, ie := inf.infer(n.Expr, env)
		inf.resolveNode(n, it)
		next := *n
		next.Expr = ie
		return it, &next

	case *wsurface.Lambda:
		return inf.inferLambda(n, env)

	case *wsurface.FuncLit:
		return inf.inferFuncLit(n, env)

	case *wsurface.FuncCall:
		return inf.inferFuncCall(n, env)

	case *wsurface.Let:
		return inf.inferLet(n, env)

	case *wsurface.LetRec:
		return inf.inferLetRec(n, env)

	case *wsurface.Block:
		return inf.inferBlock(n, env)

	case *wsurface.If:
		return inf.inferIf(n, env)

	case *wsurface.Tuple:
		return inf.inferTuple(n, env)

	case *wsurface.Record:
		return inf.inferRecord(n, env)

	case *wsurface.RecordAccess:
		return inf.inferRecordAccess(n, env)

	case *wsurface.Match:
		return inf.inferMatch(n, env)

	default:
		hole := types.UnknownType(map[string]any{"reason": "internal_error", "node": fmt.Sprintf("%T", e)}, inf.gen)
		inf.resolveNode(e, hole)
		return hole, inf.mark(e, diag.ReasonInternalError, fmt.Sprintf("inference not implemented for %T", e), nil)
	}
}

func (inf *Inferer) inferLiteral(l *wsurface.Literal) types.Type {
	var t types.Type
	switch l.Kind {
	case wsurface.IntLit:
		t = types.Int
	case wsurface.FloatLit:
		t = types.Int // no separate float primitive in this design; ints and floats share Int's numeric row
	case wsurface.StringLit:
		t = types.String
	case wsurface.BoolLit:
		t = types.Bool
	case wsurface.UnitLit:
		t = types.Unit
	default:
		t = types.Unit
	}
	inf.resolveNode(l, t)
	return t
}

var numericOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true, "<": true, "<=": true, ">": true, ">=": true}
var boolOps = map[string]bool{"&&": true, "||": true}
var eqOps = map[string]bool{"==": true, "!=": true}

func (inf *Inferer) inferBinaryOp(b *wsurface.BinaryOp, env types.TypeEnv) (types.Type, wsurface.Expr) {
	lt, le := inf.infer(b.Left, env)
	rt, re := inf.infer(b.Right, env)
	next := *b
	next.Left, next.Right = le, re

	switch {
	case numericOps[b.Op]:
		if _, err := inf.uni.Unify(lt, types.Int, inf.sub); err != nil {
			return inf.binOpFailure(b, &next, diag.ReasonNotNumeric, "left operand of "+b.Op+" is not numeric")
		}
		if _, err := inf.uni.Unify(rt, types.Int, inf.sub); err != nil {
			return inf.binOpFailure(b, &next, diag.ReasonNotNumeric, "right operand of "+b.Op+" is not numeric")
		}
		result := types.Int
		if b.Op == "<" || b.Op == "<=" || b.Op == ">" || b.Op == ">=" {
			result = types.Bool
		}
		inf.resolveNode(b, result)
		return result, &next
	case boolOps[b.Op]:
		if _, err := inf.uni.Unify(lt, types.Bool, inf.sub); err != nil {
			return inf.binOpFailure(b, &next, diag.ReasonNotBoolean, "left operand of "+b.Op+" is not boolean")
		}
		if _, err := inf.uni.Unify(rt, types.Bool, inf.sub); err != nil {
			return inf.binOpFailure(b, &next, diag.ReasonNotBoolean, "right operand of "+b.Op+" is not boolean")
		}
		inf.resolveNode(b, types.Bool)
		return types.Bool, &next
	case eqOps[b.Op]:
		if _, err := inf.uni.Unify(lt, rt, inf.sub); err != nil {
			return inf.binOpFailure(b, &next, diag.ReasonTypeMismatch, "operands of "+b.Op+" have different types")
		}
		inf.resolveNode(b, types.Bool)
		return types.Bool, &next
	default:
		// User-defined infix operator: lowered to a call of __op_<operator>
		// by internal/lower; inference treats it as an opaque application
		// returning a fresh variable, letting usage sites constrain it.
		result := inf.gen.Fresh()
		inf.resolveNode(b, result)
		return result, &next
	}
}

func (inf *Inferer) binOpFailure(orig *wsurface.BinaryOp, next *wsurface.BinaryOp, reason diag.Reason, msg string) (types.Type, wsurface.Expr) {
	hole := types.UnknownType(map[string]any{"reason": string(reason)}, inf.gen)
	inf.resolveNode(orig, hole)
	return hole, inf.mark(next, reason, msg, nil)
}

func (inf *Inferer) inferLambda(l *wsurface.Lambda, env types.TypeEnv) (types.Type, wsurface.Expr) {
	local := env
	paramTypes := make([]types.Type, len(l.Params))
	for i, p := range l.Params {
		pt := inf.gen.Fresh()
		paramTypes[i] = pt
		local = local.Extend(p.Name, &types.TypeScheme{Type: pt})
	}
	bodyT, bodyE := inf.infer(l.Body, local)
	next := *l
	next.Body = bodyE
	var fn types.Type = bodyT
	for i := len(paramTypes) - 1; i >= 0; i-- {
		fn = &types.TFunc{From: paramTypes[i], To: fn}
	}
	inf.resolveNode(l, fn)
	return fn, &next
}

func (inf *Inferer) inferFuncLit(f *wsurface.FuncLit, env types.TypeEnv) (types.Type, wsurface.Expr) {
	local := env
	paramTypes := make([]types.Type, len(f.Params))
	for i, p := range f.Params {
		pt := inf.gen.Fresh()
		paramTypes[i] = pt
		local = local.Extend(p.Name, &types.TypeScheme{Type: pt})
	}
	bodyT, bodyE := inf.infer(f.Body, local)
	next := *f
	next.Body = bodyE
	var fn types.Type = bodyT
	for i := len(paramTypes) - 1; i >= 0; i-- {
		fn = &types.TFunc{From: paramTypes[i], To: fn}
	}
	inf.resolveNode(f, fn)
	return fn, &next
}

func (inf *Inferer) inferFuncCall(c *wsurface.FuncCall, env types.TypeEnv) (types.Type, wsurface.Expr) {
	fnT, fnE := inf.infer(c.Func, env)
	argEs := make([]wsurface.Expr, len(c.Args))
	cur := fnT
	for i, a := range c.Args {
		at, ae := inf.infer(a, env)
		argEs[i] = ae
		tf, ok := cur.(*types.TFunc)
		if !ok {
			next := *c
			next.Func = fnE
			next.Args = argEs
			hole := types.UnknownType(map[string]any{"reason": "not_function"}, inf.gen)
			inf.resolveNode(c, hole)
			return hole, inf.mark(&next, diag.ReasonNotFunction, "called value is not a function", nil)
		}
		if _, err := inf.uni.Unify(tf.From, at, inf.sub); err != nil {
			next := *c
			next.Func = fnE
			next.Args = argEs
			hole := types.UnknownType(map[string]any{"reason": "type_mismatch"}, inf.gen)
			inf.resolveNode(c, hole)
			return hole, inf.mark(&next, diag.ReasonTypeMismatch, "argument type does not match parameter type", nil)
		}
		cur = types.ApplySubstitution(tf.To, inf.sub)
	}
	next := *c
	next.Func = fnE
	next.Args = argEs
	inf.resolveNode(c, cur)
	return cur, &next
}

func (inf *Inferer) inferLet(l *wsurface.Let, env types.TypeEnv) (types.Type, wsurface.Expr) {
	vt, ve := inf.infer(l.Value, env)
	scheme := types.Generalize(vt, env, nil)
	local := env.Extend(l.Name, scheme)
	bt, be := inf.infer(l.Body, local)
	next := *l
	next.Value, next.Body = ve, be
	inf.resolveNode(l, bt)
	return bt, &next
}

func (inf *Inferer) inferLetRec(l *wsurface.LetRec, env types.TypeEnv) (types.Type, wsurface.Expr) {
	selfType := inf.gen.Fresh()
	local := env.Extend(l.Name, &types.TypeScheme{Type: selfType})
	vt, ve := inf.infer(l.Value, local)
	if _, err := inf.uni.Unify(selfType, vt, inf.sub); err != nil {
		next := *l
		next.Value = ve
		hole := types.UnknownType(map[string]any{"reason": "occurs_cycle"}, inf.gen)
		inf.resolveNode(l, hole)
		return hole, inf.mark(&next, diag.ReasonOccursCycle, "recursive binding does not unify with its own use", nil)
	}
	scheme := types.Generalize(vt, env, nil)
	localBody := env.Extend(l.Name, scheme)
	bt, be := inf.infer(l.Body, localBody)
	next := *l
	next.Value, next.Body = ve, be
	inf.resolveNode(l, bt)
	return bt, &next
}

func (inf *Inferer) inferBlock(b *wsurface.Block, env types.TypeEnv) (types.Type, wsurface.Expr) {
	exprs := make([]wsurface.Expr, len(b.Exprs))
	var last types.Type = types.Unit
	for i, e := range b.Exprs {
		t, ne := inf.infer(e, env)
		exprs[i] = ne
		last = t
	}
	next := *b
	next.Exprs = exprs
	inf.resolveNode(b, last)
	return last, &next
}

func (inf *Inferer) inferIf(i *wsurface.If, env types.TypeEnv) (types.Type, wsurface.Expr) {
	ct, ce := inf.infer(i.Condition, env)
	if _, err := inf.uni.Unify(ct, types.Bool, inf.sub); err != nil {
		next := *i
		next.Condition = ce
		hole := types.UnknownType(map[string]any{"reason": "not_boolean"}, inf.gen)
		inf.resolveNode(i, hole)
		return hole, inf.mark(&next, diag.ReasonNotBoolean, "if condition is not boolean", nil)
	}
	tt, te := inf.infer(i.Then, env)
	et, ee := inf.infer(i.Else, env)
	if _, err := inf.uni.Unify(tt, et, inf.sub); err != nil {
		next := *i
		next.Condition, next.Then, next.Else = ce, te, ee
		hole := types.UnknownType(map[string]any{"reason": "branch_mismatch"}, inf.gen)
		inf.resolveNode(i, hole)
		return hole, inf.mark(&next, diag.ReasonBranchMismatch, "if branches have different types", nil)
	}
	next := *i
	next.Condition, next.Then, next.Else = ce, te, ee
	inf.resolveNode(i, tt)
	return tt, &next
}

func (inf *Inferer) inferTuple(tup *wsurface.Tuple, env types.TypeEnv) (types.Type, wsurface.Expr) {
	elems := make([]wsurface.Expr, len(tup.Elements))
	elemTypes := make([]types.Type, len(tup.Elements))
	for i, e := range tup.Elements {
		t, ne := inf.infer(e, env)
		elemTypes[i] = t
		elems[i] = ne
	}
	next := *tup
	next.Elements = elems
	result := &types.TTuple{Elems: elemTypes}
	inf.resolveNode(tup, result)
	return result, &next
}

func (inf *Inferer) inferRecord(r *wsurface.Record, env types.TypeEnv) (types.Type, wsurface.Expr) {
	fields := make([]*wsurface.Field, len(r.Fields))
	seen := map[string]bool{}
	recFields := make([]types.RecordField, 0, len(r.Fields))
	var dupField *wsurface.Field
	for i, f := range r.Fields {
		t, ne := inf.infer(f.Value, env)
		fields[i] = &wsurface.Field{Name: f.Name, Value: ne, Pos: f.Pos}
		if seen[f.Name] {
			dupField = f
		}
		seen[f.Name] = true
		recFields = append(recFields, types.RecordField{Name: f.Name, Type: t})
	}
	next := *r
	next.Fields = fields
	if dupField != nil {
		hole := types.UnknownType(map[string]any{"reason": "duplicate_record_field", "field": dupField.Name}, inf.gen)
		inf.resolveNode(r, hole)
		return hole, inf.mark(&next, diag.ReasonDuplicateRecordField, "duplicate record field "+dupField.Name, nil)
	}
	result := &types.TRecord{Fields: recFields}
	inf.resolveNode(r, result)
	return result, &next
}

func (inf *Inferer) inferRecordAccess(r *wsurface.RecordAccess, env types.TypeEnv) (types.Type, wsurface.Expr) {
	rt, re := inf.infer(r.Record, env)
	next := *r
	next.Record = re
	rec, ok := types.ApplySubstitution(rt, inf.sub).(*types.TRecord)
	if !ok {
		hole := types.UnknownType(map[string]any{"reason": "not_record"}, inf.gen)
		inf.resolveNode(r, hole)
		return hole, inf.mark(&next, diag.ReasonNotRecord, "accessed value is not a record", nil)
	}
	ft, ok := rec.FieldType(r.Field)
	if !ok {
		hole := types.UnknownType(map[string]any{"reason": "missing_field", "field": r.Field}, inf.gen)
		inf.resolveNode(r, hole)
		return hole, inf.mark(&next, diag.ReasonMissingField, "record has no field "+r.Field, nil)
	}
	inf.resolveNode(r, ft)
	return ft, &next
}

func (inf *Inferer) inferMatch(m *wsurface.Match, env types.TypeEnv) (types.Type, wsurface.Expr) {
	st, se := inf.infer(m.Expr, env)
	cases := make([]*wsurface.Case, len(m.Cases))
	var result types.Type
	covered := make([]string, 0, len(m.Cases))
	exhaustive := false
	for i, c := range m.Cases {
		local, patOk := inf.bindPattern(c.Pattern, st, env)
		if !patOk {
			cases[i] = c
			continue
		}
		if w, ok := c.Pattern.(*wsurface.WildcardPattern); ok {
			_ = w
			exhaustive = true
		}
		if ctor, ok := c.Pattern.(*wsurface.ConstructorPattern); ok {
			covered = append(covered, ctor.Name)
		}
		bt, be := inf.infer(c.Body, local)
		if result == nil {
			result = bt
		} else if _, err := inf.uni.Unify(result, bt, inf.sub); err != nil {
			result = types.UnknownType(map[string]any{"reason": "branch_mismatch"}, inf.gen)
		}
		cases[i] = &wsurface.Case{Pattern: c.Pattern, Guard: c.Guard, Body: be, Pos: c.Pos}
	}
	if result == nil {
		result = types.Unit
	}
	next := *m
	next.Expr = se
	next.Cases = cases
	inf.resolveNode(m, result)

	id := inf.nodeId(m)
	inf.matches[id] = &diag.MatchInfo{
		Node:              id,
		CoveredLabels:     covered,
		Exhaustive:        exhaustive,
		CarrierMatch:      m.CarrierMatch,
		DischargedCarrier: m.DischargedCarrier,
	}
	if !exhaustive && m.CarrierMatch == "" {
		inf.diags = append(inf.diags, diag.ConstraintDiagnostic{
			Node: id, Reason: diag.ReasonNonExhaustiveMatch,
			Message: "match is not exhaustive", Data: map[string]any{"covered": covered},
		})
	}
	return result, &next
}

// bindPattern extends env with whatever names pattern binds against
// scrutinee type st, reporting an internal diagnostic (rather than
// aborting) when the pattern shape cannot be reconciled with st.
func (inf *Inferer) bindPattern(p wsurface.Pattern, st types.Type, env types.TypeEnv) (types.TypeEnv, bool) {
	switch pat := p.(type) {
	case *wsurface.WildcardPattern:
		return env, true
	case *wsurface.Identifier:
		return env.Extend(pat.Name, &types.TypeScheme{Type: st}), true
	case *wsurface.Literal:
		return env, true
	case *wsurface.TuplePattern:
		tt, ok := types.ApplySubstitution(st, inf.sub).(*types.TTuple)
		if !ok || len(tt.Elems) != len(pat.Elements) {
			return env, false
		}
		local := env
		for i, sub := range pat.Elements {
			var ok2 bool
			local, ok2 = inf.bindPattern(sub, tt.Elems[i], local)
			if !ok2 {
				return env, false
			}
		}
		return local, true
	case *wsurface.RecordPattern:
		rt, ok := types.ApplySubstitution(st, inf.sub).(*types.TRecord)
		if !ok {
			return env, false
		}
		local := env
		for _, fp := range pat.Fields {
			ft, ok := rt.FieldType(fp.Name)
			if !ok {
				return env, false
			}
			var ok2 bool
			local, ok2 = inf.bindPattern(fp.Pattern, ft, local)
			if !ok2 {
				return env, false
			}
		}
		return local, true
	case *wsurface.ConstructorPattern:
		local := env
		for _, sub := range pat.Patterns {
			var ok2 bool
			local, ok2 = inf.bindPattern(sub, inf.gen.Fresh(), local)
			if !ok2 {
				return env, false
			}
		}
		return local, true
	case *wsurface.AllErrorsPattern:
		return env, true
	case *wsurface.PinnedPattern:
		return env, true
	default:
		return env, false
	}
}
