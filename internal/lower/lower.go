// Package lower implements Core lowering (spec.md §4.4, C3a): translating a
// marked surface program plus its resolved types into a list of Core value
// bindings. Grounded on the teacher's internal/elaborate/elaborate.go,
// expressions.go, patterns.go, file.go, which already lower a surface-ish
// AST into the teacher's Core IR; adapted here to consume diag.Marked nodes
// defensively instead of raw surface nodes (spec.md §4.4's fifth bullet).
package lower

import (
	"fmt"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/diag"
	"github.com/sunholo/wyrm/internal/types"
	"github.com/sunholo/wyrm/internal/wsurface"
)

// Lowerer carries the per-module state lowering needs: the resolved node
// types from inference, the match coverage info it computed, per-type
// record defaults, and a fresh-name counter for synthesized statement
// temporaries.
type Lowerer struct {
	Resolved       map[diag.NodeId]types.Type
	Matches        map[diag.NodeId]*diag.MatchInfo
	RecordDefaults map[string]map[string]wsurface.Expr // type name -> field -> default expr
	stmtCounter    int
}

// New creates a Lowerer over one module's inference output.
func New(resolved map[diag.NodeId]types.Type, matches map[diag.NodeId]*diag.MatchInfo, recordDefaults map[string]map[string]wsurface.Expr) *Lowerer {
	return &Lowerer{Resolved: resolved, Matches: matches, RecordDefaults: recordDefaults}
}

func (l *Lowerer) typeOf(n wsurface.Node) types.Type {
	if t, ok := l.Resolved[n.Position().Id]; ok {
		return t
	}
	return types.Unit
}

func b(t types.Type) core.Base { return core.Base{Typ: t} }

func (l *Lowerer) baseOf(n wsurface.Node) core.Base { return b(l.typeOf(n)) }

func (l *Lowerer) freshStmtName() string {
	l.stmtCounter++
	return fmt.Sprintf("__stmt_%d", l.stmtCounter)
}

// LowerProgramToValues is the pass's public contract (spec.md §4.4):
// markedProgram → list<CoreValueBinding>.
func (l *Lowerer) LowerProgramToValues(prog *wsurface.Program) ([]core.ValueBinding, error) {
	if prog == nil || prog.File == nil {
		return nil, nil
	}
	var out []core.ValueBinding
	for _, fn := range prog.File.Funcs {
		binding, err := l.lowerFuncDecl(fn)
		if err != nil {
			return nil, err
		}
		out = append(out, binding)
	}
	for i, stmt := range prog.File.Statements {
		e, ok := stmt.(wsurface.Expr)
		if !ok {
			continue
		}
		ce, err := l.lowerExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, core.ValueBinding{Name: fmt.Sprintf("__top_%d", i), Value: ce, Origin: "top_level_stmt"})
	}
	return out, nil
}

// lowerFuncDecl turns a top-level let/func into a CoreValueBinding. A
// declaration with parameters becomes a lambda; a zero-param declaration
// lowers its body directly.
func (l *Lowerer) lowerFuncDecl(fn *wsurface.FuncDecl) (core.ValueBinding, error) {
	body, err := l.lowerExpr(fn.Body)
	if err != nil {
		return core.ValueBinding{}, err
	}
	var value core.Expr = body
	if len(fn.Params) > 0 {
		params := make([]core.Param, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = core.Param{Name: p.Name, Typ: l.paramType(p)}
		}
		value = &core.Lambda{Base: b(l.typeOf(fn)), Params: params, Body: body}
	}
	origin := fn.Origin
	if origin == "" {
		origin = "func_decl"
	}
	return core.ValueBinding{Name: fn.Name, Value: value, Exported: fn.IsExport, Origin: origin}, nil
}

func (l *Lowerer) paramType(p *wsurface.Param) types.Type {
	if t, ok := l.Resolved[p.Pos.Id]; ok {
		return t
	}
	return types.Unit
}

// lowerExpr is the main recursive rule (spec.md §4.4).
func (l *Lowerer) lowerExpr(e wsurface.Expr) (core.Expr, error) {
	switch n := e.(type) {
	case *wsurface.Literal:
		return l.lowerLiteral(n), nil

	case *wsurface.Identifier:
		return &core.Var{Base: l.baseOf(n), Name: n.Name}, nil

	case *wsurface.BinaryOp:
		return l.lowerBinaryOp(n)

	case *wsurface.UnaryOp:
		return l.lowerUnaryOp(n)

	case *wsurface.Lambda:
		return l.lowerLambda(n.Params, n.Body, n)

	case *wsurface.FuncLit:
		return l.lowerLambda(n.Params, n.Body, n)

	case *wsurface.FuncCall:
		return l.lowerFuncCall(n)

	case *wsurface.Let:
		return l.lowerLet(n)

	case *wsurface.LetRec:
		return l.lowerLetRec(n)

	case *wsurface.Block:
		return l.lowerBlock(n)

	case *wsurface.If:
		return l.lowerIf(n)

	case *wsurface.Tuple:
		return l.lowerTuple(n)

	case *wsurface.Record:
		return l.lowerRecord(n)

	case *wsurface.RecordAccess:
		return l.lowerRecordAccess(n)

	case *wsurface.RecordUpdate:
		return l.lowerRecordUpdate(n)

	case *wsurface.Match:
		return l.lowerMatch(n)

	case *wsurface.Mark:
		return l.lowerMark(n)

	default:
		return nil, fmt.Errorf("lower: no rule for surface node %T", e)
	}
}

func (l *Lowerer) lowerLiteral(lit *wsurface.Literal) core.Expr {
	switch lit.Kind {
	case wsurface.IntLit, wsurface.FloatLit:
		return &core.Literal{Base: b(types.Int), Kind: types.PInt, Value: lit.Value}
	case wsurface.StringLit:
		return &core.Literal{Base: b(types.String), Kind: types.PString, Value: lit.Value}
	case wsurface.BoolLit:
		return &core.Literal{Base: b(types.Bool), Kind: types.PBool, Value: lit.Value}
	default:
		return &core.Literal{Base: b(types.Unit), Kind: types.PUnit, Value: nil}
	}
}

// primFor maps a binary/unary operator plus its (already-resolved) operand
// types to a Core PrimOp when both sides are primitive, per spec.md §4.4's
// second bullet. It returns ("", false) when the operator must instead
// lower to a call of __op_<operator>/__prefix_<operator>.
func primFor(op string, lt, rt types.Type) (core.PrimOp, bool) {
	isInt := func(t types.Type) bool { return t != nil && t.Equals(types.Int) }
	isBool := func(t types.Type) bool { return t != nil && t.Equals(types.Bool) }
	isChar := func(t types.Type) bool { return t != nil && t.Equals(types.Char) }
	switch {
	case numericOps[op] && isInt(lt) && isInt(rt):
		return core.PrimOp("int_" + opName(op)), true
	case boolOps[op] && isBool(lt) && isBool(rt):
		return core.PrimOp("bool_" + opName(op)), true
	case op == "==" && isChar(lt) && isChar(rt):
		return core.PrimOp("char_eq"), true
	default:
		return "", false
	}
}

var numericOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true, "<": true, "<=": true, ">": true, ">=": true}
var boolOps = map[string]bool{"&&": true, "||": true}

func opName(op string) string {
	names := map[string]string{
		"+": "add", "-": "sub", "*": "mul", "/": "div", "%": "mod",
		"<": "lt", "<=": "le", ">": "gt", ">=": "ge",
		"&&": "and", "||": "or",
	}
	if n, ok := names[op]; ok {
		return n
	}
	return op
}

func (l *Lowerer) lowerBinaryOp(bo *wsurface.BinaryOp) (core.Expr, error) {
	left, err := l.lowerExpr(bo.Left)
	if err != nil {
		return nil, err
	}
	right, err := l.lowerExpr(bo.Right)
	if err != nil {
		return nil, err
	}
	resultType := l.typeOf(bo)
	if op, ok := primFor(bo.Op, l.typeOf(bo.Left), l.typeOf(bo.Right)); ok {
		return &core.Prim{Base: b(resultType), Op: op, Args: []core.Expr{left, right}}, nil
	}
	return &core.Call{
		Base:   b(resultType),
		Callee: &core.Var{Base: b(nil), Name: "__op_" + bo.Op},
		Args:   []core.Expr{left, right},
	}, nil
}

func (l *Lowerer) lowerUnaryOp(u *wsurface.UnaryOp) (core.Expr, error) {
	inner, err := l.lowerExpr(u.Expr)
	if err != nil {
		return nil, err
	}
	resultType := l.typeOf(u)
	switch {
	case u.Op == "!" && l.typeOf(u.Expr).Equals(types.Bool):
		return &core.Prim{Base: b(resultType), Op: "bool_not", Args: []core.Expr{inner}}, nil
	case u.Op == "-" && l.typeOf(u.Expr).Equals(types.Int):
		return &core.Prim{Base: b(resultType), Op: "int_neg", Args: []core.Expr{inner}}, nil
	case u.Op == "&":
		return &core.Prim{Base: b(resultType), Op: "address_of", Args: []core.Expr{inner}}, nil
	default:
		return &core.Call{Base: b(resultType), Callee: &core.Var{Base: b(nil), Name: "__prefix_" + u.Op}, Args: []core.Expr{inner}}, nil
	}
}

func (l *Lowerer) lowerLambda(params []*wsurface.Param, body wsurface.Expr, node wsurface.Node) (core.Expr, error) {
	lowered, err := l.lowerExpr(body)
	if err != nil {
		return nil, err
	}
	cparams := make([]core.Param, len(params))
	for i, p := range params {
		cparams[i] = core.Param{Name: p.Name, Typ: l.paramType(p)}
	}
	return &core.Lambda{Base: l.baseOf(node), Params: cparams, Body: lowered}, nil
}

func (l *Lowerer) lowerFuncCall(c *wsurface.FuncCall) (core.Expr, error) {
	callee, err := l.lowerExpr(c.Func)
	if err != nil {
		return nil, err
	}
	args := make([]core.Expr, len(c.Args))
	for i, a := range c.Args {
		ce, err := l.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = ce
	}
	return &core.Call{Base: l.baseOf(c), Callee: callee, Args: args}, nil
}

func (l *Lowerer) lowerLet(le *wsurface.Let) (core.Expr, error) {
	value, err := l.lowerExpr(le.Value)
	if err != nil {
		return nil, err
	}
	body, err := l.lowerExpr(le.Body)
	if err != nil {
		return nil, err
	}
	return &core.Let{Base: l.baseOf(le), Binding: core.Binding{Name: le.Name, Value: value}, Body: body}, nil
}

func (l *Lowerer) lowerLetRec(le *wsurface.LetRec) (core.Expr, error) {
	value, err := l.lowerExpr(le.Value)
	if err != nil {
		return nil, err
	}
	if _, ok := value.(*core.Lambda); !ok {
		return nil, fmt.Errorf("lower: let_rec binding %q must be a lambda", le.Name)
	}
	body, err := l.lowerExpr(le.Body)
	if err != nil {
		return nil, err
	}
	return &core.LetRec{Base: l.baseOf(le), Bindings: []core.Binding{{Name: le.Name, Value: value}}, Body: body}, nil
}

// lowerBlock lowers right-to-left: the result expression (or a unit literal
// if absent) is wrapped by lets for each preceding statement, innermost
// (last statement) first — spec.md §4.4's third bullet.
func (l *Lowerer) lowerBlock(blk *wsurface.Block) (core.Expr, error) {
	if len(blk.Exprs) == 0 {
		return &core.Literal{Base: b(types.Unit), Kind: types.PUnit}, nil
	}
	last := blk.Exprs[len(blk.Exprs)-1]
	result, err := l.lowerExpr(last)
	if err != nil {
		return nil, err
	}
	blockBase := l.baseOf(blk)
	for i := len(blk.Exprs) - 2; i >= 0; i-- {
		stmt := blk.Exprs[i]
		value, err := l.lowerExpr(stmt)
		if err != nil {
			return nil, err
		}
		name := l.freshStmtName()
		if let, ok := stmt.(*wsurface.Let); ok {
			name = let.Name
		}
		result = &core.Let{Base: blockBase, Binding: core.Binding{Name: name, Value: value}, Body: result}
	}
	return result, nil
}

func (l *Lowerer) lowerIf(i *wsurface.If) (core.Expr, error) {
	cond, err := l.lowerExpr(i.Condition)
	if err != nil {
		return nil, err
	}
	then, err := l.lowerExpr(i.Then)
	if err != nil {
		return nil, err
	}
	els, err := l.lowerExpr(i.Else)
	if err != nil {
		return nil, err
	}
	return &core.If{Base: l.baseOf(i), Cond: cond, Then: then, Else: els}, nil
}

func (l *Lowerer) lowerTuple(t *wsurface.Tuple) (core.Expr, error) {
	elems := make([]core.Expr, len(t.Elements))
	for i, e := range t.Elements {
		ce, err := l.lowerExpr(e)
		if err != nil {
			return nil, err
		}
		elems[i] = ce
	}
	return &core.Tuple{Base: l.baseOf(t), Elems: elems}, nil
}

// lowerRecord lowers explicit fields, then spread fields (as record_get
// projections of the spread expression), then the declaration's defaults
// for the fields still missing — spec.md §4.4's fourth bullet. Each default
// is lowered as written: the already-provided fields are not bound in its
// scope, and defaults are appended in map iteration order.
func (l *Lowerer) lowerRecord(r *wsurface.Record) (core.Expr, error) {
	var fields []core.RecordField
	provided := map[string]bool{}
	for _, f := range r.Fields {
		v, err := l.lowerExpr(f.Value)
		if err != nil {
			return nil, err
		}
		fields = append(fields, core.RecordField{Name: f.Name, Value: v})
		provided[f.Name] = true
	}
	if r.Spread != nil {
		spreadType, ok := l.typeOf(r.Spread).(*types.TRecord)
		spread, err := l.lowerExpr(r.Spread)
		if err != nil {
			return nil, err
		}
		if ok {
			for _, sf := range spreadType.Fields {
				if provided[sf.Name] {
					continue
				}
				fields = append(fields, core.RecordField{
					Name:  sf.Name,
					Value: &core.RecordGet{Base: b(sf.Type), Target: spread, Field: sf.Name},
				})
				provided[sf.Name] = true
			}
		}
	}
	typeName := recordTypeName(l.typeOf(r))
	if defaults, ok := l.RecordDefaults[typeName]; ok {
		for name, expr := range defaults {
			if provided[name] {
				continue
			}
			v, err := l.lowerExpr(expr)
			if err != nil {
				return nil, err
			}
			fields = append(fields, core.RecordField{Name: name, Value: v})
		}
	}
	return &core.Record{Base: l.baseOf(r), Fields: fields}, nil
}

func recordTypeName(t types.Type) string {
	if tc, ok := t.(*types.TCon); ok {
		return tc.Name
	}
	return ""
}

func (l *Lowerer) lowerRecordAccess(r *wsurface.RecordAccess) (core.Expr, error) {
	target, err := l.lowerExpr(r.Record)
	if err != nil {
		return nil, err
	}
	return &core.RecordGet{Base: l.baseOf(r), Target: target, Field: r.Field}, nil
}

// lowerRecordUpdate lowers a functional update {base | f: v, ...} to a
// fresh record built from base's fields, overridden by the update's.
func (l *Lowerer) lowerRecordUpdate(r *wsurface.RecordUpdate) (core.Expr, error) {
	base, err := l.lowerExpr(r.Base)
	if err != nil {
		return nil, err
	}
	baseType, ok := l.typeOf(r.Base).(*types.TRecord)
	var fields []core.RecordField
	overridden := map[string]bool{}
	for _, f := range r.Fields {
		v, err := l.lowerExpr(f.Value)
		if err != nil {
			return nil, err
		}
		fields = append(fields, core.RecordField{Name: f.Name, Value: v})
		overridden[f.Name] = true
	}
	resultBase := l.baseOf(r)
	if ok {
		tmp := "__update_base"
		var rest []core.RecordField
		for _, f := range baseType.Fields {
			if overridden[f.Name] {
				continue
			}
			rest = append(rest, core.RecordField{
				Name:  f.Name,
				Value: &core.RecordGet{Base: b(f.Type), Target: &core.Var{Base: b(baseType), Name: tmp}, Field: f.Name},
			})
		}
		return &core.Let{
			Base:    resultBase,
			Binding: core.Binding{Name: tmp, Value: base},
			Body:    &core.Record{Base: resultBase, Fields: append(rest, fields...)},
		}, nil
	}
	return &core.Record{Base: resultBase, Fields: fields}, nil
}

// lowerMark lowers each mark variant defensively per spec.md §4.4's fifth
// bullet: mark_free_var becomes a var the backend will fail on,
// mark_not_function a call of the non-function, mark_inconsistent /
// mark_occurs_check the subject's expression, mark_pattern a wildcard
// pattern expression placeholder, and a bare hole a unit literal.
func (l *Lowerer) lowerMark(m *wsurface.Mark) (core.Expr, error) {
	switch m.Reason {
	case diag.ReasonFreeVariable:
		name := "<unresolved>"
		if id, ok := m.Subject.(*wsurface.Identifier); ok {
			name = id.Name
		}
		return &core.Var{Base: l.baseOf(m), Name: name}, nil
	case diag.ReasonNotFunction:
		if call, ok := m.Subject.(*wsurface.FuncCall); ok {
			return l.lowerFuncCall(call)
		}
		return &core.Literal{Base: b(types.Unit), Kind: types.PUnit}, nil
	case diag.ReasonOccursCycle, diag.ReasonTypeMismatch, diag.ReasonBranchMismatch,
		diag.ReasonNotBoolean, diag.ReasonNotNumeric, diag.ReasonNotRecord,
		diag.ReasonMissingField, diag.ReasonDuplicateRecordField:
		if m.Subject != nil {
			return l.lowerExpr(m.Subject)
		}
		return &core.Literal{Base: b(types.Unit), Kind: types.PUnit}, nil
	default:
		return &core.Literal{Base: b(types.Unit), Kind: types.PUnit}, nil
	}
}

// lowerMatch lowers each arm and attaches effectRowCoverage computed during
// inference when present (spec.md §4.4's sixth bullet). Bundle expansion
// (an anonymous match_bundle_literal becoming lambda(tmp) { match tmp {...} })
// is a surface-level desugaring performed upstream of this package by
// whatever produces the marked program; by the time a Match node reaches
// here its scrutinee is already a concrete expression.
func (l *Lowerer) lowerMatch(m *wsurface.Match) (core.Expr, error) {
	scrutinee, err := l.lowerExpr(m.Expr)
	if err != nil {
		return nil, err
	}
	cases := make([]core.Case, len(m.Cases))
	for i, c := range m.Cases {
		pat, err := l.lowerPattern(c.Pattern)
		if err != nil {
			return nil, err
		}
		var guard core.Expr
		if c.Guard != nil {
			guard, err = l.lowerExpr(c.Guard)
			if err != nil {
				return nil, err
			}
		}
		body, err := l.lowerExpr(c.Body)
		if err != nil {
			return nil, err
		}
		cases[i] = core.Case{Pattern: pat, Guard: guard, Body: body}
	}
	match := &core.Match{Base: l.baseOf(m), Scrutinee: scrutinee, Cases: cases}
	if info, ok := l.Matches[m.Pos.Id]; ok {
		match.Coverage = &core.MatchCoverage{
			CoveredConstructors: info.CoveredLabels,
			TailCovered:         info.Exhaustive,
			Discharges:          info.DischargedCarrier != "",
		}
	}
	return match, nil
}

func (l *Lowerer) lowerPattern(p wsurface.Pattern) (core.Pattern, error) {
	switch pat := p.(type) {
	case *wsurface.WildcardPattern:
		return &core.WildcardPattern{}, nil
	case *wsurface.Identifier:
		return &core.BindingPattern{Name: pat.Name}, nil
	case *wsurface.Literal:
		kind, val := literalKindValue(pat)
		return &core.LiteralPattern{Kind: kind, Value: val}, nil
	case *wsurface.TuplePattern:
		elems := make([]core.Pattern, len(pat.Elements))
		for i, e := range pat.Elements {
			ce, err := l.lowerPattern(e)
			if err != nil {
				return nil, err
			}
			elems[i] = ce
		}
		return &core.TuplePattern{Elems: elems}, nil
	case *wsurface.ConstructorPattern:
		fields := make([]core.Pattern, len(pat.Patterns))
		for i, e := range pat.Patterns {
			ce, err := l.lowerPattern(e)
			if err != nil {
				return nil, err
			}
			fields[i] = ce
		}
		return &core.ConstructorPattern{Ctor: pat.Name, Fields: fields}, nil
	case *wsurface.AllErrorsPattern:
		return &core.AllErrorsPattern{}, nil
	case *wsurface.PinnedPattern:
		return &core.PinnedPattern{Name: pat.Name}, nil
	default:
		// Defensive lowering of a mark_pattern: wildcard, per §4.4.
		return &core.WildcardPattern{}, nil
	}
}

func literalKindValue(lit *wsurface.Literal) (types.PrimKind, any) {
	switch lit.Kind {
	case wsurface.IntLit, wsurface.FloatLit:
		return types.PInt, lit.Value
	case wsurface.StringLit:
		return types.PString, lit.Value
	case wsurface.BoolLit:
		return types.PBool, lit.Value
	default:
		return types.PUnit, nil
	}
}
