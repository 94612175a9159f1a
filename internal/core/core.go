// Package core defines the Core IR (spec.md §3.4): the tagged expression
// and pattern variants that internal/lower produces and internal/elaborate,
// internal/mono, internal/rawlower, and internal/emit/* all consume.
// Grounded on the teacher's internal/core package (core.go, core_test.go),
// generalized with the carrier_wrap/carrier_unwrap/carrier_match/coerce/
// enum_literal variants this design adds.
package core

import "github.com/sunholo/wyrm/internal/types"

// Span locates a Core node back in its originating source, when known.
type Span struct {
	File        string
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Expr is a tagged Core expression. Every concrete variant carries a Type,
// an optional Origin (the surface construct it was lowered from, for
// diagnostics), and an optional Span.
type Expr interface {
	Type() types.Type
	exprNode()
}

// Base is embedded by every Expr variant to share the common fields without
// repeating accessor boilerplate.
type Base struct {
	Typ    types.Type
	Origin string
	Span   *Span
}

func (b Base) Type() types.Type { return b.Typ }

// Literal is a literal value: Int, Bool, Char, String, or Unit.
type Literal struct {
	Base
	Kind  types.PrimKind
	Value any
}

func (*Literal) exprNode() {}

// Var is a reference to a bound name.
type Var struct {
	Base
	Name string
}

func (*Var) exprNode() {}

// Tuple is a fixed-arity tuple construction.
type Tuple struct {
	Base
	Elems []Expr
}

func (*Tuple) exprNode() {}

// RecordField is one field of a Record expression.
type RecordField struct {
	Name  string
	Value Expr
}

// Record is a record construction with explicit fields.
type Record struct {
	Base
	Fields []RecordField
}

func (*Record) exprNode() {}

// TupleGet projects an element out of a tuple by index.
type TupleGet struct {
	Base
	Target Expr
	Index  int
}

func (*TupleGet) exprNode() {}

// RecordGet projects a field out of a record by name.
type RecordGet struct {
	Base
	Target Expr
	Field  string
}

func (*RecordGet) exprNode() {}

// Data constructs a value of an algebraic data type via one of its
// constructors.
type Data struct {
	Base
	TypeName string
	Ctor     string
	Fields   []Expr
}

func (*Data) exprNode() {}

// Param is one lambda parameter.
type Param struct {
	Name string
	Typ  types.Type
}

// Lambda is a single-expression-body function literal. Surface multi-arg
// functions curry into nested Lambdas at the lowering boundary.
type Lambda struct {
	Base
	Params []Param
	Body   Expr
}

func (*Lambda) exprNode() {}

// Call applies Callee to Args.
type Call struct {
	Base
	Callee Expr
	Args   []Expr
}

func (*Call) exprNode() {}

// Binding is one name bound by Let or one element of a LetRec group.
type Binding struct {
	Name  string
	Value Expr
}

// Let binds Binding's value to its name for the scope of Body.
type Let struct {
	Base
	Binding Binding
	Body    Expr
}

func (*Let) exprNode() {}

// LetRec binds a group of mutually recursive bindings (every Value must be
// a *Lambda) for the scope of Body.
type LetRec struct {
	Base
	Bindings []Binding
	Body     Expr
}

func (*LetRec) exprNode() {}

// If is a conditional expression.
type If struct {
	Base
	Cond, Then, Else Expr
}

func (*If) exprNode() {}

// PrimOp names a primitive operation (int arithmetic/comparison, bool
// and/or/not, char equality, address-of) a Prim node applies.
type PrimOp string

// Prim applies a primitive operation directly, bypassing a function call —
// the lowering of a binary/unary operator whose operand types are all
// primitive (spec.md §4.4).
type Prim struct {
	Base
	Op   PrimOp
	Args []Expr
}

func (*Prim) exprNode() {}

// Case is one arm of a Match or CarrierMatch.
type Case struct {
	Pattern Pattern
	Guard   Expr
	Body    Expr
}

// MatchCoverage records the full effect row a match's scrutinee carries,
// which constructors/labels are covered by its cases, and whether the
// match claims to discharge the carrier (spec.md §3.4).
type MatchCoverage struct {
	FullRow            *types.EffectRow
	CoveredConstructors []string
	TailCovered        bool
	Missing            []string
	Discharges         bool
}

// Match is a pattern match over Scrutinee. Fallback is non-nil when no case
// is exhaustive and a catch-all body was synthesized.
type Match struct {
	Base
	Scrutinee Expr
	Cases     []Case
	Fallback  Expr
	Coverage  *MatchCoverage
}

func (*Match) exprNode() {}

// CarrierWrap lifts Inner (a clean value) into the given carrier domain,
// joining it with State.
type CarrierWrap struct {
	Base
	Domain string
	Inner  Expr
	State  Expr
}

func (*CarrierWrap) exprNode() {}

// CarrierUnwrap splits a carrier-typed Target into its clean value,
// discarding the state (used after elaboration has already proven the
// state is vacuous, or by the raw backend once coverage is discharged).
type CarrierUnwrap struct {
	Base
	Domain string
	Target Expr
}

func (*CarrierUnwrap) exprNode() {}

// CarrierMatch is the rewrite target of carrier-op elaboration (spec.md
// §4.5): it binds Scrutinee's clean value to a fresh name for Cases[0]'s
// body, short-circuiting on any effect-carrying state. The runtime-assisted
// backend lowers it to a callInfectious/recordGetInfectious runtime call;
// the raw backend lowers it to a pattern match on the concrete tagged
// union, once coverage has been discharged by an earlier pass.
type CarrierMatch struct {
	Base
	CarrierType string
	Scrutinee   Expr
	Cases       []Case
	Fallback    Expr
}

func (*CarrierMatch) exprNode() {}

// Coerce records an explicit representation change from From to To around
// Inner (e.g. widening a monomorphized type, or a raw-mode pointer
// normalization) without altering Inner's runtime value.
type Coerce struct {
	Base
	From, To types.Type
	Inner    Expr
}

func (*Coerce) exprNode() {}

// EnumLiteral is a zero-field constructor reference used as a plain value
// (e.g. an enum-like ADT case with no payload).
type EnumLiteral struct {
	Base
	TypeName string
	Ctor     string
}

func (*EnumLiteral) exprNode() {}

// Pattern is a tagged Core pattern. Every variant carries its Type.
type Pattern interface {
	Type() types.Type
	patternNode()
}

type PatternBase struct{ Typ types.Type }

func (p PatternBase) Type() types.Type { return p.Typ }

// WildcardPattern matches anything without binding.
type WildcardPattern struct{ PatternBase }

func (*WildcardPattern) patternNode() {}

// BindingPattern matches anything, binding it to Name.
type BindingPattern struct {
	PatternBase
	Name string
}

func (*BindingPattern) patternNode() {}

// LiteralPattern matches a specific literal value.
type LiteralPattern struct {
	PatternBase
	Kind  types.PrimKind
	Value any
}

func (*LiteralPattern) patternNode() {}

// TuplePattern matches a tuple's elements positionally.
type TuplePattern struct {
	PatternBase
	Elems []Pattern
}

func (*TuplePattern) patternNode() {}

// ConstructorPattern matches one constructor of an algebraic data type.
type ConstructorPattern struct {
	PatternBase
	TypeName string
	Ctor     string
	Fields   []Pattern
}

func (*ConstructorPattern) patternNode() {}

// AllErrorsPattern matches a carrier's Err<row> case wholesale regardless
// of which label the row carries (spec.md §4.4).
type AllErrorsPattern struct {
	PatternBase
	ResultTypeName string
}

func (*AllErrorsPattern) patternNode() {}

// PinnedPattern matches only when the scrutinee equals the value already
// bound to Name.
type PinnedPattern struct {
	PatternBase
	Name string
}

func (*PinnedPattern) patternNode() {}

// ValueBinding is one top-level binding of a module.
type ValueBinding struct {
	Name     string
	Value    Expr
	Exported bool
	Origin   string
}

// TypeDeclaration is one top-level type declaration of a module, carrying
// whatever TypeInfo the declaring name resolved to plus monomorphization
// bookkeeping (set by internal/mono; zero-valued otherwise).
type TypeDeclaration struct {
	Name           string
	Info           *types.TypeInfo
	TypeParams     []int
	Exported       bool
	Monomorphized  bool
	Infectious     bool // non-nil "infectious" metadata collected by C3b
}

// Module is a Core IR module: one compilation unit keyed by canonical
// module path.
type Module struct {
	Path             string
	Mode             string // "runtime" or "raw"; "" before a mode is assigned
	Imports          []string
	TypeDeclarations []TypeDeclaration
	Values           []ValueBinding
	Exports          []string
	Core             bool // entry carries a `core` flag forcing mono even in runtime mode
}

// ModuleGraph is the leaves-first compilation unit internal/emit/* walks.
type ModuleGraph struct {
	Entry   string
	Order   []string // leaves-first topological order
	Modules map[string]*Module
	Prelude string
}
