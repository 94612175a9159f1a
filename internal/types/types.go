// Package types implements the compiler's type representation: type shapes,
// type schemes, environments, and the per-nominal-name declaration info used
// across inference, lowering, and the IR passes. See spec.md §3.1-§3.2, §4.1.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Type is a tagged variant: Var, Func, Con, Tuple, Array, Record, EffectRow,
// or one of the five primitives. See spec.md §3.1.
type Type interface {
	String() string
	Equals(Type) bool
	typeNode()
}

// TVar is a type variable identified by a monotonically increasing id.
type TVar struct{ ID int }

func (t *TVar) typeNode() {}
func (t *TVar) String() string {
	return fmt.Sprintf("t%d", t.ID)
}
func (t *TVar) Equals(o Type) bool {
	ov, ok := o.(*TVar)
	return ok && ov.ID == t.ID
}

// TFunc is a function type with a single argument ("from") and a result
// ("to"); multi-argument surface functions curry at the lowering boundary.
type TFunc struct{ From, To Type }

func (t *TFunc) typeNode() {}
func (t *TFunc) String() string {
	return fmt.Sprintf("(%s -> %s)", t.From.String(), t.To.String())
}
func (t *TFunc) Equals(o Type) bool {
	of, ok := o.(*TFunc)
	return ok && t.From.Equals(of.From) && t.To.Equals(of.To)
}

// TCon is a type constructor: a name plus an ordered list of argument types.
// It represents every nominal type, including user ADTs and the carriers
// (Result<T,R>, Ptr<T,R>, ManyPtr<T,R>, Hole<T,R>).
type TCon struct {
	Name string
	Args []Type
}

func (t *TCon) typeNode() {}
func (t *TCon) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", t.Name, strings.Join(parts, ", "))
}
func (t *TCon) Equals(o Type) bool {
	oc, ok := o.(*TCon)
	if !ok || oc.Name != t.Name || len(oc.Args) != len(t.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equals(oc.Args[i]) {
			return false
		}
	}
	return true
}

// TTuple is a fixed-arity product type.
type TTuple struct{ Elems []Type }

func (t *TTuple) typeNode() {}
func (t *TTuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}
func (t *TTuple) Equals(o Type) bool {
	ot, ok := o.(*TTuple)
	if !ok || len(ot.Elems) != len(t.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equals(ot.Elems[i]) {
			return false
		}
	}
	return true
}

// TArray is a homogeneous sequence type.
type TArray struct{ Elem Type }

func (t *TArray) typeNode() {}
func (t *TArray) String() string { return fmt.Sprintf("[%s]", t.Elem.String()) }
func (t *TArray) Equals(o Type) bool {
	oa, ok := o.(*TArray)
	return ok && t.Elem.Equals(oa.Elem)
}

// RecordField is one field of a TRecord, in declaration order.
type RecordField struct {
	Name string
	Type Type
}

// TRecord is a record type: fields in stable iteration order, plus an
// optional Tail type for row-polymorphic ("open") records.
type TRecord struct {
	Fields []RecordField
	Tail   Type // nil for a closed record
}

func (t *TRecord) typeNode() {}
func (t *TRecord) String() string {
	parts := make([]string, 0, len(t.Fields)+1)
	for _, f := range t.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Type.String()))
	}
	if t.Tail != nil {
		parts = append(parts, "..."+t.Tail.String())
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}
func (t *TRecord) Equals(o Type) bool {
	ot, ok := o.(*TRecord)
	if !ok || len(ot.Fields) != len(t.Fields) {
		return false
	}
	om := make(map[string]Type, len(ot.Fields))
	for _, f := range ot.Fields {
		om[f.Name] = f.Type
	}
	for _, f := range t.Fields {
		of, ok := om[f.Name]
		if !ok || !f.Type.Equals(of) {
			return false
		}
	}
	if t.Tail == nil && ot.Tail == nil {
		return true
	}
	if t.Tail != nil && ot.Tail != nil {
		return t.Tail.Equals(ot.Tail)
	}
	return false
}

// FieldType returns a record's field type by name.
func (t *TRecord) FieldType(name string) (Type, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// EffectRow is a flattened mapping label -> optional payload type, plus an
// optional tail representing "any additional rows". Rows are the state
// component of carriers (spec.md §3.1, §4.2).
type EffectRow struct {
	Labels map[string]Type // nil payload for a label means "no payload"
	Tail   Type             // nil for a closed row
}

func (t *EffectRow) typeNode() {}
func (t *EffectRow) String() string {
	keys := make([]string, 0, len(t.Labels))
	for k := range t.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		if p := t.Labels[k]; p != nil {
			parts = append(parts, fmt.Sprintf("%s(%s)", k, p.String()))
		} else {
			parts = append(parts, k)
		}
	}
	if t.Tail != nil {
		parts = append(parts, "..."+t.Tail.String())
	}
	return fmt.Sprintf("<%s>", strings.Join(parts, ", "))
}
func (t *EffectRow) Equals(o Type) bool {
	or, ok := o.(*EffectRow)
	if !ok || len(or.Labels) != len(t.Labels) {
		return false
	}
	for k, v := range t.Labels {
		ov, ok := or.Labels[k]
		if !ok {
			return false
		}
		if v == nil || ov == nil {
			if v != nil || ov != nil {
				return false
			}
			continue
		}
		if !v.Equals(ov) {
			return false
		}
	}
	if t.Tail == nil && or.Tail == nil {
		return true
	}
	if t.Tail != nil && or.Tail != nil {
		return t.Tail.Equals(or.Tail)
	}
	return false
}

// HasLabel reports whether the row has the given label (in its Labels map,
// not counting whatever might be hiding in the tail).
func (t *EffectRow) HasLabel(label string) bool {
	_, ok := t.Labels[label]
	return ok
}

// PrimKind enumerates the five primitive types.
type PrimKind int

const (
	PInt PrimKind = iota
	PBool
	PChar
	PString
	PUnit
)

func (k PrimKind) String() string {
	switch k {
	case PInt:
		return "Int"
	case PBool:
		return "Bool"
	case PChar:
		return "Char"
	case PString:
		return "String"
	case PUnit:
		return "Unit"
	default:
		return "?prim?"
	}
}

// TPrim is one of the five primitive types.
type TPrim struct{ Kind PrimKind }

func (t *TPrim) typeNode()      {}
func (t *TPrim) String() string { return t.Kind.String() }
func (t *TPrim) Equals(o Type) bool {
	op, ok := o.(*TPrim)
	return ok && op.Kind == t.Kind
}

// Common primitive instances, shared to keep Equals cheap and String output
// stable; constructing a fresh &TPrim{} is also always valid.
var (
	Int    Type = &TPrim{Kind: PInt}
	Bool   Type = &TPrim{Kind: PBool}
	Char   Type = &TPrim{Kind: PChar}
	String Type = &TPrim{Kind: PString}
	Unit   Type = &TPrim{Kind: PUnit}
)

// TypeScheme is a polymorphic type: a type with an ordered list of
// quantified variable ids. See spec.md §3.2.
type TypeScheme struct {
	Quantifiers []int
	Type        Type
}

func (s *TypeScheme) String() string {
	if len(s.Quantifiers) == 0 {
		return s.Type.String()
	}
	ids := make([]string, len(s.Quantifiers))
	for i, q := range s.Quantifiers {
		ids[i] = fmt.Sprintf("t%d", q)
	}
	return fmt.Sprintf("forall %s. %s", strings.Join(ids, " "), s.Type.String())
}

// TypeEnv maps a name to its type scheme.
type TypeEnv map[string]*TypeScheme

// NewTypeEnv creates an empty environment.
func NewTypeEnv() TypeEnv { return make(TypeEnv) }

// Extend returns a copy of env with name bound to scheme (the env is
// otherwise immutable, matching the teacher's functional-env discipline).
func (env TypeEnv) Extend(name string, scheme *TypeScheme) TypeEnv {
	next := make(TypeEnv, len(env)+1)
	for k, v := range env {
		next[k] = v
	}
	next[name] = scheme
	return next
}

// ConstructorInfo describes one ADT constructor.
type ConstructorInfo struct {
	Name   string
	Arity  int
	Scheme *TypeScheme
}

// TypeInfo is the per-nominal-name declaration record: its parameters, its
// constructors (for ADTs), or its alias target (for type aliases), plus
// record-literal bookkeeping when the name denotes a record type.
type TypeInfo struct {
	Parameters     []int
	Constructors   []ConstructorInfo
	Alias          Type            // nil unless this name is a type alias
	RecordFields   map[string]int  // field name -> declaration index, for stable field order
	RecordDefaults map[string]bool // field names that carry a default expression
}
