package types

import "fmt"

// UnificationError reports a unification failure between two types.
type UnificationError struct {
	T1, T2 Type
	Reason string
}

func (e *UnificationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot unify %s with %s: %s", e.T1, e.T2, e.Reason)
	}
	return fmt.Sprintf("cannot unify %s with %s", e.T1, e.T2)
}

// OccursCheckError reports an occurs-check failure (a variable would have
// to unify with a type that contains it).
type OccursCheckError struct {
	VarID int
	In    Type
}

func (e *OccursCheckError) Error() string {
	return fmt.Sprintf("occurs check failed: t%d occurs in %s", e.VarID, e.In)
}

// Unifier performs structural unification over Type, extended with
// row unification for EffectRow (spec.md §4.1, §4.2).
type Unifier struct{ gen *VarGen }

// NewUnifier creates a unifier that allocates fresh row-tail variables from
// gen when it needs to split a row's leftover labels.
func NewUnifier(gen *VarGen) *Unifier {
	return &Unifier{gen: gen}
}

// Unify attempts to unify t1 and t2 under the existing substitution sub,
// returning an extended substitution or an error.
func (u *Unifier) Unify(t1, t2 Type, sub *Substitution) (*Substitution, error) {
	t1 = ApplySubstitution(t1, sub)
	t2 = ApplySubstitution(t2, sub)

	if t1.Equals(t2) {
		return sub, nil
	}

	if v1, ok := t1.(*TVar); ok {
		return u.bindVar(v1.ID, t2, sub)
	}
	if v2, ok := t2.(*TVar); ok {
		return u.bindVar(v2.ID, t1, sub)
	}

	switch a := t1.(type) {
	case *TFunc:
		b, ok := t2.(*TFunc)
		if !ok {
			return nil, &UnificationError{T1: t1, T2: t2}
		}
		s1, err := u.Unify(a.From, b.From, sub)
		if err != nil {
			return nil, err
		}
		return u.Unify(a.To, b.To, s1)

	case *TCon:
		b, ok := t2.(*TCon)
		if !ok || a.Name != b.Name || len(a.Args) != len(b.Args) {
			return nil, &UnificationError{T1: t1, T2: t2}
		}
		cur := sub
		var err error
		for i := range a.Args {
			cur, err = u.Unify(a.Args[i], b.Args[i], cur)
			if err != nil {
				return nil, err
			}
		}
		return cur, nil

	case *TTuple:
		b, ok := t2.(*TTuple)
		if !ok || len(a.Elems) != len(b.Elems) {
			return nil, &UnificationError{T1: t1, T2: t2}
		}
		cur := sub
		var err error
		for i := range a.Elems {
			cur, err = u.Unify(a.Elems[i], b.Elems[i], cur)
			if err != nil {
				return nil, err
			}
		}
		return cur, nil

	case *TArray:
		b, ok := t2.(*TArray)
		if !ok {
			return nil, &UnificationError{T1: t1, T2: t2}
		}
		return u.Unify(a.Elem, b.Elem, sub)

	case *TRecord:
		b, ok := t2.(*TRecord)
		if !ok {
			return nil, &UnificationError{T1: t1, T2: t2}
		}
		return u.unifyRecords(a, b, sub)

	case *EffectRow:
		b, ok := t2.(*EffectRow)
		if !ok {
			return nil, &UnificationError{T1: t1, T2: t2}
		}
		return u.unifyRows(a, b, sub)

	default:
		return nil, &UnificationError{T1: t1, T2: t2}
	}
}

func (u *Unifier) bindVar(id int, t Type, sub *Substitution) (*Substitution, error) {
	if v, ok := t.(*TVar); ok && v.ID == id {
		return sub, nil
	}
	if OccursInType(id, t) {
		return nil, &OccursCheckError{VarID: id, In: t}
	}
	next := NewSubstitution()
	sub.Range(func(i int, ty Type) { next.Set(i, ty) })
	next.Set(id, t)
	return next, nil
}

// unifyRecords unifies common fields, then unifies the remaining fields on
// each side with the other's tail variable — the standard extensible-record
// unification strategy, mirrored for rows in unifyRows below.
func (u *Unifier) unifyRecords(a, b *TRecord, sub *Substitution) (*Substitution, error) {
	am := make(map[string]Type, len(a.Fields))
	for _, f := range a.Fields {
		am[f.Name] = f.Type
	}
	bm := make(map[string]Type, len(b.Fields))
	for _, f := range b.Fields {
		bm[f.Name] = f.Type
	}

	cur := sub
	var err error
	var onlyA, onlyB []RecordField
	for _, f := range a.Fields {
		if bt, ok := bm[f.Name]; ok {
			cur, err = u.Unify(f.Type, bt, cur)
			if err != nil {
				return nil, err
			}
		} else {
			onlyA = append(onlyA, f)
		}
	}
	for _, f := range b.Fields {
		if _, ok := am[f.Name]; !ok {
			onlyB = append(onlyB, f)
		}
	}

	if len(onlyA) == 0 && len(onlyB) == 0 {
		if a.Tail == nil && b.Tail == nil {
			return cur, nil
		}
		if a.Tail != nil && b.Tail != nil {
			return u.Unify(a.Tail, b.Tail, cur)
		}
	}

	if a.Tail == nil && len(onlyB) > 0 {
		return nil, &UnificationError{T1: a, T2: b, Reason: "closed record missing fields"}
	}
	if b.Tail == nil && len(onlyA) > 0 {
		return nil, &UnificationError{T1: a, T2: b, Reason: "closed record missing fields"}
	}

	if len(onlyB) > 0 {
		cur, err = u.Unify(a.Tail, &TRecord{Fields: onlyB, Tail: b.Tail}, cur)
		if err != nil {
			return nil, err
		}
	}
	if len(onlyA) > 0 {
		cur, err = u.Unify(b.Tail, &TRecord{Fields: onlyA, Tail: a.Tail}, cur)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// unifyRows unifies two effect rows via the standard Rémy-style strategy:
// common labels unify their payloads; labels unique to one side are moved
// into a fresh tail variable unified against the other side's tail.
func (u *Unifier) unifyRows(a, b *EffectRow, sub *Substitution) (*Substitution, error) {
	cur := sub
	var err error
	var onlyA, onlyB []string
	for k, av := range a.Labels {
		if bv, ok := b.Labels[k]; ok {
			if av != nil && bv != nil {
				cur, err = u.Unify(av, bv, cur)
				if err != nil {
					return nil, err
				}
			} else if (av == nil) != (bv == nil) {
				return nil, &UnificationError{T1: a, T2: b, Reason: "label " + k + " payload mismatch"}
			}
		} else {
			onlyA = append(onlyA, k)
		}
	}
	for k := range b.Labels {
		if _, ok := a.Labels[k]; !ok {
			onlyB = append(onlyB, k)
		}
	}

	if len(onlyA) == 0 && len(onlyB) == 0 {
		if a.Tail == nil && b.Tail == nil {
			return cur, nil
		}
		if a.Tail != nil && b.Tail != nil {
			return u.Unify(a.Tail, b.Tail, cur)
		}
		if a.Tail == nil {
			return u.Unify(&EffectRow{Labels: map[string]Type{}}, b.Tail, cur)
		}
		return u.Unify(a.Tail, &EffectRow{Labels: map[string]Type{}}, cur)
	}

	if a.Tail == nil && len(onlyB) > 0 {
		return nil, &UnificationError{T1: a, T2: b, Reason: "closed row missing labels"}
	}
	if b.Tail == nil && len(onlyA) > 0 {
		return nil, &UnificationError{T1: a, T2: b, Reason: "closed row missing labels"}
	}

	aRest, bRest := a.Tail, b.Tail
	if len(onlyA) > 0 && len(onlyB) > 0 {
		if a.Tail.Equals(b.Tail) {
			return nil, &UnificationError{T1: a, T2: b, Reason: "rows share a tail but differ in labels"}
		}
		rho := u.gen.Fresh()
		aRest, bRest = rho, rho
	}

	if len(onlyB) > 0 {
		extra := make(map[string]Type, len(onlyB))
		for _, k := range onlyB {
			extra[k] = b.Labels[k]
		}
		cur, err = u.Unify(a.Tail, &EffectRow{Labels: extra, Tail: bRest}, cur)
		if err != nil {
			return nil, err
		}
	}
	if len(onlyA) > 0 {
		extra := make(map[string]Type, len(onlyA))
		for _, k := range onlyA {
			extra[k] = a.Labels[k]
		}
		cur, err = u.Unify(b.Tail, &EffectRow{Labels: extra, Tail: aRest}, cur)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}
