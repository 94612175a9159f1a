package types

import "testing"

func TestUnifyFunctionTypes(t *testing.T) {
	g := NewVarGen()
	u := NewUnifier(g)
	v := g.Fresh()
	sub, err := u.Unify(&TFunc{From: v, To: Int}, &TFunc{From: Bool, To: Int}, NewSubstitution())
	if err != nil {
		t.Fatalf("unexpected unify error: %v", err)
	}
	resolved := ApplySubstitution(v, sub)
	if !resolved.Equals(Bool) {
		t.Fatalf("expected v to resolve to Bool, got %s", resolved)
	}
}

func TestUnifyOccursCheckFails(t *testing.T) {
	g := NewVarGen()
	u := NewUnifier(g)
	v := g.Fresh()
	_, err := u.Unify(v, &TCon{Name: "List", Args: []Type{v}}, NewSubstitution())
	if err == nil {
		t.Fatalf("expected occurs-check failure")
	}
	if _, ok := err.(*OccursCheckError); !ok {
		t.Fatalf("expected *OccursCheckError, got %T", err)
	}
}

func TestUnifyConstructorArityMismatch(t *testing.T) {
	g := NewVarGen()
	u := NewUnifier(g)
	_, err := u.Unify(
		&TCon{Name: "Pair", Args: []Type{Int, Bool}},
		&TCon{Name: "Pair", Args: []Type{Int}},
		NewSubstitution(),
	)
	if err == nil {
		t.Fatalf("expected unification error for arity mismatch")
	}
}

func TestUnifyRowsWithDisjointLabels(t *testing.T) {
	g := NewVarGen()
	u := NewUnifier(g)
	tailA := g.Fresh()
	tailB := g.Fresh()
	rowA := &EffectRow{Labels: map[string]Type{"DivByZero": nil}, Tail: tailA}
	rowB := &EffectRow{Labels: map[string]Type{"Overflow": nil}, Tail: tailB}

	sub, err := u.Unify(rowA, rowB, NewSubstitution())
	if err != nil {
		t.Fatalf("unexpected error unifying open rows: %v", err)
	}
	resolvedA := ApplySubstitution(tailA, sub)
	row, ok := resolvedA.(*EffectRow)
	if !ok {
		t.Fatalf("expected tailA to resolve to a row, got %T", resolvedA)
	}
	if !row.HasLabel("Overflow") {
		t.Fatalf("expected tailA's resolution to carry Overflow, got %s", row)
	}
}

func TestUnifyClosedRowsMissingLabelFails(t *testing.T) {
	g := NewVarGen()
	u := NewUnifier(g)
	rowA := &EffectRow{Labels: map[string]Type{"DivByZero": nil}}
	rowB := &EffectRow{Labels: map[string]Type{}}
	if _, err := u.Unify(rowA, rowB, NewSubstitution()); err == nil {
		t.Fatalf("expected closed-row unification to fail when labels differ")
	}
}
