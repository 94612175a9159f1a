package types

import "testing"

func TestApplySubstitutionIdempotent(t *testing.T) {
	// σ(σ(t)) = σ(t) for t not containing free vars outside dom(σ).
	v1, v2 := &TVar{ID: 1}, &TVar{ID: 2}
	sub := NewSubstitution()
	sub.Set(1, &TTuple{Elems: []Type{v2, Int}})
	tt := &TFunc{From: v1, To: Bool}

	once := ApplySubstitution(tt, sub)
	twice := ApplySubstitution(once, sub)
	if !once.Equals(twice) {
		t.Fatalf("substitution not idempotent: once=%s twice=%s", once, twice)
	}
}

func TestApplySubstitutionChasesChainWithCycleDetection(t *testing.T) {
	sub := NewSubstitution()
	sub.Set(1, &TVar{ID: 2})
	sub.Set(2, &TVar{ID: 3})
	sub.Set(3, Int)

	got := ApplySubstitution(&TVar{ID: 1}, sub)
	if !got.Equals(Int) {
		t.Fatalf("expected Int, got %s", got)
	}

	cyc := NewSubstitution()
	cyc.Set(1, &TVar{ID: 2})
	cyc.Set(2, &TVar{ID: 1})
	// Must terminate, landing on one of the cycle's variables.
	res := ApplySubstitution(&TVar{ID: 1}, cyc)
	if _, ok := res.(*TVar); !ok {
		t.Fatalf("expected a type variable result from a cyclic chase, got %s", res)
	}
}

func TestComposeSubstitutionIdentity(t *testing.T) {
	id := NewSubstitution()
	a := NewSubstitution()
	a.Set(1, Int)
	a.Set(2, &TTuple{Elems: []Type{Bool, String}})

	left := ComposeSubstitution(id, a)
	right := ComposeSubstitution(a, id)

	for _, id := range []int{1, 2} {
		la, _ := left.Get(id)
		ra, _ := right.Get(id)
		aa, _ := a.Get(id)
		if !la.Equals(aa) || !ra.Equals(aa) {
			t.Fatalf("compose with identity changed mapping for t%d", id)
		}
	}
}

func TestComposeSubstitutionAppliesLeftToRightImages(t *testing.T) {
	b := NewSubstitution()
	b.Set(1, &TVar{ID: 2})
	a := NewSubstitution()
	a.Set(2, Int)

	composed := ComposeSubstitution(a, b)
	got, ok := composed.Get(1)
	if !ok || !got.Equals(Int) {
		t.Fatalf("expected t1 -> Int via composition, got %v", got)
	}
}

func TestGeneralizeThenInstantiatePreservesShape(t *testing.T) {
	env := NewTypeEnv()
	g := NewVarGen()
	v := g.Fresh()
	fn := &TFunc{From: v, To: v}

	scheme := Generalize(fn, env, nil)
	if len(scheme.Quantifiers) != 1 {
		t.Fatalf("expected exactly one quantifier, got %v", scheme.Quantifiers)
	}

	inst := Instantiate(scheme, g)
	ft, ok := inst.(*TFunc)
	if !ok {
		t.Fatalf("expected TFunc, got %T", inst)
	}
	if !ft.From.Equals(ft.To) {
		t.Fatalf("instantiation broke shape: from=%s to=%s", ft.From, ft.To)
	}
	if ft.From.Equals(v) {
		t.Fatalf("instantiate should produce a fresh variable, not reuse the quantified one")
	}
}

func TestGeneralizeExcludesEnvFreeVars(t *testing.T) {
	g := NewVarGen()
	v := g.Fresh()
	env := NewTypeEnv().Extend("x", &TypeScheme{Type: v})

	scheme := Generalize(v, env, nil)
	if len(scheme.Quantifiers) != 0 {
		t.Fatalf("expected no quantifiers (v is free in env), got %v", scheme.Quantifiers)
	}
}

func TestUnknownTypeProducesHoleWithProvenanceLabel(t *testing.T) {
	g := NewVarGen()
	h := UnknownType(map[string]interface{}{"reason": "free_variable", "name": "x"}, g)
	if !IsHole(h) {
		t.Fatalf("expected a Hole type, got %s", h)
	}
	tc := h.(*TCon)
	row, ok := tc.Args[1].(*EffectRow)
	if !ok {
		t.Fatalf("expected Hole's second arg to be an EffectRow, got %T", tc.Args[1])
	}
	if len(row.Labels) != 1 {
		t.Fatalf("expected exactly one hole: label, got %d", len(row.Labels))
	}
	for k, v := range row.Labels {
		if v != nil {
			t.Fatalf("hole: label must carry a nil payload, got %v", v)
		}
		if len(k) < 6 || k[:5] != "hole:" {
			t.Fatalf("expected label prefixed hole:, got %s", k)
		}
	}
}

func TestOccursCheck(t *testing.T) {
	v := &TVar{ID: 1}
	self := &TCon{Name: "List", Args: []Type{v}}
	if !OccursInType(1, self) {
		t.Fatalf("expected occurs check to find t1 in %s", self)
	}
	if OccursInType(2, self) {
		t.Fatalf("t2 should not occur in %s", self)
	}
}
