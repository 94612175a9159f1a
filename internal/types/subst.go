package types

// Substitution is an ordered var-id -> Type mapping. Order is preserved
// insertion-first so ComposeSubstitution's "preserve order from b then a"
// contract (spec.md §4.1) is observable in tests, not just logically true.
type Substitution struct {
	order []int
	m     map[int]Type
}

// NewSubstitution creates an empty substitution.
func NewSubstitution() *Substitution {
	return &Substitution{m: make(map[int]Type)}
}

// Set records id -> t, skipping identity mappings (v -> v) per spec.md §3.1's
// invariant that identity mappings are never stored.
func (s *Substitution) Set(id int, t Type) {
	if v, ok := t.(*TVar); ok && v.ID == id {
		return
	}
	if _, exists := s.m[id]; !exists {
		s.order = append(s.order, id)
	}
	s.m[id] = t
}

// Get returns the mapping for id, if any.
func (s *Substitution) Get(id int) (Type, bool) {
	t, ok := s.m[id]
	return t, ok
}

// Len reports the number of mappings.
func (s *Substitution) Len() int { return len(s.order) }

// Range iterates mappings in insertion order.
func (s *Substitution) Range(f func(id int, t Type)) {
	for _, id := range s.order {
		f(id, s.m[id])
	}
}

// ApplySubstitution replaces variables in t by their images under sub.
// Variable-to-variable chains (v -> v' -> v'' -> ...) are chased iteratively
// with cycle detection: if a cycle is found, the chase stops and returns the
// last type variable reached rather than looping forever (spec.md §4.1).
func ApplySubstitution(t Type, sub *Substitution) Type {
	if sub == nil || sub.Len() == 0 {
		return t
	}
	switch v := t.(type) {
	case *TVar:
		seen := map[int]bool{v.ID: true}
		cur := Type(v)
		for {
			cv, ok := cur.(*TVar)
			if !ok {
				break
			}
			next, ok := sub.Get(cv.ID)
			if !ok {
				break
			}
			if nv, ok := next.(*TVar); ok {
				if seen[nv.ID] {
					// Cycle: stop on the last variable reached.
					return cur
				}
				seen[nv.ID] = true
				cur = next
				continue
			}
			cur = next
			break
		}
		if cv, ok := cur.(*TVar); ok && cv.ID == v.ID {
			return v
		}
		// The final non-variable type may itself still contain variables
		// bound by sub; substitute into it too.
		if _, ok := cur.(*TVar); !ok {
			return ApplySubstitution(cur, sub)
		}
		return cur
	case *TFunc:
		return &TFunc{From: ApplySubstitution(v.From, sub), To: ApplySubstitution(v.To, sub)}
	case *TCon:
		args := make([]Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = ApplySubstitution(a, sub)
		}
		return &TCon{Name: v.Name, Args: args}
	case *TTuple:
		elems := make([]Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = ApplySubstitution(e, sub)
		}
		return &TTuple{Elems: elems}
	case *TArray:
		return &TArray{Elem: ApplySubstitution(v.Elem, sub)}
	case *TRecord:
		fields := make([]RecordField, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = RecordField{Name: f.Name, Type: ApplySubstitution(f.Type, sub)}
		}
		var tail Type
		if v.Tail != nil {
			tail = ApplySubstitution(v.Tail, sub)
		}
		return &TRecord{Fields: fields, Tail: tail}
	case *EffectRow:
		return applySubstRow(v, sub)
	default:
		return t
	}
}

// applySubstRow substitutes into a row, flattening a tail that itself
// resolves to a row (spec.md §3.1's "rows are flattened" invariant).
func applySubstRow(r *EffectRow, sub *Substitution) Type {
	labels := make(map[string]Type, len(r.Labels))
	for k, v := range r.Labels {
		if v == nil {
			labels[k] = nil
		} else {
			labels[k] = ApplySubstitution(v, sub)
		}
	}
	var tail Type
	if r.Tail != nil {
		tail = ApplySubstitution(r.Tail, sub)
	}
	if tr, ok := tail.(*EffectRow); ok {
		for k, v := range tr.Labels {
			if _, exists := labels[k]; !exists {
				labels[k] = v
			}
		}
		tail = tr.Tail
	}
	return &EffectRow{Labels: labels, Tail: tail}
}

// ComposeSubstitution produces lambda x. a(b(x)): apply b first, then a to
// the result, then merge in a's own mappings for ids not touched by b.
// Order is preserved from b, then a, and identity mappings are skipped in
// either input (spec.md §4.1).
func ComposeSubstitution(a, b *Substitution) *Substitution {
	out := NewSubstitution()
	b.Range(func(id int, t Type) {
		out.Set(id, ApplySubstitution(t, a))
	})
	a.Range(func(id int, t Type) {
		if _, exists := out.Get(id); !exists {
			out.Set(id, t)
		}
	})
	return out
}

// VarSet is a small ordered set of type-variable ids, used for free-variable
// computations where deterministic iteration matters (tests, generalize).
type VarSet struct {
	order []int
	seen  map[int]bool
}

// NewVarSet creates an empty set.
func NewVarSet() *VarSet { return &VarSet{seen: make(map[int]bool)} }

// Add inserts id if not already present.
func (s *VarSet) Add(id int) {
	if !s.seen[id] {
		s.seen[id] = true
		s.order = append(s.order, id)
	}
}

// Contains reports membership.
func (s *VarSet) Contains(id int) bool { return s.seen[id] }

// Remove deletes id, if present, without disturbing the order of the rest.
func (s *VarSet) Remove(id int) {
	if !s.seen[id] {
		return
	}
	delete(s.seen, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Slice returns the set's members in insertion order.
func (s *VarSet) Slice() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// Union adds every member of other into s.
func (s *VarSet) Union(other *VarSet) {
	for _, id := range other.order {
		s.Add(id)
	}
}

// FreeTypeVars computes the free type variables of t by structural recursion.
func FreeTypeVars(t Type) *VarSet {
	out := NewVarSet()
	collectFreeVars(t, out)
	return out
}

func collectFreeVars(t Type, out *VarSet) {
	switch v := t.(type) {
	case *TVar:
		out.Add(v.ID)
	case *TFunc:
		collectFreeVars(v.From, out)
		collectFreeVars(v.To, out)
	case *TCon:
		for _, a := range v.Args {
			collectFreeVars(a, out)
		}
	case *TTuple:
		for _, e := range v.Elems {
			collectFreeVars(e, out)
		}
	case *TArray:
		collectFreeVars(v.Elem, out)
	case *TRecord:
		for _, f := range v.Fields {
			collectFreeVars(f.Type, out)
		}
		if v.Tail != nil {
			collectFreeVars(v.Tail, out)
		}
	case *EffectRow:
		for _, p := range v.Labels {
			if p != nil {
				collectFreeVars(p, out)
			}
		}
		if v.Tail != nil {
			collectFreeVars(v.Tail, out)
		}
	}
}

// FreeTypeVarsScheme computes a scheme's free variables: those free in its
// body that are not among its own quantifiers.
func FreeTypeVarsScheme(s *TypeScheme) *VarSet {
	free := FreeTypeVars(s.Type)
	for _, q := range s.Quantifiers {
		free.Remove(q)
	}
	return free
}

// FreeTypeVarsEnv computes the union of free variables over every scheme in
// an environment.
func FreeTypeVarsEnv(env TypeEnv) *VarSet {
	out := NewVarSet()
	for _, scheme := range env {
		out.Union(FreeTypeVarsScheme(scheme))
	}
	return out
}

// OccursInType reports whether id appears free in t (the unifier's occurs
// check).
func OccursInType(id int, t Type) bool {
	return FreeTypeVars(t).Contains(id)
}
