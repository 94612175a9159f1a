package types

import (
	"encoding/json"
	"sort"
)

// VarGen is a per-inference-run fresh type-variable counter. Spec.md §5
// requires the counter to be reset per run and never shared across runs;
// modeling it as a constructed value (rather than a package global, as the
// teacher's original typeVarCounter was) makes that explicit and safe for
// concurrent compilations in the same process.
type VarGen struct{ next int }

// NewVarGen creates a fresh counter starting at 1 (0 is reserved so the zero
// value of TVar can never collide with a real fresh variable).
func NewVarGen() *VarGen { return &VarGen{next: 1} }

// Fresh allocates a new type variable.
func (g *VarGen) Fresh() *TVar {
	id := g.next
	g.next++
	return &TVar{ID: id}
}

// Bump ensures the generator's next id is past id, so freshly instantiated
// variables can never collide with an explicitly quantified one (used by
// Instantiate, per spec.md §4.1).
func (g *VarGen) Bump(id int) {
	if id >= g.next {
		g.next = id + 1
	}
}

// Generalize produces a scheme whose quantifiers are
// ftv(type) \ ftv(env) ∪ extras, in that order (env-bound variables excluded
// first, then any ids in extras not already free in type are still
// appended, matching the teacher's generalize(type, env, extras) contract).
func Generalize(t Type, env TypeEnv, extras []int) *TypeScheme {
	free := FreeTypeVars(t)
	envFree := FreeTypeVarsEnv(env)
	quantifiers := NewVarSet()
	for _, id := range free.Slice() {
		if !envFree.Contains(id) {
			quantifiers.Add(id)
		}
	}
	for _, id := range extras {
		quantifiers.Add(id)
	}
	return &TypeScheme{Quantifiers: quantifiers.Slice(), Type: t}
}

// Instantiate refreshes every quantifier of a scheme with a fresh type
// variable. The generator's counter is bumped past every quantifier id
// first so the fresh variables can never collide with a still-quantified
// one elsewhere in the program (spec.md §4.1).
func Instantiate(s *TypeScheme, g *VarGen) Type {
	if len(s.Quantifiers) == 0 {
		return s.Type
	}
	for _, q := range s.Quantifiers {
		g.Bump(q)
	}
	sub := NewSubstitution()
	for _, q := range s.Quantifiers {
		sub.Set(q, g.Fresh())
	}
	return ApplySubstitution(s.Type, sub)
}

// HoleConName is the constructor name used to represent "unknown" types.
// A Hole is always TCon{Name: HoleConName, Args: [value, row]}; this is the
// one shape internal/carrier's built-in "hole" domain recognizes.
const HoleConName = "Hole"

// UnknownType is the *only* way to construct an unknown type: it returns
// Hole<v, row> where v is fresh and row carries exactly one label
// "hole:<json-of-provenance>" with a nil payload (spec.md §4.1).
func UnknownType(provenance interface{}, g *VarGen) Type {
	v := g.Fresh()
	label := "hole:" + provenanceJSON(provenance)
	row := &EffectRow{Labels: map[string]Type{label: nil}}
	return &TCon{Name: HoleConName, Args: []Type{v, row}}
}

// AddHoleEffect appends an additional reason to an existing Hole's row as
// "hole_effect:N" with a non-null payload (spec.md §4.2's description of the
// Hole carrier), returning a new Hole value.
func AddHoleEffect(hole Type, n int, payload Type) Type {
	tc, ok := hole.(*TCon)
	if !ok || tc.Name != HoleConName || len(tc.Args) != 2 {
		return hole
	}
	row, ok := tc.Args[1].(*EffectRow)
	if !ok {
		return hole
	}
	labels := make(map[string]Type, len(row.Labels)+1)
	for k, v := range row.Labels {
		labels[k] = v
	}
	labels[holeEffectLabel(n)] = payload
	return &TCon{Name: HoleConName, Args: []Type{tc.Args[0], &EffectRow{Labels: labels, Tail: row.Tail}}}
}

func holeEffectLabel(n int) string {
	return "hole_effect:" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

// provenanceJSON deterministically encodes a provenance value as JSON. Maps
// are marshaled with sorted keys by encoding/json already; we additionally
// sort any string-slice provenance fields for full determinism.
func provenanceJSON(provenance interface{}) string {
	data, err := json.Marshal(normalizeProvenance(provenance))
	if err != nil {
		return `"<unencodable-provenance>"`
	}
	return string(data)
}

func normalizeProvenance(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]interface{}, len(t))
		for _, k := range keys {
			out[k] = normalizeProvenance(t[k])
		}
		return out
	default:
		return v
	}
}

// IsHole reports whether t is a Hole<_, _> constructor application.
func IsHole(t Type) bool {
	tc, ok := t.(*TCon)
	return ok && tc.Name == HoleConName && len(tc.Args) == 2
}
