package carrier

import "github.com/sunholo/wyrm/internal/types"

// RowUnion implements the deterministic row-union rule of spec.md §4.2:
//
//  1. ensureRow: coerce a non-row operand to a row with an empty label set
//     and the operand itself as tail.
//  2. flatten: inline a row's tail when that tail is itself a row.
//  3. union the label maps, preferring the left (a) side's payload whenever
//     both sides carry a non-null payload for the same label.
//  4. merge tails: if exactly one tail is a type variable and the other is
//     a concrete row, keep the concrete one; otherwise keep the left tail.
//
// The rule is intentionally order-sensitive (commutative only up to which
// side's payload and tail "win"), matching the teacher's dictionary-merge
// passes which also favor a stable left-to-right resolution over a
// symmetric one, so that repeated runs of the elaboration pass over the
// same program are bit-for-bit reproducible.
func RowUnion(a, b types.Type) *types.EffectRow {
	ra := flattenRow(ensureRow(a))
	rb := flattenRow(ensureRow(b))

	labels := make(map[string]types.Type, len(ra.Labels)+len(rb.Labels))
	for k, v := range rb.Labels {
		labels[k] = v
	}
	for k, v := range ra.Labels {
		if v != nil {
			labels[k] = v
			continue
		}
		if _, exists := labels[k]; !exists {
			labels[k] = v
		}
	}

	return &types.EffectRow{Labels: labels, Tail: mergeTails(ra.Tail, rb.Tail)}
}

func ensureRow(t types.Type) *types.EffectRow {
	if r, ok := t.(*types.EffectRow); ok {
		return r
	}
	return &types.EffectRow{Labels: map[string]types.Type{}, Tail: t}
}

func flattenRow(r *types.EffectRow) *types.EffectRow {
	inner, ok := r.Tail.(*types.EffectRow)
	if !ok {
		return r
	}
	inner = flattenRow(inner)
	merged := make(map[string]types.Type, len(inner.Labels)+len(r.Labels))
	for k, v := range inner.Labels {
		merged[k] = v
	}
	for k, v := range r.Labels {
		merged[k] = v
	}
	return &types.EffectRow{Labels: merged, Tail: inner.Tail}
}

func mergeTails(a, b types.Type) types.Type {
	_, aIsVar := a.(*types.TVar)
	_, bIsVar := b.(*types.TVar)
	switch {
	case a == nil && b == nil:
		return nil
	case aIsVar && !bIsVar && b != nil:
		return b
	case bIsVar && !aIsVar && a != nil:
		return a
	default:
		return a
	}
}
