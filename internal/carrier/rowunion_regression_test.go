package carrier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/wyrm/internal/types"
)

// TestRowUnion_OpenClosedMatrix is a regression test covering every
// permutation of open (variable tail) vs. closed (nil tail) effect rows,
// grounded on the teacher's TestRowUnification_OpenClosedMatrix — which
// caught a real bug where unifying (closed, open) and (open, closed) rows
// swapped which side's labels survived. RowUnion has no unification
// direction to swap, but the matrix still pins the tail-merge rule of
// spec.md §4.2 bullet 4 against regression.
func TestRowUnion_OpenClosedMatrix(t *testing.T) {
	v1 := &types.TVar{ID: 1}
	v2 := &types.TVar{ID: 2}
	closedTail := &types.TCon{Name: "Closed"}

	tests := []struct {
		name       string
		a, b       *types.EffectRow
		wantLabels []string
		wantTail   types.Type
	}{
		{
			name:       "closed{IO} union closed{IO}",
			a:          &types.EffectRow{Labels: map[string]types.Type{"IO": nil}},
			b:          &types.EffectRow{Labels: map[string]types.Type{"IO": nil}},
			wantLabels: []string{"IO"},
			wantTail:   nil,
		},
		{
			name:       "open(v1){IO} union closed{IO,FS}",
			a:          &types.EffectRow{Labels: map[string]types.Type{"IO": nil}, Tail: v1},
			b:          &types.EffectRow{Labels: map[string]types.Type{"IO": nil, "FS": nil}, Tail: closedTail},
			wantLabels: []string{"IO", "FS"},
			wantTail:   closedTail,
		},
		{
			name:       "closed{IO,FS} union open(v1){IO}",
			a:          &types.EffectRow{Labels: map[string]types.Type{"IO": nil, "FS": nil}, Tail: closedTail},
			b:          &types.EffectRow{Labels: map[string]types.Type{"IO": nil}, Tail: v1},
			wantLabels: []string{"IO", "FS"},
			wantTail:   closedTail,
		},
		{
			name:       "open(v1) union open(v2) keeps left tail",
			a:          &types.EffectRow{Labels: map[string]types.Type{}, Tail: v1},
			b:          &types.EffectRow{Labels: map[string]types.Type{}, Tail: v2},
			wantLabels: nil,
			wantTail:   v1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := RowUnion(tt.a, tt.b)
			require.NotNil(t, u)
			for _, label := range tt.wantLabels {
				assert.True(t, u.HasLabel(label), "expected label %s in union %s", label, u)
			}
			if tt.wantTail == nil {
				assert.Nil(t, u.Tail)
			} else {
				assert.True(t, u.Tail.Equals(tt.wantTail), "tail mismatch: got %v want %v", u.Tail, tt.wantTail)
			}
		})
	}
}
