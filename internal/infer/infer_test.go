package infer

import (
	"testing"

	"github.com/sunholo/wyrm/internal/diag"
	"github.com/sunholo/wyrm/internal/types"
	"github.com/sunholo/wyrm/internal/wsurface"
)

func TestInferLiteralAndBinaryOp(t *testing.T) {
	expr := &wsurface.BinaryOp{
		Left:  &wsurface.Literal{Kind: wsurface.IntLit, Value: 1},
		Op:    "+",
		Right: &wsurface.Literal{Kind: wsurface.IntLit, Value: 2},
	}
	prog := &wsurface.Program{File: &wsurface.File{Statements: []wsurface.Node{expr}}}

	result := New().Run(prog, types.NewTypeEnv())
	if len(result.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", result.Diagnostics)
	}
}

func TestInferFreeVariableMarksNode(t *testing.T) {
	expr := &wsurface.Identifier{Name: "nope"}
	prog := &wsurface.Program{File: &wsurface.File{Statements: []wsurface.Node{expr}}}

	result := New().Run(prog, types.NewTypeEnv())
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Reason != diag.ReasonFreeVariable {
		t.Fatalf("expected exactly one free_variable diagnostic, got %v", result.Diagnostics)
	}
	marked, ok := prog.File.Statements[0].(*wsurface.Mark)
	if !ok {
		t.Fatalf("expected the free variable node to be replaced by a Mark, got %T", prog.File.Statements[0])
	}
	if marked.Reason != diag.ReasonFreeVariable {
		t.Fatalf("expected mark reason free_variable, got %s", marked.Reason)
	}
}

func TestInferIfBranchMismatchMarksNode(t *testing.T) {
	expr := &wsurface.If{
		Condition: &wsurface.Literal{Kind: wsurface.BoolLit, Value: true},
		Then:      &wsurface.Literal{Kind: wsurface.IntLit, Value: 1},
		Else:      &wsurface.Literal{Kind: wsurface.StringLit, Value: "no"},
	}
	prog := &wsurface.Program{File: &wsurface.File{Statements: []wsurface.Node{expr}}}

	result := New().Run(prog, types.NewTypeEnv())
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Reason != diag.ReasonBranchMismatch {
		t.Fatalf("expected exactly one branch_mismatch diagnostic, got %v", result.Diagnostics)
	}
}

func TestInferLambdaAndApplication(t *testing.T) {
	// (\x. x + 1) 41
	lambda := &wsurface.Lambda{
		Params: []*wsurface.Param{{Name: "x"}},
		Body: &wsurface.BinaryOp{
			Left:  &wsurface.Identifier{Name: "x"},
			Op:    "+",
			Right: &wsurface.Literal{Kind: wsurface.IntLit, Value: 1},
		},
	}
	call := &wsurface.FuncCall{
		Func: lambda,
		Args: []wsurface.Expr{&wsurface.Literal{Kind: wsurface.IntLit, Value: 41}},
	}
	prog := &wsurface.Program{File: &wsurface.File{Statements: []wsurface.Node{call}}}

	result := New().Run(prog, types.NewTypeEnv())
	if len(result.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", result.Diagnostics)
	}
}
