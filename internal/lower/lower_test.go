package lower

import (
	"testing"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/diag"
	"github.com/sunholo/wyrm/internal/types"
	"github.com/sunholo/wyrm/internal/wsurface"
)

func TestLowerBinaryOpToPrim(t *testing.T) {
	left := &wsurface.Literal{Kind: wsurface.IntLit, Value: 1, Pos: wsurface.Pos{Id: 1}}
	right := &wsurface.Literal{Kind: wsurface.IntLit, Value: 2, Pos: wsurface.Pos{Id: 2}}
	add := &wsurface.BinaryOp{Left: left, Op: "+", Right: right, Pos: wsurface.Pos{Id: 3}}

	resolved := map[diag.NodeId]types.Type{1: types.Int, 2: types.Int, 3: types.Int}
	lowerer := New(resolved, nil, nil)

	out, err := lowerer.lowerExpr(add)
	if err != nil {
		t.Fatalf("lowerExpr: %v", err)
	}
	prim, ok := out.(*core.Prim)
	if !ok {
		t.Fatalf("expected *core.Prim, got %T", out)
	}
	if prim.Op != "int_add" {
		t.Fatalf("expected int_add, got %s", prim.Op)
	}
}

func TestLowerUserOperatorFallsBackToCall(t *testing.T) {
	left := &wsurface.Literal{Kind: wsurface.IntLit, Value: 1, Pos: wsurface.Pos{Id: 1}}
	right := &wsurface.Literal{Kind: wsurface.IntLit, Value: 2, Pos: wsurface.Pos{Id: 2}}
	op := &wsurface.BinaryOp{Left: left, Op: "<=>", Right: right, Pos: wsurface.Pos{Id: 3}}

	resolved := map[diag.NodeId]types.Type{1: types.Int, 2: types.Int}
	lowerer := New(resolved, nil, nil)

	out, err := lowerer.lowerExpr(op)
	if err != nil {
		t.Fatalf("lowerExpr: %v", err)
	}
	call, ok := out.(*core.Call)
	if !ok {
		t.Fatalf("expected *core.Call, got %T", out)
	}
	callee, ok := call.Callee.(*core.Var)
	if !ok || callee.Name != "__op_<=>" {
		t.Fatalf("expected call of __op_<=>, got %#v", call.Callee)
	}
}

func TestLowerBlockRightToLeft(t *testing.T) {
	stmt1 := &wsurface.Let{Name: "x", Value: &wsurface.Literal{Kind: wsurface.IntLit, Value: 1, Pos: wsurface.Pos{Id: 1}}, Pos: wsurface.Pos{Id: 2}}
	result := &wsurface.Identifier{Name: "x", Pos: wsurface.Pos{Id: 3}}
	blk := &wsurface.Block{Exprs: []wsurface.Expr{stmt1, result}, Pos: wsurface.Pos{Id: 4}}

	resolved := map[diag.NodeId]types.Type{1: types.Int, 2: types.Int, 3: types.Int, 4: types.Int}
	lowerer := New(resolved, nil, nil)

	out, err := lowerer.lowerExpr(blk)
	if err != nil {
		t.Fatalf("lowerExpr: %v", err)
	}
	let, ok := out.(*core.Let)
	if !ok {
		t.Fatalf("expected outer *core.Let, got %T", out)
	}
	if let.Binding.Name != "x" {
		t.Fatalf("expected binding named x, got %s", let.Binding.Name)
	}
	v, ok := let.Body.(*core.Var)
	if !ok || v.Name != "x" {
		t.Fatalf("expected body to reference x, got %#v", let.Body)
	}
}

func TestLowerMarkedFreeVariableLowersToVar(t *testing.T) {
	mark := &wsurface.Mark{
		Reason:  diag.ReasonFreeVariable,
		Subject: &wsurface.Identifier{Name: "nope", Pos: wsurface.Pos{Id: 1}},
		Pos:     wsurface.Pos{Id: 2},
	}
	resolved := map[diag.NodeId]types.Type{2: types.Int}
	lowerer := New(resolved, nil, nil)

	out, err := lowerer.lowerExpr(mark)
	if err != nil {
		t.Fatalf("lowerExpr: %v", err)
	}
	v, ok := out.(*core.Var)
	if !ok || v.Name != "nope" {
		t.Fatalf("expected Var(nope), got %#v", out)
	}
}

func TestLowerRecordExplicitThenSpread(t *testing.T) {
	spreadType := &types.TRecord{Fields: []types.RecordField{
		{Name: "a", Type: types.Int},
		{Name: "b", Type: types.Int},
	}}
	spread := &wsurface.Identifier{Name: "base", Pos: wsurface.Pos{Id: 1}}
	rec := &wsurface.Record{
		Fields: []*wsurface.Field{
			{Name: "a", Value: &wsurface.Literal{Kind: wsurface.IntLit, Value: 9, Pos: wsurface.Pos{Id: 2}}, Pos: wsurface.Pos{Id: 3}},
		},
		Spread: spread,
		Pos:    wsurface.Pos{Id: 4},
	}

	resolved := map[diag.NodeId]types.Type{1: spreadType, 2: types.Int, 4: &types.TCon{Name: "Point"}}
	lowerer := New(resolved, nil, nil)

	out, err := lowerer.lowerExpr(rec)
	if err != nil {
		t.Fatalf("lowerExpr: %v", err)
	}
	r, ok := out.(*core.Record)
	if !ok {
		t.Fatalf("expected *core.Record, got %T", out)
	}
	if len(r.Fields) != 2 {
		t.Fatalf("expected 2 fields (explicit a + spread b), got %d: %#v", len(r.Fields), r.Fields)
	}
	if r.Fields[0].Name != "a" {
		t.Fatalf("expected first field to be explicit a, got %s", r.Fields[0].Name)
	}
	if r.Fields[1].Name != "b" {
		t.Fatalf("expected second field to be spread b, got %s", r.Fields[1].Name)
	}
	if _, ok := r.Fields[1].Value.(*core.RecordGet); !ok {
		t.Fatalf("expected spread field to lower to a RecordGet projection, got %T", r.Fields[1].Value)
	}
}

func TestLowerFuncDeclWithParamsBecomesLambda(t *testing.T) {
	fn := &wsurface.FuncDecl{
		Name:   "id",
		Params: []*wsurface.Param{{Name: "x", Pos: wsurface.Pos{Id: 1}}},
		Body:   &wsurface.Identifier{Name: "x", Pos: wsurface.Pos{Id: 2}},
		Pos:    wsurface.Pos{Id: 3},
	}
	resolved := map[diag.NodeId]types.Type{1: types.Int, 2: types.Int, 3: &types.TFunc{From: types.Int, To: types.Int}}
	lowerer := New(resolved, nil, nil)

	binding, err := lowerer.lowerFuncDecl(fn)
	if err != nil {
		t.Fatalf("lowerFuncDecl: %v", err)
	}
	if binding.Name != "id" {
		t.Fatalf("expected binding name id, got %s", binding.Name)
	}
	if _, ok := binding.Value.(*core.Lambda); !ok {
		t.Fatalf("expected *core.Lambda, got %T", binding.Value)
	}
}
