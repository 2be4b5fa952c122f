package ast

import (
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
)

// 带同名字段的节点仍然实现节点接口
var (
	_ Expr = (*Name)(nil)
	_ Expr = (*Attribute)(nil)
	_ Stmt = (*FunctionDef)(nil)
	_ Stmt = (*ClassDef)(nil)
)

func TestArenaAssignsSequentialIDs(t *testing.T) {
	a := NewArena()
	pos := Position{Line: 1, Column: 1}

	x := a.NewName(pos, "x", Load)
	one := a.NewConstant(pos, int64(1))
	ifNode := a.NewIf(pos, x, []Stmt{a.NewPass(pos)})

	if x.NodeID() != 0 || one.NodeID() != 1 {
		t.Fatalf("unexpected ids: x=%d one=%d", x.NodeID(), one.NodeID())
	}
	if got := a.If(ifNode.NodeID()); got != ifNode {
		t.Errorf("If(%d) = %p, want %p", ifNode.NodeID(), got, ifNode)
	}
	if got := a.Try(ifNode.NodeID()); got != nil {
		t.Errorf("Try on an If id should return nil, got %v", got)
	}
	if got := a.Node(NodeID(99)); got != nil {
		t.Errorf("Node(99) should be nil, got %v", got)
	}
	if got := a.Node(NoNode); got != nil {
		t.Errorf("Node(NoNode) should be nil, got %v", got)
	}
}

func TestArenaSlabKeepsPointersStable(t *testing.T) {
	a := NewArena()
	pos := Position{Line: 1, Column: 1}

	var names []*Name
	for i := 0; i < slabSize*3; i++ {
		names = append(names, a.NewName(pos, "n", Load))
	}
	for i, n := range names {
		if a.Node(NodeID(i)) != n {
			t.Fatalf("node %d does not round-trip through the arena", i)
		}
		if n.NodeID() != NodeID(i) {
			t.Fatalf("node %d has id %d", i, n.NodeID())
		}
	}
}

func TestArenaStats(t *testing.T) {
	a := NewArena()
	pos := Position{Line: 1, Column: 1}

	value := a.NewConstant(pos, int64(2))
	target := a.NewName(pos, "x", Store)
	assign := a.NewAssign(pos, []Expr{target}, value)
	a.NewModule(pos, []Stmt{assign})
	a.NewArg(pos, "p")

	stats := a.Stats()
	if stats.Mods != 1 || stats.Stmts != 1 || stats.Exprs != 2 || stats.Support != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Total() != a.Len() {
		t.Errorf("Total() = %d, Len() = %d", stats.Total(), a.Len())
	}

	a.Reset()
	if a.Len() != 0 || a.Stats().Total() != 0 {
		t.Errorf("Reset left %d nodes", a.Len())
	}
	if id := a.NewPass(pos).NodeID(); id != 0 {
		t.Errorf("first id after Reset = %d, want 0", id)
	}
}

func TestKindNames(t *testing.T) {
	stmts := map[StmtKind]string{
		StmtFunctionDef: "FunctionDef",
		StmtClassDef:    "ClassDef",
		StmtImportFrom:  "ImportFrom",
		StmtExpr:        "Expr",
		StmtContinue:    "Continue",
	}
	for k, want := range stmts {
		if k.String() != want {
			t.Errorf("StmtKind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}

	exprs := map[ExprKind]string{
		ExprBoolOp:         "BoolOp",
		ExprConstant:       "Constant",
		ExprFormattedValue: "FormattedValue",
	}
	for k, want := range exprs {
		if k.String() != want {
			t.Errorf("ExprKind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}

	if ModExpression.String() != "Expression" {
		t.Errorf("ModExpression.String() = %q", ModExpression.String())
	}
	if Modulo.String() != "Mod" || Modulo.Symbol() != "%" {
		t.Errorf("Modulo = %s %s", Modulo, Modulo.Symbol())
	}
}

func TestSetContext(t *testing.T) {
	a := NewArena()
	pos := Position{Line: 1, Column: 1}

	x := a.NewName(pos, "x", Load)
	y := a.NewName(pos, "y", Load)
	tuple := a.NewTuple(pos, []Expr{x, a.NewList(pos, []Expr{y}, Load)}, Load)

	if !SetContext(tuple, Store) {
		t.Fatal("SetContext on a tuple of names should succeed")
	}
	if x.Ctx != Store || y.Ctx != Store || tuple.Ctx != Store {
		t.Errorf("context not propagated: x=%s y=%s tuple=%s", x.Ctx, y.Ctx, tuple.Ctx)
	}

	call := a.NewCall(pos, x, nil, nil)
	if SetContext(call, Store) {
		t.Error("SetContext on a call should fail")
	}
	bad := a.NewTuple(pos, []Expr{a.NewConstant(pos, int64(1))}, Load)
	if SetContext(bad, Del) {
		t.Error("SetContext on a tuple containing a constant should fail")
	}
}

func TestDump(t *testing.T) {
	a := NewArena()
	pos := Position{Line: 1, Column: 1}

	sum := a.NewBinOp(pos, a.NewName(pos, "a", Load), Add, a.NewName(pos, "b", Load))
	prod := a.NewBinOp(pos, sum, Mult, a.NewName(pos, "c", Load))

	if got, want := Dump(prod), "BinOp(BinOp(Name('a'), Add, Name('b')), Mult, Name('c'))"; got != want {
		t.Errorf("Dump = %s\nwant   %s", got, want)
	}

	inner := a.NewIf(pos, a.NewName(pos, "b", Load), []Stmt{a.NewPass(pos)})
	inner.OrElse = []Stmt{a.NewPass(pos)}
	outer := a.NewIf(pos, a.NewName(pos, "a", Load), []Stmt{a.NewPass(pos)})
	outer.OrElse = []Stmt{inner}

	want := "If(Name('a'), [Pass], [If(Name('b'), [Pass], [Pass])])"
	if got := Dump(outer); got != want {
		t.Errorf("Dump = %s\nwant   %s", got, want)
	}

	tests := []struct {
		node Node
		want string
	}{
		{a.NewName(pos, "x", Store), "Name('x', Store)"},
		{a.NewConstant(pos, nil), "Constant(None)"},
		{a.NewConstant(pos, true), "Constant(True)"},
		{a.NewConstant(pos, 2.0), "Constant(2.0)"},
		{a.NewConstant(pos, 0.5), "Constant(0.5)"},
		{a.NewConstant(pos, "it's"), `Constant('it\'s')`},
		{a.NewAlias(pos, "os", ""), "alias('os', None)"},
		{a.NewFunctionDef(pos, "f", &Arguments{Args: []*Arg{a.NewArg(pos, "x")}}, []Stmt{a.NewPass(pos)}),
			"FunctionDef('f', arguments([arg('x')], [], None, None), [Pass])"},
	}
	for i, tt := range tests {
		if got := Dump(tt.node); got != tt.want {
			t.Errorf("tests[%d] Dump = %s, want %s", i, got, tt.want)
		}
	}
}

func TestToJSON(t *testing.T) {
	a := NewArena()
	pos := Position{Line: 3, Column: 5}

	cmp := a.NewCompare(pos, a.NewName(pos, "x", Load), Lt, a.NewConstant(pos, int64(10)))
	data, err := ToJSON(a.NewExprStmt(pos, cmp), false)
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, data)
	}
	if out["_type"] != "Expr" {
		t.Errorf("_type = %v, want Expr", out["_type"])
	}
	if out["line"] != float64(3) || out["column"] != float64(5) {
		t.Errorf("position = %v:%v, want 3:5", out["line"], out["column"])
	}
	value, ok := out["value"].(map[string]interface{})
	if !ok || value["_type"] != "Compare" {
		t.Fatalf("value = %v, want a Compare object", out["value"])
	}
	if ops, _ := value["ops"].([]interface{}); len(ops) != 1 || ops[0] != "Lt" {
		t.Errorf("ops = %v, want [Lt]", value["ops"])
	}

	pretty, err := ToJSON(cmp, true)
	if err != nil {
		t.Fatalf("ToJSON(indent) failed: %v", err)
	}
	if !strings.Contains(string(pretty), "\n  ") {
		t.Errorf("indented output has no indentation:\n%s", pretty)
	}
}
