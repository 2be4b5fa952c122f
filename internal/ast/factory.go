package ast

// ============================================================================
// AST 节点工厂函数
// ============================================================================
//
// 所有节点都经由工厂函数创建，工厂函数负责从 Arena 分配并登记编号。
//
// 使用方式：
//   arena := NewArena()
//   name := arena.NewName(pos, "x", Load)
//
// ============================================================================

// ----------------------------------------------------------
// mod
// ----------------------------------------------------------

func (a *Arena) NewModule(pos Position, body []Stmt) *Module {
	n := &Module{Body: body}
	a.register(n, pos)
	return n
}

func (a *Arena) NewExpression(pos Position, body Expr) *Expression {
	n := &Expression{Body: body}
	a.register(n, pos)
	return n
}

// ----------------------------------------------------------
// stmt
// ----------------------------------------------------------

func (a *Arena) NewFunctionDef(pos Position, name string, args *Arguments, body []Stmt) *FunctionDef {
	n := &FunctionDef{Name: name, Args: args, Body: body}
	a.register(n, pos)
	return n
}

func (a *Arena) NewClassDef(pos Position, name string, bases []Expr, body []Stmt) *ClassDef {
	n := &ClassDef{Name: name, Bases: bases, Body: body}
	a.register(n, pos)
	return n
}

func (a *Arena) NewReturn(pos Position, value Expr) *Return {
	n := &Return{Value: value}
	a.register(n, pos)
	return n
}

func (a *Arena) NewDelete(pos Position, targets []Expr) *Delete {
	n := &Delete{Targets: targets}
	a.register(n, pos)
	return n
}

func (a *Arena) NewAssign(pos Position, targets []Expr, value Expr) *Assign {
	n := a.assigns.alloc()
	n.Targets = targets
	n.Value = value
	a.register(n, pos)
	return n
}

func (a *Arena) NewAugAssign(pos Position, target Expr, op Operator, value Expr) *AugAssign {
	n := &AugAssign{Target: target, Op: op, Value: value}
	a.register(n, pos)
	return n
}

func (a *Arena) NewFor(pos Position, target, iter Expr, body []Stmt) *For {
	n := &For{Target: target, Iter: iter, Body: body}
	a.register(n, pos)
	return n
}

func (a *Arena) NewWhile(pos Position, test Expr, body []Stmt) *While {
	n := &While{Test: test, Body: body}
	a.register(n, pos)
	return n
}

func (a *Arena) NewIf(pos Position, test Expr, body []Stmt) *If {
	n := &If{Test: test, Body: body}
	a.register(n, pos)
	return n
}

func (a *Arena) NewRaise(pos Position, exc, cause Expr) *Raise {
	n := &Raise{Exc: exc, Cause: cause}
	a.register(n, pos)
	return n
}

func (a *Arena) NewTry(pos Position, body []Stmt) *Try {
	n := &Try{Body: body}
	a.register(n, pos)
	return n
}

func (a *Arena) NewAssert(pos Position, test, msg Expr) *Assert {
	n := &Assert{Test: test, Msg: msg}
	a.register(n, pos)
	return n
}

func (a *Arena) NewImport(pos Position, names []*Alias) *Import {
	n := &Import{Names: names}
	a.register(n, pos)
	return n
}

func (a *Arena) NewImportFrom(pos Position, module string, names []*Alias, level int) *ImportFrom {
	n := &ImportFrom{Module: module, Names: names, Level: level}
	a.register(n, pos)
	return n
}

func (a *Arena) NewExprStmt(pos Position, value Expr) *ExprStmt {
	n := a.exprStmts.alloc()
	n.Value = value
	a.register(n, pos)
	return n
}

func (a *Arena) NewPass(pos Position) *Pass {
	n := &Pass{}
	a.register(n, pos)
	return n
}

func (a *Arena) NewBreak(pos Position) *Break {
	n := &Break{}
	a.register(n, pos)
	return n
}

func (a *Arena) NewContinue(pos Position) *Continue {
	n := &Continue{}
	a.register(n, pos)
	return n
}

// ----------------------------------------------------------
// expr
// ----------------------------------------------------------

func (a *Arena) NewBoolOp(pos Position, op BoolOperator, values []Expr) *BoolOp {
	n := &BoolOp{Op: op, Values: values}
	a.register(n, pos)
	return n
}

func (a *Arena) NewBinOp(pos Position, left Expr, op Operator, right Expr) *BinOp {
	n := a.binops.alloc()
	n.Left = left
	n.Op = op
	n.Right = right
	a.register(n, pos)
	return n
}

func (a *Arena) NewUnaryOp(pos Position, op UnaryOperator, operand Expr) *UnaryOp {
	n := &UnaryOp{Op: op, Operand: operand}
	a.register(n, pos)
	return n
}

func (a *Arena) NewLambda(pos Position, args *Arguments, body Expr) *Lambda {
	n := &Lambda{Args: args, Body: body}
	a.register(n, pos)
	return n
}

func (a *Arena) NewDict(pos Position, keys, values []Expr) *Dict {
	n := &Dict{Keys: keys, Values: values}
	a.register(n, pos)
	return n
}

func (a *Arena) NewCompare(pos Position, left Expr, op CmpOp, right Expr) *Compare {
	n := &Compare{Left: left, Ops: []CmpOp{op}, Comparators: []Expr{right}}
	a.register(n, pos)
	return n
}

func (a *Arena) NewCall(pos Position, fn Expr, args []Expr, keywords []*Keyword) *Call {
	n := a.calls.alloc()
	n.Func = fn
	n.Args = args
	n.Keywords = keywords
	a.register(n, pos)
	return n
}

// NewConstant 创建字面量，value 只能是 nil、bool、int64、float64 或 string
func (a *Arena) NewConstant(pos Position, value interface{}) *Constant {
	n := a.constants.alloc()
	n.Value = value
	a.register(n, pos)
	return n
}

func (a *Arena) NewAttribute(pos Position, value Expr, attr string, ctx ExprContext) *Attribute {
	n := a.attrs.alloc()
	n.Value = value
	n.Attr = attr
	n.Ctx = ctx
	a.register(n, pos)
	return n
}

func (a *Arena) NewSubscript(pos Position, value, slice Expr, ctx ExprContext) *Subscript {
	n := &Subscript{Value: value, Slice: slice, Ctx: ctx}
	a.register(n, pos)
	return n
}

func (a *Arena) NewName(pos Position, id string, ctx ExprContext) *Name {
	n := a.names.alloc()
	n.ID = id
	n.Ctx = ctx
	a.register(n, pos)
	return n
}

func (a *Arena) NewList(pos Position, elts []Expr, ctx ExprContext) *List {
	n := &List{Elts: elts, Ctx: ctx}
	a.register(n, pos)
	return n
}

func (a *Arena) NewTuple(pos Position, elts []Expr, ctx ExprContext) *Tuple {
	n := &Tuple{Elts: elts, Ctx: ctx}
	a.register(n, pos)
	return n
}

func (a *Arena) NewSlice(pos Position, lower, upper, step Expr) *Slice {
	n := &Slice{Lower: lower, Upper: upper, Step: step}
	a.register(n, pos)
	return n
}

func (a *Arena) NewIndex(pos Position, value Expr) *Index {
	n := &Index{Value: value}
	a.register(n, pos)
	return n
}

func (a *Arena) NewFormattedValue(pos Position, value Expr, conversion rune, spec Expr) *FormattedValue {
	n := &FormattedValue{Value: value, Conversion: conversion, FormatSpec: spec}
	a.register(n, pos)
	return n
}

// ----------------------------------------------------------
// 辅助记录
// ----------------------------------------------------------

func (a *Arena) NewArg(pos Position, name string) *Arg {
	n := &Arg{Name: name}
	a.register(n, pos)
	return n
}

func (a *Arena) NewAlias(pos Position, name, asName string) *Alias {
	n := &Alias{Name: name, AsName: asName}
	a.register(n, pos)
	return n
}

func (a *Arena) NewExceptHandler(pos Position, typ Expr, name string, body []Stmt) *ExceptHandler {
	n := &ExceptHandler{Type: typ, Name: name, Body: body}
	a.register(n, pos)
	return n
}

func (a *Arena) NewKeyword(pos Position, arg string, value Expr) *Keyword {
	n := &Keyword{Arg: arg, Value: value}
	a.register(n, pos)
	return n
}
