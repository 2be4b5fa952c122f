// Package ast 定义语法树：mod/stmt/expr 三个节点族以及辅助记录
package ast

import "fmt"

// ============================================================================
// 基础接口
// ============================================================================
//
// 每个节点族是一个封闭的和类型：接口带有未导出的标记方法，只有本包的节点
// 类型能实现它；使用方通过 type switch 或 Kind() 分派。
// 所有节点从 Arena 分配，Arena 为每个节点分配 NodeID，解析器用 NodeID
// 记录 if/try 链的补丁点。
//
// ============================================================================

// Position 节点首个 token 的位置
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// NodeID 节点在 Arena 中的编号
type NodeID int32

// NoNode 无效的节点编号
const NoNode NodeID = -1

// Node 是所有 AST 节点的基接口
type Node interface {
	Pos() Position
	NodeID() NodeID
}

// Mod 顶层节点：Module | Expression
type Mod interface {
	Node
	Kind() ModKind
	modNode()
}

// Stmt 语句节点
type Stmt interface {
	Node
	Kind() StmtKind
	stmtNode()
}

// Expr 表达式节点
type Expr interface {
	Node
	Kind() ExprKind
	exprNode()
}

// base 所有节点共享的编号和位置
type base struct {
	id  NodeID
	pos Position
}

func (b *base) Pos() Position  { return b.pos }
func (b *base) NodeID() NodeID { return b.id }

func (b *base) init(id NodeID, pos Position) {
	b.id = id
	b.pos = pos
}

// ============================================================================
// 节点标签
// ============================================================================

// ModKind mod 族标签
type ModKind uint8

const (
	ModModule ModKind = iota
	ModExpression
)

// StmtKind stmt 族标签
type StmtKind uint8

const (
	StmtFunctionDef StmtKind = iota
	StmtClassDef
	StmtReturn
	StmtDelete
	StmtAssign
	StmtAugAssign
	StmtFor
	StmtWhile
	StmtIf
	StmtRaise
	StmtTry
	StmtAssert
	StmtImport
	StmtImportFrom
	StmtExpr
	StmtPass
	StmtBreak
	StmtContinue
)

// ExprKind expr 族标签
type ExprKind uint8

const (
	ExprBoolOp ExprKind = iota
	ExprBinOp
	ExprUnaryOp
	ExprLambda
	ExprDict
	ExprCompare
	ExprCall
	ExprConstant
	ExprAttribute
	ExprSubscript
	ExprName
	ExprList
	ExprTuple
	ExprSlice
	ExprIndex
	ExprFormattedValue
)

var modNames = [...]string{"Module", "Expression"}

var stmtNames = [...]string{
	"FunctionDef", "ClassDef", "Return", "Delete", "Assign", "AugAssign", "For", "While",
	"If", "Raise", "Try", "Assert", "Import", "ImportFrom", "Expr", "Pass", "Break", "Continue",
}

var exprNames = [...]string{
	"BoolOp", "BinOp", "UnaryOp", "Lambda", "Dict", "Compare", "Call", "Constant",
	"Attribute", "Subscript", "Name", "List", "Tuple", "Slice", "Index", "FormattedValue",
}

func (k ModKind) String() string  { return kindName(modNames[:], int(k)) }
func (k StmtKind) String() string { return kindName(stmtNames[:], int(k)) }
func (k ExprKind) String() string { return kindName(exprNames[:], int(k)) }

func kindName(names []string, i int) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("Kind(%d)", i)
}

// ============================================================================
// 上下文与运算符
// ============================================================================

// ExprContext 表达式的使用方式，决定编译器生成读、写还是删除
type ExprContext uint8

const (
	Load ExprContext = iota
	Store
	Del
)

func (c ExprContext) String() string {
	return [...]string{"Load", "Store", "Del"}[c]
}

// Operator 二元算术/位运算符
type Operator uint8

const (
	Add Operator = iota
	Sub
	Mult
	Div
	FloorDiv
	Modulo
	Pow
	LShift
	RShift
	BitOr
	BitXor
	BitAnd
)

var operatorNames = [...]string{"Add", "Sub", "Mult", "Div", "FloorDiv", "Mod", "Pow", "LShift", "RShift", "BitOr", "BitXor", "BitAnd"}
var operatorSymbols = [...]string{"+", "-", "*", "/", "//", "%", "**", "<<", ">>", "|", "^", "&"}

func (o Operator) String() string { return operatorNames[o] }

// Symbol 返回运算符的源码写法
func (o Operator) Symbol() string { return operatorSymbols[o] }

// BoolOperator and/or
type BoolOperator uint8

const (
	And BoolOperator = iota
	Or
)

func (o BoolOperator) String() string { return [...]string{"And", "Or"}[o] }

// UnaryOperator 一元运算符
type UnaryOperator uint8

const (
	Invert UnaryOperator = iota // ~
	Not                         // not
	UAdd                        // +
	USub                        // -
)

func (o UnaryOperator) String() string { return [...]string{"Invert", "Not", "UAdd", "USub"}[o] }

// CmpOp 比较运算符
type CmpOp uint8

const (
	Eq CmpOp = iota
	NotEq
	Lt
	LtE
	Gt
	GtE
	Is
	IsNot
	In
	NotIn
)

func (o CmpOp) String() string {
	return [...]string{"Eq", "NotEq", "Lt", "LtE", "Gt", "GtE", "Is", "IsNot", "In", "NotIn"}[o]
}

// ============================================================================
// mod 族
// ============================================================================

// Module 一个源文件
type Module struct {
	base
	Body []Stmt
}

// Expression 表达式模式的解析结果（REPL 单表达式求值）
type Expression struct {
	base
	Body Expr
}

func (*Module) Kind() ModKind     { return ModModule }
func (*Expression) Kind() ModKind { return ModExpression }
func (*Module) modNode()          {}
func (*Expression) modNode()      {}

// ============================================================================
// stmt 族
// ============================================================================

// FunctionDef def name(args): body
type FunctionDef struct {
	base
	Name string
	Args *Arguments
	Body []Stmt
}

// ClassDef class Name(bases): body
type ClassDef struct {
	base
	Name  string
	Bases []Expr
	Body  []Stmt
}

// Return return [value]
type Return struct {
	base
	Value Expr // 可为 nil
}

// Delete del targets
type Delete struct {
	base
	Targets []Expr
}

// Assign t1 = t2 = value
type Assign struct {
	base
	Targets []Expr
	Value   Expr
}

// AugAssign target op= value
type AugAssign struct {
	base
	Target Expr
	Op     Operator
	Value  Expr
}

// For for target in iter: body
type For struct {
	base
	Target Expr
	Iter   Expr
	Body   []Stmt
	OrElse []Stmt
}

// While while test: body
type While struct {
	base
	Test   Expr
	Body   []Stmt
	OrElse []Stmt
}

// If if test: body [elif ...] [else: orelse]
//
// elif 链表示为 OrElse 中唯一的嵌套 If。
type If struct {
	base
	Test   Expr
	Body   []Stmt
	OrElse []Stmt
}

// Raise raise [exc [from cause]]
type Raise struct {
	base
	Exc   Expr
	Cause Expr
}

// Try try: body except...: handlers finally: finalbody
type Try struct {
	base
	Body      []Stmt
	Handlers  []*ExceptHandler
	OrElse    []Stmt
	FinalBody []Stmt
}

// Assert assert test [, msg]
type Assert struct {
	base
	Test Expr
	Msg  Expr
}

// Import import a.b [as c], ...
type Import struct {
	base
	Names []*Alias
}

// ImportFrom from [.]module import names
type ImportFrom struct {
	base
	Module string
	Names  []*Alias
	Level  int // 相对导入的点数
}

// ExprStmt 表达式语句（标签 Expr）
type ExprStmt struct {
	base
	Value Expr
}

// Pass pass
type Pass struct{ base }

// Break break
type Break struct{ base }

// Continue continue
type Continue struct{ base }

func (*FunctionDef) Kind() StmtKind { return StmtFunctionDef }
func (*ClassDef) Kind() StmtKind    { return StmtClassDef }
func (*Return) Kind() StmtKind      { return StmtReturn }
func (*Delete) Kind() StmtKind      { return StmtDelete }
func (*Assign) Kind() StmtKind      { return StmtAssign }
func (*AugAssign) Kind() StmtKind   { return StmtAugAssign }
func (*For) Kind() StmtKind         { return StmtFor }
func (*While) Kind() StmtKind       { return StmtWhile }
func (*If) Kind() StmtKind          { return StmtIf }
func (*Raise) Kind() StmtKind       { return StmtRaise }
func (*Try) Kind() StmtKind         { return StmtTry }
func (*Assert) Kind() StmtKind      { return StmtAssert }
func (*Import) Kind() StmtKind      { return StmtImport }
func (*ImportFrom) Kind() StmtKind  { return StmtImportFrom }
func (*ExprStmt) Kind() StmtKind    { return StmtExpr }
func (*Pass) Kind() StmtKind        { return StmtPass }
func (*Break) Kind() StmtKind       { return StmtBreak }
func (*Continue) Kind() StmtKind    { return StmtContinue }

func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Return) stmtNode()      {}
func (*Delete) stmtNode()      {}
func (*Assign) stmtNode()      {}
func (*AugAssign) stmtNode()   {}
func (*For) stmtNode()         {}
func (*While) stmtNode()       {}
func (*If) stmtNode()          {}
func (*Raise) stmtNode()       {}
func (*Try) stmtNode()         {}
func (*Assert) stmtNode()      {}
func (*Import) stmtNode()      {}
func (*ImportFrom) stmtNode()  {}
func (*ExprStmt) stmtNode()    {}
func (*Pass) stmtNode()        {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}

// ============================================================================
// expr 族
// ============================================================================

// BoolOp a and b and c
type BoolOp struct {
	base
	Op     BoolOperator
	Values []Expr
}

// BinOp left op right
type BinOp struct {
	base
	Left  Expr
	Op    Operator
	Right Expr
}

// UnaryOp op operand
type UnaryOp struct {
	base
	Op      UnaryOperator
	Operand Expr
}

// Lambda lambda args: body
type Lambda struct {
	base
	Args *Arguments
	Body Expr
}

// Dict {k: v, ...}
type Dict struct {
	base
	Keys   []Expr
	Values []Expr
}

// Compare left op1 c1 op2 c2 ...
type Compare struct {
	base
	Left        Expr
	Ops         []CmpOp
	Comparators []Expr
}

// Call func(args, k=v)
type Call struct {
	base
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

// Constant 字面量
//
// Value 只可能是 nil（None）、bool、int64、float64 或 string。
type Constant struct {
	base
	Value interface{}
}

// Attribute value.attr
type Attribute struct {
	base
	Value Expr
	Attr  string
	Ctx   ExprContext
}

// Subscript value[slice]，Slice 为 Index、Slice 或由它们组成的 Tuple
type Subscript struct {
	base
	Value Expr
	Slice Expr
	Ctx   ExprContext
}

// Name 标识符
type Name struct {
	base
	ID  string
	Ctx ExprContext
}

// List [a, b]
type List struct {
	base
	Elts []Expr
	Ctx  ExprContext
}

// Tuple a, b 或 (a, b)
type Tuple struct {
	base
	Elts []Expr
	Ctx  ExprContext
}

// Slice lower:upper:step，各部分可为 nil
type Slice struct {
	base
	Lower Expr
	Upper Expr
	Step  Expr
}

// Index 下标中的单个值
type Index struct {
	base
	Value Expr
}

// FormattedValue f-string 中的 {value!conversion:format_spec}
type FormattedValue struct {
	base
	Value      Expr
	Conversion rune // 0 表示无，'s' 'r' 'a'
	FormatSpec Expr // 可为 nil
}

func (*BoolOp) Kind() ExprKind         { return ExprBoolOp }
func (*BinOp) Kind() ExprKind          { return ExprBinOp }
func (*UnaryOp) Kind() ExprKind        { return ExprUnaryOp }
func (*Lambda) Kind() ExprKind         { return ExprLambda }
func (*Dict) Kind() ExprKind           { return ExprDict }
func (*Compare) Kind() ExprKind        { return ExprCompare }
func (*Call) Kind() ExprKind           { return ExprCall }
func (*Constant) Kind() ExprKind       { return ExprConstant }
func (*Attribute) Kind() ExprKind      { return ExprAttribute }
func (*Subscript) Kind() ExprKind      { return ExprSubscript }
func (*Name) Kind() ExprKind           { return ExprName }
func (*List) Kind() ExprKind           { return ExprList }
func (*Tuple) Kind() ExprKind          { return ExprTuple }
func (*Slice) Kind() ExprKind          { return ExprSlice }
func (*Index) Kind() ExprKind          { return ExprIndex }
func (*FormattedValue) Kind() ExprKind { return ExprFormattedValue }

func (*BoolOp) exprNode()         {}
func (*BinOp) exprNode()          {}
func (*UnaryOp) exprNode()        {}
func (*Lambda) exprNode()         {}
func (*Dict) exprNode()           {}
func (*Compare) exprNode()        {}
func (*Call) exprNode()           {}
func (*Constant) exprNode()       {}
func (*Attribute) exprNode()      {}
func (*Subscript) exprNode()      {}
func (*Name) exprNode()           {}
func (*List) exprNode()           {}
func (*Tuple) exprNode()          {}
func (*Slice) exprNode()          {}
func (*Index) exprNode()          {}
func (*FormattedValue) exprNode() {}

// ============================================================================
// 辅助记录
// ============================================================================

// Arg 形参
type Arg struct {
	base
	Name string
}

// Arguments 形参列表
type Arguments struct {
	Args     []*Arg
	Defaults []Expr // 对应 Args 的最后 len(Defaults) 个
	Vararg   *Arg   // *args，可为 nil
	Kwarg    *Arg   // **kwargs，可为 nil
}

// Alias import 中的 name [as asname]
type Alias struct {
	base
	Name   string
	AsName string
}

// ExceptHandler except [type [as name]]: body
type ExceptHandler struct {
	base
	Type Expr // 可为 nil（裸 except）
	Name string
	Body []Stmt
}

// Keyword 调用中的关键字参数 arg=value
type Keyword struct {
	base
	Arg   string
	Value Expr
}

// SetContext 修改 Name/Attribute/Subscript/List/Tuple 的上下文，
// 对 List/Tuple 递归处理元素；其他节点返回 false。
func SetContext(e Expr, ctx ExprContext) bool {
	switch n := e.(type) {
	case *Name:
		n.Ctx = ctx
	case *Attribute:
		n.Ctx = ctx
	case *Subscript:
		n.Ctx = ctx
	case *List:
		for _, elt := range n.Elts {
			if !SetContext(elt, ctx) {
				return false
			}
		}
		n.Ctx = ctx
	case *Tuple:
		for _, elt := range n.Elts {
			if !SetContext(elt, ctx) {
				return false
			}
		}
		n.Ctx = ctx
	default:
		return false
	}
	return true
}
