package compiler

import (
	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/bytecode"
	"github.com/tangzhangming/pyra/internal/errors"
	"github.com/tangzhangming/pyra/internal/i18n"
)

// ============================================================================
// 运算符映射
// ============================================================================

var binaryOps = [...]bytecode.BinaryOp{
	ast.Add:      bytecode.BinAdd,
	ast.Sub:      bytecode.BinSub,
	ast.Mult:     bytecode.BinMult,
	ast.Div:      bytecode.BinDiv,
	ast.FloorDiv: bytecode.BinFloorDiv,
	ast.Modulo:   bytecode.BinMod,
	ast.Pow:      bytecode.BinPow,
	ast.LShift:   bytecode.BinLShift,
	ast.RShift:   bytecode.BinRShift,
	ast.BitOr:    bytecode.BinBitOr,
	ast.BitXor:   bytecode.BinBitXor,
	ast.BitAnd:   bytecode.BinBitAnd,
}

var unaryOps = [...]bytecode.UnaryOp{
	ast.Invert: bytecode.UnaryInvert,
	ast.Not:    bytecode.UnaryNot,
	ast.UAdd:   bytecode.UnaryPlus,
	ast.USub:   bytecode.UnaryMinus,
}

var compareOps = [...]bytecode.CompareOp{
	ast.Eq:    bytecode.CmpEq,
	ast.NotEq: bytecode.CmpNotEq,
	ast.Lt:    bytecode.CmpLt,
	ast.LtE:   bytecode.CmpLtE,
	ast.Gt:    bytecode.CmpGt,
	ast.GtE:   bytecode.CmpGtE,
	ast.Is:    bytecode.CmpIs,
	ast.IsNot: bytecode.CmpIsNot,
	ast.In:    bytecode.CmpIn,
	ast.NotIn: bytecode.CmpNotIn,
}

var conversions = map[rune]int{
	0:   bytecode.FormatNone,
	's': bytecode.FormatStr,
	'r': bytecode.FormatRepr,
	'a': bytecode.FormatASCII,
}

// kwargsMarker 关键字参数名为它时，值是要展开的映射（**kwargs）
const kwargsMarker = "**"

// ============================================================================
// 表达式
// ============================================================================

func (c *Compiler) compileExpr(expr ast.Expr) {
	if c.err != nil {
		return
	}
	if line := expr.Pos().Line; line > 0 {
		c.line = line
	}

	switch e := expr.(type) {
	case *ast.BoolOp:
		c.compileBoolOp(e)
	case *ast.BinOp:
		c.compileExpr(e.Left)
		c.compileExpr(e.Right)
		c.emit(bytecode.OpBinary, int(binaryOps[e.Op]))
	case *ast.UnaryOp:
		c.compileExpr(e.Operand)
		c.emit(bytecode.OpUnary, int(unaryOps[e.Op]))
	case *ast.Lambda:
		c.compileLambda(e)
	case *ast.Dict:
		c.compileDict(e)
	case *ast.Compare:
		c.compileCompare(e)
	case *ast.Call:
		c.compileCall(e)
	case *ast.Constant:
		c.compileConstant(e)
	case *ast.Attribute:
		c.compileExpr(e.Value)
		c.emitName(bytecode.OpLoadAttr, e.Attr)
	case *ast.Subscript:
		c.compileExpr(e.Value)
		c.compileSlice(e.Slice)
		c.emit(bytecode.OpSubscr, bytecode.SubscrLoad)
	case *ast.Name:
		c.emitName(bytecode.OpLoadName, e.ID)
	case *ast.List:
		c.compileSequence(bytecode.BuildList, e.Elts)
	case *ast.Tuple:
		c.compileSequence(bytecode.BuildTuple, e.Elts)
	case *ast.Slice, *ast.Index:
		c.compileSlice(e)
	case *ast.FormattedValue:
		c.compileFormattedValue(e)
	default:
		c.unsupported(expr.Kind().String(), expr.Pos())
	}
}

// compileReversed 逆序压入表达式
func (c *Compiler) compileReversed(exprs []ast.Expr) {
	for i := len(exprs) - 1; i >= 0; i-- {
		c.compileExpr(exprs[i])
	}
}

// compileSequence 元素逆序压栈后 BUILD
func (c *Compiler) compileSequence(kind int, elts []ast.Expr) {
	if len(elts) > bytecode.MaxBuildCount {
		c.fail(errors.C0002, i18n.T(i18n.ErrOperandOverflow, bytecode.OpBuild, len(elts), bytecode.MaxBuildCount, c.line))
		return
	}
	c.compileReversed(elts)
	c.emit(bytecode.OpBuild, bytecode.BuildOperand(kind, len(elts)))
}

// compileDict 键值对逆序压栈，每对先 value 后 key
func (c *Compiler) compileDict(e *ast.Dict) {
	if len(e.Keys) > bytecode.MaxBuildCount {
		c.fail(errors.C0002, i18n.T(i18n.ErrOperandOverflow, bytecode.OpBuild, len(e.Keys), bytecode.MaxBuildCount, c.line))
		return
	}
	for i := len(e.Keys) - 1; i >= 0; i-- {
		c.compileExpr(e.Values[i])
		c.compileExpr(e.Keys[i])
	}
	c.emit(bytecode.OpBuild, bytecode.BuildOperand(bytecode.BuildDict, len(e.Keys)))
}

// compileConstant None/True/False 用 LOAD_SPECIAL，其余进入常量池
func (c *Compiler) compileConstant(e *ast.Constant) {
	switch v := e.Value.(type) {
	case nil:
		c.emit(bytecode.OpLoadSpecial, bytecode.SpecialNone)
	case bool:
		if v {
			c.emit(bytecode.OpLoadSpecial, bytecode.SpecialTrue)
		} else {
			c.emit(bytecode.OpLoadSpecial, bytecode.SpecialFalse)
		}
	case int64:
		c.emitConst(bytecode.IntConst(v))
	case float64:
		c.emitConst(bytecode.FloatConst(v))
	case string:
		c.emitConst(bytecode.StringConst(v))
	default:
		c.unsupported("Constant", e.Pos())
	}
}

// compileBoolOp 短路求值
//
//	a; DUP; JNT end; POP; b; DUP; JNT end; POP; c; end:
func (c *Compiler) compileBoolOp(e *ast.BoolOp) {
	jump := bytecode.OpJNT
	if e.Op == ast.Or {
		jump = bytecode.OpJIT
	}
	var slots []int
	for i, value := range e.Values {
		c.compileExpr(value)
		if i < len(e.Values)-1 {
			c.emit(bytecode.OpDup, 1)
			slots = append(slots, c.emitEmpty())
			c.emit(bytecode.OpPop, 0)
		}
	}
	for _, at := range slots {
		c.patchHere(at, jump)
	}
}

// compileCompare 链式比较，中间值只计算一次，任一比较为假即短路
//
//	a; b; DUP; ROT 3; COMPARE; DUP; JNT cleanup; POP; c; COMPARE; JMP end
//	cleanup: ROT 2; POP
//	end:
func (c *Compiler) compileCompare(e *ast.Compare) {
	c.compileExpr(e.Left)
	last := len(e.Ops) - 1
	var cleanup []int
	for i, op := range e.Ops {
		c.compileExpr(e.Comparators[i])
		if i == last {
			c.emit(bytecode.OpCompare, int(compareOps[op]))
			break
		}
		c.emit(bytecode.OpDup, 1)
		c.emit(bytecode.OpRot, 3)
		c.emit(bytecode.OpCompare, int(compareOps[op]))
		c.emit(bytecode.OpDup, 1)
		cleanup = append(cleanup, c.emitEmpty())
		c.emit(bytecode.OpPop, 0)
	}
	if len(cleanup) == 0 {
		return
	}
	end := c.emitEmpty()
	for _, at := range cleanup {
		c.patchHere(at, bytecode.OpJNT)
	}
	c.emit(bytecode.OpRot, 2)
	c.emit(bytecode.OpPop, 0)
	c.patchHere(end, bytecode.OpJump)
}

// compileCall 函数; 逆序的 (value, name) 关键字参数; 逆序的位置参数; CALL
func (c *Compiler) compileCall(e *ast.Call) {
	if len(e.Args) > bytecode.MaxPositional || len(e.Keywords) > bytecode.MaxKeywords {
		c.fail(errors.C0002, i18n.T(i18n.ErrTooManyArguments, c.line))
		return
	}
	c.compileExpr(e.Func)
	for i := len(e.Keywords) - 1; i >= 0; i-- {
		kw := e.Keywords[i]
		c.compileExpr(kw.Value)
		name := kw.Arg
		if name == "" {
			name = kwargsMarker
		}
		c.emitConst(bytecode.StringConst(name))
	}
	c.compileReversed(e.Args)
	c.emit(bytecode.OpCall, bytecode.CallOperand(len(e.Args), len(e.Keywords)))
}

// compileLambda 默认值... code -> MAKE_FUNCTION
func (c *Compiler) compileLambda(e *ast.Lambda) {
	ndefaults := c.compileDefaults(e.Args)
	line := c.line

	code := c.newCode("<lambda>", bytecode.KindLambda, e.Pos().Line)
	setParams(code, e.Args)
	c.compileExpr(e.Body)
	c.emit(bytecode.OpReturn, 0)
	c.endCode()

	c.line = line
	c.emitConst(bytecode.CodeConst(code))
	c.emit(bytecode.OpMakeFunction, ndefaults)
}

// compileSlice 下标：Index 直接求值，Slice 压入三个值后 BUILD Slice，
// 多维下标是由它们组成的元组
func (c *Compiler) compileSlice(expr ast.Expr) {
	switch s := expr.(type) {
	case *ast.Index:
		c.compileExpr(s.Value)
	case *ast.Slice:
		c.compileOptional(s.Step)
		c.compileOptional(s.Upper)
		c.compileOptional(s.Lower)
		c.emit(bytecode.OpBuild, bytecode.BuildOperand(bytecode.BuildSlice, 3))
	case *ast.Tuple:
		for i := len(s.Elts) - 1; i >= 0; i-- {
			c.compileSlice(s.Elts[i])
		}
		c.emit(bytecode.OpBuild, bytecode.BuildOperand(bytecode.BuildTuple, len(s.Elts)))
	default:
		c.compileExpr(expr)
	}
}

// compileFormattedValue value; [spec]; FORMAT
func (c *Compiler) compileFormattedValue(e *ast.FormattedValue) {
	c.compileExpr(e.Value)
	flags := conversions[e.Conversion]
	if e.FormatSpec != nil {
		c.compileExpr(e.FormatSpec)
		flags |= bytecode.FormatHasSpec
	}
	c.emit(bytecode.OpFormat, flags)
}
