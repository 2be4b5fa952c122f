// Package compiler 把语法树编译为 Pyra 字节码
package compiler

import (
	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/bytecode"
	"github.com/tangzhangming/pyra/internal/errors"
	"github.com/tangzhangming/pyra/internal/i18n"
	"github.com/tangzhangming/pyra/internal/logging"
	"github.com/tangzhangming/pyra/internal/parser"
)

// ============================================================================
// Compiler - 字节码编译器
// ============================================================================
//
// 单遍遍历语法树，直接向当前代码对象追加指令。
//
// 函数体、类体和 lambda 各自编译到新的代码对象中：newCode 压栈，endCode
// 出栈并回到外层代码对象。循环栈和 try 栈属于各自的代码对象，
// 内层函数里的 break 看不到外层循环。
//
// 前向跳转先用 EmitEmpty 预留槽位，目标确定后回填：
//   - 循环记录 break/continue 槽位，循环结束时统一回填
//   - try 记录跳向 finally 的槽位，finally 位置确定后回填
//
// 复合值的元素按源码逆序压栈，运行时从栈顶依次弹出即得到源码顺序。
//
// 与解析器一样只报告第一个错误。
//
// ============================================================================

// Compiler 编译器
type Compiler struct {
	filename string
	log      logging.Sink

	frames []*frame // 代码对象栈
	line   int      // 当前源码行
	column int      // 当前语句的列
	codes  int      // 已创建的代码对象数
	err    *errors.CompileError
}

// frame 一个正在编译的代码对象及其控制流状态
type frame struct {
	code  *bytecode.Code
	loops []*loop
	tries []*tryBlock
}

// loop 循环中待回填的 break/continue 槽位
type loop struct {
	continues []int
	breaks    []int
	tryDepth  int // 进入循环时 try 栈的深度
}

// tryPhase try 语句编译到的阶段
type tryPhase int

const (
	phaseBody    tryPhase = iota // 受保护区域
	phaseHandler                 // except 子句
	phaseFinal                   // else 或 finally
)

// tryBlock try 语句：TRY 指令的位置和跳向 finally 的槽位
type tryBlock struct {
	tryIP int
	jumps []int
	phase tryPhase
}

// New 创建编译器，log 为 nil 时丢弃诊断
func New(filename string, log logging.Sink) *Compiler {
	if log == nil {
		log = logging.Nop()
	}
	return &Compiler{filename: filename, log: log}
}

// ============================================================================
// 入口
// ============================================================================

// CompileFile 解析并编译源文件
func CompileFile(path string, log logging.Sink) (*bytecode.Code, error) {
	mod, err := parser.FromFile(path, log)
	if err != nil {
		return nil, err
	}
	return New(path, log).CompileModule(mod)
}

// CompileString 解析并编译内存中的源码
func CompileString(source, name string, log logging.Sink) (*bytecode.Code, error) {
	mod, err := parser.FromString(source, name, log)
	if err != nil {
		return nil, err
	}
	return New(name, log).CompileModule(mod)
}

// CompileExpressionString 以表达式模式解析并编译
func CompileExpressionString(source string, log logging.Sink) (*bytecode.Code, error) {
	expr, err := parser.FromExpression(source, log)
	if err != nil {
		return nil, err
	}
	return New("expression", log).CompileExpression(expr)
}

// CompileModule 编译模块，模块代码以 return None 结束
func (c *Compiler) CompileModule(mod *ast.Module) (*bytecode.Code, error) {
	c.line = mod.Pos().Line
	c.newCode("<module>", bytecode.KindModule, mod.Pos().Line)
	c.compileBody(mod.Body)
	c.emit(bytecode.OpLoadSpecial, bytecode.SpecialNone)
	c.emit(bytecode.OpReturn, 0)
	return c.finish(c.endCode())
}

// CompileExpression 编译表达式，代码返回表达式的值
func (c *Compiler) CompileExpression(expr *ast.Expression) (*bytecode.Code, error) {
	c.line = expr.Pos().Line
	c.newCode("<expression>", bytecode.KindExpression, expr.Pos().Line)
	c.compileExpr(expr.Body)
	c.emit(bytecode.OpReturn, 0)
	return c.finish(c.endCode())
}

func (c *Compiler) finish(code *bytecode.Code) (*bytecode.Code, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.log.Info("compiled ", c.filename, ": ", c.codes, " code objects, ", code.IP(), " instructions")
	return code, nil
}

// Err 返回第一个错误
func (c *Compiler) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err
}

// ============================================================================
// 代码对象栈
// ============================================================================

func (c *Compiler) newCode(name string, kind bytecode.CodeKind, line int) *bytecode.Code {
	code := bytecode.NewCode(name, c.filename, kind, line)
	c.frames = append(c.frames, &frame{code: code})
	c.codes++
	return code
}

func (c *Compiler) endCode() *bytecode.Code {
	top := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	return top.code
}

func (c *Compiler) frame() *frame {
	return c.frames[len(c.frames)-1]
}

func (c *Compiler) code() *bytecode.Code {
	return c.frame().code
}

// ============================================================================
// 指令发射
// ============================================================================

// emit 发射指令，操作数超出编码范围时报错
func (c *Compiler) emit(op bytecode.OpCode, operand int) int {
	if operand > bytecode.MaxOperand {
		c.fail(errors.C0002, i18n.T(i18n.ErrOperandOverflow, op, operand, bytecode.MaxOperand, c.line))
		operand = 0
	}
	return c.code().Emit(op, operand, c.line)
}

// emitEmpty 预留待回填的槽位
func (c *Compiler) emitEmpty() int {
	return c.code().EmitEmpty(c.line)
}

// patch 把 at 处的槽位回填为跳向 target 的指令
func (c *Compiler) patch(at int, op bytecode.OpCode, target int) {
	if target > bytecode.MaxOperand {
		c.fail(errors.C0002, i18n.T(i18n.ErrOperandOverflow, op, target, bytecode.MaxOperand, c.line))
		target = 0
	}
	c.code().Patch(at, op, target)
}

// patchHere 把槽位回填为跳向下一条指令
func (c *Compiler) patchHere(at int, op bytecode.OpCode) {
	c.patch(at, op, c.code().IP())
}

func (c *Compiler) ip() int {
	return c.code().IP()
}

// emitConst 加载常量
func (c *Compiler) emitConst(k bytecode.Constant) {
	c.emit(bytecode.OpLoadConst, c.code().AddConstant(k))
}

// emitName 发射以名字为操作数的指令
func (c *Compiler) emitName(op bytecode.OpCode, name string) {
	c.emit(op, c.code().AddConstant(bytecode.NameConst(name)))
}

// ============================================================================
// 错误
// ============================================================================

func (c *Compiler) fail(code string, message string) {
	c.failAt(code, c.line, c.column, message)
}

func (c *Compiler) failAt(code string, line, column int, message string) {
	if c.err != nil {
		return
	}
	c.err = errors.New(code, c.filename, line, column, message)
	c.err.Hints = errors.Suggestions(code)
	c.log.Error(message)
}
