package compiler

import (
	"strings"

	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/bytecode"
	"github.com/tangzhangming/pyra/internal/errors"
	"github.com/tangzhangming/pyra/internal/i18n"
)

// ============================================================================
// 语句
// ============================================================================

func (c *Compiler) compileBody(body []ast.Stmt) {
	for _, stmt := range body {
		if c.err != nil {
			return
		}
		c.compileStmt(stmt)
	}
}

func (c *Compiler) compileStmt(stmt ast.Stmt) {
	c.line = stmt.Pos().Line
	c.column = stmt.Pos().Column

	switch s := stmt.(type) {
	case *ast.FunctionDef:
		c.compileFunctionDef(s)
	case *ast.ClassDef:
		c.compileClassDef(s)
	case *ast.Return:
		c.compileOptional(s.Value)
		c.emit(bytecode.OpReturn, 0)
	case *ast.Delete:
		for _, target := range s.Targets {
			c.compileDelete(target)
		}
	case *ast.Assign:
		c.compileAssign(s)
	case *ast.AugAssign:
		c.compileAugAssign(s)
	case *ast.For:
		c.compileFor(s)
	case *ast.While:
		c.compileWhile(s)
	case *ast.If:
		c.compileIf(s)
	case *ast.Raise:
		c.compileRaise(s)
	case *ast.Try:
		c.compileTry(s)
	case *ast.Assert:
		c.compileAssert(s)
	case *ast.Import:
		c.compileImport(s)
	case *ast.ImportFrom:
		c.compileImportFrom(s)
	case *ast.ExprStmt:
		c.compileExpr(s.Value)
		c.emit(bytecode.OpPop, 0)
	case *ast.Pass:
	case *ast.Break:
		c.compileLoopControl(true)
	case *ast.Continue:
		c.compileLoopControl(false)
	default:
		c.unsupported(stmt.Kind().String(), stmt.Pos())
	}
}

func (c *Compiler) unsupported(what string, pos ast.Position) {
	c.failAt(errors.C0004, pos.Line, pos.Column, i18n.T(i18n.ErrUnsupportedNode, what, pos.Line))
}

// compileOptional 编译可选表达式，缺省时压入 None
func (c *Compiler) compileOptional(expr ast.Expr) {
	if expr == nil {
		c.emit(bytecode.OpLoadSpecial, bytecode.SpecialNone)
		return
	}
	c.compileExpr(expr)
}

// ============================================================================
// 定义
// ============================================================================

// compileDefaults 逆序压入默认值，返回个数
func (c *Compiler) compileDefaults(args *ast.Arguments) int {
	if args == nil {
		return 0
	}
	for i := len(args.Defaults) - 1; i >= 0; i-- {
		c.compileExpr(args.Defaults[i])
	}
	return len(args.Defaults)
}

func setParams(code *bytecode.Code, args *ast.Arguments) {
	if args == nil {
		return
	}
	for _, arg := range args.Args {
		code.Params = append(code.Params, arg.Name)
	}
	if args.Vararg != nil {
		code.Vararg = args.Vararg.Name
	}
	if args.Kwarg != nil {
		code.Kwarg = args.Kwarg.Name
	}
}

// compileFunctionDef 默认值... code -> MAKE_FUNCTION -> STORE_NAME
func (c *Compiler) compileFunctionDef(s *ast.FunctionDef) {
	ndefaults := c.compileDefaults(s.Args)

	code := c.newCode(s.Name, bytecode.KindFunction, s.Pos().Line)
	setParams(code, s.Args)
	c.compileBody(s.Body)
	c.emit(bytecode.OpLoadSpecial, bytecode.SpecialNone)
	c.emit(bytecode.OpReturn, 0)
	c.endCode()

	c.line = s.Pos().Line
	c.emitConst(bytecode.CodeConst(code))
	c.emit(bytecode.OpMakeFunction, ndefaults)
	c.emitName(bytecode.OpStoreName, s.Name)
}

// compileClassDef 基类... code -> MAKE_CLASS -> STORE_NAME
func (c *Compiler) compileClassDef(s *ast.ClassDef) {
	c.compileReversed(s.Bases)

	code := c.newCode(s.Name, bytecode.KindClass, s.Pos().Line)
	c.compileBody(s.Body)
	c.emit(bytecode.OpLoadSpecial, bytecode.SpecialNone)
	c.emit(bytecode.OpReturn, 0)
	c.endCode()

	c.line = s.Pos().Line
	c.emitConst(bytecode.CodeConst(code))
	c.emit(bytecode.OpMakeClass, len(s.Bases))
	c.emitName(bytecode.OpStoreName, s.Name)
}

// ============================================================================
// 赋值
// ============================================================================

// compileAssign 值只计算一次，除最后一个目标外每个目标前复制一份
func (c *Compiler) compileAssign(s *ast.Assign) {
	for _, target := range s.Targets {
		c.checkArity(target, s.Value)
	}
	c.compileExpr(s.Value)
	for i, target := range s.Targets {
		if i < len(s.Targets)-1 {
			c.emit(bytecode.OpDup, 1)
		}
		c.compileStore(target)
	}
}

// checkArity 字面量元组/列表解包到定长目标时在编译期检查个数
func (c *Compiler) checkArity(target, value ast.Expr) {
	targets := elements(target)
	values := elements(value)
	if targets == nil || values == nil {
		return
	}
	if len(targets) != len(values) {
		pos := target.Pos()
		c.failAt(errors.C0003, pos.Line, pos.Column, i18n.T(i18n.ErrUnpackArity, len(values), len(targets), pos.Line))
		return
	}
	for i := range targets {
		c.checkArity(targets[i], values[i])
	}
}

// elements 返回元组/列表的元素，其他表达式返回 nil
func elements(e ast.Expr) []ast.Expr {
	switch n := e.(type) {
	case *ast.Tuple:
		if n.Elts == nil {
			return []ast.Expr{}
		}
		return n.Elts
	case *ast.List:
		if n.Elts == nil {
			return []ast.Expr{}
		}
		return n.Elts
	}
	return nil
}

// compileAugAssign target op= value，目标对象和下标只计算一次
func (c *Compiler) compileAugAssign(s *ast.AugAssign) {
	op := bytecode.BinaryOp(binaryOps[s.Op])
	switch t := s.Target.(type) {
	case *ast.Name:
		c.emitName(bytecode.OpLoadName, t.ID)
		c.compileExpr(s.Value)
		c.emit(bytecode.OpBinary, int(op))
		c.emitName(bytecode.OpStoreName, t.ID)
	case *ast.Attribute:
		c.compileExpr(t.Value)
		c.emit(bytecode.OpDup, 1)
		c.emitName(bytecode.OpLoadAttr, t.Attr)
		c.compileExpr(s.Value)
		c.emit(bytecode.OpBinary, int(op))
		c.emit(bytecode.OpRot, 2)
		c.emitName(bytecode.OpStoreAttr, t.Attr)
	case *ast.Subscript:
		c.compileExpr(t.Value)
		c.compileSlice(t.Slice)
		c.emit(bytecode.OpDup, 2)
		c.emit(bytecode.OpSubscr, bytecode.SubscrLoad)
		c.compileExpr(s.Value)
		c.emit(bytecode.OpBinary, int(op))
		c.emit(bytecode.OpRot, 3)
		c.emit(bytecode.OpSubscr, bytecode.SubscrStore)
	default:
		c.unsupported(s.Target.Kind().String(), s.Target.Pos())
	}
}

// ============================================================================
// 控制流
// ============================================================================

// compileIf
//
//	test; JNT else; body; [JMP end]; else: orelse; end:
func (c *Compiler) compileIf(s *ast.If) {
	c.compileExpr(s.Test)
	jnt := c.emitEmpty()
	c.compileBody(s.Body)
	if len(s.OrElse) == 0 {
		c.patchHere(jnt, bytecode.OpJNT)
		return
	}
	jmp := c.emitEmpty()
	c.patchHere(jnt, bytecode.OpJNT)
	c.compileBody(s.OrElse)
	c.patchHere(jmp, bytecode.OpJump)
}

// compileWhile
//
//	test: test; JNT exit; body; JMP test; exit:
func (c *Compiler) compileWhile(s *ast.While) {
	if len(s.OrElse) > 0 {
		c.unsupported("While.orelse", s.Pos())
		return
	}
	testIP := c.ip()
	c.compileExpr(s.Test)
	exit := c.emitEmpty()

	l := c.pushLoop()
	c.compileBody(s.Body)
	c.line = s.Pos().Line
	c.emit(bytecode.OpJump, testIP)
	c.popLoop()

	c.patchHere(exit, bytecode.OpJNT)
	c.closeLoop(l, testIP, c.ip())
}

// compileFor
//
//	iter; ITER; NEXT exit; store: STORE target; body
//	continue: NEXT exit; JMP store
//	exit: POP
//
// 耗尽时 NEXT 跳到 exit，迭代器仍在栈上，由 exit 处的 POP 弹出。
func (c *Compiler) compileFor(s *ast.For) {
	if len(s.OrElse) > 0 {
		c.unsupported("For.orelse", s.Pos())
		return
	}
	c.compileExpr(s.Iter)
	c.emit(bytecode.OpIter, 0)
	first := c.emitEmpty()
	storeIP := c.ip()
	c.compileStore(s.Target)

	l := c.pushLoop()
	c.compileBody(s.Body)
	c.popLoop()

	c.line = s.Pos().Line
	continueIP := c.ip()
	second := c.emitEmpty()
	c.emit(bytecode.OpJump, storeIP)
	exitIP := c.ip()
	c.emit(bytecode.OpPop, 0)

	c.patch(first, bytecode.OpNext, exitIP)
	c.patch(second, bytecode.OpNext, exitIP)
	c.closeLoop(l, continueIP, exitIP)
}

func (c *Compiler) pushLoop() *loop {
	f := c.frame()
	l := &loop{tryDepth: len(f.tries)}
	f.loops = append(f.loops, l)
	return l
}

func (c *Compiler) popLoop() {
	f := c.frame()
	f.loops = f.loops[:len(f.loops)-1]
}

// closeLoop 回填循环中所有 break/continue 槽位
func (c *Compiler) closeLoop(l *loop, continueIP, exitIP int) {
	for _, at := range l.continues {
		c.patch(at, bytecode.OpJump, continueIP)
	}
	for _, at := range l.breaks {
		c.patch(at, bytecode.OpJump, exitIP)
	}
}

// compileLoopControl break/continue 预留跳转槽位，循环结束时回填。
// 跳出 try 的受保护区域或 except 子句前先注销处理入口。
func (c *Compiler) compileLoopControl(isBreak bool) {
	f := c.frame()
	if len(f.loops) == 0 {
		if isBreak {
			c.fail(errors.C0001, i18n.T(i18n.ErrBreakOutsideLoop, c.line))
		} else {
			c.fail(errors.C0001, i18n.T(i18n.ErrContinueOutsideLoop, c.line))
		}
		return
	}
	l := f.loops[len(f.loops)-1]
	for i := len(f.tries) - 1; i >= l.tryDepth; i-- {
		if f.tries[i].phase != phaseFinal {
			c.emit(bytecode.OpHandle, 0)
		}
	}
	slot := c.emitEmpty()
	if isBreak {
		l.breaks = append(l.breaks, slot)
	} else {
		l.continues = append(l.continues, slot)
	}
}

// ============================================================================
// 异常
// ============================================================================

// compileRaise raise / raise exc / raise exc from cause
func (c *Compiler) compileRaise(s *ast.Raise) {
	switch {
	case s.Exc == nil:
		c.emit(bytecode.OpRaise, bytecode.RaiseReraise)
	case s.Cause == nil:
		c.compileExpr(s.Exc)
		c.emit(bytecode.OpRaise, bytecode.RaiseExc)
	default:
		c.compileExpr(s.Exc)
		c.compileExpr(s.Cause)
		c.emit(bytecode.OpRaise, bytecode.RaiseCause)
	}
}

// compileTry
//
//	TRY handlers; body; HANDLE; orelse; JMP finally
//	handlers:                       异常对象在栈顶
//	  DUP; type; COMPARE match; JNT next; STORE name | POP; body; HANDLE; JMP finally
//	  next: ...
//	  finalbody; RAISE 0            没有匹配的子句时执行 finally 后重新抛出
//	finally: finalbody
func (c *Compiler) compileTry(s *ast.Try) {
	f := c.frame()
	tb := &tryBlock{tryIP: c.emitEmpty()}
	f.tries = append(f.tries, tb)

	c.compileBody(s.Body)
	c.line = s.Pos().Line
	c.emit(bytecode.OpHandle, 0)
	tb.phase = phaseFinal
	c.compileBody(s.OrElse)
	tb.jumps = append(tb.jumps, c.emitEmpty())

	c.patchHere(tb.tryIP, bytecode.OpTry)
	tb.phase = phaseHandler
	caught := false
	for _, h := range s.Handlers {
		c.line = h.Pos().Line
		next := -1
		if h.Type != nil {
			c.emit(bytecode.OpDup, 1)
			c.compileExpr(h.Type)
			c.emit(bytecode.OpCompare, int(bytecode.CmpExcMatch))
			next = c.emitEmpty()
		} else {
			caught = true
		}
		if h.Name != "" {
			c.emitName(bytecode.OpStoreName, h.Name)
		} else {
			c.emit(bytecode.OpPop, 0)
		}
		c.compileBody(h.Body)
		c.line = h.Pos().Line
		c.emit(bytecode.OpHandle, 0)
		tb.jumps = append(tb.jumps, c.emitEmpty())
		if next >= 0 {
			c.patchHere(next, bytecode.OpJNT)
		}
	}

	tb.phase = phaseFinal
	if !caught {
		c.compileBody(s.FinalBody)
		c.line = s.Pos().Line
		c.emit(bytecode.OpRaise, bytecode.RaiseReraise)
	}

	for _, at := range tb.jumps {
		c.patchHere(at, bytecode.OpJump)
	}
	c.compileBody(s.FinalBody)
	f.tries = f.tries[:len(f.tries)-1]
}

// compileAssert test; JIT ok; AssertionError([msg]); RAISE 1; ok:
func (c *Compiler) compileAssert(s *ast.Assert) {
	c.compileExpr(s.Test)
	ok := c.emitEmpty()
	c.emitName(bytecode.OpLoadName, "AssertionError")
	nargs := 0
	if s.Msg != nil {
		c.compileExpr(s.Msg)
		nargs = 1
	}
	c.emit(bytecode.OpCall, bytecode.CallOperand(nargs, 0))
	c.emit(bytecode.OpRaise, bytecode.RaiseExc)
	c.patchHere(ok, bytecode.OpJIT)
}

// ============================================================================
// 导入
// ============================================================================

// compileImport import a.b 绑定顶层包 a；import a.b as c 绑定模块 a.b
func (c *Compiler) compileImport(s *ast.Import) {
	for _, alias := range s.Names {
		c.line = alias.Pos().Line
		c.emitName(bytecode.OpImport, alias.Name)
		if alias.AsName != "" {
			c.emitName(bytecode.OpStoreName, alias.AsName)
			continue
		}
		top, _, dotted := strings.Cut(alias.Name, ".")
		if dotted {
			c.emit(bytecode.OpPop, 0)
			c.emitName(bytecode.OpImport, top)
		}
		c.emitName(bytecode.OpStoreName, top)
	}
}

// compileImportFrom 模块名前加 level 个点表示相对导入；
// IMPORT_FROM * 把模块的公开名字全部绑定到当前作用域并压入 None。
func (c *Compiler) compileImportFrom(s *ast.ImportFrom) {
	c.emitName(bytecode.OpImport, strings.Repeat(".", s.Level)+s.Module)
	for _, alias := range s.Names {
		c.line = alias.Pos().Line
		c.emitName(bytecode.OpImportFrom, alias.Name)
		switch {
		case alias.Name == "*":
			c.emit(bytecode.OpPop, 0)
		case alias.AsName != "":
			c.emitName(bytecode.OpStoreName, alias.AsName)
		default:
			c.emitName(bytecode.OpStoreName, alias.Name)
		}
	}
	c.emit(bytecode.OpPop, 0)
}
