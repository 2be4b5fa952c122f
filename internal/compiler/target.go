package compiler

import (
	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/bytecode"
)

// ============================================================================
// 赋值与删除目标
// ============================================================================

// compileStore 弹出栈顶的值并存入目标
func (c *Compiler) compileStore(target ast.Expr) {
	switch t := target.(type) {
	case *ast.Name:
		c.emitName(bytecode.OpStoreName, t.ID)
	case *ast.Attribute:
		c.compileExpr(t.Value)
		c.emitName(bytecode.OpStoreAttr, t.Attr)
	case *ast.Subscript:
		c.compileExpr(t.Value)
		c.compileSlice(t.Slice)
		c.emit(bytecode.OpSubscr, bytecode.SubscrStore)
	case *ast.Tuple:
		c.compileUnpack(t.Elts)
	case *ast.List:
		c.compileUnpack(t.Elts)
	default:
		c.unsupported(target.Kind().String(), target.Pos())
	}
}

// compileUnpack 解构赋值：迭代栈顶的值，每个目标前一个 NEXT，
// 所有 NEXT 的目标都是最后一个目标之后的 POP。
//
//	ITER; NEXT end; STORE t1; NEXT end; STORE t2; end: POP
//
// 值的个数与目标不一致时由运行时处理，字面量在编译期已检查。
func (c *Compiler) compileUnpack(targets []ast.Expr) {
	c.emit(bytecode.OpIter, 0)
	slots := make([]int, 0, len(targets))
	for _, target := range targets {
		slots = append(slots, c.emitEmpty())
		c.compileStore(target)
	}
	end := c.ip()
	c.emit(bytecode.OpPop, 0)
	for _, at := range slots {
		c.patch(at, bytecode.OpNext, end)
	}
}

// compileDelete 删除目标
func (c *Compiler) compileDelete(target ast.Expr) {
	switch t := target.(type) {
	case *ast.Name:
		c.emitName(bytecode.OpDeleteName, t.ID)
	case *ast.Attribute:
		c.compileExpr(t.Value)
		c.emitName(bytecode.OpDeleteAttr, t.Attr)
	case *ast.Subscript:
		c.compileExpr(t.Value)
		c.compileSlice(t.Slice)
		c.emit(bytecode.OpSubscr, bytecode.SubscrDelete)
	case *ast.Tuple:
		for _, elt := range t.Elts {
			c.compileDelete(elt)
		}
	case *ast.List:
		for _, elt := range t.Elts {
			c.compileDelete(elt)
		}
	default:
		c.unsupported(target.Kind().String(), target.Pos())
	}
}
