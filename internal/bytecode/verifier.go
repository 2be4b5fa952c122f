package bytecode

import (
	"fmt"

	"github.com/tangzhangming/pyra/internal/i18n"
)

// VerificationError 字节码验证错误
type VerificationError struct {
	Code    string // 代码对象名
	Offset  int    // 指令位置
	Message string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("bytecode verification failed in %s at %04d: %s", e.Code, e.Offset, e.Message)
}

// Verifier 字节码验证器
//
// 先逐条检查编码（操作码、占位符、跳转目标、常量下标、操作数取值），
// 再从入口和每个异常处理入口出发模拟栈深度，
// 要求每个可达位置的深度一致且不会下溢。
type Verifier struct {
	code          *Code
	depth         []int // 每条指令执行前的栈深度，-1 表示不可达
	maxStackDepth int
}

// NewVerifier 创建验证器
func NewVerifier(code *Code) *Verifier {
	return &Verifier{code: code}
}

// Verify 验证代码对象及其所有嵌套代码常量
func Verify(code *Code) error {
	if err := NewVerifier(code).Verify(); err != nil {
		return err
	}
	for _, k := range code.Constants {
		if k.Kind == ConstCode {
			if err := Verify(k.Code); err != nil {
				return err
			}
		}
	}
	return nil
}

// Verify 验证单个代码对象
func (v *Verifier) Verify() error {
	if v.code == nil {
		return &VerificationError{Message: "nil code object"}
	}
	if len(v.code.Instructions)%2 != 0 {
		return v.fail(0, "odd instruction stream length %d", len(v.code.Instructions))
	}
	if len(v.code.Lines) != v.code.IP() {
		return v.fail(0, "line table has %d entries for %d instructions", len(v.code.Lines), v.code.IP())
	}
	for ip := 0; ip < v.code.IP(); ip++ {
		if err := v.checkInstruction(ip); err != nil {
			return err
		}
	}
	for i, k := range v.code.Constants {
		if k.Kind > ConstCode {
			return v.fail(0, "constant %d has unknown tag %d", i, k.Kind)
		}
		if k.Kind == ConstCode && k.Code == nil {
			return v.fail(0, "constant %d is a nil code object", i)
		}
	}
	return v.verifyStack()
}

// MaxStackDepth 验证通过后的最大栈深度
func (v *Verifier) MaxStackDepth() int {
	return v.maxStackDepth
}

func (v *Verifier) fail(ip int, format string, args ...interface{}) error {
	name := ""
	if v.code != nil {
		name = v.code.Name
	}
	return &VerificationError{Code: name, Offset: ip, Message: fmt.Sprintf(format, args...)}
}

// checkInstruction 检查单条指令的编码
func (v *Verifier) checkInstruction(ip int) error {
	c := v.code
	word := c.Word(ip)
	if word == Placeholder {
		return &VerificationError{Code: c.Name, Offset: ip, Message: i18n.T(i18n.ErrUnpatchedJump, ip, c.Name)}
	}
	op, operand := Decode(word)
	if int(op) >= NumOpcodes {
		return v.fail(ip, "invalid opcode %d", op)
	}

	switch {
	case op.IsJump():
		if operand >= c.IP() {
			return v.fail(ip, "%s target %d out of range", op, operand)
		}
	case op == OpLoadConst:
		if operand >= len(c.Constants) {
			return v.fail(ip, "constant index %d out of range", operand)
		}
	case op.UsesName():
		if operand >= len(c.Constants) {
			return v.fail(ip, "name index %d out of range", operand)
		}
		if c.Constants[operand].Kind != ConstName {
			return v.fail(ip, "%s operand %d is not a name", op, operand)
		}
	}

	limit := -1
	switch op {
	case OpSubscr:
		limit = SubscrDelete
	case OpBinary:
		limit = int(binaryCount) - 1
	case OpUnary:
		limit = int(unaryCount) - 1
	case OpCompare:
		limit = int(compareCount) - 1
	case OpBuild:
		kind, count := SplitBuild(operand)
		if kind > BuildSlice {
			return v.fail(ip, "invalid build kind %d", kind)
		}
		if kind == BuildSlice && count != 3 {
			return v.fail(ip, "slice takes 3 values, got %d", count)
		}
	case OpDup:
		if operand < 1 || operand > 2 {
			return v.fail(ip, "DUP %d not supported", operand)
		}
	case OpRot:
		if operand < 2 || operand > 3 {
			return v.fail(ip, "ROT %d not supported", operand)
		}
	case OpRaise:
		limit = RaiseCause
	case OpLoadSpecial:
		limit = SpecialFalse
	case OpFormat:
		limit = FormatASCII | FormatHasSpec
	case OpMakeFunction, OpMakeClass:
		if ip == 0 {
			return v.fail(ip, "%s without a code object", op)
		}
		if prev, k := c.At(ip - 1); prev != OpLoadConst || c.Constants[k].Kind != ConstCode {
			return v.fail(ip, "%s must follow LOAD_CONST of a code object", op)
		}
	}
	if limit >= 0 && operand > limit {
		return v.fail(ip, "%s operand %d out of range", op, operand)
	}
	return nil
}

// ============================================================================
// 栈深度
// ============================================================================

// stackEffect 返回执行后落空（顺序执行）的深度变化和执行前至少需要的深度
func stackEffect(op OpCode, operand int) (delta, needs int) {
	switch op {
	case OpLoadConst, OpLoadName, OpLoadSpecial, OpImport:
		return 1, 0
	case OpStoreName:
		return -1, 1
	case OpDeleteName, OpJump, OpHandle, OpTry:
		return 0, 0
	case OpLoadAttr, OpUnary, OpIter:
		return 0, 1
	case OpStoreAttr:
		return -2, 2
	case OpDeleteAttr, OpPop, OpReturn, OpJNT, OpJIT:
		return -1, 1
	case OpSubscr:
		switch operand {
		case SubscrLoad:
			return -1, 2
		case SubscrStore:
			return -3, 3
		default:
			return -2, 2
		}
	case OpBinary, OpCompare:
		return -1, 2
	case OpBuild:
		kind, count := SplitBuild(operand)
		if kind == BuildDict {
			count *= 2
		}
		return 1 - count, count
	case OpCall:
		npos, nkw := SplitCall(operand)
		n := npos + 2*nkw + 1
		return 1 - n, n
	case OpDup:
		return operand, operand
	case OpRot:
		return 0, operand
	case OpNext:
		return 1, 1
	case OpRaise:
		return -operand, operand
	case OpMakeFunction, OpMakeClass:
		return -operand, operand + 1
	case OpImportFrom:
		return 1, 1
	case OpFormat:
		if operand&FormatHasSpec != 0 {
			return -1, 2
		}
		return 0, 1
	}
	return 0, 0
}

// terminates 指令之后是否不会顺序执行
func terminates(op OpCode) bool {
	return op == OpReturn || op == OpRaise || op == OpJump
}

func (v *Verifier) verifyStack() error {
	c := v.code
	n := c.IP()
	v.depth = make([]int, n)
	for i := range v.depth {
		v.depth[i] = -1
	}
	if n == 0 {
		return nil
	}

	work := []int{0}
	v.depth[0] = 0

	// 跳转到 target 时的深度必须与之前记录的一致
	flow := func(from, target, depth int) error {
		if target >= n {
			return v.fail(from, "falls off the end of the code")
		}
		switch v.depth[target] {
		case -1:
			v.depth[target] = depth
			work = append(work, target)
		case depth:
		default:
			return v.fail(target, "inconsistent stack depth %d and %d", v.depth[target], depth)
		}
		return nil
	}

	for len(work) > 0 {
		ip := work[len(work)-1]
		work = work[:len(work)-1]
		depth := v.depth[ip]

		op, operand := c.At(ip)
		delta, needs := stackEffect(op, operand)
		if depth < needs {
			return v.fail(ip, "%s needs %d stack values, has %d", op, needs, depth)
		}
		after := depth + delta
		if after > v.maxStackDepth {
			v.maxStackDepth = after
		}

		switch op {
		case OpJump:
			if err := flow(ip, operand, after); err != nil {
				return err
			}
		case OpJNT, OpJIT:
			if err := flow(ip, operand, after); err != nil {
				return err
			}
		case OpNext:
			// 耗尽时迭代器留在栈上，不压入值
			if err := flow(ip, operand, depth); err != nil {
				return err
			}
		case OpTry:
			// 进入处理入口时异常对象在栈顶
			if err := flow(ip, operand, depth+1); err != nil {
				return err
			}
		}
		if !terminates(op) {
			if err := flow(ip, ip+1, after); err != nil {
				return err
			}
		}
	}
	return nil
}
