// Package bytecode 定义 Pyra 栈式虚拟机的指令集、代码对象和常量池
package bytecode

import (
	"fmt"
)

// OpCode 操作码类型
//
// 每条指令固定 2 字节（大端序）：高 5 位是操作码，低 11 位是操作数。
// 指令指针以指令为单位，IP = 字节长度 / 2。
type OpCode byte

const (
	// 常量与名字
	OpLoadConst  OpCode = iota // 压入常量 (const)
	OpLoadName                 // 按名字加载 (const Name)
	OpStoreName                // 弹出栈顶并绑定名字 (const Name)
	OpDeleteName               // 删除名字绑定 (const Name)

	// 属性与下标
	OpLoadAttr   // obj -> obj.name (const Name)
	OpStoreAttr  // value obj -> ；先弹出 obj 再弹出 value (const Name)
	OpDeleteAttr // obj -> (const Name)
	OpSubscr     // 下标访问，操作数是 SubscrLoad/SubscrStore/SubscrDelete

	// 运算
	OpBinary  // a b -> a op b (BinaryOp)
	OpUnary   // a -> op a (UnaryOp)
	OpCompare // a b -> a op b (CompareOp)

	// 复合值与调用
	OpBuild // 构造 List/Tuple/Dict/Slice，操作数 kind<<9 | count
	OpCall  // 调用，操作数 nkw<<6 | npos

	// 控制流
	OpReturn // 弹出栈顶并返回
	OpPop    // 弹出栈顶
	OpJump   // 无条件跳转 (ip)
	OpJNT    // 弹出栈顶，为假时跳转 (ip)
	OpJIT    // 弹出栈顶，为真时跳转 (ip)
	OpDup    // 复制栈顶 n 个元素
	OpRot    // 把栈顶移到第 n 个位置

	// 迭代
	OpIter // obj -> iterator
	OpNext // 迭代器有值时压入下一个值，耗尽时跳转 (ip)，迭代器留在栈上

	// 异常
	OpTry    // 注册异常处理入口 (ip)
	OpHandle // 注销最近的处理入口
	OpRaise  // 抛出异常，操作数 0 重新抛出，1 异常，2 异常和原因

	// 定义
	OpMakeFunction // defaults... code -> function (默认值个数)
	OpMakeClass    // bases... code -> class (基类个数)

	// 导入
	OpImport     // 压入模块 (const Name)
	OpImportFrom // module -> module attr (const Name)

	// 其他
	OpLoadSpecial // 压入 None/True/False
	OpFormat      // 格式化替换字段，操作数 conversion | FormatHasSpec

	opCount // 操作码个数
)

// 编码常量
const (
	OperandBits = 11
	MaxOperand  = 1<<OperandBits - 1 // 2047
	Placeholder = 0xFFFF             // emitEmpty 预留的待回填槽位
	NumOpcodes  = int(opCount)
)

var opNames = [...]string{
	OpLoadConst:    "LOAD_CONST",
	OpLoadName:     "LOAD_NAME",
	OpStoreName:    "STORE_NAME",
	OpDeleteName:   "DELETE_NAME",
	OpLoadAttr:     "LOAD_ATTR",
	OpStoreAttr:    "STORE_ATTR",
	OpDeleteAttr:   "DELETE_ATTR",
	OpSubscr:       "SUBSCR",
	OpBinary:       "BINARY",
	OpUnary:        "UNARY",
	OpCompare:      "COMPARE",
	OpBuild:        "BUILD",
	OpCall:         "CALL",
	OpReturn:       "RETURN",
	OpPop:          "POP",
	OpJump:         "JMP",
	OpJNT:          "JNT",
	OpJIT:          "JIT",
	OpDup:          "DUP",
	OpRot:          "ROT",
	OpIter:         "ITER",
	OpNext:         "NEXT",
	OpTry:          "TRY",
	OpHandle:       "HANDLE",
	OpRaise:        "RAISE",
	OpMakeFunction: "MAKE_FUNCTION",
	OpMakeClass:    "MAKE_CLASS",
	OpImport:       "IMPORT",
	OpImportFrom:   "IMPORT_FROM",
	OpLoadSpecial:  "LOAD_SPECIAL",
	OpFormat:       "FORMAT",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("UNKNOWN(%d)", op)
}

// IsJump 操作数是否是跳转目标
func (op OpCode) IsJump() bool {
	switch op {
	case OpJump, OpJNT, OpJIT, OpNext, OpTry:
		return true
	}
	return false
}

// UsesName 操作数是否是 Name 常量的下标
func (op OpCode) UsesName() bool {
	switch op {
	case OpLoadName, OpStoreName, OpDeleteName,
		OpLoadAttr, OpStoreAttr, OpDeleteAttr,
		OpImport, OpImportFrom:
		return true
	}
	return false
}

// ============================================================================
// 操作数取值
// ============================================================================

// SUBSCR 模式
const (
	SubscrLoad   = 0 // obj idx -> obj[idx]
	SubscrStore  = 1 // value obj idx -> ；obj[idx] = value
	SubscrDelete = 2 // obj idx -> ；del obj[idx]
)

// BUILD 的种类，元素按源码逆序压栈，出栈顺序即源码顺序
const (
	BuildList  = 0
	BuildTuple = 1
	BuildDict  = 2 // count 是键值对个数，每对先压 value 再压 key
	BuildSlice = 3 // 固定 3 个值 lower upper step，缺省用 None
)

var buildNames = [...]string{"List", "Tuple", "Dict", "Slice"}

// BuildOperand 组合 BUILD 的操作数
func BuildOperand(kind, count int) int { return kind<<9 | count }

// SplitBuild 拆分 BUILD 的操作数
func SplitBuild(operand int) (kind, count int) { return operand >> 9, operand & 0x1FF }

// MaxBuildCount BUILD 单次能构造的最大元素数
const MaxBuildCount = 0x1FF

// CallOperand 组合 CALL 的操作数
//
// 栈布局（自底向上）：函数，逆序的关键字参数（value, name），逆序的位置参数。
func CallOperand(npos, nkw int) int { return nkw<<6 | npos }

// SplitCall 拆分 CALL 的操作数
func SplitCall(operand int) (npos, nkw int) { return operand & 0x3F, operand >> 6 }

// 调用参数个数上限
const (
	MaxPositional = 0x3F
	MaxKeywords   = 0x1F
)

// LOAD_SPECIAL 的取值
const (
	SpecialNone  = 0
	SpecialTrue  = 1
	SpecialFalse = 2
)

var specialNames = [...]string{"None", "True", "False"}

// FORMAT 的 conversion 取值，FormatHasSpec 表示栈顶还有格式说明
const (
	FormatNone    = 0
	FormatStr     = 1
	FormatRepr    = 2
	FormatASCII   = 3
	FormatHasSpec = 4
)

// RAISE 的取值
const (
	RaiseReraise = 0
	RaiseExc     = 1
	RaiseCause   = 2
)

// BinaryOp BINARY 的操作数
type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMult
	BinDiv
	BinFloorDiv
	BinMod
	BinPow
	BinLShift
	BinRShift
	BinBitOr
	BinBitXor
	BinBitAnd
	binaryCount
)

var binaryNames = [...]string{"+", "-", "*", "/", "//", "%", "**", "<<", ">>", "|", "^", "&"}

func (o BinaryOp) String() string {
	if o >= 0 && o < binaryCount {
		return binaryNames[o]
	}
	return fmt.Sprintf("?%d", int(o))
}

// UnaryOp UNARY 的操作数
type UnaryOp int

const (
	UnaryInvert UnaryOp = iota
	UnaryNot
	UnaryPlus
	UnaryMinus
	unaryCount
)

var unaryNames = [...]string{"~", "not", "+", "-"}

func (o UnaryOp) String() string {
	if o >= 0 && o < unaryCount {
		return unaryNames[o]
	}
	return fmt.Sprintf("?%d", int(o))
}

// CompareOp COMPARE 的操作数
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpNotEq
	CmpLt
	CmpLtE
	CmpGt
	CmpGtE
	CmpIs
	CmpIsNot
	CmpIn
	CmpNotIn
	CmpExcMatch // 异常类型匹配，用于 except 子句
	compareCount
)

var compareNames = [...]string{"==", "!=", "<", "<=", ">", ">=", "is", "is not", "in", "not in", "exception match"}

func (o CompareOp) String() string {
	if o >= 0 && o < compareCount {
		return compareNames[o]
	}
	return fmt.Sprintf("?%d", int(o))
}

// ============================================================================
// 指令编码
// ============================================================================

// Encode 把操作码和操作数编码为一个指令字
func Encode(op OpCode, operand int) uint16 {
	return uint16(op)<<OperandBits | uint16(operand&MaxOperand)
}

// Decode 拆分指令字
func Decode(word uint16) (OpCode, int) {
	return OpCode(word >> OperandBits), int(word & MaxOperand)
}
