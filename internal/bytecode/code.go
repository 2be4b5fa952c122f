package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ============================================================================
// 常量池
// ============================================================================

// ConstKind 常量标签
type ConstKind uint8

const (
	ConstName ConstKind = iota
	ConstString
	ConstInteger
	ConstFloat
	ConstCode
)

var constKindNames = [...]string{"Name", "String", "Integer", "Float", "Code"}

func (k ConstKind) String() string {
	if int(k) < len(constKindNames) {
		return constKindNames[k]
	}
	return fmt.Sprintf("Const(%d)", k)
}

// Constant 常量池条目
type Constant struct {
	Kind  ConstKind
	Str   string // Name / String
	Int   int64
	Float float64
	Code  *Code
}

// 常量构造
func NameConst(s string) Constant   { return Constant{Kind: ConstName, Str: s} }
func StringConst(s string) Constant { return Constant{Kind: ConstString, Str: s} }
func IntConst(v int64) Constant     { return Constant{Kind: ConstInteger, Int: v} }
func FloatConst(v float64) Constant { return Constant{Kind: ConstFloat, Float: v} }
func CodeConst(code *Code) Constant { return Constant{Kind: ConstCode, Code: code} }

// Equal 按值比较，浮点数按位比较，代码对象按同一性比较
func (c Constant) Equal(o Constant) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case ConstName, ConstString:
		return c.Str == o.Str
	case ConstInteger:
		return c.Int == o.Int
	case ConstFloat:
		return math.Float64bits(c.Float) == math.Float64bits(o.Float)
	case ConstCode:
		return c.Code == o.Code
	}
	return false
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstName:
		return c.Str
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstInteger:
		return strconv.FormatInt(c.Int, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case ConstCode:
		if c.Code == nil {
			return "<code nil>"
		}
		return fmt.Sprintf("<code %s>", c.Code.Name)
	}
	return "?"
}

// ============================================================================
// 代码对象
// ============================================================================

// CodeKind 代码对象种类
type CodeKind uint8

const (
	KindModule CodeKind = iota
	KindFunction
	KindClass
	KindLambda
	KindExpression
)

var codeKindNames = [...]string{"module", "function", "class", "lambda", "expression"}

func (k CodeKind) String() string {
	if int(k) < len(codeKindNames) {
		return codeKindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Code 一个编译单元：模块、函数体、类体、lambda 或表达式
type Code struct {
	Name      string
	Filename  string
	Kind      CodeKind
	FirstLine int
	Params    []string
	Vararg    string
	Kwarg     string

	Instructions []byte     // 大端序指令字
	Lines        []int      // 每条指令对应的源码行
	Constants    []Constant // 常量池
}

// NewCode 创建空代码对象
func NewCode(name, filename string, kind CodeKind, firstLine int) *Code {
	return &Code{
		Name:      name,
		Filename:  filename,
		Kind:      kind,
		FirstLine: firstLine,
	}
}

// IP 下一条指令的位置
func (c *Code) IP() int {
	return len(c.Instructions) / 2
}

// Emit 追加一条指令，返回它的位置
func (c *Code) Emit(op OpCode, operand int, line int) int {
	return c.emitWord(Encode(op, operand), line)
}

// EmitEmpty 预留一个待回填的指令槽，返回它的位置
func (c *Code) EmitEmpty(line int) int {
	return c.emitWord(Placeholder, line)
}

func (c *Code) emitWord(word uint16, line int) int {
	at := c.IP()
	c.Instructions = binary.BigEndian.AppendUint16(c.Instructions, word)
	c.Lines = append(c.Lines, line)
	return at
}

// Patch 回填 at 处的指令
func (c *Code) Patch(at int, op OpCode, operand int) {
	binary.BigEndian.PutUint16(c.Instructions[at*2:], Encode(op, operand))
}

// Word 读取 at 处的原始指令字
func (c *Code) Word(at int) uint16 {
	return binary.BigEndian.Uint16(c.Instructions[at*2:])
}

// At 解码 at 处的指令
func (c *Code) At(at int) (OpCode, int) {
	return Decode(c.Word(at))
}

// Line 返回 at 处指令的源码行
func (c *Code) Line(at int) int {
	if at >= 0 && at < len(c.Lines) {
		return c.Lines[at]
	}
	return 0
}

// AddConstant 加入常量池，已存在的值返回原下标
func (c *Code) AddConstant(k Constant) int {
	for i, existing := range c.Constants {
		if existing.Equal(k) {
			return i
		}
	}
	c.Constants = append(c.Constants, k)
	return len(c.Constants) - 1
}

// ============================================================================
// 反汇编
// ============================================================================

// Disassemble 反汇编代码对象及其嵌套的代码常量
func (c *Code) Disassemble() string {
	var sb strings.Builder
	c.disassemble(&sb)
	return sb.String()
}

func (c *Code) disassemble(sb *strings.Builder) {
	fmt.Fprintf(sb, "=== %s %s (%s) ===\n", c.Kind, c.Name, c.Filename)
	if len(c.Params) > 0 || c.Vararg != "" || c.Kwarg != "" {
		params := append([]string(nil), c.Params...)
		if c.Vararg != "" {
			params = append(params, "*"+c.Vararg)
		}
		if c.Kwarg != "" {
			params = append(params, "**"+c.Kwarg)
		}
		fmt.Fprintf(sb, "params: %s\n", strings.Join(params, ", "))
	}
	for ip := 0; ip < c.IP(); ip++ {
		c.disassembleInstruction(sb, ip)
	}
	for _, k := range c.Constants {
		if k.Kind == ConstCode && k.Code != nil {
			sb.WriteByte('\n')
			k.Code.disassemble(sb)
		}
	}
}

func (c *Code) disassembleInstruction(sb *strings.Builder, ip int) {
	fmt.Fprintf(sb, "%04d ", ip)
	if ip > 0 && c.Line(ip) == c.Line(ip-1) {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(sb, "%4d ", c.Line(ip))
	}

	word := c.Word(ip)
	if word == Placeholder {
		sb.WriteString("<placeholder>\n")
		return
	}
	op, operand := Decode(word)
	fmt.Fprintf(sb, "%-16s %4d", op, operand)
	if note := c.annotate(op, operand); note != "" {
		fmt.Fprintf(sb, " (%s)", note)
	}
	sb.WriteByte('\n')
}

// annotate 操作数的可读说明
func (c *Code) annotate(op OpCode, operand int) string {
	switch {
	case op == OpLoadConst || op.UsesName():
		if operand < len(c.Constants) {
			return c.Constants[operand].String()
		}
		return "out of range"
	case op.IsJump():
		return fmt.Sprintf("to %d", operand)
	}

	switch op {
	case OpSubscr:
		return [...]string{"load", "store", "delete", "?"}[min(operand, 3)]
	case OpBinary:
		return BinaryOp(operand).String()
	case OpUnary:
		return UnaryOp(operand).String()
	case OpCompare:
		return CompareOp(operand).String()
	case OpBuild:
		kind, count := SplitBuild(operand)
		if kind < len(buildNames) {
			return fmt.Sprintf("%s %d", buildNames[kind], count)
		}
	case OpCall:
		npos, nkw := SplitCall(operand)
		return fmt.Sprintf("%d positional, %d keyword", npos, nkw)
	case OpLoadSpecial:
		if operand < len(specialNames) {
			return specialNames[operand]
		}
	case OpFormat:
		conv := [...]string{"", "!s", "!r", "!a"}[operand&3]
		if operand&FormatHasSpec != 0 {
			conv += " with spec"
		}
		return strings.TrimSpace(conv)
	}
	return ""
}
