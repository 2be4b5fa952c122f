// Package errors 提供 Pyra 工具链的诊断记录、错误码和格式化输出
package errors

// ============================================================================
// 错误级别
// ============================================================================

// Level 错误级别
type Level int

const (
	LevelError   Level = iota // 错误
	LevelWarning              // 警告
	LevelNote                 // 提示
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelNote:
		return "note"
	default:
		return "unknown"
	}
}

// ============================================================================
// 错误码
// ============================================================================

const (
	// L: 词法错误
	L0001 = "L0001" // 非法 token

	// P: 语法错误
	P0001 = "P0001" // 意外的 token
	P0002 = "P0002" // 缩进错误
	P0003 = "P0003" // 缺少语句体
	P0004 = "P0004" // if/try 链结构错误
	P0005 = "P0005" // 无效的赋值/删除目标
	P0006 = "P0006" // 无效的字面量
	P0007 = "P0007" // 参数顺序错误

	// C: 编译错误
	C0001 = "C0001" // break/continue 在循环外
	C0002 = "C0002" // 操作数超出编码范围
	C0003 = "C0003" // 解包数量不匹配
	C0004 = "C0004" // 不支持的节点
)

// codeDescriptions 错误码说明
var codeDescriptions = map[string]string{
	L0001: "invalid token",
	P0001: "unexpected token",
	P0002: "indentation error",
	P0003: "missing body",
	P0004: "misplaced clause",
	P0005: "invalid target",
	P0006: "invalid literal",
	P0007: "invalid argument order",
	C0001: "loop control outside loop",
	C0002: "operand out of range",
	C0003: "unpack count mismatch",
	C0004: "unsupported node",
}

// Describe 返回错误码的简短说明
func Describe(code string) string {
	if desc, ok := codeDescriptions[code]; ok {
		return desc
	}
	return "unknown error"
}
