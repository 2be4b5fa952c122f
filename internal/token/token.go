package token

import "fmt"

// ============================================================================
// Token 类型定义
// ============================================================================
//
// TokenType 是封闭枚举，按类别分组：
// 1. 结构标记（Invalid, End, NewLine, Identation, Comment）
// 2. 字面量（标识符、数字、字符串）
// 3. 运算符（算术、比较、位运算、赋值）
// 4. 分隔符（括号、逗号、冒号等）
// 5. 关键字
//
// 下游的解释器、反汇编器依赖完整的枚举集合，新增类型只能追加在所属分组内。
//
// ============================================================================

// TokenType 表示 Token 的类型
type TokenType int

const (
	// ----------------------------------------------------------
	// 结构标记
	// ----------------------------------------------------------
	Invalid    TokenType = iota // 非法字符序列
	End                         // 输入结束
	NewLine                     // 逻辑行结束
	Identation                  // 行首缩进，值为原始空白
	Comment                     // # 注释

	// ----------------------------------------------------------
	// 字面量
	// ----------------------------------------------------------
	literal_beg
	Identifier // name
	Integer    // 123, 0x1F
	Float      // 1.5
	String     // 'abc' "abc"
	FString    // f"a{b}"
	literal_end

	// ----------------------------------------------------------
	// 运算符
	// ----------------------------------------------------------
	operator_beg
	OpAdd       // +
	OpSub       // -
	OpMul       // *
	OpDiv       // /
	OpFloorDiv  // //
	OpMod       // %
	OpExp       // **
	OpLShift    // <<
	OpRShift    // >>
	OpBitAnd    // &
	OpBitOr     // |
	OpBitXor    // ^
	OpBitNot    // ~
	OpEq        // ==
	OpNotEq     // !=
	OpLess      // <
	OpLessEq    // <=
	OpGreater   // >
	OpGreaterEq // >=
	OpAssign    // =

	augassign_beg
	OpAddAssign      // +=
	OpSubAssign      // -=
	OpMulAssign      // *=
	OpDivAssign      // /=
	OpFloorDivAssign // //=
	OpModAssign      // %=
	OpExpAssign      // **=
	OpLShiftAssign   // <<=
	OpRShiftAssign   // >>=
	OpAndAssign      // &=
	OpOrAssign       // |=
	OpXorAssign      // ^=
	augassign_end
	operator_end

	// ----------------------------------------------------------
	// 分隔符
	// ----------------------------------------------------------
	LParen    // (
	RParen    // )
	LBracket  // [
	RBracket  // ]
	LBrace    // {
	RBrace    // }
	Comma     // ,
	Colon     // :
	Dot       // .
	Semicolon // ;

	// ----------------------------------------------------------
	// 关键字
	// ----------------------------------------------------------
	keyword_beg
	KwFalse
	KwNone
	KwTrue
	KwAnd
	KwAs
	KwAssert
	KwBreak
	KwClass
	KwContinue
	KwDef
	KwDel
	KwElif
	KwElse
	KwExcept
	KwFinally
	KwFor
	KwFrom
	KwGlobal
	KwIf
	KwImport
	KwIn
	KwIs
	KwLambda
	KwNonlocal
	KwNot
	KwOr
	KwPass
	KwRaise
	KwReturn
	KwTry
	KwWhile
	KwWith
	KwYield
	keyword_end
)

var tokenNames = map[TokenType]string{
	Invalid:    "Invalid",
	End:        "End",
	NewLine:    "NewLine",
	Identation: "Identation",
	Comment:    "Comment",

	Identifier: "Identifier",
	Integer:    "Integer",
	Float:      "Float",
	String:     "String",
	FString:    "FString",

	OpAdd:       "OpAdd",
	OpSub:       "OpSub",
	OpMul:       "OpMul",
	OpDiv:       "OpDiv",
	OpFloorDiv:  "OpFloorDiv",
	OpMod:       "OpMod",
	OpExp:       "OpExp",
	OpLShift:    "OpLShift",
	OpRShift:    "OpRShift",
	OpBitAnd:    "OpBitAnd",
	OpBitOr:     "OpBitOr",
	OpBitXor:    "OpBitXor",
	OpBitNot:    "OpBitNot",
	OpEq:        "OpEq",
	OpNotEq:     "OpNotEq",
	OpLess:      "OpLess",
	OpLessEq:    "OpLessEq",
	OpGreater:   "OpGreater",
	OpGreaterEq: "OpGreaterEq",
	OpAssign:    "OpAssign",

	OpAddAssign:      "OpAddAssign",
	OpSubAssign:      "OpSubAssign",
	OpMulAssign:      "OpMulAssign",
	OpDivAssign:      "OpDivAssign",
	OpFloorDivAssign: "OpFloorDivAssign",
	OpModAssign:      "OpModAssign",
	OpExpAssign:      "OpExpAssign",
	OpLShiftAssign:   "OpLShiftAssign",
	OpRShiftAssign:   "OpRShiftAssign",
	OpAndAssign:      "OpAndAssign",
	OpOrAssign:       "OpOrAssign",
	OpXorAssign:      "OpXorAssign",

	LParen:    "LParen",
	RParen:    "RParen",
	LBracket:  "LBracket",
	RBracket:  "RBracket",
	LBrace:    "LBrace",
	RBrace:    "RBrace",
	Comma:     "Comma",
	Colon:     "Colon",
	Dot:       "Dot",
	Semicolon: "Semicolon",

	KwFalse:    "KwFalse",
	KwNone:     "KwNone",
	KwTrue:     "KwTrue",
	KwAnd:      "KwAnd",
	KwAs:       "KwAs",
	KwAssert:   "KwAssert",
	KwBreak:    "KwBreak",
	KwClass:    "KwClass",
	KwContinue: "KwContinue",
	KwDef:      "KwDef",
	KwDel:      "KwDel",
	KwElif:     "KwElif",
	KwElse:     "KwElse",
	KwExcept:   "KwExcept",
	KwFinally:  "KwFinally",
	KwFor:      "KwFor",
	KwFrom:     "KwFrom",
	KwGlobal:   "KwGlobal",
	KwIf:       "KwIf",
	KwImport:   "KwImport",
	KwIn:       "KwIn",
	KwIs:       "KwIs",
	KwLambda:   "KwLambda",
	KwNonlocal: "KwNonlocal",
	KwNot:      "KwNot",
	KwOr:       "KwOr",
	KwPass:     "KwPass",
	KwRaise:    "KwRaise",
	KwReturn:   "KwReturn",
	KwTry:      "KwTry",
	KwWhile:    "KwWhile",
	KwWith:     "KwWith",
	KwYield:    "KwYield",
}

// keywords 关键字表
var keywords = map[string]TokenType{
	"False":    KwFalse,
	"None":     KwNone,
	"True":     KwTrue,
	"and":      KwAnd,
	"as":       KwAs,
	"assert":   KwAssert,
	"break":    KwBreak,
	"class":    KwClass,
	"continue": KwContinue,
	"def":      KwDef,
	"del":      KwDel,
	"elif":     KwElif,
	"else":     KwElse,
	"except":   KwExcept,
	"finally":  KwFinally,
	"for":      KwFor,
	"from":     KwFrom,
	"global":   KwGlobal,
	"if":       KwIf,
	"import":   KwImport,
	"in":       KwIn,
	"is":       KwIs,
	"lambda":   KwLambda,
	"nonlocal": KwNonlocal,
	"not":      KwNot,
	"or":       KwOr,
	"pass":     KwPass,
	"raise":    KwRaise,
	"return":   KwReturn,
	"try":      KwTry,
	"while":    KwWhile,
	"with":     KwWith,
	"yield":    KwYield,
}

// LookupIdent 查找标识符对应的关键字类型，不是关键字则返回 Identifier
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return Identifier
}

// IsKeyword 判断是否为关键字
func IsKeyword(t TokenType) bool {
	return t > keyword_beg && t < keyword_end
}

// IsLiteral 判断是否为字面量
func IsLiteral(t TokenType) bool {
	return t > literal_beg && t < literal_end
}

// IsOperator 判断是否为运算符（含赋值）
func IsOperator(t TokenType) bool {
	return t > operator_beg && t < operator_end && t != augassign_beg && t != augassign_end
}

// IsAugAssign 判断是否为增量赋值运算符（+= 等）
func IsAugAssign(t TokenType) bool {
	return t > augassign_beg && t < augassign_end
}

// String 返回 token 类型名称
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// MarshalText 以名称形式序列化
func (t TokenType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ============================================================================
// Token - 词法单元
// ============================================================================

// Token 表示一个词法单元
//
// Value 是 token 的文本：标识符和运算符为原文，字符串为转义处理后的内容，
// Identation 为行首的原始空白，Invalid 为出错的字符序列。
type Token struct {
	Type   TokenType `json:"type"`
	Value  string    `json:"value"`
	Line   int       `json:"line"`   // 行号（从1开始）
	Column int       `json:"column"` // 列号（从1开始）
}

// New 创建新的 Token
func New(tokenType TokenType, value string, line, column int) Token {
	return Token{Type: tokenType, Value: value, Line: line, Column: column}
}

// String 返回 Token 的字符串表示，用于调试
func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Value, t.Line, t.Column)
}

// Width 返回 Identation token 表示的缩进宽度
func (t Token) Width() int {
	return len(t.Value)
}
