package errors

import (
	"fmt"

	"github.com/tangzhangming/pyra/internal/i18n"
)

// ============================================================================
// 编译错误
// ============================================================================

// CompileError 词法、语法或编译阶段的诊断
type CompileError struct {
	Code      string   // 错误码 (P0001)
	Level     Level    // 错误级别
	Message   string   // 主消息
	File      string   // 文件路径
	Line      int      // 行号
	Column    int      // 列号
	EndColumn int      // 结束列
	Hints     []string // 修复建议
}

// New 创建一个错误级别的诊断
func New(code, file string, line, column int, message string) *CompileError {
	return &CompileError{
		Code:    code,
		Level:   LevelError,
		Message: message,
		File:    file,
		Line:    line,
		Column:  column,
	}
}

// Error 实现 error 接口
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

// WithSpan 设置标注长度
func (e *CompileError) WithSpan(length int) *CompileError {
	if length > 0 {
		e.EndColumn = e.Column + length
	}
	return e
}

// ============================================================================
// 修复建议
// ============================================================================

var hintsByCode = map[string][]string{
	P0002: {i18n.HintIndentation},
	P0003: {i18n.HintMissingBody},
	P0004: {i18n.HintChain},
	P0005: {i18n.HintTarget},
	C0001: {i18n.HintLoopControl},
}

// Suggestions 返回错误码对应的修复建议（已翻译）
func Suggestions(code string) []string {
	var hints []string
	for _, id := range hintsByCode[code] {
		hints = append(hints, i18n.T(id))
	}
	return hints
}
