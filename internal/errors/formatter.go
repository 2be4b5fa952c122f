package errors

import (
	"fmt"
	"strings"
)

// ============================================================================
// 格式化器
// ============================================================================

// Formatter 诊断格式化器
//
// 输出形如：
//
//	error[P0001]: Unexpected token on line 2, column 5: ')'
//	 --> main.py:2:5
//	  |
//	2 | f(a))
//	  |     ^
//	 = help: ...
type Formatter struct {
	Colors     bool // 是否使用颜色
	ShowSource bool // 是否显示源代码
	ShowHints  bool // 是否显示修复建议
	TabWidth   int  // Tab 宽度
}

// NewFormatter 创建默认格式化器
func NewFormatter() *Formatter {
	return &Formatter{
		Colors:     colorsEnabled,
		ShowSource: true,
		ShowHints:  true,
		TabWidth:   4,
	}
}

// FormatCompileError 格式化一条诊断
func (f *Formatter) FormatCompileError(err *CompileError, sourceLines []string) string {
	var sb strings.Builder

	levelColor := f.levelColor(err.Level)
	sb.WriteString(f.colorize(err.Level.String(), levelColor))
	if err.Code != "" {
		sb.WriteString(f.colorize(fmt.Sprintf("[%s]", err.Code), levelColor))
	}
	sb.WriteString(fmt.Sprintf(": %s\n", err.Message))

	location := fmt.Sprintf("%s:%d:%d", err.File, err.Line, err.Column)
	sb.WriteString(fmt.Sprintf(" %s %s\n", f.colorize("-->", ColorCyan), f.colorize(location, ColorCyan)))

	if f.ShowSource && err.Line > 0 && err.Line <= len(sourceLines) {
		sb.WriteString(f.formatSourceLine(sourceLines[err.Line-1], err.Line, err.Column, err.EndColumn))
	}

	if f.ShowHints {
		for _, hint := range err.Hints {
			sb.WriteString(fmt.Sprintf("%s %s\n", f.colorize(" = help:", ColorCyan), hint))
		}
	}

	return sb.String()
}

// formatSourceLine 输出出错的源代码行和标注
func (f *Formatter) formatSourceLine(line string, lineNum, startCol, endCol int) string {
	var sb strings.Builder

	width := len(fmt.Sprintf("%d", lineNum))
	gutter := strings.Repeat(" ", width)
	pipe := f.colorize(" |", ColorBlue)

	sb.WriteString(gutter + pipe + "\n")
	sb.WriteString(f.colorize(fmt.Sprintf("%*d", width, lineNum), ColorBlue) + pipe + " " + f.expandTabs(line) + "\n")

	length := endCol - startCol
	if length < 1 {
		length = 1
	}
	col := f.actualColumn(line, startCol)
	sb.WriteString(gutter + pipe + " " + strings.Repeat(" ", col) + f.colorize(strings.Repeat("^", length), ColorRed) + "\n")

	return sb.String()
}

// FormatCompileErrors 格式化多条诊断，sourceCache 以文件名为键
func (f *Formatter) FormatCompileErrors(errs []*CompileError, sourceCache map[string][]string) string {
	var sb strings.Builder
	for i, err := range errs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(f.FormatCompileError(err, sourceCache[err.File]))
	}
	return sb.String()
}

// expandTabs 展开 Tab 为空格
func (f *Formatter) expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", f.TabWidth))
}

// actualColumn 计算展开 Tab 后的列偏移（从0开始）
func (f *Formatter) actualColumn(line string, col int) int {
	actual := 0
	for i, ch := range []rune(line) {
		if i >= col-1 {
			break
		}
		if ch == '\t' {
			actual += f.TabWidth
		} else {
			actual++
		}
	}
	return actual
}

func (f *Formatter) levelColor(level Level) Color {
	switch level {
	case LevelError:
		return ColorRed
	case LevelWarning:
		return ColorYellow
	default:
		return ColorCyan
	}
}

func (f *Formatter) colorize(s string, color Color) string {
	if !f.Colors {
		return s
	}
	return Colorize(s, color)
}
