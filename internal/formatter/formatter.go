// Package formatter 把 Pyra 源码重新打印为统一的风格
package formatter

import (
	"fmt"

	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/logging"
	"github.com/tangzhangming/pyra/internal/parser"
)

// Format 格式化源代码
//
// 输出会被重新解析，语法树与原来不一致时返回错误而不是输出。
func Format(source, filename string, options *Options) (string, error) {
	if options == nil {
		options = DefaultOptions()
	}
	if err := options.Validate(); err != nil {
		return "", err
	}

	mod, err := parser.FromString(source, filename, logging.Nop())
	if err != nil {
		return "", err
	}

	formatted := NewPrinter(options, source).Print(mod)

	again, err := parser.FromString(formatted, filename, logging.Nop())
	if err != nil {
		return "", fmt.Errorf("%s: formatted output does not parse: %w", filename, err)
	}
	if ast.Dump(again) != ast.Dump(mod) {
		return "", fmt.Errorf("%s: formatting would change the program", filename)
	}
	return formatted, nil
}

// FormatWithDefaultOptions 使用默认选项格式化
func FormatWithDefaultOptions(source, filename string) (string, error) {
	return Format(source, filename, DefaultOptions())
}

// FormatNode 打印单个语法树，不保留注释和空行
func FormatNode(mod *ast.Module, options *Options) string {
	if options == nil {
		options = DefaultOptions()
	}
	return NewPrinter(options, "").Print(mod)
}
