package formatter

import (
	"fmt"
	"strings"
)

// 缩进风格
const (
	IndentSpaces = "spaces"
	IndentTabs   = "tabs"
)

// Options 格式化选项
type Options struct {
	// 缩进设置
	IndentStyle string // "tabs" 或 "spaces"
	IndentSize  int    // 空格数（当使用 spaces 时）

	// 代码风格
	SpaceAroundOps     bool // 运算符周围是否有空格
	BlankLinesTopLevel int  // 顶层 def/class 前的空行数，嵌套时固定为 1

	// 注释设置
	PreserveComments bool // 保留注释
}

// DefaultOptions 返回默认格式化选项（4 空格缩进）
func DefaultOptions() *Options {
	return &Options{
		IndentStyle:        IndentSpaces,
		IndentSize:         4,
		SpaceAroundOps:     true,
		BlankLinesTopLevel: 2,
		PreserveComments:   true,
	}
}

// IndentString 一级缩进
func (o *Options) IndentString() string {
	if o.IndentStyle == IndentTabs {
		return "\t"
	}
	return strings.Repeat(" ", o.IndentSize)
}

// Validate 检查选项取值
func (o *Options) Validate() error {
	switch o.IndentStyle {
	case IndentSpaces:
		if o.IndentSize < 1 || o.IndentSize > 16 {
			return fmt.Errorf("indent size must be between 1 and 16, got %d", o.IndentSize)
		}
	case IndentTabs:
	default:
		return fmt.Errorf("indent style must be %q or %q, got %q", IndentSpaces, IndentTabs, o.IndentStyle)
	}
	if o.BlankLinesTopLevel < 0 || o.BlankLinesTopLevel > 4 {
		return fmt.Errorf("top-level blank lines must be between 0 and 4, got %d", o.BlankLinesTopLevel)
	}
	return nil
}
