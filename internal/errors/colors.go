package errors

import (
	"os"
	"strings"
)

// Color 终端颜色
type Color int

const (
	ColorReset Color = iota
	ColorRed
	ColorYellow
	ColorBlue
	ColorCyan
	ColorBold
)

// ANSI 颜色代码
var ansiCodes = map[Color]string{
	ColorReset:  "\033[0m",
	ColorRed:    "\033[31m",
	ColorYellow: "\033[33m",
	ColorBlue:   "\033[34m",
	ColorCyan:   "\033[36m",
	ColorBold:   "\033[1m",
}

// colorsEnabled 是否启用颜色
var colorsEnabled = detectColorSupport()

// detectColorSupport 检测 stderr 是否为支持颜色的终端
func detectColorSupport() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if term := os.Getenv("TERM"); term == "" || term == "dumb" {
		return false
	}
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// ColorsEnabled 检查颜色是否启用
func ColorsEnabled() bool {
	return colorsEnabled
}

// SetColorsEnabled 设置颜色启用状态
func SetColorsEnabled(enabled bool) {
	colorsEnabled = enabled
}

// Colorize 着色字符串
func Colorize(s string, color Color) string {
	if !colorsEnabled {
		return s
	}
	code, ok := ansiCodes[color]
	if !ok {
		return s
	}
	return code + s + ansiCodes[ColorReset]
}

// Strip 移除 ANSI 颜色代码
func Strip(s string) string {
	for _, code := range ansiCodes {
		s = strings.ReplaceAll(s, code, "")
	}
	return s
}
