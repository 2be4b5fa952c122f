package formatter

import (
	"sort"
	"strings"

	"github.com/tangzhangming/pyra/internal/lexer"
	"github.com/tangzhangming/pyra/internal/token"
)

// ============================================================================
// 注释收集
// ============================================================================
//
// 行尾注释来自词法分析器的 Comment token。整行注释在读取缩进时被跳过，
// 这里按行扫描源码找回，三引号字符串内部的行除外。
//
// ============================================================================

type comment struct {
	line int
	text string
}

// collectComments 返回按行号排序的注释
func collectComments(source string) []comment {
	byLine := make(map[int]string)
	inString := make(map[int]bool)

	for _, tok := range lexer.FromString(source, "").All() {
		switch tok.Type {
		case token.Comment:
			byLine[tok.Line] = tok.Value
		case token.String, token.FString:
			for i := 1; i <= strings.Count(tok.Value, "\n"); i++ {
				inString[tok.Line+i] = true
			}
		}
	}

	for i, text := range strings.Split(source, "\n") {
		line := i + 1
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(trimmed, "#") && !inString[line] {
			byLine[line] = trimmed
		}
	}

	comments := make([]comment, 0, len(byLine))
	for line, text := range byLine {
		comments = append(comments, comment{line: line, text: text})
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].line < comments[j].line
	})
	return comments
}
