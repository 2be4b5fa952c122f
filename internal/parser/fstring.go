package parser

import (
	"strings"

	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/errors"
	"github.com/tangzhangming/pyra/internal/i18n"
	"github.com/tangzhangming/pyra/internal/lexer"
	"github.com/tangzhangming/pyra/internal/logging"
	"github.com/tangzhangming/pyra/internal/token"
)

// ============================================================================
// f-string
// ============================================================================
//
// f"a{x!r:>{w}}b" 被拆成字面量和替换字段，按顺序用 + 连接：
//
//	BinOp(BinOp(Constant('a'), Add, FormattedValue(x, 'r', spec)), Add, Constant('b'))
//
// {{ 和 }} 是转义的花括号。格式说明本身也按 f-string 规则解析。
// 字段中的表达式由独立的子解析器解析，节点分配在同一个 Arena 中，
// 节点位置统一记为 f-string token 的位置。
//
// ============================================================================

func (p *Parser) parseFString(tok token.Token) ast.Expr {
	parts, ok := p.fstringParts(tok, tok.Value)
	if !ok {
		return nil
	}
	return p.joinParts(tok, parts)
}

// joinParts 用 + 连接各部分，没有任何部分时是空字符串
func (p *Parser) joinParts(tok token.Token, parts []ast.Expr) ast.Expr {
	pos := p.pos(tok)
	if len(parts) == 0 {
		return p.arena.NewConstant(pos, "")
	}
	expr := parts[0]
	for _, part := range parts[1:] {
		expr = p.arena.NewBinOp(pos, expr, ast.Add, part)
	}
	return expr
}

func (p *Parser) fstringParts(tok token.Token, s string) ([]ast.Expr, bool) {
	pos := p.pos(tok)
	var parts []ast.Expr
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, p.arena.NewConstant(pos, lit.String()))
			lit.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '{' && i+1 < len(s) && s[i+1] == '{':
			lit.WriteByte('{')
			i++
		case ch == '}' && i+1 < len(s) && s[i+1] == '}':
			lit.WriteByte('}')
			i++
		case ch == '}':
			p.badField(tok, s[i:])
			return nil, false
		case ch == '{':
			end := closingBrace(s, i)
			if end < 0 {
				p.badField(tok, s[i:])
				return nil, false
			}
			flush()
			fv := p.formattedValue(tok, s[i+1:end])
			if fv == nil {
				return nil, false
			}
			parts = append(parts, fv)
			i = end
		default:
			lit.WriteByte(ch)
		}
	}
	flush()
	return parts, true
}

// closingBrace 返回与 s[open] 处 { 匹配的 } 的下标，跳过引号内的内容
func closingBrace(s string, open int) int {
	depth := 0
	var quote byte
	for j := open; j < len(s); j++ {
		c := s[j]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
			if depth == 0 {
				if c == '}' {
					return j
				}
				return -1
			}
		}
	}
	return -1
}

// formattedValue 解析 expr[!conversion][:spec]
func (p *Parser) formattedValue(tok token.Token, field string) ast.Expr {
	exprEnd, convAt, specAt := len(field), -1, -1
	depth := 0
	var quote byte
scan:
	for j := 0; j < len(field); j++ {
		c := field[j]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		case '!':
			if depth == 0 && (j+1 >= len(field) || field[j+1] != '=') {
				convAt = j
				exprEnd = j
				break scan
			}
		case ':':
			if depth == 0 {
				specAt = j
				exprEnd = j
				break scan
			}
		}
	}

	var conversion rune
	if convAt >= 0 {
		rest := field[convAt+1:]
		if len(rest) == 0 || !strings.ContainsRune("sra", rune(rest[0])) {
			p.badField(tok, field)
			return nil
		}
		conversion = rune(rest[0])
		switch {
		case len(rest) == 1:
		case rest[1] == ':':
			specAt = convAt + 2
		default:
			p.badField(tok, field)
			return nil
		}
	}

	text := strings.TrimSpace(field[:exprEnd])
	if text == "" {
		p.badField(tok, field)
		return nil
	}
	value := p.subExpression(tok, text, field)
	if value == nil {
		return nil
	}

	var spec ast.Expr
	if specAt >= 0 {
		parts, ok := p.fstringParts(tok, field[specAt+1:])
		if !ok {
			return nil
		}
		spec = p.joinParts(tok, parts)
	}
	return p.arena.NewFormattedValue(p.pos(tok), value, conversion, spec)
}

// subExpression 用子解析器解析替换字段中的表达式
func (p *Parser) subExpression(tok token.Token, text, field string) ast.Expr {
	sub := New(lexer.FromString(text, p.filename), logging.Nop())
	sub.arena = p.arena
	sub.exprDepth = p.exprDepth

	value := sub.parseExprList()
	if sub.match(token.NewLine) {
		sub.match(token.Identation)
	}
	if sub.panicMode || !sub.check(token.End) {
		p.badField(tok, field)
		return nil
	}
	return value
}

func (p *Parser) badField(tok token.Token, field string) {
	p.fail(errors.P0006, tok, i18n.T(i18n.ErrBadFString, tok.Line, tok.Column, field))
}
