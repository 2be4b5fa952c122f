package parser

import (
	"strconv"
	"strings"

	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/errors"
	"github.com/tangzhangming/pyra/internal/i18n"
	"github.com/tangzhangming/pyra/internal/token"
)

// ============================================================================
// 表达式解析
// ============================================================================
//
// 表达式在操作数和运算符之间交替。运算符一出现就立即与左侧已有结果折叠，
// 不区分优先级：a+b*c 解析为 (a+b)*c。需要其他结合顺序时用括号。
//
// 连续的比较运算扩展同一个 Compare 节点，连续相同的 and/or 扩展同一个
// BoolOp 节点；括号内产生的节点不会被扩展。
//
// ============================================================================

var binaryOperators = map[token.TokenType]ast.Operator{
	token.OpAdd:      ast.Add,
	token.OpSub:      ast.Sub,
	token.OpMul:      ast.Mult,
	token.OpDiv:      ast.Div,
	token.OpFloorDiv: ast.FloorDiv,
	token.OpMod:      ast.Modulo,
	token.OpExp:      ast.Pow,
	token.OpLShift:   ast.LShift,
	token.OpRShift:   ast.RShift,
	token.OpBitAnd:   ast.BitAnd,
	token.OpBitOr:    ast.BitOr,
	token.OpBitXor:   ast.BitXor,
}

var compareOperators = map[token.TokenType]ast.CmpOp{
	token.OpEq:        ast.Eq,
	token.OpNotEq:     ast.NotEq,
	token.OpLess:      ast.Lt,
	token.OpLessEq:    ast.LtE,
	token.OpGreater:   ast.Gt,
	token.OpGreaterEq: ast.GtE,
	token.KwIn:        ast.In,
}

var unaryOperators = map[token.TokenType]ast.UnaryOperator{
	token.OpBitNot: ast.Invert,
	token.KwNot:    ast.Not,
	token.OpAdd:    ast.UAdd,
	token.OpSub:    ast.USub,
}

// isExprStart token 能否开始一个表达式
func isExprStart(tok token.Token) bool {
	switch tok.Type {
	case token.Identifier, token.Integer, token.Float, token.String, token.FString,
		token.KwTrue, token.KwFalse, token.KwNone, token.KwNot, token.KwLambda,
		token.LParen, token.LBracket, token.LBrace,
		token.OpSub, token.OpAdd, token.OpBitNot:
		return true
	}
	return false
}

// enter 增加嵌套深度，超过上限时报错
func (p *Parser) enter() bool {
	p.exprDepth++
	if p.exprDepth > maxExprDepth {
		tok := p.peek()
		p.fail(errors.P0001, tok, i18n.T(i18n.ErrNestingTooDeep, tok.Line, tok.Column))
		return false
	}
	return true
}

func (p *Parser) leave() {
	p.exprDepth--
}

// parseExprList expr {, expr} [,]，有逗号时产生 Tuple
func (p *Parser) parseExprList() ast.Expr {
	first := p.peek()
	expr := p.parseExpression()
	if p.panicMode || !p.check(token.Comma) {
		return expr
	}

	elts := []ast.Expr{expr}
	for p.match(token.Comma) {
		if !isExprStart(p.peek()) {
			break
		}
		elts = append(elts, p.parseExpression())
		if p.panicMode {
			return nil
		}
	}
	return p.arena.NewTuple(p.pos(first), elts, ast.Load)
}

// parseExpression 操作数与运算符交替，从左到右立即折叠
func (p *Parser) parseExpression() ast.Expr {
	defer p.leave()
	if !p.enter() {
		return nil
	}

	first := p.peek()
	pos := p.pos(first)
	left := p.parseOperand()
	folded := false // left 是否由本层折叠产生

	for !p.panicMode {
		tok := p.peek()

		if op, ok := binaryOperators[tok.Type]; ok {
			p.advance()
			right := p.parseOperand()
			left = p.arena.NewBinOp(pos, left, op, right)
			folded = true
			continue
		}

		if tok.Type == token.KwAnd || tok.Type == token.KwOr {
			op := ast.And
			if tok.Type == token.KwOr {
				op = ast.Or
			}
			p.advance()
			right := p.parseOperand()
			if b, ok := left.(*ast.BoolOp); ok && folded && b.Op == op {
				b.Values = append(b.Values, right)
			} else {
				left = p.arena.NewBoolOp(pos, op, []ast.Expr{left, right})
			}
			folded = true
			continue
		}

		op, ok := p.compareOperator()
		if !ok {
			break
		}
		right := p.parseOperand()
		if c, isCmp := left.(*ast.Compare); isCmp && folded {
			c.Ops = append(c.Ops, op)
			c.Comparators = append(c.Comparators, right)
		} else {
			left = p.arena.NewCompare(pos, left, op, right)
		}
		folded = true
	}

	if p.panicMode {
		return nil
	}
	return left
}

// compareOperator 消费一个比较运算符，包括 is [not] 和 not in
func (p *Parser) compareOperator() (ast.CmpOp, bool) {
	tok := p.peek()
	if op, ok := compareOperators[tok.Type]; ok {
		p.advance()
		return op, true
	}
	switch tok.Type {
	case token.KwIs:
		p.advance()
		if p.match(token.KwNot) {
			return ast.IsNot, true
		}
		return ast.Is, true
	case token.KwNot:
		p.advance()
		if _, ok := p.consume(token.KwIn); !ok {
			return 0, false
		}
		return ast.NotIn, true
	}
	return 0, false
}

// parseOperand 一元运算、lambda 或带后缀的原子
func (p *Parser) parseOperand() ast.Expr {
	defer p.leave()
	if !p.enter() {
		return nil
	}

	tok := p.peek()
	if op, ok := unaryOperators[tok.Type]; ok {
		p.advance()
		operand := p.parseOperand()
		if p.panicMode {
			return nil
		}
		return p.arena.NewUnaryOp(p.pos(tok), op, operand)
	}
	if tok.Type == token.KwLambda {
		return p.parseLambda()
	}

	atom := p.parseAtom()
	if p.panicMode {
		return nil
	}
	return p.parseSuffixes(atom)
}

func (p *Parser) parseAtom() ast.Expr {
	tok := p.peek()
	pos := p.pos(tok)

	switch tok.Type {
	case token.Identifier:
		p.advance()
		return p.arena.NewName(pos, tok.Value, ast.Load)

	case token.Integer:
		p.advance()
		return p.parseInteger(tok)

	case token.Float:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.fail(errors.P0006, tok, i18n.T(i18n.ErrInvalidLiteral, tok.Line, tok.Column, tok.Value))
			return nil
		}
		return p.arena.NewConstant(pos, v)

	case token.String:
		p.advance()
		// 相邻的字符串字面量拼接为一个
		var sb strings.Builder
		sb.WriteString(tok.Value)
		for p.check(token.String) {
			sb.WriteString(p.advance().Value)
		}
		return p.arena.NewConstant(pos, sb.String())

	case token.FString:
		p.advance()
		return p.parseFString(tok)

	case token.KwTrue:
		p.advance()
		return p.arena.NewConstant(pos, true)
	case token.KwFalse:
		p.advance()
		return p.arena.NewConstant(pos, false)
	case token.KwNone:
		p.advance()
		return p.arena.NewConstant(pos, nil)

	case token.LParen:
		return p.parseParen()
	case token.LBracket:
		return p.parseList()
	case token.LBrace:
		return p.parseDict()
	}

	p.unexpected(tok)
	return nil
}

// parseInteger 十进制或 0x 十六进制整数
func (p *Parser) parseInteger(tok token.Token) ast.Expr {
	var v int64
	var err error
	text := tok.Value
	if len(text) > 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
		v, err = strconv.ParseInt(text[2:], 16, 64)
	} else {
		v, err = strconv.ParseInt(text, 10, 64)
	}
	if err != nil {
		p.fail(errors.P0006, tok, i18n.T(i18n.ErrInvalidLiteral, tok.Line, tok.Column, text))
		return nil
	}
	return p.arena.NewConstant(p.pos(tok), v)
}

// parseParen 括号表达式或元组
func (p *Parser) parseParen() ast.Expr {
	lp := p.advance()
	if p.match(token.RParen) {
		return p.arena.NewTuple(p.pos(lp), nil, ast.Load)
	}

	first := p.parseExpression()
	if p.panicMode {
		return nil
	}
	if !p.check(token.Comma) {
		if _, ok := p.consume(token.RParen); !ok {
			return nil
		}
		return first
	}

	elts := []ast.Expr{first}
	for p.match(token.Comma) {
		if p.check(token.RParen) {
			break
		}
		elts = append(elts, p.parseExpression())
		if p.panicMode {
			return nil
		}
	}
	if _, ok := p.consume(token.RParen); !ok {
		return nil
	}
	return p.arena.NewTuple(p.pos(lp), elts, ast.Load)
}

func (p *Parser) parseList() ast.Expr {
	lb := p.advance()
	var elts []ast.Expr
	for !p.check(token.RBracket) {
		elts = append(elts, p.parseExpression())
		if p.panicMode || !p.match(token.Comma) {
			break
		}
	}
	if _, ok := p.consume(token.RBracket); !ok {
		return nil
	}
	return p.arena.NewList(p.pos(lb), elts, ast.Load)
}

// parseDict {key: value, ...}
func (p *Parser) parseDict() ast.Expr {
	lb := p.advance()
	var keys, values []ast.Expr
	for !p.check(token.RBrace) {
		key := p.parseExpression()
		if _, ok := p.consume(token.Colon); !ok {
			return nil
		}
		value := p.parseExpression()
		if p.panicMode {
			return nil
		}
		keys = append(keys, key)
		values = append(values, value)
		if !p.match(token.Comma) {
			break
		}
	}
	if _, ok := p.consume(token.RBrace); !ok {
		return nil
	}
	return p.arena.NewDict(p.pos(lb), keys, values)
}

// parseLambda lambda params: expr
func (p *Parser) parseLambda() ast.Expr {
	kw := p.advance()
	args := p.parseParameters(token.Colon)
	if _, ok := p.consume(token.Colon); !ok {
		return nil
	}
	body := p.parseExpression()
	if p.panicMode {
		return nil
	}
	return p.arena.NewLambda(p.pos(kw), args, body)
}

// ============================================================================
// 后缀：.attr [subscript] (call)
// ============================================================================

func (p *Parser) parseSuffixes(expr ast.Expr) ast.Expr {
	for {
		switch p.peek().Type {
		case token.Dot:
			p.advance()
			name, ok := p.consume(token.Identifier)
			if !ok {
				return nil
			}
			expr = p.arena.NewAttribute(expr.Pos(), expr, name.Value, ast.Load)
		case token.LBracket:
			expr = p.parseSubscript(expr)
		case token.LParen:
			expr = p.parseCall(expr)
		default:
			return expr
		}
		if p.panicMode {
			return nil
		}
	}
}

// parseSubscript value[index] / value[lower:upper:step] / value[a, b]
func (p *Parser) parseSubscript(value ast.Expr) ast.Expr {
	p.advance()

	var items []ast.Expr
	var commas []token.Token
	for {
		items = append(items, p.parseSliceItem())
		if p.panicMode {
			return nil
		}
		if !p.check(token.Comma) {
			break
		}
		commas = append(commas, p.advance())
		if p.check(token.RBracket) {
			break
		}
	}
	if _, ok := p.consume(token.RBracket); !ok {
		return nil
	}

	if len(items) == 1 && len(commas) == 0 {
		if s, ok := items[0].(*ast.Slice); ok {
			return p.arena.NewSubscript(value.Pos(), value, s, ast.Load)
		}
		index := p.arena.NewIndex(items[0].Pos(), items[0])
		return p.arena.NewSubscript(value.Pos(), value, index, ast.Load)
	}

	// 多个下标组成元组，其中不能有切片
	for i, item := range items {
		if _, ok := item.(*ast.Slice); ok {
			p.unexpected(commas[max(i-1, 0)])
			return nil
		}
	}
	tuple := p.arena.NewTuple(items[0].Pos(), items, ast.Load)
	index := p.arena.NewIndex(tuple.Pos(), tuple)
	return p.arena.NewSubscript(value.Pos(), value, index, ast.Load)
}

// parseSliceItem 单个下标：表达式或 [lower]:[upper][:[step]]
func (p *Parser) parseSliceItem() ast.Expr {
	tok := p.peek()
	var lower, upper, step ast.Expr
	if !p.check(token.Colon) {
		lower = p.parseExpression()
		if p.panicMode || !p.check(token.Colon) {
			return lower
		}
	}
	p.advance()
	if isExprStart(p.peek()) {
		upper = p.parseExpression()
	}
	if p.match(token.Colon) && isExprStart(p.peek()) {
		step = p.parseExpression()
	}
	return p.arena.NewSlice(p.pos(tok), lower, upper, step)
}

// parseCall 调用参数：位置参数在前，之后是 name=value 或 **mapping
//
// 参数只接受单个表达式，不接受元组和赋值。
func (p *Parser) parseCall(fn ast.Expr) ast.Expr {
	p.advance()
	var args []ast.Expr
	var keywords []*ast.Keyword

	for !p.check(token.RParen) && !p.panicMode {
		tok := p.peek()
		if p.match(token.OpExp) {
			value := p.parseExpression()
			keywords = append(keywords, p.arena.NewKeyword(p.pos(tok), "", value))
		} else {
			arg := p.parseExpression()
			if p.panicMode {
				return nil
			}
			if eq := p.peek(); eq.Type == token.OpAssign {
				name, ok := arg.(*ast.Name)
				if !ok {
					p.unexpected(eq)
					return nil
				}
				p.advance()
				value := p.parseExpression()
				keywords = append(keywords, p.arena.NewKeyword(p.pos(tok), name.ID, value))
			} else {
				if len(keywords) > 0 {
					p.fail(errors.P0007, tok, i18n.T(i18n.ErrPositionalAfterKw, tok.Line, tok.Column))
					return nil
				}
				args = append(args, arg)
			}
		}
		if !p.match(token.Comma) {
			break
		}
	}
	if _, ok := p.consume(token.RParen); !ok {
		return nil
	}
	return p.arena.NewCall(fn.Pos(), fn, args, keywords)
}
