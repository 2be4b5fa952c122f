package parser

import (
	"strings"

	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/errors"
	"github.com/tangzhangming/pyra/internal/i18n"
	"github.com/tangzhangming/pyra/internal/token"
)

// ============================================================================
// 语句解析
// ============================================================================

// parseStatement 解析一条语句，width 是语句所在块的缩进宽度
func (p *Parser) parseStatement(width int) ast.Stmt {
	switch p.peek().Type {
	case token.KwIf:
		return p.parseIf(width)
	case token.KwWhile:
		return p.parseWhile(width)
	case token.KwFor:
		return p.parseFor(width)
	case token.KwTry:
		return p.parseTry(width)
	case token.KwDef:
		return p.parseFunctionDef(width)
	case token.KwClass:
		return p.parseClassDef(width)
	}
	stmt, _ := p.parseSimpleStatement()
	return stmt
}

// parseSimpleStatement 解析一条简单语句并消费其结束符
//
// 返回的 more 表示语句以分号结束且同一行还有后续语句。
func (p *Parser) parseSimpleStatement() (ast.Stmt, bool) {
	tok := p.peek()
	pos := p.pos(tok)

	var stmt ast.Stmt
	switch tok.Type {
	case token.KwPass:
		p.advance()
		stmt = p.arena.NewPass(pos)
	case token.KwBreak:
		p.advance()
		stmt = p.arena.NewBreak(pos)
	case token.KwContinue:
		p.advance()
		stmt = p.arena.NewContinue(pos)
	case token.KwReturn:
		stmt = p.parseReturn()
	case token.KwDel:
		stmt = p.parseDelete()
	case token.KwRaise:
		stmt = p.parseRaise()
	case token.KwAssert:
		stmt = p.parseAssert()
	case token.KwImport:
		stmt = p.parseImport()
	case token.KwFrom:
		stmt = p.parseImportFrom()
	default:
		if !isExprStart(tok) {
			p.unexpected(tok)
			return nil, false
		}
		stmt = p.parseExprStatement()
	}
	if p.panicMode {
		return nil, false
	}
	return stmt, p.endStatement()
}

// endStatement 消费简单语句的结束符：换行、分号或输入结束
func (p *Parser) endStatement() bool {
	tok := p.peek()
	switch tok.Type {
	case token.NewLine:
		p.advance()
		return false
	case token.End:
		return false
	case token.Semicolon:
		p.advance()
		if p.match(token.NewLine) || p.check(token.End) {
			return false
		}
		return true
	}
	p.unexpected(tok)
	return false
}

// ----------------------------------------------------------
// 复合语句
// ----------------------------------------------------------

func (p *Parser) parseWhile(width int) ast.Stmt {
	kw := p.advance()
	test := p.parseExpression()
	body := p.parseSuite(width)
	if p.panicMode {
		return nil
	}
	return p.arena.NewWhile(p.pos(kw), test, body)
}

// parseFor for target in iter: body
//
// 目标是只含操作数的逗号列表，遇到 in 停止。
func (p *Parser) parseFor(width int) ast.Stmt {
	kw := p.advance()
	target := p.parseTargetList()
	if p.panicMode {
		return nil
	}
	if _, ok := p.consume(token.KwIn); !ok {
		return nil
	}
	iter := p.parseExprList()
	body := p.parseSuite(width)
	if p.panicMode {
		return nil
	}
	return p.arena.NewFor(p.pos(kw), target, iter, body)
}

func (p *Parser) parseTargetList() ast.Expr {
	first := p.peek()
	var elts []ast.Expr
	sawComma := false
	for {
		elts = append(elts, p.parseOperand())
		if p.panicMode {
			return nil
		}
		if !p.match(token.Comma) {
			break
		}
		sawComma = true
		if p.check(token.KwIn) {
			break
		}
	}

	var target ast.Expr
	if len(elts) == 1 && !sawComma {
		target = elts[0]
	} else {
		target = p.arena.NewTuple(p.pos(first), elts, ast.Load)
	}
	p.setTarget(target, ast.Store, first)
	return target
}

func (p *Parser) parseFunctionDef(width int) ast.Stmt {
	kw := p.advance()
	name, ok := p.consume(token.Identifier)
	if !ok {
		return nil
	}
	if _, ok := p.consume(token.LParen); !ok {
		return nil
	}
	args := p.parseParameters(token.RParen)
	if _, ok := p.consume(token.RParen); !ok {
		return nil
	}
	body := p.parseSuite(width)
	if p.panicMode {
		return nil
	}
	return p.arena.NewFunctionDef(p.pos(kw), name.Value, args, body)
}

func (p *Parser) parseClassDef(width int) ast.Stmt {
	kw := p.advance()
	name, ok := p.consume(token.Identifier)
	if !ok {
		return nil
	}
	var bases []ast.Expr
	if p.match(token.LParen) {
		for !p.check(token.RParen) {
			bases = append(bases, p.parseExpression())
			if p.panicMode || !p.match(token.Comma) {
				break
			}
		}
		if _, ok := p.consume(token.RParen); !ok {
			return nil
		}
	}
	body := p.parseSuite(width)
	if p.panicMode {
		return nil
	}
	return p.arena.NewClassDef(p.pos(kw), name.Value, bases, body)
}

// parseParameters 解析形参列表直到 end（不消费）
//
//	name, name=default, *args, **kwargs
func (p *Parser) parseParameters(end token.TokenType) *ast.Arguments {
	args := &ast.Arguments{}
	for !p.check(end) && !p.panicMode {
		tok := p.peek()
		switch {
		case tok.Type == token.OpMul && args.Vararg == nil && args.Kwarg == nil:
			p.advance()
			name, ok := p.consume(token.Identifier)
			if !ok {
				return args
			}
			args.Vararg = p.arena.NewArg(p.pos(name), name.Value)

		case tok.Type == token.OpExp && args.Kwarg == nil:
			p.advance()
			name, ok := p.consume(token.Identifier)
			if !ok {
				return args
			}
			args.Kwarg = p.arena.NewArg(p.pos(name), name.Value)

		case tok.Type == token.Identifier && args.Vararg == nil && args.Kwarg == nil:
			p.advance()
			args.Args = append(args.Args, p.arena.NewArg(p.pos(tok), tok.Value))
			if p.match(token.OpAssign) {
				args.Defaults = append(args.Defaults, p.parseExpression())
			} else if len(args.Defaults) > 0 {
				p.fail(errors.P0007, tok, i18n.T(i18n.ErrDefaultOrder, tok.Line, tok.Column))
				return args
			}

		default:
			p.unexpected(tok)
			return args
		}
		if !p.match(token.Comma) {
			break
		}
	}
	return args
}

// ----------------------------------------------------------
// 简单语句
// ----------------------------------------------------------

func (p *Parser) parseReturn() ast.Stmt {
	kw := p.advance()
	var value ast.Expr
	if isExprStart(p.peek()) {
		value = p.parseExprList()
	}
	return p.arena.NewReturn(p.pos(kw), value)
}

func (p *Parser) parseDelete() ast.Stmt {
	kw := p.advance()
	var targets []ast.Expr
	for {
		tok := p.peek()
		target := p.parseExpression()
		if p.panicMode {
			return nil
		}
		p.setTarget(target, ast.Del, tok)
		targets = append(targets, target)
		if !p.match(token.Comma) || !isExprStart(p.peek()) {
			break
		}
	}
	return p.arena.NewDelete(p.pos(kw), targets)
}

// parseRaise raise [exc [from cause]]
func (p *Parser) parseRaise() ast.Stmt {
	kw := p.advance()
	var exc, cause ast.Expr
	if isExprStart(p.peek()) {
		exc = p.parseExpression()
		if p.match(token.KwFrom) {
			cause = p.parseExpression()
		}
	}
	return p.arena.NewRaise(p.pos(kw), exc, cause)
}

// parseAssert assert test [, msg]
func (p *Parser) parseAssert() ast.Stmt {
	kw := p.advance()
	test := p.parseExpression()
	var msg ast.Expr
	if p.match(token.Comma) {
		msg = p.parseExpression()
	}
	return p.arena.NewAssert(p.pos(kw), test, msg)
}

// parseImport import a.b [as c], ...
func (p *Parser) parseImport() ast.Stmt {
	kw := p.advance()
	var names []*ast.Alias
	for {
		alias := p.parseAlias(true)
		if alias == nil {
			return nil
		}
		names = append(names, alias)
		if !p.match(token.Comma) {
			break
		}
	}
	return p.arena.NewImport(p.pos(kw), names)
}

// parseImportFrom from [.]*module import name [as n], ... | * | (names)
func (p *Parser) parseImportFrom() ast.Stmt {
	kw := p.advance()

	level := 0
	for p.match(token.Dot) {
		level++
	}
	module := ""
	if level == 0 || p.check(token.Identifier) {
		var ok bool
		if module, ok = p.parseDottedName(); !ok {
			return nil
		}
	}
	if _, ok := p.consume(token.KwImport); !ok {
		return nil
	}

	if star := p.peek(); star.Type == token.OpMul {
		p.advance()
		return p.arena.NewImportFrom(p.pos(kw), module, []*ast.Alias{p.arena.NewAlias(p.pos(star), "*", "")}, level)
	}

	paren := p.match(token.LParen)
	var names []*ast.Alias
	for {
		alias := p.parseAlias(false)
		if alias == nil {
			return nil
		}
		names = append(names, alias)
		if !p.match(token.Comma) {
			break
		}
		if paren && p.check(token.RParen) {
			break
		}
	}
	if paren {
		if _, ok := p.consume(token.RParen); !ok {
			return nil
		}
	}
	return p.arena.NewImportFrom(p.pos(kw), module, names, level)
}

func (p *Parser) parseAlias(dotted bool) *ast.Alias {
	tok := p.peek()
	var name string
	if dotted {
		var ok bool
		if name, ok = p.parseDottedName(); !ok {
			return nil
		}
	} else {
		id, ok := p.consume(token.Identifier)
		if !ok {
			return nil
		}
		name = id.Value
	}

	asName := ""
	if p.match(token.KwAs) {
		id, ok := p.consume(token.Identifier)
		if !ok {
			return nil
		}
		asName = id.Value
	}
	return p.arena.NewAlias(p.pos(tok), name, asName)
}

func (p *Parser) parseDottedName() (string, bool) {
	id, ok := p.consume(token.Identifier)
	if !ok {
		return "", false
	}
	parts := []string{id.Value}
	for p.match(token.Dot) {
		id, ok := p.consume(token.Identifier)
		if !ok {
			return "", false
		}
		parts = append(parts, id.Value)
	}
	return strings.Join(parts, "."), true
}

// parseExprStatement 表达式语句、赋值链或增量赋值
func (p *Parser) parseExprStatement() ast.Stmt {
	first := p.peek()
	pos := p.pos(first)
	expr := p.parseExprList()
	if p.panicMode {
		return nil
	}

	tok := p.peek()
	switch {
	case tok.Type == token.OpAssign:
		targets := []ast.Expr{expr}
		starts := []token.Token{first}
		var value ast.Expr
		for p.match(token.OpAssign) {
			starts = append(starts, p.peek())
			value = p.parseExprList()
			if p.panicMode {
				return nil
			}
			if p.check(token.OpAssign) {
				targets = append(targets, value)
			}
		}
		for i, target := range targets {
			p.setTarget(target, ast.Store, starts[i])
		}
		return p.arena.NewAssign(pos, targets, value)

	case token.IsAugAssign(tok.Type):
		switch expr.(type) {
		case *ast.Name, *ast.Attribute, *ast.Subscript:
		default:
			p.fail(errors.P0005, first, i18n.T(i18n.ErrInvalidTarget, describe(expr), first.Line, first.Column))
			return nil
		}
		p.advance()
		ast.SetContext(expr, ast.Store)
		value := p.parseExprList()
		return p.arena.NewAugAssign(pos, expr, augOperators[tok.Type], value)
	}

	return p.arena.NewExprStmt(pos, expr)
}

// setTarget 设置赋值/删除目标的上下文，目标无效时报错
func (p *Parser) setTarget(target ast.Expr, ctx ast.ExprContext, tok token.Token) {
	if p.panicMode || ast.SetContext(target, ctx) {
		return
	}
	key := i18n.ErrInvalidTarget
	if ctx == ast.Del {
		key = i18n.ErrCannotDelete
	}
	p.fail(errors.P0005, tok, i18n.T(key, describe(invalidPart(target)), tok.Line, tok.Column))
}

// invalidPart 找出元组/列表目标中第一个不能赋值的元素
func invalidPart(e ast.Expr) ast.Expr {
	var elts []ast.Expr
	switch n := e.(type) {
	case *ast.Tuple:
		elts = n.Elts
	case *ast.List:
		elts = n.Elts
	default:
		return e
	}
	for _, elt := range elts {
		switch elt.(type) {
		case *ast.Name, *ast.Attribute, *ast.Subscript:
			continue
		}
		return invalidPart(elt)
	}
	return e
}

// describe 诊断中对表达式种类的描述
func describe(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Constant:
		return "literal"
	case *ast.Call:
		return "function call"
	case *ast.BinOp, *ast.UnaryOp:
		return "operator"
	case *ast.BoolOp:
		return "expression"
	case *ast.Compare:
		return "comparison"
	case *ast.Lambda:
		return "lambda"
	case *ast.Dict:
		return "dict display"
	case *ast.FormattedValue:
		return "f-string expression"
	case nil:
		return "nothing"
	default:
		return n.Kind().String()
	}
}

var augOperators = map[token.TokenType]ast.Operator{
	token.OpAddAssign:      ast.Add,
	token.OpSubAssign:      ast.Sub,
	token.OpMulAssign:      ast.Mult,
	token.OpDivAssign:      ast.Div,
	token.OpFloorDivAssign: ast.FloorDiv,
	token.OpModAssign:      ast.Modulo,
	token.OpExpAssign:      ast.Pow,
	token.OpLShiftAssign:   ast.LShift,
	token.OpRShiftAssign:   ast.RShift,
	token.OpAndAssign:      ast.BitAnd,
	token.OpOrAssign:       ast.BitOr,
	token.OpXorAssign:      ast.BitXor,
}
