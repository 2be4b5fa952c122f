package parser

import (
	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/errors"
	"github.com/tangzhangming/pyra/internal/i18n"
	"github.com/tangzhangming/pyra/internal/lexer"
	"github.com/tangzhangming/pyra/internal/logging"
	"github.com/tangzhangming/pyra/internal/reader"
	"github.com/tangzhangming/pyra/internal/token"
)

// ============================================================================
// Parser - 语法分析器
// ============================================================================
//
// 递归下降，单 token 前瞻，不回溯。
//
// 块结构由缩进决定：indents 保存当前打开的各层缩进宽度，parseBody 在遇到
// 更小的缩进时返回，更大的缩进报错。
//
// if/elif/else 和 try/except/finally 链跨越多条“语句”，解析器用 ifStack 和
// tryStack 记录尚未闭合的链（节点编号 + 所在缩进宽度）。链上的节点已经挂到
// 父语句体中，后续子句通过编号取回节点并原地补充 orelse/handlers/finalbody。
// 同一缩进上出现非续接子句的语句，或者所在的块结束时，链闭合。
//
// 不做错误恢复：第一个错误被记录并写入日志，之后 peek 只返回 End，
// 所有产生式迅速返回。
//
// ============================================================================

// maxExprDepth 最大表达式嵌套深度，防止栈溢出
const maxExprDepth = 200

// Parser 语法分析器
type Parser struct {
	lex      *lexer.Lexer
	arena    *ast.Arena
	log      logging.Sink
	filename string

	indents  []int       // 打开的块的缩进宽度
	ifStack  []patchSite // 未闭合的 if 链
	tryStack []patchSite // 未闭合的 try 链

	exprDepth int
	panicMode bool // 已出错，停止解析
	err       *errors.CompileError
}

// patchSite 未闭合的链：链尾节点编号和链所在的缩进宽度
type patchSite struct {
	node  ast.NodeID
	depth int
}

// New 创建语法分析器，log 为 nil 时丢弃诊断
func New(l *lexer.Lexer, log logging.Sink) *Parser {
	if log == nil {
		log = logging.Nop()
	}
	return &Parser{
		lex:      l,
		arena:    ast.NewArena(),
		log:      log,
		filename: l.Name(),
	}
}

// ============================================================================
// 入口
// ============================================================================

// FromFile 解析源文件
func FromFile(path string, log logging.Sink) (*ast.Module, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	mod, err := New(lexer.New(r), log).ParseModule()
	if err != nil {
		return nil, err
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return mod, nil
}

// FromString 解析内存中的源码，name 用于诊断
func FromString(source, name string, log logging.Sink) (*ast.Module, error) {
	return New(lexer.FromString(source, name), log).ParseModule()
}

// FromExpression 以表达式模式解析单个表达式
func FromExpression(source string, log logging.Sink) (*ast.Expression, error) {
	return New(lexer.FromString(source, "expression"), log).ParseExpression()
}

// ParseModule 解析整个模块
func (p *Parser) ParseModule() (*ast.Module, error) {
	pos := p.pos(p.peek())
	p.indents = []int{0}
	body := p.parseBody(0)
	if p.err != nil {
		return nil, p.err
	}
	mod := p.arena.NewModule(pos, body)
	p.log.Info("parsed ", p.filename, ": ", len(body), " statements, ", p.arena.Len(), " nodes")
	return mod, nil
}

// ParseExpression 解析单个表达式，之后只允许换行和输入结束
func (p *Parser) ParseExpression() (*ast.Expression, error) {
	tok := p.peek()
	if tok.Type == token.Identation {
		p.fail(errors.P0002, tok, i18n.T(i18n.ErrUnexpectedIndent, tok.Line, tok.Column))
		return nil, p.err
	}

	pos := p.pos(tok)
	body := p.parseExprList()
	if p.match(token.NewLine) {
		p.match(token.Identation)
	}
	if !p.check(token.End) {
		p.unexpected(p.peek())
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.arena.NewExpression(pos, body), nil
}

// Arena 返回节点分配器，可用于统计
func (p *Parser) Arena() *ast.Arena {
	return p.arena
}

// Err 返回第一个错误
func (p *Parser) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

// ============================================================================
// 辅助方法
// ============================================================================

// peek 返回下一个 token，跳过注释；出错后总是返回 End
func (p *Parser) peek() token.Token {
	if p.panicMode {
		st := p.lex.State()
		return token.New(token.End, "", st.Line, st.Column)
	}
	for p.lex.Peek().Type == token.Comment {
		p.lex.Read()
	}
	return p.lex.Peek()
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if !p.panicMode {
		p.lex.Read()
	}
	return tok
}

func (p *Parser) check(t token.TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) checkAny(types ...token.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			return true
		}
	}
	return false
}

func (p *Parser) match(types ...token.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// consume 消费指定类型的 token，类型不符时报告意外 token
func (p *Parser) consume(t token.TokenType) (token.Token, bool) {
	if p.check(t) {
		return p.advance(), true
	}
	p.unexpected(p.peek())
	return token.Token{}, false
}

func (p *Parser) pos(tok token.Token) ast.Position {
	return ast.Position{Line: tok.Line, Column: tok.Column}
}

// fail 记录第一个错误并写入诊断日志
func (p *Parser) fail(code string, tok token.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.err = errors.New(code, p.filename, tok.Line, tok.Column, message).WithSpan(tok.Width())
	p.err.Hints = errors.Suggestions(code)
	p.log.Error(message)
}

// unexpected 报告意外 token；非法 token 附带词法错误说明
func (p *Parser) unexpected(tok token.Token) {
	if p.panicMode {
		return
	}
	text := tok.Value
	if tok.Type == token.End {
		text = tok.Type.String()
	}
	msg := i18n.T(i18n.ErrUnexpectedToken, tok.Line, tok.Column, text)

	if tok.Type != token.Invalid {
		p.fail(errors.P0001, tok, msg)
		return
	}
	p.fail(errors.L0001, tok, msg)
	for _, le := range p.lex.Errors() {
		if le.Line == tok.Line && le.Column == tok.Column {
			p.err.Hints = append([]string{le.Message}, p.err.Hints...)
		}
	}
}

// ============================================================================
// 块与缩进
// ============================================================================

// parseBody 解析缩进宽度为 width 的语句序列
//
// 遇到更小的缩进（不消费）或输入结束时返回，返回前闭合本层的链。
func (p *Parser) parseBody(width int) []ast.Stmt {
	var body []ast.Stmt
	for {
		tok := p.peek()
		switch tok.Type {
		case token.End:
			p.closeChains(width)
			return body

		case token.Identation:
			w := len(tok.Value)
			if w < width {
				if !p.isOpenWidth(w) {
					p.fail(errors.P0002, tok, i18n.T(i18n.ErrUnindentMismatch, tok.Line, tok.Column))
				}
				p.closeChains(width)
				return body
			}
			if w > width {
				p.fail(errors.P0002, tok, i18n.T(i18n.ErrUnexpectedIndent, tok.Line, tok.Column))
				return body
			}
			p.advance()
			continue

		case token.KwElif:
			p.parseElif(width)
		case token.KwElse:
			p.parseElse(width)
		case token.KwExcept:
			p.parseExcept(width)
		case token.KwFinally:
			p.parseFinally(width)

		default:
			p.closeChains(width)
			if stmt := p.parseStatement(width); stmt != nil {
				body = append(body, stmt)
			}
		}
		if p.panicMode {
			return body
		}
	}
}

// isOpenWidth 宽度是否等于某个外层块的缩进
func (p *Parser) isOpenWidth(w int) bool {
	for _, open := range p.indents {
		if open == w {
			return true
		}
	}
	return false
}

// parseSuite 解析冒号之后的语句体
//
// 语句体要么与冒号同行（以分号分隔的简单语句），要么在换行后以比 parent
// 更深的缩进开始。
func (p *Parser) parseSuite(parent int) []ast.Stmt {
	if _, ok := p.consume(token.Colon); !ok {
		return nil
	}

	tok := p.peek()
	switch tok.Type {
	case token.NewLine:
		p.advance()
		ind := p.peek()
		w := len(ind.Value)
		if ind.Type != token.Identation || w <= parent {
			p.fail(errors.P0003, tok, i18n.T(i18n.ErrMissingBody, tok.Line, tok.Column))
			return nil
		}
		p.indents = append(p.indents, w)
		body := p.parseBody(w)
		p.indents = p.indents[:len(p.indents)-1]
		if len(body) == 0 && !p.panicMode {
			p.fail(errors.P0003, tok, i18n.T(i18n.ErrMissingBody, tok.Line, tok.Column))
		}
		return body

	case token.End:
		p.fail(errors.P0003, tok, i18n.T(i18n.ErrMissingBody, tok.Line, tok.Column))
		return nil
	}

	var body []ast.Stmt
	for {
		stmt, more := p.parseSimpleStatement()
		if stmt == nil {
			return nil
		}
		body = append(body, stmt)
		if !more {
			return body
		}
	}
}

// ============================================================================
// if/try 链
// ============================================================================

// closeChains 闭合缩进宽度不小于 width 的链
func (p *Parser) closeChains(width int) {
	for len(p.ifStack) > 0 && p.ifStack[len(p.ifStack)-1].depth >= width {
		p.ifStack = p.ifStack[:len(p.ifStack)-1]
	}
	for len(p.tryStack) > 0 && p.tryStack[len(p.tryStack)-1].depth >= width {
		site := p.tryStack[len(p.tryStack)-1]
		p.tryStack = p.tryStack[:len(p.tryStack)-1]

		try := p.arena.Try(site.node)
		if len(try.Handlers) == 0 && len(try.FinalBody) == 0 {
			tok := token.New(token.KwTry, "try", try.Pos().Line, try.Pos().Column)
			p.fail(errors.P0004, tok, i18n.T(i18n.ErrTryWithoutHandler, tok.Line, tok.Column))
		}
	}
}

// openIf 返回本层未闭合的 if 链
func (p *Parser) openIf(width int) (patchSite, bool) {
	if n := len(p.ifStack); n > 0 && p.ifStack[n-1].depth == width {
		return p.ifStack[n-1], true
	}
	return patchSite{}, false
}

// openTry 返回本层未闭合的 try 链
func (p *Parser) openTry(width int) (patchSite, bool) {
	if n := len(p.tryStack); n > 0 && p.tryStack[n-1].depth == width {
		return p.tryStack[n-1], true
	}
	return patchSite{}, false
}

func (p *Parser) parseIf(width int) ast.Stmt {
	kw := p.advance()
	test := p.parseExpression()
	body := p.parseSuite(width)
	if p.panicMode {
		return nil
	}
	node := p.arena.NewIf(p.pos(kw), test, body)
	p.ifStack = append(p.ifStack, patchSite{node: node.NodeID(), depth: width})
	return node
}

// parseElif 新建 If 作为链尾 orelse 的唯一元素，并成为新的链尾
func (p *Parser) parseElif(width int) {
	kw := p.advance()
	site, ok := p.openIf(width)
	if !ok {
		p.fail(errors.P0004, kw, i18n.T(i18n.ErrElifWithoutIf, kw.Line, kw.Column))
		return
	}
	test := p.parseExpression()
	body := p.parseSuite(width)
	if p.panicMode {
		return
	}

	top := p.arena.If(site.node)
	if len(top.OrElse) != 0 {
		p.fail(errors.P0004, kw, i18n.T(i18n.ErrClauseOrder, "elif", kw.Line, kw.Column))
		return
	}
	node := p.arena.NewIf(p.pos(kw), test, body)
	top.OrElse = []ast.Stmt{node}

	p.ifStack[len(p.ifStack)-1] = patchSite{node: node.NodeID(), depth: width}
}

// parseElse 补充 if 链或 try 链的 else 部分
func (p *Parser) parseElse(width int) {
	kw := p.advance()

	if site, ok := p.openTry(width); ok {
		try := p.arena.Try(site.node)
		if len(try.Handlers) == 0 || len(try.OrElse) != 0 || len(try.FinalBody) != 0 {
			p.fail(errors.P0004, kw, i18n.T(i18n.ErrClauseOrder, "else", kw.Line, kw.Column))
			return
		}
		try.OrElse = p.parseSuite(width)
		return
	}

	site, ok := p.openIf(width)
	if !ok {
		p.fail(errors.P0004, kw, i18n.T(i18n.ErrElseWithoutIf, kw.Line, kw.Column))
		return
	}
	top := p.arena.If(site.node)
	if len(top.OrElse) != 0 {
		p.fail(errors.P0004, kw, i18n.T(i18n.ErrClauseOrder, "else", kw.Line, kw.Column))
		return
	}
	top.OrElse = p.parseSuite(width)

	// else 之后链不再接受子句
	p.ifStack = p.ifStack[:len(p.ifStack)-1]
}

func (p *Parser) parseTry(width int) ast.Stmt {
	kw := p.advance()
	body := p.parseSuite(width)
	if p.panicMode {
		return nil
	}
	node := p.arena.NewTry(p.pos(kw), body)
	p.tryStack = append(p.tryStack, patchSite{node: node.NodeID(), depth: width})
	return node
}

// parseExcept except [type [as name]]: body
func (p *Parser) parseExcept(width int) {
	kw := p.advance()
	site, ok := p.openTry(width)
	if !ok {
		p.fail(errors.P0004, kw, i18n.T(i18n.ErrExceptWithoutTry, kw.Line, kw.Column))
		return
	}
	try := p.arena.Try(site.node)
	if n := len(try.Handlers); len(try.OrElse) != 0 || (n > 0 && try.Handlers[n-1].Type == nil) {
		p.fail(errors.P0004, kw, i18n.T(i18n.ErrClauseOrder, "except", kw.Line, kw.Column))
		return
	}

	var typ ast.Expr
	var name string
	if !p.check(token.Colon) {
		typ = p.parseExpression()
		if p.match(token.KwAs) {
			tok, ok := p.consume(token.Identifier)
			if !ok {
				return
			}
			name = tok.Value
		}
	}
	body := p.parseSuite(width)
	if p.panicMode {
		return
	}
	try.Handlers = append(try.Handlers, p.arena.NewExceptHandler(p.pos(kw), typ, name, body))
}

// parseFinally 填充 finalbody 并闭合链
func (p *Parser) parseFinally(width int) {
	kw := p.advance()
	site, ok := p.openTry(width)
	if !ok {
		p.fail(errors.P0004, kw, i18n.T(i18n.ErrFinallyWithoutTry, kw.Line, kw.Column))
		return
	}
	body := p.parseSuite(width)
	if p.panicMode {
		return
	}
	p.arena.Try(site.node).FinalBody = body
	p.tryStack = p.tryStack[:len(p.tryStack)-1]
}
