package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tangzhangming/pyra/internal/i18n"
	"github.com/tangzhangming/pyra/internal/reader"
	"github.com/tangzhangming/pyra/internal/token"
)

// ============================================================================
// Lexer - 词法分析器
// ============================================================================
//
// 词法分析器按需从 Reader 拉取字符，每次调用产生一个 Token。
//
// 缩进规则：
// 1. 行首（第1列）的空格/制表符序列产生一个 Identation token，值为原始空白
// 2. 只有空白或注释的行整体跳过
// 3. 本行产生过内容时（列号 > 1）换行才产生 NewLine，
//    并立即补一个 Identation token（下一行无缩进时值为空）
// 4. 反斜杠续行和括号内换行不产生 NewLine，续行的行首空白没有缩进语义
//
// 出错的字符序列产生 Invalid token，扫描不会中断，由语法分析器决定如何报告。
//
// ============================================================================

// State 词法分析器状态
type State struct {
	Line      int         // 当前行号（从1开始）
	Column    int         // 当前列号（从1开始）
	Token     token.Token // 最近一次 Read 返回的 token
	MultiLine bool        // 处于续行中
}

// Lexer 词法分析器
type Lexer struct {
	src     reader.Reader
	state   State
	queue   []token.Token // Peek/Read 使用的待消费队列
	depth   int           // 括号嵌套深度
	started bool

	errors []Error // 词法错误列表
}

// Error 表示词法分析错误
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// ============================================================================
// 构造函数
// ============================================================================

// New 创建一个新的词法分析器
func New(src reader.Reader) *Lexer {
	return &Lexer{
		src:   src,
		state: State{Line: 1, Column: 1},
	}
}

// FromString 从字符串创建词法分析器
func FromString(source, name string) *Lexer {
	return New(reader.NewStringReader(source, name))
}

// ============================================================================
// 公共方法
// ============================================================================

// Peek 查看下一个 token 但不消费
func (l *Lexer) Peek() token.Token {
	if len(l.queue) == 0 {
		l.scan()
	}
	return l.queue[0]
}

// Read 消费并返回下一个 token，到达末尾后一直返回 End
func (l *Lexer) Read() token.Token {
	tok := l.Peek()
	if tok.Type != token.End {
		l.queue = l.queue[1:]
	}
	l.state.Token = tok
	return tok
}

// All 读取剩余全部 token，最后一个总是 End
func (l *Lexer) All() []token.Token {
	var tokens []token.Token
	for {
		tok := l.Read()
		tokens = append(tokens, tok)
		if tok.Type == token.End {
			return tokens
		}
	}
}

// State 返回当前状态的副本
func (l *Lexer) State() State {
	return l.state
}

// Name 返回源名称
func (l *Lexer) Name() string {
	return l.src.Name()
}

// Errors 返回所有词法错误
func (l *Lexer) Errors() []Error {
	return l.errors
}

// HasErrors 检查是否有错误
func (l *Lexer) HasErrors() bool {
	return len(l.errors) > 0
}

// ============================================================================
// 核心扫描逻辑
// ============================================================================

// scan 向队列追加至少一个 token
func (l *Lexer) scan() {
	if !l.started {
		l.started = true
		if tok := l.indentation(); tok.Value != "" {
			l.push(tok)
			return
		}
	}

	for {
		ch := l.peek()
		line, col := l.state.Line, l.state.Column

		switch {
		case ch == reader.EOF:
			l.push(token.New(token.End, "", line, col))
			return

		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f':
			l.advance()

		case ch == '\n':
			l.advance()
			if l.depth > 0 {
				// 括号内换行视为空白
				l.state.MultiLine = true
				continue
			}
			l.state.MultiLine = false
			if col > 1 {
				l.push(token.New(token.NewLine, "\n", line, col))
				l.push(l.indentation())
				return
			}

		case ch == '\\':
			l.advance()
			if l.peek() == '\r' {
				l.advance()
			}
			if l.peek() != '\n' {
				l.push(l.invalid(line, col, "\\", i18n.T(i18n.ErrBadContinuation)))
				return
			}
			l.advance()
			l.state.MultiLine = true

		case ch == '#':
			l.push(l.comment(line, col))
			return

		case ch == '\'' || ch == '"':
			l.push(l.stringLiteral(ch, token.String, line, col))
			return

		case isDigit(ch):
			l.push(l.number(line, col, ""))
			return

		case isAlpha(ch):
			l.push(l.identifier(line, col))
			return

		case ch == '.':
			l.advance()
			if isDigit(l.peek()) {
				l.push(l.number(line, col, "."))
				return
			}
			l.push(token.New(token.Dot, ".", line, col))
			return

		default:
			l.push(l.operator(line, col))
			return
		}
	}
}

// indentation 在行首读取缩进，跳过空白行和纯注释行
//
// 到达输入末尾时返回值为空的 Identation。
func (l *Lexer) indentation() token.Token {
	for {
		line := l.state.Line
		var ws strings.Builder
		for {
			ch := l.peek()
			if ch == ' ' || ch == '\t' {
				ws.WriteRune(l.advance())
			} else if ch == '\r' || ch == '\f' {
				l.advance()
			} else {
				break
			}
		}

		switch l.peek() {
		case '\n':
			l.advance()
		case '#':
			for ch := l.peek(); ch != '\n' && ch != reader.EOF; ch = l.peek() {
				l.advance()
			}
		case reader.EOF:
			return token.New(token.Identation, "", line, 1)
		default:
			return token.New(token.Identation, ws.String(), line, 1)
		}
	}
}

// comment 读取 # 注释，不包含换行符
func (l *Lexer) comment(line, col int) token.Token {
	var sb strings.Builder
	for ch := l.peek(); ch != '\n' && ch != reader.EOF; ch = l.peek() {
		sb.WriteRune(l.advance())
	}
	return token.New(token.Comment, strings.TrimRight(sb.String(), "\r"), line, col)
}

// ============================================================================
// 字符串
// ============================================================================

// stringLiteral 读取单/双引号字符串
//
// 开头连续两个引号时进入文档字符串检测：第三个引号出现则按三引号字符串
// 读取（允许跨行），否则就是空字符串。
func (l *Lexer) stringLiteral(quote rune, typ token.TokenType, line, col int) token.Token {
	var raw, sb strings.Builder
	raw.WriteRune(l.advance())

	triple := false
	if l.peek() == quote {
		raw.WriteRune(l.advance())
		if l.peek() != quote {
			return token.New(typ, "", line, col)
		}
		raw.WriteRune(l.advance())
		triple = true
	}

	for {
		ch := l.peek()
		switch {
		case ch == reader.EOF:
			return l.invalid(line, col, raw.String(), i18n.T(i18n.ErrUnterminatedString))

		case ch == '\\':
			raw.WriteRune(l.advance())
			esc := l.peek()
			if esc == reader.EOF {
				return l.invalid(line, col, raw.String(), i18n.T(i18n.ErrUnterminatedString))
			}
			raw.WriteRune(l.advance())
			if esc == '\n' {
				continue
			}
			sb.WriteString(unescape(esc))

		case ch == '\n':
			if !triple {
				return l.invalid(line, col, raw.String(), i18n.T(i18n.ErrNewlineInString))
			}
			raw.WriteRune(l.advance())
			sb.WriteRune('\n')

		case ch == quote:
			raw.WriteRune(l.advance())
			if !triple {
				return token.New(typ, sb.String(), line, col)
			}
			n := 1
			for n < 3 && l.peek() == quote {
				raw.WriteRune(l.advance())
				n++
			}
			if n == 3 {
				return token.New(typ, sb.String(), line, col)
			}
			sb.WriteString(strings.Repeat(string(quote), n))

		default:
			raw.WriteRune(l.advance())
			sb.WriteRune(ch)
		}
	}
}

func unescape(ch rune) string {
	switch ch {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '0':
		return "\x00"
	case '\\', '\'', '"':
		return string(ch)
	default:
		return "\\" + string(ch)
	}
}

// ============================================================================
// 数字
// ============================================================================

// number 读取整数、浮点数和十六进制数
//
// 小数点只能出现一次，十六进制中不能出现小数点。
func (l *Lexer) number(line, col int, prefix string) token.Token {
	var sb strings.Builder
	sb.WriteString(prefix)
	dots := len(prefix)

	if prefix == "" && l.peek() == '0' {
		sb.WriteRune(l.advance())
		if ch := l.peek(); ch == 'x' || ch == 'X' {
			sb.WriteRune(l.advance())
			digits := 0
			for isHexDigit(l.peek()) {
				sb.WriteRune(l.advance())
				digits++
			}
			if digits == 0 || l.peek() == '.' || isAlphaNumeric(l.peek()) {
				l.junk(&sb)
				return l.invalid(line, col, sb.String(), i18n.T(i18n.ErrInvalidHexNumber, sb.String()))
			}
			return token.New(token.Integer, sb.String(), line, col)
		}
	}

	for {
		ch := l.peek()
		if isDigit(ch) {
			sb.WriteRune(l.advance())
		} else if ch == '.' {
			sb.WriteRune(l.advance())
			dots++
		} else {
			break
		}
	}

	if isAlpha(l.peek()) {
		l.junk(&sb)
		return l.invalid(line, col, sb.String(), i18n.T(i18n.ErrInvalidNumber, sb.String()))
	}
	if dots > 1 {
		return l.invalid(line, col, sb.String(), i18n.T(i18n.ErrInvalidFloat, sb.String()))
	}
	if dots == 1 {
		return token.New(token.Float, sb.String(), line, col)
	}
	return token.New(token.Integer, sb.String(), line, col)
}

// junk 吞掉紧跟在非法数字后的字母数字和小数点
func (l *Lexer) junk(sb *strings.Builder) {
	for ch := l.peek(); isAlphaNumeric(ch) || ch == '.'; ch = l.peek() {
		sb.WriteRune(l.advance())
	}
}

// ============================================================================
// 标识符和关键字
// ============================================================================

func (l *Lexer) identifier(line, col int) token.Token {
	var sb strings.Builder
	for isAlphaNumeric(l.peek()) {
		sb.WriteRune(l.advance())
	}
	ident := sb.String()

	if (ident == "f" || ident == "F") && (l.peek() == '\'' || l.peek() == '"') {
		tok := l.stringLiteral(l.peek(), token.FString, line, col)
		return tok
	}
	return token.New(token.LookupIdent(ident), ident, line, col)
}

// ============================================================================
// 运算符和分隔符
// ============================================================================

// operator 按首字符分派，最多再向前看两个字符识别复合运算符
func (l *Lexer) operator(line, col int) token.Token {
	ch := l.advance()
	tok := func(t token.TokenType, text string) token.Token {
		return token.New(t, text, line, col)
	}

	switch ch {
	case '(':
		l.depth++
		return tok(token.LParen, "(")
	case ')':
		l.closeBracket()
		return tok(token.RParen, ")")
	case '[':
		l.depth++
		return tok(token.LBracket, "[")
	case ']':
		l.closeBracket()
		return tok(token.RBracket, "]")
	case '{':
		l.depth++
		return tok(token.LBrace, "{")
	case '}':
		l.closeBracket()
		return tok(token.RBrace, "}")
	case ',':
		return tok(token.Comma, ",")
	case ':':
		return tok(token.Colon, ":")
	case ';':
		return tok(token.Semicolon, ";")
	case '~':
		return tok(token.OpBitNot, "~")

	case '+':
		if l.match('=') {
			return tok(token.OpAddAssign, "+=")
		}
		return tok(token.OpAdd, "+")
	case '-':
		if l.match('=') {
			return tok(token.OpSubAssign, "-=")
		}
		return tok(token.OpSub, "-")
	case '%':
		if l.match('=') {
			return tok(token.OpModAssign, "%=")
		}
		return tok(token.OpMod, "%")
	case '&':
		if l.match('=') {
			return tok(token.OpAndAssign, "&=")
		}
		return tok(token.OpBitAnd, "&")
	case '|':
		if l.match('=') {
			return tok(token.OpOrAssign, "|=")
		}
		return tok(token.OpBitOr, "|")
	case '^':
		if l.match('=') {
			return tok(token.OpXorAssign, "^=")
		}
		return tok(token.OpBitXor, "^")

	case '*':
		if l.match('*') {
			if l.match('=') {
				return tok(token.OpExpAssign, "**=")
			}
			return tok(token.OpExp, "**")
		}
		if l.match('=') {
			return tok(token.OpMulAssign, "*=")
		}
		return tok(token.OpMul, "*")
	case '/':
		if l.match('/') {
			if l.match('=') {
				return tok(token.OpFloorDivAssign, "//=")
			}
			return tok(token.OpFloorDiv, "//")
		}
		if l.match('=') {
			return tok(token.OpDivAssign, "/=")
		}
		return tok(token.OpDiv, "/")
	case '<':
		if l.match('<') {
			if l.match('=') {
				return tok(token.OpLShiftAssign, "<<=")
			}
			return tok(token.OpLShift, "<<")
		}
		if l.match('=') {
			return tok(token.OpLessEq, "<=")
		}
		return tok(token.OpLess, "<")
	case '>':
		if l.match('>') {
			if l.match('=') {
				return tok(token.OpRShiftAssign, ">>=")
			}
			return tok(token.OpRShift, ">>")
		}
		if l.match('=') {
			return tok(token.OpGreaterEq, ">=")
		}
		return tok(token.OpGreater, ">")
	case '=':
		if l.match('=') {
			return tok(token.OpEq, "==")
		}
		return tok(token.OpAssign, "=")
	case '!':
		if l.match('=') {
			return tok(token.OpNotEq, "!=")
		}
	}

	return l.invalid(line, col, string(ch), i18n.T(i18n.ErrUnexpectedChar, ch))
}

func (l *Lexer) closeBracket() {
	if l.depth > 0 {
		l.depth--
	}
}

// ============================================================================
// 字符读取
// ============================================================================

func (l *Lexer) peek() rune {
	return l.src.Peek()
}

// advance 前进一个字符并维护行列号
func (l *Lexer) advance() rune {
	ch := l.src.Read()
	if ch == reader.EOF {
		return ch
	}
	if ch == '\n' {
		l.state.Line++
		l.state.Column = 1
	} else {
		l.state.Column++
	}
	return ch
}

// match 当前字符等于 expected 时消费它
func (l *Lexer) match(expected rune) bool {
	if l.peek() != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) push(tok token.Token) {
	l.queue = append(l.queue, tok)
}

// invalid 记录一个词法错误并生成 Invalid token
func (l *Lexer) invalid(line, col int, text, message string) token.Token {
	l.errors = append(l.errors, Error{Line: line, Column: col, Message: message})
	return token.New(token.Invalid, text, line, col)
}

// ============================================================================
// 字符分类函数
// ============================================================================

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// isAlpha 判断是否为字母或下划线，支持 Unicode 字母
func isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		ch == '_' ||
		(ch > 0x7f && unicode.IsLetter(ch))
}

func isAlphaNumeric(ch rune) bool {
	return isAlpha(ch) || isDigit(ch)
}
