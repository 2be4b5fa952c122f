package formatter

import (
	"strings"

	"github.com/tangzhangming/pyra/internal/ast"
)

// Printer AST 打印器
type Printer struct {
	options  *Options
	buf      strings.Builder
	indent   int
	lines    []string  // 源码各行，用于保留语句之间的空行
	comments []comment // 尚未输出的注释
	started  bool
}

// NewPrinter 创建打印器，source 为空时不保留注释和空行
func NewPrinter(options *Options, source string) *Printer {
	p := &Printer{options: options}
	if source != "" {
		p.lines = strings.Split(source, "\n")
		if options.PreserveComments {
			p.comments = collectComments(source)
		}
	}
	return p
}

// Print 打印模块并返回格式化的代码
func (p *Printer) Print(mod *ast.Module) string {
	p.printBody(mod.Body, true)
	p.flushComments(-1)
	return p.buf.String()
}

// 辅助方法

func (p *Printer) writeln(s string) {
	p.buf.WriteString(strings.Repeat(p.options.IndentString(), p.indent))
	p.buf.WriteString(s)
	p.buf.WriteString("\n")
	p.started = true
}

// header 输出语句首行，附带同一行的行尾注释
func (p *Printer) header(line int, s string) {
	if len(p.comments) > 0 && p.comments[0].line == line {
		s += "  " + p.comments[0].text
		p.comments = p.comments[1:]
	}
	p.writeln(s)
}

func (p *Printer) blank(n int) {
	if !p.started {
		return
	}
	for i := 0; i < n; i++ {
		p.buf.WriteString("\n")
	}
}

// flushComments 输出行号小于 line 的注释，line 为 -1 时输出全部
func (p *Printer) flushComments(line int) {
	for len(p.comments) > 0 && (line < 0 || p.comments[0].line < line) {
		p.writeln(p.comments[0].text)
		p.comments = p.comments[1:]
	}
}

// blankInSource 源码中 line 的上一行是否为空行
func (p *Printer) blankInSource(line int) bool {
	if line < 2 || line-2 >= len(p.lines) {
		return false
	}
	return strings.TrimSpace(p.lines[line-2]) == ""
}

// ============================================================================
// 语句
// ============================================================================

func isDefinition(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.FunctionDef, *ast.ClassDef:
		return true
	}
	return false
}

// printBody 打印语句序列：def/class 前后固定空行，其余保留源码中的单个空行
func (p *Printer) printBody(body []ast.Stmt, top bool) {
	for i, stmt := range body {
		line := stmt.Pos().Line
		start := line
		if len(p.comments) > 0 && p.comments[0].line < start {
			start = p.comments[0].line
		}

		if i > 0 {
			switch {
			case isDefinition(stmt) || isDefinition(body[i-1]):
				if top {
					p.blank(p.options.BlankLinesTopLevel)
				} else {
					p.blank(1)
				}
			case p.blankInSource(start):
				p.blank(1)
			}
		}

		p.flushComments(line)
		p.printStmt(stmt)
	}
}

// printSuite 打印冒号之后缩进的语句体
func (p *Printer) printSuite(body []ast.Stmt) {
	p.indent++
	p.printBody(body, false)
	p.indent--
}

func (p *Printer) printStmt(stmt ast.Stmt) {
	line := stmt.Pos().Line

	switch s := stmt.(type) {
	case *ast.FunctionDef:
		p.header(line, "def "+s.Name+"("+p.arguments(s.Args)+"):")
		p.printSuite(s.Body)

	case *ast.ClassDef:
		head := "class " + s.Name
		if len(s.Bases) > 0 {
			head += "(" + p.exprList(s.Bases, ctxElement) + ")"
		}
		p.header(line, head+":")
		p.printSuite(s.Body)

	case *ast.Return:
		if s.Value == nil {
			p.header(line, "return")
		} else {
			p.header(line, "return "+p.expr(s.Value, ctxTop))
		}

	case *ast.Delete:
		p.header(line, "del "+p.exprList(s.Targets, ctxElement))

	case *ast.Assign:
		parts := make([]string, 0, len(s.Targets)+1)
		for _, target := range s.Targets {
			parts = append(parts, p.expr(target, ctxTop))
		}
		parts = append(parts, p.expr(s.Value, ctxTop))
		p.header(line, strings.Join(parts, " = "))

	case *ast.AugAssign:
		p.header(line, p.expr(s.Target, ctxTop)+" "+s.Op.Symbol()+"= "+p.expr(s.Value, ctxTop))

	case *ast.For:
		p.header(line, "for "+p.forTarget(s.Target)+" in "+p.expr(s.Iter, ctxTop)+":")
		p.printSuite(s.Body)
		p.printElse(s.OrElse)

	case *ast.While:
		p.header(line, "while "+p.expr(s.Test, ctxElement)+":")
		p.printSuite(s.Body)
		p.printElse(s.OrElse)

	case *ast.If:
		p.printIf(s, "if ")

	case *ast.Raise:
		head := "raise"
		if s.Exc != nil {
			head += " " + p.expr(s.Exc, ctxElement)
			if s.Cause != nil {
				head += " from " + p.expr(s.Cause, ctxElement)
			}
		}
		p.header(line, head)

	case *ast.Try:
		p.header(line, "try:")
		p.printSuite(s.Body)
		for _, h := range s.Handlers {
			p.flushClauseComments(h.Pos().Line)
			head := "except"
			if h.Type != nil {
				head += " " + p.expr(h.Type, ctxElement)
				if h.Name != "" {
					head += " as " + h.Name
				}
			}
			p.header(h.Pos().Line, head+":")
			p.printSuite(h.Body)
		}
		p.printElse(s.OrElse)
		p.printClause("finally", s.FinalBody)

	case *ast.Assert:
		head := "assert " + p.expr(s.Test, ctxElement)
		if s.Msg != nil {
			head += ", " + p.expr(s.Msg, ctxElement)
		}
		p.header(line, head)

	case *ast.Import:
		p.header(line, "import "+aliases(s.Names))

	case *ast.ImportFrom:
		p.header(line, "from "+strings.Repeat(".", s.Level)+s.Module+" import "+aliases(s.Names))

	case *ast.ExprStmt:
		if c, ok := s.Value.(*ast.Constant); ok {
			if str, ok := c.Value.(string); ok && strings.Contains(str, "\n") {
				p.header(line, docstring(str))
				return
			}
		}
		p.header(line, p.expr(s.Value, ctxTop))

	case *ast.Pass:
		p.header(line, "pass")
	case *ast.Break:
		p.header(line, "break")
	case *ast.Continue:
		p.header(line, "continue")
	}
}

// printIf orelse 只含一个 If 时打印为 elif
func (p *Printer) printIf(s *ast.If, keyword string) {
	p.header(s.Pos().Line, keyword+p.expr(s.Test, ctxElement)+":")
	p.printSuite(s.Body)
	if len(s.OrElse) == 1 {
		if elif, ok := s.OrElse[0].(*ast.If); ok {
			p.flushClauseComments(elif.Pos().Line)
			p.printIf(elif, "elif ")
			return
		}
	}
	p.printElse(s.OrElse)
}

func (p *Printer) printElse(body []ast.Stmt) {
	p.printClause("else", body)
}

// printClause 打印 else/finally 子句，子句行的位置从源码中找回
func (p *Printer) printClause(keyword string, body []ast.Stmt) {
	if len(body) == 0 {
		return
	}
	line := p.clauseLine(keyword, body[0].Pos().Line)
	if line > 0 {
		p.flushClauseComments(line)
	}
	p.header(line, keyword+":")
	p.printSuite(body)
}

// clauseLine 从语句体第一行向上跳过空行和注释，找到子句关键字所在行，找不到时返回 0
func (p *Printer) clauseLine(keyword string, first int) int {
	isClause := func(line int) bool {
		text := strings.TrimSpace(p.lines[line-1])
		return strings.HasPrefix(text, keyword) &&
			strings.HasPrefix(strings.TrimSpace(text[len(keyword):]), ":")
	}
	if first < 1 || first > len(p.lines) {
		return 0
	}
	if isClause(first) {
		return first
	}
	for line := first - 1; line >= 1; line-- {
		if isClause(line) {
			return line
		}
		text := strings.TrimSpace(p.lines[line-1])
		if text != "" && !strings.HasPrefix(text, "#") {
			return 0
		}
	}
	return 0
}

// flushClauseComments 输出子句行之前的注释：缩进比子句深的留在上一个语句体里
func (p *Printer) flushClauseComments(line int) {
	if line < 1 || line > len(p.lines) {
		p.flushComments(line)
		return
	}
	clause := indentWidth(p.lines[line-1])
	for len(p.comments) > 0 && p.comments[0].line < line {
		c := p.comments[0]
		p.comments = p.comments[1:]
		if c.line <= len(p.lines) && indentWidth(p.lines[c.line-1]) > clause {
			p.indent++
			p.writeln(c.text)
			p.indent--
			continue
		}
		p.writeln(c.text)
	}
}

func indentWidth(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}

// forTarget for 的目标是只含操作数的逗号列表
func (p *Printer) forTarget(target ast.Expr) string {
	if t, ok := target.(*ast.Tuple); ok && len(t.Elts) > 1 {
		return p.exprList(t.Elts, ctxOperand)
	}
	return p.expr(target, ctxOperand)
}

func (p *Printer) arguments(args *ast.Arguments) string {
	if args == nil {
		return ""
	}
	var parts []string
	first := len(args.Args) - len(args.Defaults)
	for i, arg := range args.Args {
		if i >= first {
			parts = append(parts, arg.Name+"="+p.expr(args.Defaults[i-first], ctxElement))
		} else {
			parts = append(parts, arg.Name)
		}
	}
	if args.Vararg != nil {
		parts = append(parts, "*"+args.Vararg.Name)
	}
	if args.Kwarg != nil {
		parts = append(parts, "**"+args.Kwarg.Name)
	}
	return strings.Join(parts, ", ")
}

func aliases(names []*ast.Alias) string {
	parts := make([]string, 0, len(names))
	for _, alias := range names {
		if alias.AsName != "" {
			parts = append(parts, alias.Name+" as "+alias.AsName)
		} else {
			parts = append(parts, alias.Name)
		}
	}
	return strings.Join(parts, ", ")
}
