package formatter

import (
	"strconv"
	"strings"

	"github.com/tangzhangming/pyra/internal/ast"
)

// ============================================================================
// 表达式打印
// ============================================================================
//
// 解析器不区分优先级，从左到右折叠，所以括号只在以下位置需要：
//   - 右操作数、比较的右侧、一元运算的操作数是中缀表达式或 lambda
//   - 左操作数会被解析器续接时：(a and b) and c，(a < b) < c
//   - 后缀（.attr [i] (args)）作用在非原子上
//
// ============================================================================

type exprContext int

const (
	ctxTop     exprContext = iota // 语句顶层，元组可以不加括号
	ctxField                      // f-string 替换字段，元组可以不加括号
	ctxElement                    // 参数、元素、条件
	ctxColon                      // 后面可能紧跟冒号：字典键、切片
	ctxLeft                       // 中缀表达式的左操作数
	ctxOperand                    // 中缀表达式的右侧和一元运算的操作数
	ctxSuffix                     // 属性、下标、调用的对象
)

var compareSymbols = [...]string{"==", "!=", "<", "<=", ">", ">=", "is", "is not", "in", "not in"}

var unarySymbols = [...]string{"~", "not ", "+", "-"}

func (p *Printer) expr(e ast.Expr, ctx exprContext) string {
	s := p.bare(e)
	if needsParens(e, ctx) {
		return "(" + s + ")"
	}
	return s
}

func needsParens(e ast.Expr, ctx exprContext) bool {
	switch e := e.(type) {
	case *ast.Tuple:
		return (ctx != ctxTop && ctx != ctxField) || len(e.Elts) < 2
	case *ast.Lambda:
		return ctx != ctxTop && ctx != ctxElement
	case *ast.BinOp:
		if _, ok := fstringParts(e); ok {
			return false
		}
		return ctx == ctxOperand || ctx == ctxSuffix
	case *ast.BoolOp, *ast.Compare:
		return ctx == ctxOperand || ctx == ctxSuffix
	case *ast.UnaryOp:
		return ctx == ctxSuffix
	case *ast.Constant:
		switch e.Value.(type) {
		case int64, float64:
			return ctx == ctxSuffix
		}
	}
	return false
}

// left 左操作数，与父节点同类的 BoolOp/Compare 需要括号
func (p *Printer) left(child, parent ast.Expr) string {
	switch c := child.(type) {
	case *ast.BoolOp:
		if b, ok := parent.(*ast.BoolOp); ok && b.Op == c.Op {
			return "(" + p.bare(child) + ")"
		}
	case *ast.Compare:
		if _, ok := parent.(*ast.Compare); ok {
			return "(" + p.bare(child) + ")"
		}
	}
	return p.expr(child, ctxLeft)
}

func (p *Printer) operator(op string) string {
	if p.options.SpaceAroundOps {
		return " " + op + " "
	}
	return op
}

func (p *Printer) exprList(exprs []ast.Expr, ctx exprContext) string {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		parts = append(parts, p.expr(e, ctx))
	}
	return strings.Join(parts, ", ")
}

// bare 不带外层括号的表达式
func (p *Printer) bare(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.BoolOp:
		keyword := " and "
		if e.Op == ast.Or {
			keyword = " or "
		}
		var sb strings.Builder
		sb.WriteString(p.left(e.Values[0], e))
		for _, value := range e.Values[1:] {
			sb.WriteString(keyword)
			sb.WriteString(p.expr(value, ctxOperand))
		}
		return sb.String()

	case *ast.BinOp:
		if parts, ok := fstringParts(e); ok {
			return p.fstring(parts)
		}
		return p.left(e.Left, e) + p.operator(e.Op.Symbol()) + p.expr(e.Right, ctxOperand)

	case *ast.Compare:
		var sb strings.Builder
		sb.WriteString(p.left(e.Left, e))
		for i, op := range e.Ops {
			symbol := compareSymbols[op]
			if op >= ast.Is {
				sb.WriteString(" " + symbol + " ")
			} else {
				sb.WriteString(p.operator(symbol))
			}
			sb.WriteString(p.expr(e.Comparators[i], ctxOperand))
		}
		return sb.String()

	case *ast.UnaryOp:
		return unarySymbols[e.Op] + p.expr(e.Operand, ctxOperand)

	case *ast.Lambda:
		params := p.arguments(e.Args)
		if params == "" {
			return "lambda: " + p.expr(e.Body, ctxElement)
		}
		return "lambda " + params + ": " + p.expr(e.Body, ctxElement)

	case *ast.Dict:
		parts := make([]string, len(e.Keys))
		for i := range e.Keys {
			parts[i] = p.expr(e.Keys[i], ctxColon) + ": " + p.expr(e.Values[i], ctxElement)
		}
		return "{" + strings.Join(parts, ", ") + "}"

	case *ast.Call:
		parts := make([]string, 0, len(e.Args)+len(e.Keywords))
		for _, arg := range e.Args {
			parts = append(parts, p.expr(arg, ctxElement))
		}
		for _, kw := range e.Keywords {
			if kw.Arg == "" {
				parts = append(parts, "**"+p.expr(kw.Value, ctxElement))
			} else {
				parts = append(parts, kw.Arg+"="+p.expr(kw.Value, ctxElement))
			}
		}
		return p.expr(e.Func, ctxSuffix) + "(" + strings.Join(parts, ", ") + ")"

	case *ast.Constant:
		return constant(e.Value)

	case *ast.Attribute:
		return p.expr(e.Value, ctxSuffix) + "." + e.Attr

	case *ast.Subscript:
		return p.expr(e.Value, ctxSuffix) + "[" + p.subscript(e.Slice) + "]"

	case *ast.Name:
		return e.ID

	case *ast.List:
		return "[" + p.exprList(e.Elts, ctxElement) + "]"

	case *ast.Tuple:
		switch len(e.Elts) {
		case 0:
			return ""
		case 1:
			return p.expr(e.Elts[0], ctxElement) + ","
		}
		return p.exprList(e.Elts, ctxElement)

	case *ast.Slice, *ast.Index:
		return p.subscript(e)

	case *ast.FormattedValue:
		return p.fstring([]ast.Expr{e})
	}
	return ""
}

// subscript 下标内容：单个值、切片或多个值
func (p *Printer) subscript(e ast.Expr) string {
	switch s := e.(type) {
	case *ast.Index:
		if t, ok := s.Value.(*ast.Tuple); ok && len(t.Elts) > 0 {
			if len(t.Elts) == 1 {
				return p.expr(t.Elts[0], ctxElement) + ","
			}
			return p.exprList(t.Elts, ctxElement)
		}
		return p.expr(s.Value, ctxElement)
	case *ast.Slice:
		text := p.optional(s.Lower) + ":" + p.optional(s.Upper)
		if s.Step != nil {
			text += ":" + p.expr(s.Step, ctxColon)
		}
		return text
	}
	return p.expr(e, ctxElement)
}

func (p *Printer) optional(e ast.Expr) string {
	if e == nil {
		return ""
	}
	return p.expr(e, ctxColon)
}

// ============================================================================
// 字面量
// ============================================================================

func constant(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case string:
		return "'" + escape(v, '\'') + "'"
	}
	return ""
}

// escape 转义反斜杠、引号和控制字符
func escape(s string, quote byte) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\0`)
		case quote:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// docstring 含换行的字符串语句打印为三引号字符串
func docstring(s string) string {
	var sb strings.Builder
	sb.WriteString(`"""`)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\0`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteString(`"""`)
	return sb.String()
}

// ============================================================================
// f-string
// ============================================================================

// fstringParts 拆出由 f-string 产生的 + 链：叶子是非空字符串常量和
// FormattedValue，至少有一个 FormattedValue，且没有相邻的常量
func fstringParts(e ast.Expr) ([]ast.Expr, bool) {
	var parts []ast.Expr
	for {
		b, ok := e.(*ast.BinOp)
		if !ok || b.Op != ast.Add || !isFStringPart(b.Right) {
			break
		}
		parts = append(parts, b.Right)
		e = b.Left
	}
	if !isFStringPart(e) {
		return nil, false
	}
	parts = append(parts, e)
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}

	field := false
	for i, part := range parts {
		if _, ok := part.(*ast.FormattedValue); ok {
			field = true
			continue
		}
		if i > 0 {
			if _, ok := parts[i-1].(*ast.Constant); ok {
				return nil, false
			}
		}
	}
	return parts, field
}

func isFStringPart(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.FormattedValue:
		return true
	case *ast.Constant:
		s, ok := e.Value.(string)
		return ok && s != ""
	}
	return false
}

// fstring 先拼出词法分析器解码后的内容，再整体按双引号字符串转义
func (p *Printer) fstring(parts []ast.Expr) string {
	return `f"` + escape(p.fstringContent(parts), '"') + `"`
}

func (p *Printer) fstringContent(parts []ast.Expr) string {
	var sb strings.Builder
	for _, part := range parts {
		switch v := part.(type) {
		case *ast.Constant:
			s, _ := v.Value.(string)
			s = strings.ReplaceAll(s, "{", "{{")
			sb.WriteString(strings.ReplaceAll(s, "}", "}}"))
		case *ast.FormattedValue:
			sb.WriteString(p.field(v))
		}
	}
	return sb.String()
}

// field 替换字段 {expr[!c][:spec]}
func (p *Printer) field(fv *ast.FormattedValue) string {
	text := p.expr(fv.Value, ctxField)
	if _, ok := fv.Value.(*ast.Lambda); ok {
		text = "(" + text + ")"
	}
	if strings.HasPrefix(text, "{") {
		text = " " + text
	}
	if fv.Conversion != 0 {
		text += "!" + string(fv.Conversion)
	}
	if fv.FormatSpec != nil {
		text += ":" + p.spec(fv.FormatSpec)
	}
	return "{" + text + "}"
}

// spec 格式说明与 f-string 内容的写法相同
func (p *Printer) spec(e ast.Expr) string {
	if c, ok := e.(*ast.Constant); ok {
		if s, ok := c.Value.(string); ok && s == "" {
			return ""
		}
	}
	if isFStringPart(e) {
		return p.fstringContent([]ast.Expr{e})
	}
	if parts, ok := fstringParts(e); ok {
		return p.fstringContent(parts)
	}
	// 只含常量的 + 链
	var consts []ast.Expr
	for {
		b, ok := e.(*ast.BinOp)
		if !ok {
			break
		}
		consts = append([]ast.Expr{b.Right}, consts...)
		e = b.Left
	}
	return p.fstringContent(append([]ast.Expr{e}, consts...))
}
