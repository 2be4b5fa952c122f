package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"
)

// ============================================================================
// 节点字段表
// ============================================================================
//
// fieldsOf 为每种节点列出有序字段，Dump 和 JSON 导出共用这张表。
//
// ============================================================================

type field struct {
	name  string
	value interface{}
}

// constValue 包装 Constant 的值，以字面量形式输出
type constValue struct{ v interface{} }

func optString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func optArg(a *Arg) interface{} {
	if a == nil {
		return nil
	}
	return a
}

func fieldsOf(n Node) (string, []field) {
	switch n := n.(type) {
	// mod
	case *Module:
		return "Module", []field{{"body", n.Body}}
	case *Expression:
		return "Expression", []field{{"body", n.Body}}

	// stmt
	case *FunctionDef:
		return "FunctionDef", []field{{"name", n.Name}, {"args", n.Args}, {"body", n.Body}}
	case *ClassDef:
		return "ClassDef", []field{{"name", n.Name}, {"bases", n.Bases}, {"body", n.Body}}
	case *Return:
		return "Return", []field{{"value", n.Value}}
	case *Delete:
		return "Delete", []field{{"targets", n.Targets}}
	case *Assign:
		return "Assign", []field{{"targets", n.Targets}, {"value", n.Value}}
	case *AugAssign:
		return "AugAssign", []field{{"target", n.Target}, {"op", n.Op}, {"value", n.Value}}
	case *For:
		return "For", []field{{"target", n.Target}, {"iter", n.Iter}, {"body", n.Body}, {"orelse", n.OrElse}}
	case *While:
		return "While", []field{{"test", n.Test}, {"body", n.Body}, {"orelse", n.OrElse}}
	case *If:
		return "If", []field{{"test", n.Test}, {"body", n.Body}, {"orelse", n.OrElse}}
	case *Raise:
		return "Raise", []field{{"exc", n.Exc}, {"cause", n.Cause}}
	case *Try:
		return "Try", []field{{"body", n.Body}, {"handlers", n.Handlers}, {"orelse", n.OrElse}, {"finalbody", n.FinalBody}}
	case *Assert:
		return "Assert", []field{{"test", n.Test}, {"msg", n.Msg}}
	case *Import:
		return "Import", []field{{"names", n.Names}}
	case *ImportFrom:
		return "ImportFrom", []field{{"module", optString(n.Module)}, {"names", n.Names}, {"level", n.Level}}
	case *ExprStmt:
		return "Expr", []field{{"value", n.Value}}
	case *Pass:
		return "Pass", nil
	case *Break:
		return "Break", nil
	case *Continue:
		return "Continue", nil

	// expr
	case *BoolOp:
		return "BoolOp", []field{{"op", n.Op}, {"values", n.Values}}
	case *BinOp:
		return "BinOp", []field{{"left", n.Left}, {"op", n.Op}, {"right", n.Right}}
	case *UnaryOp:
		return "UnaryOp", []field{{"op", n.Op}, {"operand", n.Operand}}
	case *Lambda:
		return "Lambda", []field{{"args", n.Args}, {"body", n.Body}}
	case *Dict:
		return "Dict", []field{{"keys", n.Keys}, {"values", n.Values}}
	case *Compare:
		return "Compare", []field{{"left", n.Left}, {"ops", n.Ops}, {"comparators", n.Comparators}}
	case *Call:
		return "Call", []field{{"func", n.Func}, {"args", n.Args}, {"keywords", n.Keywords}}
	case *Constant:
		return "Constant", []field{{"value", constValue{n.Value}}}
	case *Attribute:
		return "Attribute", []field{{"value", n.Value}, {"attr", n.Attr}, {"ctx", n.Ctx}}
	case *Subscript:
		return "Subscript", []field{{"value", n.Value}, {"slice", n.Slice}, {"ctx", n.Ctx}}
	case *Name:
		return "Name", []field{{"id", n.ID}, {"ctx", n.Ctx}}
	case *List:
		return "List", []field{{"elts", n.Elts}, {"ctx", n.Ctx}}
	case *Tuple:
		return "Tuple", []field{{"elts", n.Elts}, {"ctx", n.Ctx}}
	case *Slice:
		return "Slice", []field{{"lower", n.Lower}, {"upper", n.Upper}, {"step", n.Step}}
	case *Index:
		return "Index", []field{{"value", n.Value}}
	case *FormattedValue:
		var conv interface{}
		if n.Conversion != 0 {
			conv = string(n.Conversion)
		}
		return "FormattedValue", []field{{"value", n.Value}, {"conversion", conv}, {"format_spec", n.FormatSpec}}

	// 辅助记录
	case *Arg:
		return "arg", []field{{"arg", n.Name}}
	case *Alias:
		return "alias", []field{{"name", n.Name}, {"asname", optString(n.AsName)}}
	case *ExceptHandler:
		return "excepthandler", []field{{"type", n.Type}, {"name", optString(n.Name)}, {"body", n.Body}}
	case *Keyword:
		return "keyword", []field{{"arg", n.Arg}, {"value", n.Value}}
	}
	return fmt.Sprintf("%T", n), nil
}

func argumentsFields(a *Arguments) []field {
	return []field{
		{"args", a.Args},
		{"defaults", a.Defaults},
		{"vararg", optArg(a.Vararg)},
		{"kwarg", optArg(a.Kwarg)},
	}
}

// ============================================================================
// Dump
// ============================================================================

// Dump 返回节点的紧凑文本形式，例如
//
//	BinOp(BinOp(Name('a'), Add, Name('b')), Mult, Name('c'))
//
// 上下文为 Load 时省略 ctx 字段。
func Dump(n Node) string {
	var sb strings.Builder
	dumpValue(&sb, n)
	return sb.String()
}

func dumpNode(sb *strings.Builder, n Node) {
	tag, fields := fieldsOf(n)
	sb.WriteString(tag)
	if fields == nil {
		return
	}
	dumpFields(sb, fields)
}

func dumpFields(sb *strings.Builder, fields []field) {
	sb.WriteByte('(')
	first := true
	for _, f := range fields {
		if ctx, ok := f.value.(ExprContext); ok && ctx == Load {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		dumpValue(sb, f.value)
	}
	sb.WriteByte(')')
}

func dumpValue(sb *strings.Builder, v interface{}) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("None")
	case Node:
		dumpNode(sb, v)
	case *Arguments:
		if v == nil {
			sb.WriteString("None")
			return
		}
		sb.WriteString("arguments")
		dumpFields(sb, argumentsFields(v))
	case constValue:
		sb.WriteString(constRepr(v.v))
	case string:
		sb.WriteString(quote(v))
	case int:
		sb.WriteString(strconv.Itoa(v))
	case fmt.Stringer:
		sb.WriteString(v.String())
	default:
		items := listItems(v)
		sb.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				sb.WriteString(", ")
			}
			dumpValue(sb, item)
		}
		sb.WriteByte(']')
	}
}

// listItems 把各种节点切片展开为 []interface{}
func listItems(v interface{}) []interface{} {
	var items []interface{}
	switch v := v.(type) {
	case []Stmt:
		for _, x := range v {
			items = append(items, x)
		}
	case []Expr:
		for _, x := range v {
			items = append(items, x)
		}
	case []*Arg:
		for _, x := range v {
			items = append(items, x)
		}
	case []*Alias:
		for _, x := range v {
			items = append(items, x)
		}
	case []*ExceptHandler:
		for _, x := range v {
			items = append(items, x)
		}
	case []*Keyword:
		for _, x := range v {
			items = append(items, x)
		}
	case []CmpOp:
		for _, x := range v {
			items = append(items, x)
		}
	}
	return items
}

// constRepr 按源码字面量形式输出常量
func constRepr(v interface{}) string {
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
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return s
	case string:
		return quote(v)
	}
	return fmt.Sprintf("%v", v)
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\t", `\t`, "\r", `\r`)

func quote(s string) string {
	return "'" + quoteReplacer.Replace(s) + "'"
}

// ============================================================================
// JSON 导出
// ============================================================================

// ToJSON 以 JSON 导出节点树
//
// 每个节点是一个对象：_type 为节点标签，line/column 为位置，其余为字段。
func ToJSON(n Node, indent bool) ([]byte, error) {
	v := jsonValue(n)
	if indent {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func jsonValue(v interface{}) interface{} {
	switch v := v.(type) {
	case nil:
		return nil
	case Node:
		tag, fields := fieldsOf(v)
		m := map[string]interface{}{
			"_type":  tag,
			"line":   v.Pos().Line,
			"column": v.Pos().Column,
		}
		for _, f := range fields {
			m[f.name] = jsonValue(f.value)
		}
		return m
	case *Arguments:
		if v == nil {
			return nil
		}
		m := map[string]interface{}{"_type": "arguments"}
		for _, f := range argumentsFields(v) {
			m[f.name] = jsonValue(f.value)
		}
		return m
	case constValue:
		return v.v
	case string, int:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		items := listItems(v)
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			out = append(out, jsonValue(item))
		}
		return out
	}
}
