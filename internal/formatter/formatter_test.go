package formatter

import (
	"strings"
	"testing"

	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/parser"
)

func mustFormat(t *testing.T, src string, options *Options) string {
	t.Helper()
	out, err := Format(src, "test.py", options)
	if err != nil {
		t.Fatalf("format %q failed: %v", src, err)
	}
	return out
}

func TestFormatStatements(t *testing.T) {
	src := "x=1;y = 2\n" +
		"if x:  # check\n" +
		"  y=x+1\n" +
		"elif y :\n" +
		"  pass\n" +
		"else:\n" +
		"  y = -x\n" +
		"for a,b in pairs: print(a)\n" +
		"while not done:\n" +
		"  done = step( )\n" +
		"del a, b[0]\n" +
		"assert x, 'msg'\n" +
		"from ..pkg.mod import (a as b, c,)\n" +
		"import os.path as p, sys\n"
	want := "x = 1\n" +
		"y = 2\n" +
		"if x:  # check\n" +
		"    y = x + 1\n" +
		"elif y:\n" +
		"    pass\n" +
		"else:\n" +
		"    y = -x\n" +
		"for a, b in pairs:\n" +
		"    print(a)\n" +
		"while not done:\n" +
		"    done = step()\n" +
		"del a, b[0]\n" +
		"assert x, 'msg'\n" +
		"from ..pkg.mod import a as b, c\n" +
		"import os.path as p, sys\n"

	if got := mustFormat(t, src, nil); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatParentheses(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		// 从左到右折叠，左侧的括号是多余的
		{"a = (b + c) * d", "a = b + c * d"},
		{"a = b * (c + d)", "a = b * (c + d)"},
		{"a = (x and y) and z", "a = (x and y) and z"},
		{"a = x and y and z", "a = x and y and z"},
		{"a = (x or y) and z", "a = x or y and z"},
		{"a = (x < y) < z", "a = (x < y) < z"},
		{"a = x < y < z", "a = x < y < z"},
		{"a = -(b + c)", "a = -(b + c)"},
		{"a = not x in y", "a = not x in y"},
		{"a = x is not None", "a = x is not None"},
		{"a = (1, 2)", "a = 1, 2"},
		{"a = (1,)", "a = (1,)"},
		{"a = ()", "a = ()"},
		{"f((1, 2), k=(lambda: 3), **kw)", "f((1, 2), k=lambda: 3, **kw)"},
		{"a = (lambda x: x) + 1", "a = (lambda x: x) + 1"},
		{"a = (-b).c", "a = (-b).c"},
		{"a = (1).real", "a = (1).real"},
		{"a = (b + c)[0]", "a = (b + c)[0]"},
		{"a = x[1:2]", "a = x[1:2]"},
		{"a = x[::2]", "a = x[::2]"},
		{"a = x[1, 2]", "a = x[1, 2]"},
		{"a = {'k': [1, 2], 2: (3, 4)}", "a = {'k': [1, 2], 2: (3, 4)}"},
		{"a += 1,2", "a += 1, 2"},
		{"a = b = c", "a = b = c"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := mustFormat(t, tt.input+"\n", nil)
			if got != tt.want+"\n" {
				t.Errorf("got %q, want %q", got, tt.want+"\n")
			}
		})
	}
}

func TestFormatLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`s = "it's"`, `s = 'it\'s'`},
		{`s = 'a\tb\n'`, `s = 'a\tb\n'`},
		{`s = 'a' 'b'`, `s = 'ab'`},
		{"n = 0x10", "n = 16"},
		{"n = .5", "n = 0.5"},
		{"n = 2.0", "n = 2.0"},
		{"n = None, True, False", "n = None, True, False"},
		{`t = f'{x!r:>10} and {y}'`, `t = f"{x!r:>10} and {y}"`},
		{`t = f'{x:>{w}}'`, `t = f"{x:>{w}}"`},
		{`t = f'{d["k"]}'`, `t = f"{d['k']}"`},
		{`t = f'{{literal}}'`, `t = '{literal}'`},
		{`t = f'a{{{x}}}'`, `t = f"a{{{x}}}"`},
		{`t = 'a' + f'{x}'`, `t = f"a{x}"`},
		{`t = s + f'{x}'`, `t = s + f"{x}"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := mustFormat(t, tt.input+"\n", nil)
			if got != tt.want+"\n" {
				t.Errorf("got %q, want %q", got, tt.want+"\n")
			}
		})
	}
}

func TestFormatCommentsAndBlankLines(t *testing.T) {
	src := `# header comment
import os
def f(a, b=1, *args, **kw):
    """Doc
    # not a comment
    string."""
    # inside
    return a  # done
class C(Base):
    pass
x = f(1)


y = 2
z = 3
`
	want := `# header comment
import os


def f(a, b=1, *args, **kw):
    """Doc
    # not a comment
    string."""
    # inside
    return a  # done


class C(Base):
    pass


x = f(1)

y = 2
z = 3
`
	if got := mustFormat(t, src, nil); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatTry(t *testing.T) {
	src := "try:\n  x()\n# before except\nexcept ValueError as e:\n  pass\nexcept:\n  raise\nelse:\n  y = 1\nfinally:\n  z = 2\n"
	want := "try:\n    x()\n# before except\nexcept ValueError as e:\n    pass\nexcept:\n    raise\nelse:\n    y = 1\nfinally:\n    z = 2\n"
	if got := mustFormat(t, src, nil); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

// 子句前的注释留在子句之前，缩进更深的注释仍属于上一个语句体
func TestFormatCommentsBeforeClauses(t *testing.T) {
	src := "if x:\n" +
		"  a = 1\n" +
		"  # end of body\n" +
		"# before else\n" +
		"else:  # trailing\n" +
		"  b = 2\n" +
		"try:\n" +
		"  c()\n" +
		"# before finally\n" +
		"finally:\n" +
		"  # cleanup\n" +
		"  d()\n"
	want := "if x:\n" +
		"    a = 1\n" +
		"    # end of body\n" +
		"# before else\n" +
		"else:  # trailing\n" +
		"    b = 2\n" +
		"try:\n" +
		"    c()\n" +
		"# before finally\n" +
		"finally:\n" +
		"    # cleanup\n" +
		"    d()\n"
	got := mustFormat(t, src, nil)
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if again := mustFormat(t, got, nil); again != got {
		t.Errorf("not idempotent:\n%s", again)
	}
}

func TestFormatNested(t *testing.T) {
	src := "class A:\n  x = 1\n  def m(self):\n    return self.x\n  def n(self): pass\n"
	want := "class A:\n    x = 1\n\n    def m(self):\n        return self.x\n\n    def n(self):\n        pass\n"
	if got := mustFormat(t, src, nil); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatOptions(t *testing.T) {
	src := "if x:\n    a = b+c\n"

	tabs := DefaultOptions()
	tabs.IndentStyle = IndentTabs
	if got := mustFormat(t, src, tabs); got != "if x:\n\ta = b + c\n" {
		t.Errorf("tabs: got %q", got)
	}

	compact := DefaultOptions()
	compact.IndentSize = 2
	compact.SpaceAroundOps = false
	if got := mustFormat(t, src, compact); got != "if x:\n  a = b+c\n" {
		t.Errorf("compact: got %q", got)
	}

	noComments := DefaultOptions()
	noComments.PreserveComments = false
	if got := mustFormat(t, "x = 1  # gone\n", noComments); got != "x = 1\n" {
		t.Errorf("comments: got %q", got)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		want   string
	}{
		{"style", func(o *Options) { o.IndentStyle = "mixed" }, "indent style"},
		{"size", func(o *Options) { o.IndentSize = 0 }, "indent size"},
		{"blank", func(o *Options) { o.BlankLinesTopLevel = 9 }, "blank lines"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.modify(o)
			_, err := Format("x = 1\n", "test.py", o)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFormatParseError(t *testing.T) {
	if _, err := Format("if x\n", "test.py", nil); err == nil {
		t.Fatal("expected parse error")
	}
}

// 格式化结果再次格式化不变，且语法树与原程序相同
func TestFormatIdempotent(t *testing.T) {
	src := `from . import helpers
def walk(tree, visit=lambda n: n, *rest, **opts):
    total = 0
    for key, (left, right) in tree.items():
        if left is None and right is not None or key in opts: continue
        total += visit(left)[0] * -right.size
    while total > 100 and not opts.get('quiet'):
        total = total // 2 ** 1
    return total, {'ok': total != 0}
try:
    r = walk({}, quiet=True)
except (KeyError, ValueError) as err:
    raise RuntimeError(f"walk failed: {err!s:<{width}}") from err
`
	first := mustFormat(t, src, nil)
	second := mustFormat(t, first, nil)
	if first != second {
		t.Errorf("not idempotent:\n%s\n---\n%s", first, second)
	}

	a, err := parser.FromString(src, "a.py", nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := parser.FromString(first, "b.py", nil)
	if err != nil {
		t.Fatal(err)
	}
	if ast.Dump(a) != ast.Dump(b) {
		t.Errorf("syntax tree changed:\n%s\n%s", ast.Dump(a), ast.Dump(b))
	}
}

func TestFormatNode(t *testing.T) {
	mod, err := parser.FromString("x = 1  # c\nif x: y = [x,2]\n", "test.py", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "x = 1\nif x:\n    y = [x, 2]\n"
	if got := FormatNode(mod, nil); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
