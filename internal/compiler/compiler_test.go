package compiler

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tangzhangming/pyra/internal/bytecode"
	"github.com/tangzhangming/pyra/internal/errors"
)

func observed() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core).Sugar(), logs
}

func mustCompile(t *testing.T, src string) *bytecode.Code {
	t.Helper()
	code, err := CompileString(src, "test.py", nil)
	if err != nil {
		t.Fatalf("compile %q failed: %v", src, err)
	}
	if err := bytecode.Verify(code); err != nil {
		t.Fatalf("compile %q produced invalid code: %v", src, err)
	}
	return code
}

// listing 把指令渲染为 "OP operand"
func listing(code *bytecode.Code) []string {
	var out []string
	for ip := 0; ip < code.IP(); ip++ {
		op, operand := code.At(ip)
		out = append(out, fmt.Sprintf("%s %d", op, operand))
	}
	return out
}

func checkListing(t *testing.T, code *bytecode.Code, want []string) {
	t.Helper()
	got := listing(code)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("listing mismatch\ngot:\n  %s\nwant:\n  %s", strings.Join(got, "\n  "), strings.Join(want, "\n  "))
	}
}

func TestConstantDedup(t *testing.T) {
	code, err := CompileExpressionString("1+1", nil)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, k := range code.Constants {
		if k.Equal(bytecode.IntConst(1)) {
			count++
		}
	}
	if count != 1 || len(code.Constants) != 1 {
		t.Errorf("constants = %v, want exactly one Integer(1)", code.Constants)
	}
	checkListing(t, code, []string{
		"LOAD_CONST 0",
		"LOAD_CONST 0",
		"BINARY 0",
		"RETURN 0",
	})
	if code.Kind != bytecode.KindExpression || code.Filename != "expression" {
		t.Errorf("code = %s %s", code.Kind, code.Filename)
	}
}

func TestForLoopLayout(t *testing.T) {
	code := mustCompile(t, "for a in range(1): b = a")
	checkListing(t, code, []string{
		"LOAD_NAME 0", // range
		"LOAD_CONST 1",
		"CALL 1",
		"ITER 0",
		"NEXT 10",
		"STORE_NAME 2", // a
		"LOAD_NAME 2",
		"STORE_NAME 3", // b
		"NEXT 10",
		"JMP 5",
		"POP 0",
		"LOAD_SPECIAL 0",
		"RETURN 0",
	})
}

func TestIfElseLayout(t *testing.T) {
	code := mustCompile(t, "if a:\n    x = 1\nelse:\n    x = 2\n")
	checkListing(t, code, []string{
		"LOAD_NAME 0",
		"JNT 5",
		"LOAD_CONST 1",
		"STORE_NAME 2",
		"JMP 7",
		"LOAD_CONST 3",
		"STORE_NAME 2",
		"LOAD_SPECIAL 0",
		"RETURN 0",
	})
}

func TestWhileBreakContinue(t *testing.T) {
	code := mustCompile(t, "while a:\n    if b:\n        break\n    continue\n")
	checkListing(t, code, []string{
		"LOAD_NAME 0",
		"JNT 7",
		"LOAD_NAME 1",
		"JNT 5",
		"JMP 7", // break
		"JMP 0", // continue
		"JMP 0",
		"LOAD_SPECIAL 0",
		"RETURN 0",
	})
}

func TestTryLayout(t *testing.T) {
	code := mustCompile(t, "try:\n    a\nexcept E as e:\n    b\nfinally:\n    c\n")
	checkListing(t, code, []string{
		"TRY 5",
		"LOAD_NAME 0", // a
		"POP 0",
		"HANDLE 0",
		"JMP 17",
		"DUP 1",
		"LOAD_NAME 1", // E
		fmt.Sprintf("COMPARE %d", bytecode.CmpExcMatch),
		"JNT 14",
		"STORE_NAME 2", // e
		"LOAD_NAME 3",  // b
		"POP 0",
		"HANDLE 0",
		"JMP 17",
		"LOAD_NAME 4", // c，未匹配时执行 finally 后重新抛出
		"POP 0",
		"RAISE 0",
		"LOAD_NAME 4",
		"POP 0",
		"LOAD_SPECIAL 0",
		"RETURN 0",
	})
}

func TestBreakInsideTryLeavesHandler(t *testing.T) {
	code := mustCompile(t, "while a:\n    try:\n        break\n    except E:\n        continue\n")
	got := strings.Join(listing(code), "\n")
	// break 在受保护区域内，continue 在 except 子句内，跳出前都要 HANDLE
	if strings.Count(got, "HANDLE 0") != 4 {
		t.Errorf("expected 4 HANDLE instructions:\n%s", got)
	}
}

func TestNestedCodeObjects(t *testing.T) {
	code := mustCompile(t, "def f(x, y=1, *a, **k):\n    return x\nclass C(B):\n    pass\ng = lambda: 0\n")

	var codes []*bytecode.Code
	for _, k := range code.Constants {
		if k.Kind == bytecode.ConstCode {
			codes = append(codes, k.Code)
		}
	}
	if len(codes) != 3 {
		t.Fatalf("got %d code constants, want 3", len(codes))
	}
	f, cls, lam := codes[0], codes[1], codes[2]
	if f.Name != "f" || f.Kind != bytecode.KindFunction || strings.Join(f.Params, ",") != "x,y" || f.Vararg != "a" || f.Kwarg != "k" {
		t.Errorf("f = %+v", f)
	}
	if cls.Name != "C" || cls.Kind != bytecode.KindClass || cls.FirstLine != 3 {
		t.Errorf("C = %s %s line %d", cls.Name, cls.Kind, cls.FirstLine)
	}
	if lam.Name != "<lambda>" || lam.Kind != bytecode.KindLambda {
		t.Errorf("lambda = %s %s", lam.Name, lam.Kind)
	}
	checkListing(t, f, []string{"LOAD_NAME 0", "RETURN 0", "LOAD_SPECIAL 0", "RETURN 0"})

	got := strings.Join(listing(code), "\n")
	for _, want := range []string{"MAKE_FUNCTION 1", "MAKE_CLASS 1", "MAKE_FUNCTION 0"} {
		if !strings.Contains(got, want) {
			t.Errorf("module code missing %s:\n%s", want, got)
		}
	}
}

func TestCallLayout(t *testing.T) {
	code := mustCompile(t, "f(1, k=2)")
	checkListing(t, code, []string{
		"LOAD_NAME 0",
		"LOAD_CONST 1", // 2
		"LOAD_CONST 2", // 'k'
		"LOAD_CONST 3", // 1
		fmt.Sprintf("CALL %d", bytecode.CallOperand(1, 1)),
		"POP 0",
		"LOAD_SPECIAL 0",
		"RETURN 0",
	})
	if code.Constants[2].Kind != bytecode.ConstString || code.Constants[2].Str != "k" {
		t.Errorf("keyword name constant = %v", code.Constants[2])
	}
}

func TestCompositesReversed(t *testing.T) {
	code := mustCompile(t, "x = [1, 2]\ny = {'a': 1}")
	checkListing(t, code, []string{
		"LOAD_CONST 0", // 2
		"LOAD_CONST 1", // 1
		fmt.Sprintf("BUILD %d", bytecode.BuildOperand(bytecode.BuildList, 2)),
		"STORE_NAME 2",
		"LOAD_CONST 1", // value 1
		"LOAD_CONST 3", // key 'a'
		fmt.Sprintf("BUILD %d", bytecode.BuildOperand(bytecode.BuildDict, 1)),
		"STORE_NAME 4",
		"LOAD_SPECIAL 0",
		"RETURN 0",
	})
}

func TestAugAssignTargets(t *testing.T) {
	code := mustCompile(t, "a.b += 1")
	checkListing(t, code, []string{
		"LOAD_NAME 0",
		"DUP 1",
		"LOAD_ATTR 1",
		"LOAD_CONST 2",
		"BINARY 0",
		"ROT 2",
		"STORE_ATTR 1",
		"LOAD_SPECIAL 0",
		"RETURN 0",
	})

	code = mustCompile(t, "a[i] -= 1")
	checkListing(t, code, []string{
		"LOAD_NAME 0",
		"LOAD_NAME 1",
		"DUP 2",
		"SUBSCR 0",
		"LOAD_CONST 2",
		"BINARY 1",
		"ROT 3",
		"SUBSCR 1",
		"LOAD_SPECIAL 0",
		"RETURN 0",
	})
}

func TestDestructuring(t *testing.T) {
	code := mustCompile(t, "a, b = c")
	checkListing(t, code, []string{
		"LOAD_NAME 0",
		"ITER 0",
		"NEXT 6",
		"STORE_NAME 1",
		"NEXT 6",
		"STORE_NAME 2",
		"POP 0",
		"LOAD_SPECIAL 0",
		"RETURN 0",
	})
}

// TestAllJumpsPatched 覆盖所有会预留槽位的结构，验证器保证没有遗留占位符
func TestAllJumpsPatched(t *testing.T) {
	src := `import os.path
from .m import x as y, z
from m import *
def f(a, b=[1, 2], *rest, **kw):
    for i, (j, k) in enumerate(a):
        if i < j <= k and not b or k:
            continue
        elif i is not None:
            break
        else:
            pass
    while a:
        try:
            a = a[1:2]
            break
        except (E, F) as e:
            raise X from e
        except:
            raise
        else:
            del a[0], b.c
        finally:
            a.b.c = {1: 2}
    return lambda x=1: x ** 2
class K(A, B):
    n = f"v={a!r:>{w}}"
assert f(1, k=2, **d), "msg"
x = y = -z
`
	code := mustCompile(t, src)
	var walk func(c *bytecode.Code)
	walk = func(c *bytecode.Code) {
		for ip := 0; ip < c.IP(); ip++ {
			if c.Word(ip) == bytecode.Placeholder {
				t.Errorf("%s: placeholder left at %d", c.Name, ip)
			}
		}
		for _, k := range c.Constants {
			if k.Kind == bytecode.ConstCode {
				walk(k.Code)
			}
		}
	}
	walk(code)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
		msg  string
		at   string
	}{
		{"break outside loop", "break", errors.C0001, "'break' outside loop on line 1", "test.py:1:1"},
		{"continue outside loop", "x = 1\ncontinue", errors.C0001, "'continue' outside loop on line 2", "test.py:2:1"},
		{"break inside function inside loop", "for x in y:\n    def f():\n        break\n", errors.C0001, "'break' outside loop on line 3", "test.py:3:9"},
		{"break after semicolon", "x = 1; break", errors.C0001, "'break' outside loop on line 1", "test.py:1:8"},
		{"tuple arity", "a, b = 1, 2, 3", errors.C0003, "cannot unpack 3 values into 2 targets on line 1", "test.py:1:1"},
		{"nested arity", "a, [b, c] = 1, [2]", errors.C0003, "cannot unpack 1 values into 2 targets on line 1", "test.py:1:4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := observed()
			_, err := CompileString(tt.src, "test.py", log)
			cerr, ok := err.(*errors.CompileError)
			if !ok {
				t.Fatalf("err = %v, want *errors.CompileError", err)
			}
			if cerr.Code != tt.code || cerr.Message != tt.msg {
				t.Errorf("got %s %q, want %s %q", cerr.Code, cerr.Message, tt.code, tt.msg)
			}
			if want := tt.at + ": " + tt.msg; cerr.Error() != want {
				t.Errorf("error = %q, want %q", cerr.Error(), want)
			}
			errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
			if len(errs) != 1 || errs[0].Message != tt.msg {
				t.Errorf("error log = %v", errs)
			}
		})
	}
}

func TestArityOnlyCheckedForLiterals(t *testing.T) {
	mustCompile(t, "a, b = f()")
	mustCompile(t, "a, b = [1, 2]")
	mustCompile(t, "a = 1, 2, 3")
}

func TestParseErrorPassesThrough(t *testing.T) {
	_, err := CompileString("x = )", "test.py", nil)
	cerr, ok := err.(*errors.CompileError)
	if !ok || cerr.Code != errors.P0001 {
		t.Errorf("err = %v, want P0001", err)
	}
}

func TestLineTable(t *testing.T) {
	code := mustCompile(t, "a = 1\n\nb = 2\n")
	if code.Lines[0] != 1 || code.Lines[1] != 1 || code.Lines[2] != 3 || code.Lines[3] != 3 {
		t.Errorf("lines = %v", code.Lines)
	}
	if len(code.Lines) != code.IP() {
		t.Errorf("line table has %d entries for %d instructions", len(code.Lines), code.IP())
	}
}

func TestCompileLogsSummary(t *testing.T) {
	log, logs := observed()
	if _, err := CompileString("x = 1", "t.py", log); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("compiled t.py: 1 code objects, 4 instructions").All()
	if len(entries) != 1 || entries[0].Level != zapcore.InfoLevel {
		t.Errorf("info log = %v", logs.All())
	}
}

func TestDisassembleCompiled(t *testing.T) {
	out := mustCompile(t, "for a in range(1): b = a").Disassemble()
	for _, want := range []string{"NEXT", "(to 10)", "STORE_NAME", "(range)", "=== module <module> (test.py) ==="} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}
