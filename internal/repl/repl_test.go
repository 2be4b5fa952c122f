package repl

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tangzhangming/pyra/internal/bytecode"
)

func run(input string) string {
	var out bytes.Buffer
	config := DefaultConfig()
	config.Colors = false
	New(config, strings.NewReader(input), &out, nil).Run()
	return out.String()
}

func TestExpressionMode(t *testing.T) {
	out := run("1 + 2\n")
	for _, want := range []string{"<expression>", "BINARY", "RETURN"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "STORE_NAME") {
		t.Errorf("expression compiled as statements:\n%s", out)
	}
}

func TestStatementFallback(t *testing.T) {
	out := run("x = 1\n")
	if !strings.Contains(out, "<module>") || !strings.Contains(out, "STORE_NAME") {
		t.Errorf("statement not compiled as module:\n%s", out)
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		input string
		kind  bytecode.CodeKind
	}{
		{"a.b(1)", bytecode.KindExpression},
		{"[x, y][0]", bytecode.KindExpression},
		{"del a", bytecode.KindModule},
		{"import os", bytecode.KindModule},
	}
	for _, tt := range tests {
		code, err := Compile(tt.input, nil)
		if err != nil {
			t.Errorf("Compile(%q): %v", tt.input, err)
			continue
		}
		if code.Kind != tt.kind {
			t.Errorf("Compile(%q) kind = %v, want %v", tt.input, code.Kind, tt.kind)
		}
	}
}

func TestBlockInput(t *testing.T) {
	out := run("if x:\n    y = 1\n\n")
	if !strings.Contains(out, "... ") {
		t.Errorf("no continuation prompt:\n%s", out)
	}
	if !strings.Contains(out, "JNT") {
		t.Errorf("block not compiled:\n%s", out)
	}
}

func TestBracketContinuation(t *testing.T) {
	out := run("(1,\n 2)\n")
	if strings.Count(out, "... ") != 1 {
		t.Errorf("expected one continuation prompt:\n%s", out)
	}
	if !strings.Contains(out, "BUILD") {
		t.Errorf("tuple not compiled:\n%s", out)
	}
}

func TestUnfinishedBlockAtEOF(t *testing.T) {
	out := run("while x:\n    pass\n")
	if !strings.Contains(out, "JMP") {
		t.Errorf("pending block not submitted at end of input:\n%s", out)
	}
}

func TestErrorReported(t *testing.T) {
	out := run("1 +\nx = 2\n")
	if !strings.Contains(out, "error[") {
		t.Errorf("diagnostic not printed:\n%s", out)
	}
	if !strings.Contains(out, "STORE_NAME") {
		t.Errorf("prompt did not recover after an error:\n%s", out)
	}
}

func TestCommands(t *testing.T) {
	out := run(":help\nx = 1\nx = 1\ny\n:history\n:nope\nexit\nz\n")
	if !strings.Contains(out, "Available commands:") {
		t.Errorf("help missing:\n%s", out)
	}
	if !strings.Contains(out, "   1  x = 1\n   2  y\n") {
		t.Errorf("history not deduplicated:\n%s", out)
	}
	if !strings.Contains(out, "Unknown command: :nope") {
		t.Errorf("unknown command not reported:\n%s", out)
	}
	if !strings.HasSuffix(out, "bye\n") {
		t.Errorf("exit did not end the session:\n%s", out)
	}
}

func TestStatementLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	if _, err := Compile("x = 1", zap.New(core).Sugar()); err != nil {
		t.Fatal(err)
	}
	if logs.FilterMessage("compiled <stdin>: 1 code objects, 4 instructions").Len() != 1 {
		for _, e := range logs.All() {
			t.Log(e.Message)
		}
		t.Error("statement compile summary not logged")
	}
}

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"f(1,", true},
		{"f(1)", false},
		{"[1, {2:", true},
		{"'('", false},
		{"x = '''a", true},
		{"x = '''a\nb'''", false},
		{"x = 1 # (", false},
		{`"\"("`, false},
	}
	for _, tt := range tests {
		if got := needsMoreInput(tt.input); got != tt.want {
			t.Errorf("needsMoreInput(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
