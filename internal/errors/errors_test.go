package errors

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func TestCompileErrorString(t *testing.T) {
	err := New(P0001, "main.py", 2, 5, "Unexpected token on line 2, column 5: ')'")
	if got, want := err.Error(), "main.py:2:5: Unexpected token on line 2, column 5: ')'"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatCompileError(t *testing.T) {
	f := &Formatter{ShowSource: true, ShowHints: true, TabWidth: 4}
	err := New(P0001, "main.py", 2, 4, "Unexpected token on line 2, column 4: ')'")
	err.Hints = []string{"remove it"}

	out := f.FormatCompileError(err, []string{"x = 1", "f(a))"})

	for _, want := range []string{
		"error[P0001]: Unexpected token",
		" --> main.py:2:4",
		"2 | f(a))",
		"  |    ^",
		" = help: remove it",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReporterAggregates(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)
	r.SetFormatter(&Formatter{ShowSource: true, TabWidth: 4})
	r.SetSource("a.py", "if x:\npass")
	r.SetSource("b.py", "y = ")

	r.Report(nil)
	if r.HasErrors() || r.Err() != nil {
		t.Fatal("nil report should not count")
	}

	r.Report(multierr.Combine(
		New(P0003, "a.py", 2, 1, "Missing body on line 2, column 1"),
		New(P0001, "b.py", 1, 5, "Unexpected token on line 1, column 5: ''"),
	))
	r.Report(fmt.Errorf("open c.py: no such file"))

	if r.ErrorCount() != 3 {
		t.Fatalf("ErrorCount = %d, want 3", r.ErrorCount())
	}
	if len(multierr.Errors(r.Err())) != 3 {
		t.Errorf("Err() should combine 3 errors, got %v", r.Err())
	}
	if len(r.Errors()[0].Hints) == 0 {
		t.Error("expected suggestions to be filled for P0003")
	}
	if !strings.Contains(buf.String(), "c.py") || !strings.Contains(buf.String(), "error[P0003]") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestColorize(t *testing.T) {
	old := ColorsEnabled()
	defer SetColorsEnabled(old)

	SetColorsEnabled(true)
	s := Colorize("x", ColorRed)
	if s == "x" || Strip(s) != "x" {
		t.Errorf("unexpected colorized output %q", s)
	}
	SetColorsEnabled(false)
	if Colorize("x", ColorRed) != "x" {
		t.Error("colors disabled should return input")
	}
}
