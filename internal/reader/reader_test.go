package reader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func drain(r Reader) string {
	var sb strings.Builder
	for !r.IsEOF() {
		if r.Peek() != r.Peek() {
			return "<peek not idempotent>"
		}
		sb.WriteRune(r.Read())
	}
	return sb.String()
}

func TestReadersBehaveIdentically(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"if a:\n    pass\n",
		"x = '中文'\n",
	}

	dir := t.TempDir()
	for i, input := range inputs {
		path := filepath.Join(dir, "src.py")
		if err := os.WriteFile(path, []byte(input), 0644); err != nil {
			t.Fatal(err)
		}

		fr, err := Open(path)
		if err != nil {
			t.Fatalf("input[%d]: open failed: %v", i, err)
		}
		got := drain(fr)
		fr.Close()
		if got != input {
			t.Errorf("input[%d]: file reader got %q, want %q", i, got, input)
		}

		sr := NewStringReader(input, "string")
		if got := drain(sr); got != input {
			t.Errorf("input[%d]: string reader got %q, want %q", i, got, input)
		}
	}
}

func TestEOFSentinel(t *testing.T) {
	readers := []Reader{
		NewStringReader("x", "s"),
		NewFileReader(strings.NewReader("x"), "f"),
	}
	for _, r := range readers {
		if r.IsEOF() {
			t.Fatalf("%s: unexpected EOF before first read", r.Name())
		}
		if ch := r.Read(); ch != 'x' {
			t.Fatalf("%s: got %q, want 'x'", r.Name(), ch)
		}
		if !r.IsEOF() {
			t.Errorf("%s: expected EOF", r.Name())
		}
		if r.Peek() != EOF || r.Read() != EOF || r.Read() != EOF {
			t.Errorf("%s: EOF is not sticky", r.Name())
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.py")); err == nil {
		t.Error("expected error for missing file")
	}
}
