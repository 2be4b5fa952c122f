package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"

	"github.com/tangzhangming/pyra/internal/errors"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func pyra(t *testing.T, args ...string) result {
	t.Helper()
	t.Setenv("PYRA_LANG", "en")
	errors.SetColorsEnabled(false)
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(""), &stdout, &stderr)
	return result{code, stdout.String(), stderr.String()}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	r := pyra(t, "version")
	if r.code != 0 || r.stdout != "pyra "+Version+"\n" {
		t.Errorf("version = %+v", r)
	}
}

func TestUsage(t *testing.T) {
	r := pyra(t)
	if r.code != 0 || !strings.Contains(r.stdout, "Usage: pyra") {
		t.Errorf("usage = %+v", r)
	}
}

func TestUnknownCommand(t *testing.T) {
	r := pyra(t, "bogus")
	if r.code != 2 || !strings.Contains(r.stderr, "unknown command: bogus") {
		t.Errorf("got %+v", r)
	}

	r = pyra(t, "-lang", "zh", "bogus")
	if !strings.Contains(r.stderr, "未知命令: bogus") {
		t.Errorf("-lang zh ignored: %q", r.stderr)
	}
}

func TestNoInput(t *testing.T) {
	r := pyra(t, "check")
	if r.code != 1 || !strings.Contains(r.stderr, "no input files") {
		t.Errorf("got %+v", r)
	}
}

func TestTokens(t *testing.T) {
	src := writeFile(t, t.TempDir(), "a.py", "x = 1\n")

	r := pyra(t, "tokens", src)
	if r.code != 0 || !strings.Contains(r.stdout, `("x") at 1:1`) {
		t.Errorf("tokens = %+v", r)
	}

	r = pyra(t, "tokens", "-json", src)
	var tokens []map[string]interface{}
	if err := json.Unmarshal([]byte(r.stdout), &tokens); err != nil {
		t.Fatalf("tokens -json is not JSON: %v\n%s", err, r.stdout)
	}
	found := false
	for _, tok := range tokens {
		if tok["value"] == "x" && tok["line"] == float64(1) {
			found = true
		}
	}
	if !found {
		t.Errorf("identifier token missing from %v", tokens)
	}
}

func TestAST(t *testing.T) {
	src := writeFile(t, t.TempDir(), "a.py", "x = a + b\n")

	r := pyra(t, "ast", src)
	if r.code != 0 || !strings.Contains(r.stdout, "BinOp(Name('a'), Add, Name('b'))") {
		t.Errorf("ast = %+v", r)
	}

	r = pyra(t, "ast", "-json", src)
	var tree map[string]interface{}
	if err := json.Unmarshal([]byte(r.stdout), &tree); err != nil {
		t.Fatalf("ast -json is not JSON: %v\n%s", err, r.stdout)
	}
	if tree["_type"] != "Module" {
		t.Errorf("root = %v", tree["_type"])
	}
}

func TestBuildAndDisassemble(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "main.py", "def f(a, b=2):\n    return a * b\nprint(f(3))\n")
	out := filepath.Join(dir, "out")

	fromSource := pyra(t, "dis", src)
	if fromSource.code != 0 || !strings.Contains(fromSource.stdout, "MAKE_FUNCTION") {
		t.Fatalf("dis = %+v", fromSource)
	}

	r := pyra(t, "build", "-no-cache", "-o", out, src)
	if r.code != 0 {
		t.Fatalf("build failed: %+v", r)
	}
	compiled := filepath.Join(out, "main.pyc")
	if !strings.Contains(r.stdout, "built "+src+" -> "+compiled) {
		t.Errorf("build output = %q", r.stdout)
	}

	fromFile := pyra(t, "dis", compiled)
	if fromFile.code != 0 || fromFile.stdout != fromSource.stdout {
		t.Errorf("disassembly of %s differs:\n%s\nwant:\n%s", compiled, fromFile.stdout, fromSource.stdout)
	}

	r = pyra(t, "build", "-no-cache", "-format", "cbor", "-o", out, src)
	if r.code != 0 {
		t.Fatalf("cbor build failed: %+v", r)
	}
	fromCBOR := pyra(t, "dis", filepath.Join(out, "main.pyc.cbor"))
	if fromCBOR.code != 0 || fromCBOR.stdout != fromSource.stdout {
		t.Errorf("disassembly of cbor export differs:\n%s", fromCBOR.stdout)
	}

	r = pyra(t, "build", "-no-cache", "-format", "zip", src)
	if r.code != 1 {
		t.Errorf("invalid format accepted: %+v", r)
	}
}

func TestBuildDeps(t *testing.T) {
	t.Setenv("PYRA_PATH", "")
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	src := writeFile(t, dir, "main.py", "import util\nfrom pkg import VALUE\nimport os\n")
	writeFile(t, dir, "util.py", "def twice(x):\n    return x * 2\n")
	writeFile(t, dir, filepath.Join("pkg", "__init__.py"), "VALUE = 1\n")
	out := filepath.Join(dir, "out")

	// 不加 -deps 只编译入口文件
	r := pyra(t, "build", "-no-cache", "-o", out, src)
	if r.code != 0 || strings.Count(r.stdout, "built ") != 1 {
		t.Fatalf("build = %+v", r)
	}

	r = pyra(t, "build", "-no-cache", "-deps", "-o", out, src)
	if r.code != 0 || strings.Count(r.stdout, "built ") != 3 {
		t.Fatalf("build -deps = %+v", r)
	}
	for _, name := range []string{"main.pyc", "util.pyc", filepath.Join("pkg", "__init__.pyc")} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestCheckAggregatesErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.py", "x = 1\n")
	bad := writeFile(t, dir, "bad.py", "break\n")
	worse := writeFile(t, dir, "worse.py", "if x:\n")

	r := pyra(t, "check", good, bad, worse)
	if r.code != 1 {
		t.Errorf("exit code = %d, want 1", r.code)
	}
	if !strings.Contains(r.stdout, good+": ok") {
		t.Errorf("good file not reported: %q", r.stdout)
	}
	for _, want := range []string{"error[C0001]", "error[P0003]", "found 2 error(s)"} {
		if !strings.Contains(r.stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, r.stderr)
		}
	}
}

func TestInitAndCachedBuild(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	r := pyra(t, "init")
	if r.code != 0 {
		t.Fatalf("init failed: %+v", r)
	}
	for _, name := range []string{"pyra.toml", "main.py"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
	if r := pyra(t, "init"); r.code != 1 || !strings.Contains(r.stderr, "already exists") {
		t.Errorf("second init = %+v", r)
	}

	// 没有参数时编译 pyra.toml 的入口文件
	r = pyra(t, "build")
	if r.code != 0 || !strings.Contains(r.stdout, "built ") {
		t.Fatalf("build = %+v", r)
	}
	if _, err := os.Stat(filepath.Join(dir, "build", "main.pyc")); err != nil {
		t.Errorf("output not written: %v", err)
	}

	r = pyra(t, "build")
	if r.code != 0 || !strings.Contains(r.stdout, "up to date") {
		t.Errorf("second build = %+v", r)
	}

	// 生成的入口文件已经是格式化过的
	if r := pyra(t, "fmt", "-check"); r.code != 0 || r.stdout != "" {
		t.Errorf("fmt -check = %+v", r)
	}
}

func TestFmt(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "messy.py", "x=1\nif x:  y=(x+1)*2 # note\n")
	want := "x = 1\nif x:  # note\n    y = x + 1 * 2\n"

	r := pyra(t, "fmt", path)
	if r.code != 0 || r.stdout != want {
		t.Fatalf("fmt = %+v", r)
	}

	r = pyra(t, "fmt", "-check", path)
	if r.code != 1 || r.stdout != path+": not formatted\n" {
		t.Errorf("fmt -check = %+v", r)
	}

	r = pyra(t, "fmt", "-w", path)
	if r.code != 0 || r.stdout != "formatted "+path+"\n" {
		t.Errorf("fmt -w = %+v", r)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != want {
		t.Errorf("file after -w = %q", data)
	}

	if r := pyra(t, "fmt", "-check", path); r.code != 0 || r.stdout != "" {
		t.Errorf("fmt -check after -w = %+v", r)
	}

	bad := writeFile(t, dir, "bad.py", "if x\n")
	if r := pyra(t, "fmt", bad); r.code != 1 || !strings.Contains(r.stderr, "error[") {
		t.Errorf("fmt of invalid file = %+v", r)
	}
}

func TestRepl(t *testing.T) {
	t.Setenv("PYRA_LANG", "en")
	var stdout, stderr bytes.Buffer
	code := run([]string{"repl"}, strings.NewReader("1 + 2\n"), &stdout, &stderr)
	if code != 0 || !strings.Contains(stdout.String(), "BINARY") {
		t.Errorf("repl = %d %q %q", code, stdout.String(), stderr.String())
	}
}

func TestPreprocessArgs(t *testing.T) {
	rest, lang := preprocessArgs([]string{"build", "--lang=zh", "-o", "out", "a.py"})
	if lang != "zh" || strings.Join(rest, " ") != "build -o out a.py" {
		t.Errorf("got %v %q", rest, lang)
	}
}
