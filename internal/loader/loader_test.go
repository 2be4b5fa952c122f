package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tangzhangming/pyra/internal/parser"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCollect(t *testing.T) {
	t.Setenv(SearchPathEnv, "")
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.py":         "import util\nfrom pkg import helper, VALUE\nfrom pkg.sub import thing\nimport os\n",
		"util.py":         "x = 1\n",
		"pkg/__init__.py": "VALUE = 1\n",
		"pkg/helper.py":   "def help():\n    from .sub import thing\n    return thing\n",
		"pkg/sub.py":      "thing = 2\n",
		"unused.py":       "y = 3\n",
	})

	core, logs := observer.New(zapcore.InfoLevel)
	l := New(root, zap.New(core).Sugar())
	modules := l.Collect([]string{filepath.Join(root, "main.py")})

	want := []struct{ name, file string }{
		{MainModule, "main.py"},
		{"util", "util.py"},
		{"pkg", "pkg/__init__.py"},
		{"pkg.helper", "pkg/helper.py"},
		{"pkg.sub", "pkg/sub.py"},
	}
	if len(modules) != len(want) {
		for _, m := range modules {
			t.Logf("%s %s", m.Name, m.Path)
		}
		t.Fatalf("expected %d modules, got %d", len(want), len(modules))
	}
	for i, w := range want {
		m := modules[i]
		if m.Name != w.name || m.Path != filepath.Join(root, filepath.FromSlash(w.file)) {
			t.Errorf("module %d = %s %s, want %s %s", i, m.Name, m.Path, w.name, w.file)
		}
		if m.Entry != (i == 0) {
			t.Errorf("module %d entry = %v", i, m.Entry)
		}
	}

	if logs.FilterMessageSnippet("no local module os").Len() != 1 {
		t.Errorf("unresolved import not logged: %v", logs.All())
	}
	// from pkg import VALUE 中的 VALUE 不是模块，不报告
	if logs.FilterMessageSnippet("VALUE").Len() != 0 {
		t.Error("imported name should not be reported as a missing module")
	}
}

func TestCollectSearchPathAndParseError(t *testing.T) {
	root := t.TempDir()
	lib := t.TempDir()
	t.Setenv(SearchPathEnv, lib)
	writeTree(t, root, map[string]string{
		"main.py":   "import extlib\nimport broken\n",
		"broken.py": "import shared\nif x\n",
	})
	writeTree(t, lib, map[string]string{
		"extlib.py": "import shared\n",
		"shared.py": "z = 1\n",
	})

	modules := New(root, nil).Collect([]string{filepath.Join(root, "main.py")})
	var names []string
	for _, m := range modules {
		names = append(names, m.Name)
	}
	// broken.py 解析失败，不跟随它的导入；extlib 的导入仍然跟随
	got := strings.Join(names, ",")
	if got != "__main__,extlib,broken,shared" {
		t.Errorf("modules = %s", got)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		module Module
		want   string
	}{
		{Module{Name: MainModule, Path: "src/main.py", Entry: true}, filepath.Join("out", "main.pyc")},
		{Module{Name: "util", Path: "/p/util.py"}, filepath.Join("out", "util.pyc")},
		{Module{Name: "pkg.helper", Path: "/p/pkg/helper.py"}, filepath.Join("out", "pkg", "helper.pyc")},
		{Module{Name: "pkg", Path: "/p/pkg/__init__.py"}, filepath.Join("out", "pkg", "__init__.pyc")},
	}
	for _, tt := range tests {
		if got := tt.module.OutputPath("out"); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.module.Name, got, tt.want)
		}
	}
}

func TestImports(t *testing.T) {
	mod, err := parser.FromString(`import a.b as c, d
from ..rel import x as y, z
class K:
    def m(self):
        try:
            import inner
        except ImportError:
            from fallback import *
`, "test.py", nil)
	if err != nil {
		t.Fatal(err)
	}

	imports := Imports(mod)
	if len(imports) != 5 {
		t.Fatalf("expected 5 imports, got %+v", imports)
	}
	if imports[0].Module != "a.b" || imports[0].From || imports[1].Module != "d" {
		t.Errorf("import a.b, d = %+v %+v", imports[0], imports[1])
	}
	rel := imports[2]
	if rel.Module != "rel" || rel.Level != 2 || !rel.From || strings.Join(rel.Names, ",") != "x,z" || rel.Line != 2 {
		t.Errorf("relative import = %+v", rel)
	}
	if imports[3].Module != "inner" || imports[4].Module != "fallback" || imports[4].Names[0] != "*" {
		t.Errorf("nested imports = %+v %+v", imports[3], imports[4])
	}
}

func TestResolveImportPrefersModuleOverPackage(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"both.py":          "a = 1\n",
		"both/__init__.py": "b = 2\n",
	})
	path, ok := ResolveImport([]string{root}, "both")
	if !ok || path != filepath.Join(root, "both.py") {
		t.Errorf("got %s %v", path, ok)
	}
	if _, ok := ResolveImport([]string{root}, "missing"); ok {
		t.Error("missing module resolved")
	}
}
