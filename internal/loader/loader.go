// Package loader 沿 import 语句查找项目内的源文件
//
// pyra build -deps 用它把入口文件导入的本地模块一并编译。找不到的导入
// 视为外部模块，只记录日志，由运行时负责。
package loader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/bytecode"
	"github.com/tangzhangming/pyra/internal/logging"
	"github.com/tangzhangming/pyra/internal/parser"
)

// 常量定义
const (
	SourceFileExtension = ".py"         // 源码文件后缀
	PackageInitFile     = "__init__.py" // 包的入口文件
	SearchPathEnv       = "PYRA_PATH"   // 额外模块搜索路径，按系统路径分隔符分隔
	MainModule          = "__main__"    // 入口文件的模块名
)

// searchPathsFromEnv 读取环境变量中的搜索路径
func searchPathsFromEnv() []string {
	var paths []string
	for _, p := range filepath.SplitList(os.Getenv(SearchPathEnv)) {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Module 一个待编译的源文件
type Module struct {
	Name  string // 点分模块名
	Path  string // 源文件路径
	Entry bool   // 命令行给出的文件
}

// OutputPath 编译产物路径：入口文件直接放在 outDir 下，
// 导入的模块按模块名建立子目录
func (m *Module) OutputPath(outDir string) string {
	if m.Entry {
		return bytecode.OutputPath(m.Path, outDir)
	}
	parts := strings.Split(m.Name, ".")
	if filepath.Base(m.Path) != PackageInitFile {
		parts = parts[:len(parts)-1]
	}
	return bytecode.OutputPath(m.Path, filepath.Join(append([]string{outDir}, parts...)...))
}

// Entries 不跟随导入时，每个输入文件就是一个入口模块
func Entries(files []string) []*Module {
	modules := make([]*Module, 0, len(files))
	for _, f := range files {
		modules = append(modules, &Module{Name: MainModule, Path: f, Entry: true})
	}
	return modules
}

// Loader 模块加载器
type Loader struct {
	rootDir     string          // 项目根目录
	searchPaths []string        // 绝对导入的查找目录，入口文件所在目录在前
	loadedFiles map[string]bool // 已加入的文件
	log         logging.Sink
}

// New 创建加载器
func New(rootDir string, log logging.Sink) *Loader {
	if log == nil {
		log = logging.Nop()
	}
	l := &Loader{
		rootDir:     rootDir,
		loadedFiles: make(map[string]bool),
		log:         log,
	}
	l.addSearchPath(rootDir)
	for _, p := range searchPathsFromEnv() {
		l.addSearchPath(p)
	}
	return l
}

// SearchPaths 返回绝对导入的查找目录
func (l *Loader) SearchPaths() []string {
	return l.searchPaths
}

// RootDir 获取项目根目录
func (l *Loader) RootDir() string {
	return l.rootDir
}

func (l *Loader) addSearchPath(dir string) {
	dir = normalizePath(dir)
	for _, p := range l.searchPaths {
		if p == dir {
			return
		}
	}
	l.searchPaths = append(l.searchPaths, dir)
}

// Collect 从入口文件出发，按广度优先收集所有能找到的本地模块
//
// 解析失败的文件仍然返回，只是不再跟随它的导入，错误留给编译阶段报告。
func (l *Loader) Collect(entries []string) []*Module {
	var modules []*Module
	for _, entry := range entries {
		// 入口文件所在目录优先于其他搜索路径
		l.searchPaths = append([]string{normalizePath(filepath.Dir(entry))}, l.searchPaths...)
	}
	for _, entry := range entries {
		if l.IsLoaded(entry) {
			continue
		}
		l.MarkLoaded(entry)
		modules = append(modules, &Module{Name: MainModule, Path: entry, Entry: true})
	}

	for i := 0; i < len(modules); i++ {
		m := modules[i]
		mod, err := parser.FromFile(m.Path, logging.Nop())
		if err != nil {
			continue
		}
		for _, imp := range Imports(mod) {
			for _, path := range l.resolve(m.Path, imp) {
				if l.IsLoaded(path) {
					continue
				}
				l.MarkLoaded(path)
				modules = append(modules, &Module{Name: l.moduleName(path), Path: displayPath(path)})
			}
		}
	}
	l.log.Info("collected ", len(modules), " module(s) from ", len(entries), " entry file(s)")
	return modules
}

// resolve 导入语句涉及的本地源文件：import a.b 依次需要 a 和 a.b，
// from m import n 需要 m，n 也可能是子模块
func (l *Loader) resolve(from string, imp Import) []string {
	bases := l.searchPaths
	if imp.Level > 0 {
		dir := filepath.Dir(normalizePath(from))
		for i := 1; i < imp.Level; i++ {
			dir = filepath.Dir(dir)
		}
		bases = []string{dir}
	}

	var found []string
	want := func(dotted string, required bool) {
		if path, ok := ResolveImport(bases, dotted); ok {
			found = append(found, path)
		} else if required {
			l.log.Info(from, ":", imp.Line, ": no local module ", dotted, ", skipped")
		}
	}

	parts := strings.Split(imp.Module, ".")
	if imp.Module == "" {
		parts = nil
	}
	for i := range parts {
		want(strings.Join(parts[:i+1], "."), true)
	}
	if !imp.From {
		return found
	}
	for _, name := range imp.Names {
		if name == "*" {
			continue
		}
		if imp.Module == "" {
			want(name, true)
		} else {
			want(imp.Module+"."+name, false)
		}
	}
	return found
}

// ResolveImport 在 bases 中查找点分模块名对应的源文件：
// a/b.py 优先，其次是包 a/b/__init__.py
func ResolveImport(bases []string, dotted string) (string, bool) {
	rel := filepath.Join(strings.Split(dotted, ".")...)
	for _, base := range bases {
		candidates := []string{
			filepath.Join(base, rel+SourceFileExtension),
			filepath.Join(base, rel, PackageInitFile),
		}
		for _, path := range candidates {
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return normalizePath(path), true
			}
		}
	}
	return "", false
}

// moduleName 按所在的搜索目录推出点分模块名
func (l *Loader) moduleName(path string) string {
	for _, base := range l.searchPaths {
		rel, err := filepath.Rel(base, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = strings.TrimSuffix(rel, SourceFileExtension)
		rel = strings.TrimSuffix(rel, string(filepath.Separator)+strings.TrimSuffix(PackageInitFile, SourceFileExtension))
		return strings.ReplaceAll(rel, string(filepath.Separator), ".")
	}
	return strings.TrimSuffix(filepath.Base(path), SourceFileExtension)
}

// MarkLoaded 标记文件已加载
func (l *Loader) MarkLoaded(path string) {
	l.loadedFiles[normalizePath(path)] = true
}

// IsLoaded 检查文件是否已加载
func (l *Loader) IsLoaded(path string) bool {
	return l.loadedFiles[normalizePath(path)]
}

// normalizePath 规范化为绝对路径
func normalizePath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return absPath
}

// displayPath 当前目录下的文件显示为相对路径
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// ============================================================================
// 导入语句
// ============================================================================

// Import 一条 import 或 from ... import 语句
type Import struct {
	Module string   // 点分模块名，from . import x 时为空
	Names  []string // from 导入的名字
	Level  int      // 相对导入的点数
	From   bool
	Line   int
}

// Imports 收集模块中所有的导入语句，包括函数和类内部的
func Imports(mod *ast.Module) []Import {
	var imports []Import
	var walk func(body []ast.Stmt)
	walk = func(body []ast.Stmt) {
		for _, stmt := range body {
			switch s := stmt.(type) {
			case *ast.Import:
				for _, alias := range s.Names {
					imports = append(imports, Import{Module: alias.Name, Line: s.Pos().Line})
				}
			case *ast.ImportFrom:
				names := make([]string, 0, len(s.Names))
				for _, alias := range s.Names {
					names = append(names, alias.Name)
				}
				imports = append(imports, Import{Module: s.Module, Names: names, Level: s.Level, From: true, Line: s.Pos().Line})
			case *ast.FunctionDef:
				walk(s.Body)
			case *ast.ClassDef:
				walk(s.Body)
			case *ast.For:
				walk(s.Body)
				walk(s.OrElse)
			case *ast.While:
				walk(s.Body)
				walk(s.OrElse)
			case *ast.If:
				walk(s.Body)
				walk(s.OrElse)
			case *ast.Try:
				walk(s.Body)
				for _, h := range s.Handlers {
					walk(h.Body)
				}
				walk(s.OrElse)
				walk(s.FinalBody)
			}
		}
	}
	walk(mod.Body)
	return imports
}
