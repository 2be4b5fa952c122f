package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/encoding/json"
	"go.uber.org/multierr"

	"github.com/tangzhangming/pyra/internal/ast"
	"github.com/tangzhangming/pyra/internal/bytecode"
	"github.com/tangzhangming/pyra/internal/compiler"
	"github.com/tangzhangming/pyra/internal/config"
	"github.com/tangzhangming/pyra/internal/errors"
	"github.com/tangzhangming/pyra/internal/formatter"
	"github.com/tangzhangming/pyra/internal/i18n"
	"github.com/tangzhangming/pyra/internal/lexer"
	"github.com/tangzhangming/pyra/internal/loader"
	"github.com/tangzhangming/pyra/internal/logging"
	"github.com/tangzhangming/pyra/internal/parser"
	"github.com/tangzhangming/pyra/internal/reader"
	"github.com/tangzhangming/pyra/internal/repl"
	"github.com/tangzhangming/pyra/internal/token"
)

// options 子命令共用的选项
type options struct {
	json    bool
	output  string
	format  string
	noCache bool
	verbose bool
	write   bool
	check   bool
	deps    bool
}

// parseFlags 解析子命令参数，返回输入文件
func (a *app) parseFlags(name string, args []string, opts *options) ([]string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.BoolVar(&opts.json, "json", false, "JSON output")
	fs.StringVar(&opts.output, "o", "", "output directory")
	fs.StringVar(&opts.format, "format", "", "bytecode format: native | cbor")
	fs.BoolVar(&opts.noCache, "no-cache", false, "recompile every file")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.BoolVar(&opts.write, "w", false, "write fmt result back to the file")
	fs.BoolVar(&opts.check, "check", false, "only report files fmt would change")
	fs.BoolVar(&opts.deps, "deps", false, "also build local modules imported by the inputs")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

// inputs 没有指定文件时使用 pyra.toml 中的入口文件
func (a *app) inputs(files []string) ([]string, error) {
	if len(files) > 0 {
		return files, nil
	}
	if a.cfg.Path != "" && a.cfg.Project.Main != "" {
		return []string{a.cfg.MainFile()}, nil
	}
	err := fmt.Errorf("%s", i18n.T(i18n.MsgNoInput))
	fmt.Fprintln(a.stderr, err)
	return nil, err
}

// setup 解析参数、确定输入文件并构造日志
func (a *app) setup(name string, args []string, opts *options) ([]string, logging.Sink, error) {
	files, err := a.parseFlags(name, args, opts)
	if err != nil {
		return nil, nil, err
	}
	if files, err = a.inputs(files); err != nil {
		return nil, nil, err
	}
	log, err := a.logger(opts.verbose)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return nil, nil, err
	}
	return files, log, nil
}

// forEach 对每个文件执行 fn，诊断通过 Reporter 输出，错误合并返回
func (a *app) forEach(files []string, fn func(path string) error) error {
	reporter := errors.NewReporter(a.stderr)
	for _, path := range files {
		reporter.Report(fn(path))
	}
	if reporter.HasErrors() {
		fmt.Fprintln(a.stderr, i18n.T(i18n.MsgErrorCount, reporter.ErrorCount()))
	}
	return reporter.Err()
}

// ============================================================================
// tokens / ast / dis
// ============================================================================

func (a *app) cmdTokens(args []string) error {
	var opts options
	files, _, err := a.setup("tokens", args, &opts)
	if err != nil {
		return err
	}
	return a.forEach(files, func(path string) error {
		src, err := reader.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		l := lexer.New(src)
		tokens := l.All()
		if err := src.Err(); err != nil {
			return err
		}
		if err := a.printTokens(tokens, opts.json); err != nil {
			return err
		}

		var lexErrs error
		for _, e := range l.Errors() {
			lexErrs = multierr.Append(lexErrs, errors.New(errors.L0001, path, e.Line, e.Column, e.Message))
		}
		return lexErrs
	})
}

func (a *app) printTokens(tokens []token.Token, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(tokens, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, string(data))
		return nil
	}
	for _, tok := range tokens {
		fmt.Fprintln(a.stdout, tok)
	}
	return nil
}

func (a *app) cmdAST(args []string) error {
	var opts options
	files, log, err := a.setup("ast", args, &opts)
	if err != nil {
		return err
	}
	return a.forEach(files, func(path string) error {
		mod, err := parser.FromFile(path, log)
		if err != nil {
			return err
		}
		if !opts.json {
			fmt.Fprintln(a.stdout, ast.Dump(mod))
			return nil
		}
		data, err := ast.ToJSON(mod, true)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, string(data))
		return nil
	})
}

// cmdDis 源文件先编译，.pyc 和 .pyc.cbor 直接读取
func (a *app) cmdDis(args []string) error {
	var opts options
	files, log, err := a.setup("dis", args, &opts)
	if err != nil {
		return err
	}
	return a.forEach(files, func(path string) error {
		code, err := load(path, log)
		if err != nil {
			return err
		}
		fmt.Fprint(a.stdout, code.Disassemble())
		return nil
	})
}

// load 按扩展名读取或编译代码对象
func load(path string, log logging.Sink) (*bytecode.Code, error) {
	switch {
	case strings.HasSuffix(path, bytecode.CBORFileExtension):
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return bytecode.UnmarshalCBOR(data)
	case strings.HasSuffix(path, bytecode.CompiledFileExtension):
		return bytecode.ReadFile(path)
	default:
		return compiler.CompileFile(path, log)
	}
}

// ============================================================================
// build / check
// ============================================================================

func (a *app) cmdBuild(args []string) error {
	var opts options
	files, log, err := a.setup("build", args, &opts)
	if err != nil {
		return err
	}

	format := a.cfg.Build.Format
	if opts.format != "" {
		format = opts.format
	}
	if format != config.FormatNative && format != config.FormatCBOR {
		err := fmt.Errorf("invalid format %q: want %s or %s", format, config.FormatNative, config.FormatCBOR)
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return err
	}
	outDir := opts.output
	if outDir == "" {
		outDir = a.cfg.OutputDir()
	}

	var cache *compiler.CacheManager
	if a.cfg.Build.Cache && !opts.noCache {
		if cache, err = compiler.NewCacheManager(filepath.Join(a.cfg.Root(), compiler.DefaultCacheDir)); err != nil {
			log.Warn("cache disabled: ", err)
			cache = nil
		}
	}

	modules := loader.Entries(files)
	if opts.deps || a.cfg.Build.FollowImports {
		modules = loader.New(a.cfg.Root(), log).Collect(files)
	}
	paths := make([]string, 0, len(modules))
	byPath := make(map[string]*loader.Module, len(modules))
	for _, m := range modules {
		paths = append(paths, m.Path)
		byPath[m.Path] = m
	}

	return a.forEach(paths, func(path string) error {
		code, hit, err := compiler.CompileFileCached(cache, path, log)
		if err != nil {
			return err
		}
		target, err := writeOutput(code, byPath[path].OutputPath(outDir), format)
		if err != nil {
			return err
		}
		if hit {
			fmt.Fprintln(a.stdout, i18n.T(i18n.MsgUpToDate, path))
		} else {
			fmt.Fprintln(a.stdout, i18n.T(i18n.MsgBuildOK, path, target))
		}
		return nil
	})
}

// writeOutput 按格式写出编译结果，cbor 格式换用对应后缀，返回实际输出路径
func writeOutput(code *bytecode.Code, target, format string) (string, error) {
	if format == config.FormatNative {
		return target, bytecode.WriteFile(target, code)
	}

	target = strings.TrimSuffix(target, bytecode.CompiledFileExtension) + bytecode.CBORFileExtension
	data, err := bytecode.MarshalCBOR(code)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	return target, os.WriteFile(target, data, 0o644)
}

func (a *app) cmdCheck(args []string) error {
	var opts options
	files, log, err := a.setup("check", args, &opts)
	if err != nil {
		return err
	}
	return a.forEach(files, func(path string) error {
		code, err := compiler.CompileFile(path, log)
		if err != nil {
			return err
		}
		if err := bytecode.Verify(code); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, i18n.T(i18n.MsgCheckOK, path))
		return nil
	})
}

// ============================================================================
// fmt
// ============================================================================

// cmdFmt 默认输出到标准输出，-w 写回文件，-check 只列出需要格式化的文件
func (a *app) cmdFmt(args []string) error {
	var opts options
	files, log, err := a.setup("fmt", args, &opts)
	if err != nil {
		return err
	}

	fo := formatter.DefaultOptions()
	fo.IndentStyle = a.cfg.Fmt.IndentStyle
	fo.IndentSize = a.cfg.Fmt.IndentSize

	unformatted := 0
	err = a.forEach(files, func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		src := string(data)
		out, err := formatter.Format(src, path, fo)
		if err != nil {
			return err
		}

		switch {
		case opts.check:
			if out != src {
				unformatted++
				fmt.Fprintln(a.stdout, i18n.T(i18n.MsgNotFormatted, path))
			}
		case opts.write:
			if out == src {
				return nil
			}
			if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
				return err
			}
			log.Info("formatted ", path)
			fmt.Fprintln(a.stdout, i18n.T(i18n.MsgFormatted, path))
		default:
			fmt.Fprint(a.stdout, out)
		}
		return nil
	})
	if err == nil && unformatted > 0 {
		return fmt.Errorf("%d file(s) not formatted", unformatted)
	}
	return err
}

// ============================================================================
// repl / init
// ============================================================================

func (a *app) cmdRepl(args []string) error {
	var opts options
	if _, err := a.parseFlags("repl", args, &opts); err != nil {
		return err
	}
	log, err := a.logger(opts.verbose)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return err
	}
	rc := repl.DefaultConfig()
	rc.Version = Version
	repl.New(rc, a.stdin, a.stdout, log).Run()
	return nil
}

// cmdInit 在当前目录生成 pyra.toml 和入口文件
func (a *app) cmdInit(args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return err
	}
	if len(args) > 0 {
		dir = args[0]
	}

	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil {
		err := fmt.Errorf("%s", i18n.T(i18n.MsgConfigExists, config.FileName))
		fmt.Fprintln(a.stderr, err)
		return err
	}

	cfg := config.ForDirectory(dir)
	if err := cfg.Save(path); err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return err
	}
	fmt.Fprintln(a.stdout, i18n.T(i18n.MsgInitCreated, config.FileName))

	mainPath := filepath.Join(dir, cfg.Project.Main)
	if _, err := os.Stat(mainPath); os.IsNotExist(err) {
		if err := os.WriteFile(mainPath, []byte(mainTemplate), 0o644); err != nil {
			fmt.Fprintf(a.stderr, "error: %v\n", err)
			return err
		}
		fmt.Fprintln(a.stdout, i18n.T(i18n.MsgInitCreated, cfg.Project.Main))
	}
	return nil
}

const mainTemplate = `def main():
    print('Hello, Pyra!')


main()
`
