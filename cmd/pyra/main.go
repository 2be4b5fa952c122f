package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/tangzhangming/pyra/internal/config"
	"github.com/tangzhangming/pyra/internal/i18n"
	"github.com/tangzhangming/pyra/internal/logging"
)

// Version 工具链版本
const Version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// app 一次命令行调用的上下文
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// run 解析全局参数并分发子命令，返回退出码
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	args, lang := preprocessArgs(args)

	cfg, err := config.Discover(".")
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	initLanguage(lang, cfg)

	if len(args) < 1 {
		fmt.Fprintf(stdout, i18n.T(i18n.MsgUsage), Version)
		return 0
	}

	a := &app{cfg: cfg, stdin: stdin, stdout: stdout, stderr: stderr}
	command, rest := args[0], args[1:]

	var cmdErr error
	switch command {
	case "tokens":
		cmdErr = a.cmdTokens(rest)
	case "ast":
		cmdErr = a.cmdAST(rest)
	case "dis":
		cmdErr = a.cmdDis(rest)
	case "build":
		cmdErr = a.cmdBuild(rest)
	case "check":
		cmdErr = a.cmdCheck(rest)
	case "repl":
		cmdErr = a.cmdRepl(rest)
	case "fmt":
		cmdErr = a.cmdFmt(rest)
	case "init":
		cmdErr = a.cmdInit(rest)
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "pyra %s\n", Version)
	case "help", "-h", "-help", "--help":
		fmt.Fprintf(stdout, i18n.T(i18n.MsgUsage), Version)
	default:
		fmt.Fprintln(stderr, i18n.T(i18n.MsgUnknownCommand, command))
		fmt.Fprintf(stderr, i18n.T(i18n.MsgUsage), Version)
		return 2
	}

	if a.log != nil {
		_ = a.log.Sync()
	}
	if cmdErr != nil {
		return 1
	}
	return 0
}

// logger 按配置构造日志，-v 时降到 debug
func (a *app) logger(verbose bool) (logging.Sink, error) {
	lc := a.cfg.Log
	if verbose {
		lc.Level = "debug"
	}
	log, err := logging.New(lc)
	if err != nil {
		return nil, err
	}
	a.log = log
	return log.Sugar(), nil
}

// preprocessArgs 提取全局 -lang 参数
func preprocessArgs(args []string) (rest []string, lang string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--lang" || arg == "-lang":
			if i+1 < len(args) {
				lang = args[i+1]
				i++
				continue
			}
		case strings.HasPrefix(arg, "--lang="):
			lang = strings.TrimPrefix(arg, "--lang=")
			continue
		case strings.HasPrefix(arg, "-lang="):
			lang = strings.TrimPrefix(arg, "-lang=")
			continue
		}
		rest = append(rest, arg)
	}
	return rest, lang
}

// initLanguage 命令行参数 > 环境变量 PYRA_LANG > pyra.toml > 操作系统语言
func initLanguage(override string, cfg *config.Config) {
	switch {
	case override != "":
		i18n.SetLanguageFromString(override)
	case os.Getenv("PYRA_LANG") != "":
		i18n.SetLanguageFromString(os.Getenv("PYRA_LANG"))
	case cfg.Path != "":
		cfg.Apply()
	case detectChineseOS():
		i18n.SetLanguage(i18n.LangChinese)
	default:
		i18n.SetLanguage(i18n.LangEnglish)
	}
}

// envLocaleChinese 检查 Unix 风格的语言环境变量
func envLocaleChinese() bool {
	for _, v := range []string{"LC_ALL", "LC_MESSAGES", "LANG", "LANGUAGE"} {
		if val := strings.ToLower(os.Getenv(v)); val != "" {
			return strings.HasPrefix(val, "zh") || strings.Contains(val, "chinese")
		}
	}
	return false
}
