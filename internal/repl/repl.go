// repl.go - Pyra REPL
//
// 交互式前端，每次输入都走完整的 词法 -> 语法 -> 编译 流水线：
// - 先按表达式模式编译，失败后按语句模式编译
// - 打印生成的字节码反汇编
// - 括号未闭合、三引号字符串未结束、行尾为 ':' 时继续读入
// - 块输入以空行结束
// - 特殊命令（:help, :quit, :load, :history）

package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tangzhangming/pyra/internal/bytecode"
	"github.com/tangzhangming/pyra/internal/compiler"
	"github.com/tangzhangming/pyra/internal/errors"
	"github.com/tangzhangming/pyra/internal/i18n"
	"github.com/tangzhangming/pyra/internal/logging"
)

// sourceName 语句模式下输入的文件名
const sourceName = "<stdin>"

// maxHistory 历史记录上限
const maxHistory = 1000

// REPL 交互式前端
type REPL struct {
	reader         *bufio.Reader
	writer         io.Writer
	log            logging.Sink
	formatter      *errors.Formatter
	history        []string
	multiline      bool
	block          bool
	buffer         strings.Builder
	version        string
	promptPrimary  string
	promptContinue string
}

// Config REPL 配置
type Config struct {
	Version        string
	PromptPrimary  string
	PromptContinue string
	Colors         bool
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Version:        "dev",
		PromptPrimary:  ">>> ",
		PromptContinue: "... ",
		Colors:         errors.ColorsEnabled(),
	}
}

// New 创建 REPL，log 为 nil 时丢弃编译日志
func New(config Config, in io.Reader, out io.Writer, log logging.Sink) *REPL {
	if log == nil {
		log = logging.Nop()
	}
	formatter := errors.NewFormatter()
	formatter.Colors = config.Colors
	return &REPL{
		reader:         bufio.NewReader(in),
		writer:         out,
		log:            log,
		formatter:      formatter,
		version:        config.Version,
		promptPrimary:  config.PromptPrimary,
		promptContinue: config.PromptContinue,
	}
}

// Run 运行 REPL，直到输入结束或退出命令
func (r *REPL) Run() {
	r.printWelcome()

	for {
		prompt := r.promptPrimary
		if r.multiline {
			prompt = r.promptContinue
		}
		fmt.Fprint(r.writer, prompt)

		line, err := r.reader.ReadString('\n')
		if err != nil && line == "" {
			if err != io.EOF {
				fmt.Fprintf(r.writer, "error reading input: %v\n", err)
			}
			// 输入结束时提交未完成的块
			if r.multiline {
				r.submit()
			}
			fmt.Fprintln(r.writer)
			fmt.Fprintln(r.writer, i18n.T(i18n.MsgReplBye))
			return
		}
		line = strings.TrimRight(line, "\r\n")

		if !r.multiline {
			trimmed := strings.TrimSpace(line)
			if trimmed == "exit" || trimmed == "quit" {
				fmt.Fprintln(r.writer, i18n.T(i18n.MsgReplBye))
				return
			}
			if strings.HasPrefix(trimmed, ":") {
				if !r.handleCommand(trimmed) {
					fmt.Fprintln(r.writer, i18n.T(i18n.MsgReplBye))
					return
				}
				continue
			}
		}

		// 块输入以空行结束
		if r.block && strings.TrimSpace(line) == "" {
			r.submit()
			continue
		}

		if r.multiline {
			r.buffer.WriteString("\n")
		}
		r.buffer.WriteString(line)

		if strings.HasSuffix(strings.TrimSpace(stripComment(line)), ":") {
			r.block = true
		}
		if r.block || needsMoreInput(r.buffer.String()) {
			r.multiline = true
			continue
		}
		r.submit()
	}
}

// submit 编译缓冲区中的输入
func (r *REPL) submit() {
	input := r.buffer.String()
	r.buffer.Reset()
	r.multiline = false
	r.block = false

	if strings.TrimSpace(input) == "" {
		return
	}
	r.addHistory(input)
	r.execute(input)
}

// printWelcome 打印欢迎信息
func (r *REPL) printWelcome() {
	fmt.Fprintln(r.writer, i18n.T(i18n.MsgReplBanner, r.version))
	fmt.Fprintln(r.writer, "Type :help for help")
}

// handleCommand 处理特殊命令，返回 false 表示退出
func (r *REPL) handleCommand(line string) bool {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case ":help", ":h", ":?":
		r.printHelp()
	case ":quit", ":q", ":exit":
		return false
	case ":load", ":l":
		if len(args) < 1 {
			fmt.Fprintln(r.writer, "Usage: :load <filename>")
			return true
		}
		r.loadFile(args[0])
	case ":history", ":hist":
		r.printHistory()
	default:
		fmt.Fprintf(r.writer, "Unknown command: %s\n", cmd)
		fmt.Fprintln(r.writer, "Type :help for available commands.")
	}
	return true
}

// printHelp 打印帮助信息
func (r *REPL) printHelp() {
	fmt.Fprintln(r.writer, "Available commands:")
	fmt.Fprintln(r.writer, "  :help, :h, :?     Show this help message")
	fmt.Fprintln(r.writer, "  :quit, :q, exit   Leave the prompt")
	fmt.Fprintln(r.writer, "  :load <file>      Compile a file and show its bytecode")
	fmt.Fprintln(r.writer, "  :history, :hist   Show input history")
	fmt.Fprintln(r.writer)
	fmt.Fprintln(r.writer, "Expressions are compiled in expression mode, anything else as statements.")
	fmt.Fprintln(r.writer, "A line ending in ':' starts a block; finish it with an empty line.")
}

// loadFile 编译文件并打印反汇编
func (r *REPL) loadFile(filename string) {
	code, err := compiler.CompileFile(filename, r.log)
	if err != nil {
		r.report(err, "")
		return
	}
	fmt.Fprint(r.writer, code.Disassemble())
}

// printHistory 打印历史记录
func (r *REPL) printHistory() {
	for i, cmd := range r.history {
		fmt.Fprintf(r.writer, "%4d  %s\n", i+1, cmd)
	}
}

// History 返回输入历史
func (r *REPL) History() []string {
	return r.history
}

// addHistory 添加到历史记录
func (r *REPL) addHistory(input string) {
	// 不添加重复的历史记录
	if len(r.history) > 0 && r.history[len(r.history)-1] == input {
		return
	}
	r.history = append(r.history, input)
	if len(r.history) > maxHistory {
		r.history = r.history[len(r.history)-maxHistory:]
	}
}

// Compile 先按表达式模式编译，失败时按语句模式编译
func Compile(input string, log logging.Sink) (*bytecode.Code, error) {
	if code, err := compiler.CompileExpressionString(input, logging.Nop()); err == nil {
		return code, nil
	}
	return compiler.CompileString(input+"\n", sourceName, log)
}

// execute 编译输入并打印反汇编
func (r *REPL) execute(input string) {
	code, err := Compile(input, r.log)
	if err != nil {
		r.report(err, input)
		return
	}
	fmt.Fprint(r.writer, code.Disassemble())
}

// report 输出诊断，source 非空时用于显示出错的行
func (r *REPL) report(err error, source string) {
	reporter := errors.NewReporter(r.writer)
	reporter.SetFormatter(r.formatter)
	if source != "" {
		reporter.SetSource(sourceName, source)
	}
	reporter.Report(err)
}

// needsMoreInput 括号未闭合或三引号字符串未结束
func needsMoreInput(input string) bool {
	depth := 0
	var quote string
	escaped := false

	for i := 0; i < len(input); i++ {
		c := input[i]

		if quote != "" {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case strings.HasPrefix(input[i:], quote):
				i += len(quote) - 1
				quote = ""
			case c == '\n' && len(quote) == 1:
				// 单引号字符串不跨行，交给词法分析报告
				quote = ""
			}
			continue
		}

		switch c {
		case '#':
			for i < len(input) && input[i] != '\n' {
				i++
			}
		case '"', '\'':
			if strings.HasPrefix(input[i:], strings.Repeat(string(c), 3)) {
				quote = strings.Repeat(string(c), 3)
				i += 2
			} else {
				quote = string(c)
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
	}

	return depth > 0 || len(quote) == 3
}

// stripComment 去掉行尾注释（不识别字符串中的 '#'）
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 && !strings.ContainsAny(line[:i], `"'`) {
		return line[:i]
	}
	return line
}

// Main 在标准输入输出上运行
func Main(config Config, log logging.Sink) {
	New(config, os.Stdin, os.Stdout, log).Run()
}
