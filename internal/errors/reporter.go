package errors

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"
)

// ============================================================================
// 错误报告器
// ============================================================================

// Reporter 收集多个文件的诊断并输出
//
// 解析和编译在遇到第一个错误时就停止，Reporter 负责把多个文件各自的
// 第一个错误汇总起来（build/check 一次处理多个文件）。
type Reporter struct {
	formatter   *Formatter
	out         io.Writer
	sourceCache map[string][]string
	errors      []*CompileError
	others      []error
}

// NewReporter 创建错误报告器
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{
		formatter:   NewFormatter(),
		out:         out,
		sourceCache: make(map[string][]string),
	}
}

// SetFormatter 设置格式化器
func (r *Reporter) SetFormatter(f *Formatter) {
	r.formatter = f
}

// SetSource 设置源代码（用于内存中的源代码）
func (r *Reporter) SetSource(filename, content string) {
	r.sourceCache[filename] = strings.Split(content, "\n")
}

// loadSource 按需读取源文件
func (r *Reporter) loadSource(filename string) []string {
	if lines, ok := r.sourceCache[filename]; ok {
		return lines
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil
	}
	r.SetSource(filename, string(data))
	return r.sourceCache[filename]
}

// Report 记录并输出一个错误
//
// *CompileError 按源码上下文格式化，其他错误直接输出。
func (r *Reporter) Report(err error) {
	if err == nil {
		return
	}
	for _, e := range multierr.Errors(err) {
		ce, ok := e.(*CompileError)
		if !ok {
			r.others = append(r.others, e)
			fmt.Fprintf(r.out, "error: %v\n", e)
			continue
		}
		if len(ce.Hints) == 0 {
			ce.Hints = Suggestions(ce.Code)
		}
		r.errors = append(r.errors, ce)
		fmt.Fprint(r.out, r.formatter.FormatCompileError(ce, r.loadSource(ce.File)))
	}
}

// HasErrors 检查是否有错误
func (r *Reporter) HasErrors() bool {
	return len(r.errors)+len(r.others) > 0
}

// ErrorCount 返回错误数量
func (r *Reporter) ErrorCount() int {
	return len(r.errors) + len(r.others)
}

// Errors 返回收集到的诊断
func (r *Reporter) Errors() []*CompileError {
	return r.errors
}

// Err 把收集到的全部错误合并为一个 error，没有错误时返回 nil
func (r *Reporter) Err() error {
	var err error
	for _, e := range r.errors {
		err = multierr.Append(err, e)
	}
	for _, e := range r.others {
		err = multierr.Append(err, e)
	}
	return err
}
