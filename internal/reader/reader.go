// Package reader 提供词法分析器使用的字符源
package reader

import (
	"bufio"
	"io"
	"os"
	"unicode/utf8"
)

// EOF 字符流结束哨兵
const EOF rune = -1

// Reader 字符源
//
// Peek 不消费字符且可重复调用；Read 消费并前进；到达末尾后二者都返回 EOF。
type Reader interface {
	Peek() rune
	Read() rune
	IsEOF() bool
	// Name 诊断信息中使用的源名称
	Name() string
}

// ============================================================================
// 字符串源
// ============================================================================

// StringReader 内存字符串字符源
type StringReader struct {
	name string
	src  string
	pos  int
}

// NewStringReader 创建字符串字符源
func NewStringReader(src, name string) *StringReader {
	return &StringReader{name: name, src: src}
}

func (r *StringReader) Peek() rune {
	if r.pos >= len(r.src) {
		return EOF
	}
	ch, _ := utf8.DecodeRuneInString(r.src[r.pos:])
	return ch
}

func (r *StringReader) Read() rune {
	if r.pos >= len(r.src) {
		return EOF
	}
	ch, size := utf8.DecodeRuneInString(r.src[r.pos:])
	r.pos += size
	return ch
}

func (r *StringReader) IsEOF() bool { return r.pos >= len(r.src) }

func (r *StringReader) Name() string { return r.name }

// ============================================================================
// 文件源
// ============================================================================

// FileReader 文件字符源，按需从缓冲读取
type FileReader struct {
	name   string
	file   io.Closer
	buf    *bufio.Reader
	peeked rune
	has    bool
	err    error
}

// Open 打开文件字符源，路径相对于进程工作目录
func Open(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewFileReader(f, path)
	r.file = f
	return r, nil
}

// NewFileReader 用任意 io.Reader 创建字符源
func NewFileReader(rd io.Reader, name string) *FileReader {
	return &FileReader{name: name, buf: bufio.NewReader(rd)}
}

func (r *FileReader) fill() {
	if r.has {
		return
	}
	ch, _, err := r.buf.ReadRune()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		ch = EOF
	}
	r.peeked = ch
	r.has = true
}

func (r *FileReader) Peek() rune {
	r.fill()
	return r.peeked
}

func (r *FileReader) Read() rune {
	r.fill()
	ch := r.peeked
	if ch != EOF {
		r.has = false
	}
	return ch
}

func (r *FileReader) IsEOF() bool { return r.Peek() == EOF }

func (r *FileReader) Name() string { return r.name }

// Err 返回读取过程中遇到的非 EOF 错误
func (r *FileReader) Err() error { return r.err }

// Close 关闭底层文件
func (r *FileReader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
