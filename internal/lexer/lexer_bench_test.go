package lexer

import (
	"strings"
	"testing"

	"github.com/tangzhangming/pyra/internal/reader"
	"github.com/tangzhangming/pyra/internal/token"
)

// ============================================================================
// Lexer 基准测试
// ============================================================================
//
// 运行基准测试：
//   go test -bench=. -benchmem ./internal/lexer/...
//
// ============================================================================

// 测试源码样本
var benchSource = `# 基准测试用的示例代码
from .models import User, Session
import os.path as path

class UserController(BaseController):
    max_retries = 3

    def __init__(self, auth, *args, **kwargs):
        self.auth = auth
        self.cache = {'hits': 0, 'misses': 0}

    def login(self, username, password='secret'):
        for i in range(self.max_retries):
            try:
                if self.auth.check(username, password) and not self.locked:
                    return True
            except (ValueError, KeyError) as err:
                print(f"attempt {i}: {err!r:>20}")
        return False

    def score(self, base, multiplier=1.5):
        total = base * multiplier + 0x10 - 3.25e2
        while total >= 100 and total % 2 == 0:
            total //= 2
        return [x ** 2, total, (1, 2, 3)]

controller = UserController(lambda u, p: u == p)
`

func lexAll(source, name string) int {
	return len(FromString(source, name).All())
}

func BenchmarkLexer(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(benchSource)))
	for i := 0; i < b.N; i++ {
		lexAll(benchSource, "bench.py")
	}
}

func BenchmarkLexerLargeFile(b *testing.B) {
	largeSource := strings.Repeat(benchSource, 100)
	b.ReportAllocs()
	b.SetBytes(int64(len(largeSource)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lexAll(largeSource, "large.py")
	}
}

// 通过 Reader 接口逐个读取 token
func BenchmarkLexerReader(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(benchSource)))
	for i := 0; i < b.N; i++ {
		l := New(reader.NewStringReader(benchSource, "bench.py"))
		for l.Read().Type != token.End {
		}
	}
}

func BenchmarkLexerIndentation(b *testing.B) {
	var sb strings.Builder
	for depth := 0; depth < 20; depth++ {
		sb.WriteString(strings.Repeat("    ", depth) + "if x:\n")
	}
	sb.WriteString(strings.Repeat("    ", 20) + "pass\n")
	source := strings.Repeat(sb.String(), 10)
	b.ReportAllocs()
	b.SetBytes(int64(len(source)))
	for i := 0; i < b.N; i++ {
		lexAll(source, "indent.py")
	}
}

func BenchmarkLexerStrings(b *testing.B) {
	source := strings.Repeat(`s = "hello world" + 'single' + """triple
quoted"""
`, 100)
	b.ReportAllocs()
	b.SetBytes(int64(len(source)))
	for i := 0; i < b.N; i++ {
		lexAll(source, "strings.py")
	}
}

func BenchmarkLexerStringsWithEscape(b *testing.B) {
	source := strings.Repeat(`s = "line\n\ttab \"quoted\" back\\slash"`+"\n", 100)
	b.ReportAllocs()
	b.SetBytes(int64(len(source)))
	for i := 0; i < b.N; i++ {
		lexAll(source, "escape.py")
	}
}

func BenchmarkLexerFString(b *testing.B) {
	source := strings.Repeat(`msg = f"{name!s:<{width}} has {count} item{'s' if count else ''}"`+"\n", 100)
	b.ReportAllocs()
	b.SetBytes(int64(len(source)))
	for i := 0; i < b.N; i++ {
		lexAll(source, "fstring.py")
	}
}

func BenchmarkLexerNumbers(b *testing.B) {
	source := strings.Repeat("n = 12345 + 0xFF + 3.14159 + 1e10 + .5\n", 100)
	b.ReportAllocs()
	b.SetBytes(int64(len(source)))
	for i := 0; i < b.N; i++ {
		lexAll(source, "numbers.py")
	}
}

func BenchmarkLexerIdentifiers(b *testing.B) {
	source := strings.Repeat("alpha beta_gamma delta2 _private CamelCase ", 50) + "\n" +
		strings.Repeat("if else elif for while return def class lambda and or not ", 30) + "\n"
	b.ReportAllocs()
	b.SetBytes(int64(len(source)))
	for i := 0; i < b.N; i++ {
		lexAll(source, "identifiers.py")
	}
}

func BenchmarkLexerOperators(b *testing.B) {
	source := strings.Repeat("a += b ** c // d << e >> f != g <= h >= i == j\n", 100)
	b.ReportAllocs()
	b.SetBytes(int64(len(source)))
	for i := 0; i < b.N; i++ {
		lexAll(source, "operators.py")
	}
}
