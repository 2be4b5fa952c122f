package lsp

import (
	stderrors "errors"

	"go.lsp.dev/protocol"
	"go.uber.org/multierr"

	"github.com/tangzhangming/pyra/internal/errors"
)

// diagnosticSource 诊断来源
const diagnosticSource = "pyra"

// toDiagnostics 把解析或编译错误转换为诊断，nil 得到空列表
func toDiagnostics(err error, lines []string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	for _, e := range multierr.Errors(err) {
		var ce *errors.CompileError
		if stderrors.As(e, &ce) {
			diagnostics = append(diagnostics, compileErrorDiagnostic(ce, lines))
			continue
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Severity: protocol.DiagnosticSeverityError,
			Source:   diagnosticSource,
			Message:  e.Error(),
		})
	}
	return diagnostics
}

// compileErrorDiagnostic 行列号从 1 开始转换为从 0 开始
func compileErrorDiagnostic(ce *errors.CompileError, lines []string) protocol.Diagnostic {
	line := max(ce.Line-1, 0)
	start := max(ce.Column-1, 0)
	end := start + 1
	if ce.EndColumn > ce.Column {
		end = ce.EndColumn - 1
	}
	// 没有列信息时标注整行
	if ce.Column == 0 && line < len(lines) {
		end = len(lines[line])
	}

	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(line), Character: uint32(start)},
			End:   protocol.Position{Line: uint32(line), Character: uint32(end)},
		},
		Severity: severity(ce.Level),
		Code:     ce.Code,
		Source:   diagnosticSource,
		Message:  ce.Message,
	}
}

func severity(level errors.Level) protocol.DiagnosticSeverity {
	switch level {
	case errors.LevelWarning:
		return protocol.DiagnosticSeverityWarning
	case errors.LevelNote:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}
