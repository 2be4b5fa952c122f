package lsp

import (
	"go.lsp.dev/protocol"

	"github.com/tangzhangming/pyra/internal/formatter"
)

// format 用格式化结果替换整个文档
//
// 文档有语法错误或已经是格式化过的内容时返回空列表。
func (s *Server) format(p *protocol.DocumentFormattingParams) []protocol.TextEdit {
	edits := []protocol.TextEdit{}
	doc := s.documents.Get(p.TextDocument.URI)
	if doc == nil {
		return edits
	}

	opts := formatter.DefaultOptions()
	if !p.Options.InsertSpaces {
		opts.IndentStyle = formatter.IndentTabs
	}
	if size := int(p.Options.TabSize); size > 0 {
		opts.IndentSize = min(size, 16)
	}

	out, err := formatter.Format(doc.Content, doc.Filename(), opts)
	if err != nil {
		s.log.Debug("format ", p.TextDocument.URI, ": ", err)
		return edits
	}
	if out == doc.Content {
		return edits
	}

	last := len(doc.Lines) - 1
	return append(edits, protocol.TextEdit{
		Range: protocol.Range{
			End: protocol.Position{Line: uint32(last), Character: uint32(len(doc.Lines[last]))},
		},
		NewText: out,
	})
}
