package lsp

import (
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/atomic"

	"github.com/tangzhangming/pyra/internal/compiler"
	"github.com/tangzhangming/pyra/internal/logging"
)

// Document 一个打开的文档
type Document struct {
	URI     protocol.DocumentURI
	Content string
	Lines   []string

	version *atomic.Int32

	// 最近一次分析的诊断
	Diagnostics []protocol.Diagnostic
}

// Version 客户端报告的文档版本
func (doc *Document) Version() int32 {
	return doc.version.Load()
}

// Filename 诊断中使用的文件名
func (doc *Document) Filename() string {
	return filename(doc.URI)
}

// analyze 解析并编译文档，记录第一个错误
func (doc *Document) analyze() {
	_, err := compiler.CompileString(doc.Content, doc.Filename(), logging.Nop())
	doc.Diagnostics = toDiagnostics(err, doc.Lines)
}

// DocumentManager 文档管理器
type DocumentManager struct {
	documents map[protocol.DocumentURI]*Document
	mu        sync.RWMutex
}

// NewDocumentManager 创建文档管理器
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		documents: make(map[protocol.DocumentURI]*Document),
	}
}

// Open 打开文档并立即分析
func (dm *DocumentManager) Open(u protocol.DocumentURI, content string, version int32) *Document {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc := &Document{
		URI:     u,
		Content: content,
		Lines:   splitLines(content),
		version: atomic.NewInt32(version),
	}
	doc.analyze()
	dm.documents[u] = doc
	return doc
}

// Close 关闭文档
func (dm *DocumentManager) Close(u protocol.DocumentURI) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.documents, u)
}

// Get 获取文档
func (dm *DocumentManager) Get(u protocol.DocumentURI) *Document {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.documents[u]
}

// Count 打开的文档数
func (dm *DocumentManager) Count() int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return len(dm.documents)
}

// ApplyChanges 按顺序应用变更后重新分析，文档未打开时返回 nil
func (dm *DocumentManager) ApplyChanges(u protocol.DocumentURI, changes []protocol.TextDocumentContentChangeEvent, version int32) *Document {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.documents[u]
	if !ok {
		return nil
	}
	for _, change := range changes {
		// 没有范围时是完整替换
		isFullReplace := change.Range.Start.Line == 0 &&
			change.Range.Start.Character == 0 &&
			change.Range.End.Line == 0 &&
			change.Range.End.Character == 0 &&
			change.RangeLength == 0

		if isFullReplace {
			doc.Content = change.Text
		} else {
			doc.Content = applyTextEdit(doc.Content, change.Range, change.Text)
		}
	}
	doc.Lines = splitLines(doc.Content)
	doc.version.Store(version)
	doc.analyze()
	return doc
}

// Save 保存时客户端可能带上全文，重新分析
func (dm *DocumentManager) Save(u protocol.DocumentURI, text string) *Document {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.documents[u]
	if !ok {
		return nil
	}
	if text != "" {
		doc.Content = text
		doc.Lines = splitLines(text)
	}
	doc.analyze()
	return doc
}

// filename file URI 转为本地路径，其他 URI 原样使用
func filename(u protocol.DocumentURI) string {
	if strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return uri.URI(u).Filename()
	}
	return string(u)
}

// splitLines 将内容按行分割
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(content, "\n")
}

// applyTextEdit 用 newText 替换 rang 覆盖的文本
func applyTextEdit(content string, rang protocol.Range, newText string) string {
	lines := splitLines(content)

	startLine := clamp(int(rang.Start.Line), len(lines)-1)
	endLine := clamp(int(rang.End.Line), len(lines)-1)
	startLineText := lines[startLine]
	endLineText := lines[endLine]
	startChar := clamp(int(rang.Start.Character), len(startLineText))
	endChar := clamp(int(rang.End.Character), len(endLineText))

	var result strings.Builder
	for i := 0; i < startLine; i++ {
		result.WriteString(lines[i])
		result.WriteString("\n")
	}
	result.WriteString(startLineText[:startChar])
	result.WriteString(newText)
	result.WriteString(endLineText[endChar:])
	for i := endLine + 1; i < len(lines); i++ {
		result.WriteString("\n")
		result.WriteString(lines[i])
	}
	return result.String()
}

func clamp(v, hi int) int {
	return max(0, min(v, hi))
}
