// Package lsp 实现提供诊断和格式化的语言服务器
//
// 文档打开、修改、保存时重新解析和编译，并通过
// textDocument/publishDiagnostics 发布第一个错误；关闭时清空诊断。
// textDocument/formatting 返回替换整个文档的编辑。
package lsp

import (
	"context"
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ServerName 服务器名
const ServerName = "pyrals"

// Server LSP 服务器
type Server struct {
	documents *DocumentManager
	conn      jsonrpc2.Conn
	log       *zap.SugaredLogger
	version   string

	// 服务器状态
	initialized *atomic.Bool
	shutdown    *atomic.Bool
	exited      *atomic.Bool
}

// NewServer 创建 LSP 服务器，log 为 nil 时不输出日志
func NewServer(version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		documents:   NewDocumentManager(),
		log:         log.Sugar(),
		version:     version,
		initialized: atomic.NewBool(false),
		shutdown:    atomic.NewBool(false),
		exited:      atomic.NewBool(false),
	}
}

// Documents 返回文档管理器
func (s *Server) Documents() *DocumentManager {
	return s.documents
}

// Serve 在 rwc 上运行服务器，直到连接关闭或收到 exit
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.log.Info(ServerName, " ", s.version, " started")

	s.conn = jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	s.conn.Go(ctx, s.handle)

	select {
	case <-ctx.Done():
		return multierr.Append(ctx.Err(), s.conn.Close())
	case <-s.conn.Done():
	}

	s.log.Info(ServerName, " stopped")
	if s.exited.Load() {
		return nil
	}
	return s.conn.Err()
}

// handle 按方法分发
func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.log.Debug("handling ", req.Method())

	switch req.Method() {
	case protocol.MethodInitialize:
		return s.handleInitialize(ctx, reply, req)
	case protocol.MethodInitialized:
		s.initialized.Store(true)
		return reply(ctx, nil, nil)
	case protocol.MethodShutdown:
		s.shutdown.Store(true)
		return reply(ctx, nil, nil)
	case protocol.MethodExit:
		s.exited.Store(true)
		err := reply(ctx, nil, nil)
		return multierr.Append(err, s.conn.Close())
	}

	if s.shutdown.Load() {
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
	}

	switch req.Method() {
	case protocol.MethodTextDocumentDidOpen:
		var p protocol.DidOpenTextDocumentParams
		if err := decode(req, &p); err != nil {
			return reply(ctx, nil, err)
		}
		doc := s.documents.Open(p.TextDocument.URI, p.TextDocument.Text, int32(p.TextDocument.Version))
		return multierr.Append(s.publish(ctx, doc.URI, doc.Diagnostics), reply(ctx, nil, nil))

	case protocol.MethodTextDocumentDidChange:
		var p protocol.DidChangeTextDocumentParams
		if err := decode(req, &p); err != nil {
			return reply(ctx, nil, err)
		}
		doc := s.documents.ApplyChanges(p.TextDocument.URI, p.ContentChanges, int32(p.TextDocument.Version))
		if doc == nil {
			s.log.Warn("change for unopened document ", p.TextDocument.URI)
			return reply(ctx, nil, nil)
		}
		return multierr.Append(s.publish(ctx, doc.URI, doc.Diagnostics), reply(ctx, nil, nil))

	case protocol.MethodTextDocumentDidSave:
		var p protocol.DidSaveTextDocumentParams
		if err := decode(req, &p); err != nil {
			return reply(ctx, nil, err)
		}
		doc := s.documents.Save(p.TextDocument.URI, p.Text)
		if doc == nil {
			return reply(ctx, nil, nil)
		}
		return multierr.Append(s.publish(ctx, doc.URI, doc.Diagnostics), reply(ctx, nil, nil))

	case protocol.MethodTextDocumentDidClose:
		var p protocol.DidCloseTextDocumentParams
		if err := decode(req, &p); err != nil {
			return reply(ctx, nil, err)
		}
		s.documents.Close(p.TextDocument.URI)
		return multierr.Append(s.publish(ctx, p.TextDocument.URI, []protocol.Diagnostic{}), reply(ctx, nil, nil))

	case protocol.MethodTextDocumentFormatting:
		var p protocol.DocumentFormattingParams
		if err := decode(req, &p); err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, s.format(&p), nil)
	}

	return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
}

// handleInitialize 返回服务器能力：全量同步，保存时带全文，支持格式化
func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var p protocol.InitializeParams
	if err := decode(req, &p); err != nil {
		return reply(ctx, nil, err)
	}
	s.log.Info("initialize from ", clientName(&p))

	result := protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
			DocumentFormattingProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    ServerName,
			Version: s.version,
		},
	}
	return reply(ctx, result, nil)
}

// publish 发布诊断，空列表清除客户端上的诊断
func (s *Server) publish(ctx context.Context, u protocol.DocumentURI, diagnostics []protocol.Diagnostic) error {
	s.log.Debug("publishing ", len(diagnostics), " diagnostics for ", u)
	return s.conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         u,
		Diagnostics: diagnostics,
	})
}

// decode 解析请求参数
func decode(req jsonrpc2.Request, v interface{}) error {
	if err := json.Unmarshal(req.Params(), v); err != nil {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Sprintf("invalid %s params: %v", req.Method(), err))
	}
	return nil
}

func clientName(p *protocol.InitializeParams) string {
	if p.ClientInfo == nil {
		return "unknown client"
	}
	return p.ClientInfo.Name + " " + p.ClientInfo.Version
}
