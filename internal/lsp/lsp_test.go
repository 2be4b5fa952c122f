package lsp

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap/zaptest"
)

type client struct {
	conn        jsonrpc2.Conn
	diagnostics chan protocol.PublishDiagnosticsParams
	served      chan error
}

func start(t *testing.T) (*Server, *client) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	s := NewServer("test", zaptest.NewLogger(t))
	c := &client{
		conn:        jsonrpc2.NewConn(jsonrpc2.NewStream(clientSide)),
		diagnostics: make(chan protocol.PublishDiagnosticsParams, 16),
		served:      make(chan error, 1),
	}
	go func() { c.served <- s.Serve(ctx, serverSide) }()
	c.conn.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() == protocol.MethodTextDocumentPublishDiagnostics {
			var p protocol.PublishDiagnosticsParams
			if err := json.Unmarshal(req.Params(), &p); err != nil {
				t.Errorf("bad diagnostics params: %v", err)
			}
			c.diagnostics <- p
		}
		return reply(ctx, nil, nil)
	})
	t.Cleanup(func() {
		c.conn.Close()
		cancel()
	})
	return s, c
}

func (c *client) initialize(t *testing.T) protocol.InitializeResult {
	t.Helper()
	var result protocol.InitializeResult
	if _, err := c.conn.Call(context.Background(), protocol.MethodInitialize, &protocol.InitializeParams{}, &result); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := c.conn.Notify(context.Background(), protocol.MethodInitialized, &protocol.InitializedParams{}); err != nil {
		t.Fatal(err)
	}
	return result
}

func (c *client) notify(t *testing.T, method string, params interface{}) {
	t.Helper()
	if err := c.conn.Notify(context.Background(), method, params); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

func (c *client) next(t *testing.T) protocol.PublishDiagnosticsParams {
	t.Helper()
	select {
	case p := <-c.diagnostics:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for diagnostics")
		return protocol.PublishDiagnosticsParams{}
	}
}

func docURI(t *testing.T) protocol.DocumentURI {
	return protocol.DocumentURI(uri.File(filepath.Join(t.TempDir(), "main.py")))
}

func TestInitialize(t *testing.T) {
	_, c := start(t)
	result := c.initialize(t)
	if result.ServerInfo == nil || result.ServerInfo.Name != ServerName {
		t.Errorf("server info = %+v", result.ServerInfo)
	}
}

func TestDiagnosticsLifecycle(t *testing.T) {
	s, c := start(t)
	c.initialize(t)
	u := docURI(t)

	c.notify(t, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: u, LanguageID: "python", Version: 1, Text: "x = 1\nif x:\ny = 2\n"},
	})
	p := c.next(t)
	if p.URI != u || len(p.Diagnostics) != 1 {
		t.Fatalf("open: got %+v", p)
	}
	d := p.Diagnostics[0]
	if d.Code != "P0003" || d.Source != diagnosticSource || d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("open diagnostic = %+v", d)
	}

	c.notify(t, protocol.MethodTextDocumentDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: u}, Version: 2},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "x = 1\nif x:\n    y = 2\n"}},
	})
	if p := c.next(t); len(p.Diagnostics) != 0 {
		t.Errorf("change: expected no diagnostics, got %+v", p.Diagnostics)
	}
	if doc := s.Documents().Get(u); doc == nil || doc.Version() != 2 {
		t.Error("document version not updated")
	}

	c.notify(t, protocol.MethodTextDocumentDidSave, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: u},
		Text:         "while True:\n    pass\nbreak\n",
	})
	p = c.next(t)
	if len(p.Diagnostics) != 1 || p.Diagnostics[0].Code != "C0001" {
		t.Errorf("save: got %+v", p.Diagnostics)
	}

	c.notify(t, protocol.MethodTextDocumentDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: u},
	})
	if p := c.next(t); p.URI != u || len(p.Diagnostics) != 0 {
		t.Errorf("close: got %+v", p)
	}
	if s.Documents().Count() != 0 {
		t.Error("document still open after close")
	}
}

func TestShutdownAndExit(t *testing.T) {
	_, c := start(t)
	c.initialize(t)
	if _, err := c.conn.Call(context.Background(), protocol.MethodShutdown, nil, nil); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	c.notify(t, protocol.MethodExit, nil)
	select {
	case err := <-c.served:
		if err != nil {
			t.Errorf("Serve returned %v after exit", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after exit")
	}
}

func TestFormatting(t *testing.T) {
	_, c := start(t)
	c.initialize(t)
	u := docURI(t)

	c.notify(t, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: u, LanguageID: "python", Version: 1, Text: "x=1\nif x: y=2\n"},
	})
	c.next(t)

	format := func() []protocol.TextEdit {
		t.Helper()
		var edits []protocol.TextEdit
		params := &protocol.DocumentFormattingParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: u},
			Options:      protocol.FormattingOptions{InsertSpaces: true, TabSize: 2},
		}
		if _, err := c.conn.Call(context.Background(), protocol.MethodTextDocumentFormatting, params, &edits); err != nil {
			t.Fatalf("formatting: %v", err)
		}
		return edits
	}

	edits := format()
	if len(edits) != 1 {
		t.Fatalf("expected one edit, got %+v", edits)
	}
	if edits[0].NewText != "x = 1\nif x:\n  y = 2\n" {
		t.Errorf("new text = %q", edits[0].NewText)
	}
	if end := edits[0].Range.End; end.Line != 2 || end.Character != 0 {
		t.Errorf("range end = %+v", end)
	}

	// 有语法错误时不修改
	c.notify(t, protocol.MethodTextDocumentDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: u}, Version: 2},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "if x\n"}},
	})
	c.next(t)
	if edits := format(); len(edits) != 0 {
		t.Errorf("expected no edits for invalid document, got %+v", edits)
	}
}

func TestUnknownMethod(t *testing.T) {
	_, c := start(t)
	_, err := c.conn.Call(context.Background(), "textDocument/hover", &protocol.HoverParams{}, nil)
	if err == nil {
		t.Fatal("expected method not found")
	}
}

func TestApplyTextEdit(t *testing.T) {
	tests := []struct {
		content string
		rng     protocol.Range
		text    string
		want    string
	}{
		{"abc\ndef", protocol.Range{Start: protocol.Position{Line: 0, Character: 1}, End: protocol.Position{Line: 0, Character: 2}}, "X", "aXc\ndef"},
		{"abc\ndef", protocol.Range{Start: protocol.Position{Line: 0, Character: 3}, End: protocol.Position{Line: 1, Character: 0}}, "", "abcdef"},
		{"abc", protocol.Range{Start: protocol.Position{Line: 5, Character: 9}, End: protocol.Position{Line: 5, Character: 9}}, "!", "abc!"},
	}
	for _, tt := range tests {
		if got := applyTextEdit(tt.content, tt.rng, tt.text); got != tt.want {
			t.Errorf("applyTextEdit(%q) = %q, want %q", tt.content, got, tt.want)
		}
	}
}
