package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	iLsp "github.com/convmd/convmd/internal/lsp"
	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

// Server is the convmd language server. It checks open posts on every
// edit and publishes parse/resolve diagnostics, and renders a browser
// preview page on save.
type Server struct {
	conn *jsonrpc2.Conn

	// tracks canceled request IDs
	cancelMap sync.Map

	// tracking for method request counts
	trackRequestCount sync.Map

	// last known text per open document URI
	documents sync.Map

	// abstraction for checking and preview rendering
	docService *iLsp.DocumentService
}

type Options struct {
	DocService iLsp.DocumentServiceOptions
}

var DefaultServerOptions = Options{
	DocService: iLsp.DefaultDocumentServiceOptions,
}

func NewServer(options Options) (*Server, error) {
	if options.DocService.PreviewRoot == "" {
		options.DocService.PreviewRoot = iLsp.DefaultDocumentServiceOptions.PreviewRoot
	}

	dService, err := iLsp.NewDocumentService(options.DocService)
	if err != nil {
		return nil, err
	}

	return &Server{
		docService: dService,
	}, nil
}

func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result interface{}, err error) {
	if s.conn == nil {
		s.conn = conn
	}
	slog.Info("received request", "method", req.Method, "id", req.ID)
	reqCount, _ := s.trackRequestCount.LoadOrStore(req.Method, 1)
	if count, ok := reqCount.(int); ok {
		s.trackRequestCount.Store(req.Method, count+1)
	}

	if _, ok := s.cancelMap.Load(req.ID.String()); ok {
		slog.Debug("request was canceled", "id", req.ID)
		s.cancelMap.Delete(req.ID.String())
		return nil, nil
	}

	switch req.Method {
	case "initialize":
		slog.Info("initializing lsp server")

		var initParams lsp.InitializeParams
		if err := json.Unmarshal(*req.Params, &initParams); err != nil {
			return nil, err
		}

		syncKind := lsp.TDSKFull
		return lsp.InitializeResult{
			Capabilities: lsp.ServerCapabilities{
				TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
					Kind: &syncKind,
				},
			},
		}, nil

	case "initialized":
		slog.Info("server initialized")
		return nil, nil

	case "shutdown":
		slog.Info("shutting down")

		if err := s.docService.CleanupPreviewFiles(); err != nil {
			slog.Error("failed to remove preview files", "error", err)
		}

		s.printDebugStats()

		return nil, nil

	case "exit":
		slog.Info("exiting")

		os.Exit(0)
		return nil, nil

	// Biz logic
	case "textDocument/didOpen":
		// The post is checked on open, so diagnostics are shown initially
		var params lsp.DidOpenTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}

		s.documents.Store(string(params.TextDocument.URI), params.TextDocument.Text)
		return nil, s.checkAndPublish(ctx, params.TextDocument.URI, params.TextDocument.Text)

	case "textDocument/didChange":
		var params lsp.DidChangeTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}

		if len(params.ContentChanges) == 0 {
			return nil, nil
		}

		text := params.ContentChanges[0].Text
		s.documents.Store(string(params.TextDocument.URI), text)
		return nil, s.checkAndPublish(ctx, params.TextDocument.URI, text)

	case "textDocument/didSave":
		var params lsp.DidSaveTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}

		text, ok := s.documents.Load(string(params.TextDocument.URI))
		if !ok {
			return nil, fmt.Errorf("no tracked content for %s", params.TextDocument.URI)
		}

		previewPath, err := s.docService.PreviewDoc(text.(string), params.TextDocument.URI)
		if err != nil {
			// A failed preview render is reported, not fatal: the
			// diagnostics from didChange already point at the problem
			slog.Warn("preview render failed", "uri", params.TextDocument.URI, "error", err)
			return nil, nil
		}

		slog.Info("rendered preview", "path", previewPath)
		return nil, nil

	case "textDocument/didClose":
		var params lsp.DidCloseTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}

		s.documents.Delete(string(params.TextDocument.URI))
		return nil, nil

	case "$/cancelRequest":
		var params lsp.CancelParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		slog.Debug("canceling request", "id", params.ID)
		s.cancelMap.Store(params.ID.String(), struct{}{})
		return nil, nil

	default:
		slog.Debug("unhandled method", "method", req.Method)
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method not supported: %s", req.Method),
		}
	}
}

func (s *Server) checkAndPublish(ctx context.Context, uri lsp.DocumentURI, text string) error {
	fsPath, err := s.docService.URIToPath(uri)
	if err != nil {
		return fmt.Errorf("invalid document URI: %w", err)
	}

	diags := s.docService.Check(text, fsPath)
	return s.SendDiagnostics(ctx, lsp.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

func (s *Server) SendDiagnostics(ctx context.Context, params lsp.PublishDiagnosticsParams) error {
	return s.conn.Notify(ctx, "textDocument/publishDiagnostics", params)
}

func (s *Server) printDebugStats() {
	s.trackRequestCount.Range(func(key, value interface{}) bool {
		msg := fmt.Sprintf("Method: %-30s Count: %d", key.(string), value.(int))
		slog.Debug(msg)
		return true
	})
}
