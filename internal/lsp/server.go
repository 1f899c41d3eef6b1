// Package lsp is the stdio JSON-RPC front end over the incremental
// engine. The loop is strictly sequential: one wire event is fully
// processed, pipeline work and publications included, before the next is
// read.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"tyrb/internal/engine"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures the server.
type ServerOptions struct {
	Engine *engine.Engine
	Logf   func(format string, args ...any)
}

type responseHandler struct {
	onResult func(json.RawMessage)
	onError  func(json.RawMessage)
}

// Server handles stdio JSON-RPC for the tyrb LSP.
type Server struct {
	in  *bufio.Reader
	out *bufio.Writer
	eng *engine.Engine

	rootURI           string
	shutdownRequested bool
	requestCounter    int
	awaitingResponse  map[string]responseHandler

	baseCtx context.Context
	logf    func(format string, args ...any)
}

// NewServer constructs a server over the transport.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	eng := opts.Engine
	if eng == nil {
		eng = engine.New(engine.Options{})
	}
	logf := opts.Logf
	if logf == nil {
		logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
		}
	}
	return &Server{
		in:               bufio.NewReader(in),
		out:              bufio.NewWriter(out),
		eng:              eng,
		awaitingResponse: make(map[string]responseHandler),
		logf:             logf,
	}
}

// Run serves requests until exit, EOF, or a JSON parse error.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logf("eof")
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("json parse error: %v", err)
			return nil
		}
		if s.handleReplies(&msg) {
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(ctx, &msg); err != nil {
			if errors.Is(err, ErrExit) || errors.Is(err, ErrExitWithoutShutdown) {
				return err
			}
			return err
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return s.handleInitialized(ctx)
	case "shutdown":
		s.shutdownRequested = true
		return s.sendResponse(msg.ID, nil)
	case "exit":
		if s.shutdownRequested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "$/cancelRequest":
		// Recognized; in-flight work is not interruptible.
		return nil
	case "textDocument/didOpen":
		return s.handleDidOpen(ctx, msg)
	case "textDocument/didChange":
		return s.handleDidChange(ctx, msg)
	case "workspace/didChangeWatchedFiles":
		return s.handleDidChangeWatchedFiles(msg)
	case "textDocument/documentSymbol":
		return s.handleDocumentSymbol(msg)
	case "workspace/symbol":
		return s.handleWorkspaceSymbol(msg)
	case "textDocument/definition":
		return s.handleDefinition(ctx, msg)
	case "textDocument/hover":
		return s.handleHover(ctx, msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "Unknown method: "+msg.Method)
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	s.rootURI = params.RootURI
	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync:        1, // full sync
			DocumentSymbolProvider:  true,
			WorkspaceSymbolProvider: true,
			DefinitionProvider:      true,
			HoverProvider:           true,
		},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleInitialized(ctx context.Context) error {
	if err := s.eng.Initialize(ctx); err != nil {
		s.logf("initialization failed: %v", err)
	}
	return s.publish()
}

// handleReplies routes responses to server-initiated requests. Returns
// true when the message was a reply.
func (s *Server) handleReplies(msg *rpcMessage) bool {
	if msg.Method != "" || len(msg.ID) == 0 {
		return false
	}
	if msg.Result == nil && msg.Error == nil {
		return false
	}
	var key string
	if err := json.Unmarshal(msg.ID, &key); err != nil {
		return true
	}
	handler, ok := s.awaitingResponse[key]
	if !ok {
		return true
	}
	delete(s.awaitingResponse, key)
	if msg.Error != nil {
		if handler.onError != nil {
			raw, _ := json.Marshal(msg.Error)
			handler.onError(raw)
		}
		return true
	}
	if handler.onResult != nil {
		handler.onResult(msg.Result)
	}
	return true
}

func (s *Server) sendRequest(method string, params any, onResult, onError func(json.RawMessage)) error {
	s.requestCounter++
	id := fmt.Sprintf("tyrb-req-%d", s.requestCounter)
	s.awaitingResponse[id] = responseHandler{onResult: onResult, onError: onError}
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
}

func (s *Server) sendNotification(method string, params any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"result":  result,
	})
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	})
}

// send marshals and writes one framed message. Writes are atomic
// per-message because the loop owns the transport.
func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}
