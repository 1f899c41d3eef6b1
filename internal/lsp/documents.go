package lsp

import (
	"context"
	"encoding/json"

	"tyrb/internal/diag"
	"tyrb/internal/source"
)

func (s *Server) handleDidOpen(ctx context.Context, msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	local, ok := s.remoteToLocal(params.TextDocument.URI)
	if !ok {
		return nil
	}
	files := []*source.File{source.NewFile(local, []byte(params.TextDocument.Text), source.KindNormal)}
	s.eng.Update(ctx, files)
	return s.publish()
}

func (s *Server) handleDidChange(ctx context.Context, msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	local, ok := s.remoteToLocal(params.TextDocument.URI)
	if !ok {
		return nil
	}
	// Full-text sync: the whole document arrives in contentChanges[0].
	files := []*source.File{source.NewFile(local, []byte(params.ContentChanges[0].Text), source.KindNormal)}
	s.eng.Update(ctx, files)
	return s.publish()
}

// handleDidChangeWatchedFiles asks the client for current contents via the
// custom readFile request, then applies the batch when the reply arrives.
func (s *Server) handleDidChangeWatchedFiles(msg *rpcMessage) error {
	params := msg.Params
	return s.sendRequest("readFile", json.RawMessage(params),
		func(result json.RawMessage) {
			var entries []readFileEntry
			if err := json.Unmarshal(result, &entries); err != nil {
				s.logf("bad readFile reply: %v", err)
				return
			}
			var files []*source.File
			for _, entry := range entries {
				local, ok := s.remoteToLocal(entry.URI)
				if !ok {
					continue
				}
				files = append(files, source.NewFile(local, []byte(entry.Content), source.KindNormal))
			}
			if len(files) == 0 {
				return
			}
			s.eng.Update(s.baseCtx, files)
			if err := s.publish(); err != nil {
				s.logf("failed to publish diagnostics: %v", err)
			}
		},
		func(json.RawMessage) {})
}

// publish drains the engine and emits one publishDiagnostics per affected
// file. Each payload is the complete current set: the client replaces.
func (s *Server) publish() error {
	for _, pub := range s.eng.PushErrors() {
		uri := pub.Path
		if pub.Kind != source.KindPayload {
			uri = s.localToRemote(pub.Path)
		}
		list := make([]lspDiagnostic, 0, len(pub.Diagnostics))
		for _, d := range pub.Diagnostics {
			list = append(list, s.wireDiagnostic(d))
		}
		params := publishDiagnosticsParams{URI: uri, Diagnostics: list}
		if err := s.sendNotification("textDocument/publishDiagnostics", params); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) wireDiagnostic(d diag.Diagnostic) lspDiagnostic {
	out := lspDiagnostic{
		Range:    s.loc2Range(d.Primary),
		Severity: wireSeverity(d.Severity),
		Code:     int(d.Code),
		Source:   "tyrb",
		Message:  d.Message,
	}
	for _, section := range d.Sections {
		for _, note := range section.Messages {
			message := note.Msg
			if message == "" {
				message = section.Header
			}
			out.RelatedInformation = append(out.RelatedInformation, diagnosticRelatedInfo{
				Location: s.loc2Location(note.Span),
				Message:  message,
			})
		}
	}
	return out
}

func wireSeverity(sev diag.Severity) int {
	switch sev {
	case diag.SevError:
		return 1
	case diag.SevWarning:
		return 2
	}
	return 3
}
