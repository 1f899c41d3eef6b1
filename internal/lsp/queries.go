package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tyrb/internal/equeue"
	"tyrb/internal/source"
	"tyrb/internal/types"
)

func (s *Server) handleDefinition(ctx context.Context, msg *rpcMessage) error {
	var params textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	result := []location{}
	fref := s.uri2FileRef(params.TextDocument.URI)
	if fref.IsValid() {
		resp, ok := s.eng.Query(ctx, fref, params.Position.Line, params.Position.Character)
		if ok {
			result = s.definitionLocations(resp)
		}
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) definitionLocations(resp equeue.QueryResponse) []location {
	final := s.eng.Final()
	out := []location{}
	switch resp.Kind {
	case equeue.KindIdent:
		if len(resp.Origins) > 0 && !resp.Origins[0].IsNone() {
			out = append(out, s.loc2Location(resp.Origins[0]))
		}
	default:
		for _, component := range resp.Dispatch {
			if !component.Method.IsValid() {
				continue
			}
			def := final.Symbol(component.Method).Def
			if def.IsNone() {
				continue
			}
			out = append(out, s.loc2Location(def))
		}
	}
	return out
}

func (s *Server) handleHover(ctx context.Context, msg *rpcMessage) error {
	var params textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	fref := s.uri2FileRef(params.TextDocument.URI)
	if !fref.IsValid() {
		return s.sendError(msg.ID, codeInvalidParams,
			fmt.Sprintf("Did not find file at uri %s in textDocument/hover", params.TextDocument.URI))
	}
	resp, ok := s.eng.Query(ctx, fref, params.Position.Line, params.Position.Character)
	if !ok {
		return s.sendError(msg.ID, codeInvalidParams, "Did not find symbol at hover location in textDocument/hover")
	}

	final := s.eng.Final()
	switch resp.Kind {
	case equeue.KindSend:
		if len(resp.Dispatch) == 0 {
			return s.sendError(msg.ID, codeInvalidParams,
				"Did not find any dispatchComponents for a SEND QueryResponse in textDocument/hover")
		}
		var contents strings.Builder
		for _, component := range resp.Dispatch {
			if !component.Method.IsValid() {
				continue
			}
			if contents.Len() > 0 {
				contents.WriteString(" ")
			}
			contents.WriteString(s.methodSignature(resp.RetType, component))
		}
		return s.sendResponse(msg.ID, &hover{
			Contents: markupContent{Kind: "markdown", Value: contents.String()},
		})
	case equeue.KindIdent, equeue.KindConstant, equeue.KindLiteral:
		return s.sendResponse(msg.ID, &hover{
			Contents: markupContent{Kind: "markdown", Value: final.TypeLabel(resp.RetType)},
		})
	}
	return s.sendError(msg.ID, codeInvalidParams, "Unhandled QueryResponse kind in textDocument/hover")
}

// methodSignature renders one dispatch component the way clients expect
// hover text: ```RetType name(arg: Type, ...)```.
func (s *Server) methodSignature(ret types.TypeID, component equeue.DispatchComponent) string {
	final := s.eng.Final()
	method := final.Symbol(component.Method)
	args := make([]string, 0, len(method.Params))
	for _, p := range method.Params {
		label := final.NameString(p.Name) + ": "
		if p.Ann != source.NoStringID {
			if class := final.ResolveConstant(method.Owner, p.Ann); class.IsValid() {
				label += final.TypeLabel(final.Types.Instance(class))
			} else {
				label += final.NameString(p.Ann)
			}
		} else {
			label += "T.untyped"
		}
		args = append(args, label)
	}
	return fmt.Sprintf("```%s %s(%s)```",
		final.TypeLabel(ret), final.NameString(method.Name), strings.Join(args, ", "))
}
