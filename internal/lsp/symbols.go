package lsp

import (
	"encoding/json"

	"tyrb/internal/symbols"
)

// LSP SymbolKind values for the kinds the model can produce.
const (
	lspSymbolModule        = 2
	lspSymbolClass         = 5
	lspSymbolMethod        = 6
	lspSymbolField         = 8
	lspSymbolConstructor   = 9
	lspSymbolVariable      = 13
	lspSymbolConstant      = 14
	lspSymbolTypeParameter = 26
)

func (s *Server) handleDocumentSymbol(msg *rpcMessage) error {
	var params documentSymbolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	result := []symbolInformation{}
	final := s.eng.Final()
	fref := s.uri2FileRef(params.TextDocument.URI)
	if final != nil && fref.IsValid() {
		for id := symbols.SymbolID(1); int(id) < final.SymbolsUsed(); id++ {
			sym := final.Symbol(id)
			if sym.Def.File != fref {
				continue
			}
			if info, ok := s.symbolInformation(id); ok {
				result = append(result, info)
			}
		}
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleWorkspaceSymbol(msg *rpcMessage) error {
	var params workspaceSymbolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	result := []symbolInformation{}
	final := s.eng.Final()
	if final != nil {
		for id := symbols.SymbolID(1); int(id) < final.SymbolsUsed(); id++ {
			if final.SymbolName(id) != params.Query {
				continue
			}
			if info, ok := s.symbolInformation(id); ok {
				result = append(result, info)
			}
		}
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) symbolInformation(id symbols.SymbolID) (symbolInformation, bool) {
	final := s.eng.Final()
	sym := final.Symbol(id)
	if sym == nil || !sym.Def.File.IsValid() {
		return symbolInformation{}, false
	}
	kind := 0
	switch sym.Kind {
	case symbols.KindModule:
		kind = lspSymbolModule
	case symbols.KindClass:
		kind = lspSymbolClass
	case symbols.KindMethod:
		if final.SymbolName(id) == "initialize" {
			kind = lspSymbolConstructor
		} else {
			kind = lspSymbolMethod
		}
	case symbols.KindField:
		kind = lspSymbolField
	case symbols.KindStaticField:
		kind = lspSymbolConstant
	case symbols.KindMethodArg:
		kind = lspSymbolVariable
	case symbols.KindTypeMember, symbols.KindTypeArg:
		kind = lspSymbolTypeParameter
	default:
		return symbolInformation{}, false
	}
	return symbolInformation{
		Name:          final.SymbolName(id),
		Kind:          kind,
		Location:      s.loc2Location(sym.Def),
		ContainerName: final.FullName(sym.Owner),
	}, true
}
