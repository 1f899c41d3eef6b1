package pipeline

import (
	"tyrb/internal/model"
	"tyrb/internal/source"
	"tyrb/internal/symbols"
	"tyrb/internal/syntax"
)

// Bootstrap empty-initializes a model: enters the payload file, indexes
// and resolves it, and records the well-known class symbols. Every model
// (the server's and each fingerprint scratch) starts through here, so
// symbol ids for the core classes agree across models built from the same
// inputs.
func Bootstrap(st *model.State) {
	file := source.NewFile(payloadPath, []byte(payloadSource), source.KindPayload)
	fref := st.EnterFile(file)
	tree := IndexFile(st, fref)
	// Builtins must be recorded before resolve so defaulted superclasses
	// link against Object.
	st.Builtins = model.Builtins{
		Object:   lookupClass(st, "Object"),
		Integer:  lookupClass(st, "Integer"),
		Float:    lookupClass(st, "Float"),
		String:   lookupClass(st, "String"),
		NilClass: lookupClass(st, "NilClass"),
		Boolean:  lookupClass(st, "Boolean"),
	}
	Resolve(st, []*syntax.Tree{tree})
}

func lookupClass(st *model.State, name string) symbols.SymbolID {
	id := st.InternName(name)
	return st.LookupMember(symbols.RootSymbolID, id, symbols.KindClass)
}
