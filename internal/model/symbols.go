package model

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"tyrb/internal/source"
	"tyrb/internal/symbols"
	"tyrb/internal/types"
)

// Param is one method parameter: its name and optional type annotation.
type Param struct {
	Name source.StringID
	Ann  source.StringID
	Sym  symbols.SymbolID
}

// Symbol is one entry in the symbol table.
type Symbol struct {
	Name  source.StringID
	Kind  symbols.Kind
	Owner symbols.SymbolID
	Def   source.Span

	// SuperName/Super apply to classes: the declared parent and its
	// resolution.
	SuperName source.StringID
	Super     symbols.SymbolID

	// Params/ResultAnn apply to methods. Result is the declared or
	// inferred result type; the structural hash never reads it.
	Params    []Param
	ResultAnn source.StringID
	Result    types.TypeID

	Members []symbols.SymbolID
}

func (s Symbol) clone() Symbol {
	s.Params = slices.Clone(s.Params)
	s.Members = slices.Clone(s.Members)
	return s
}

// EnterSymbol admits a symbol under its owner, reusing an existing member
// with the same name and kind so re-indexing a file is idempotent. The
// returned id is dense and monotonic.
func (st *State) EnterSymbol(sym Symbol) symbols.SymbolID {
	if st.symsFrozen {
		panic("model: symbol table is frozen")
	}
	if !sym.Owner.IsValid() {
		sym.Owner = symbols.RootSymbolID
	}
	owner := st.Symbol(sym.Owner)
	if owner == nil {
		panic(fmt.Sprintf("model: EnterSymbol with unknown owner %d", sym.Owner))
	}
	for _, id := range owner.Members {
		existing := st.Symbol(id)
		if existing.Name == sym.Name && existing.Kind == sym.Kind {
			existing.Def = sym.Def
			existing.SuperName = sym.SuperName
			if len(sym.Params) > 0 || existing.Kind == symbols.KindMethod {
				existing.Params = sym.Params
			}
			existing.ResultAnn = sym.ResultAnn
			return id
		}
	}
	value, err := safecast.Conv[uint32](len(st.syms))
	if err != nil {
		panic(fmt.Errorf("symbol table overflow: %w", err))
	}
	id := symbols.SymbolID(value)
	st.syms = append(st.syms, sym)
	st.Symbol(sym.Owner).Members = append(st.Symbol(sym.Owner).Members, id)
	return id
}

// Symbol returns a pointer into the arena, or nil for invalid ids.
func (st *State) Symbol(id symbols.SymbolID) *Symbol {
	if !id.IsValid() || int(id) >= len(st.syms) {
		return nil
	}
	return &st.syms[id]
}

// SymbolsUsed reports the table size including the sentinel; valid ids
// are 1..SymbolsUsed()-1.
func (st *State) SymbolsUsed() int { return len(st.syms) }

// SymbolName renders a symbol's bare name.
func (st *State) SymbolName(id symbols.SymbolID) string {
	sym := st.Symbol(id)
	if sym == nil {
		return ""
	}
	return st.NameString(sym.Name)
}

// FullName renders the owner chain joined with "::", root excluded.
func (st *State) FullName(id symbols.SymbolID) string {
	sym := st.Symbol(id)
	if sym == nil || id == symbols.RootSymbolID {
		return ""
	}
	prefix := st.FullName(sym.Owner)
	if prefix == "" {
		return st.NameString(sym.Name)
	}
	return prefix + "::" + st.NameString(sym.Name)
}

// LookupMember finds a direct member of owner by name and kind.
func (st *State) LookupMember(owner symbols.SymbolID, name source.StringID, kind symbols.Kind) symbols.SymbolID {
	o := st.Symbol(owner)
	if o == nil {
		return symbols.NoSymbolID
	}
	for _, id := range o.Members {
		m := st.Symbol(id)
		if m.Name == name && m.Kind == kind {
			return id
		}
	}
	return symbols.NoSymbolID
}

// LookupMethod finds a method on the class or its ancestors.
func (st *State) LookupMethod(class symbols.SymbolID, name source.StringID) symbols.SymbolID {
	seen := 0
	for class.IsValid() && seen < 64 {
		if id := st.LookupMember(class, name, symbols.KindMethod); id.IsValid() {
			return id
		}
		class = st.Symbol(class).Super
		seen++
	}
	return symbols.NoSymbolID
}

// MethodByName finds a method on the class or its ancestors by display
// name, without touching the name table.
func (st *State) MethodByName(class symbols.SymbolID, name string) symbols.SymbolID {
	seen := 0
	for class.IsValid() && seen < 64 {
		o := st.Symbol(class)
		for _, id := range o.Members {
			m := st.Symbol(id)
			if m.Kind == symbols.KindMethod && st.NameString(m.Name) == name {
				return id
			}
		}
		class = o.Super
		seen++
	}
	return symbols.NoSymbolID
}

// ResolveConstant searches the lexical owner chain, then root, for a class
// or module with the name.
func (st *State) ResolveConstant(scope symbols.SymbolID, name source.StringID) symbols.SymbolID {
	for scope.IsValid() {
		if id := st.LookupMember(scope, name, symbols.KindClass); id.IsValid() {
			return id
		}
		if id := st.LookupMember(scope, name, symbols.KindModule); id.IsValid() {
			return id
		}
		if scope == symbols.RootSymbolID {
			break
		}
		scope = st.Symbol(scope).Owner
	}
	return symbols.NoSymbolID
}

// TypeLabel renders a type against this model's symbol table.
func (st *State) TypeLabel(id types.TypeID) string {
	return st.Types.Label(id, st.FullName)
}
