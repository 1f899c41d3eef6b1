package types

import (
	"fmt"

	"fortio.org/safecast"

	"tyrb/internal/symbols"
)

// TypeID identifies an interned type.
type TypeID uint32

const (
	// NoTypeID marks the absence of a type.
	NoTypeID TypeID = 0
)

// IsValid reports whether the type ID refers to an interned type.
func (id TypeID) IsValid() bool { return id != NoTypeID }

// Kind discriminates the interned type variants.
type Kind uint8

const (
	KindUntyped Kind = iota
	KindInstance
	KindClassOf
)

// Type is one interned type. Instance/ClassOf carry the class symbol.
type Type struct {
	Kind  Kind
	Class symbols.SymbolID
}

// Interner stores types in a compact slice-based arena with structural
// dedup. Index 0 is reserved for NoTypeID.
type Interner struct {
	data     []Type
	untyped  TypeID
	instance map[symbols.SymbolID]TypeID
	classOf  map[symbols.SymbolID]TypeID
}

func NewInterner() *Interner {
	in := &Interner{
		data:     make([]Type, 1, 32),
		instance: make(map[symbols.SymbolID]TypeID),
		classOf:  make(map[symbols.SymbolID]TypeID),
	}
	in.untyped = in.alloc(Type{Kind: KindUntyped})
	return in
}

func (in *Interner) alloc(t Type) TypeID {
	value, err := safecast.Conv[uint32](len(in.data))
	if err != nil {
		panic(fmt.Errorf("types arena overflow: %w", err))
	}
	id := TypeID(value)
	in.data = append(in.data, t)
	return id
}

// Untyped returns the dynamic fallback type.
func (in *Interner) Untyped() TypeID { return in.untyped }

// Instance returns the instance type of the class symbol.
func (in *Interner) Instance(class symbols.SymbolID) TypeID {
	if id, ok := in.instance[class]; ok {
		return id
	}
	id := in.alloc(Type{Kind: KindInstance, Class: class})
	in.instance[class] = id
	return id
}

// ClassOf returns the singleton type of the class symbol itself.
func (in *Interner) ClassOf(class symbols.SymbolID) TypeID {
	if id, ok := in.classOf[class]; ok {
		return id
	}
	id := in.alloc(Type{Kind: KindClassOf, Class: class})
	in.classOf[class] = id
	return id
}

// Get returns the type value, or the untyped variant for invalid IDs.
func (in *Interner) Get(id TypeID) Type {
	if !id.IsValid() || int(id) >= len(in.data) {
		return Type{Kind: KindUntyped}
	}
	return in.data[id]
}

// Compatible reports whether a value of type got may flow where want is
// expected. Untyped is compatible in both directions.
func (in *Interner) Compatible(got, want TypeID) bool {
	if !got.IsValid() || !want.IsValid() {
		return true
	}
	gt, wt := in.Get(got), in.Get(want)
	if gt.Kind == KindUntyped || wt.Kind == KindUntyped {
		return true
	}
	return gt == wt
}

// Clone returns an independent copy of the interner.
func (in *Interner) Clone() *Interner {
	out := &Interner{
		data:     make([]Type, len(in.data)),
		untyped:  in.untyped,
		instance: make(map[symbols.SymbolID]TypeID, len(in.instance)),
		classOf:  make(map[symbols.SymbolID]TypeID, len(in.classOf)),
	}
	copy(out.data, in.data)
	for k, v := range in.instance {
		out.instance[k] = v
	}
	for k, v := range in.classOf {
		out.classOf[k] = v
	}
	return out
}

// Label renders a type for humans. className resolves class symbols to
// their display names.
func (in *Interner) Label(id TypeID, className func(symbols.SymbolID) string) string {
	t := in.Get(id)
	switch t.Kind {
	case KindInstance:
		return className(t.Class)
	case KindClassOf:
		return "<Class:" + className(t.Class) + ">"
	}
	return "T.untyped"
}
