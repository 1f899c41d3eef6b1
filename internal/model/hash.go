package model

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"tyrb/internal/symbols"
)

// Hash is the structural fingerprint of the symbol table: names, kinds,
// owners, declared parents, and signatures. Definition locations, method
// bodies, and inferred result types are excluded, so two models whose
// post-resolve symbol shape agrees hash equal even when file offsets
// differ.
func (st *State) Hash() uint32 {
	d := xxhash.New()
	var buf [4]byte
	writeU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	writeStr := func(s string) {
		writeU32(uint32(len(s)))
		_, _ = d.WriteString(s)
	}
	for id := symbols.SymbolID(1); int(id) < len(st.syms); id++ {
		sym := &st.syms[id]
		writeU32(uint32(sym.Owner))
		writeU32(uint32(sym.Kind))
		writeStr(st.NameString(sym.Name))
		writeStr(st.NameString(sym.SuperName))
		writeStr(st.NameString(sym.ResultAnn))
		writeU32(uint32(len(sym.Params)))
		for _, p := range sym.Params {
			writeStr(st.NameString(p.Name))
			writeStr(st.NameString(p.Ann))
		}
	}
	sum := d.Sum64()
	return uint32(sum ^ (sum >> 32))
}
