package model

// The three tables freeze independently; installing a new file needs all
// three unfrozen. Unfreeze scopes are lexical: the returned func restores
// the prior flag on every exit path.
//
//	defer st.UnfreezeFiles()()

// Freeze locks the file, symbol, and name tables.
func (st *State) Freeze() {
	st.filesFrozen = true
	st.symsFrozen = true
	st.namesFrozen = true
}

// UnfreezeFiles opens a file-table mutation scope.
func (st *State) UnfreezeFiles() func() {
	prev := st.filesFrozen
	st.filesFrozen = false
	return func() { st.filesFrozen = prev }
}

// UnfreezeSymbols opens a symbol-table mutation scope.
func (st *State) UnfreezeSymbols() func() {
	prev := st.symsFrozen
	st.symsFrozen = false
	return func() { st.symsFrozen = prev }
}

// UnfreezeNames opens a name-table mutation scope.
func (st *State) UnfreezeNames() func() {
	prev := st.namesFrozen
	st.namesFrozen = false
	return func() { st.namesFrozen = prev }
}

// UnfreezeAll opens all three scopes and returns a single restore.
func (st *State) UnfreezeAll() func() {
	f := st.UnfreezeFiles()
	s := st.UnfreezeSymbols()
	n := st.UnfreezeNames()
	return func() {
		n()
		s()
		f()
	}
}

// Frozen reports whether any table is currently frozen.
func (st *State) Frozen() bool {
	return st.filesFrozen || st.symsFrozen || st.namesFrozen
}
