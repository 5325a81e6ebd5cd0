package stylus

import "github.com/ethereum/go-ethereum/common"

// JournaledState is the subset of the host's own journal the wasm journal
// extension wraps: checkpoint/revert/commit. Every other StateDB operation
// the host exposes is reached directly through Host and is left untouched
// by this wrapper — it only adds bookkeeping around the three journal
// transition points.
type JournaledState interface {
	Checkpoint() int
	RevertToCheckpoint(int)
	CommitCheckpoint(int)
}

// WasmEntryKind enumerates the kinds of WASM-specific journal entries. The
// only kind the reference implementation records today is activation, but
// the type is kept open the way the Rust enum is.
type WasmEntryKind uint8

const (
	WasmEntryActivated WasmEntryKind = iota
)

// WasmJournalEntry records a WASM-specific side effect that must be undone
// on revert, the same way a classical SSTORE journal entry is.
type WasmJournalEntry struct {
	Kind    WasmEntryKind
	Address common.Address
}

// WasmJournaledState wraps a host's JournaledState, layering a per-depth
// log of WASM-specific entries (currently just module activation) on top
// of whatever the host already journals for balances/storage/logs.
type WasmJournaledState struct {
	inner       JournaledState
	wasmJournal [][]WasmJournalEntry
	activated   map[common.Address]bool
}

// NewWasmJournaledState wraps inner, starting with an empty wasm journal.
func NewWasmJournaledState(inner JournaledState) *WasmJournaledState {
	return &WasmJournaledState{
		inner:     inner,
		activated: make(map[common.Address]bool),
	}
}

// Checkpoint pushes a new empty WASM-entry frame alongside the inner
// journal's own checkpoint, returning the inner journal's index unchanged.
func (j *WasmJournaledState) Checkpoint() int {
	innerCP := j.inner.Checkpoint()
	j.wasmJournal = append(j.wasmJournal, nil)
	return innerCP
}

// RecordActivation logs that addr's module was activated at the current
// depth, so a revert past this point un-marks it.
func (j *WasmJournaledState) RecordActivation(addr common.Address) {
	if len(j.wasmJournal) == 0 {
		return
	}
	top := len(j.wasmJournal) - 1
	j.wasmJournal[top] = append(j.wasmJournal[top], WasmJournalEntry{
		Kind:    WasmEntryActivated,
		Address: addr,
	})
	j.activated[addr] = true
}

// IsActivated reports whether addr's module is currently marked active.
func (j *WasmJournaledState) IsActivated(addr common.Address) bool {
	return j.activated[addr]
}

// RevertToCheckpoint unwinds the inner journal to cp and pops the most
// recently pushed WASM-entry frame, undoing its entries in reverse order.
// The WASM side does not use cp: exactly one frame is popped whichever
// checkpoint is named, so frames pushed after cp's are not all dropped
// when cp is not the most recent open checkpoint.
func (j *WasmJournaledState) RevertToCheckpoint(cp int) {
	if len(j.wasmJournal) == 0 {
		j.inner.RevertToCheckpoint(cp)
		return
	}
	top := j.wasmJournal[len(j.wasmJournal)-1]
	for i := len(top) - 1; i >= 0; i-- {
		entry := top[i]
		switch entry.Kind {
		case WasmEntryActivated:
			delete(j.activated, entry.Address)
		}
	}
	j.wasmJournal = j.wasmJournal[:len(j.wasmJournal)-1]
	j.inner.RevertToCheckpoint(cp)
}

// CommitCheckpoint merges the top WASM-entry frame into its parent (or
// drops it, if this was the outermost checkpoint) and commits the inner
// journal unchanged.
func (j *WasmJournaledState) CommitCheckpoint(cp int) {
	if len(j.wasmJournal) > 0 {
		top := j.wasmJournal[len(j.wasmJournal)-1]
		j.wasmJournal = j.wasmJournal[:len(j.wasmJournal)-1]
		if len(j.wasmJournal) > 0 && len(top) > 0 {
			parent := len(j.wasmJournal) - 1
			j.wasmJournal[parent] = append(j.wasmJournal[parent], top...)
		}
	}
	j.inner.CommitCheckpoint(cp)
}
