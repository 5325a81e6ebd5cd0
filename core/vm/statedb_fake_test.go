package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// fakeStateDB is a minimal in-memory StateDB good enough to drive the
// iterative frame-stack loop end to end: balances, code, storage,
// transient storage and snapshot/revert, nothing else.
type fakeStateDB struct {
	balances  map[common.Address]*uint256.Int
	nonces    map[common.Address]uint64
	code      map[common.Address][]byte
	storage   map[common.Address]map[common.Hash]common.Hash
	transient map[common.Address]map[common.Hash]common.Hash
	exists    map[common.Address]bool
	logs      []*types.Log
	refund    uint64

	snapshots []fakeSnapshot
}

type fakeSnapshot struct {
	balances  map[common.Address]*uint256.Int
	nonces    map[common.Address]uint64
	code      map[common.Address][]byte
	storage   map[common.Address]map[common.Hash]common.Hash
	transient map[common.Address]map[common.Hash]common.Hash
	exists    map[common.Address]bool
	logCount  int
}

func newFakeStateDB() *fakeStateDB {
	return &fakeStateDB{
		balances:  make(map[common.Address]*uint256.Int),
		nonces:    make(map[common.Address]uint64),
		code:      make(map[common.Address][]byte),
		storage:   make(map[common.Address]map[common.Hash]common.Hash),
		transient: make(map[common.Address]map[common.Hash]common.Hash),
		exists:    make(map[common.Address]bool),
	}
}

func cloneHashMap(m map[common.Address]map[common.Hash]common.Hash) map[common.Address]map[common.Hash]common.Hash {
	out := make(map[common.Address]map[common.Hash]common.Hash, len(m))
	for addr, slots := range m {
		inner := make(map[common.Hash]common.Hash, len(slots))
		for k, v := range slots {
			inner[k] = v
		}
		out[addr] = inner
	}
	return out
}

func cloneBalances(m map[common.Address]*uint256.Int) map[common.Address]*uint256.Int {
	out := make(map[common.Address]*uint256.Int, len(m))
	for addr, v := range m {
		cp := *v
		out[addr] = &cp
	}
	return out
}

func cloneU64Map(m map[common.Address]uint64) map[common.Address]uint64 {
	out := make(map[common.Address]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneCodeMap(m map[common.Address][]byte) map[common.Address][]byte {
	out := make(map[common.Address][]byte, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneExistsMap(m map[common.Address]bool) map[common.Address]bool {
	out := make(map[common.Address]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *fakeStateDB) CreateAccount(addr common.Address) { s.exists[addr] = true }

func (s *fakeStateDB) SubBalance(addr common.Address, amt *uint256.Int) {
	b := s.GetBalance(addr)
	var r uint256.Int
	r.Sub(b, amt)
	s.balances[addr] = &r
}

func (s *fakeStateDB) AddBalance(addr common.Address, amt *uint256.Int) {
	b := s.GetBalance(addr)
	var r uint256.Int
	r.Add(b, amt)
	s.balances[addr] = &r
	s.exists[addr] = true
}

func (s *fakeStateDB) GetBalance(addr common.Address) *uint256.Int {
	if b, ok := s.balances[addr]; ok {
		return b
	}
	return new(uint256.Int)
}

func (s *fakeStateDB) GetNonce(addr common.Address) uint64     { return s.nonces[addr] }
func (s *fakeStateDB) SetNonce(addr common.Address, n uint64)  { s.nonces[addr] = n }

func (s *fakeStateDB) GetCodeHash(addr common.Address) common.Hash {
	c := s.code[addr]
	if len(c) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(c) // not a real keccak, good enough for tests
}

func (s *fakeStateDB) GetCode(addr common.Address) []byte        { return s.code[addr] }
func (s *fakeStateDB) SetCode(addr common.Address, code []byte)  { s.code[addr] = code; s.exists[addr] = true }
func (s *fakeStateDB) GetCodeSize(addr common.Address) int       { return len(s.code[addr]) }

func (s *fakeStateDB) AddRefund(n uint64) { s.refund += n }
func (s *fakeStateDB) SubRefund(n uint64) { s.refund -= n }
func (s *fakeStateDB) GetRefund() uint64  { return s.refund }

func (s *fakeStateDB) GetCommittedState(addr common.Address, key common.Hash) common.Hash {
	return s.storage[addr][key]
}

func (s *fakeStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	return s.storage[addr][key]
}

func (s *fakeStateDB) SetState(addr common.Address, key, value common.Hash) {
	if s.storage[addr] == nil {
		s.storage[addr] = make(map[common.Hash]common.Hash)
	}
	s.storage[addr][key] = value
}

func (s *fakeStateDB) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	return s.transient[addr][key]
}

func (s *fakeStateDB) SetTransientState(addr common.Address, key, value common.Hash) {
	if s.transient[addr] == nil {
		s.transient[addr] = make(map[common.Hash]common.Hash)
	}
	s.transient[addr][key] = value
}

func (s *fakeStateDB) SelfDestruct(addr common.Address)        { delete(s.exists, addr) }
func (s *fakeStateDB) HasSelfDestructed(common.Address) bool   { return false }

func (s *fakeStateDB) Exist(addr common.Address) bool { return s.exists[addr] }
func (s *fakeStateDB) Empty(addr common.Address) bool { return !s.exists[addr] }

func (s *fakeStateDB) AddressInAccessList(common.Address) bool { return true }
func (s *fakeStateDB) SlotInAccessList(common.Address, common.Hash) (bool, bool) {
	return true, true
}
func (s *fakeStateDB) AddAddressToAccessList(common.Address)          {}
func (s *fakeStateDB) AddSlotToAccessList(common.Address, common.Hash) {}

func (s *fakeStateDB) Snapshot() int {
	s.snapshots = append(s.snapshots, fakeSnapshot{
		balances:  cloneBalances(s.balances),
		nonces:    cloneU64Map(s.nonces),
		code:      cloneCodeMap(s.code),
		storage:   cloneHashMap(s.storage),
		transient: cloneHashMap(s.transient),
		exists:    cloneExistsMap(s.exists),
		logCount:  len(s.logs),
	})
	return len(s.snapshots) - 1
}

func (s *fakeStateDB) RevertToSnapshot(id int) {
	snap := s.snapshots[id]
	s.balances = snap.balances
	s.nonces = snap.nonces
	s.code = snap.code
	s.storage = snap.storage
	s.transient = snap.transient
	s.exists = snap.exists
	s.logs = s.logs[:snap.logCount]
	s.snapshots = s.snapshots[:id]
}

func (s *fakeStateDB) AddLog(log *types.Log) { s.logs = append(s.logs, log) }

func (s *fakeStateDB) AddPreimage(common.Hash, []byte) {}
