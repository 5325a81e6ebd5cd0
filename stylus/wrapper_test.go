package stylus

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// scriptedRuntime drives a caller-supplied function as the worker's
// "module": it exercises the same HostCallback every real guest would
// call through vm_hooks, without needing an actual compiled WASM binary.
type scriptedRuntime struct {
	script func(cb HostCallback) (NativeOutcome, uint64)
}

func (r *scriptedRuntime) Instantiate(_ context.Context, _ []byte, cb HostCallback, _ EvmData, inkLimit uint64) (NativeInstance, error) {
	return &scriptedInstance{cb: cb, script: r.script, inkLeft: inkLimit}, nil
}

type scriptedInstance struct {
	cb      HostCallback
	script  func(cb HostCallback) (NativeOutcome, uint64)
	inkLeft uint64
}

func (i *scriptedInstance) RunMain(_ context.Context, _ []byte) (NativeOutcome, error) {
	outcome, inkLeft := i.script(i.cb)
	i.inkLeft = inkLeft
	return outcome, nil
}

func (i *scriptedInstance) InkLeft() uint64        { return i.inkLeft }
func (i *scriptedInstance) Close(_ context.Context) error { return nil }

// fakeHost is an in-memory stylus.Host good enough to drive Interpreter.Run
// end to end without any of core/vm.
type fakeHost struct {
	storage   map[common.Address]map[common.Hash]common.Hash
	transient map[common.Address]map[common.Hash]common.Hash
	balances  map[common.Address]*uint256.Int
	codes     map[common.Address][]byte
	logs      []loggedEvent
}

type loggedEvent struct {
	addr   common.Address
	topics []common.Hash
	data   []byte
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		storage:   make(map[common.Address]map[common.Hash]common.Hash),
		transient: make(map[common.Address]map[common.Hash]common.Hash),
		balances:  make(map[common.Address]*uint256.Int),
		codes:     make(map[common.Address][]byte),
	}
}

func (h *fakeHost) SLoad(addr common.Address, slot common.Hash) common.Hash {
	return h.storage[addr][slot]
}

func (h *fakeHost) SStore(addr common.Address, slot, value common.Hash) {
	if h.storage[addr] == nil {
		h.storage[addr] = make(map[common.Hash]common.Hash)
	}
	h.storage[addr][slot] = value
}

func (h *fakeHost) TLoad(addr common.Address, slot common.Hash) common.Hash {
	return h.transient[addr][slot]
}

func (h *fakeHost) TStore(addr common.Address, slot, value common.Hash) {
	if h.transient[addr] == nil {
		h.transient[addr] = make(map[common.Hash]common.Hash)
	}
	h.transient[addr][slot] = value
}

func (h *fakeHost) Balance(addr common.Address) (*uint256.Int, bool) {
	b, ok := h.balances[addr]
	if !ok {
		return new(uint256.Int), false
	}
	return b, true
}

func (h *fakeHost) Code(addr common.Address) ([]byte, bool) {
	c, ok := h.codes[addr]
	return c, ok
}

func (h *fakeHost) CodeHash(addr common.Address) (common.Hash, bool) {
	c, ok := h.codes[addr]
	if !ok {
		return common.Hash{}, false
	}
	return common.BytesToHash(c), true
}

func (h *fakeHost) Log(addr common.Address, topics []common.Hash, data []byte) {
	h.logs = append(h.logs, loggedEvent{addr, topics, data})
}

func (h *fakeHost) Block() BlockInfo        { return BlockInfo{} }
func (h *fakeHost) Tx() TxInfo              { return TxInfo{} }
func (h *fakeHost) ChainID() uint64         { return 42161 }
func (h *fakeHost) ArbosVersion() uint64    { return 30 }
