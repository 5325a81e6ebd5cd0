package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stylusvm/hybrid-core/stylus"
)

// hostAdapter is the only thing the stylus package ever sees of the EVM: it
// implements stylus.Host by delegating to the enclosing EVM's StateDB and
// context, so stylus never imports core/vm and the dependency runs one way.
type hostAdapter struct {
	evm *EVM
}

func newHostAdapter(evm *EVM) *hostAdapter {
	return &hostAdapter{evm: evm}
}

func (h *hostAdapter) SLoad(addr common.Address, slot common.Hash) common.Hash {
	return h.evm.StateDB.GetState(addr, slot)
}

func (h *hostAdapter) SStore(addr common.Address, slot, value common.Hash) {
	h.evm.StateDB.SetState(addr, slot, value)
}

func (h *hostAdapter) TLoad(addr common.Address, slot common.Hash) common.Hash {
	return h.evm.StateDB.GetTransientState(addr, slot)
}

func (h *hostAdapter) TStore(addr common.Address, slot, value common.Hash) {
	h.evm.StateDB.SetTransientState(addr, slot, value)
}

func (h *hostAdapter) Balance(addr common.Address) (*uint256.Int, bool) {
	if !h.evm.StateDB.Exist(addr) {
		return new(uint256.Int), false
	}
	return h.evm.StateDB.GetBalance(addr), true
}

func (h *hostAdapter) Code(addr common.Address) ([]byte, bool) {
	if !h.evm.StateDB.Exist(addr) {
		return nil, false
	}
	return h.evm.StateDB.GetCode(addr), true
}

func (h *hostAdapter) CodeHash(addr common.Address) (common.Hash, bool) {
	if !h.evm.StateDB.Exist(addr) {
		return common.Hash{}, false
	}
	return h.evm.StateDB.GetCodeHash(addr), true
}

func (h *hostAdapter) Log(addr common.Address, topics []common.Hash, data []byte) {
	h.evm.addLog(addr, topics, data)
}

func (h *hostAdapter) Block() stylus.BlockInfo {
	return stylus.BlockInfo{
		BaseFee:   bigToUint256(h.evm.Context.BaseFee),
		Coinbase:  h.evm.Context.Coinbase,
		GasLimit:  h.evm.Context.GasLimit,
		Number:    h.evm.Context.BlockNumber.Uint64(),
		Timestamp: h.evm.Context.Time.Uint64(),
	}
}

func (h *hostAdapter) Tx() stylus.TxInfo {
	return stylus.TxInfo{
		Origin:   h.evm.TxContext.Origin,
		GasPrice: bigToUint256(h.evm.TxContext.GasPrice),
	}
}

func bigToUint256(v *big.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	r, _ := uint256.FromBig(v)
	return r
}

func (h *hostAdapter) ChainID() uint64 {
	return h.evm.chainConfig.ChainID.Uint64()
}

func (h *hostAdapter) ArbosVersion() uint64 {
	return h.evm.arbosVersion()
}
