// Package stylus implements the Stylus frame subsystem: a WASM contract
// runs on its own goroutine and exchanges host-API requests with the
// executor over a rendezvous bridge, one request at a time.
package stylus

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BlockInfo is the subset of block context a Stylus program can observe.
type BlockInfo struct {
	BaseFee   *uint256.Int
	Coinbase  common.Address
	GasLimit  uint64
	Number    uint64
	Timestamp uint64
}

// TxInfo is the subset of transaction context a Stylus program can observe.
type TxInfo struct {
	Origin   common.Address
	GasPrice *uint256.Int
}

// EvmData is the read-only snapshot a worker receives at spawn time,
// built once by the wrapper (C6) from the enclosing frame and the host.
type EvmData struct {
	ArbosVersion    uint64
	ChainID         uint64
	Block           BlockInfo
	Tx              TxInfo
	ContractAddress common.Address
	ModuleHash      common.Hash
	MsgSender       common.Address
	MsgValue        *uint256.Int
	Reentrant       uint32
	ReturnDataLen   uint32
	Cached          bool
	Tracing         bool
}

// Encode renders the snapshot into the fixed big-endian layout a guest's
// "vm_hooks.evm_data" host import hands back, mirroring the field order of
// the reference implementation's EvmData struct.
func (d EvmData) Encode() []byte {
	buf := make([]byte, 0, 8+32+8+20+8+8+8+20+32+20+32+32+20+4+4+1+1)
	putU64 := func(v uint64) { buf = append(buf, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	putU32 := func(v uint32) { buf = append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	word := func(v *uint256.Int) {
		if v == nil {
			v = new(uint256.Int)
		}
		b := v.Bytes32()
		buf = append(buf, b[:]...)
	}

	putU64(d.ArbosVersion)
	word(d.Block.BaseFee)
	putU64(d.ChainID)
	buf = append(buf, d.Block.Coinbase.Bytes()...)
	putU64(d.Block.GasLimit)
	putU64(d.Block.Number)
	putU64(d.Block.Timestamp)
	buf = append(buf, d.ContractAddress.Bytes()...)
	buf = append(buf, d.ModuleHash.Bytes()...)
	buf = append(buf, d.MsgSender.Bytes()...)
	word(d.MsgValue)
	word(d.Tx.GasPrice)
	buf = append(buf, d.Tx.Origin.Bytes()...)
	putU32(d.Reentrant)
	putU32(d.ReturnDataLen)
	if d.Cached {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	if d.Tracing {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// CallType distinguishes the three CALL-class escalations a worker can
// request; STATICCALL additionally forces is_static on the sub-frame.
type CallType uint8

const (
	CallTypeCall CallType = iota
	CallTypeDelegate
	CallTypeStatic
)

// CreateType distinguishes CREATE1 from CREATE2 (salted).
type CreateType uint8

const (
	CreateType1 CreateType = iota
	CreateType2
)

// CallArgs is the payload of a ContractCall/DelegateCall/StaticCall request.
type CallArgs struct {
	Type     CallType
	Address  common.Address
	Value    *uint256.Int
	GasLeft  uint64
	Calldata []byte
}

// CreateArgs is the payload of a Create1/Create2 request.
type CreateArgs struct {
	Type     CreateType
	Value    *uint256.Int
	GasLeft  uint64
	Salt     common.Hash // only meaningful when Type == CreateType2
	Code     []byte
}

// RequestKind enumerates every EvmApiRequest/EvmApiMethod variant,
// including the internal Return pseudo-method used to carry the worker's
// terminal outcome back over the same channel it sent requests on.
type RequestKind uint8

const (
	ReqGetBytes32 RequestKind = iota
	ReqSetTrieSlots
	ReqGetTransientBytes32
	ReqSetTransientBytes32
	ReqContractCall
	ReqDelegateCall
	ReqStaticCall
	ReqCreate1
	ReqCreate2
	ReqEmitLog
	ReqAccountBalance
	ReqAccountCode
	ReqAccountCodeHash
	ReqAddPages
	ReqCaptureHostIO
	ReqReturn
)

// IsCallClass reports whether a request must be escalated to the driver
// as a new frame rather than serviced locally against the host.
func (k RequestKind) IsCallClass() bool {
	switch k {
	case ReqContractCall, ReqDelegateCall, ReqStaticCall, ReqCreate1, ReqCreate2:
		return true
	default:
		return false
	}
}

// EvmApiRequest is a worker→driver message. Exactly one field group is
// populated per Kind; Go has no tagged union so the zero value of the
// unused groups is simply ignored.
type EvmApiRequest struct {
	Kind RequestKind

	// GetBytes32 / GetTransientBytes32
	Slot common.Hash

	// SetTrieSlots / SetTransientBytes32
	Key     common.Hash
	Value   common.Hash
	GasLeft uint64

	// ContractCall / DelegateCall / StaticCall / Create1 / Create2
	Call   *CallArgs
	Create *CreateArgs

	// EmitLog
	Topics []common.Hash
	Data   []byte

	// AccountBalance / AccountCode / AccountCodeHash
	Address common.Address

	// AddPages
	PageCount uint16

	// Return (terminal)
	Outcome *StylusOutcome
}

// OutcomeKind enumerates every EvmApiOutcome variant, mirroring RequestKind
// minus the terminal Return (which never gets an outcome reply).
type OutcomeKind uint8

const (
	OutGetBytes32 OutcomeKind = iota
	OutSetTrieSlots
	OutGetTransientBytes32
	OutSetTransientBytes32
	OutCall
	OutCreate
	OutEmitLog
	OutAccountBalance
	OutAccountCode
	OutAccountCodeHash
	OutAddPages
	OutCaptureHostIO
)

// EvmApiOutcome is a driver→worker reply.
type EvmApiOutcome struct {
	Kind OutcomeKind

	Value   common.Hash // GetBytes32 / GetTransientBytes32
	Code    []byte       // AccountCode
	Hash    common.Hash  // AccountCodeHash
	Balance *uint256.Int // AccountBalance

	Result  *StylusOutcome // Call
	Address common.Address // Create

	// Status carries the wire Status byte for write-class replies
	// (SetTrieSlots, SetTransientBytes32, EmitLog, AddPages, AccountCode)
	// where the handler signals success/failure/write-protection rather
	// than returning a value.
	Status Status

	GasCost uint64
}

// StylusResultKind enumerates the ways a Stylus program can terminate.
type StylusResultKind uint8

const (
	StylusReturn StylusResultKind = iota
	StylusRevert
	StylusFailure
	StylusOutOfInk
	StylusOutOfStack
)

// StylusOutcome is the terminal result of running a Stylus frame to
// completion, whether the top-level frame or an escalated sub-call.
type StylusOutcome struct {
	Kind StylusResultKind
	Data []byte
}

// Status is the single-byte wire status carried in every local-request
// reply, per the handler's Success/Failure/OutOfGas/WriteProtection table.
type Status uint8

const (
	StatusSuccess         Status = 0
	StatusFailure         Status = 1
	StatusOutOfGas        Status = 2
	StatusWriteProtection Status = 3
)

// Encode returns the single-byte wire form of a Status.
func (s Status) Encode() []byte {
	return []byte{byte(s)}
}
