package stylus

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Host is the surface the core consumes from its embedder. Nothing in this
// package reaches into the embedder's state representation beyond these
// methods, so the core never imports host internals.
type Host interface {
	SLoad(addr common.Address, slot common.Hash) common.Hash
	SStore(addr common.Address, slot, value common.Hash)
	TLoad(addr common.Address, slot common.Hash) common.Hash
	TStore(addr common.Address, slot, value common.Hash)
	Balance(addr common.Address) (*uint256.Int, bool)
	Code(addr common.Address) ([]byte, bool)
	CodeHash(addr common.Address) (common.Hash, bool)
	Log(addr common.Address, topics []common.Hash, data []byte)
	Block() BlockInfo
	Tx() TxInfo
	ChainID() uint64
	ArbosVersion() uint64
}

// CallScheme mirrors the EVM CALL family an escalated CallInputs belongs to.
type CallScheme uint8

const (
	SchemeCall CallScheme = iota
	SchemeDelegateCall
	SchemeStaticCall
	SchemeCallCode
)

// CallValueKind distinguishes how a frame's value is interpreted:
// Transfer moves real balance, Apparent is DELEGATECALL's inherited value
// (no transfer), None is STATICCALL's fixed zero.
type CallValueKind uint8

const (
	CallValueTransfer CallValueKind = iota
	CallValueApparent
	CallValueNone
)

// CallValue is the value argument of a CallInputs, tagged by how it should
// be applied to balances.
type CallValue struct {
	Kind   CallValueKind
	Amount *uint256.Int
}

// CallInputs is the input to a new CALL-family frame, built by escalating
// an EvmApiRequest into something the host's frame stack can execute.
type CallInputs struct {
	Caller          common.Address
	Target          common.Address
	BytecodeAddress common.Address
	Input           []byte
	Value           CallValue
	GasLimit        uint64
	IsStatic        bool
	Scheme          CallScheme
}

// CreateInputs is the input to a new CREATE-family frame.
type CreateInputs struct {
	Caller   common.Address
	Value    *uint256.Int
	GasLimit uint64
	Salt     *common.Hash // nil selects CREATE1 over CREATE2
	Code     []byte
	IsStatic bool
}

// FrameInput wraps whichever of CallInputs/CreateInputs an InterpreterAction
// carries; exactly one is non-nil.
type FrameInput struct {
	Call   *CallInputs
	Create *CreateInputs
}

// InstructionResult is the terminal status a frame can resolve to, in the
// host's own vocabulary (as opposed to StylusOutcome, the worker's).
type InstructionResult uint8

const (
	ResultReturn InstructionResult = iota
	ResultRevert
	ResultOutOfGas
	ResultFatalExternalError
)

// InterpreterResult is the final outcome of running a frame to completion.
type InterpreterResult struct {
	Status InstructionResult
	Output []byte
	Gas    uint64
}

// InterpreterActionKind discriminates an InterpreterAction.
type InterpreterActionKind uint8

const (
	ActionNewFrame InterpreterActionKind = iota
	ActionReturn
	ActionNone
)

// InterpreterAction is what a Frame's Run returns: either a request to push
// a new sub-frame (NewFrame), a terminal result to pop back to the caller
// (Return), or nothing actionable yet (None, reserved for future use).
type InterpreterAction struct {
	Kind   InterpreterActionKind
	Frame  *FrameInput
	Result *InterpreterResult
}

// FrameResult is what the driver feeds back into ReturnResult once a
// sub-frame it pushed has itself run to completion.
type FrameResult struct {
	IsCreate bool
	Success  bool
	Output   []byte
	Address  common.Address // only meaningful when IsCreate && Success
	GasLeft  uint64
}

// Frame is the interface the host's iterative call-stack loop drives: one
// implementation wraps a Stylus WASM program (frame.go), another a
// classical bytecode interpreter (the host's own legacy package).
type Frame interface {
	// Run advances the frame until it either yields a sub-frame request or
	// resolves to a terminal result.
	Run(host Host) (InterpreterAction, error)
	// ReturnResult delivers the result of a sub-frame this Frame requested.
	ReturnResult(result FrameResult) error
	// Depth reports the depth the frame was constructed with. The driver's
	// own depth-limit check uses its stack length, not this value.
	Depth() int
}
