// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/stylusvm/hybrid-core/stylus"
)

// emptyCodeHash is used by create to ensure deployment is disallowed to
// already deployed contract addresses.
var emptyCodeHash = crypto.Keccak256Hash(nil)

var EvmPool = sync.Pool{
	New: func() interface{} {
		return &EVM{}
	},
}

type (
	// CanTransferFunc is the signature of a transfer guard function
	CanTransferFunc func(StateDB, common.Address, *big.Int) bool
	// TransferFunc is the signature of a transfer function
	TransferFunc func(StateDB, common.Address, common.Address, *big.Int)
	// GetHashFunc returns the n'th block hash in the blockchain
	// and is used by the BLOCKHASH EVM op code.
	GetHashFunc func(uint64) common.Hash
)

// BlockContext provides the EVM with auxiliary information. Once provided
// it shouldn't be modified.
type BlockContext struct {
	CanTransfer CanTransferFunc
	Transfer    TransferFunc
	GetHash     GetHashFunc

	Coinbase    common.Address
	GasLimit    uint64
	BlockNumber *big.Int
	Time        *big.Int
	Difficulty  *big.Int
	BaseFee     *big.Int
	Random      *common.Hash
}

// TxContext provides the EVM with information about a transaction.
// All fields can change between transactions.
type TxContext struct {
	Origin   common.Address
	GasPrice *big.Int
}

// Config bundles the handful of knobs the EVM needs beyond chain rules.
// The real go-ethereum Config also carries a Debug/Tracer pair; no tracer
// implementation was retrieved for this teacher, so it is left out rather
// than wired to nothing.
type Config struct {
	// ArbosVersion is surfaced to every Stylus frame's EvmData as-is.
	ArbosVersion uint64
}

// EVM is the execution core: it drives both classical bytecode and Stylus
// WASM modules through the same iterative frame-stack loop (runFrames),
// dispatching per-frame on the marker stylus.HasMarker checks for.
//
// The EVM should never be reused across transactions and is not thread
// safe.
type EVM struct {
	Context BlockContext
	TxContext

	StateDB StateDB
	depth   int

	chainConfig *params.ChainConfig
	chainRules  params.Rules
	Config      Config

	stylusConfig stylus.StylusConfig
	wasmRuntime  stylus.WasmRuntime

	abort       int32
	callGasTemp uint64
}

// NewEVM returns a new EVM. The returned EVM is not thread safe and should
// only ever be used *once*.
func NewEVM(blockCtx BlockContext, txCtx TxContext, statedb StateDB, chainConfig *params.ChainConfig, config Config, runtime stylus.WasmRuntime) *EVM {
	evm := EvmPool.Get().(*EVM)
	evm.Context = blockCtx
	evm.TxContext = txCtx
	evm.StateDB = statedb
	evm.Config = config
	evm.chainConfig = chainConfig
	evm.chainRules = chainConfig.Rules(blockCtx.BlockNumber, blockCtx.Random != nil)
	evm.abort = 0
	evm.callGasTemp = 0
	evm.depth = 0
	evm.stylusConfig = stylus.DefaultStylusConfig()
	evm.wasmRuntime = runtime
	return evm
}

// Reset resets the EVM with a new transaction context. This is not
// threadsafe and should only be done very cautiously.
func (evm *EVM) Reset(txCtx TxContext, statedb StateDB) {
	evm.TxContext = txCtx
	evm.StateDB = statedb
}

// Cancel cancels any running EVM operation. This may be called concurrently
// and it's safe to be called multiple times.
func (evm *EVM) Cancel() {
	atomic.StoreInt32(&evm.abort, 1)
}

// Cancelled returns true if Cancel has been called.
func (evm *EVM) Cancelled() bool {
	return atomic.LoadInt32(&evm.abort) == 1
}

// ChainConfig returns the environment's chain configuration.
func (evm *EVM) ChainConfig() *params.ChainConfig { return evm.chainConfig }

func (evm *EVM) arbosVersion() uint64 { return evm.Config.ArbosVersion }

// pendingFrame tracks one entry of the iterative call stack runFrames
// drives: the stylus.Frame itself plus the bookkeeping needed to finish
// (or unwind) it once it resolves.
type pendingFrame struct {
	frame    stylus.Frame
	isCreate bool
	address  common.Address
	snapshot int
}

// runFrames is the iterative frame-stack loop (replacing native Go-stack
// recursion) so Stylus and classical frames interleave freely: it drives
// the top frame until it yields an escalation or a terminal result, pushes
// or pops accordingly, and feeds each pop back into the new top via
// ReturnResult before resuming it.
func (evm *EVM) runFrames(root stylus.Frame, rootAddr common.Address, rootIsCreate bool, rootSnapshot int) (output []byte, gasLeft uint64, createdAddr common.Address, err error) {
	host := newHostAdapter(evm)
	stack := []*pendingFrame{{frame: root, isCreate: rootIsCreate, address: rootAddr, snapshot: rootSnapshot}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		action, rerr := top.frame.Run(host)
		if rerr != nil {
			evm.StateDB.RevertToSnapshot(rootSnapshot)
			return nil, 0, common.Address{}, rerr
		}

		switch action.Kind {
		case stylus.ActionReturn:
			result := action.Result
			stack = stack[:len(stack)-1]
			success := result.Status == stylus.ResultReturn

			if success && top.isCreate {
				if cerr := evm.finalizeCreatedCode(top.address, result.Output); cerr != nil {
					success = false
					err = cerr
				} else {
					result.Output = nil
				}
			}
			if !success {
				evm.StateDB.RevertToSnapshot(top.snapshot)
			}

			if len(stack) == 0 {
				if err == nil {
					err = statusToErr(result.Status)
				}
				return result.Output, result.Gas, top.address, err
			}

			parent := stack[len(stack)-1]
			frameResult := stylus.FrameResult{
				IsCreate: top.isCreate,
				Success:  success,
				Output:   result.Output,
				Address:  top.address,
				GasLeft:  result.Gas,
			}
			if perr := parent.frame.ReturnResult(frameResult); perr != nil {
				evm.StateDB.RevertToSnapshot(rootSnapshot)
				return nil, 0, common.Address{}, perr
			}

		case stylus.ActionNewFrame:
			child, childAddr, isCreate, snap, perr := evm.pushFrame(action.Frame, len(stack))
			if perr != nil {
				failure := stylus.FrameResult{IsCreate: action.Frame.Create != nil, Success: false}
				if rerr := top.frame.ReturnResult(failure); rerr != nil {
					evm.StateDB.RevertToSnapshot(rootSnapshot)
					return nil, 0, common.Address{}, rerr
				}
				continue
			}
			stack = append(stack, &pendingFrame{frame: child, isCreate: isCreate, address: childAddr, snapshot: snap})

		default:
			evm.StateDB.RevertToSnapshot(rootSnapshot)
			return nil, 0, common.Address{}, ErrFrameStackCorrupt
		}
	}
	return nil, 0, common.Address{}, ErrFrameStackCorrupt
}

// pushFrame resolves one InterpreterAction.Frame escalation into an actual
// stylus.Frame: fetching the callee's code for a CALL family, or computing
// the new contract address and creating the account for a CREATE family.
func (evm *EVM) pushFrame(in *stylus.FrameInput, depth int) (frame stylus.Frame, addr common.Address, isCreate bool, snapshot int, err error) {
	if depth > int(params.CallCreateDepth) {
		return nil, common.Address{}, false, 0, ErrDepth
	}

	if in.Call != nil {
		ci := *in.Call
		snap := evm.StateDB.Snapshot()

		if ci.Value.Kind == stylus.CallValueTransfer && ci.Value.Amount != nil && !ci.Value.Amount.IsZero() {
			valueBig := ci.Value.Amount.ToBig()
			if !evm.Context.CanTransfer(evm.StateDB, ci.Caller, valueBig) {
				evm.StateDB.RevertToSnapshot(snap)
				return nil, common.Address{}, false, 0, ErrInsufficientBalance
			}
			if !evm.StateDB.Exist(ci.Target) {
				evm.StateDB.CreateAccount(ci.Target)
			}
			evm.Context.Transfer(evm.StateDB, ci.Caller, ci.Target, valueBig)
		}

		code := evm.StateDB.GetCode(ci.BytecodeAddress)
		f, ferr := evm.makeFrame(depth, ci, code)
		if ferr != nil {
			evm.StateDB.RevertToSnapshot(snap)
			return nil, common.Address{}, false, 0, ferr
		}
		return f, ci.Target, false, snap, nil
	}

	ci := in.Create
	var newAddr common.Address
	if ci.Salt != nil {
		newAddr = crypto.CreateAddress2(ci.Caller, *ci.Salt, crypto.Keccak256Hash(ci.Code).Bytes())
	} else {
		newAddr = crypto.CreateAddress(ci.Caller, evm.StateDB.GetNonce(ci.Caller))
	}

	nonce := evm.StateDB.GetNonce(ci.Caller)
	if nonce+1 < nonce {
		return nil, common.Address{}, false, 0, ErrNonceUintOverflow
	}
	evm.StateDB.SetNonce(ci.Caller, nonce+1)

	if evm.chainRules.IsBerlin {
		evm.StateDB.AddAddressToAccessList(newAddr)
	}

	contractHash := evm.StateDB.GetCodeHash(newAddr)
	if evm.StateDB.GetNonce(newAddr) != 0 || (contractHash != (common.Hash{}) && contractHash != emptyCodeHash) {
		return nil, common.Address{}, false, 0, ErrContractAddressCollision
	}

	snap := evm.StateDB.Snapshot()
	evm.StateDB.CreateAccount(newAddr)
	if evm.chainRules.IsEIP158 {
		evm.StateDB.SetNonce(newAddr, 1)
	}

	value := ci.Value
	if value == nil {
		value = new(uint256.Int)
	}
	if !value.IsZero() {
		valueBig := value.ToBig()
		if !evm.Context.CanTransfer(evm.StateDB, ci.Caller, valueBig) {
			evm.StateDB.RevertToSnapshot(snap)
			return nil, common.Address{}, false, 0, ErrInsufficientBalance
		}
		evm.Context.Transfer(evm.StateDB, ci.Caller, newAddr, valueBig)
	}

	deployInputs := stylus.CallInputs{
		Caller:          ci.Caller,
		Target:          newAddr,
		BytecodeAddress: newAddr,
		Input:           nil,
		Value:           stylus.CallValue{Kind: stylus.CallValueTransfer, Amount: value},
		GasLimit:        ci.GasLimit,
		IsStatic:        ci.IsStatic,
		Scheme:          stylus.SchemeCall,
	}
	f, ferr := evm.makeFrame(depth, deployInputs, ci.Code)
	if ferr != nil {
		evm.StateDB.RevertToSnapshot(snap)
		return nil, common.Address{}, false, 0, ferr
	}
	return f, newAddr, true, snap, nil
}

// finalizeCreatedCode validates and stores the code a successful CREATE
// frame returned. EIP-3541 forbids code starting with 0xEF, except the
// Stylus module marker itself begins with 0xEF — real Stylus programs are
// exempted from that check the same way the reference implementation does.
func (evm *EVM) finalizeCreatedCode(addr common.Address, code []byte) error {
	if evm.chainRules.IsEIP158 && len(code) > params.MaxCodeSize {
		return ErrMaxCodeSizeExceeded
	}
	if evm.chainRules.IsLondon && len(code) >= 1 && code[0] == 0xEF && !stylus.HasMarker(code) {
		return ErrInvalidCode
	}
	evm.StateDB.SetCode(addr, code)
	return nil
}

func statusToErr(status stylus.InstructionResult) error {
	switch status {
	case stylus.ResultReturn:
		return nil
	case stylus.ResultRevert:
		return ErrExecutionReverted
	case stylus.ResultOutOfGas:
		return ErrOutOfGas
	default:
		return ErrExecutionReverted
	}
}

// Call executes the contract associated with addr with the given input as
// parameters. It handles any necessary value transfer and takes the
// necessary steps to create accounts, reversing state on a failed call.
func (evm *EVM) Call(caller ContractRef, addr common.Address, input []byte, gas uint64, value *big.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > int(params.CallCreateDepth) {
		return nil, gas, ErrDepth
	}
	if value.Sign() != 0 && !evm.Context.CanTransfer(evm.StateDB, caller.Address(), value) {
		return nil, gas, ErrInsufficientBalance
	}

	snapshot := evm.StateDB.Snapshot()

	if !evm.StateDB.Exist(addr) {
		if evm.chainRules.IsEIP158 && value.Sign() == 0 {
			return nil, gas, nil
		}
		evm.StateDB.CreateAccount(addr)
	}
	evm.Context.Transfer(evm.StateDB, caller.Address(), addr, value)

	code := evm.StateDB.GetCode(addr)
	if len(code) == 0 {
		return nil, gas, nil
	}

	val256, _ := uint256.FromBig(value)
	ci := stylus.CallInputs{
		Caller:          caller.Address(),
		Target:          addr,
		BytecodeAddress: addr,
		Input:           input,
		Value:           stylus.CallValue{Kind: stylus.CallValueTransfer, Amount: val256},
		GasLimit:        gas,
		IsStatic:        false,
		Scheme:          stylus.SchemeCall,
	}
	frame, ferr := evm.makeFrame(evm.depth, ci, code)
	if ferr != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		return nil, gas, ferr
	}

	evm.depth++
	ret, leftOverGas, _, err = evm.runFrames(frame, addr, false, snapshot)
	evm.depth--
	return ret, leftOverGas, err
}

// CallCode executes the contract associated with addr with the given input
// as parameters, using the caller's own address as execution context for
// storage while running the callee's code.
func (evm *EVM) CallCode(caller ContractRef, addr common.Address, input []byte, gas uint64, value *big.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > int(params.CallCreateDepth) {
		return nil, gas, ErrDepth
	}
	if !evm.Context.CanTransfer(evm.StateDB, caller.Address(), value) {
		return nil, gas, ErrInsufficientBalance
	}
	snapshot := evm.StateDB.Snapshot()

	code := evm.StateDB.GetCode(addr)
	val256, _ := uint256.FromBig(value)
	ci := stylus.CallInputs{
		Caller:          caller.Address(),
		Target:          caller.Address(),
		BytecodeAddress: addr,
		Input:           input,
		Value:           stylus.CallValue{Kind: stylus.CallValueTransfer, Amount: val256},
		GasLimit:        gas,
		IsStatic:        false,
		Scheme:          stylus.SchemeCallCode,
	}
	frame, ferr := evm.makeFrame(evm.depth, ci, code)
	if ferr != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		return nil, gas, ferr
	}

	evm.depth++
	ret, leftOverGas, _, err = evm.runFrames(frame, caller.Address(), false, snapshot)
	evm.depth--
	return ret, leftOverGas, err
}

// DelegateCall executes the code of addr with the given input in the
// caller's own context: caller's address is both the frame's caller and its
// storage target, and the apparent value is zero.
func (evm *EVM) DelegateCall(caller ContractRef, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > int(params.CallCreateDepth) {
		return nil, gas, ErrDepth
	}
	snapshot := evm.StateDB.Snapshot()

	code := evm.StateDB.GetCode(addr)

	// DELEGATECALL inherits the caller's own caller and apparent value.
	// When a running frame escalates DELEGATECALL itself (legacy.Frame's
	// escalateCall, stylus.Interpreter.escalate), those paths already carry
	// the enclosing frame's CallInputs and resolve grandCaller/apparentValue
	// directly; this entry point only runs for a root-level DelegateCall
	// with no enclosing frame, so there is nothing to inherit from.
	ci := stylus.CallInputs{
		Caller:          caller.Address(),
		Target:          caller.Address(),
		BytecodeAddress: addr,
		Input:           input,
		Value:           stylus.CallValue{Kind: stylus.CallValueApparent, Amount: new(uint256.Int)},
		GasLimit:        gas,
		IsStatic:        false,
		Scheme:          stylus.SchemeDelegateCall,
	}
	frame, ferr := evm.makeFrame(evm.depth, ci, code)
	if ferr != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		return nil, gas, ferr
	}

	evm.depth++
	ret, leftOverGas, _, err = evm.runFrames(frame, caller.Address(), false, snapshot)
	evm.depth--
	return ret, leftOverGas, err
}

// StaticCall executes the contract associated with addr with the given
// input while disallowing any modification of state during the call.
func (evm *EVM) StaticCall(caller ContractRef, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > int(params.CallCreateDepth) {
		return nil, gas, ErrDepth
	}
	snapshot := evm.StateDB.Snapshot()
	evm.StateDB.AddBalance(addr, new(uint256.Int))

	code := evm.StateDB.GetCode(addr)
	ci := stylus.CallInputs{
		Caller:          caller.Address(),
		Target:          addr,
		BytecodeAddress: addr,
		Input:           input,
		Value:           stylus.CallValue{Kind: stylus.CallValueNone},
		GasLimit:        gas,
		IsStatic:        true,
		Scheme:          stylus.SchemeStaticCall,
	}
	frame, ferr := evm.makeFrame(evm.depth, ci, code)
	if ferr != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		return nil, gas, ferr
	}

	evm.depth++
	ret, leftOverGas, _, err = evm.runFrames(frame, addr, false, snapshot)
	evm.depth--
	return ret, leftOverGas, err
}

// Create creates a new contract using code as deployment code.
func (evm *EVM) Create(caller ContractRef, code []byte, gas uint64, value *big.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	return evm.createImpl(caller, code, gas, value, nil)
}

// Create2 creates a new contract using code as deployment code, deriving
// its address from keccak256(0xff ++ sender ++ salt ++ keccak256(init_code))
// instead of the sender-and-nonce hash Create uses.
func (evm *EVM) Create2(caller ContractRef, code []byte, gas uint64, endowment *big.Int, salt *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	return evm.createImpl(caller, code, gas, endowment, salt)
}

func (evm *EVM) createImpl(caller ContractRef, code []byte, gas uint64, value *big.Int, salt *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	if evm.depth > int(params.CallCreateDepth) {
		return nil, common.Address{}, gas, ErrDepth
	}
	if !evm.Context.CanTransfer(evm.StateDB, caller.Address(), value) {
		return nil, common.Address{}, gas, ErrInsufficientBalance
	}

	val256, _ := uint256.FromBig(value)
	var saltHash *common.Hash
	if salt != nil {
		h := common.Hash(salt.Bytes32())
		saltHash = &h
	}

	in := &stylus.FrameInput{Create: &stylus.CreateInputs{
		Caller:   caller.Address(),
		Value:    val256,
		GasLimit: gas,
		Salt:     saltHash,
		Code:     code,
		IsStatic: false,
	}}

	frame, addr, isCreate, snapshot, perr := evm.pushFrame(in, evm.depth)
	if perr != nil {
		return nil, common.Address{}, gas, perr
	}

	evm.depth++
	ret, leftOverGas, addr, err = evm.runFrames(frame, addr, isCreate, snapshot)
	evm.depth--
	return ret, addr, leftOverGas, err
}

func (evm *EVM) addLog(addr common.Address, topics []common.Hash, data []byte) {
	evm.StateDB.AddLog(&types.Log{
		Address:     addr,
		Topics:      topics,
		Data:        data,
		BlockNumber: evm.Context.BlockNumber.Uint64(),
	})
}
