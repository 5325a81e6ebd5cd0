package stylus

import (
	"context"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

// Interpreter is the per-frame wrapper (C6) around a spawned worker: it
// owns the bridge, answers local EVM-API requests directly against the
// host, and surfaces CALL/CREATE-class requests and the terminal result as
// InterpreterAction values for the driver (C8's Frame) to act on.
type Interpreter struct {
	bytecode []byte // post-marker module bytes
	inputs   CallInputs
	gasLimit uint64
	cfg      StylusConfig
	runtime  WasmRuntime

	bridge  *Bridge
	spawned bool

	// pendingEscalation remembers which CALL/CREATE request is awaiting a
	// ReturnResult, so the reply can be shaped (OutCall vs OutCreate).
	pendingEscalation RequestKind
}

// NewInterpreter builds a wrapper for one Stylus frame. bytecode must
// already have the 4-byte marker stripped by the dispatcher (C7).
func NewInterpreter(bytecode []byte, inputs CallInputs, gasLimit uint64, cfg StylusConfig, runtime WasmRuntime) *Interpreter {
	return &Interpreter{
		bytecode: bytecode,
		inputs:   inputs,
		gasLimit: gasLimit,
		cfg:      cfg,
		runtime:  runtime,
	}
}

// Run drives the worker until it either yields a CALL/CREATE escalation or
// resolves to a terminal outcome, servicing every local request along the
// way. Each call resumes exactly where the previous call left off.
func (in *Interpreter) Run(host Host) (InterpreterAction, error) {
	if !in.spawned {
		evmData := in.buildEvmData(host)
		in.bridge = NewBridge()
		SpawnWorker(context.Background(), in.bytecode, in.inputs.Input, in.cfg, evmData, in.gasLimit, in.bridge, in.runtime)
		in.spawned = true
	}

	for {
		req, ok := in.bridge.Driver().RecvRequestTimeout(requestTimeout)
		if !ok {
			log.Error("stylus interpreter timed out waiting for worker")
			return InterpreterAction{}, ErrWorkerTimeout
		}

		if req.Kind == ReqReturn {
			return in.terminalAction(req), nil
		}

		if req.Kind.IsCallClass() {
			if blocked, outcome := in.staticWriteBlock(req); blocked {
				in.bridge.Driver().SendOutcome(outcome)
				continue
			}
			frameInput, err := in.escalate(req)
			if err != nil {
				return InterpreterAction{}, err
			}
			in.pendingEscalation = req.Kind
			return InterpreterAction{Kind: ActionNewFrame, Frame: frameInput}, nil
		}

		outcome := in.serviceLocal(host, req)
		in.bridge.Driver().SendOutcome(outcome)
	}
}

// ReturnResult delivers the result of an escalated sub-frame back to the
// worker, unblocking it to continue running (or finish).
func (in *Interpreter) ReturnResult(result FrameResult) error {
	var outcome EvmApiOutcome
	stylusResult := &StylusOutcome{Data: result.Output}
	if result.Success {
		stylusResult.Kind = StylusReturn
	} else {
		stylusResult.Kind = StylusRevert
	}

	switch in.pendingEscalation {
	case ReqCreate1, ReqCreate2:
		outcome = EvmApiOutcome{Kind: OutCreate, Result: stylusResult, Address: result.Address}
	default:
		outcome = EvmApiOutcome{Kind: OutCall, Result: stylusResult}
	}

	in.bridge.Driver().SendOutcome(outcome)
	return nil
}

func (in *Interpreter) terminalAction(req EvmApiRequest) InterpreterAction {
	status := ResultReturn
	var output []byte
	if req.Outcome != nil {
		output = req.Outcome.Data
		switch req.Outcome.Kind {
		case StylusReturn:
			status = ResultReturn
		case StylusRevert:
			status = ResultRevert
		case StylusOutOfInk:
			status = ResultOutOfGas
		default:
			status = ResultFatalExternalError
		}
	}
	return InterpreterAction{
		Kind: ActionReturn,
		Result: &InterpreterResult{
			Status: status,
			Output: output,
			Gas:    req.GasLeft,
		},
	}
}

// staticWriteBlock reports whether req is a write-effect CALL/CREATE-class
// request issued from a static frame: per spec.md §3, a value-carrying
// ContractCall or either Create variant must reply WriteProtection without
// ever reaching a new frame (DelegateCall/StaticCall never carry a real
// transfer, so they're never blocked here).
func (in *Interpreter) staticWriteBlock(req EvmApiRequest) (bool, EvmApiOutcome) {
	if !in.inputs.IsStatic {
		return false, EvmApiOutcome{}
	}
	switch req.Kind {
	case ReqContractCall:
		if req.Call != nil && req.Call.Value != nil && !req.Call.Value.IsZero() {
			return true, EvmApiOutcome{Kind: OutCall, Status: StatusWriteProtection}
		}
	case ReqCreate1, ReqCreate2:
		return true, EvmApiOutcome{Kind: OutCreate, Status: StatusWriteProtection}
	}
	return false, EvmApiOutcome{}
}

// escalate turns a CALL/CREATE-class EvmApiRequest into the FrameInput the
// driver needs to push a new frame, resolved per spec.md §9: is_static
// always propagates downward, OR-ed with StaticCall forcing it on for that
// sub-frame specifically.
func (in *Interpreter) escalate(req EvmApiRequest) (*FrameInput, error) {
	switch req.Kind {
	case ReqContractCall, ReqDelegateCall, ReqStaticCall:
		call := req.Call
		scheme := SchemeCall
		caller := in.inputs.Target
		value := CallValue{Kind: CallValueTransfer, Amount: call.Value}
		isStatic := in.inputs.IsStatic

		switch req.Kind {
		case ReqDelegateCall:
			scheme = SchemeDelegateCall
			caller = in.inputs.Caller
			value = CallValue{Kind: CallValueApparent, Amount: in.inputs.Value.Amount}
		case ReqStaticCall:
			scheme = SchemeStaticCall
			isStatic = true
			value = CallValue{Kind: CallValueNone, Amount: nil}
		}

		return &FrameInput{Call: &CallInputs{
			Caller:          caller,
			Target:          call.Address,
			BytecodeAddress: call.Address,
			Input:           call.Calldata,
			Value:           value,
			GasLimit:        call.GasLeft,
			IsStatic:        isStatic,
			Scheme:          scheme,
		}}, nil

	case ReqCreate1, ReqCreate2:
		create := req.Create
		ci := &CreateInputs{
			Caller:   in.inputs.Target,
			Value:    create.Value,
			GasLimit: create.GasLeft,
			Code:     create.Code,
			IsStatic: in.inputs.IsStatic,
		}
		if req.Kind == ReqCreate2 {
			salt := create.Salt
			ci.Salt = &salt
		}
		return &FrameInput{Create: ci}, nil

	default:
		return nil, ErrWorkerProtocol
	}
}

// buildEvmData snapshots the block/tx/frame context the worker needs at
// spawn time. module_hash uses the canonical keccak256(target_address)
// form (see DESIGN.md's resolved Open Question on this point).
func (in *Interpreter) buildEvmData(host Host) EvmData {
	return EvmData{
		ArbosVersion:    host.ArbosVersion(),
		ChainID:         host.ChainID(),
		Block:           host.Block(),
		Tx:              host.Tx(),
		ContractAddress: in.inputs.Target,
		ModuleHash:      crypto.Keccak256Hash(in.inputs.Target.Bytes()),
		MsgSender:       in.inputs.Caller,
		MsgValue:        in.inputs.Value.Amount,
	}
}

// serviceLocal answers every EvmApiRequest that doesn't need a new frame,
// directly against the host. Write-class requests from a static frame
// short-circuit to Status::WriteProtection without touching the host.
func (in *Interpreter) serviceLocal(host Host, req EvmApiRequest) EvmApiOutcome {
	addr := in.inputs.Target

	switch req.Kind {
	case ReqGetBytes32:
		return EvmApiOutcome{Kind: OutGetBytes32, Value: host.SLoad(addr, req.Slot)}

	case ReqGetTransientBytes32:
		return EvmApiOutcome{Kind: OutGetTransientBytes32, Value: host.TLoad(addr, req.Slot)}

	case ReqSetTrieSlots:
		if in.inputs.IsStatic {
			log.Debug("stylus: write protection on SetTrieSlots", "addr", addr)
			return EvmApiOutcome{Kind: OutSetTrieSlots, Status: StatusWriteProtection}
		}
		host.SStore(addr, req.Key, req.Value)
		return EvmApiOutcome{Kind: OutSetTrieSlots, Status: StatusSuccess}

	case ReqSetTransientBytes32:
		if in.inputs.IsStatic {
			log.Debug("stylus: write protection on SetTransientBytes32", "addr", addr)
			return EvmApiOutcome{Kind: OutSetTransientBytes32, Status: StatusWriteProtection}
		}
		host.TStore(addr, req.Key, req.Value)
		return EvmApiOutcome{Kind: OutSetTransientBytes32, Status: StatusSuccess}

	case ReqEmitLog:
		if in.inputs.IsStatic {
			log.Debug("stylus: write protection on EmitLog", "addr", addr)
			return EvmApiOutcome{Kind: OutEmitLog, Status: StatusWriteProtection}
		}
		host.Log(addr, req.Topics, req.Data)
		return EvmApiOutcome{Kind: OutEmitLog, Status: StatusSuccess}

	case ReqAccountBalance:
		balance, _ := host.Balance(req.Address)
		return EvmApiOutcome{Kind: OutAccountBalance, Balance: balance}

	case ReqAccountCode:
		code, ok := host.Code(req.Address)
		status := StatusSuccess
		if !ok {
			status = StatusFailure
		}
		return EvmApiOutcome{Kind: OutAccountCode, Code: code, Status: status}

	case ReqAccountCodeHash:
		hash, _ := host.CodeHash(req.Address)
		return EvmApiOutcome{Kind: OutAccountCodeHash, Hash: hash}

	case ReqAddPages:
		return EvmApiOutcome{Kind: OutAddPages, Status: StatusSuccess}

	case ReqCaptureHostIO:
		return EvmApiOutcome{Kind: OutCaptureHostIO}

	default:
		log.Warn("stylus: unhandled local request kind", "kind", req.Kind)
		return EvmApiOutcome{Kind: OutCaptureHostIO, Status: StatusFailure}
	}
}
