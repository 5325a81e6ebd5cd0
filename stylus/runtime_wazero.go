package stylus

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// WazeroRuntime is the pure-Go WasmRuntime backing this repo. A module
// compiled for it is expected to import one host module, "vm_hooks", and
// export:
//
//	stylus_entrypoint(argsPtr, argsLen uint32) uint32   — runs to completion,
//	                                                       returns a NativeOutcomeKind
//	memory                                              — the guest's linear
//	                                                       memory, for the host
//	                                                       side to read/write
//
// and imports from "vm_hooks":
//
//	request(method uint32, payloadPtr, payloadLen, outPtr, outCap uint32) (writtenLen uint32, gasCost uint64)
//	request_reader(outPtr, outCap uint32) uint32
//	evm_data(outPtr, outCap uint32) uint32
//	stylus_write_result(ptr, len uint32)   — called by the guest exactly once
//	                                         before returning, to hand back
//	                                         its output bytes
//	stylus_report_ink(remaining uint64)
//
// request carries the primary reply bytes (the EncodeOutcome "data" half);
// request_reader, called only when the guest needs it, carries the
// secondary "reader" half (account code, a sub-call's return data, ...)
// left over from the most recent request call. evm_data hands back the
// block/tx/frame snapshot built once at spawn time.
//
// This ABI is this repo's own — the reference's actual wasmer-go-based ABI
// is a far larger cgo surface (native_api.go's GoApiStatus/Bytes32/Bytes20
// wrappers) that only makes sense with a matching compiled guest toolchain.
// wazero gives a pure-Go runtime with none of that; the small surface
// above is the minimal shape that exercises C2/C3 end to end.
type WazeroRuntime struct {
	runtime wazero.Runtime
}

// NewWazeroRuntime constructs a runtime with a fresh wazero.Runtime.
func NewWazeroRuntime(ctx context.Context) *WazeroRuntime {
	return &WazeroRuntime{runtime: wazero.NewRuntime(ctx)}
}

// Close tears down the underlying wazero runtime and every module compiled
// against it.
func (r *WazeroRuntime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

type wazeroInstance struct {
	module  api.Module
	cb      HostCallback
	evmData []byte
	pending []byte // the last request's "reader" half, awaiting request_reader
	inkLeft uint64
	result  []byte
	mu      sync.Mutex
}

// Instantiate compiles module fresh and links it against a host module
// exposing cb through the request/request_reader pair above, plus a
// read-only "evm_data" accessor for the block/tx/frame snapshot.
func (r *WazeroRuntime) Instantiate(ctx context.Context, module []byte, cb HostCallback, evmData EvmData, inkLimit uint64) (NativeInstance, error) {
	inst := &wazeroInstance{cb: cb, evmData: evmData.Encode(), inkLeft: inkLimit}

	_, err := r.runtime.NewHostModuleBuilder("vm_hooks").
		NewFunctionBuilder().
		WithFunc(inst.hostRequest).
		Export("request").
		NewFunctionBuilder().
		WithFunc(inst.hostRequestReader).
		Export("request_reader").
		NewFunctionBuilder().
		WithFunc(inst.hostWriteResult).
		Export("stylus_write_result").
		NewFunctionBuilder().
		WithFunc(inst.hostReportInk).
		Export("stylus_report_ink").
		NewFunctionBuilder().
		WithFunc(inst.hostEvmData).
		Export("evm_data").
		Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("stylus: linking host module: %w", err)
	}

	compiled, err := r.runtime.CompileModule(ctx, module)
	if err != nil {
		return nil, fmt.Errorf("stylus: compiling module: %w", err)
	}

	mod, err := r.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		return nil, fmt.Errorf("stylus: instantiating module: %w", err)
	}
	inst.module = mod
	return inst, nil
}

// hostRequest is the "vm_hooks.request" host import: decode a payload from
// guest memory, run it through the bridge, and write the primary reply
// back into guest memory.
func (inst *wazeroInstance) hostRequest(ctx context.Context, mod api.Module, method, payloadPtr, payloadLen, outPtr, outCap uint32) (uint32, uint64) {
	payload, ok := mod.Memory().Read(payloadPtr, payloadLen)
	if !ok {
		return 0, 0
	}
	data, reader, gasCost := inst.cb(RequestKind(method), payload)

	inst.mu.Lock()
	inst.pending = reader
	inst.mu.Unlock()

	n := uint32(len(data))
	if n > outCap {
		n = outCap
	}
	if n > 0 {
		mod.Memory().Write(outPtr, data[:n])
	}
	return n, gasCost
}

// hostRequestReader is the "vm_hooks.request_reader" host import: flushes
// whatever secondary reply bytes the last request left pending.
func (inst *wazeroInstance) hostRequestReader(ctx context.Context, mod api.Module, outPtr, outCap uint32) uint32 {
	inst.mu.Lock()
	reader := inst.pending
	inst.pending = nil
	inst.mu.Unlock()

	n := uint32(len(reader))
	if n > outCap {
		n = outCap
	}
	if n > 0 {
		mod.Memory().Write(outPtr, reader[:n])
	}
	return n
}

// hostWriteResult is the "vm_hooks.stylus_write_result" host import the
// guest calls exactly once with its final output before returning.
func (inst *wazeroInstance) hostWriteResult(ctx context.Context, mod api.Module, ptr, length uint32) {
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	inst.mu.Lock()
	inst.result = buf
	inst.mu.Unlock()
}

// hostEvmData is "vm_hooks.evm_data": writes the encoded EvmData snapshot
// into guest memory, returning its length.
func (inst *wazeroInstance) hostEvmData(ctx context.Context, mod api.Module, outPtr, outCap uint32) uint32 {
	n := uint32(len(inst.evmData))
	if n > outCap {
		n = outCap
	}
	if n > 0 {
		mod.Memory().Write(outPtr, inst.evmData[:n])
	}
	return n
}

// hostReportInk is "vm_hooks.stylus_report_ink", an optional host import a
// guest calls as it meters its own execution, keeping InkLeft accurate
// without the host having to inspect the guest's internal counters.
func (inst *wazeroInstance) hostReportInk(ctx context.Context, mod api.Module, remaining uint64) {
	inst.mu.Lock()
	inst.inkLeft = remaining
	inst.mu.Unlock()
}

func (inst *wazeroInstance) RunMain(ctx context.Context, calldata []byte) (NativeOutcome, error) {
	entry := inst.module.ExportedFunction("stylus_entrypoint")
	if entry == nil {
		return NativeOutcome{}, fmt.Errorf("stylus: module does not export stylus_entrypoint")
	}

	mem := inst.module.Memory()
	argsPtr, argsLen := uint32(0), uint32(len(calldata))
	if argsLen > 0 {
		if !mem.Write(argsPtr, calldata) {
			return NativeOutcome{}, fmt.Errorf("stylus: guest memory too small for calldata")
		}
	}

	results, err := entry.Call(ctx, uint64(argsPtr), uint64(argsLen))
	if err != nil {
		return NativeOutcome{}, err
	}
	if len(results) != 1 {
		return NativeOutcome{}, fmt.Errorf("%w: stylus_entrypoint returned %d values", ErrWorkerProtocol, len(results))
	}

	inst.mu.Lock()
	data := inst.result
	inst.mu.Unlock()

	return NativeOutcome{Kind: NativeOutcomeKind(results[0]), Data: data}, nil
}

func (inst *wazeroInstance) InkLeft() uint64 {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.inkLeft
}

func (inst *wazeroInstance) Close(ctx context.Context) error {
	if inst.module == nil {
		return nil
	}
	return inst.module.Close(ctx)
}
