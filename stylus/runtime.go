package stylus

import "context"

// HostCallback is what a WasmRuntime's guest-side host import calls into
// for every EVM-API method. It is a thin adapter over RequestHandler.Request
// so the runtime glue (runtime_wazero.go) never needs to know about the
// bridge or the decode/encode machinery directly.
type HostCallback func(method RequestKind, payload []byte) (data []byte, reader []byte, gasCost uint64)

// NativeOutcomeKind is the status a compiled module's entrypoint resolved
// to, in the runtime's own vocabulary.
type NativeOutcomeKind uint8

const (
	NativeSuccess NativeOutcomeKind = iota
	NativeRevert
	NativeFailure
	NativeOutOfInk
	NativeOutOfStack
)

// NativeOutcome is the raw result of running a module's entrypoint to
// completion, before the worker maps it onto a StylusOutcome.
type NativeOutcome struct {
	Kind NativeOutcomeKind
	Data []byte
}

// NativeInstance is one instantiated, ready-to-run module.
type NativeInstance interface {
	// RunMain invokes the module's entrypoint with calldata, blocking
	// until it returns, traps, or exhausts its ink.
	RunMain(ctx context.Context, calldata []byte) (NativeOutcome, error)
	// InkLeft reports remaining ink after RunMain returns.
	InkLeft() uint64
	// Close releases the instance's runtime resources.
	Close(ctx context.Context) error
}

// WasmRuntime compiles and instantiates Stylus modules. runtime_wazero.go
// is the one concrete implementation this repo ships; the worker (C5)
// only ever depends on this interface, so a cgo-based runtime could be
// substituted without touching the frame subsystem.
type WasmRuntime interface {
	Instantiate(ctx context.Context, module []byte, cb HostCallback, evmData EvmData, inkLimit uint64) (NativeInstance, error)
}
