package stylus

import (
	"context"

	"github.com/ethereum/go-ethereum/log"
)

// SpawnWorker starts one goroutine that instantiates module against
// runtime, runs its entrypoint with calldata, and reports the result back
// to the driver over bridge's worker end — mirroring the reference
// implementation's exec_wasm, which spawns an OS thread per Stylus frame
// and posts its terminal outcome as an EvmApiRequest::Return once done.
//
// The goroutine owns bridge.Worker() for its entire lifetime; the caller
// (the wrapper, C6) must not touch it concurrently.
func SpawnWorker(ctx context.Context, module []byte, calldata []byte, cfg StylusConfig, evmData EvmData, gasLimit uint64, bridge *Bridge, runtime WasmRuntime) {
	worker := bridge.Worker()
	handler := NewRequestHandler(worker)
	cb := func(method RequestKind, payload []byte) ([]byte, []byte, uint64) {
		data, reader, gasCost, err := handler.Request(method, payload)
		if err != nil {
			log.Warn("stylus worker request failed", "method", method, "err", err)
			return StatusFailure.Encode(), nil, gasCost
		}
		return data, reader, gasCost
	}

	go func() {
		inkLimit := cfg.Pricing.GasToInk(gasLimit)

		instance, err := runtime.Instantiate(ctx, module, cb, evmData, inkLimit)
		if err != nil {
			log.Warn("stylus worker failed to instantiate module", "err", err)
			worker.SendRequest(EvmApiRequest{
				Kind:    ReqReturn,
				Outcome: &StylusOutcome{Kind: StylusFailure},
			})
			return
		}
		defer func() {
			if cerr := instance.Close(ctx); cerr != nil {
				log.Debug("stylus worker instance close failed", "err", cerr)
			}
		}()

		native, err := instance.RunMain(ctx, calldata)
		outcome := mapNativeOutcome(native, err)

		// Stack overflow forces remaining ink to 0 regardless of what the
		// instance reports, per spec.md §4.4 step 3-4: the native stack
		// blew before the module could account for its own ink spend.
		var gasLeft uint64
		if outcome.Kind != StylusOutOfStack {
			gasLeft = cfg.Pricing.InkToGas(instance.InkLeft())
		}
		log.Debug("stylus worker finished", "kind", outcome.Kind, "gasLeft", gasLeft)

		worker.SendRequest(EvmApiRequest{
			Kind:    ReqReturn,
			Outcome: &outcome,
			GasLeft: gasLeft,
		})
	}()
}

func mapNativeOutcome(native NativeOutcome, err error) StylusOutcome {
	if err != nil {
		return StylusOutcome{Kind: StylusFailure, Data: []byte(err.Error())}
	}
	switch native.Kind {
	case NativeSuccess:
		return StylusOutcome{Kind: StylusReturn, Data: native.Data}
	case NativeRevert:
		return StylusOutcome{Kind: StylusRevert, Data: native.Data}
	case NativeOutOfInk:
		return StylusOutcome{Kind: StylusOutOfInk}
	case NativeOutOfStack:
		return StylusOutcome{Kind: StylusOutOfStack}
	default:
		return StylusOutcome{Kind: StylusFailure, Data: native.Data}
	}
}
