package vm

import (
	"github.com/stylusvm/hybrid-core/core/vm/legacy"
	"github.com/stylusvm/hybrid-core/stylus"
)

// makeFrame wires the EVM's own Stylus configuration and legacy-interpreter
// factory into the frame dispatcher (stylus.MakeFrame), so runFrames never
// has to know whether bytecode carries the Stylus marker or not. The legacy
// factory is a plain function value (legacy.NewFrame): it depends only on
// stylus.Host, never on *EVM, so core/vm/legacy cannot import core/vm back.
func (evm *EVM) makeFrame(depth int, inputs stylus.CallInputs, bytecode []byte) (stylus.Frame, error) {
	return stylus.MakeFrame(depth, inputs, bytecode, evm.stylusConfig, evm.wasmRuntime, legacy.NewFrame)
}
