package stylus

// StylusFrame is the driver-facing Stylus frame (C8): a thin wrapper around
// an Interpreter (C6) that additionally tracks its position in the host's
// call stack. The reference implementation splits these into two layers
// (StylusInterpreter driving the worker, StylusFrame driving the
// interpreter on the host's behalf) because EthFrame needs somewhere to
// hang depth bookkeeping; the split is kept here for the same reason even
// though, functionally, Run/ReturnResult simply pass through.
type StylusFrame struct {
	*Interpreter
	depth int
}

// MakeCallFrame constructs the Stylus frame for one CALL into a module
// whose bytecode carries the Stylus marker, once the dispatcher (C7) has
// already stripped it. Returns ErrDepth if depth exceeds cfg.MaxDepth.
func MakeCallFrame(depth int, inputs CallInputs, strippedBytecode []byte, cfg StylusConfig, runtime WasmRuntime) (Frame, error) {
	if uint32(depth) > cfg.MaxDepth {
		return nil, ErrDepth
	}
	return &StylusFrame{
		Interpreter: NewInterpreter(strippedBytecode, inputs, inputs.GasLimit, cfg, runtime),
		depth:       depth,
	}, nil
}

// Depth reports this frame's position in the host's call stack.
func (f *StylusFrame) Depth() int {
	return f.depth
}
