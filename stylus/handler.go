package stylus

// RequestHandler is the worker-side object the WASM host-import glue calls
// into for every EVM-API method a Stylus program invokes. It decodes the
// wire payload, ships the decoded request across the bridge to the driver,
// blocks for the reply, and re-encodes it — the same decode/send/block/
// encode shape as the Rust requestor's RequestHandler impl.
type RequestHandler struct {
	worker WorkerEnd
}

// NewRequestHandler binds a handler to a bridge's worker-facing end.
func NewRequestHandler(worker WorkerEnd) *RequestHandler {
	return &RequestHandler{worker: worker}
}

// Request services one EVM-API call. method/payload come straight from the
// WASM guest's host-import call; the returned (data, reader, gasCost)
// triple is exactly what the runtime glue writes back into guest memory.
func (h *RequestHandler) Request(method RequestKind, payload []byte) (data []byte, reader []byte, gasCost uint64, err error) {
	req, err := DecodeRequest(method, payload)
	if err != nil {
		return nil, nil, 0, err
	}

	h.worker.SendRequest(req)
	outcome := h.worker.RecvOutcome()

	data, reader, gasCost = EncodeOutcome(outcome)
	return data, reader, gasCost, nil
}
