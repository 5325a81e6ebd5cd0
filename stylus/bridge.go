package stylus

import "time"

// requestTimeout bounds how long the driver will wait for the worker's
// next request before treating it as a protocol failure. The worker itself
// never times out waiting for an outcome: the driver always replies.
const requestTimeout = 10 * time.Second

// Bridge is a rendezvous (zero-capacity) channel pair connecting one Stylus
// worker goroutine to the driver that owns its frame. Capacity zero means
// a send only completes once the other side is ready to receive, which is
// exactly the ping-pong discipline the worker/driver protocol depends on:
// at any instant, at most one side is running.
type Bridge struct {
	req chan EvmApiRequest
	out chan EvmApiOutcome
}

// NewBridge allocates a fresh, unstarted bridge for one frame.
func NewBridge() *Bridge {
	return &Bridge{
		req: make(chan EvmApiRequest),
		out: make(chan EvmApiOutcome),
	}
}

// WorkerEnd is the view of a Bridge used by the goroutine running the WASM
// program (via the handler, C3).
type WorkerEnd struct{ b *Bridge }

// Worker returns this bridge's worker-facing view.
func (b *Bridge) Worker() WorkerEnd { return WorkerEnd{b} }

// SendRequest blocks until the driver is ready to receive it.
func (w WorkerEnd) SendRequest(r EvmApiRequest) { w.b.req <- r }

// RecvOutcome blocks until the driver replies.
func (w WorkerEnd) RecvOutcome() EvmApiOutcome { return <-w.b.out }

// DriverEnd is the view of a Bridge used by the wrapper (C6) driving the
// frame from the host side.
type DriverEnd struct{ b *Bridge }

// Driver returns this bridge's driver-facing view.
func (b *Bridge) Driver() DriverEnd { return DriverEnd{b} }

// RecvRequest blocks indefinitely for the worker's next request.
func (d DriverEnd) RecvRequest() EvmApiRequest { return <-d.b.req }

// RecvRequestTimeout waits up to timeout for the worker's next request,
// reporting false if none arrived in time.
func (d DriverEnd) RecvRequestTimeout(timeout time.Duration) (EvmApiRequest, bool) {
	select {
	case r := <-d.b.req:
		return r, true
	case <-time.After(timeout):
		return EvmApiRequest{}, false
	}
}

// SendOutcome delivers the driver's reply, blocking until the worker is
// ready to receive it.
func (d DriverEnd) SendOutcome(o EvmApiOutcome) { d.b.out <- o }
