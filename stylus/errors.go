package stylus

import "errors"

// Sentinel errors for the Stylus frame subsystem, in the same style as
// core/vm's ErrDepth/ErrInsufficientBalance table: plain package-level
// vars, wrapped with fmt.Errorf("...: %w", err) where context helps.
var (
	// ErrShortRead is returned by the codec when a wire payload is too
	// short for the field being decoded.
	ErrShortRead = errors.New("stylus: short read decoding request payload")

	// ErrWorkerProtocol means the worker sent something the handler or
	// wrapper did not expect: an unknown method, a reply of the wrong
	// shape, or a message after the terminal Return. This is always a
	// programming error in the worker or the runtime glue, never a
	// consequence of program input.
	ErrWorkerProtocol = errors.New("stylus: worker protocol violation")

	// ErrWorkerTimeout is returned when the driver's bridge receive
	// exceeds the bounded wait for the worker's next request; it most
	// likely means the worker goroutine deadlocked or panicked silently.
	ErrWorkerTimeout = errors.New("stylus: timed out waiting for worker request")

	// ErrOutOfInk mirrors the worker-side OutOfInk outcome at the Go
	// error level, for callers that need an error rather than a status.
	ErrOutOfInk = errors.New("stylus: program ran out of ink")

	// ErrOutOfStack mirrors OutOfStack: the WASM runtime's own call
	// stack (not the host's frame stack) overflowed.
	ErrOutOfStack = errors.New("stylus: program exceeded its stack limit")

	// ErrDepth is returned by MakeCallFrame when the host's configured
	// max call depth would be exceeded by constructing this frame.
	ErrDepth = errors.New("stylus: max call depth exceeded")

	// ErrWriteProtection is the Go-error form of a static frame's rejected
	// write-class request. The worker itself is told through the
	// StatusWriteProtection reply byte; no code path here returns this error.
	ErrWriteProtection = errors.New("stylus: write protection")
)
