// Copyright 2017 The go-ethereum Authors
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

import "errors"

// List of evm execution errors, carried over from the teacher's
// core/vm/evm.go almost unchanged; Stylus-specific sentinels are appended
// below rather than interleaved, so the classical table stays recognizable.
var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrCodeStoreOutOfGas        = errors.New("contract creation code storage out of gas")
	ErrDepth                    = errors.New("max call depth exceeded")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrExecutionReverted        = errors.New("execution reverted")
	ErrMaxCodeSizeExceeded      = errors.New("max code size exceeded")
	ErrInvalidCode              = errors.New("invalid code: must not begin with 0xef")
	ErrNonceUintOverflow        = errors.New("nonce uint64 overflow")
)

// Stylus-specific additions: failures that originate in the frame
// dispatcher or the escalation path rather than in classical bytecode.
var (
	// ErrNoSuchAccount names a read that targets an account the StateDB
	// has no record of. The host adapter reports that case with a false
	// ok result rather than this error; no code path here returns it.
	ErrNoSuchAccount = errors.New("vm: no such account")

	// ErrFrameStackCorrupt is returned by runFrames when a frame yields an
	// action kind other than NewFrame or Return, or if the frame stack
	// empties without a root result; it indicates a driver bug if ever hit.
	ErrFrameStackCorrupt = errors.New("vm: frame stack underflow")
)
