package legacy

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stylusvm/hybrid-core/stylus"
)

// opGas is the flat per-instruction charge this bounded interpreter uses in
// place of the real EVM gas schedule (no gas_table.go was retrieved for
// this teacher, so there is nothing to port faithfully here).
const opGas = 3

type pendingKind uint8

const (
	pendingNone pendingKind = iota
	pendingCall
	pendingCreate
)

// Frame is the classical bytecode interpreter (the dispatcher's fallback
// for code that doesn't carry the Stylus marker). It speaks exactly the
// protocol stylus.Frame requires: Run suspends at a CALL/CREATE family
// instruction by returning ActionNewFrame, and ReturnResult resumes it once
// the driver has run that sub-frame to completion.
type Frame struct {
	code   []byte
	inputs stylus.CallInputs
	depth  int

	gas        uint64
	pc         uint64
	stack      []uint256.Int
	memory     []byte
	returnData []byte

	pending          pendingKind
	pendingRetOffset uint64
	pendingRetSize   uint64
}

// NewFrame matches stylus.LegacyFrameFactory. bytecode is the account's
// full code (or, for a CREATE, the deployment code being executed).
func NewFrame(depth int, inputs stylus.CallInputs, bytecode []byte) (stylus.Frame, error) {
	return &Frame{
		code:   bytecode,
		inputs: inputs,
		depth:  depth,
		gas:    inputs.GasLimit,
	}, nil
}

func (f *Frame) Depth() int { return f.depth }

func (f *Frame) push(v uint256.Int) { f.stack = append(f.stack, v) }

func (f *Frame) pop() uint256.Int {
	n := len(f.stack) - 1
	v := f.stack[n]
	f.stack = f.stack[:n]
	return v
}

func (f *Frame) peek() *uint256.Int { return &f.stack[len(f.stack)-1] }

func (f *Frame) useGas(n uint64) bool {
	if f.gas < n {
		return false
	}
	f.gas -= n
	return true
}

func (f *Frame) growMemory(offset, size uint64) {
	need := offset + size
	if uint64(len(f.memory)) >= need {
		return
	}
	grown := make([]byte, need)
	copy(grown, f.memory)
	f.memory = grown
}

func (f *Frame) memSet(offset uint64, data []byte) {
	f.growMemory(offset, uint64(len(data)))
	copy(f.memory[offset:], data)
}

func (f *Frame) memGet(offset, size uint64) []byte {
	f.growMemory(offset, size)
	out := make([]byte, size)
	copy(out, f.memory[offset:offset+size])
	return out
}

func outOfGas() (stylus.InterpreterAction, error) {
	return stylus.InterpreterAction{
		Kind:   stylus.ActionReturn,
		Result: &stylus.InterpreterResult{Status: stylus.ResultOutOfGas},
	}, nil
}

// Run executes opcodes starting at pc until it either finishes (STOP,
// RETURN, REVERT, running off the end of the code, or an unrecoverable
// condition) or needs to escalate a CALL/CREATE-family instruction to the
// driver, in which case pc already points past that instruction so the
// next Run resumes correctly once ReturnResult has pushed its result.
func (f *Frame) Run(host stylus.Host) (stylus.InterpreterAction, error) {
	for {
		if f.pc >= uint64(len(f.code)) {
			return stylus.InterpreterAction{
				Kind:   stylus.ActionReturn,
				Result: &stylus.InterpreterResult{Status: stylus.ResultReturn, Gas: f.gas},
			}, nil
		}
		if !f.useGas(opGas) {
			return outOfGas()
		}

		op := OpCode(f.code[f.pc])
		switch {
		case op == STOP:
			return stylus.InterpreterAction{
				Kind:   stylus.ActionReturn,
				Result: &stylus.InterpreterResult{Status: stylus.ResultReturn, Gas: f.gas},
			}, nil

		case op == RETURN || op == REVERT:
			offset, size := f.pop(), f.pop()
			out := f.memGet(offset.Uint64(), size.Uint64())
			status := stylus.ResultReturn
			if op == REVERT {
				status = stylus.ResultRevert
			}
			return stylus.InterpreterAction{
				Kind:   stylus.ActionReturn,
				Result: &stylus.InterpreterResult{Status: status, Output: out, Gas: f.gas},
			}, nil

		case op.isPush():
			n := op.pushSize()
			var buf [32]byte
			end := f.pc + 1 + uint64(n)
			if end > uint64(len(f.code)) {
				end = uint64(len(f.code))
			}
			copy(buf[32-n:], f.code[f.pc+1:end])
			var v uint256.Int
			v.SetBytes(buf[:])
			f.push(v)
			f.pc += uint64(n)

		case op == PUSH0:
			f.push(uint256.Int{})

		case op.isDup():
			n := op.dupN()
			v := f.stack[len(f.stack)-n]
			f.push(v)

		case op.isSwap():
			n := op.swapN()
			top := len(f.stack) - 1
			f.stack[top], f.stack[top-n] = f.stack[top-n], f.stack[top]

		case op == POP:
			f.pop()

		case op == ADD:
			a, b := f.pop(), f.pop()
			var r uint256.Int
			r.Add(&a, &b)
			f.push(r)

		case op == MUL:
			a, b := f.pop(), f.pop()
			var r uint256.Int
			r.Mul(&a, &b)
			f.push(r)

		case op == SUB:
			a, b := f.pop(), f.pop()
			var r uint256.Int
			r.Sub(&a, &b)
			f.push(r)

		case op == DIV:
			a, b := f.pop(), f.pop()
			var r uint256.Int
			if b.IsZero() {
				f.push(r)
			} else {
				r.Div(&a, &b)
				f.push(r)
			}

		case op == MOD:
			a, b := f.pop(), f.pop()
			var r uint256.Int
			if b.IsZero() {
				f.push(r)
			} else {
				r.Mod(&a, &b)
				f.push(r)
			}

		case op == LT:
			a, b := f.pop(), f.pop()
			f.push(boolToWord(a.Lt(&b)))

		case op == GT:
			a, b := f.pop(), f.pop()
			f.push(boolToWord(a.Gt(&b)))

		case op == EQ:
			a, b := f.pop(), f.pop()
			f.push(boolToWord(a.Eq(&b)))

		case op == ISZERO:
			a := f.pop()
			f.push(boolToWord(a.IsZero()))

		case op == AND:
			a, b := f.pop(), f.pop()
			var r uint256.Int
			r.And(&a, &b)
			f.push(r)

		case op == OR:
			a, b := f.pop(), f.pop()
			var r uint256.Int
			r.Or(&a, &b)
			f.push(r)

		case op == XOR:
			a, b := f.pop(), f.pop()
			var r uint256.Int
			r.Xor(&a, &b)
			f.push(r)

		case op == NOT:
			a := f.pop()
			var r uint256.Int
			r.Not(&a)
			f.push(r)

		case op == SHL:
			shift, val := f.pop(), f.pop()
			var r uint256.Int
			if shift.IsUint64() && shift.Uint64() < 256 {
				r.Lsh(&val, uint(shift.Uint64()))
			}
			f.push(r)

		case op == SHR:
			shift, val := f.pop(), f.pop()
			var r uint256.Int
			if shift.IsUint64() && shift.Uint64() < 256 {
				r.Rsh(&val, uint(shift.Uint64()))
			}
			f.push(r)

		case op == BYTE:
			i, x := f.pop(), f.pop()
			var r uint256.Int
			if i.IsUint64() && i.Uint64() < 32 {
				b := x.Bytes32()
				r.SetUint64(uint64(b[i.Uint64()]))
			}
			f.push(r)

		case op == SHA3:
			offset, size := f.pop(), f.pop()
			data := f.memGet(offset.Uint64(), size.Uint64())
			h := crypto.Keccak256Hash(data)
			var r uint256.Int
			r.SetBytes(h.Bytes())
			f.push(r)

		case op == ADDRESS:
			var r uint256.Int
			r.SetBytes(f.inputs.Target.Bytes())
			f.push(r)

		case op == CALLER:
			var r uint256.Int
			r.SetBytes(f.inputs.Caller.Bytes())
			f.push(r)

		case op == CALLVALUE:
			var r uint256.Int
			if f.inputs.Value.Amount != nil {
				r = *f.inputs.Value.Amount
			}
			f.push(r)

		case op == CALLDATASIZE:
			var r uint256.Int
			r.SetUint64(uint64(len(f.inputs.Input)))
			f.push(r)

		case op == CALLDATALOAD:
			offset := f.pop()
			var buf [32]byte
			off := offset.Uint64()
			if off < uint64(len(f.inputs.Input)) {
				copy(buf[:], f.inputs.Input[off:])
			}
			var r uint256.Int
			r.SetBytes(buf[:])
			f.push(r)

		case op == CALLDATACOPY:
			destOffset, offset, size := f.pop(), f.pop(), f.pop()
			data := sliceOrZero(f.inputs.Input, offset.Uint64(), size.Uint64())
			f.memSet(destOffset.Uint64(), data)

		case op == CODESIZE:
			var r uint256.Int
			r.SetUint64(uint64(len(f.code)))
			f.push(r)

		case op == CODECOPY:
			destOffset, offset, size := f.pop(), f.pop(), f.pop()
			data := sliceOrZero(f.code, offset.Uint64(), size.Uint64())
			f.memSet(destOffset.Uint64(), data)

		case op == RETURNDATASIZE:
			var r uint256.Int
			r.SetUint64(uint64(len(f.returnData)))
			f.push(r)

		case op == RETURNDATACOPY:
			destOffset, offset, size := f.pop(), f.pop(), f.pop()
			data := sliceOrZero(f.returnData, offset.Uint64(), size.Uint64())
			f.memSet(destOffset.Uint64(), data)

		case op == EXTCODESIZE:
			addrWord := f.pop()
			code, _ := host.Code(wordToAddress(addrWord))
			var r uint256.Int
			r.SetUint64(uint64(len(code)))
			f.push(r)

		case op == EXTCODEHASH:
			addrWord := f.pop()
			hash, ok := host.CodeHash(wordToAddress(addrWord))
			var r uint256.Int
			if ok {
				r.SetBytes(hash.Bytes())
			}
			f.push(r)

		case op == BALANCE:
			addrWord := f.pop()
			balance, _ := host.Balance(wordToAddress(addrWord))
			var r uint256.Int
			if balance != nil {
				r = *balance
			}
			f.push(r)

		case op == MLOAD:
			offset := f.pop()
			var r uint256.Int
			r.SetBytes(f.memGet(offset.Uint64(), 32))
			f.push(r)

		case op == MSTORE:
			offset, val := f.pop(), f.pop()
			b := val.Bytes32()
			f.memSet(offset.Uint64(), b[:])

		case op == MSTORE8:
			offset, val := f.pop(), f.pop()
			b := val.Bytes32()
			f.memSet(offset.Uint64(), b[31:])

		case op == MSIZE:
			var r uint256.Int
			r.SetUint64(uint64(len(f.memory)))
			f.push(r)

		case op == SLOAD:
			slot := f.pop()
			key := common.Hash(slot.Bytes32())
			v := host.SLoad(f.inputs.Target, key)
			var r uint256.Int
			r.SetBytes(v.Bytes())
			f.push(r)

		case op == SSTORE:
			if f.inputs.IsStatic {
				return stylus.InterpreterAction{
					Kind:   stylus.ActionReturn,
					Result: &stylus.InterpreterResult{Status: stylus.ResultFatalExternalError, Gas: f.gas},
				}, nil
			}
			slot, val := f.pop(), f.pop()
			key := common.Hash(slot.Bytes32())
			value := common.Hash(val.Bytes32())
			host.SStore(f.inputs.Target, key, value)

		case op == TLOAD:
			slot := f.pop()
			key := common.Hash(slot.Bytes32())
			v := host.TLoad(f.inputs.Target, key)
			var r uint256.Int
			r.SetBytes(v.Bytes())
			f.push(r)

		case op == TSTORE:
			slot, val := f.pop(), f.pop()
			key := common.Hash(slot.Bytes32())
			value := common.Hash(val.Bytes32())
			host.TStore(f.inputs.Target, key, value)

		case op == JUMPDEST:
			// no-op, marks a valid jump target

		case op == JUMP:
			dest := f.pop()
			f.pc = dest.Uint64()
			continue

		case op == JUMPI:
			dest, cond := f.pop(), f.pop()
			if !cond.IsZero() {
				f.pc = dest.Uint64()
				continue
			}

		case op == PC:
			var r uint256.Int
			r.SetUint64(f.pc)
			f.push(r)

		case op == GAS:
			var r uint256.Int
			r.SetUint64(f.gas)
			f.push(r)

		case op.isLog():
			offset, size := f.pop(), f.pop()
			topics := make([]common.Hash, op.logTopics())
			for i := range topics {
				w := f.pop()
				topics[i] = common.Hash(w.Bytes32())
			}
			if f.inputs.IsStatic {
				return stylus.InterpreterAction{
					Kind:   stylus.ActionReturn,
					Result: &stylus.InterpreterResult{Status: stylus.ResultFatalExternalError, Gas: f.gas},
				}, nil
			}
			host.Log(f.inputs.Target, topics, f.memGet(offset.Uint64(), size.Uint64()))

		case op == CALL || op == CALLCODE || op == DELEGATECALL || op == STATICCALL:
			f.pc++
			return f.escalateCall(op)

		case op == CREATE || op == CREATE2:
			f.pc++
			return f.escalateCreate(op)

		default:
			return stylus.InterpreterAction{
				Kind:   stylus.ActionReturn,
				Result: &stylus.InterpreterResult{Status: stylus.ResultFatalExternalError, Gas: f.gas},
			}, nil
		}
		f.pc++
	}
}

// escalateCall pops a CALL-family instruction's arguments and turns them
// into a FrameInput for the driver to push as a sub-frame.
func (f *Frame) escalateCall(op OpCode) (stylus.InterpreterAction, error) {
	var gasArg, addrArg, valueArg, argsOffset, argsSize, retOffset, retSize uint256.Int
	gasArg = f.pop()
	addrArg = f.pop()
	if op == CALL || op == CALLCODE {
		valueArg = f.pop()
	}
	argsOffset, argsSize, retOffset, retSize = f.pop(), f.pop(), f.pop(), f.pop()

	calldata := f.memGet(argsOffset.Uint64(), argsSize.Uint64())
	target := wordToAddress(addrArg)

	scheme := stylus.SchemeCall
	caller := f.inputs.Target
	value := stylus.CallValue{Kind: stylus.CallValueTransfer, Amount: &valueArg}
	isStatic := f.inputs.IsStatic

	switch op {
	case CALLCODE:
		scheme = stylus.SchemeCallCode
	case DELEGATECALL:
		scheme = stylus.SchemeDelegateCall
		caller = f.inputs.Caller
		value = stylus.CallValue{Kind: stylus.CallValueApparent, Amount: f.inputs.Value.Amount}
	case STATICCALL:
		scheme = stylus.SchemeStaticCall
		isStatic = true
		value = stylus.CallValue{Kind: stylus.CallValueNone}
	}

	f.pending = pendingCall
	f.pendingRetOffset = retOffset.Uint64()
	f.pendingRetSize = retSize.Uint64()

	gasLimit := f.gas
	if gasArg.IsUint64() && gasArg.Uint64() < gasLimit {
		gasLimit = gasArg.Uint64()
	}

	return stylus.InterpreterAction{
		Kind: stylus.ActionNewFrame,
		Frame: &stylus.FrameInput{Call: &stylus.CallInputs{
			Caller:          caller,
			Target:          target,
			BytecodeAddress: target,
			Input:           calldata,
			Value:           value,
			GasLimit:        gasLimit,
			IsStatic:        isStatic,
			Scheme:          scheme,
		}},
	}, nil
}

func (f *Frame) escalateCreate(op OpCode) (stylus.InterpreterAction, error) {
	value, offset, size := f.pop(), f.pop(), f.pop()
	code := f.memGet(offset.Uint64(), size.Uint64())

	ci := &stylus.CreateInputs{
		Caller:   f.inputs.Target,
		Value:    &value,
		GasLimit: f.gas,
		Code:     code,
		IsStatic: f.inputs.IsStatic,
	}
	if op == CREATE2 {
		salt := f.pop()
		h := common.Hash(salt.Bytes32())
		ci.Salt = &h
	}

	f.pending = pendingCreate
	return stylus.InterpreterAction{Kind: stylus.ActionNewFrame, Frame: &stylus.FrameInput{Create: ci}}, nil
}

// ReturnResult consumes the result of the sub-frame this Frame escalated,
// writing it back into stack/memory the way the real CALL/CREATE opcodes
// do, without resuming execution itself (the driver calls Run again).
func (f *Frame) ReturnResult(result stylus.FrameResult) error {
	f.returnData = result.Output

	switch f.pending {
	case pendingCall:
		if result.Success {
			f.memSet(f.pendingRetOffset, truncate(result.Output, f.pendingRetSize))
			f.push(boolToWord(true))
		} else {
			f.push(boolToWord(false))
		}
	case pendingCreate:
		if result.Success {
			var r uint256.Int
			r.SetBytes(result.Address.Bytes())
			f.push(r)
		} else {
			f.push(uint256.Int{})
		}
	}
	f.pending = pendingNone
	return nil
}

func boolToWord(b bool) uint256.Int {
	var r uint256.Int
	if b {
		r.SetOne()
	}
	return r
}

func wordToAddress(w uint256.Int) common.Address {
	b := w.Bytes20()
	return common.Address(b)
}

func sliceOrZero(src []byte, offset, size uint64) []byte {
	out := make([]byte, size)
	if offset >= uint64(len(src)) {
		return out
	}
	end := offset + size
	if end > uint64(len(src)) {
		end = uint64(len(src))
	}
	copy(out, src[offset:end])
	return out
}

func truncate(data []byte, size uint64) []byte {
	if uint64(len(data)) > size {
		return data[:size]
	}
	return data
}
