package stylus

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Cursor reads fixed-width big-endian fields off the front of a byte slice,
// advancing as it goes. It is the Go counterpart of the Rust side's
// drain(0..n) take_* helpers: every Take* panics-free-errors on underrun
// rather than panicking, since payload bytes cross a WASM/host boundary.
type Cursor struct {
	buf []byte
}

// NewCursor wraps payload for sequential decoding.
func NewCursor(payload []byte) *Cursor {
	return &Cursor{buf: payload}
}

func (c *Cursor) take(n int) ([]byte, error) {
	if len(c.buf) < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortRead, n, len(c.buf))
	}
	out := c.buf[:n]
	c.buf = c.buf[n:]
	return out, nil
}

// TakeU16 decodes a big-endian uint16.
func (c *Cursor) TakeU16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// TakeU32 decodes a big-endian uint32.
func (c *Cursor) TakeU32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// TakeU64 decodes a big-endian uint64.
func (c *Cursor) TakeU64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// TakeAddress decodes a 20-byte address.
func (c *Cursor) TakeAddress() (common.Address, error) {
	b, err := c.take(common.AddressLength)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(b), nil
}

// TakeBytes32 decodes a 32-byte word as a Hash.
func (c *Cursor) TakeBytes32() (common.Hash, error) {
	b, err := c.take(common.HashLength)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(b), nil
}

// TakeU256 decodes a 32-byte big-endian word as a uint256.
func (c *Cursor) TakeU256() (*uint256.Int, error) {
	b, err := c.take(32)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(b), nil
}

// TakeRest consumes and returns everything remaining in the cursor.
func (c *Cursor) TakeRest() []byte {
	rest := c.buf
	c.buf = nil
	return rest
}

// Len reports how many bytes remain undecoded.
func (c *Cursor) Len() int {
	return len(c.buf)
}

// DecodeRequest parses a wire payload for the given method into an
// EvmApiRequest, per the per-method field layout the handler table fixes.
func DecodeRequest(method RequestKind, payload []byte) (EvmApiRequest, error) {
	c := NewCursor(payload)
	req := EvmApiRequest{Kind: method}

	switch method {
	case ReqGetBytes32, ReqGetTransientBytes32:
		slot, err := c.TakeBytes32()
		if err != nil {
			return req, err
		}
		req.Slot = slot

	case ReqSetTrieSlots:
		gasLeft, err := c.TakeU64()
		if err != nil {
			return req, err
		}
		key, err := c.TakeBytes32()
		if err != nil {
			return req, err
		}
		value, err := c.TakeBytes32()
		if err != nil {
			return req, err
		}
		req.GasLeft, req.Key, req.Value = gasLeft, key, value
		c.TakeRest() // trailing bytes carried by the wire format, unused here

	case ReqSetTransientBytes32:
		key, err := c.TakeBytes32()
		if err != nil {
			return req, err
		}
		value, err := c.TakeBytes32()
		if err != nil {
			return req, err
		}
		req.Key, req.Value = key, value

	case ReqContractCall, ReqDelegateCall, ReqStaticCall:
		addr, err := c.TakeAddress()
		if err != nil {
			return req, err
		}
		value, err := c.TakeU256()
		if err != nil {
			return req, err
		}
		if method != ReqContractCall {
			value = new(uint256.Int)
		}
		if _, err := c.TakeU64(); err != nil { // reserved
			return req, err
		}
		gasLeft, err := c.TakeU64()
		if err != nil {
			return req, err
		}
		callType := CallTypeCall
		if method == ReqDelegateCall {
			callType = CallTypeDelegate
		} else if method == ReqStaticCall {
			callType = CallTypeStatic
		}
		req.Call = &CallArgs{
			Type:     callType,
			Address:  addr,
			Value:    value,
			GasLeft:  gasLeft,
			Calldata: c.TakeRest(),
		}

	case ReqCreate1, ReqCreate2:
		gasLeft, err := c.TakeU64()
		if err != nil {
			return req, err
		}
		value, err := c.TakeU256()
		if err != nil {
			return req, err
		}
		create := &CreateArgs{Value: value, GasLeft: gasLeft}
		if method == ReqCreate2 {
			create.Type = CreateType2
			salt, err := c.TakeBytes32()
			if err != nil {
				return req, err
			}
			create.Salt = salt
		}
		create.Code = c.TakeRest()
		req.Create = create

	case ReqEmitLog:
		n, err := c.TakeU32()
		if err != nil {
			return req, err
		}
		topics := make([]common.Hash, 0, n)
		for i := uint32(0); i < n; i++ {
			t, err := c.TakeBytes32()
			if err != nil {
				return req, err
			}
			topics = append(topics, t)
		}
		req.Topics = topics
		req.Data = c.TakeRest()

	case ReqAccountBalance, ReqAccountCode, ReqAccountCodeHash:
		addr, err := c.TakeAddress()
		if err != nil {
			return req, err
		}
		req.Address = addr

	case ReqAddPages:
		n, err := c.TakeU16()
		if err != nil {
			return req, err
		}
		req.PageCount = n

	case ReqCaptureHostIO:
		req.Data = c.TakeRest()

	default:
		return req, fmt.Errorf("%w: method %d", ErrWorkerProtocol, method)
	}

	return req, nil
}

// EncodeOutcome renders an EvmApiOutcome back into the handler's
// (data, reader, gasCost) reply triple.
func EncodeOutcome(outcome EvmApiOutcome) (data []byte, reader []byte, gasCost uint64) {
	gasCost = outcome.GasCost
	switch outcome.Kind {
	case OutGetBytes32, OutGetTransientBytes32:
		return outcome.Value.Bytes(), nil, gasCost
	case OutSetTrieSlots, OutSetTransientBytes32, OutEmitLog, OutAddPages:
		return outcome.Status.Encode(), nil, gasCost
	case OutCaptureHostIO:
		return StatusSuccess.Encode(), nil, gasCost
	case OutAccountBalance:
		balance := outcome.Balance
		if balance == nil {
			balance = new(uint256.Int)
		}
		b32 := balance.Bytes32()
		return b32[:], nil, gasCost
	case OutAccountCode:
		return outcome.Status.Encode(), outcome.Code, gasCost
	case OutAccountCodeHash:
		return StatusSuccess.Encode(), outcome.Hash.Bytes(), gasCost
	case OutCall:
		status := outcome.Status
		var reader []byte
		if outcome.Result != nil {
			status = stylusResultStatus(outcome.Result)
			reader = outcome.Result.Data
		}
		return status.Encode(), reader, gasCost
	case OutCreate:
		status := outcome.Status
		var reader []byte
		if outcome.Result != nil {
			status = stylusResultStatus(outcome.Result)
			reader = outcome.Result.Data
		}
		out := append([]byte{byte(status)}, outcome.Address.Bytes()...)
		return out, reader, gasCost
	default:
		return nil, nil, gasCost
	}
}

// stylusResultStatus maps a terminal StylusOutcome onto the wire Status
// byte a Call/Create reply's data half carries.
func stylusResultStatus(outcome *StylusOutcome) Status {
	if outcome == nil {
		return StatusFailure
	}
	switch outcome.Kind {
	case StylusReturn:
		return StatusSuccess
	case StylusOutOfInk:
		return StatusOutOfGas
	default:
		return StatusFailure
	}
}
