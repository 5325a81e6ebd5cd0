package stylus

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestCursorTakeShortRead(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3})
	_, err := c.TakeU32()
	require.ErrorIs(t, err, ErrShortRead)
}

func TestCursorTakeAdvances(t *testing.T) {
	c := NewCursor([]byte{0x00, 0x01, 0x00, 0x02, 0xAA, 0xBB})
	u16, err := c.TakeU16()
	require.NoError(t, err)
	require.Equal(t, uint16(1), u16)

	u16, err = c.TakeU16()
	require.NoError(t, err)
	require.Equal(t, uint16(2), u16)

	require.Equal(t, []byte{0xAA, 0xBB}, c.TakeRest())
	require.Equal(t, 0, c.Len())
}

func TestDecodeRequestGetBytes32(t *testing.T) {
	slot := common.HexToHash("0x01")
	req, err := DecodeRequest(ReqGetBytes32, slot.Bytes())
	require.NoError(t, err)
	require.Equal(t, ReqGetBytes32, req.Kind)
	require.Equal(t, slot, req.Slot)
}

func TestDecodeRequestSetTrieSlots(t *testing.T) {
	key := common.HexToHash("0x01")
	value := common.HexToHash("0x02")
	payload := append(append(u64Bytes(500), key.Bytes()...), value.Bytes()...)

	req, err := DecodeRequest(ReqSetTrieSlots, payload)
	require.NoError(t, err)
	require.Equal(t, key, req.Key)
	require.Equal(t, value, req.Value)
	require.Equal(t, uint64(500), req.GasLeft)
}

func TestDecodeRequestSetTransientBytes32(t *testing.T) {
	key := common.HexToHash("0x0A")
	value := common.HexToHash("0x0B")
	payload := append(append([]byte{}, key.Bytes()...), value.Bytes()...)

	req, err := DecodeRequest(ReqSetTransientBytes32, payload)
	require.NoError(t, err)
	require.Equal(t, key, req.Key)
	require.Equal(t, value, req.Value)
	require.Equal(t, uint64(0), req.GasLeft)
}

func TestDecodeRequestContractCall(t *testing.T) {
	addr := common.HexToAddress("0xBd771f36E7eCF8f8C4c9e4F5d7A1234567890EB1")
	value := uint256.NewInt(1337)
	calldata := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	payload := append([]byte{}, addr.Bytes()...)
	valueBytes := value.Bytes32()
	payload = append(payload, valueBytes[:]...)
	payload = append(payload, u64Bytes(0)...) // reserved field
	payload = append(payload, u64Bytes(100000)...)
	payload = append(payload, calldata...)

	req, err := DecodeRequest(ReqContractCall, payload)
	require.NoError(t, err)
	require.NotNil(t, req.Call)
	require.Equal(t, addr, req.Call.Address)
	require.Equal(t, value, req.Call.Value)
	require.Equal(t, uint64(100000), req.Call.GasLeft)
	require.Equal(t, calldata, req.Call.Calldata)
}

func TestDecodeRequestCreate2(t *testing.T) {
	value := uint256.NewInt(0)
	salt := common.HexToHash("0xCAFE")
	code := []byte{0x60, 0x00}

	payload := append([]byte{}, u64Bytes(100000)...)
	valueBytes := value.Bytes32()
	payload = append(payload, valueBytes[:]...)
	payload = append(payload, salt.Bytes()...)
	payload = append(payload, code...)

	req, err := DecodeRequest(ReqCreate2, payload)
	require.NoError(t, err)
	require.NotNil(t, req.Create)
	require.Equal(t, CreateType2, req.Create.Type)
	require.Equal(t, value, req.Create.Value)
	require.Equal(t, uint64(100000), req.Create.GasLeft)
	require.Equal(t, salt, req.Create.Salt)
	require.Equal(t, code, req.Create.Code)
}

// TestDecodeRequestCreate1 pins the field order spec.md §4.1 specifies for
// Create1: gas_limit:u64 precedes value:u256 on the wire (no salt).
func TestDecodeRequestCreate1(t *testing.T) {
	value := uint256.NewInt(42)
	code := []byte{0x60, 0x01, 0x60, 0x00}

	payload := append([]byte{}, u64Bytes(250000)...)
	valueBytes := value.Bytes32()
	payload = append(payload, valueBytes[:]...)
	payload = append(payload, code...)

	req, err := DecodeRequest(ReqCreate1, payload)
	require.NoError(t, err)
	require.NotNil(t, req.Create)
	require.Equal(t, CreateType1, req.Create.Type)
	require.Equal(t, value, req.Create.Value)
	require.Equal(t, uint64(250000), req.Create.GasLeft)
	require.Equal(t, code, req.Create.Code)
}

func TestDecodeRequestEmitLog(t *testing.T) {
	topic := common.HexToHash("0x01")
	data := []byte("hello")

	payload := append([]byte{}, u32Bytes(1)...)
	payload = append(payload, topic.Bytes()...)
	payload = append(payload, data...)

	req, err := DecodeRequest(ReqEmitLog, payload)
	require.NoError(t, err)
	require.Equal(t, []common.Hash{topic}, req.Topics)
	require.Equal(t, data, req.Data)
}

func TestDecodeRequestUnknownMethod(t *testing.T) {
	_, err := DecodeRequest(RequestKind(99), nil)
	require.ErrorIs(t, err, ErrWorkerProtocol)
}

func TestEncodeOutcomeAccountCodeHash(t *testing.T) {
	hash := common.HexToHash("0xABCDEF")
	data, reader, _ := EncodeOutcome(EvmApiOutcome{Kind: OutAccountCodeHash, Hash: hash})
	require.Equal(t, StatusSuccess.Encode(), data)
	require.Equal(t, hash.Bytes(), reader)
}

func TestEncodeOutcomeGetBytes32(t *testing.T) {
	value := common.HexToHash("0x0539")
	data, reader, _ := EncodeOutcome(EvmApiOutcome{Kind: OutGetBytes32, Value: value})
	require.Equal(t, value.Bytes(), data)
	require.Nil(t, reader)
}

func TestEncodeOutcomeCallSuccess(t *testing.T) {
	outcome := EvmApiOutcome{
		Kind:   OutCall,
		Result: &StylusOutcome{Kind: StylusReturn, Data: []byte("ok")},
	}
	data, reader, _ := EncodeOutcome(outcome)
	require.Equal(t, byte(StatusSuccess), data[0])
	require.Equal(t, []byte("ok"), reader)
}

func TestEncodeOutcomeCallRevert(t *testing.T) {
	outcome := EvmApiOutcome{
		Kind:   OutCall,
		Result: &StylusOutcome{Kind: StylusRevert, Data: []byte("nope")},
	}
	data, reader, _ := EncodeOutcome(outcome)
	require.Equal(t, byte(StatusFailure), data[0])
	require.Equal(t, []byte("nope"), reader)
}

func TestEncodeOutcomeCreate(t *testing.T) {
	addr := common.HexToAddress("0x01")
	outcome := EvmApiOutcome{
		Kind:    OutCreate,
		Result:  &StylusOutcome{Kind: StylusReturn},
		Address: addr,
	}
	data, _, _ := EncodeOutcome(outcome)
	require.Equal(t, byte(StatusSuccess), data[0])
	require.Equal(t, addr.Bytes(), data[1:])
}

func u64Bytes(v uint64) []byte {
	return []byte{byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func u32Bytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
