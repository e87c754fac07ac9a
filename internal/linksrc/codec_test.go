package linksrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

func Test_encodeDecodeFrame_roundTrips(t *testing.T) {
	var f = transfer.Frame{
		Priority:      transfer.PriorityHigh,
		TransferID:    424242,
		Index:         3,
		EndOfTransfer: true,
		Payload:       []byte("hello reassembler"),
	}

	var raw = encodeFrame(7, 42, f)

	subject, source, decoded, err := decodeFrame(raw, transfer.Timestamp{}, transfer.NodeIDUnset)
	require.NoError(t, err)

	assert.Equal(t, uint32(7), subject)
	assert.Equal(t, transfer.NodeID(42), source)
	assert.Equal(t, f.Priority, decoded.Priority)
	assert.Equal(t, f.TransferID, decoded.TransferID)
	assert.Equal(t, f.Index, decoded.Index)
	assert.Equal(t, f.EndOfTransfer, decoded.EndOfTransfer)
	assert.Equal(t, f.Payload, decoded.Payload)
}

func Test_decodeFrame_sourceOverrideWins(t *testing.T) {
	var raw = encodeFrame(1, 42, transfer.Frame{Index: 0, EndOfTransfer: true})

	_, source, _, err := decodeFrame(raw, transfer.Timestamp{}, 99)
	require.NoError(t, err)

	assert.Equal(t, transfer.NodeID(99), source)
}

func Test_decodeFrame_rejectsShortInput(t *testing.T) {
	_, _, _, err := decodeFrame([]byte{1, 2, 3}, transfer.Timestamp{}, transfer.NodeIDUnset)
	assert.ErrorIs(t, err, ErrShortFrame)
}

func Test_wireCodec_survivesFendAndFescInPayload(t *testing.T) {
	var f = transfer.Frame{
		Index:         0,
		EndOfTransfer: true,
		Payload:       []byte{0xC0, 0xDB, 0x00, 0xC0, 0xDB},
	}

	var stuffed = encapsulate(encodeFrame(9, 1, f))

	var reader frameReader
	var frames = reader.feed(stuffed)
	require.Len(t, frames, 1)

	_, _, decoded, err := decodeFrame(frames[0], transfer.Timestamp{}, transfer.NodeIDUnset)
	require.NoError(t, err)
	assert.Equal(t, f.Payload, decoded.Payload)
}

func Test_frameReader_splitsBackToBackFrames(t *testing.T) {
	var a = encapsulate(encodeFrame(1, 1, transfer.Frame{Index: 0, EndOfTransfer: true, Payload: []byte("a")}))
	var b = encapsulate(encodeFrame(2, 1, transfer.Frame{Index: 0, EndOfTransfer: true, Payload: []byte("b")}))

	var reader frameReader
	var frames = reader.feed(append(a, b...))

	require.Len(t, frames, 2)
	_, _, fa, _ := decodeFrame(frames[0], transfer.Timestamp{}, transfer.NodeIDUnset)
	_, _, fb, _ := decodeFrame(frames[1], transfer.Timestamp{}, transfer.NodeIDUnset)
	assert.Equal(t, []byte("a"), fa.Payload)
	assert.Equal(t, []byte("b"), fb.Payload)
}

func Test_frameReader_feedAcrossMultipleCalls(t *testing.T) {
	var whole = encapsulate(encodeFrame(1, 1, transfer.Frame{Index: 0, EndOfTransfer: true, Payload: []byte("split")}))

	var reader frameReader
	var mid = len(whole) / 2
	var first = reader.feed(whole[:mid])
	assert.Empty(t, first)

	var second = reader.feed(whole[mid:])
	require.Len(t, second, 1)
	_, _, decoded, err := decodeFrame(second[0], transfer.Timestamp{}, transfer.NodeIDUnset)
	require.NoError(t, err)
	assert.Equal(t, []byte("split"), decoded.Payload)
}

func Test_frameReader_ignoresEmptyFrames(t *testing.T) {
	var reader frameReader
	var frames = reader.feed([]byte{fend, fend, fend})
	assert.Empty(t, frames)
}
