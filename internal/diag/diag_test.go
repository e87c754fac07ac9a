package diag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywave-avionics/uavreasm/pkg/reassembler"
	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

func Test_Sink_countsByKind(t *testing.T) {
	var s = NewSink(nil, 1234, 7)

	s.Count(reassembler.EmptyFrame)
	s.Count(reassembler.EmptyFrame)
	s.Count(reassembler.IntegrityError)

	assert.Equal(t, int64(2), s.CountOf(reassembler.EmptyFrame))
	assert.Equal(t, int64(1), s.CountOf(reassembler.IntegrityError))
	assert.Equal(t, int64(0), s.CountOf(reassembler.MissingFrames))
}

func Test_Sink_bindCountsReassemblerErrors(t *testing.T) {
	var s = NewSink(nil, 1234, 0)

	var r *reassembler.Reassembler
	var err error
	r, err = reassembler.New(1234, 1<<20, func(e reassembler.Error) { s.Bind(r)(e) })
	require.NoError(t, err)

	_, ok := r.ProcessFrame(transfer.Frame{TransferID: 1, Index: 0, EndOfTransfer: false, Payload: []byte("a")}, time.Second)
	require.False(t, ok)

	_, ok = r.ProcessFrame(transfer.Frame{TransferID: 2, Index: 0, EndOfTransfer: false, Payload: []byte("b")}, time.Second)
	require.False(t, ok)

	assert.Equal(t, int64(1), s.CountOf(reassembler.MissingFrames))
}
