package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywave-avionics/uavreasm/pkg/reassembler"
	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

func frame(tid uint64, index uint32, eot bool, payload string, mono time.Time) transfer.Frame {
	return transfer.Frame{
		Timestamp:     transfer.Timestamp{Monotonic: mono},
		TransferID:    tid,
		Index:         index,
		EndOfTransfer: eot,
		Payload:       []byte(payload),
	}
}

func Test_Accept_createsOneSessionPerKey(t *testing.T) {
	var table = NewTable(1<<20, time.Second, nil)
	var now = time.Unix(0, 0)

	_, ok := table.Accept(7, frame(1, 0, true, "hello", now), 42)
	require.True(t, ok)
	assert.Equal(t, 1, table.Len())

	_, ok = table.Accept(7, frame(1, 0, true, "world", now), 99)
	require.True(t, ok)
	assert.Equal(t, 2, table.Len())

	_, ok = table.Accept(8, frame(1, 0, true, "again", now), 42)
	require.True(t, ok)
	assert.Equal(t, 3, table.Len())
}

func Test_Accept_anonymousNeverCreatesASession(t *testing.T) {
	var table = NewTable(1<<20, time.Second, nil)
	var now = time.Unix(0, 0)

	result, ok := table.Accept(7, frame(0, 0, true, "ping", now), transfer.NodeIDUnset)
	require.True(t, ok)
	assert.Equal(t, []byte("ping"), result.FragmentedPayload[0])
	assert.Equal(t, 0, table.Len())
}

func Test_Accept_reusesSessionAcrossTransfers(t *testing.T) {
	var table = NewTable(1<<20, time.Second, nil)
	var now = time.Unix(0, 0)

	_, ok := table.Accept(7, frame(1, 0, true, "first", now), 42)
	require.True(t, ok)
	assert.Equal(t, 1, table.Len())

	_, ok = table.Accept(7, frame(2, 0, true, "second", now.Add(time.Millisecond)), 42)
	require.True(t, ok)
	assert.Equal(t, 1, table.Len())
}

func Test_ErrorCount_reflectsMissingFrames(t *testing.T) {
	var table = NewTable(1<<20, time.Second, nil)
	var now = time.Unix(0, 0)

	_, ok := table.Accept(7, frame(1, 0, false, "partial", now), 42)
	require.False(t, ok)

	_, ok = table.Accept(7, frame(2, 0, false, "abandoned-prior", now.Add(time.Millisecond)), 42)
	require.False(t, ok)

	assert.Equal(t, int64(1), table.ErrorCount(7, 42, reassembler.MissingFrames))
}

func Test_ErrorCount_zeroForUnknownKey(t *testing.T) {
	var table = NewTable(1<<20, time.Second, nil)
	assert.Equal(t, int64(0), table.ErrorCount(1, 1, reassembler.MissingFrames))
}

func Test_EvictQuiet_removesOnlyStaleSessions(t *testing.T) {
	var table = NewTable(1<<20, time.Second, nil)
	var base = time.Unix(1000, 0)

	_, ok := table.Accept(7, frame(1, 0, true, "stale", base), 1)
	require.True(t, ok)
	_, ok = table.Accept(7, frame(1, 0, true, "fresh", base.Add(9*time.Second)), 2)
	require.True(t, ok)

	var evicted = table.EvictQuiet(base.Add(10*time.Second), 5*time.Second)

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, table.Len())
}
