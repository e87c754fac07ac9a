package linksrc

import (
	"encoding/binary"
	"errors"

	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

// headerSize is the fixed-width prefix every wire frame carries ahead of
// its payload: subject(4) + source(2) + priority(1) + flags(1) + tid(8) + index(4).
const headerSize = 4 + 2 + 1 + 1 + 8 + 4

const flagEndOfTransfer = 1 << 0

// ErrShortFrame is returned by decodeFrame when a wire frame is too small
// to contain the fixed header.
var ErrShortFrame = errors.New("linksrc: frame shorter than header")

// encodeFrame serializes subject, source and a transfer.Frame into the
// raw form carried inside a single KISS-style wire frame.
func encodeFrame(subject uint32, source transfer.NodeID, f transfer.Frame) []byte {
	var buf = make([]byte, headerSize+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], subject)
	binary.BigEndian.PutUint16(buf[4:6], uint16(source))
	buf[6] = byte(f.Priority)
	var flags byte
	if f.EndOfTransfer {
		flags |= flagEndOfTransfer
	}
	buf[7] = flags
	binary.BigEndian.PutUint64(buf[8:16], f.TransferID)
	binary.BigEndian.PutUint32(buf[16:20], f.Index)
	copy(buf[headerSize:], f.Payload)
	return buf
}

// decodeFrame parses the raw bytes of one wire frame into a subject ID,
// source node ID and transfer.Frame, stamping ts on the frame. sourceOverride
// replaces the header's embedded source node ID when it is not
// transfer.NodeIDUnset, for transports (serial, pty) where the remote
// node ID is known out of band per-link rather than carried inline.
func decodeFrame(raw []byte, ts transfer.Timestamp, sourceOverride transfer.NodeID) (uint32, transfer.NodeID, transfer.Frame, error) {
	if len(raw) < headerSize {
		return 0, transfer.NodeIDUnset, transfer.Frame{}, ErrShortFrame
	}

	var subject = binary.BigEndian.Uint32(raw[0:4])
	var headerSource = transfer.NodeID(binary.BigEndian.Uint16(raw[4:6]))
	var priority = transfer.Priority(raw[6])
	var flags = raw[7]
	var tid = binary.BigEndian.Uint64(raw[8:16])
	var index = binary.BigEndian.Uint32(raw[16:20])

	var payload = make([]byte, len(raw)-headerSize)
	copy(payload, raw[headerSize:])

	var effectiveSource = headerSource
	if sourceOverride != transfer.NodeIDUnset {
		effectiveSource = sourceOverride
	}

	return subject, effectiveSource, transfer.Frame{
		Timestamp:     ts,
		Priority:      priority,
		TransferID:    tid,
		Index:         index,
		EndOfTransfer: flags&flagEndOfTransfer != 0,
		Payload:       payload,
	}, nil
}
