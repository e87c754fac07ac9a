// Package linksrc adapts byte-oriented transports (UDP, serial, pty) into
// a stream of transfer.Frame values for a session.Table to consume. Every
// source speaks the same on-the-wire frame encoding, byte-stuffed the same
// way Dire Wolf's KISS layer delimits AX.25 frames between FEND markers.
package linksrc

import "bytes"

// fend/fesc/tfend/tfesc mirror the KISS protocol's escape scheme: a frame
// is bytes between two FEND markers, with FEND and FESC bytes appearing
// in the payload escaped as FESC+TFEND / FESC+TFESC respectively.
const (
	fend  = 0xC0
	fesc  = 0xDB
	tfend = 0xDC
	tfesc = 0xDD
)

// encapsulate wraps a raw frame payload in FEND markers, escaping any
// FEND or FESC bytes it contains.
func encapsulate(raw []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(fend)
	for _, b := range raw {
		switch b {
		case fend:
			buf.WriteByte(fesc)
			buf.WriteByte(tfend)
		case fesc:
			buf.WriteByte(fesc)
			buf.WriteByte(tfesc)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(fend)
	return buf.Bytes()
}

// decapsulate reverses encapsulate, given the bytes strictly between two
// FEND markers (neither FEND itself included).
func decapsulate(stuffed []byte) []byte {
	var out = make([]byte, 0, len(stuffed))
	for i := 0; i < len(stuffed); i++ {
		var b = stuffed[i]
		if b == fesc && i+1 < len(stuffed) {
			switch stuffed[i+1] {
			case tfend:
				out = append(out, fend)
				i++
				continue
			case tfesc:
				out = append(out, fesc)
				i++
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// frameReader splits a byte stream into FEND-delimited frames, one
// decapsulate call per frame, the way kiss_rec_byte accumulates bytes
// between markers before handing the result to its caller.
type frameReader struct {
	pending []byte
	inFrame bool
}

// feed consumes newly-read bytes and returns any complete frames found,
// in order. A frame of length 0 (two adjacent FENDs) is discarded as a
// keepalive, the same as KISS_CMD_DATA_FRAME senders commonly emit.
func (r *frameReader) feed(data []byte) [][]byte {
	var out [][]byte
	for _, b := range data {
		switch {
		case b == fend && r.inFrame:
			if len(r.pending) > 0 {
				out = append(out, decapsulate(r.pending))
			}
			r.pending = nil
			r.inFrame = false
		case b == fend:
			r.inFrame = true
			r.pending = nil
		case r.inFrame:
			r.pending = append(r.pending, b)
		}
	}
	return out
}
