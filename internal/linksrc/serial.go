package linksrc

import (
	"io"
	"time"

	"github.com/pkg/term"

	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

// SerialSource reads KISS-style framed wire frames from a real serial
// device, the same device-open-then-background-read-loop shape as
// serial_port_open/kissserial_listen_thread, generalized from AX.25
// frames to this module's wire frame encoding.
type SerialSource struct {
	readCloser io.ReadWriteCloser
	source     transfer.NodeID
	frames     chan Received
	done       chan struct{}
}

// NewSerialSource opens device at baud bps (0 leaves the current speed
// alone) and starts reading. source identifies the remote node this
// link is dedicated to — unlike UDP, a point-to-point serial link
// carries no per-datagram source address, so it is supplied out of band.
func NewSerialSource(device string, baud int, source transfer.NodeID) (*SerialSource, error) {
	t, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, err
	}

	switch baud {
	case 0:
	default:
		if err := t.SetSpeed(baud); err != nil {
			t.Close()
			return nil, err
		}
	}

	var s = &SerialSource{
		readCloser: t,
		source:     source,
		frames:     make(chan Received, 64),
		done:       make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *SerialSource) readLoop() {
	readByteStream(s.readCloser, s.source, s.frames, s.done)
}

// Frames returns the channel of decoded frames.
func (s *SerialSource) Frames() <-chan Received {
	return s.frames
}

// Close stops the read loop and releases the device.
func (s *SerialSource) Close() error {
	close(s.done)
	return s.readCloser.Close()
}

// readByteStream is the transport-agnostic half of a byte-stream source:
// it reads until EOF or a real error, splits the stream into wire
// frames with a frameReader, decodes each and forwards it, then closes
// the frames channel — the Go-idiomatic replacement for
// kissserial_listen_thread's blocking byte-at-a-time loop.
func readByteStream(r io.Reader, source transfer.NodeID, out chan<- Received, done <-chan struct{}) {
	defer close(out)

	var fr frameReader
	var buf = make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, raw := range fr.feed(buf[:n]) {
				var ts = transfer.Timestamp{System: time.Now(), Monotonic: time.Now()}
				subject, effectiveSource, frame, decodeErr := decodeFrame(raw, ts, source)
				if decodeErr != nil {
					continue
				}
				select {
				case out <- Received{Subject: subject, Source: effectiveSource, Frame: frame}:
				case <-done:
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}
