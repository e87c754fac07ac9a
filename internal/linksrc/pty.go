package linksrc

import (
	"os"

	"github.com/creack/pty"

	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

// PTYSource is a pty-backed stand-in for a real serial device, used by
// demos and integration tests the same way Dire Wolf's "KISS over a
// pseudo terminal" option lets a client application attach without real
// hardware: a test writes wire frames to the slave side, this source
// reads them from the master.
type PTYSource struct {
	master *os.File
	slave  *os.File
	source transfer.NodeID
	frames chan Received
	done   chan struct{}
}

// NewPTYSource allocates a pty pair and starts reading the master side.
// SlavePath returns the name a test harness opens to write simulated
// frames, mirroring how a real serial device path is configured.
func NewPTYSource(source transfer.NodeID) (*PTYSource, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, err
	}

	var s = &PTYSource{
		master: master,
		slave:  slave,
		source: source,
		frames: make(chan Received, 64),
		done:   make(chan struct{}),
	}
	go readByteStream(s.master, s.source, s.frames, s.done)
	return s, nil
}

// SlavePath is the device path a simulated peer writes encoded wire
// frames to.
func (s *PTYSource) SlavePath() string {
	return s.slave.Name()
}

// Frames returns the channel of decoded frames.
func (s *PTYSource) Frames() <-chan Received {
	return s.frames
}

// Close stops the read loop and releases both ends of the pty.
func (s *PTYSource) Close() error {
	close(s.done)
	var slaveErr = s.slave.Close()
	var masterErr = s.master.Close()
	if masterErr != nil {
		return masterErr
	}
	return slaveErr
}
