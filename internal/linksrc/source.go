package linksrc

import "github.com/skywave-avionics/uavreasm/pkg/transfer"

// Received is one decoded wire frame, tagged with the subject it arrived
// on and the remote node that sent it (or transfer.NodeIDUnset for an
// anonymous sender), ready for a session.Table to route.
type Received struct {
	Subject uint32
	Source  transfer.NodeID
	Frame   transfer.Frame
}

// Source is a pluggable byte-oriented transport that yields decoded
// frames until Close is called or the underlying link fails. Frames
// channel is closed when the source gives up reading permanently.
type Source interface {
	Frames() <-chan Received
	Close() error
}
