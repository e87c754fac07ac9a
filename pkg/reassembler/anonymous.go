package reassembler

import "github.com/skywave-avionics/uavreasm/pkg/transfer"

// TryAnonymous validates a frame from an unassigned (anonymous) source
// node. Anonymous senders can only emit single-frame transfers, so this
// helper is purely stateless: it never raises an error, and any frame
// that is not a complete single-frame transfer is silently dropped by
// the caller's routing.
func TryAnonymous(f transfer.Frame) (transfer.Transfer, bool) {
	if !f.SingleFrameTransfer() {
		return transfer.Transfer{}, false
	}

	return transfer.Transfer{
		Timestamp:         f.Timestamp,
		Priority:          f.Priority,
		TransferID:        f.TransferID,
		FragmentedPayload: [][]byte{f.Payload},
		SourceNodeID:      transfer.NodeIDUnset,
	}, true
}
