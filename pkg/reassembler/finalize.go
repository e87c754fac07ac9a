package reassembler

import (
	"github.com/skywave-avionics/uavreasm/pkg/crc16"
	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

// finalize integrity-validates a complete candidate transfer and, on
// success, produces the Transfer with the CRC trailer removed.
// fragments must be non-empty and must contain every fragment of the
// candidate transfer, in index order.
//
// Single-frame transfers carry no transfer CRC and are returned
// verbatim. Multi-frame transfers must exceed crc16.Size in total
// length and must pass the residue check; either failure reports no
// transfer, which the caller surfaces as IntegrityError.
func finalize(ts transfer.Timestamp, priority transfer.Priority, transferID uint64, fragments [][]byte, source transfer.NodeID) (transfer.Transfer, bool) {
	pkg := func(payload [][]byte) transfer.Transfer {
		return transfer.Transfer{
			Timestamp:         ts,
			Priority:          priority,
			TransferID:        transferID,
			FragmentedPayload: payload,
			SourceNodeID:      source,
		}
	}

	if len(fragments) == 1 {
		return pkg(fragments), true
	}

	var total int
	for _, f := range fragments {
		total += len(f)
	}

	if total <= crc16.Size || !crc16.New().Add(fragments).CheckResidue() {
		return transfer.Transfer{}, false
	}

	trimmed := make([][]byte, len(fragments))
	copy(trimmed, fragments)

	return pkg(trimCRCTail(trimmed)), true
}
