package reassembler

import "github.com/skywave-avionics/uavreasm/pkg/crc16"

// trimCRCTail removes the trailing crc16.Size bytes from fragments,
// popping or shrinking trailing fragments as needed, and returns the
// retained prefix in its original order. Fragments is consumed;
// callers that still need the original must pass a copy.
//
// If the concatenated length of fragments is less than crc16.Size the
// result is empty. Empty trailing fragments are popped without
// consuming from the CRC byte budget.
func trimCRCTail(fragments [][]byte) [][]byte {
	remaining := crc16.Size

	for len(fragments) > 0 && remaining > 0 {
		last := fragments[len(fragments)-1]

		switch {
		case len(last) == 0:
			fragments = fragments[:len(fragments)-1]
		case len(last) <= remaining:
			remaining -= len(last)
			fragments = fragments[:len(fragments)-1]
		default:
			fragments[len(fragments)-1] = last[:len(last)-remaining]
			remaining = 0
		}
	}

	return fragments
}
