// Package reassembler implements the hard part of a high-overhead
// UAVCAN transport: turning a stream of possibly reordered, duplicated
// or interleaved frames from a single remote source node into complete,
// integrity-verified transfers.
package reassembler

import (
	"errors"
	"time"

	"github.com/skywave-avionics/uavreasm/pkg/crc16"
	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

// OnError is invoked synchronously from ProcessFrame whenever a
// recoverable anomaly is detected. It must not call back into the
// Reassembler that invoked it.
type OnError func(Error)

// DebugContext is a snapshot of reassembly state useful for diagnostic
// logging. Reassembler.Debug returns the context as it stood the
// instant an error was reported, i.e. before the corresponding reset.
type DebugContext struct {
	FirstTimestamp    transfer.Timestamp
	CurrentTransferID uint64
	MaxIndex          *uint32
	FragmentsPresent  int
	FragmentsTotal    int
}

// Reassembler accumulates frames for exactly one (source_node_id,
// subject) pair and emits complete transfers. It is single-threaded and
// non-suspending: ProcessFrame never blocks. The fragment bytes it holds
// are bounded by maxPayloadSizeBytes, but the fragment table grows to one
// entry per index up to the highest frame index received, whatever that
// index is. A Reassembler must be owned
// by at most one goroutine at a time; it carries no internal lock.
type Reassembler struct {
	sourceNodeID        transfer.NodeID
	maxPayloadSizeBytes int
	onError             OnError

	payloads          [][]byte
	maxIndex          *uint32
	firstTimestamp    transfer.Timestamp
	currentTransferID uint64

	inCallback bool
}

// New constructs a Reassembler for the given remote source node. It
// fails if sourceNodeID is transfer.NodeIDUnset (anonymous transfers are
// handled by TryAnonymous, never by a stateful Reassembler), if
// maxPayloadSizeBytes is negative, or if onError is nil.
func New(sourceNodeID transfer.NodeID, maxPayloadSizeBytes int, onError OnError) (*Reassembler, error) {
	if sourceNodeID == transfer.NodeIDUnset {
		return nil, errors.New("reassembler: source node ID must be assigned, not anonymous")
	}
	if maxPayloadSizeBytes < 0 {
		return nil, errors.New("reassembler: max payload size must be non-negative")
	}
	if onError == nil {
		return nil, errors.New("reassembler: on_error callback is required")
	}

	return &Reassembler{
		sourceNodeID:        sourceNodeID,
		maxPayloadSizeBytes: maxPayloadSizeBytes,
		onError:             onError,
	}, nil
}

// SourceNodeID returns the remote node this instance listens for.
func (r *Reassembler) SourceNodeID() transfer.NodeID {
	return r.sourceNodeID
}

// ProcessFrame feeds one frame into the reassembly state machine. It
// returns a Transfer and true iff this frame completed one.
//
// transferIDTimeout bounds how long an in-flight transfer is allowed to
// wait for its remaining frames, measured against the monotonic clock
// of the frame that started it.
func (r *Reassembler) ProcessFrame(f transfer.Frame, transferIDTimeout time.Duration) (transfer.Transfer, bool) {
	// (a) Reject malformed empty frames before they can perturb state.
	if len(f.Payload) == 0 && !f.SingleFrameTransfer() {
		r.raise(EmptyFrame)
		return transfer.Transfer{}, false
	}

	// (b) Detect a new transfer: higher TID, or the in-flight one timed out.
	if f.TransferID > r.currentTransferID ||
		f.Timestamp.Monotonic.Sub(r.firstTimestamp.Monotonic) > transferIDTimeout {
		if len(r.payloads) > 0 {
			r.raise(MissingFrames)
		}
		r.restart(f.Timestamp, f.TransferID)
	}

	// (c) Stale frame from a prior transfer: drop silently, no error.
	if f.TransferID < r.currentTransferID {
		return transfer.Transfer{}, false
	}

	// (d) Last-frame bookkeeping.
	if f.EndOfTransfer {
		if r.maxIndex != nil && *r.maxIndex != f.Index {
			r.raise(EOTInconsistent)
			r.restart(f.Timestamp, f.TransferID+1)
			return transfer.Transfer{}, false
		}
		var idx = f.Index
		r.maxIndex = &idx
	}

	// (e) Past-end check.
	if r.maxIndex != nil {
		var highWater = f.Index
		if uint32(len(r.payloads)) > highWater+1 {
			highWater = uint32(len(r.payloads)) - 1
		}
		if highWater > *r.maxIndex {
			r.raise(EOTMisplaced)
			r.restart(f.Timestamp, f.TransferID+1)
			return transfer.Transfer{}, false
		}
	}

	// (f) Store the fragment, growing with empty sentinels as needed.
	for uint32(len(r.payloads)) <= f.Index {
		r.payloads = append(r.payloads, nil)
	}
	r.payloads[f.Index] = f.Payload

	// (g) Size ceiling: measured on the stored fragment, so a single
	// oversized frame cannot slip through a pre-store check.
	if r.purePayloadSize() > r.maxPayloadSizeBytes {
		r.raise(PayloadSizeExceedsLimit)
		r.restart(f.Timestamp, f.TransferID+1)
		return transfer.Transfer{}, false
	}

	// (h) Completion test.
	if !r.complete() {
		return transfer.Transfer{}, false
	}

	var result, ok = finalize(r.firstTimestamp, f.Priority, r.currentTransferID, r.payloads, r.sourceNodeID)
	if !ok {
		r.raise(IntegrityError)
	}
	r.restart(f.Timestamp, f.TransferID+1)
	if !ok {
		return transfer.Transfer{}, false
	}
	return result, true
}

// Debug returns a snapshot of the reassembly state as it stands right
// now. Call it from within the OnError callback to capture the
// pre-reset context the error pertains to.
func (r *Reassembler) Debug() DebugContext {
	var present int
	for _, p := range r.payloads {
		if len(p) > 0 {
			present++
		}
	}

	var maxIndex *uint32
	if r.maxIndex != nil {
		var v = *r.maxIndex
		maxIndex = &v
	}

	return DebugContext{
		FirstTimestamp:    r.firstTimestamp,
		CurrentTransferID: r.currentTransferID,
		MaxIndex:          maxIndex,
		FragmentsPresent:  present,
		FragmentsTotal:    len(r.payloads),
	}
}

func (r *Reassembler) complete() bool {
	if r.maxIndex == nil {
		return false
	}
	if *r.maxIndex == 0 {
		return true
	}
	for _, p := range r.payloads {
		if len(p) == 0 {
			return false
		}
	}
	return true
}

func (r *Reassembler) purePayloadSize() int {
	var size int
	for _, p := range r.payloads {
		size += len(p)
	}
	if len(r.payloads) > 1 {
		size -= crc16.Size
	}
	return size
}

func (r *Reassembler) restart(ts transfer.Timestamp, transferID uint64) {
	r.firstTimestamp = ts
	r.currentTransferID = transferID
	r.maxIndex = nil
	r.payloads = nil
}

// raise reports an anomaly to the caller's sink. The callback must not
// re-enter this Reassembler; inCallback makes a re-entrant call panic
// when that call in turn reports an anomaly.
func (r *Reassembler) raise(e Error) {
	if r.inCallback {
		panic("reassembler: on_error callback re-entered its own reassembler")
	}
	r.inCallback = true
	defer func() { r.inCallback = false }()
	r.onError(e)
}
