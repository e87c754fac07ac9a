// Package diag provides a concrete OnError sink for reassembler.Reassembler:
// one counter per error kind, plus a structured debug log line carrying
// the reassembly context at the moment the error was detected.
package diag

import (
	"strconv"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"

	"github.com/skywave-avionics/uavreasm/pkg/reassembler"
	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

// logTimestamp renders a reception timestamp the way operators expect to
// see it in a console log line: date, time, millisecond precision.
var logTimestamp = strftime.MustNew("%Y-%m-%d %H:%M:%S.%L")

// Sink counts every reassembler.Error by kind and, if a logger is
// configured, emits one debug line per occurrence.
type Sink struct {
	Logger *log.Logger

	// Source and Subject identify which reassembler this sink is
	// attached to, for log attribution when a node runs many of them.
	Source  transfer.NodeID
	Subject uint32

	counts [numErrorKinds]atomic.Int64
}

const numErrorKinds = 6

// NewSink returns a Sink that logs through the given logger. A nil
// logger disables logging; counters still accumulate.
func NewSink(logger *log.Logger, source transfer.NodeID, subject uint32) *Sink {
	return &Sink{Logger: logger, Source: source, Subject: subject}
}

// Bind returns an OnError callback closing over r, so the sink can pull
// the pre-reset DebugContext out of the reassembler while handling the
// error — exactly the window in which the spec guarantees that context
// still reflects what went wrong.
func (s *Sink) Bind(r *reassembler.Reassembler) reassembler.OnError {
	return func(e reassembler.Error) {
		s.Count(e)
		s.logDebug(e, r.Debug())
	}
}

// Count increments the counter for the given error kind.
func (s *Sink) Count(e reassembler.Error) {
	idx := int(e) - 1
	if idx < 0 || idx >= len(s.counts) {
		return
	}
	s.counts[idx].Add(1)
}

// CountOf returns the current value of the counter for the given error kind.
func (s *Sink) CountOf(e reassembler.Error) int64 {
	idx := int(e) - 1
	if idx < 0 || idx >= len(s.counts) {
		return 0
	}
	return s.counts[idx].Load()
}

func (s *Sink) logDebug(e reassembler.Error, ctx reassembler.DebugContext) {
	if s.Logger == nil {
		return
	}

	var maxIndex any = "unset"
	if ctx.MaxIndex != nil {
		maxIndex = *ctx.MaxIndex
	}

	s.Logger.Debug(e.String(),
		"source", s.Source,
		"subject", s.Subject,
		"first_ts", logTimestamp.FormatString(ctx.FirstTimestamp.System),
		"current_tid", ctx.CurrentTransferID,
		"max_index", maxIndex,
		"fragments", fragmentsRatio(ctx),
	)
}

func fragmentsRatio(ctx reassembler.DebugContext) string {
	return strconv.Itoa(ctx.FragmentsPresent) + "/" + strconv.Itoa(ctx.FragmentsTotal)
}
