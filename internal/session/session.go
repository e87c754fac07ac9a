// Package session implements the per-(source_node_id, subject) table
// that the reassembler itself is explicitly not responsible for: the
// container described in the reassembler's scope notes, which owns one
// Reassembler instance per remote publisher of a given subject.
package session

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/skywave-avionics/uavreasm/internal/diag"
	"github.com/skywave-avionics/uavreasm/pkg/reassembler"
	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

// Key identifies one reassembly session: a remote publisher of a subject.
type Key struct {
	Source  transfer.NodeID
	Subject uint32
}

type entry struct {
	reassembler *reassembler.Reassembler
	sink        *diag.Sink
	lastSeen    time.Time
}

// Table lazily creates and holds one Reassembler per Key. Each entry is
// only ever touched by the goroutine that calls Accept for that key at
// a given time; Table's own mutex only protects the map itself, not the
// reassemblers it hands out, matching the reassembler's single-owner
// concurrency model.
type Table struct {
	maxPayloadSizeBytes int
	transferIDTimeout   time.Duration
	logger              *log.Logger

	mu      sync.Mutex
	entries map[Key]*entry
}

// NewTable constructs an empty session table. A nil logger disables
// per-error debug logging; error counters still accumulate.
func NewTable(maxPayloadSizeBytes int, transferIDTimeout time.Duration, logger *log.Logger) *Table {
	return &Table{
		maxPayloadSizeBytes: maxPayloadSizeBytes,
		transferIDTimeout:   transferIDTimeout,
		logger:              logger,
		entries:             make(map[Key]*entry),
	}
}

// Accept routes one frame to the reassembler for (source, subject),
// creating it on first use, and returns a completed Transfer if this
// frame finished one. Anonymous sources never get a stateful
// reassembler; they are handled directly by reassembler.TryAnonymous.
func (t *Table) Accept(subject uint32, f transfer.Frame, source transfer.NodeID) (transfer.Transfer, bool) {
	if source == transfer.NodeIDUnset {
		return reassembler.TryAnonymous(f)
	}

	e := t.lookupOrCreate(Key{Source: source, Subject: subject})
	e.lastSeen = f.Timestamp.Monotonic
	return e.reassembler.ProcessFrame(f, t.transferIDTimeout)
}

// ErrorCount returns how many times the given error kind has fired for
// (source, subject), or 0 if no session has been created for that key yet.
func (t *Table) ErrorCount(subject uint32, source transfer.NodeID, kind reassembler.Error) int64 {
	t.mu.Lock()
	e, ok := t.entries[Key{Source: source, Subject: subject}]
	t.mu.Unlock()
	if !ok {
		return 0
	}
	return e.sink.CountOf(kind)
}

// EvictQuiet removes every session whose reassembler has not been fed a
// frame more recently than olderThan. This bounds Table's memory growth
// when remote nodes disappear without a final transfer.
func (t *Table) EvictQuiet(now time.Time, olderThan time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted int
	for k, e := range t.entries {
		if now.Sub(e.lastSeen) > olderThan {
			delete(t.entries, k)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of live sessions.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table) lookupOrCreate(k Key) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[k]; ok {
		return e
	}

	var sink = diag.NewSink(t.logger, k.Source, k.Subject)
	var e = &entry{sink: sink}

	var r *reassembler.Reassembler
	var err error
	r, err = reassembler.New(k.Source, t.maxPayloadSizeBytes, func(kind reassembler.Error) {
		sink.Bind(r)(kind)
	})
	if err != nil {
		// maxPayloadSizeBytes is validated once at node startup via
		// config.Config.Validate, and k.Source is never NodeIDUnset
		// (Accept special-cases that before reaching here), so this
		// branch is unreachable in practice; surface it loudly rather
		// than silently dropping frames for this session.
		panic("session: unreachable reassembler construction failure: " + err.Error())
	}
	e.reassembler = r

	t.entries[k] = e
	return e
}
