// Package evq is the bounded, interrupt-safe event queue that sits between
// interrupt handlers and the executor.
//
// There is one fixed-capacity ring per priority tier. Push is O(1), never
// blocks and never allocates, so it may be called from interrupt context.
// Each tier expects a single producing context (one interrupt priority level);
// Next must only be called from the executor.
package evq

import (
	"sync/atomic"

	"go.uber.org/zap"

	"devicert-go/errcode"
	"devicert-go/services/rt/internal/rtlog"
	"devicert-go/types"
	"devicert-go/x/ring"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 16

type Queue struct {
	tiers  [types.NumPriorities]*ring.Ring[types.Event]
	notify atomic.Pointer[func()]

	pushed [types.NumPriorities]atomic.Uint32
	popped [types.NumPriorities]atomic.Uint32
}

// New creates a queue whose tiers each hold at most perPriority events.
func New(perPriority int) *Queue {
	if perPriority <= 0 {
		perPriority = DefaultCapacity
	}
	q := &Queue{}
	for i := range q.tiers {
		q.tiers[i] = ring.New[types.Event](perPriority)
	}
	return q
}

// Capacity returns the per-tier capacity.
func (q *Queue) Capacity() int { return q.tiers[0].Cap() }

// SetNotify installs a hook invoked after every successful push, used by
// idlers that must leave their low-power wait. fn must not block.
func (q *Queue) SetNotify(fn func()) {
	if fn == nil {
		q.notify.Store(nil)
		return
	}
	q.notify.Store(&fn)
}

// Push records ev in its priority tier. A full tier means the queue was sized
// too small for the board; that is a configuration error and halts.
func (q *Queue) Push(ev types.Event) {
	p := ev.Priority()
	if !q.tiers[p].TryPush(ev) {
		halt(ev, q.tiers[p].Cap())
	}
	q.pushed[p].Add(1)
	if fn := q.notify.Load(); fn != nil {
		(*fn)()
	}
}

// Next pops the oldest event of the highest non-empty tier.
func (q *Queue) Next() (types.Event, bool) {
	for p := range q.tiers {
		if ev, ok := q.tiers[p].TryPop(); ok {
			q.popped[p].Add(1)
			return ev, true
		}
	}
	return types.Event{}, false
}

// Len is the number of queued events across all tiers.
func (q *Queue) Len() int {
	n := 0
	for _, t := range q.tiers {
		n += t.Len()
	}
	return n
}

// TierStats counts traffic through one tier.
type TierStats struct {
	Pushed uint32
	Popped uint32
	Queued int
}

func (q *Queue) Stats() [types.NumPriorities]TierStats {
	var s [types.NumPriorities]TierStats
	for p := range q.tiers {
		s[p] = TierStats{
			Pushed: q.pushed[p].Load(),
			Popped: q.popped[p].Load(),
			Queued: q.tiers[p].Len(),
		}
	}
	return s
}

func halt(ev types.Event, capacity int) {
	rtlog.Named("evq").Error("event queue overflow",
		zap.Stringer("kind", ev.Kind),
		zap.Uint8("source", ev.Source),
		zap.Stringer("tier", ev.Priority()),
		zap.Int("capacity", capacity),
	)
	panic(errcode.New(errcode.QueueFull, "evq.push", ev.Priority().String()+" tier full"))
}
