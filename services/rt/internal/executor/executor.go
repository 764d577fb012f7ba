// Package executor is the cooperative scheduler: the only place task code
// runs. Each pass drains the event queue completely (waking interested
// tasks through the registry's wait-list), then polls one ready task; with
// nothing to do it parks until the next interrupt.
package executor

import (
	"context"
	"math/bits"
	"slices"
	"sync/atomic"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"devicert-go/errcode"
	"devicert-go/services/rt/internal/core"
	"devicert-go/services/rt/internal/evq"
	"devicert-go/services/rt/internal/registry"
	"devicert-go/services/rt/internal/rtlog"
)

// DefaultMaxTasks bounds the task table when no limit is given.
const DefaultMaxTasks = 32

// TaskID identifies a task: slot index in the low 16 bits, slot generation
// in the high 16 bits, so a stale id never aliases a later task.
type TaskID uint32

func makeID(idx int, gen uint16) TaskID { return TaskID(uint32(gen)<<16 | uint32(idx)) }
func (id TaskID) index() int            { return int(id & 0xffff) }
func (id TaskID) gen() uint16           { return uint16(id >> 16) }

type State uint8

const (
	Created State = iota
	Ready
	Suspended
	Completed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Ready:
		return "ready"
	case Suspended:
		return "suspended"
	default:
		return "completed"
	}
}

type slot struct {
	gen    atomic.Uint32 // bumped when the task completes
	wokeAt atomic.Uint32 // wake sequence of the first pending wake, 0 if none

	// executor-owned
	fut    core.Future
	cx     *core.Context
	state  State
	live   bool
	queued bool
}

type Stats struct {
	Spawned   uint32
	Completed uint32
	Polls     uint32
	Events    uint32
	Wakes     uint32
	Idles     uint32
}

type Executor struct {
	reg  *registry.Registry
	evq  *evq.Queue
	idle Idler

	slots []slot
	free  []int
	ready *queue.Queue // FIFO of slot indices

	woken   []atomic.Uint32 // bitmap of slots with a pending wake
	wakeSeq atomic.Uint32
	wakes   atomic.Uint32

	owners uint64 // last context owner handed out; never reused
	stats  Stats
	log    *zap.Logger
}

// New builds an executor over reg and q with room for maxTasks live tasks.
// A nil idler defaults to a ChanIdler, which is notified on every push.
func New(reg *registry.Registry, q *evq.Queue, idle Idler, maxTasks int) *Executor {
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	if maxTasks > 1<<16 {
		maxTasks = 1 << 16
	}
	if idle == nil {
		idle = NewChanIdler()
	}
	e := &Executor{
		reg:   reg,
		evq:   q,
		idle:  idle,
		slots: make([]slot, maxTasks),
		free:  make([]int, 0, maxTasks),
		ready: queue.New(),
		woken: make([]atomic.Uint32, (maxTasks+31)/32),
		log:   rtlog.Named("executor"),
	}
	for i := maxTasks - 1; i >= 0; i-- {
		e.free = append(e.free, i)
	}
	q.SetNotify(idle.Notify)
	return e
}

// ---- tasks ----

// Spawn adds f to the task table as Created and makes it eligible for its
// first poll. It must be called from the executor (or before Run).
func (e *Executor) Spawn(f core.Future) (TaskID, error) {
	if len(e.free) == 0 {
		return 0, errcode.New(errcode.TaskLimit, "executor.spawn", "task table full")
	}
	idx := e.free[len(e.free)-1]
	e.free = e.free[:len(e.free)-1]
	s := &e.slots[idx]
	id := makeID(idx, uint16(s.gen.Load()))
	s.fut, s.state, s.live, s.queued = f, Created, true, true
	e.owners++
	s.cx = core.NewTaskContext(e.owners, taskWaker{e: e, id: id}, e.reg)
	e.ready.Add(idx)
	e.stats.Spawned++
	return id, nil
}

// State reports a task's state. Ids of finished tasks report Completed.
func (e *Executor) State(id TaskID) State {
	idx := id.index()
	if idx >= len(e.slots) {
		return Completed
	}
	s := &e.slots[idx]
	if !s.live || uint16(s.gen.Load()) != id.gen() {
		return Completed
	}
	return s.state
}

// Live is the number of tasks that have not completed.
func (e *Executor) Live() int { return len(e.slots) - len(e.free) }

func (e *Executor) Stats() Stats {
	s := e.stats
	s.Wakes = e.wakes.Load()
	return s
}

// ---- wakers ----

type taskWaker struct {
	e  *Executor
	id TaskID
}

// Wake marks the task for polling. Safe from interrupt context: it only
// touches atomics and notifies the idler.
func (w taskWaker) Wake() { w.e.wake(w.id) }

// WakerFor returns the waker bound to id.
func (e *Executor) WakerFor(id TaskID) core.Waker { return taskWaker{e: e, id: id} }

func (e *Executor) wake(id TaskID) {
	idx := id.index()
	if idx >= len(e.slots) {
		return
	}
	s := &e.slots[idx]
	if uint16(s.gen.Load()) != id.gen() {
		return // task already completed
	}
	s.wokeAt.CompareAndSwap(0, e.wakeSeq.Add(1))
	e.woken[idx/32].Or(1 << (idx % 32))
	e.wakes.Add(1)
	e.idle.Notify()
}

// collectWakes moves woken, parked tasks onto the ready FIFO in wake order.
func (e *Executor) collectWakes() {
	var woke []int
	for w := range e.woken {
		word := e.woken[w].Swap(0)
		for word != 0 {
			b := bits.TrailingZeros32(word)
			word &^= 1 << b
			woke = append(woke, w*32+b)
		}
	}
	if len(woke) == 0 {
		return
	}
	seq := func(i int) uint32 { return e.slots[i].wokeAt.Load() }
	slices.SortStableFunc(woke, func(a, b int) int {
		sa, sb := seq(a), seq(b)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	})
	for _, idx := range woke {
		s := &e.slots[idx]
		s.wokeAt.Store(0)
		if !s.live || s.queued {
			continue
		}
		s.queued = true
		s.state = Ready
		e.ready.Add(idx)
	}
}

// ---- scheduling ----

// Step performs one unit of work: dispatch one event if any is queued,
// otherwise poll one ready task. It reports false when there was neither.
func (e *Executor) Step() bool {
	if ev, ok := e.evq.Next(); ok {
		e.stats.Events++
		e.reg.Dispatch(ev)
		return true
	}
	e.collectWakes()
	if e.ready.Length() == 0 {
		return false
	}
	e.poll(e.ready.Remove().(int))
	return true
}

func (e *Executor) poll(idx int) {
	s := &e.slots[idx]
	s.queued = false
	if !s.live {
		return
	}
	e.stats.Polls++
	if s.fut.Poll(s.cx) == core.Pending {
		s.state = Suspended
		return
	}
	id := makeID(idx, uint16(s.gen.Load()))
	s.gen.Add(1)
	s.fut, s.cx, s.state, s.live = nil, nil, Completed, false
	e.woken[idx/32].And(^uint32(1 << (idx % 32)))
	s.wokeAt.Store(0)
	e.free = append(e.free, idx)
	e.stats.Completed++
	e.log.Debug("task completed", zap.Uint32("task", uint32(id)))
}

// RunUntilIdle seals the registry and steps until no event is queued and no
// task is ready. It returns the number of steps taken.
func (e *Executor) RunUntilIdle() int {
	e.reg.Seal()
	n := 0
	for e.Step() {
		n++
	}
	return n
}

// Run seals the registry and schedules forever, parking in the idler when
// there is nothing to do. It returns only when ctx is done.
func (e *Executor) Run(ctx context.Context) {
	e.reg.Seal()
	e.log.Info("executor running", zap.Int("tasks", e.Live()), zap.Int("events_per_tier", e.evq.Capacity()))
	for ctx.Err() == nil {
		for e.Step() {
			if ctx.Err() != nil {
				return
			}
		}
		e.stats.Idles++
		e.idle.Wait(ctx)
	}
}
