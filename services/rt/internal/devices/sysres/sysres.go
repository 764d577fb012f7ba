// Package sysres implements the system resources: the heap accounting view
// (sys/heap) and the uptime clock with its one-shot alarm (sys/clock).
package sysres

import (
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"devicert-go/errcode"
	"devicert-go/services/rt/internal/core"
	"devicert-go/services/rt/internal/hw"
	"devicert-go/services/rt/internal/irq"
	"devicert-go/services/rt/internal/locator"
	"devicert-go/types"
	"devicert-go/x/timex"
)

// ---- heap ----

// HeapSnapshot is the Memory-scheme payload, encoded as a CBOR map.
type HeapSnapshot struct {
	Bottom uint64 `cbor:"bottom"`
	Size   uint32 `cbor:"size"`
	Used   uint32 `cbor:"used"`
	Free   uint32 `cbor:"free"`
	Allocs uint32 `cbor:"allocs"`
	Frees  uint32 `cbor:"frees"`
}

type Heap struct {
	core.Base
	region hw.HeapRegion
	src    hw.HeapSource
}

func NewHeap(region hw.HeapRegion, src hw.HeapSource) *Heap {
	return &Heap{region: region, src: src}
}

func (h *Heap) Path() locator.RawPath { return locator.Heap() }

func (h *Heap) Snapshot() HeapSnapshot {
	st := h.src.HeapStats()
	return HeapSnapshot{
		Bottom: uint64(h.region.Bottom),
		Size:   h.region.Size,
		Used:   st.Used,
		Free:   st.Free,
		Allocs: st.Allocs,
		Frees:  st.Frees,
	}
}

func (h *Heap) PollRead(cfg core.Config, buf []byte) (int, error) {
	const op = "sys.heap.read"
	switch cfg.Scheme {
	case types.Sys:
		if len(buf) < 8 {
			return core.PutU64(op, buf, 0)
		}
		st := h.src.HeapStats()
		core.PutU32(op, buf[0:4], st.Used)
		core.PutU32(op, buf[4:8], st.Free)
		return 8, nil
	case types.Memory:
		enc, err := cbor.Marshal(h.Snapshot())
		if err != nil {
			return 0, errcode.Wrap(errcode.IOError, op, err)
		}
		if len(buf) < len(enc) {
			return 0, errcode.New(errcode.InvalidInput, op, "buffer too small for snapshot")
		}
		return copy(buf, enc), nil
	}
	return 0, core.Unsupported(op, cfg.Scheme)
}

func (h *Heap) PollWrite(cfg core.Config, _ []byte) (int, error) {
	return 0, core.Unsupported("sys.heap.write", cfg.Scheme)
}

// ---- clock ----

// MaxDeadlines bounds the clock's deadline table: one entry per task that
// has seeked and not yet consumed its deadline.
const MaxDeadlines = 32

// Clock reports uptime and keeps one alarm deadline per polling task.
// Seeking sets the caller's deadline; an Event read completes once the
// caller's own deadline has passed. The hardware alarm is kept on the
// earliest future deadline, so every waiter is woken at or after its own.
type Clock struct {
	core.Base
	alarm   hw.Alarm
	sink    irq.Sink
	ev      types.Event
	due     map[uint64]time.Duration // context owner -> uptime deadline
	alarmAt time.Duration            // deadline the alarm is set for, 0 if idle
}

// NewClock raises ev through sink whenever the alarm fires.
func NewClock(alarm hw.Alarm, sink irq.Sink, ev types.Event) *Clock {
	return &Clock{alarm: alarm, sink: sink, ev: ev, due: make(map[uint64]time.Duration)}
}

func (c *Clock) Path() locator.RawPath { return locator.Clock() }

// Event is the interrupt source the alarm raises.
func (c *Clock) Event() types.Event { return c.ev }

// Pending is the number of deadlines not yet consumed.
func (c *Clock) Pending() int { return len(c.due) }

// PollRead: Sys is uptime in microseconds. Event completes with the uptime
// once the caller's deadline has passed and clears it; without a deadline
// it fails, since nothing would ever wake the caller.
func (c *Clock) PollRead(cfg core.Config, buf []byte) (int, error) {
	const op = "sys.clock.read"
	switch cfg.Scheme {
	case types.Sys:
		return core.PutU64(op, buf, timex.UptimeMicros())
	case types.EventScheme:
		if err := core.ExpectMin(op, buf, 8); err != nil {
			return 0, err
		}
		owner := cfg.Context().Owner()
		at, ok := c.due[owner]
		if !ok {
			return 0, errcode.New(errcode.InvalidInput, op, "no alarm armed; seek first")
		}
		now := timex.Uptime()
		if now < at {
			c.rearm(now)
			return 0, cfg.WaitFor(c.ev)
		}
		delete(c.due, owner)
		c.rearm(now)
		return core.PutU64(op, buf, uint64(now/time.Microsecond))
	}
	return 0, core.Unsupported(op, cfg.Scheme)
}

func (c *Clock) PollWrite(cfg core.Config, _ []byte) (int, error) {
	return 0, core.Unsupported("sys.clock.write", cfg.Scheme)
}

// PollSeek sets the caller's deadline in milliseconds: io.SeekStart is an
// absolute uptime, io.SeekCurrent is relative to now. Seeking again
// replaces only the caller's own deadline. It returns the deadline.
func (c *Clock) PollSeek(cfg core.Config, offset int64, whence int) (int64, error) {
	const op = "sys.clock.seek"
	if cfg.Scheme != types.Sys && cfg.Scheme != types.EventScheme {
		return 0, core.Unsupported(op, cfg.Scheme)
	}
	now := timex.Uptime()
	var at time.Duration
	switch whence {
	case io.SeekStart:
		at = time.Duration(offset) * time.Millisecond
	case io.SeekCurrent:
		at = now.Truncate(time.Millisecond) + time.Duration(offset)*time.Millisecond
	default:
		return 0, errcode.New(errcode.InvalidInput, op, "whence must be start or current")
	}
	if at < 0 {
		return 0, errcode.New(errcode.InvalidInput, op, "deadline before boot")
	}
	owner := cfg.Context().Owner()
	if _, ok := c.due[owner]; !ok && len(c.due) >= MaxDeadlines {
		c.dropExpired(now)
		if len(c.due) >= MaxDeadlines {
			return 0, errcode.New(errcode.InvalidInput, op, "too many alarms armed")
		}
	}
	c.due[owner] = at
	c.rearm(now)
	return int64(at / time.Millisecond), nil
}

// PollClose drops the caller's deadline.
func (c *Clock) PollClose(cfg core.Config) error {
	delete(c.due, cfg.Context().Owner())
	c.rearm(timex.Uptime())
	return nil
}

// rearm keeps the alarm on the earliest deadline still in the future.
// Deadlines already passed need no alarm: their readers complete on the
// next read.
func (c *Clock) rearm(now time.Duration) {
	var next time.Duration
	for _, at := range c.due {
		if at > now && (next == 0 || at < next) {
			next = at
		}
	}
	switch {
	case next == 0:
		if c.alarmAt != 0 {
			c.alarm.Cancel()
			c.alarmAt = 0
		}
	case next != c.alarmAt:
		c.alarmAt = next
		ev, sink := c.ev, c.sink
		c.alarm.Arm(next-now, func() { sink.Interrupt(ev) })
	}
}

// dropExpired forgets deadlines that have passed without being read. Only
// used when the table is full.
func (c *Clock) dropExpired(now time.Duration) {
	for owner, at := range c.due {
		if at <= now {
			delete(c.due, owner)
		}
	}
}
