package sysres

import (
	"io"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicert-go/errcode"
	"devicert-go/services/rt/internal/core"
	"devicert-go/services/rt/internal/hw"
	"devicert-go/types"
)

type fixedHeap hw.HeapStats

func (f fixedHeap) HeapStats() hw.HeapStats { return hw.HeapStats(f) }

type fakeAlarm struct {
	armedFor time.Duration
	fire     func()
	cancels  int
}

func (a *fakeAlarm) Arm(d time.Duration, fire func()) { a.armedFor, a.fire = d, fire }
func (a *fakeAlarm) Cancel()                          { a.cancels++; a.fire = nil }

type sinkFunc func(types.Event)

func (f sinkFunc) Interrupt(ev types.Event) { f(ev) }

type waits map[types.Event]int

func (w waits) RegisterWaker(ev types.Event, _ core.Waker) { w[ev]++ }

func cfg(s types.Scheme, w waits) core.Config {
	var cx *core.Context
	if w != nil {
		cx = core.NewContext(core.WakerFunc(func() {}), w)
	}
	return core.NewConfig(types.ResourceID{Scheme: s}, cx)
}

func TestHeapSysRead(t *testing.T) {
	h := NewHeap(hw.HeapRegion{Bottom: 0x20000000, Size: 4096}, fixedHeap{Used: 1000, Free: 3096})
	buf := make([]byte, 8)
	n, err := h.PollRead(cfg(types.Sys, nil), buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{0xe8, 0x03, 0, 0, 0x18, 0x0c, 0, 0}, buf)

	_, err = h.PollRead(cfg(types.Sys, nil), make([]byte, 4))
	assert.Equal(t, errcode.InvalidInput, errcode.Of(err))
}

func TestHeapMemoryReadIsCBOR(t *testing.T) {
	h := NewHeap(hw.HeapRegion{Bottom: 0x20000000, Size: 4096}, fixedHeap{Used: 10, Free: 4086, Allocs: 3, Frees: 1})
	buf := make([]byte, 128)
	n, err := h.PollRead(cfg(types.Memory, nil), buf)
	require.NoError(t, err)

	var got map[string]uint64
	require.NoError(t, cbor.Unmarshal(buf[:n], &got))
	assert.Equal(t, map[string]uint64{
		"bottom": 0x20000000, "size": 4096, "used": 10, "free": 4086, "allocs": 3, "frees": 1,
	}, got)

	_, err = h.PollRead(cfg(types.Memory, nil), make([]byte, 4))
	assert.Equal(t, errcode.InvalidInput, errcode.Of(err))
}

func TestHeapRejectsWrites(t *testing.T) {
	h := NewHeap(hw.HeapRegion{}, fixedHeap{})
	_, err := h.PollWrite(cfg(types.Sys, nil), []byte{0})
	assert.Equal(t, errcode.Unsupported, errcode.Of(err))
}

func TestClockUptimeIsMonotonic(t *testing.T) {
	c := NewClock(&fakeAlarm{}, sinkFunc(func(types.Event) {}), types.TimerEvent(0))
	a, b := make([]byte, 8), make([]byte, 8)
	_, err := c.PollRead(cfg(types.Sys, nil), a)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = c.PollRead(cfg(types.Sys, nil), b)
	require.NoError(t, err)
	assert.Less(t, leU64(a), leU64(b))
}

func TestClockAlarm(t *testing.T) {
	alarm := &fakeAlarm{}
	var raised []types.Event
	ev := types.TimerEvent(0)
	c := NewClock(alarm, sinkFunc(func(e types.Event) { raised = append(raised, e) }), ev)

	w := waits{}
	buf := make([]byte, 8)
	_, err := c.PollRead(cfg(types.EventScheme, w), buf)
	assert.Equal(t, errcode.InvalidInput, errcode.Of(err), "no alarm armed")
	assert.Empty(t, w, "nothing would wake an unarmed reader")

	_, err = c.PollSeek(cfg(types.Sys, nil), 5, io.SeekCurrent)
	require.NoError(t, err)
	assert.Greater(t, alarm.armedFor, time.Duration(0))
	assert.LessOrEqual(t, alarm.armedFor, 5*time.Millisecond)

	_, err = c.PollRead(cfg(types.EventScheme, w), buf)
	require.True(t, core.IsPending(err), "deadline not reached")
	assert.Equal(t, 1, w[ev])

	time.Sleep(10 * time.Millisecond)
	alarm.fire()
	assert.Equal(t, []types.Event{ev}, raised)

	n, err := c.PollRead(cfg(types.EventScheme, w), buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 0, c.Pending())

	_, err = c.PollRead(cfg(types.EventScheme, w), buf)
	assert.Equal(t, errcode.InvalidInput, errcode.Of(err), "deadline is consumed by the read")

	_, err = c.PollRead(cfg(types.EventScheme, w), make([]byte, 4))
	assert.Equal(t, errcode.InvalidInput, errcode.Of(err))
}

func ownerCfg(owner uint64, s types.Scheme, w waits) core.Config {
	return core.NewConfig(types.ResourceID{Scheme: s}, core.NewTaskContext(owner, core.WakerFunc(func() {}), w))
}

func TestClockDeadlinesArePerTask(t *testing.T) {
	alarm := &fakeAlarm{}
	ev := types.TimerEvent(0)
	c := NewClock(alarm, sinkFunc(func(types.Event) {}), ev)
	w := waits{}
	buf := make([]byte, 8)
	const short, long = 1, 2

	_, err := c.PollSeek(ownerCfg(long, types.EventScheme, nil), 20, io.SeekCurrent)
	require.NoError(t, err)
	_, err = c.PollSeek(ownerCfg(short, types.EventScheme, nil), 2, io.SeekCurrent)
	require.NoError(t, err)
	assert.LessOrEqual(t, alarm.armedFor, 2*time.Millisecond, "alarm follows the earliest deadline")
	assert.Equal(t, 2, c.Pending(), "a second seek keeps the first deadline")

	for _, o := range []uint64{short, long} {
		_, err = c.PollRead(ownerCfg(o, types.EventScheme, w), buf)
		require.True(t, core.IsPending(err))
	}

	// The early alarm fires and wakes both; the long reader goes back to
	// waiting and the alarm moves on to its deadline.
	time.Sleep(5 * time.Millisecond)
	alarm.fire()
	_, err = c.PollRead(ownerCfg(long, types.EventScheme, w), buf)
	require.True(t, core.IsPending(err))
	_, err = c.PollRead(ownerCfg(short, types.EventScheme, w), buf)
	require.NoError(t, err)
	assert.Greater(t, alarm.armedFor, time.Duration(0))
	assert.LessOrEqual(t, alarm.armedFor, 18*time.Millisecond)
	require.NotNil(t, alarm.fire)

	time.Sleep(20 * time.Millisecond)
	alarm.fire()
	_, err = c.PollRead(ownerCfg(long, types.EventScheme, w), buf)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Pending())
}

func TestClockCloseDropsOnlyCallersDeadline(t *testing.T) {
	alarm := &fakeAlarm{}
	c := NewClock(alarm, sinkFunc(func(types.Event) {}), types.TimerEvent(0))
	_, err := c.PollSeek(ownerCfg(1, types.Sys, nil), 50, io.SeekCurrent)
	require.NoError(t, err)
	_, err = c.PollSeek(ownerCfg(2, types.Sys, nil), 100, io.SeekCurrent)
	require.NoError(t, err)

	require.NoError(t, c.PollClose(ownerCfg(1, types.Sys, nil)))
	assert.Equal(t, 1, c.Pending())
	assert.Greater(t, alarm.armedFor, 50*time.Millisecond, "alarm moved to the remaining deadline")
	assert.Equal(t, 0, alarm.cancels)

	require.NoError(t, c.PollClose(ownerCfg(2, types.Sys, nil)))
	assert.Equal(t, 1, alarm.cancels)
}

func TestClockDeadlineTableIsBounded(t *testing.T) {
	c := NewClock(&fakeAlarm{}, sinkFunc(func(types.Event) {}), types.TimerEvent(0))
	for o := uint64(1); o <= MaxDeadlines; o++ {
		_, err := c.PollSeek(ownerCfg(o, types.Sys, nil), 1000, io.SeekCurrent)
		require.NoError(t, err)
	}
	_, err := c.PollSeek(ownerCfg(MaxDeadlines+1, types.Sys, nil), 1000, io.SeekCurrent)
	assert.Equal(t, errcode.InvalidInput, errcode.Of(err))

	// Re-seeking an existing entry is always allowed.
	_, err = c.PollSeek(ownerCfg(1, types.Sys, nil), 10, io.SeekCurrent)
	assert.NoError(t, err)
}

func TestClockSeekAbsoluteInPastIsReadyAtOnce(t *testing.T) {
	c := NewClock(&fakeAlarm{}, sinkFunc(func(types.Event) {}), types.TimerEvent(0))
	at, err := c.PollSeek(cfg(types.Sys, nil), 0, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(0), at)
	_, err = c.PollRead(cfg(types.EventScheme, nil), make([]byte, 8))
	assert.NoError(t, err)
}

func TestClockSeekErrors(t *testing.T) {
	alarm := &fakeAlarm{}
	c := NewClock(alarm, sinkFunc(func(types.Event) {}), types.TimerEvent(0))
	_, err := c.PollSeek(cfg(types.Sys, nil), 0, io.SeekEnd)
	assert.Equal(t, errcode.InvalidInput, errcode.Of(err))
	_, err = c.PollSeek(cfg(types.Sys, nil), -1, io.SeekStart)
	assert.Equal(t, errcode.InvalidInput, errcode.Of(err))
	_, err = c.PollSeek(cfg(types.Digital, nil), 1, io.SeekStart)
	assert.Equal(t, errcode.Unsupported, errcode.Of(err))
	assert.Equal(t, 0, c.Pending())
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
