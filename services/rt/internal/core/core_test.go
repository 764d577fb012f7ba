package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicert-go/errcode"
	"devicert-go/types"
)

type recordingWaits map[types.Event][]Waker

func (r recordingWaits) RegisterWaker(ev types.Event, w Waker) { r[ev] = append(r[ev], w) }

func TestWaitForRegistersAndReturnsPending(t *testing.T) {
	waits := recordingWaits{}
	woken := 0
	cx := NewContext(WakerFunc(func() { woken++ }), waits)
	cfg := NewConfig(types.ResourceID{Scheme: types.EventScheme}, cx)

	err := cfg.WaitFor(types.GPIOEvent(4))
	require.True(t, IsPending(err))
	require.Len(t, waits[types.GPIOEvent(4)], 1)
	waits[types.GPIOEvent(4)][0].Wake()
	assert.Equal(t, 1, woken)
}

func TestWaitForWithoutContext(t *testing.T) {
	cfg := NewConfig(types.ResourceID{}, nil)
	assert.True(t, IsPending(cfg.WaitFor(types.SysTick)))
}

func TestBaseDefaults(t *testing.T) {
	var b Base
	_, err := b.PollSeek(Config{}, 0, 0)
	assert.Equal(t, errcode.Unsupported, errcode.Of(err))
	assert.NoError(t, b.PollFlush(Config{}))
	assert.NoError(t, b.PollClose(Config{}))
}

func TestWireHelpers(t *testing.T) {
	buf := make([]byte, 8)
	n, err := PutU16("t", buf, 0x1234)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0x34, 0x12}, buf[:2])

	_, err = PutU64("t", buf[:4], 1)
	assert.Equal(t, errcode.InvalidInput, errcode.Of(err))

	v, err := U16("t", []byte{0xe8, 0x03})
	require.NoError(t, err)
	assert.Equal(t, uint16(1000), v)

	_, err = U16("t", []byte{1})
	assert.Equal(t, errcode.InvalidInput, errcode.Of(err))

	assert.NoError(t, ExpectMin("t", buf, 8))
	assert.Equal(t, errcode.InvalidInput, errcode.Of(ExpectMin("t", buf[:7], 8)))
}

func TestContextOwner(t *testing.T) {
	var none *Context
	assert.Equal(t, uint64(0), none.Owner())
	assert.Equal(t, uint64(0), NewContext(WakerFunc(func() {}), nil).Owner())
	assert.Equal(t, uint64(7), NewTaskContext(7, WakerFunc(func() {}), nil).Owner())
}
