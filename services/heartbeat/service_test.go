package heartbeat

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicert-go/errcode"
	"devicert-go/services/rt"
)

const board = `
name: heartbeat-test
heap: {size: 4096}
inputs:
  - {name: pa0, gp: 0}
outputs:
  - {name: pc13, gp: 25}
`

func TestHeartbeatToggles(t *testing.T) {
	cfg, err := rt.ParseBoard([]byte(board))
	require.NoError(t, err)
	f := rt.DefaultFactories()
	host, err := rt.InitBoard(cfg, f)
	require.NoError(t, err)
	defer host.Close()

	_, err = New(host, Config{LED: "pa0"}, nil)
	assert.Equal(t, errcode.InvalidConfig, errcode.Of(err), "inputs are rejected")

	// Another task using the clock must not steal the heartbeat's wakeups.
	clock, err := host.Open("event://sys/clock")
	require.NoError(t, err)
	var armed, fired bool
	buf := make([]byte, 8)
	oneShot, err := host.Spawn(rt.FutureFunc(func(cx *rt.Context) rt.Poll {
		if !armed {
			if _, err := host.PollSeek(cx, clock, 1, io.SeekCurrent); err != nil {
				t.Errorf("seek: %v", err)
				return rt.Ready
			}
			armed = true
		}
		if _, err := host.PollRead(cx, clock, buf); rt.IsPending(err) {
			return rt.Pending
		}
		fired = true
		return rt.Ready
	}))
	require.NoError(t, err)

	hb, err := New(host, Config{LED: "pc13", Interval: 5 * time.Millisecond}, nil)
	require.NoError(t, err)
	_, err = host.Spawn(hb)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	host.Run(ctx)

	assert.True(t, fired)
	assert.Equal(t, rt.TaskCompleted, host.TaskState(oneShot))
	assert.GreaterOrEqual(t, hb.Beats(), uint32(3), "waiting: %v", host.Stats().Waiting)
	led, ok := f.Pins.ByNumber(25)
	require.True(t, ok)
	assert.Equal(t, hb.Beats()%2 == 1, led.Get())
}
