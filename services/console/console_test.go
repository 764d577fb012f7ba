package console

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicert-go/errcode"
	"devicert-go/services/rt"
	"devicert-go/types"
)

const board = `
name: console-test
heap: {bottom: 0x20010000, size: 65536}
inputs:
  - {name: pa0, gp: 0, edge: rising}
outputs:
  - {name: pc13, gp: 25}
pwm:
  - {name: pa1, gp: 1, freq_hz: 50000}
serial:
  - {port: usart1, baud: 115200}
`

// One runtime per process; the tests drive a single console in sequence.
var (
	host    *rt.Runtime
	factory rt.Factories
)

func TestMain(m *testing.M) {
	cfg, err := rt.ParseBoard([]byte(board))
	if err != nil {
		panic(err)
	}
	factory = rt.DefaultFactories()
	host, err = rt.InitBoard(cfg, factory)
	if err != nil {
		panic(err)
	}
	c, err := New(host, "bus://serial/usart1", nil)
	if err != nil {
		panic(err)
	}
	if _, err := host.Spawn(c); err != nil {
		panic(err)
	}
	host.RunUntilIdle()
	os.Exit(m.Run())
}

type uart interface {
	Inject(b []byte)
	Sent() []byte
}

func port(t *testing.T) uart {
	t.Helper()
	u, ok := factory.UARTs.UART(1)
	require.True(t, ok)
	return u.(uart)
}

// send runs one command line and returns the reply without the prompt.
func send(t *testing.T, line string) string {
	t.Helper()
	p := port(t)
	p.Sent()
	p.Inject([]byte(line + "\r\n"))
	host.RunUntilIdle()
	return strings.TrimSuffix(string(p.Sent()), prompt)
}

func TestHelpAndList(t *testing.T) {
	assert.Contains(t, send(t, "help"), "write <locator> <value>")
	assert.Equal(t, "sys/heap\r\nsys/clock\r\ngpio/pa0\r\ngpio/pc13\r\npwm/pa1\r\nserial/usart1\r\n", send(t, "list"))
}

func TestWriteThenRead(t *testing.T) {
	assert.Equal(t, "ok\r\n", send(t, "write percent://pwm/pa1 40"))
	assert.Equal(t, "ok 40\r\n", send(t, "read percent://pwm/pa1"))
	assert.Equal(t, "ok 2499\r\n", send(t, "read analog://pwm/pa1/maxduty"))

	assert.Equal(t, "ok\r\n", send(t, "write digital://gpio/pc13 1"))
	assert.Equal(t, "ok 1\r\n", send(t, "read digital://gpio/pc13"))
}

func TestErrorsAreReported(t *testing.T) {
	assert.Contains(t, send(t, "read digital://gpio/pz9"), "error: registry.open: resource_not_found")
	assert.Contains(t, send(t, "write percent://pwm/pa1 101"), "invalid_input")
	assert.Contains(t, send(t, "frobnicate"), "unknown command")
	assert.Contains(t, send(t, `read "unterminated`), "invalid_input")
}

func TestReadWaitsForEvent(t *testing.T) {
	assert.Equal(t, "", send(t, "read event://gpio/pa0"), "parked until an edge")

	pins := factory.Pins
	p, ok := pins.ByNumber(0)
	require.True(t, ok)
	p.(interface{ Drive(bool) }).Drive(true)
	host.RunUntilIdle()
	assert.Equal(t, "ok 1\r\n"+prompt, string(port(t).Sent()))
}

func TestMemoryRead(t *testing.T) {
	out := send(t, "read memory://sys/heap")
	assert.True(t, strings.HasPrefix(out, "ok allocs="), out)
	assert.Contains(t, out, "size=65536")
}

func TestEncode(t *testing.T) {
	b, err := encode(types.Analog, "1000")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe8, 0x03}, b)

	_, err = encode(types.Sys, "1")
	assert.Equal(t, errcode.Unsupported, errcode.Of(err))
}
