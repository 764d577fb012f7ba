package board

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"devicert-go/errcode"
	"devicert-go/services/rt/internal/hw"
	"devicert-go/services/rt/internal/platform"
	"devicert-go/services/rt/internal/registry"
	"devicert-go/types"
)

const sample = `
name: test-board
heap: {bottom: 0x20010000, size: 65536}
events_per_priority: 8
inputs:
  - {name: pa0, gp: 0, pull: up, edge: falling, active_low: true}
  - {name: pb1, gp: 1}
outputs:
  - {name: pc13, gp: 25, initial: true}
pwm:
  - {name: pa1, gp: 2, freq_hz: 50000, initial: 10}
  - {name: pa3, gp: 3}
serial:
  - {port: USART1, baud: 115200, tx: 0, rx: 1}
`

type recorder struct {
	mu  sync.Mutex
	evs []types.Event
}

func (r *recorder) Interrupt(ev types.Event) {
	r.mu.Lock()
	r.evs = append(r.evs, ev)
	r.mu.Unlock()
}

func (r *recorder) events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Event(nil), r.evs...)
}

type fixedHeap struct{}

func (fixedHeap) HeapStats() hw.HeapStats { return hw.HeapStats{} }

func TestParseRejectsDuplicatesAndUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("pwm:\n  - {name: pa1, gp: 2}\n  - {name: PA1, gp: 3}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate pwm pa1")

	_, err = Parse([]byte("name: x\nbogus: 1\n"))
	assert.Equal(t, errcode.InvalidConfig, errcode.Of(err))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	c := Config{
		Events:  -1,
		Inputs:  []InputConfig{{Name: "zz9"}},
		Outputs: []OutputConfig{{Name: "pa0"}, {Name: "pa0"}},
		PWM:     []PWMConfig{{Name: "pa2", Initial: 150}},
		Serial:  []SerialConfig{{Port: "usart9"}},
	}
	errs := multierr.Errors(c.Validate())
	assert.Len(t, errs, 5)
	for _, err := range errs {
		assert.Equal(t, errcode.InvalidConfig, errcode.Of(err))
	}
}

func buildSample(t *testing.T) (*Board, *registry.Registry, platform.Factories, *recorder) {
	t.Helper()
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Events)
	assert.Equal(t, uint32(65536), cfg.Heap.Size)

	reg := registry.New()
	f := platform.Default()
	rec := &recorder{}
	b, err := Build(cfg, reg, Env{Factories: f, Sink: rec, Heap: fixedHeap{}})
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b, reg, f, rec
}

func TestBuildInstallsInCategoryArrays(t *testing.T) {
	b, reg, _, _ := buildSample(t)
	assert.Len(t, b.Installed, 8)
	assert.Equal(t, []string{
		"sys/heap", "sys/clock",
		"gpio/pa0", "gpio/pb1",
		"gpio/pc13",
		"pwm/pa1", "pwm/pa3",
		"serial/usart1",
	}, reg.Locators())

	for _, loc := range []string{"digital://gpio/pa0", "percent://pwm/pa1", "sys://sys/heap", "bus://serial/uart1"} {
		_, err := reg.Open(loc)
		assert.NoError(t, err, loc)
	}
}

func TestBuildBindsPinInterrupts(t *testing.T) {
	_, _, f, rec := buildSample(t)
	pins := f.Pins.(*platform.PinFactory)

	pins.Pin(0).Drive(false) // pulled up, falling edge armed
	pins.Pin(0).Drive(true)
	pins.Pin(1).Drive(true) // no edge configured
	assert.Equal(t, []types.Event{types.GPIOEvent(0)}, rec.events())
}

func TestBuildBindsSerialRx(t *testing.T) {
	_, _, f, rec := buildSample(t)
	port := f.UARTs.(*platform.UARTFactory).Port(1)
	assert.Equal(t, uint32(115200), port.Baud())

	port.Inject([]byte("x"))
	port.InjectFault()
	assert.Equal(t, []types.Event{types.SerialRxEvent(0), types.SerialFaultEvent(0)}, rec.events())
}

func TestBuildReportsUnknownPinAndContinues(t *testing.T) {
	cfg := Config{
		Outputs: []OutputConfig{{Name: "pa0", GP: 99}, {Name: "pa1", GP: 1}},
		Clock:   ClockConfig{Disabled: true},
	}
	reg := registry.New()
	b, err := Build(cfg, reg, Env{Factories: platform.Default(), Sink: &recorder{}, Heap: fixedHeap{}})
	assert.Equal(t, errcode.UnknownPin, errcode.Of(err))
	require.NotNil(t, b)
	assert.Equal(t, []string{"sys/heap", "gpio/pa1"}, reg.Locators())
}

func TestBuildAfterSealFails(t *testing.T) {
	reg := registry.New()
	reg.Seal()
	_, err := Build(Config{Clock: ClockConfig{Disabled: true}}, reg,
		Env{Factories: platform.Default(), Sink: &recorder{}, Heap: fixedHeap{}})
	assert.Equal(t, errcode.Sealed, errcode.Of(err))
}
