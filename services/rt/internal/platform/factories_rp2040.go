//go:build rp2040

package platform

import (
	"device/rp"
	"machine"
	"runtime/volatile"
	"sync"
	"sync/atomic"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"devicert-go/errcode"
	"devicert-go/services/rt/internal/hw"
	"devicert-go/types"
	"devicert-go/x/timex"
)

// Default returns factories over the RP2040 peripherals: GP0..GP28, the
// eight PWM slices and both UARTs (usart1 → UART0, usart2 → UART1).
func Default() Factories {
	return Factories{
		Pins:  rp2PinFactory{},
		PWMs:  rp2PWMFactory{},
		UARTs: rp2UARTFactory{},
	}
}

// ---- GPIO ----

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (hw.GPIOPin, bool) {
	if n < 0 || n > 28 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull types.Pull) error {
	mode := machine.PinInput
	switch pull {
	case types.PullUp:
		mode = machine.PinInputPullup
	case types.PullDown:
		mode = machine.PinInputPulldown
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Number() int    { return r.n }

func (r *rp2Pin) SetIRQ(edge types.Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e types.Edge) machine.PinChange {
	switch e {
	case types.EdgeRising:
		return machine.PinRising
	case types.EdgeFalling:
		return machine.PinFalling
	case types.EdgeBoth:
		return machine.PinToggle
	}
	var zero machine.PinChange
	return zero
}

// ---- PWM ----

// Local interface to avoid depending on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Top() uint32
	Set(channel uint8, value uint32)
}

func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

// Both channels of a slice share its period; the first Configure fixes it.
var sliceFreq struct {
	mu sync.Mutex
	hz [8]uint64
}

type rp2PWMFactory struct{}

func (rp2PWMFactory) PWM(pin int) (hw.PWMChannel, bool) {
	if pin < 0 || pin > 28 {
		return nil, false
	}
	slice, err := machine.PWMPeripheral(machine.Pin(pin))
	if err != nil {
		return nil, false
	}
	return &rp2PWM{
		pin:   pin,
		slice: slice,
		ctrl:  pwmGroupBySlice(slice),
		ch:    uint8(pin & 1), // even pin => A, odd => B
	}, true
}

type rp2PWM struct {
	pin   int
	slice uint8
	ctrl  pwmCtrl
	ch    uint8
}

func (p *rp2PWM) Configure(freqHz uint64) error {
	if freqHz == 0 {
		freqHz = 1
	}
	sliceFreq.mu.Lock()
	defer sliceFreq.mu.Unlock()
	switch cur := sliceFreq.hz[p.slice]; {
	case cur == 0:
		if err := p.ctrl.Configure(machine.PWMConfig{Period: timex.PeriodFromHz(freqHz)}); err != nil {
			return err
		}
		sliceFreq.hz[p.slice] = freqHz
	case cur != freqHz:
		return errcode.New(errcode.InvalidConfig, "pwm.configure", "slice already runs at another frequency")
	}
	machine.Pin(p.pin).Configure(machine.PinConfig{Mode: machine.PinPWM})
	return nil
}

func (p *rp2PWM) Top() uint32     { return p.ctrl.Top() }
func (p *rp2PWM) Set(duty uint32) { p.ctrl.Set(p.ch, duty) }

// ---- UART ----

type rp2UARTFactory struct{}

func (rp2UARTFactory) UART(index int) (hw.UART, bool) {
	switch index {
	case 1:
		return &rp2UART{u: uartx.UART0, rsr: &rp.UART0.UARTRSR}, true
	case 2:
		return &rp2UART{u: uartx.UART1, rsr: &rp.UART1.UARTRSR}, true
	}
	return nil, false
}

// rp2UART adapts uartx to hw.UART. Pins and baud are applied by the board
// builder through Configure. Reads and writes never block: they move what
// the driver rings hold or have room for.
type rp2UART struct {
	u   *uartx.UART
	rsr *volatile.Register32 // PL011 receive status / error clear

	onRx    atomic.Pointer[func()]
	onTx    atomic.Pointer[func()]
	onFault atomic.Pointer[func()]
	once    sync.Once
}

const rsrErrors = rp.UART0_UARTRSR_FE | rp.UART0_UARTRSR_PE | rp.UART0_UARTRSR_BE | rp.UART0_UARTRSR_OE

// Configure applies pins and baud. Defaults inside uartx apply if zero.
func (p *rp2UART) Configure(baud uint32, tx, rx int) error {
	return p.u.Configure(uartx.UARTConfig{
		BaudRate: baud,
		TX:       machine.Pin(tx),
		RX:       machine.Pin(rx),
	})
}

func (p *rp2UART) Read(b []byte) (int, error)  { return p.u.TryRead(b), nil }
func (p *rp2UART) Write(b []byte) (int, error) { return p.u.TryWrite(b), nil }
func (p *rp2UART) Buffered() int               { return p.u.Buffered() }
func (p *rp2UART) SetBaudRate(br uint32)       { p.u.SetBaudRate(br) }

func (p *rp2UART) SetFormat(f types.SerialFormat) error {
	par := uartx.ParityNone
	switch f.Parity {
	case types.ParityEven:
		par = uartx.ParityEven
	case types.ParityOdd:
		par = uartx.ParityOdd
	}
	return p.u.SetFormat(f.DataBits, f.StopBits, par)
}

func (p *rp2UART) NotifyRx(fn func())    { p.onRx.Store(&fn); p.start() }
func (p *rp2UART) NotifyTx(fn func())    { p.onTx.Store(&fn); p.start() }
func (p *rp2UART) NotifyFault(fn func()) { p.onFault.Store(&fn); p.start() }

// start runs one pump per port that turns uartx's readable and writable
// edges into notifications. The driver's interrupt fills and drains the
// rings; the pump only reports readiness. Line errors latched in the
// status register are checked on every receive edge and cleared.
func (p *rp2UART) start() {
	p.once.Do(func() {
		go func() {
			for {
				select {
				case <-p.u.Readable():
					if p.rsr.Get()&rsrErrors != 0 {
						p.rsr.Set(0)
						call(&p.onFault)
					}
					call(&p.onRx)
				case <-p.u.Writable():
					call(&p.onTx)
				}
			}
		}()
	})
}

func call(fp *atomic.Pointer[func()]) {
	if fn := fp.Load(); fn != nil {
		(*fn)()
	}
}
