//go:build !rp2040

package platform

import (
	"sync"

	"devicert-go/services/rt/internal/hw"
	"devicert-go/types"
)

// Default returns host factories with fake pins GP0..GP29, a PWM channel on
// every pin and three UARTs.
func Default() Factories {
	return Factories{
		Pins:  NewPinFactory(),
		PWMs:  NewPWMFactory(),
		UARTs: NewUARTFactory(3),
	}
}

// ----------------------------- GPIO (host) -----------------------------------

const hostMaxPin = 29

// FakePin implements hw.IRQPin for host-side tests. Drive simulates an
// external level change; Set is the output path. Both fire the IRQ handler
// when the edge matches.
type FakePin struct {
	mu      sync.Mutex
	number  int
	level   bool
	out     bool
	pull    types.Pull
	irqEdge types.Edge
	irqFunc func()
	sets    int
}

func (p *FakePin) ConfigureInput(pull types.Pull) error {
	p.mu.Lock()
	p.out, p.pull = false, pull
	p.level = pull == types.PullUp
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.out, p.level = true, initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.sets++
	p.mu.Unlock()
	p.change(level)
}

// Drive changes the level as if from outside the chip.
func (p *FakePin) Drive(level bool) { p.change(level) }

func (p *FakePin) change(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	p.mu.Unlock()
	if want && irq != nil {
		irq()
	}
}

func (p *FakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *FakePin) Number() int { return p.number }

// IsOutput reports the configured direction.
func (p *FakePin) IsOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out
}

// Sets counts calls to Set.
func (p *FakePin) Sets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sets
}

func (p *FakePin) SetIRQ(edge types.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge, p.irqFunc = edge, handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge, p.irqFunc = types.EdgeNone, nil
	p.mu.Unlock()
	return nil
}

func edgeFrom(old, new bool) types.Edge {
	switch {
	case !old && new:
		return types.EdgeRising
	case old && !new:
		return types.EdgeFalling
	default:
		return types.EdgeNone
	}
}

func irqWanted(cfg, seen types.Edge) bool {
	if seen == types.EdgeNone {
		return false
	}
	return cfg == types.EdgeBoth || cfg == seen
}

// PinFactory returns stable *FakePin instances per number.
type PinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewPinFactory() *PinFactory { return &PinFactory{pins: make(map[int]*FakePin)} }

func (f *PinFactory) ByNumber(n int) (hw.GPIOPin, bool) {
	p := f.Pin(n)
	if p == nil {
		return nil, false
	}
	return p, true
}

// Pin exposes the underlying *FakePin (nil when out of range).
func (f *PinFactory) Pin(n int) *FakePin {
	if n < 0 || n > hostMaxPin {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{number: n}
		f.pins[n] = p
	}
	return p
}

// ----------------------------- PWM (host) ------------------------------------

const hostPWMClockHz = 125_000_000

// FakePWM records the compare value; Top follows the RP2040 formula for
// the configured frequency with no clock divider, capped at 16 bits.
type FakePWM struct {
	mu     sync.Mutex
	freqHz uint64
	top    uint32
	duty   uint32
	writes int
}

func (p *FakePWM) Configure(freqHz uint64) error {
	if freqHz == 0 {
		freqHz = 1
	}
	top := uint64(hostPWMClockHz)/freqHz - 1
	if top > 0xffff {
		top = 0xffff
	}
	p.mu.Lock()
	p.freqHz, p.top = freqHz, uint32(top)
	p.mu.Unlock()
	return nil
}

func (p *FakePWM) Top() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.top
}

func (p *FakePWM) Set(duty uint32) {
	p.mu.Lock()
	p.duty = duty
	p.writes++
	p.mu.Unlock()
}

func (p *FakePWM) Duty() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duty
}

// Writes counts calls to Set.
func (p *FakePWM) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

type PWMFactory struct {
	mu    sync.Mutex
	chans map[int]*FakePWM
}

func NewPWMFactory() *PWMFactory { return &PWMFactory{chans: make(map[int]*FakePWM)} }

func (f *PWMFactory) PWM(pin int) (hw.PWMChannel, bool) {
	c := f.Channel(pin)
	if c == nil {
		return nil, false
	}
	return c, true
}

func (f *PWMFactory) Channel(pin int) *FakePWM {
	if pin < 0 || pin > hostMaxPin {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chans[pin]
	if !ok {
		c = &FakePWM{}
		f.chans[pin] = c
	}
	return c
}

// ----------------------------- UART (host) -----------------------------------

// FakeUART is an in-memory port. Inject feeds received bytes and fires the
// RX notification; TX accepts up to TxRoom bytes per write when limited.
type FakeUART struct {
	mu      sync.Mutex
	rx      []byte
	tx      []byte
	txRoom  int // <0 unlimited
	onRx    func()
	onTx    func()
	onFault func()
	baud    uint32
	format  types.SerialFormat
}

func NewFakeUART() *FakeUART { return &FakeUART{txRoom: -1} }

func (u *FakeUART) Read(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := copy(p, u.rx)
	u.rx = u.rx[n:]
	return n, nil
}

func (u *FakeUART) Write(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := len(p)
	if u.txRoom >= 0 && n > u.txRoom {
		n = u.txRoom
	}
	u.tx = append(u.tx, p[:n]...)
	if u.txRoom >= 0 {
		u.txRoom -= n
	}
	return n, nil
}

func (u *FakeUART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.rx)
}

func (u *FakeUART) NotifyRx(fn func()) {
	u.mu.Lock()
	u.onRx = fn
	u.mu.Unlock()
}

func (u *FakeUART) SetBaudRate(br uint32) {
	u.mu.Lock()
	u.baud = br
	u.mu.Unlock()
}

func (u *FakeUART) SetFormat(f types.SerialFormat) error {
	u.mu.Lock()
	u.format = f
	u.mu.Unlock()
	return nil
}

// Inject appends bytes to the receive buffer and signals RX.
func (u *FakeUART) Inject(b []byte) {
	u.mu.Lock()
	u.rx = append(u.rx, b...)
	fn := u.onRx
	u.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Sent drains and returns everything written so far.
func (u *FakeUART) Sent() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := u.tx
	u.tx = nil
	return out
}

func (u *FakeUART) NotifyTx(fn func()) {
	u.mu.Lock()
	u.onTx = fn
	u.mu.Unlock()
}

// SetTxRoom limits how many more bytes writes accept; n < 0 removes the
// limit. Opening room fires the TX notification.
func (u *FakeUART) SetTxRoom(n int) {
	u.mu.Lock()
	u.txRoom = n
	fn := u.onTx
	u.mu.Unlock()
	if n != 0 && fn != nil {
		fn()
	}
}

func (u *FakeUART) NotifyFault(fn func()) {
	u.mu.Lock()
	u.onFault = fn
	u.mu.Unlock()
}

// InjectFault reports a line error, as a framing or overrun interrupt would.
func (u *FakeUART) InjectFault() {
	u.mu.Lock()
	fn := u.onFault
	u.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (u *FakeUART) Baud() uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.baud
}

// UARTFactory serves ports by 1-based index (usart1 is index 1).
type UARTFactory struct {
	ports []*FakeUART
}

func NewUARTFactory(n int) *UARTFactory {
	f := &UARTFactory{ports: make([]*FakeUART, n)}
	for i := range f.ports {
		f.ports[i] = NewFakeUART()
	}
	return f
}

func (f *UARTFactory) UART(index int) (hw.UART, bool) {
	p := f.Port(index)
	if p == nil {
		return nil, false
	}
	return p, true
}

func (f *UARTFactory) Port(index int) *FakeUART {
	if index < 1 || index > len(f.ports) {
		return nil
	}
	return f.ports[index-1]
}
