package board

import (
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"devicert-go/errcode"
	"devicert-go/services/rt/internal/core"
	"devicert-go/services/rt/internal/devices/gpio"
	"devicert-go/services/rt/internal/devices/pwm"
	"devicert-go/services/rt/internal/devices/serial"
	"devicert-go/services/rt/internal/devices/sysres"
	"devicert-go/services/rt/internal/hw"
	"devicert-go/services/rt/internal/irq"
	"devicert-go/services/rt/internal/locator"
	"devicert-go/services/rt/internal/platform"
	"devicert-go/services/rt/internal/rtlog"
	"devicert-go/types"
)

// Target is the setup-phase surface of the registry.
type Target interface {
	Install(c types.Category, res core.Resource) (types.IndexedPath, error)
	AssociateInterrupt(p types.IndexedPath, src types.Event) error
}

// Env supplies the hardware a board is built on.
type Env struct {
	Factories platform.Factories
	Sink      irq.Sink
	Heap      hw.HeapSource // nil → runtime accounting over Config.Heap
	Alarm     hw.Alarm      // nil → hw.TimerAlarm
}

// portConfigurer is implemented by MCU UARTs that need pins and baud applied.
type portConfigurer interface {
	Configure(baud uint32, tx, rx int) error
}

// Board is the result of a build: what was installed, and the interrupt
// bindings to release on Close.
type Board struct {
	Name      string
	Installed []Installed
	unbind    []func()
}

type Installed struct {
	At   types.IndexedPath
	Path locator.RawPath
}

// Close disarms every interrupt the build armed.
func (b *Board) Close() {
	for _, f := range b.unbind {
		f()
	}
	b.unbind = nil
}

type builder struct {
	t    Target
	env  Env
	b    *Board
	errs error
	log  *zap.Logger
}

// Build installs every resource in cfg into t. Resources are installed in
// the order they appear; a failing entry is skipped and reported, and the
// rest of the board is still built.
func Build(cfg Config, t Target, env Env) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if env.Alarm == nil {
		env.Alarm = &hw.TimerAlarm{}
	}
	if env.Heap == nil {
		env.Heap = platform.RuntimeHeap{Region: cfg.Heap.Region()}
	}
	bl := &builder{t: t, env: env, b: &Board{Name: cfg.Name}, log: rtlog.Named("board")}

	bl.system(cfg)
	for i, in := range cfg.Inputs {
		bl.input(i, in)
	}
	for i, out := range cfg.Outputs {
		bl.output(i, out)
	}
	for i, p := range cfg.PWM {
		bl.pwm(i, p)
	}
	for i, s := range cfg.Serial {
		bl.serial(i, s)
	}
	bl.log.Info("board built", zap.String("name", cfg.Name),
		zap.Int("resources", len(bl.b.Installed)), zap.Int("irqs", len(bl.b.unbind)))
	return bl.b, bl.errs
}

func (bl *builder) fail(where string, err error) {
	bl.log.Error("board entry skipped", zap.String("entry", where), zap.Error(err))
	bl.errs = multierr.Append(bl.errs, err)
}

func (bl *builder) install(c types.Category, res core.Resource, events ...types.Event) (types.IndexedPath, error) {
	at, err := bl.t.Install(c, res)
	if err != nil {
		return at, err
	}
	for _, ev := range events {
		if err := bl.t.AssociateInterrupt(at, ev); err != nil {
			return at, err
		}
	}
	bl.b.Installed = append(bl.b.Installed, Installed{At: at, Path: res.Path()})
	return at, nil
}

func (bl *builder) system(cfg Config) {
	if _, err := bl.install(types.System, sysres.NewHeap(cfg.Heap.Region(), bl.env.Heap)); err != nil {
		bl.fail("sys/heap", err)
	}
	if cfg.Clock.Disabled {
		return
	}
	clk := sysres.NewClock(bl.env.Alarm, bl.env.Sink, types.TimerEvent(cfg.Clock.Timer))
	if _, err := bl.install(types.System, clk, clk.Event()); err != nil {
		bl.fail("sys/clock", err)
	}
}

func (bl *builder) pin(where string, gp int) (hw.GPIOPin, bool) {
	p, ok := bl.env.Factories.Pins.ByNumber(gp)
	if !ok {
		bl.fail(where, errcode.New(errcode.UnknownPin, "board."+where, "gp "+strconv.Itoa(gp)))
	}
	return p, ok
}

func (bl *builder) input(i int, c InputConfig) {
	where := "inputs[" + strconv.Itoa(i) + "]"
	p, ok := bl.pin(where, c.GP)
	if !ok {
		return
	}
	in, err := gpio.NewInput(gpio.InputParams{Name: c.Name, Pull: c.Pull, ActiveLow: c.ActiveLow}, p)
	if err != nil {
		bl.fail(where, err)
		return
	}
	if _, err := bl.install(types.InputPin, in, in.Event()); err != nil {
		bl.fail(where, err)
		return
	}
	if c.Edge == types.EdgeNone {
		return
	}
	ip, ok := p.(hw.IRQPin)
	if !ok {
		bl.fail(where, errcode.New(errcode.Unsupported, "board."+where, "pin has no interrupt"))
		return
	}
	unbind, err := irq.BindPin(ip, c.Edge, in.Event(), bl.env.Sink)
	if err != nil {
		bl.fail(where, err)
		return
	}
	bl.b.unbind = append(bl.b.unbind, unbind)
}

func (bl *builder) output(i int, c OutputConfig) {
	where := "outputs[" + strconv.Itoa(i) + "]"
	p, ok := bl.pin(where, c.GP)
	if !ok {
		return
	}
	out, err := gpio.NewOutput(gpio.OutputParams{Name: c.Name, Initial: c.Initial, ActiveLow: c.ActiveLow}, p)
	if err == nil {
		_, err = bl.install(types.OutputPin, out)
	}
	if err != nil {
		bl.fail(where, err)
	}
}

func (bl *builder) pwm(i int, c PWMConfig) {
	where := "pwm[" + strconv.Itoa(i) + "]"
	ch, ok := bl.env.Factories.PWMs.PWM(c.GP)
	if !ok {
		bl.fail(where, errcode.New(errcode.UnknownPin, "board."+where, "no pwm on gp "+strconv.Itoa(c.GP)))
		return
	}
	d, err := pwm.New(pwm.Params{
		Name:      c.Name,
		FreqHz:    c.FreqHz,
		MaxDuty:   c.MaxDuty,
		ActiveLow: c.ActiveLow,
		Initial:   c.Initial,
	}, c.GP, ch)
	if err == nil {
		_, err = bl.install(types.PWM, d)
	}
	if err != nil {
		bl.fail(where, err)
	}
}

func (bl *builder) serial(i int, c SerialConfig) {
	where := "serial[" + strconv.Itoa(i) + "]"
	key := locator.Serial(c.Port).Key
	port, ok := bl.env.Factories.UARTs.UART(locator.SerialIndex(key) + 1)
	if !ok {
		bl.fail(where, errcode.New(errcode.UnknownBus, "board."+where, key))
		return
	}
	if pc, ok := port.(portConfigurer); ok {
		if err := pc.Configure(c.Baud, c.TX, c.RX); err != nil {
			bl.fail(where, errcode.Wrap(errcode.InvalidConfig, "board."+where, err))
			return
		}
	}
	s, err := serial.New(serial.Params{Name: key, Baud: c.Baud, Format: c.Format}, port)
	if err != nil {
		bl.fail(where, err)
		return
	}
	if _, err := bl.install(types.Serial, s, s.RxEvent(), s.TxEvent(), s.FaultEvent()); err != nil {
		bl.fail(where, err)
		return
	}
	irq.BindRx(port, s.RxEvent(), bl.env.Sink)
	irq.BindTx(port, s.TxEvent(), bl.env.Sink)
	irq.BindFault(port, s.FaultEvent(), bl.env.Sink)
}
