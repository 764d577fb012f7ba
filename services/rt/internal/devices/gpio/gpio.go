// Package gpio implements the digital pin resources: inputs that count
// edges for the Event scheme, and outputs driven through the Digital scheme.
package gpio

import (
	"devicert-go/services/rt/internal/core"
	"devicert-go/services/rt/internal/hw"
	"devicert-go/services/rt/internal/locator"
	"devicert-go/types"
)

// InputParams configures an input pin.
type InputParams struct {
	Name      string // locator pin name, e.g. "pa0"
	Pull      types.Pull
	ActiveLow bool
}

// Input is a digital input. Its pending-edge counter is advanced by
// HandleEvent and drained by Event-scheme reads.
type Input struct {
	core.Base
	path      locator.RawPath
	pin       hw.GPIOPin
	activeLow bool
	ev        types.Event
	edges     uint32
}

func NewInput(p InputParams, pin hw.GPIOPin) (*Input, error) {
	if err := pin.ConfigureInput(p.Pull); err != nil {
		return nil, err
	}
	return &Input{
		path:      locator.GPIO(p.Name),
		pin:       pin,
		activeLow: p.ActiveLow,
		ev:        types.GPIOEvent(pin.Number()),
	}, nil
}

func (in *Input) Path() locator.RawPath { return in.path }

// Event is the interrupt source that feeds this pin.
func (in *Input) Event() types.Event { return in.ev }

func (in *Input) level() bool { return in.pin.Get() != in.activeLow }

func (in *Input) PollRead(cfg core.Config, buf []byte) (int, error) {
	const op = "gpio.input.read"
	switch cfg.Scheme {
	case types.Digital:
		return core.PutBool(op, buf, in.level())
	case types.EventScheme:
		if err := core.ExpectMin(op, buf, 4); err != nil {
			return 0, err
		}
		if in.edges == 0 {
			return 0, cfg.WaitFor(in.ev)
		}
		n, err := core.PutU32(op, buf, in.edges)
		in.edges = 0
		return n, err
	}
	return 0, core.Unsupported(op, cfg.Scheme)
}

func (in *Input) PollWrite(cfg core.Config, _ []byte) (int, error) {
	return 0, core.Unsupported("gpio.input.write", cfg.Scheme)
}

func (in *Input) HandleEvent(ev types.Event) {
	if ev == in.ev {
		in.edges++
	}
}

// OutputParams configures an output pin.
type OutputParams struct {
	Name      string
	Initial   bool // logical level
	ActiveLow bool
}

// Output is a digital output driven by one-byte Digital writes.
type Output struct {
	core.Base
	path      locator.RawPath
	pin       hw.GPIOPin
	activeLow bool
	level     bool // logical
}

func NewOutput(p OutputParams, pin hw.GPIOPin) (*Output, error) {
	if err := pin.ConfigureOutput(p.Initial != p.ActiveLow); err != nil {
		return nil, err
	}
	return &Output{
		path:      locator.GPIO(p.Name),
		pin:       pin,
		activeLow: p.ActiveLow,
		level:     p.Initial,
	}, nil
}

func (o *Output) Path() locator.RawPath { return o.path }

func (o *Output) PollRead(cfg core.Config, buf []byte) (int, error) {
	if cfg.Scheme != types.Digital {
		return 0, core.Unsupported("gpio.output.read", cfg.Scheme)
	}
	return core.PutBool("gpio.output.read", buf, o.level)
}

func (o *Output) PollWrite(cfg core.Config, buf []byte) (int, error) {
	const op = "gpio.output.write"
	if cfg.Scheme != types.Digital {
		return 0, core.Unsupported(op, cfg.Scheme)
	}
	if err := core.ExpectLen(op, buf, 1); err != nil {
		return 0, err
	}
	o.level = buf[0] != 0
	o.pin.Set(o.level != o.activeLow)
	return 1, nil
}
