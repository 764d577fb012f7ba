// Package pwm implements the PWM output resource. In the default mode it
// accepts Percent, Analog and Digital writes; in max-duty mode it only
// reports the channel's resolution.
package pwm

import (
	"devicert-go/errcode"
	"devicert-go/services/rt/internal/core"
	"devicert-go/services/rt/internal/hw"
	"devicert-go/services/rt/internal/locator"
	"devicert-go/types"
	"devicert-go/x/mathx"
)

// DefaultFreqHz is used when a board omits the frequency.
const DefaultFreqHz = 1000

type Params struct {
	Name      string
	FreqHz    uint64
	MaxDuty   uint16 // 0 → the channel's full resolution
	ActiveLow bool
	Initial   uint8 // percent
}

type PWM struct {
	core.Base
	path      locator.RawPath
	ch        hw.PWMChannel
	pin       int
	freq      uint64
	max       uint16
	activeLow bool
	duty      uint16 // logical, 0..max
}

// New configures ch and applies the initial level.
func New(p Params, pin int, ch hw.PWMChannel) (*PWM, error) {
	freq := p.FreqHz
	if freq == 0 {
		freq = DefaultFreqHz
	}
	if err := ch.Configure(freq); err != nil {
		return nil, err
	}
	max := uint16(mathx.Min(ch.Top(), 0xffff))
	if p.MaxDuty != 0 {
		max = mathx.Min(max, p.MaxDuty)
	}
	if max == 0 {
		return nil, errcode.New(errcode.InvalidConfig, "pwm.new", "channel has no resolution")
	}
	d := &PWM{
		path:      locator.PWM(p.Name),
		ch:        ch,
		pin:       pin,
		freq:      freq,
		max:       max,
		activeLow: p.ActiveLow,
	}
	d.set(mathx.DutyFromPercent(p.Initial, max))
	return d, nil
}

func (d *PWM) Path() locator.RawPath { return d.path }

func (d *PWM) Info() types.PWMInfo {
	return types.PWMInfo{Pin: d.pin, FreqHz: d.freq, MaxDuty: d.max, ActiveLow: d.activeLow}
}

// set drives the logical duty, inverting for active-low outputs.
func (d *PWM) set(duty uint16) {
	duty = mathx.Clamp(duty, 0, d.max)
	phys := duty
	if d.activeLow {
		phys = d.max - duty
	}
	d.ch.Set(uint32(phys))
	d.duty = duty
}

func (d *PWM) PollRead(cfg core.Config, buf []byte) (int, error) {
	const op = "pwm.read"
	if cfg.Mode == types.ModeMaxDuty {
		switch cfg.Scheme {
		case types.Analog, types.Sys:
			return core.PutU16(op, buf, d.max)
		}
		return 0, core.Unsupported(op, cfg.Scheme)
	}
	switch cfg.Scheme {
	case types.Percent:
		return core.PutU8(op, buf, mathx.PercentFromDuty(d.duty, d.max))
	case types.Analog:
		return core.PutU16(op, buf, d.duty)
	case types.Digital:
		return core.PutBool(op, buf, d.duty > 0)
	}
	return 0, core.Unsupported(op, cfg.Scheme)
}

// PollWrite validates the whole payload before touching the channel.
func (d *PWM) PollWrite(cfg core.Config, buf []byte) (int, error) {
	const op = "pwm.write"
	if cfg.Mode == types.ModeMaxDuty {
		return 0, errcode.New(errcode.Unsupported, op, "maxduty is read-only")
	}
	switch cfg.Scheme {
	case types.Percent:
		if err := core.ExpectLen(op, buf, 1); err != nil {
			return 0, err
		}
		if buf[0] > 100 {
			return 0, errcode.New(errcode.InvalidInput, op, "percent above 100")
		}
		d.set(mathx.DutyFromPercent(buf[0], d.max))
		return 1, nil
	case types.Analog:
		v, err := core.U16(op, buf)
		if err != nil {
			return 0, err
		}
		d.set(v)
		return 2, nil
	case types.Digital:
		if err := core.ExpectLen(op, buf, 1); err != nil {
			return 0, err
		}
		if buf[0] != 0 {
			d.set(d.max)
		} else {
			d.set(0)
		}
		return 1, nil
	}
	return 0, core.Unsupported(op, cfg.Scheme)
}
