// Package board turns a declarative board description into installed
// resources and interrupt associations. It runs once, during setup.
package board

import (
	"bytes"
	"strconv"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"devicert-go/errcode"
	"devicert-go/services/rt/internal/hw"
	"devicert-go/services/rt/internal/locator"
	"devicert-go/types"
)

// Config is the board description, normally embedded as YAML.
type Config struct {
	Name   string     `yaml:"name"`
	Heap   HeapConfig `yaml:"heap"`
	Events int        `yaml:"events_per_priority"`
	Tasks  int        `yaml:"max_tasks"`

	Inputs  []InputConfig  `yaml:"inputs"`
	Outputs []OutputConfig `yaml:"outputs"`
	PWM     []PWMConfig    `yaml:"pwm"`
	Serial  []SerialConfig `yaml:"serial"`
	Clock   ClockConfig    `yaml:"clock"`
}

type HeapConfig struct {
	Bottom uint64 `yaml:"bottom"`
	Size   uint32 `yaml:"size"`
}

func (h HeapConfig) Region() hw.HeapRegion {
	return hw.HeapRegion{Bottom: uintptr(h.Bottom), Size: h.Size}
}

type InputConfig struct {
	Name      string     `yaml:"name"` // locator pin name
	GP        int        `yaml:"gp"`
	Pull      types.Pull `yaml:"pull"`
	Edge      types.Edge `yaml:"edge"`
	ActiveLow bool       `yaml:"active_low"`
}

type OutputConfig struct {
	Name      string `yaml:"name"`
	GP        int    `yaml:"gp"`
	Initial   bool   `yaml:"initial"`
	ActiveLow bool   `yaml:"active_low"`
}

type PWMConfig struct {
	Name      string `yaml:"name"`
	GP        int    `yaml:"gp"`
	FreqHz    uint64 `yaml:"freq_hz"`
	MaxDuty   uint16 `yaml:"max_duty"`
	ActiveLow bool   `yaml:"active_low"`
	Initial   uint8  `yaml:"initial"` // percent
}

type SerialConfig struct {
	Port   string             `yaml:"port"` // usart1..usart3
	Baud   uint32             `yaml:"baud"`
	TX     int                `yaml:"tx"`
	RX     int                `yaml:"rx"`
	Format types.SerialFormat `yaml:"format"`
}

type ClockConfig struct {
	Disabled bool `yaml:"disabled"`
	Timer    int  `yaml:"timer"`
}

// Parse decodes YAML strictly (unknown keys are errors) and validates.
func Parse(b []byte) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, errcode.Wrap(errcode.InvalidConfig, "board.parse", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs error
	bad := func(where, msg string) {
		errs = multierr.Append(errs, errcode.New(errcode.InvalidConfig, "board."+where, msg))
	}
	if c.Events < 0 {
		bad("events_per_priority", "must not be negative")
	}
	if c.Tasks < 0 {
		bad("max_tasks", "must not be negative")
	}

	// pinName returns the canonical key so duplicates are caught across case.
	pinName := func(where, name string) string {
		p, err := locator.ParsePath("gpio/" + name)
		if err != nil {
			bad(where, "invalid pin name "+strconv.Quote(name))
			return name
		}
		return p.Key
	}
	seen := map[string]bool{}
	unique := func(where, key string) {
		if seen[key] {
			bad(where, "duplicate "+key)
		}
		seen[key] = true
	}
	for i, in := range c.Inputs {
		where := "inputs[" + strconv.Itoa(i) + "]"
		unique(where, "input "+pinName(where, in.Name))
	}
	for i, out := range c.Outputs {
		where := "outputs[" + strconv.Itoa(i) + "]"
		unique(where, "output "+pinName(where, out.Name))
	}
	for i, p := range c.PWM {
		where := "pwm[" + strconv.Itoa(i) + "]"
		unique(where, "pwm "+pinName(where, p.Name))
		if p.Initial > 100 {
			bad(where, "initial percent above 100")
		}
	}
	for i, s := range c.Serial {
		where := "serial[" + strconv.Itoa(i) + "]"
		p, err := locator.ParsePath("serial/" + s.Port)
		if err != nil {
			bad(where, "invalid port "+strconv.Quote(s.Port))
			continue
		}
		unique(where, p.String())
	}
	if c.Clock.Timer < 0 || c.Clock.Timer > 255 {
		bad("clock", "timer index out of range")
	}
	return errs
}
