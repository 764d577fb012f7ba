package types

import "errors"

// ------------------------
// GPIO electrical options
// ------------------------

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

func (p Pull) String() string {
	switch p {
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	default:
		return "none"
	}
}

func (p *Pull) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "none":
		*p = PullNone
	case "up":
		*p = PullUp
	case "down":
		*p = PullDown
	default:
		return errors.New("invalid pull: " + string(b))
	}
	return nil
}

// Edge selects which transitions raise an interrupt.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

func (e *Edge) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "none":
		*e = EdgeNone
	case "rising":
		*e = EdgeRising
	case "falling":
		*e = EdgeFalling
	case "both":
		*e = EdgeBoth
	default:
		return errors.New("invalid edge: " + string(b))
	}
	return nil
}

// ------------------------
// PWM
// ------------------------

// PWMInfo describes a configured PWM output.
type PWMInfo struct {
	Pin       int    `yaml:"pin"`
	FreqHz    uint64 `yaml:"freq_hz"`
	MaxDuty   uint16 `yaml:"max_duty"`
	ActiveLow bool   `yaml:"active_low"`
}
