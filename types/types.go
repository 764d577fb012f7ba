package types

// ------------------------
// Resource categories
// ------------------------

// Category selects which fixed array of the registry a resource lives in.
type Category uint8

const (
	System Category = iota
	InputPin
	OutputPin
	PWM
	AnalogChannel
	Serial
	Timer

	NumCategories = int(Timer) + 1
)

func (c Category) String() string {
	switch c {
	case System:
		return "system"
	case InputPin:
		return "input_pin"
	case OutputPin:
		return "output_pin"
	case PWM:
		return "pwm"
	case AnalogChannel:
		return "analog"
	case Serial:
		return "serial"
	case Timer:
		return "timer"
	default:
		return "unknown"
	}
}

// Valid reports whether c names one of the registry arrays.
func (c Category) Valid() bool { return int(c) < NumCategories }

// ------------------------
// Schemes (wire format of one I/O call)
// ------------------------

type Scheme uint8

const (
	Digital Scheme = iota
	Analog
	Percent
	EventScheme
	Sys
	Memory
	Bus
)

var schemeNames = [...]string{
	Digital:     "digital",
	Analog:      "analog",
	Percent:     "percent",
	EventScheme: "event",
	Sys:         "sys",
	Memory:      "memory",
	Bus:         "bus",
}

func (s Scheme) String() string {
	if int(s) < len(schemeNames) {
		return schemeNames[s]
	}
	return "unknown"
}

// ParseScheme maps the locator prefix to a Scheme. Matching is exact.
func ParseScheme(s string) (Scheme, bool) {
	for i, n := range schemeNames {
		if n == s {
			return Scheme(i), true
		}
	}
	return 0, false
}

// ------------------------
// Modes (sub-mode within a category, orthogonal to Scheme)
// ------------------------

type Mode uint8

const (
	ModeDefault Mode = iota
	ModeMaxDuty
)

func (m Mode) String() string {
	switch m {
	case ModeMaxDuty:
		return "maxduty"
	default:
		return "default"
	}
}
