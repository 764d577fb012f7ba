package types

import "errors"

// ------------------------
// Serial
// ------------------------

type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	default:
		return "none"
	}
}

func (p *Parity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "none":
		*p = ParityNone
	case "even":
		*p = ParityEven
	case "odd":
		*p = ParityOdd
	default:
		return errors.New("invalid parity: " + string(b))
	}
	return nil
}

// SerialFormat is the frame format of a UART.
type SerialFormat struct {
	DataBits uint8  `yaml:"data_bits"`
	StopBits uint8  `yaml:"stop_bits"`
	Parity   Parity `yaml:"parity"`
}
