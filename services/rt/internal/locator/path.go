// Package locator turns author-facing resource locators such as
// "digital://gpio/pa0" into raw paths, and raw paths into indexed paths by
// searching the live registry.
package locator

import "devicert-go/types"

// PathKind is the category tag of a locator.
type PathKind uint8

const (
	KindGPIO PathKind = iota + 1
	KindPWM
	KindSys
	KindSerial
)

func (k PathKind) String() string {
	switch k {
	case KindGPIO:
		return "gpio"
	case KindPWM:
		return "pwm"
	case KindSys:
		return "sys"
	case KindSerial:
		return "serial"
	default:
		return "unknown"
	}
}

// Canonical sys keys.
const (
	SysHeap  = "heap"
	SysClock = "clock"
)

// RawPath is a parsed but unresolved locator path. Key is canonical for the
// kind (lower-case pin name, "heap"/"clock", "usartN"), so two RawPaths name
// the same resource iff Kind and Key are equal. Mode is carried for PWM only.
type RawPath struct {
	Kind PathKind
	Key  string
	Mode types.Mode
}

// Same reports whether p and o name the same resource, ignoring Mode.
func (p RawPath) Same(o RawPath) bool { return p.Kind == o.Kind && p.Key == o.Key }

func (p RawPath) String() string {
	s := p.Kind.String() + "/" + p.Key
	if p.Kind == KindPWM && p.Mode == types.ModeMaxDuty {
		s += "/maxduty"
	}
	return s
}

// Convenience constructors used by resources to report their identity.

func GPIO(pin string) RawPath { return RawPath{Kind: KindGPIO, Key: mustPin(pin)} }
func PWM(pin string) RawPath  { return RawPath{Kind: KindPWM, Key: mustPin(pin)} }
func Heap() RawPath           { return RawPath{Kind: KindSys, Key: SysHeap} }
func Clock() RawPath          { return RawPath{Kind: KindSys, Key: SysClock} }
func Serial(port string) RawPath {
	k, ok := serialKey(port)
	if !ok {
		panic("locator: invalid serial port " + port)
	}
	return RawPath{Kind: KindSerial, Key: k}
}

func mustPin(s string) string {
	k, ok := pinKey(s)
	if !ok {
		panic("locator: invalid pin name " + s)
	}
	return k
}
