package locator

import (
	"strconv"
	"strings"

	"devicert-go/errcode"
	"devicert-go/types"
)

const schemeSep = "://"

// Locator is a fully parsed locator: the scheme of the access plus its path.
type Locator struct {
	Scheme types.Scheme
	Path   RawPath
}

func (l Locator) String() string { return l.Scheme.String() + schemeSep + l.Path.String() }

// Parse parses "<scheme>://<category>/<segments>".
// Malformed input fails with uri_parse_error; an unimplemented category fails
// with not_found.
func Parse(s string) (Locator, error) {
	i := strings.Index(s, schemeSep)
	if i <= 0 {
		return Locator{}, parseErr(s, "missing scheme")
	}
	sch, ok := types.ParseScheme(s[:i])
	if !ok {
		return Locator{}, parseErr(s, "unknown scheme")
	}
	p, err := ParsePath(s[i+len(schemeSep):])
	if err != nil {
		return Locator{}, err
	}
	return Locator{Scheme: sch, Path: p}, nil
}

// ParsePath parses the "<category>/<segments>" part of a locator.
func ParsePath(s string) (RawPath, error) {
	cat, rest, ok := strings.Cut(s, "/")
	if !ok || cat == "" {
		return RawPath{}, parseErr(s, "missing category")
	}
	segs := strings.Split(rest, "/")
	switch cat {
	case "gpio":
		if len(segs) != 1 {
			return RawPath{}, parseErr(s, "gpio takes one segment")
		}
		k, ok := pinKey(segs[0])
		if !ok {
			return RawPath{}, parseErr(s, "bad pin name")
		}
		return RawPath{Kind: KindGPIO, Key: k}, nil

	case "pwm":
		if len(segs) > 2 {
			return RawPath{}, parseErr(s, "pwm takes at most two segments")
		}
		k, ok := pinKey(segs[0])
		if !ok {
			return RawPath{}, parseErr(s, "bad pin name")
		}
		mode := types.ModeDefault
		if len(segs) == 2 {
			switch segs[1] {
			case "":
			case "max", "maxduty":
				mode = types.ModeMaxDuty
			default:
				return RawPath{}, parseErr(s, "unknown pwm mode")
			}
		}
		return RawPath{Kind: KindPWM, Key: k, Mode: mode}, nil

	case "sys":
		if len(segs) != 1 {
			return RawPath{}, parseErr(s, "sys takes one segment")
		}
		switch segs[0] {
		case "heap":
			return Heap(), nil
		case "clock", "sysclock":
			return Clock(), nil
		default:
			return RawPath{}, parseErr(s, "unknown sys path")
		}

	case "serial":
		if len(segs) != 1 {
			return RawPath{}, parseErr(s, "serial takes one segment")
		}
		k, ok := serialKey(segs[0])
		if !ok {
			return RawPath{}, parseErr(s, "unknown serial port")
		}
		return RawPath{Kind: KindSerial, Key: k}, nil

	default:
		// adc, timer, i2c, ... are reserved.
		return RawPath{}, errcode.New(errcode.NotFound, "locator.parse", "category "+cat)
	}
}

// pinKey validates "p<port-letter><number>" (number 0..15, e.g. pa0, pb15)
// and returns it lower-cased.
func pinKey(s string) (string, bool) {
	if len(s) < 3 || len(s) > 4 {
		return "", false
	}
	l := strings.ToLower(s)
	if l[0] != 'p' || l[1] < 'a' || l[1] > 'z' {
		return "", false
	}
	digits := l[2:]
	if len(digits) == 2 && digits[0] == '0' {
		return "", false
	}
	n, err := strconv.ParseUint(digits, 10, 8)
	if err != nil || n > 15 {
		return "", false
	}
	return l, true
}

// serialKey accepts "usartN" or "uartN" (N in 1..3), case-insensitive.
func serialKey(s string) (string, bool) {
	l := strings.ToLower(s)
	var num string
	switch {
	case strings.HasPrefix(l, "usart"):
		num = l[len("usart"):]
	case strings.HasPrefix(l, "uart"):
		num = l[len("uart"):]
	default:
		return "", false
	}
	if len(num) != 1 || num[0] < '1' || num[0] > '3' {
		return "", false
	}
	return "usart" + num, true
}

// SerialIndex returns N-1 for a canonical "usartN" key.
func SerialIndex(key string) int {
	if k, ok := serialKey(key); ok {
		return int(k[len(k)-1] - '1')
	}
	return -1
}

func parseErr(s, msg string) error {
	return errcode.New(errcode.URIParse, "locator.parse", msg+": "+strconv.Quote(s))
}
