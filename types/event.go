package types

import "strconv"

// ------------------------
// Event priority tiers
// ------------------------

type Priority uint8

const (
	Critical Priority = iota
	Normal
	ErrorTier

	NumPriorities = int(ErrorTier) + 1
)

func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case Normal:
		return "normal"
	case ErrorTier:
		return "error"
	default:
		return "unknown"
	}
}

// ------------------------
// Events (interrupt-originated occurrences)
// ------------------------

type EventKind uint8

const (
	EventGPIO        EventKind = iota // Source: pin number
	EventSerialRx                     // Source: serial port index
	EventSerialTx                     // Source: serial port index
	EventTimer                        // Source: timer index (0 = system tick)
	EventSerialFault                  // Source: serial port index
	EventFault                        // Source: platform specific
)

func (k EventKind) String() string {
	switch k {
	case EventGPIO:
		return "gpio"
	case EventSerialRx:
		return "serial_rx"
	case EventSerialTx:
		return "serial_tx"
	case EventTimer:
		return "timer"
	case EventSerialFault:
		return "serial_fault"
	case EventFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Event names one interrupt source. It is comparable and usable as a map key.
type Event struct {
	Kind   EventKind
	Source uint8
}

// Priority is fixed per event kind.
func (e Event) Priority() Priority {
	switch e.Kind {
	case EventSerialRx:
		return Critical
	case EventSerialFault, EventFault:
		return ErrorTier
	default:
		return Normal
	}
}

// Compare orders events by kind, then source. It returns -1, 0 or +1.
func (e Event) Compare(o Event) int {
	switch {
	case e.Kind < o.Kind:
		return -1
	case e.Kind > o.Kind:
		return 1
	case e.Source < o.Source:
		return -1
	case e.Source > o.Source:
		return 1
	}
	return 0
}

func (e Event) Less(o Event) bool { return e.Compare(o) < 0 }

func (e Event) String() string {
	return e.Kind.String() + "/" + strconv.Itoa(int(e.Source))
}

// Helpers for the common sources.

func GPIOEvent(pin int) Event      { return Event{Kind: EventGPIO, Source: uint8(pin)} }
func SerialRxEvent(port int) Event { return Event{Kind: EventSerialRx, Source: uint8(port)} }
func SerialTxEvent(port int) Event { return Event{Kind: EventSerialTx, Source: uint8(port)} }
func TimerEvent(timer int) Event   { return Event{Kind: EventTimer, Source: uint8(timer)} }
func SerialFaultEvent(port int) Event {
	return Event{Kind: EventSerialFault, Source: uint8(port)}
}

// SysTick is the periodic system timer event.
var SysTick = TimerEvent(0)
