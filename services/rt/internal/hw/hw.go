// Package hw is the boundary between the canonical resources and the chip.
// Resources only ever talk to these interfaces; platform packages supply
// machine-backed implementations on the MCU and fakes on the host.
package hw

import (
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"devicert-go/types"
)

// ---- GPIO ----

type GPIOPin interface {
	ConfigureInput(pull types.Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// IRQPin extends GPIOPin with edge interrupts. The handler runs in
// interrupt context and must not block or allocate.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge types.Edge, handler func()) error
	ClearIRQ() error
}

// PinFactory supplies pins by GP number.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// ---- PWM ----

// PWMChannel is one output channel of a PWM slice. Top is the counter
// wrap value after Configure; Set takes a compare value in [0, Top].
type PWMChannel interface {
	Configure(freqHz uint64) error
	Top() uint32
	Set(duty uint32)
}

type PWMFactory interface {
	PWM(pin int) (PWMChannel, bool)
}

// ---- UART ----

// UART is the byte stream of one serial port (tinygo drivers.UART:
// Read, Write and Buffered). Read never blocks; it returns what is buffered.
type UART interface {
	drivers.UART
}

// RxNotifier is implemented by ports that can signal received data.
// The callback runs in interrupt context.
type RxNotifier interface {
	NotifyRx(fn func())
}

// TxNotifier is implemented by ports that can signal transmit room.
type TxNotifier interface {
	NotifyTx(fn func())
}

// FaultNotifier is implemented by ports that report line errors (framing,
// parity, break, overrun).
type FaultNotifier interface {
	NotifyFault(fn func())
}

// UARTFormatter is optional: formatting where the platform supports it.
type UARTFormatter interface {
	SetBaudRate(br uint32)
	SetFormat(f types.SerialFormat) error
}

type UARTFactory interface {
	UART(index int) (UART, bool)
}

// ---- heap ----

// HeapRegion is the allocator arena handed to the runtime at Init.
type HeapRegion struct {
	Bottom uintptr
	Size   uint32
}

// HeapStats is a snapshot of allocator accounting.
type HeapStats struct {
	Used   uint32
	Free   uint32
	Allocs uint32
	Frees  uint32
}

type HeapSource interface {
	HeapStats() HeapStats
}

// ---- alarms ----

// Alarm fires a callback once after a delay. Arming again replaces any
// pending shot.
type Alarm interface {
	Arm(d time.Duration, fire func())
	Cancel()
}

// TimerAlarm implements Alarm over time.AfterFunc, which TinyGo backs with
// the hardware timer.
type TimerAlarm struct {
	mu sync.Mutex
	t  *time.Timer
}

func (a *TimerAlarm) Arm(d time.Duration, fire func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.t != nil {
		a.t.Stop()
	}
	if d < 0 {
		d = 0
	}
	a.t = time.AfterFunc(d, fire)
}

func (a *TimerAlarm) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.t != nil {
		a.t.Stop()
		a.t = nil
	}
}
