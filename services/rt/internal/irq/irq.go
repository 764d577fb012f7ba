// Package irq connects hardware interrupt callbacks to the event queue.
// Handlers registered here run in interrupt context: they only push an
// event and never touch resource state.
package irq

import (
	"go.uber.org/zap"

	"devicert-go/services/rt/internal/hw"
	"devicert-go/services/rt/internal/rtlog"
	"devicert-go/types"
)

// Sink receives events raised by interrupt handlers.
type Sink interface {
	Interrupt(ev types.Event)
}

// Pusher is the raw queue side a Guarded sink wraps.
type Pusher interface {
	Push(ev types.Event)
}

// Guarded serialises pushes from every interrupt source onto p.
type Guarded struct{ P Pusher }

func (g Guarded) Interrupt(ev types.Event) {
	s := Lock()
	defer Unlock(s)
	g.P.Push(ev)
}

// BindPin arms an edge interrupt on pin that raises ev. The returned
// function disarms it.
func BindPin(pin hw.IRQPin, edge types.Edge, ev types.Event, sink Sink) (func(), error) {
	if edge == types.EdgeNone {
		return func() {}, nil
	}
	if err := pin.SetIRQ(edge, func() { sink.Interrupt(ev) }); err != nil {
		return nil, err
	}
	rtlog.Named("irq").Debug("pin bound",
		zap.Int("gp", pin.Number()), zap.Stringer("edge", edge), zap.Stringer("event", ev))
	return func() { _ = pin.ClearIRQ() }, nil
}

// BindRx raises ev whenever port signals received data. It reports false
// when the port cannot notify, in which case readers rely on other wakeups.
func BindRx(port hw.UART, ev types.Event, sink Sink) bool {
	n, ok := port.(hw.RxNotifier)
	if !ok {
		return false
	}
	n.NotifyRx(func() { sink.Interrupt(ev) })
	return true
}

// BindFault raises ev whenever port reports a line error.
func BindFault(port hw.UART, ev types.Event, sink Sink) bool {
	n, ok := port.(hw.FaultNotifier)
	if !ok {
		return false
	}
	n.NotifyFault(func() { sink.Interrupt(ev) })
	return true
}

// BindTx raises ev whenever port signals room to transmit.
func BindTx(port hw.UART, ev types.Event, sink Sink) bool {
	n, ok := port.(hw.TxNotifier)
	if !ok {
		return false
	}
	n.NotifyTx(func() { sink.Interrupt(ev) })
	return true
}
