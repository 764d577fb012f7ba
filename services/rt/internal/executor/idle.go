package executor

import "context"

// Idler parks the executor when there is neither an event nor a ready task.
// Notify is called after every event push and every wake; it must not block
// and may run in interrupt context.
type Idler interface {
	Wait(ctx context.Context)
	Notify()
}

// ChanIdler parks on a 1-buffered channel. A Notify that races ahead of Wait
// leaves a token behind, so the wake-up is never lost.
type ChanIdler struct {
	ch chan struct{}
}

func NewChanIdler() *ChanIdler { return &ChanIdler{ch: make(chan struct{}, 1)} }

func (i *ChanIdler) Notify() {
	select {
	case i.ch <- struct{}{}:
	default:
	}
}

func (i *ChanIdler) Wait(ctx context.Context) {
	select {
	case <-i.ch:
	case <-ctx.Done():
	}
}
