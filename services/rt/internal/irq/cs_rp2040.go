//go:build rp2040

package irq

import "runtime/interrupt"

// State is the saved interrupt mask.
type State interrupt.State

// Lock masks interrupts so that a producer cannot be preempted by another
// one mid-push. It nests.
func Lock() State { return State(interrupt.Disable()) }

func Unlock(s State) { interrupt.Restore(interrupt.State(s)) }
