//go:build !rp2040

package irq

import "sync"

// On the host, simulated interrupt sources run on goroutines; a mutex
// serialises them so each event tier keeps a single producer at a time.
var mu sync.Mutex

type State uintptr

func Lock() State {
	mu.Lock()
	return 0
}

func Unlock(State) { mu.Unlock() }
