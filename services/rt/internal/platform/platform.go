// Package platform supplies the hw implementations for the current build:
// machine-backed on the RP2040, in-memory fakes everywhere else.
package platform

import (
	"runtime"

	"devicert-go/services/rt/internal/hw"
	"devicert-go/x/mathx"
)

// Factories groups the per-peripheral factories a board is built from.
type Factories struct {
	Pins  hw.PinFactory
	PWMs  hw.PWMFactory
	UARTs hw.UARTFactory
}

// RuntimeHeap reports Go allocator accounting clipped to a region.
type RuntimeHeap struct {
	Region hw.HeapRegion
}

func (h RuntimeHeap) HeapStats() hw.HeapStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st := hw.HeapStats{Allocs: uint32(ms.Mallocs), Frees: uint32(ms.Frees)}
	if h.Region.Size == 0 {
		st.Used = uint32(ms.HeapInuse)
		return st
	}
	st.Used = uint32(mathx.Min(ms.HeapInuse, uint64(h.Region.Size)))
	st.Free = h.Region.Size - st.Used
	return st
}
