package timex

import "time"

// boot is captured at package init; on MCU builds this is effectively reset time.
var boot = time.Now()

// Uptime returns the monotonic time elapsed since boot.
func Uptime() time.Duration { return time.Since(boot) }

// UptimeMicros returns Uptime in microseconds.
func UptimeMicros() uint64 { return uint64(Uptime() / time.Microsecond) }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint64) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(time.Second) / freqHz
}
