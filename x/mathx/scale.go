package mathx

// DutyFromPercent maps pct in [0..100] onto [0..max], rounding to nearest.
// Values above 100 saturate at max.
func DutyFromPercent(pct uint8, max uint16) uint16 {
	p := uint32(Min(pct, 100))
	return uint16((p*uint32(max) + 50) / 100)
}

// PercentFromDuty is the inverse of DutyFromPercent. A zero max reads as 0%.
func PercentFromDuty(duty, max uint16) uint8 {
	if max == 0 {
		return 0
	}
	d := uint32(Min(duty, max))
	return uint8((d*100 + uint32(max)/2) / uint32(max))
}
