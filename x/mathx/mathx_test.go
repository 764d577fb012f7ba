package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(7, 0, 5); got != 5 {
		t.Fatalf("Clamp hi=%d", got)
	}
	if got := Clamp(-1, 5, 0); got != 0 {
		t.Fatalf("Clamp swapped bounds=%d", got)
	}
}

func TestPercentScaling(t *testing.T) {
	cases := []struct {
		pct  uint8
		max  uint16
		duty uint16
	}{
		{0, 1000, 0},
		{50, 1000, 500},
		{100, 1000, 1000},
		{33, 255, 84},
		{150, 1000, 1000},
	}
	for _, c := range cases {
		if got := DutyFromPercent(c.pct, c.max); got != c.duty {
			t.Fatalf("DutyFromPercent(%d,%d)=%d want %d", c.pct, c.max, got, c.duty)
		}
	}
	for _, pct := range []uint8{0, 1, 25, 50, 99, 100} {
		if got := PercentFromDuty(DutyFromPercent(pct, 1000), 1000); got != pct {
			t.Fatalf("round trip %d -> %d", pct, got)
		}
	}
	if PercentFromDuty(10, 0) != 0 {
		t.Fatal("zero max must read 0")
	}
}
