package ring

import "testing"

func TestOrderAcrossWrap(t *testing.T) {
	r := New[int](5) // storage rounds to 8, logical limit 5
	next, want := 0, 0
	for want < 2000 {
		// producer: burst of up to 3
		for i := 0; i < 3; i++ {
			if !r.TryPush(next) {
				break
			}
			next++
		}
		// consumer: drain up to 2
		for i := 0; i < 2; i++ {
			v, ok := r.TryPop()
			if !ok {
				break
			}
			if v != want {
				t.Fatalf("pop=%d want %d", v, want)
			}
			want++
		}
		if r.Len() > r.Cap() {
			t.Fatalf("len %d exceeds cap %d", r.Len(), r.Cap())
		}
	}
}

func TestLogicalCapacity(t *testing.T) {
	r := New[string](1)
	if !r.TryPush("a") {
		t.Fatal("first push must succeed")
	}
	if r.TryPush("b") {
		t.Fatal("second push must fail at capacity 1")
	}
	if v, ok := r.TryPop(); !ok || v != "a" {
		t.Fatalf("pop=%q,%v", v, ok)
	}
	if _, ok := r.TryPop(); ok {
		t.Fatal("ring should be empty")
	}
	if !r.TryPush("c") {
		t.Fatal("push after drain must succeed")
	}
}

func TestNewRejectsZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New[int](0)
}
