package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare", NotFound, NotFound},
		{"wrapped E", New(InvalidInput, "pwm.write", "want 1 byte"), InvalidInput},
		{"fmt wrapped E", fmt.Errorf("ctx: %w", New(URIParse, "parse", "")), URIParse},
		{"fmt wrapped code", fmt.Errorf("ctx: %w", Unsupported), Unsupported},
		{"foreign", errors.New("boom"), Error},
	}
	for _, tc := range cases {
		if got := Of(tc.err); got != tc.want {
			t.Fatalf("%s: Of()=%q want %q", tc.name, got, tc.want)
		}
	}
}

func TestEIsCode(t *testing.T) {
	err := error(New(NotFound, "resolve", "gpio/pz9"))
	if !errors.Is(err, NotFound) {
		t.Fatal("errors.Is should match the code")
	}
	if errors.Is(err, URIParse) {
		t.Fatal("errors.Is matched the wrong code")
	}
	if got := err.Error(); got != "resolve: not_found: gpio/pz9" {
		t.Fatalf("Error()=%q", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("yaml: line 3")
	err := Wrap(InvalidConfig, "board.load", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	if Of(err) != InvalidConfig {
		t.Fatalf("code=%q", Of(err))
	}
}
