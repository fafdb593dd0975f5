package dice

import (
	"errors"
	"testing"

	"github.com/KatariSolutions/NumberGame/internal/engine"
)

// TestRollerIsDeterministic ensures two rollers with the same seed agree.
func TestRollerIsDeterministic(t *testing.T) {
	a, b := NewRoller(42), NewRoller(42)
	for i := 0; i < 20; i++ {
		oa, _ := a.Generate()
		ob, _ := b.Generate()
		if oa != ob {
			t.Fatalf("roll %d: %v != %v", i, oa, ob)
		}
	}
}

// TestRollerStaysInRange ensures every face is a valid die face.
func TestRollerStaysInRange(t *testing.T) {
	r := NewRoller(7)
	for i := 0; i < 500; i++ {
		o, err := r.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if err := o.Validate(); err != nil {
			t.Fatalf("roll %d invalid: %v", i, err)
		}
	}
}

func TestRandomRoller(t *testing.T) {
	r, err := NewRandomRoller()
	if err != nil {
		t.Fatalf("NewRandomRoller: %v", err)
	}
	o, _ := r.Generate()
	if err := o.Validate(); err != nil {
		t.Fatalf("invalid outcome %v: %v", o, err)
	}
}

// TestFixedRepeatsLast ensures the queue is consumed in order then sticks.
func TestFixedRepeatsLast(t *testing.T) {
	first := engine.Outcome{1, 2, 3, 4, 5, 6}
	second := engine.Outcome{2, 2, 5, 1, 6, 3}
	f := NewFixed(first, second)

	for i, want := range []engine.Outcome{first, second, second} {
		got, err := f.Generate()
		if err != nil {
			t.Fatalf("Generate %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("Generate %d: got %v, want %v", i, got, want)
		}
	}
}

func TestFixedEmpty(t *testing.T) {
	if _, err := NewFixed().Generate(); !errors.Is(err, ErrNoOutcomes) {
		t.Fatalf("want ErrNoOutcomes, got %v", err)
	}
}
