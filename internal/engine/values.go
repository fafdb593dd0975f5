package engine

import "fmt"

const (
	Dice     = 6
	MinFace  = 1
	MaxFace  = 6
	AllSuit  = Value(7)
	minValue = Value(MinFace)
)

// Value is what a participant bets on: a die face, or AllSuit.
type Value int

var BettableValues = []Value{1, 2, 3, 4, 5, 6, AllSuit}

func (v Value) Valid() bool {
	return (v >= minValue && v <= MaxFace) || v == AllSuit
}

func (v Value) String() string {
	if v == AllSuit {
		return "all-suit"
	}
	return fmt.Sprintf("%d", int(v))
}

// Outcome is the round's dice roll. It is fixed at round creation.
type Outcome [Dice]int

func (o Outcome) Validate() error {
	for _, face := range o {
		if face < MinFace || face > MaxFace {
			return fmt.Errorf("%w: face %d out of range", ErrInvalidOutcome, face)
		}
	}
	return nil
}

// Count is the number of positions showing face.
func (o Outcome) Count(face int) int {
	n := 0
	for _, f := range o {
		if f == face {
			n++
		}
	}
	return n
}

// AllDistinct reports whether no face repeats.
func (o Outcome) AllDistinct() bool {
	var seen [MaxFace + 1]bool
	for _, f := range o {
		if f < 0 || f > MaxFace || seen[f] {
			return false
		}
		seen[f] = true
	}
	return true
}

func (o Outcome) Slice() []int {
	out := make([]int, len(o))
	copy(out, o[:])
	return out
}

// OutcomeFromSlice converts a wire vector into an Outcome.
func OutcomeFromSlice(faces []int) (Outcome, error) {
	var o Outcome
	if len(faces) != Dice {
		return o, fmt.Errorf("%w: want %d faces, got %d", ErrInvalidOutcome, Dice, len(faces))
	}
	copy(o[:], faces)
	return o, o.Validate()
}
