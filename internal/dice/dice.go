// Package dice generates the round's outcome vector.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/KatariSolutions/NumberGame/internal/engine"
)

// ErrNoOutcomes indicates a Fixed generator was built without any outcome.
var ErrNoOutcomes = errors.New("fixed generator has no outcomes")

// Roller draws each die independently from a seeded source.
//
// Given the same seed, a Roller produces the same sequence of outcomes.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// NewRandomRoller seeds a Roller from crypto/rand.
func NewRandomRoller() (*Roller, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewRoller(seed), nil
}

func (r *Roller) Generate() (engine.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var o engine.Outcome
	for i := range o {
		o[i] = rollDie(r.rng, engine.MaxFace)
	}
	return o, nil
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func rollDie(rng *rand.Rand, sides int) int {
	return rng.Intn(sides) + 1
}

// Fixed hands out a predetermined list of outcomes in order, then keeps
// repeating the last one.
type Fixed struct {
	mu       sync.Mutex
	outcomes []engine.Outcome
	next     int
}

func NewFixed(outcomes ...engine.Outcome) *Fixed {
	return &Fixed{outcomes: outcomes}
}

func (f *Fixed) Generate() (engine.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.outcomes) == 0 {
		return engine.Outcome{}, ErrNoOutcomes
	}
	o := f.outcomes[f.next]
	if f.next < len(f.outcomes)-1 {
		f.next++
	}
	return o, nil
}
