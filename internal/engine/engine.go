package engine

import (
	"errors"
	"math"
	"time"
)

var ErrInvalidOutcome = errors.New("invalid outcome vector")
var ErrInvalidTiming = errors.New("phase windows must be positive")

type Phase string

const (
	PhaseActive    Phase = "ACTIVE"
	PhaseLocked    Phase = "LOCKED"
	PhaseComputing Phase = "COMPUTING"
	PhaseSettled   Phase = "SETTLED"
	PhaseEnded     Phase = "ENDED"
)

var phaseOrder = map[Phase]int{
	PhaseActive:    0,
	PhaseLocked:    1,
	PhaseComputing: 2,
	PhaseSettled:   3,
	PhaseEnded:     4,
}

// AtLeast reports whether p is the same as or later than other.
func (p Phase) AtLeast(other Phase) bool {
	return phaseOrder[p] >= phaseOrder[other]
}

// Before reports whether p comes strictly before other.
func (p Phase) Before(other Phase) bool {
	return phaseOrder[p] < phaseOrder[other]
}

type Reason string

const (
	ReasonNotActive          Reason = "session not active"
	ReasonNoRound            Reason = "no active round"
	ReasonInvalidAmount      Reason = "invalid amount"
	ReasonAmountTooHigh      Reason = "amount exceeds limit"
	ReasonInvalidValue       Reason = "invalid outcome value"
	ReasonNotFound           Reason = "bid not found"
	ReasonMissingParticipant Reason = "participant missing"
)

// Rejection is returned when a command violates a precondition. It is never
// fatal and leaves the ledger untouched.
type Rejection struct {
	Reason Reason
}

func (r *Rejection) Error() string { return string(r.Reason) }

// Is matches any *Rejection carrying the same reason.
func (r *Rejection) Is(target error) bool {
	var other *Rejection
	if !errors.As(target, &other) {
		return false
	}
	return other.Reason == r.Reason
}

func reject(reason Reason) error { return &Rejection{Reason: reason} }

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

type Limits struct {
	MaxBid float64 // zero means unlimited
}

type PlaceBid struct {
	Participant string
	Value       Value
	Amount      float64
}

// Validate checks everything that does not depend on the round state.
func (c PlaceBid) Validate(limits Limits) error {
	if c.Participant == "" {
		return reject(ReasonMissingParticipant)
	}
	if !c.Value.Valid() {
		return reject(ReasonInvalidValue)
	}
	if math.IsNaN(c.Amount) || math.IsInf(c.Amount, 0) || c.Amount <= 0 {
		return reject(ReasonInvalidAmount)
	}
	if limits.MaxBid > 0 && c.Amount > limits.MaxBid {
		return reject(ReasonAmountTooHigh)
	}
	return nil
}

type DeleteBid struct {
	Participant string
	Value       Value
}

func (c DeleteBid) Validate() error {
	if c.Participant == "" {
		return reject(ReasonMissingParticipant)
	}
	if !c.Value.Valid() {
		return reject(ReasonInvalidValue)
	}
	return nil
}

// Apply runs a validated command against the ledger of a round in the given
// phase. The ledger is only touched when the command succeeds.
func (c PlaceBid) Apply(l *Ledger, phase Phase, limits Limits, now time.Time) error {
	if err := c.Validate(limits); err != nil {
		return err
	}
	if phase != PhaseActive {
		return reject(ReasonNotActive)
	}
	l.Put(c.Participant, c.Value, c.Amount, now)
	return nil
}

func (c DeleteBid) Apply(l *Ledger, phase Phase) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if phase != PhaseActive {
		return reject(ReasonNotActive)
	}
	if !l.Delete(c.Participant, c.Value) {
		return reject(ReasonNotFound)
	}
	return nil
}

// RoundInfo is the identity and schedule of a round as handed to persistence.
type RoundInfo struct {
	RoundID   string
	CreatedAt time.Time
	LockAt    time.Time
	SettleAt  time.Time
	EndAt     time.Time
}

type Timing struct {
	Active  time.Duration
	Locked  time.Duration
	Results time.Duration
}

func (t Timing) Validate() error {
	if t.Active <= 0 || t.Locked <= 0 || t.Results <= 0 {
		return ErrInvalidTiming
	}
	return nil
}

// Schedule derives the three boundaries additively from start.
func (t Timing) Schedule(roundID string, start time.Time) RoundInfo {
	lock := start.Add(t.Active)
	settle := lock.Add(t.Locked)
	return RoundInfo{
		RoundID:   roundID,
		CreatedAt: start,
		LockAt:    lock,
		SettleAt:  settle,
		EndAt:     settle.Add(t.Results),
	}
}
