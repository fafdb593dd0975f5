package session

import (
	"github.com/KatariSolutions/NumberGame/internal/engine"
)

// Session is one round. Only the engine loop touches it.
type Session struct {
	Info      engine.RoundInfo
	DurableID int64
	Phase     engine.Phase
	Outcome   engine.Outcome
	Ledger    *engine.Ledger
	Registry  *Registry

	// inFlight is set while the side effects of the last boundary are still
	// running; no further boundary is crossed until they report back.
	inFlight   bool
	degraded   bool
	settlement engine.Settlement
}

func newSession(info engine.RoundInfo, outcome engine.Outcome, reg *Registry) *Session {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Session{
		Info:     info,
		Phase:    engine.PhaseActive,
		Outcome:  outcome,
		Ledger:   engine.NewLedger(),
		Registry: reg,
	}
}
