package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/KatariSolutions/NumberGame/internal/engine"
	pub "github.com/KatariSolutions/NumberGame/pkg/types"
)

func (e *Engine) placeBid(cmd engine.PlaceBid, connID string) bidResult {
	if err := cmd.Validate(e.opts.Limits); err != nil {
		return e.rejected("place", cmd.Participant, err)
	}
	now := e.now()
	s, err := e.openRound(now)
	if err != nil {
		return e.rejected("place", cmd.Participant, err)
	}
	if err := cmd.Apply(s.Ledger, s.Phase, e.opts.Limits, now); err != nil {
		return e.rejected("place", cmd.Participant, err)
	}
	s.Registry.Add(cmd.Participant, connID)

	e.emit(pub.MsgSessionUpdate, e.snapshot(now))
	return bidResult{ack: pub.BidView{
		ChosenNumber: int(cmd.Value),
		Amount:       cmd.Amount,
		UpdatedAt:    now.UnixMilli(),
	}}
}

func (e *Engine) deleteBid(cmd engine.DeleteBid, connID string) bidResult {
	if err := cmd.Validate(); err != nil {
		return e.rejected("delete", cmd.Participant, err)
	}
	now := e.now()
	s, err := e.openRound(now)
	if err != nil {
		return e.rejected("delete", cmd.Participant, err)
	}
	if err := cmd.Apply(s.Ledger, s.Phase); err != nil {
		return e.rejected("delete", cmd.Participant, err)
	}
	s.Registry.Add(cmd.Participant, connID)

	e.emit(pub.MsgSessionUpdate, e.snapshot(now))
	return bidResult{ack: pub.BidView{ChosenNumber: int(cmd.Value)}}
}

// openRound crosses any boundary that is already due, then returns the round
// only if it still takes wagers. The lock time is checked directly because a
// boundary whose side effects are in flight holds the phase back.
func (e *Engine) openRound(now time.Time) (*Session, error) {
	e.advance(now)
	s := e.cur
	if s == nil {
		return nil, &engine.Rejection{Reason: engine.ReasonNoRound}
	}
	if s.Phase != engine.PhaseActive || !now.Before(s.Info.LockAt) {
		return nil, &engine.Rejection{Reason: engine.ReasonNotActive}
	}
	return s, nil
}

func (e *Engine) rejected(op, participant string, err error) bidResult {
	e.log.Debug("command rejected", zap.String("op", op), zap.String("participant", participant), zap.Error(err))
	return bidResult{err: err}
}

func (e *Engine) overrideOutcome(o engine.Outcome) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s, err := e.openRound(e.now())
	if err != nil {
		return err
	}
	e.log.Warn("outcome overridden", zap.String("round_id", s.Info.RoundID))
	s.Outcome = o
	return nil
}

func (e *Engine) participantBids(participant string) []pub.BidView {
	if e.cur == nil {
		return []pub.BidView{}
	}
	wagers := e.cur.Ledger.Participant(participant)
	out := make([]pub.BidView, 0, len(wagers))
	for _, v := range engine.BettableValues {
		if w, ok := wagers[v]; ok {
			out = append(out, pub.BidView{ChosenNumber: int(v), Amount: w.Amount, UpdatedAt: w.UpdatedAt.UnixMilli()})
		}
	}
	return out
}

// leave drops the connection. A participant left with no connections and no
// wagers is forgotten, so the player count tracks who is actually present.
func (e *Engine) leave(participant, connID string) {
	reg := e.registry()
	reg.Remove(participant, connID)
	if reg.Connected(participant) {
		return
	}
	if e.cur != nil && e.cur.Ledger.Has(participant) {
		return
	}
	reg.Forget(participant)
}
