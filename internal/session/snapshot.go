package session

import (
	"time"

	"github.com/KatariSolutions/NumberGame/internal/engine"
	pub "github.com/KatariSolutions/NumberGame/pkg/types"
)

// snapshot builds the broadcastable view. The outcome stays hidden until the
// round is computing.
func (e *Engine) snapshot(now time.Time) pub.RoundState {
	s := e.cur
	if s == nil {
		return pub.RoundState{
			Status:       pub.StatusPaused,
			Paused:       true,
			BidSummary:   map[int]pub.BidTotal{},
			PlayersCount: e.waiting.Len(),
		}
	}

	summary := make(map[int]pub.BidTotal)
	for v, t := range s.Ledger.Summary() {
		summary[int(v)] = pub.BidTotal{TotalAmount: t.TotalAmount, Count: t.Count}
	}

	state := pub.RoundState{
		SessionID:         s.Info.RoundID,
		DBSessionID:       s.DurableID,
		Status:            string(s.Phase),
		Degraded:          s.degraded,
		StartedAt:         s.Info.CreatedAt.UnixMilli(),
		LockAt:            s.Info.LockAt.UnixMilli(),
		ResultsAt:         s.Info.SettleAt.UnixMilli(),
		EndsAt:            s.Info.EndAt.UnixMilli(),
		RemainingMs:       remaining(s.Info.EndAt, now),
		RemainingActiveMs: remaining(s.Info.LockAt, now),
		BidSummary:        summary,
		TotalAmount:       s.Ledger.Total(),
		PlayersCount:      s.Registry.Len(),
		BettorsCount:      s.Ledger.Len(),
	}
	if s.Phase.AtLeast(engine.PhaseComputing) {
		state.Results = s.Outcome.Slice()
	}
	return state
}

func remaining(until, now time.Time) int64 {
	if d := until.Sub(now); d > 0 {
		return d.Milliseconds()
	}
	return 0
}

func personalResult(s *Session, p engine.ParticipantResult, results []int, final bool) pub.PersonalResult {
	lines := make([]pub.LineView, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, pub.LineView{
			ChosenNumber: int(l.Value),
			Amount:       l.Amount,
			MatchCount:   l.MatchCount,
			Multiplier:   l.Multiplier,
			Payout:       l.Payout,
			IsWinner:     l.Won,
		})
	}
	return pub.PersonalResult{
		SessionID:   s.Info.RoundID,
		DBSessionID: s.DurableID,
		UserID:      p.Participant,
		Results:     results,
		Bids:        lines,
		TotalBid:    p.Staked,
		TotalPayout: p.Payout,
		Net:         p.Net,
		Final:       final,
	}
}
