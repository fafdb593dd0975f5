package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KatariSolutions/NumberGame/internal/engine"
	"github.com/KatariSolutions/NumberGame/internal/types"
	pub "github.com/KatariSolutions/NumberGame/pkg/types"
)

func (e *Engine) onTick(now time.Time) {
	if now.After(e.lastTick) {
		e.lastTick = now
	}
	if e.cur == nil {
		if e.opts.ResumePoll <= 0 || now.Sub(e.lastPoll) >= e.opts.ResumePoll {
			e.resume(now)
		}
		return
	}
	e.advance(now)
}

// resume starts a round if the game is switched on.
func (e *Engine) resume(now time.Time) {
	e.lastPoll = now
	if !e.gameActive("") {
		return
	}
	carry := e.waiting.carry()
	if e.startRound(now, carry) {
		e.waiting = NewRegistry()
	}
}

// advance crosses every boundary that now has passed, in order. It stops at a
// boundary whose side effects have not reported back yet.
func (e *Engine) advance(now time.Time) {
	for e.cur != nil {
		s := e.cur
		if s.inFlight {
			return
		}
		switch s.Phase {
		case engine.PhaseActive:
			if now.Before(s.Info.LockAt) {
				return
			}
			e.lock(s)
		case engine.PhaseLocked:
			if now.Before(s.Info.SettleAt) {
				return
			}
			e.compute(s)
		case engine.PhaseSettled:
			if now.Before(s.Info.EndAt) {
				return
			}
			e.end(s, now)
		default:
			return
		}
	}
}

func (e *Engine) lock(s *Session) {
	s.Phase = engine.PhaseLocked
	s.inFlight = true

	info := s.Info
	bids := s.Ledger.Bids()
	e.log.Info("round locked",
		zap.String("round_id", info.RoundID),
		zap.Int("bids", len(bids)),
		zap.Int("bettors", s.Ledger.Len()))

	e.enqueue(func(ctx context.Context) Msg {
		id, err := e.store.SaveRound(ctx, info, bids)
		return lockDoneMsg{roundID: info.RoundID, durableID: id, err: err}
	})
}

func (e *Engine) onLockDone(m lockDoneMsg) {
	s := e.cur
	if s == nil || s.Info.RoundID != m.roundID || s.Phase != engine.PhaseLocked || !s.inFlight {
		e.log.Warn("stale lock completion", zap.String("round_id", m.roundID))
		return
	}
	s.inFlight = false

	payload := pub.Locked{SessionID: s.Info.RoundID}
	if m.err != nil {
		s.degraded = true
		payload.Degraded = true
		payload.Warning = pub.WarningPersist
		e.warn("save round", s.Info.RoundID, m.err)
	} else {
		s.DurableID = m.durableID
		payload.DBSessionID = m.durableID
	}
	e.emit(pub.MsgSessionLocked, payload)
	e.advance(e.now())
}

func (e *Engine) compute(s *Session) {
	s.Phase = engine.PhaseComputing
	s.inFlight = true
	s.settlement = engine.Settle(s.Ledger.Bids(), s.Outcome)

	e.log.Info("round computing",
		zap.String("round_id", s.Info.RoundID),
		zap.Ints("outcome", s.Outcome.Slice()),
		zap.Float64("total_in", s.settlement.TotalIn),
		zap.Float64("total_out", s.settlement.TotalOut))

	e.emit(pub.MsgOutcomePreview, pub.OutcomePreview{
		SessionID:   s.Info.RoundID,
		DBSessionID: s.DurableID,
		Results:     s.Outcome.Slice(),
		AllDistinct: s.settlement.AllDistinct,
	})
	e.sendPersonal(s, pub.MsgPersonalPreview, false)

	durableID := s.DurableID
	info := s.Info
	settlement := s.settlement
	e.enqueue(func(ctx context.Context) Msg {
		err := e.store.SaveSettlement(ctx, durableID, info, settlement)
		return settleDoneMsg{roundID: info.RoundID, err: err}
	})
}

func (e *Engine) onSettleDone(m settleDoneMsg) {
	s := e.cur
	if s == nil || s.Info.RoundID != m.roundID || s.Phase != engine.PhaseComputing || !s.inFlight {
		e.log.Warn("stale settlement completion", zap.String("round_id", m.roundID))
		return
	}
	s.inFlight = false
	s.Phase = engine.PhaseSettled

	payload := pub.ResultAnnouncement{
		SessionID:   s.Info.RoundID,
		DBSessionID: s.DurableID,
		Results:     s.Outcome.Slice(),
		AllDistinct: s.settlement.AllDistinct,
		Summary: pub.ResultSummary{
			TotalPlayers: len(s.settlement.Participants),
			TotalAmount:  s.settlement.TotalIn,
			TotalPayout:  s.settlement.TotalOut,
		},
	}
	if m.err != nil {
		s.degraded = true
		payload.Degraded = true
		payload.Warning = pub.WarningPersist
		e.warn("save settlement", s.Info.RoundID, m.err)
	}

	e.log.Info("round settled", zap.String("round_id", s.Info.RoundID), zap.Bool("degraded", s.degraded))
	e.emit(pub.MsgAnnounceResult, payload)
	e.sendPersonal(s, pub.MsgPersonalResult, true)
	e.advance(e.now())
}

func (e *Engine) end(s *Session, now time.Time) {
	s.Phase = engine.PhaseEnded
	next := e.gameActive(s.Info.RoundID)

	e.log.Info("round ended", zap.String("round_id", s.Info.RoundID), zap.Bool("next_round", next))
	e.emit(pub.MsgSessionEnded, pub.SessionEnded{
		SessionID:   s.Info.RoundID,
		DBSessionID: s.DurableID,
		NextRound:   next,
	})

	carry := s.Registry.carry()
	e.cur = nil
	e.lastPoll = now
	if !next || !e.startRound(now, carry) {
		e.waiting = carry
	}
}

// startRound commits a fresh outcome and opens the next round.
func (e *Engine) startRound(now time.Time, reg *Registry) bool {
	outcome, err := e.gen.Generate()
	if err == nil {
		err = outcome.Validate()
	}
	if err != nil {
		e.warn("generate outcome", "", fmt.Errorf("generate outcome: %w", err))
		return false
	}

	info := e.opts.Timing.Schedule(uuid.NewString(), now)
	e.cur = newSession(info, outcome, reg)
	e.seq = 0

	e.log.Info("round started",
		zap.String("round_id", info.RoundID),
		zap.Time("lock_at", info.LockAt),
		zap.Time("end_at", info.EndAt))
	e.emit(pub.MsgNewSession, e.snapshot(now))
	return true
}

// gameActive consults the activation flag and fails closed.
func (e *Engine) gameActive(roundID string) bool {
	ctx, cancel := context.WithTimeout(e.ctx, e.opts.PersistTimeout)
	defer cancel()

	active, err := e.activation.IsGameActive(ctx)
	if err != nil {
		e.warn("activation flag", roundID, err)
		return false
	}
	return active
}

func (e *Engine) enqueue(j job) {
	select {
	case e.jobs <- j:
	case <-e.ctx.Done():
	}
}

func (e *Engine) emit(kind string, data any) {
	e.seq++
	e.bc.Broadcast(types.ServerMessage{Type: kind, Seq: e.seq, Data: data})
}

// sendPersonal targets each bettor's open connections. Offline bettors are
// skipped here; their results still go to persistence.
func (e *Engine) sendPersonal(s *Session, kind string, final bool) {
	results := s.Outcome.Slice()
	for _, p := range s.settlement.Participants {
		conns := s.Registry.Connections(p.Participant)
		if len(conns) == 0 {
			continue
		}
		e.seq++
		e.bc.SendTo(conns, types.ServerMessage{
			Type: kind,
			Seq:  e.seq,
			Data: personalResult(s, p, results, final),
		})
	}
}
