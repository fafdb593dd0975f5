package store

import (
	"context"
	"fmt"
	"time"
)

type HistoryRow struct {
	SessionID int64   `json:"session_id"`
	RoundID   string  `json:"round_id"`
	BidPlaced float64 `json:"bid_placed"`
	Payout    float64 `json:"payout"`
	PnL       float64 `json:"pnl"`
}

type RoundStat struct {
	SessionID    int64     `json:"session_id"`
	RoundID      string    `json:"round_id"`
	SessionStart time.Time `json:"session_start"`
	TotalIn      float64   `json:"total_in"`
	TotalOut     float64   `json:"total_out"`
	PnL          float64   `json:"pnl"`
	Players      int       `json:"players"`
}

// Analytics is the house view: PnL is stakes in minus payouts out.
type Analytics struct {
	Rounds   []RoundStat `json:"rounds"`
	TotalIn  float64     `json:"total_in"`
	TotalOut float64     `json:"total_out"`
	TotalPnL float64     `json:"total_pnl"`
}

func (s *Store) UserRoundResults(ctx context.Context, sessionID int64, userID string) ([]SessionUserResult, error) {
	var out []SessionUserResult
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Order("chosen_number").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("user round results: %w", err)
	}
	return out, nil
}

// UserHistory lists the participant's settled rounds, newest first. PnL is
// from the participant's side.
func (s *Store) UserHistory(ctx context.Context, userID string, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []HistoryRow
	err := s.db.WithContext(ctx).
		Table("session_user_results AS r").
		Select("r.session_id, s.round_id, SUM(r.amount) AS bid_placed, SUM(r.payout) AS payout").
		Joins("JOIN game_sessions AS s ON s.id = r.session_id").
		Where("r.user_id = ?", userID).
		Group("r.session_id, s.round_id").
		Order("r.session_id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("user history: %w", err)
	}
	for i := range rows {
		rows[i].PnL = rows[i].Payout - rows[i].BidPlaced
	}
	return rows, nil
}

// Analytics aggregates settled rounds that started within [from, to].
func (s *Store) Analytics(ctx context.Context, from, to time.Time) (Analytics, error) {
	var rows []RoundStat
	err := s.db.WithContext(ctx).
		Table("session_user_results AS r").
		Select("r.session_id, s.round_id, s.session_start, SUM(r.amount) AS total_in, SUM(r.payout) AS total_out, COUNT(DISTINCT r.user_id) AS players").
		Joins("JOIN game_sessions AS s ON s.id = r.session_id").
		Where("s.session_start >= ? AND s.session_start <= ?", from.UTC(), to.UTC()).
		Group("r.session_id, s.round_id, s.session_start").
		Having("SUM(r.amount) > 0").
		Order("r.session_id").
		Scan(&rows).Error
	if err != nil {
		return Analytics{}, fmt.Errorf("analytics: %w", err)
	}

	out := Analytics{Rounds: rows}
	for i := range out.Rounds {
		r := &out.Rounds[i]
		r.PnL = r.TotalIn - r.TotalOut
		out.TotalIn += r.TotalIn
		out.TotalOut += r.TotalOut
		out.TotalPnL += r.PnL
	}
	if out.Rounds == nil {
		out.Rounds = []RoundStat{}
	}
	return out, nil
}

// WalletBalance returns zero for a participant without a wallet.
func (s *Store) WalletBalance(ctx context.Context, userID string) (float64, error) {
	var w Wallet
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&w)
	if res.Error != nil {
		return 0, fmt.Errorf("wallet balance: %w", res.Error)
	}
	return w.Balance, nil
}
