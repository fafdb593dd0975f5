package types

// RoundState is the broadcastable view of the current round. Timestamps are
// unix milliseconds. Results is only filled once the round is COMPUTING or later.
type RoundState struct {
	SessionID         string           `json:"sessionId,omitempty"`
	DBSessionID       int64            `json:"dbSessionId,omitempty"`
	Status            string           `json:"status"`
	Paused            bool             `json:"paused"`
	Degraded          bool             `json:"degraded,omitempty"`
	StartedAt         int64            `json:"startedAt,omitempty"`
	LockAt            int64            `json:"lockAt,omitempty"`
	ResultsAt         int64            `json:"resultsAt,omitempty"`
	EndsAt            int64            `json:"endsAt,omitempty"`
	RemainingMs       int64            `json:"remainingMs"`
	RemainingActiveMs int64            `json:"remainingActiveMs"`
	BidSummary        map[int]BidTotal `json:"bidSummary"`
	TotalAmount       float64          `json:"totalAmount"`
	PlayersCount      int              `json:"playersCount"`
	BettorsCount      int              `json:"bettorsCount"`
	Results           []int            `json:"results,omitempty"`
}

type BidTotal struct {
	TotalAmount float64 `json:"totalAmount"`
	Count       int     `json:"count"`
}

// StatusPaused is reported when no round is live because the game is switched off.
const StatusPaused = "PAUSED"
