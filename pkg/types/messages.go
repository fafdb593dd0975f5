package types

// Client -> Server
//
//	join_session:  {}
//	leave_session: {}
//	place_bid:     chosen_number (1..6, 7 = all suit), amount
//	update_bid:    same as place_bid
//	delete_bid:    chosen_number
const (
	CmdJoinSession  = "join_session"
	CmdLeaveSession = "leave_session"
	CmdPlaceBid     = "place_bid"
	CmdUpdateBid    = "update_bid"
	CmdDeleteBid    = "delete_bid"
)

// Server -> Client
const (
	MsgSessionState    = "session_state"
	MsgSessionUpdate   = "session_update"
	MsgMyBids          = "my_bids"
	MsgSessionLocked   = "session_locked"
	MsgOutcomePreview  = "outcome_preview"
	MsgPersonalPreview = "personal_result_preview"
	MsgAnnounceResult  = "announce_result"
	MsgPersonalResult  = "personal_result"
	MsgSessionEnded    = "session_ended"
	MsgNewSession      = "new_session"
	MsgBidAccepted     = "bid_accepted"
	MsgBidRejected     = "bid_rejected"
	MsgBidDeleted      = "bid_deleted"
	MsgBidDeleteFailed = "bid_delete_failed"
	MsgError           = "error"
)

// WarningPersist is attached to lifecycle events when the store call behind
// them failed.
const WarningPersist = "persist_error"

type BidView struct {
	ChosenNumber int     `json:"chosen_number"`
	Amount       float64 `json:"amount"`
	UpdatedAt    int64   `json:"updatedAt,omitempty"`
}

type BidRejected struct {
	ChosenNumber int    `json:"chosen_number,omitempty"`
	Reason       string `json:"reason"`
}

type Locked struct {
	SessionID   string `json:"sessionId"`
	DBSessionID int64  `json:"dbSessionId,omitempty"`
	Degraded    bool   `json:"degraded,omitempty"`
	Warning     string `json:"warning,omitempty"`
}

type OutcomePreview struct {
	SessionID   string `json:"sessionId"`
	DBSessionID int64  `json:"dbSessionId,omitempty"`
	Results     []int  `json:"results"`
	AllDistinct bool   `json:"allDistinct"`
}

type LineView struct {
	ChosenNumber int     `json:"chosen_number"`
	Amount       float64 `json:"amount"`
	MatchCount   int     `json:"matchCount"`
	Multiplier   int     `json:"multiplier"`
	Payout       float64 `json:"payout"`
	IsWinner     bool    `json:"isWinner"`
}

// PersonalResult is sent to one participant's open connections, first as a
// preview while the round computes and then as the final result.
type PersonalResult struct {
	SessionID   string     `json:"sessionId"`
	DBSessionID int64      `json:"dbSessionId,omitempty"`
	UserID      string     `json:"userId"`
	Results     []int      `json:"results"`
	Bids        []LineView `json:"bids"`
	TotalBid    float64    `json:"totalBid"`
	TotalPayout float64    `json:"totalPayout"`
	Net         float64    `json:"net"`
	Final       bool       `json:"final"`
}

type ResultSummary struct {
	TotalPlayers int     `json:"totalPlayers"`
	TotalAmount  float64 `json:"totalAmount"`
	TotalPayout  float64 `json:"totalPayout"`
}

type ResultAnnouncement struct {
	SessionID   string        `json:"sessionId"`
	DBSessionID int64         `json:"dbSessionId,omitempty"`
	Results     []int         `json:"results"`
	AllDistinct bool          `json:"allDistinct"`
	Summary     ResultSummary `json:"summary"`
	Degraded    bool          `json:"degraded,omitempty"`
	Warning     string        `json:"warning,omitempty"`
}

type SessionEnded struct {
	SessionID   string `json:"sessionId"`
	DBSessionID int64  `json:"dbSessionId,omitempty"`
	NextRound   bool   `json:"nextRound"`
}
