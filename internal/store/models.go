package store

import "time"

const TxnSettlement = "SETTLEMENT"

type GameSession struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"session_id"`
	RoundID      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"round_id"`
	SessionStart time.Time `gorm:"not null;index" json:"session_start"`
	BiddingEnd   time.Time `gorm:"not null" json:"bidding_end"`
	ResultsAt    time.Time `gorm:"not null" json:"results_at"`
	SessionEnd   time.Time `gorm:"not null" json:"session_end"`
	CreatedAt    time.Time `json:"created_at"`
}

type Bid struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"bid_id"`
	SessionID    int64     `gorm:"not null;index:idx_bids_session_id" json:"session_id"`
	UserID       string    `gorm:"type:varchar(64);not null;index:idx_bids_user_id" json:"user_id"`
	ChosenNumber int       `gorm:"not null" json:"chosen_number"`
	Amount       float64   `gorm:"type:decimal(18,2);not null" json:"amount"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

// SessionResult keeps the full face vector; Results is stored as JSON text.
type SessionResult struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"result_id"`
	SessionID   int64     `gorm:"not null;uniqueIndex" json:"session_id"`
	Results     []int     `gorm:"serializer:json;type:text;not null" json:"results"`
	AllDistinct bool      `gorm:"not null;default:false" json:"all_distinct"`
	TotalIn     float64   `gorm:"type:decimal(18,2);not null;default:0" json:"total_in"`
	TotalOut    float64   `gorm:"type:decimal(18,2);not null;default:0" json:"total_out"`
	DeclaredAt  time.Time `gorm:"not null" json:"declared_at"`
}

type SessionUserResult struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID    int64     `gorm:"not null;index:idx_sur_session_user" json:"session_id"`
	UserID       string    `gorm:"type:varchar(64);not null;index:idx_sur_session_user;index:idx_sur_user_id" json:"user_id"`
	ChosenNumber int       `gorm:"not null" json:"chosen_number"`
	Amount       float64   `gorm:"type:decimal(18,2);not null" json:"amount"`
	MatchCount   int       `gorm:"not null;default:0" json:"match_count"`
	Multiplier   int       `gorm:"not null;default:0" json:"multiplier"`
	IsWinner     bool      `gorm:"not null;default:false" json:"is_winner"`
	Payout       float64   `gorm:"type:decimal(18,2);not null;default:0" json:"payout"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

type Wallet struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"wallet_id"`
	UserID      string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"user_id"`
	Balance     float64   `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	LastUpdated time.Time `json:"last_updated"`
}

type WalletTransaction struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"txn_id"`
	WalletID    int64     `gorm:"not null;index" json:"wallet_id"`
	TxnType     string    `gorm:"type:varchar(32);not null" json:"txn_type"`
	Amount      float64   `gorm:"type:decimal(18,2);not null" json:"amount"`
	ReferenceID int64     `gorm:"index" json:"reference_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

// GameControl is a single-row table holding the activation flag.
type GameControl struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	IsActive  bool      `gorm:"not null;default:false" json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GameControl) TableName() string { return "game_control" }

func models() []any {
	return []any{
		&GameSession{},
		&Bid{},
		&SessionResult{},
		&SessionUserResult{},
		&Wallet{},
		&WalletTransaction{},
		&GameControl{},
	}
}
