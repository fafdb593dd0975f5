// Package store persists finalized rounds and their settlements and owns the
// activation flag. It satisfies session.Persistence and
// session.ActivationSource.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/KatariSolutions/NumberGame/internal/engine"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	controlRowID = 1
	batchSize    = 500
)

var ErrUnknownDriver = errors.New("store: unknown driver")

type Config struct {
	Driver string
	DSN    string
	Logger *zap.Logger
}

type Store struct {
	db   *gorm.DB
	pool *pgxpool.Pool
	log  *zap.Logger
	now  func() time.Time
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	s := &Store{log: log.Named("store"), now: func() time.Time { return time.Now().UTC() }}
	switch cfg.Driver {
	case DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		db, err := gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), gcfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("open gorm postgres: %w", err)
		}
		s.db, s.pool = db, pool

	case DriverSQLite, "":
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		// sqlite serializes writers anyway; one connection keeps in-memory dbs shared.
		sqlDB.SetMaxOpenConns(1)
		s.db = db

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	s.log.Info("store opened", zap.String("driver", cfg.Driver))
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	if sqlDB, derr := s.db.DB(); derr == nil {
		err = multierr.Append(err, sqlDB.Close())
	} else {
		err = multierr.Append(err, derr)
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// IsGameActive reports the activation flag. A missing control row reads as
// inactive.
func (s *Store) IsGameActive(ctx context.Context) (bool, error) {
	var gc GameControl
	err := s.db.WithContext(ctx).First(&gc, controlRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read game control: %w", err)
	}
	return gc.IsActive, nil
}

func (s *Store) SetGameActive(ctx context.Context, active bool) error {
	row := GameControl{ID: controlRowID, IsActive: active, UpdatedAt: s.now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_active", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write game control: %w", err)
	}
	s.log.Info("game status changed", zap.Bool("active", active))
	return nil
}

// SaveRound writes the locked round and its wagers in one transaction and
// returns the durable session id.
func (s *Store) SaveRound(ctx context.Context, info engine.RoundInfo, bids []engine.Bid) (int64, error) {
	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gs := sessionRow(info)
		if err := tx.Create(&gs).Error; err != nil {
			return fmt.Errorf("insert game session: %w", err)
		}
		id = gs.ID

		if len(bids) == 0 {
			return nil
		}
		rows := make([]Bid, 0, len(bids))
		for _, b := range bids {
			rows = append(rows, Bid{
				SessionID:    gs.ID,
				UserID:       b.Participant,
				ChosenNumber: int(b.Value),
				Amount:       b.Amount,
				CreatedAt:    b.UpdatedAt.UTC(),
			})
		}
		if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
			return fmt.Errorf("insert bids: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Debug("round persisted", zap.String("round_id", info.RoundID), zap.Int64("session_id", id), zap.Int("bids", len(bids)))
	return id, nil
}

// SaveSettlement writes the outcome, every settled line and the wallet
// deltas in one transaction. A zero durableID means the lock persist never
// produced a row, so the session row is found or inserted here.
func (s *Store) SaveSettlement(ctx context.Context, durableID int64, info engine.RoundInfo, st engine.Settlement) error {
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id := durableID
		if id == 0 {
			gs := sessionRow(info)
			if err := tx.Where(GameSession{RoundID: info.RoundID}).Attrs(gs).FirstOrCreate(&gs).Error; err != nil {
				return fmt.Errorf("insert fallback game session: %w", err)
			}
			id = gs.ID
		}

		res := SessionResult{
			SessionID:   id,
			Results:     st.Outcome.Slice(),
			AllDistinct: st.AllDistinct,
			TotalIn:     st.TotalIn,
			TotalOut:    st.TotalOut,
			DeclaredAt:  now,
		}
		if err := tx.Create(&res).Error; err != nil {
			return fmt.Errorf("insert session result: %w", err)
		}

		var lines []SessionUserResult
		for _, p := range st.Participants {
			for _, l := range p.Lines {
				lines = append(lines, SessionUserResult{
					SessionID:    id,
					UserID:       p.Participant,
					ChosenNumber: int(l.Value),
					Amount:       l.Amount,
					MatchCount:   l.MatchCount,
					Multiplier:   l.Multiplier,
					IsWinner:     l.Won,
					Payout:       l.Payout,
					CreatedAt:    now,
				})
			}
		}
		if len(lines) > 0 {
			if err := tx.CreateInBatches(lines, batchSize).Error; err != nil {
				return fmt.Errorf("insert user results: %w", err)
			}
		}

		for _, p := range st.Participants {
			if p.Net == 0 {
				continue
			}
			if err := applyDelta(tx, p.Participant, p.Net, id, now); err != nil {
				return fmt.Errorf("wallet %s: %w", p.Participant, err)
			}
		}
		return nil
	})
}

func applyDelta(tx *gorm.DB, userID string, delta float64, ref int64, now time.Time) error {
	w := Wallet{UserID: userID}
	if err := tx.Where(Wallet{UserID: userID}).Attrs(Wallet{LastUpdated: now}).FirstOrCreate(&w).Error; err != nil {
		return err
	}
	err := tx.Model(&Wallet{}).Where("id = ?", w.ID).Updates(map[string]any{
		"balance":      gorm.Expr("balance + ?", delta),
		"last_updated": now,
	}).Error
	if err != nil {
		return err
	}
	return tx.Create(&WalletTransaction{
		WalletID:    w.ID,
		TxnType:     TxnSettlement,
		Amount:      delta,
		ReferenceID: ref,
		CreatedAt:   now,
	}).Error
}

func sessionRow(info engine.RoundInfo) GameSession {
	return GameSession{
		RoundID:      info.RoundID,
		SessionStart: info.CreatedAt.UTC(),
		BiddingEnd:   info.LockAt.UTC(),
		ResultsAt:    info.SettleAt.UTC(),
		SessionEnd:   info.EndAt.UTC(),
	}
}
