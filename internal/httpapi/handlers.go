package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/KatariSolutions/NumberGame/internal/engine"
	"github.com/KatariSolutions/NumberGame/internal/session"
	"github.com/KatariSolutions/NumberGame/internal/store"
	pub "github.com/KatariSolutions/NumberGame/pkg/types"
)

type Round interface {
	Snapshot(ctx context.Context) (pub.RoundState, error)
	Warnings(ctx context.Context) ([]session.Warning, error)
	OverrideOutcome(ctx context.Context, outcome engine.Outcome) error
}

type Store interface {
	IsGameActive(ctx context.Context) (bool, error)
	SetGameActive(ctx context.Context, active bool) error
	Analytics(ctx context.Context, from, to time.Time) (store.Analytics, error)
	UserRoundResults(ctx context.Context, sessionID int64, userID string) ([]store.SessionUserResult, error)
	UserHistory(ctx context.Context, userID string, limit int) ([]store.HistoryRow, error)
	WalletBalance(ctx context.Context, userID string) (float64, error)
}

type response struct {
	Result  any    `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{Message: msg})
}

func serverError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	log.Error("request failed", zap.String("op", op), zap.Error(err))
	if errors.Is(err, session.ErrStopped) {
		writeError(w, http.StatusServiceUnavailable, "server shutting down")
		return
	}
	writeError(w, http.StatusInternalServerError, "server error")
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func RoundSnapshot(round Round, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := round.Snapshot(r.Context())
		if err != nil {
			serverError(w, log, "snapshot", err)
			return
		}
		writeJSON(w, http.StatusOK, response{Result: st})
	}
}

type gameStatus struct {
	IsActive *bool `json:"is_active"`
}

func GameStatus(st Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, err := st.IsGameActive(r.Context())
		if err != nil {
			serverError(w, log, "game status", err)
			return
		}
		writeJSON(w, http.StatusOK, response{Result: gameStatus{IsActive: &active}})
	}
}

// SetGameStatus flips the activation flag. The running round is not
// interrupted; the flag is read when the next round would start.
func SetGameStatus(st Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gameStatus
		if err := decode(r, &req); err != nil || req.IsActive == nil {
			writeError(w, http.StatusBadRequest, "is_active is required")
			return
		}
		if err := st.SetGameActive(r.Context(), *req.IsActive); err != nil {
			serverError(w, log, "set game status", err)
			return
		}
		writeJSON(w, http.StatusOK, response{Result: req, Message: "game status updated"})
	}
}

type analyticsRequest struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

func GameAnalytics(st Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyticsRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		from, ok := parseDate(req.FromDate, false)
		if !ok {
			writeError(w, http.StatusBadRequest, "fromDate is required")
			return
		}
		to, ok := parseDate(req.ToDate, true)
		if !ok {
			writeError(w, http.StatusBadRequest, "toDate is required")
			return
		}
		if to.Before(from) {
			writeError(w, http.StatusBadRequest, "toDate before fromDate")
			return
		}

		an, err := st.Analytics(r.Context(), from, to)
		if err != nil {
			serverError(w, log, "analytics", err)
			return
		}
		writeJSON(w, http.StatusOK, response{Result: an})
	}
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the
// whole day.
func parseDate(s string, end bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}

type bidsRequest struct {
	SessionID int64  `json:"session_id"`
	UserID    string `json:"user_id"`
	Limit     int    `json:"limit"`
}

func BidsBySession(st Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bidsRequest
		if err := decode(r, &req); err != nil || req.SessionID == 0 || req.UserID == "" {
			writeError(w, http.StatusBadRequest, "session_id and user_id are required")
			return
		}
		rows, err := st.UserRoundResults(r.Context(), req.SessionID, req.UserID)
		if err != nil {
			serverError(w, log, "bids by session", err)
			return
		}
		writeJSON(w, http.StatusOK, response{Result: rows})
	}
}

func BidsByUser(st Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bidsRequest
		if err := decode(r, &req); err != nil || req.UserID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		rows, err := st.UserHistory(r.Context(), req.UserID, req.Limit)
		if err != nil {
			serverError(w, log, "bids by user", err)
			return
		}
		writeJSON(w, http.StatusOK, response{Result: rows})
	}
}

func WalletBalance(st Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		bal, err := st.WalletBalance(r.Context(), userID)
		if err != nil {
			serverError(w, log, "wallet balance", err)
			return
		}
		writeJSON(w, http.StatusOK, response{Result: struct {
			UserID  string  `json:"user_id"`
			Balance float64 `json:"balance"`
		}{userID, bal}})
	}
}

func Warnings(round Round, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := round.Warnings(r.Context())
		if err != nil {
			serverError(w, log, "warnings", err)
			return
		}
		writeJSON(w, http.StatusOK, response{Result: ws})
	}
}

type outcomeRequest struct {
	Results []int `json:"results"`
}

func OverrideOutcome(round Round, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req outcomeRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		outcome, err := engine.OutcomeFromSlice(req.Results)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		err = round.OverrideOutcome(r.Context(), outcome)
		if reason, ok := engine.ReasonOf(err); ok {
			writeError(w, http.StatusConflict, string(reason))
			return
		}
		if errors.Is(err, engine.ErrInvalidOutcome) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			serverError(w, log, "override outcome", err)
			return
		}
		log.Warn("outcome override accepted", zap.Ints("results", req.Results))
		writeJSON(w, http.StatusOK, response{Message: "outcome set"})
	}
}
