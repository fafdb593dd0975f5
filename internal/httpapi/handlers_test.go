package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KatariSolutions/NumberGame/internal/engine"
	"github.com/KatariSolutions/NumberGame/internal/session"
	"github.com/KatariSolutions/NumberGame/internal/store"
	pub "github.com/KatariSolutions/NumberGame/pkg/types"
)

type fakeRound struct {
	state    pub.RoundState
	err      error
	override error
	got      engine.Outcome
}

func (f *fakeRound) Snapshot(context.Context) (pub.RoundState, error) { return f.state, f.err }
func (f *fakeRound) Warnings(context.Context) ([]session.Warning, error) {
	return []session.Warning{{Op: "save round", Error: "db down"}}, f.err
}
func (f *fakeRound) OverrideOutcome(_ context.Context, o engine.Outcome) error {
	f.got = o
	return f.override
}

type fakeStore struct {
	active   bool
	from, to time.Time
	err      error
}

func (f *fakeStore) IsGameActive(context.Context) (bool, error) { return f.active, f.err }
func (f *fakeStore) SetGameActive(_ context.Context, a bool) error {
	f.active = a
	return f.err
}
func (f *fakeStore) Analytics(_ context.Context, from, to time.Time) (store.Analytics, error) {
	f.from, f.to = from, to
	return store.Analytics{Rounds: []store.RoundStat{}, TotalIn: 35}, f.err
}
func (f *fakeStore) UserRoundResults(_ context.Context, id int64, user string) ([]store.SessionUserResult, error) {
	return []store.SessionUserResult{{SessionID: id, UserID: user, ChosenNumber: 2}}, f.err
}
func (f *fakeStore) UserHistory(_ context.Context, user string, _ int) ([]store.HistoryRow, error) {
	return []store.HistoryRow{{SessionID: 1, PnL: 15}}, f.err
}
func (f *fakeStore) WalletBalance(context.Context, string) (float64, error) { return 42.5, f.err }

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func newRouter(r *fakeRound, s *fakeStore) http.Handler {
	return SetupRoutes(Deps{Round: r, Store: s})
}

func TestHealthz(t *testing.T) {
	rec, _ := do(t, newRouter(&fakeRound{}, &fakeStore{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoundSnapshot(t *testing.T) {
	r := &fakeRound{state: pub.RoundState{SessionID: "abc", Status: "ACTIVE"}}
	rec, body := do(t, newRouter(r, &fakeStore{}), http.MethodGet, "/api/round", "")
	require.Equal(t, http.StatusOK, rec.Code)
	result := body["result"].(map[string]any)
	assert.Equal(t, "abc", result["sessionId"])
	assert.NotContains(t, result, "results")

	r.err = session.ErrStopped
	rec, _ = do(t, newRouter(r, &fakeStore{}), http.MethodGet, "/api/round", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGameStatus(t *testing.T) {
	s := &fakeStore{}
	h := newRouter(&fakeRound{}, s)

	rec, body := do(t, h, http.MethodGet, "/api/games/gamestatus", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["result"].(map[string]any)["is_active"])

	rec, _ = do(t, h, http.MethodPost, "/api/games/setgamestatus", `{"is_active":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.active)

	rec, _ = do(t, h, http.MethodPost, "/api/games/setgamestatus", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.err = errors.New("db down")
	rec, body = do(t, h, http.MethodGet, "/api/games/gamestatus", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server error", body["message"])
}

func TestGameAnalytics(t *testing.T) {
	s := &fakeStore{}
	h := newRouter(&fakeRound{}, s)

	rec, body := do(t, h, http.MethodPost, "/api/games/analytics", `{"fromDate":"2025-01-01","toDate":"2025-01-31"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 35.0, body["result"].(map[string]any)["total_in"])
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), s.from)
	assert.Equal(t, 31, s.to.Day())
	assert.Equal(t, 23, s.to.Hour())

	rec, _ = do(t, h, http.MethodPost, "/api/games/analytics", `{"fromDate":"2025-02-01","toDate":"2025-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/games/analytics", `{"toDate":"2025-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBidsRoutes(t *testing.T) {
	h := newRouter(&fakeRound{}, &fakeStore{})

	rec, body := do(t, h, http.MethodPost, "/api/bids/session", `{"session_id":7,"user_id":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := body["result"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, 7.0, rows[0].(map[string]any)["session_id"])

	rec, _ = do(t, h, http.MethodPost, "/api/bids/session", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, h, http.MethodPost, "/api/bids/user", `{"user_id":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 15.0, body["result"].([]any)[0].(map[string]any)["pnl"])
}

func TestWalletBalance(t *testing.T) {
	rec, body := do(t, newRouter(&fakeRound{}, &fakeStore{}), http.MethodGet, "/api/wallet/balance/u9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	result := body["result"].(map[string]any)
	assert.Equal(t, "u9", result["user_id"])
	assert.Equal(t, 42.5, result["balance"])
}

func TestAdminRoutes(t *testing.T) {
	r := &fakeRound{}
	h := newRouter(r, &fakeStore{})

	rec, body := do(t, h, http.MethodGet, "/api/admin/warnings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["result"], 1)

	rec, _ = do(t, h, http.MethodPost, "/api/admin/outcome", `{"results":[1,2,3,4,5,6]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engine.Outcome{1, 2, 3, 4, 5, 6}, r.got)

	rec, _ = do(t, h, http.MethodPost, "/api/admin/outcome", `{"results":[1,2,3]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/admin/outcome", `{"results":[1,2,3,4,5,9]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	r.override = &engine.Rejection{Reason: engine.ReasonNotActive}
	rec, body = do(t, h, http.MethodPost, "/api/admin/outcome", `{"results":[1,2,3,4,5,6]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(engine.ReasonNotActive), body["message"])
}
