package engine

import (
	"testing"
	"time"
)

func TestLedger_LastWriteWins(t *testing.T) {
	l := NewLedger()
	t0 := time.Unix(100, 0)
	l.Put("u1", 3, 10, t0)
	l.Put("u1", 3, 40, t0.Add(time.Second))

	w, ok := l.Get("u1", 3)
	if !ok {
		t.Fatalf("expected wager")
	}
	if w.Amount != 40 || !w.UpdatedAt.Equal(t0.Add(time.Second)) {
		t.Fatalf("expected overwrite, got %+v", w)
	}
	if got := len(l.Bids()); got != 1 {
		t.Fatalf("want 1 bid, got %d", got)
	}
}

func TestLedger_SummaryAndOrder(t *testing.T) {
	l := NewLedger()
	now := time.Unix(0, 0)
	l.Put("u2", 1, 5, now)
	l.Put("u1", 1, 10, now)
	l.Put("u1", AllSuit, 2, now)

	sum := l.Summary()
	if sum[1].TotalAmount != 15 || sum[1].Count != 2 {
		t.Fatalf("value 1: got %+v", sum[1])
	}
	if sum[AllSuit].Count != 1 {
		t.Fatalf("all suit: got %+v", sum[AllSuit])
	}
	if _, ok := sum[4]; ok {
		t.Fatalf("values without wagers must not appear")
	}

	bids := l.Bids()
	if bids[0].Participant != "u1" || bids[0].Value != 1 || bids[1].Value != AllSuit || bids[2].Participant != "u2" {
		t.Fatalf("unexpected order: %+v", bids)
	}
	if l.Total() != 17 || l.Len() != 2 {
		t.Fatalf("total=%v len=%d", l.Total(), l.Len())
	}
}

func TestLedger_ParticipantIsCopy(t *testing.T) {
	l := NewLedger()
	l.Put("u1", 2, 10, time.Now())
	m := l.Participant("u1")
	delete(m, 2)
	if _, ok := l.Get("u1", 2); !ok {
		t.Fatalf("mutating the copy changed the ledger")
	}
}
