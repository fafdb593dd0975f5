package engine

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestSettle_PayoutRule(t *testing.T) {
	mixed := Outcome{2, 2, 5, 1, 6, 3}
	distinct := Outcome{1, 2, 3, 4, 5, 6}

	cases := []struct {
		name       string
		outcome    Outcome
		value      Value
		wantMatch  int
		wantPayout float64
		wantNet    float64
	}{
		{name: "double match pays twice plus stake", outcome: mixed, value: 2, wantMatch: 2, wantPayout: 30, wantNet: 20},
		{name: "no match loses stake", outcome: mixed, value: 4, wantMatch: 0, wantPayout: 0, wantNet: -10},
		{name: "single match does not pay", outcome: mixed, value: 5, wantMatch: 1, wantPayout: 0, wantNet: -10},
		{name: "all suit on distinct roll", outcome: distinct, value: AllSuit, wantMatch: 6, wantPayout: 70, wantNet: 60},
		{name: "all suit on repeated face", outcome: mixed, value: AllSuit, wantMatch: 0, wantPayout: 0, wantNet: -10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Settle([]Bid{{Participant: "u1", Value: tc.value, Amount: 10}}, tc.outcome)
			p, ok := s.For("u1")
			if !ok {
				t.Fatalf("expected a result for u1")
			}
			if len(p.Lines) != 1 {
				t.Fatalf("want 1 line, got %d", len(p.Lines))
			}
			if p.Lines[0].MatchCount != tc.wantMatch {
				t.Fatalf("matchCount: got %d, want %d", p.Lines[0].MatchCount, tc.wantMatch)
			}
			if p.Payout != tc.wantPayout {
				t.Fatalf("payout: got %v, want %v", p.Payout, tc.wantPayout)
			}
			if p.Net != tc.wantNet {
				t.Fatalf("net: got %v, want %v", p.Net, tc.wantNet)
			}
		})
	}
}

func TestSettle_TripleMatch(t *testing.T) {
	s := Settle([]Bid{{Participant: "u1", Value: 4, Amount: 5}}, Outcome{4, 4, 4, 1, 2, 3})
	p, _ := s.For("u1")
	if p.Payout != 20 || p.Net != 15 {
		t.Fatalf("got payout=%v net=%v, want 20/15", p.Payout, p.Net)
	}
}

func TestSettle_AggregatesPerParticipant(t *testing.T) {
	bids := []Bid{
		{Participant: "b", Value: 2, Amount: 10},
		{Participant: "a", Value: 4, Amount: 7},
		{Participant: "b", Value: 5, Amount: 3},
		{Participant: "b", Value: AllSuit, Amount: 1},
	}
	s := Settle(bids, Outcome{2, 2, 5, 1, 6, 3})

	if len(s.Participants) != 2 || s.Participants[0].Participant != "a" {
		t.Fatalf("expected participants sorted [a b], got %+v", s.Participants)
	}
	b, _ := s.For("b")
	if b.Staked != 14 || b.Payout != 30 || b.Net != 16 {
		t.Fatalf("b: got staked=%v payout=%v net=%v", b.Staked, b.Payout, b.Net)
	}
	if s.TotalIn != 21 || s.TotalOut != 30 {
		t.Fatalf("totals: got in=%v out=%v", s.TotalIn, s.TotalOut)
	}
}

func TestSettle_IsPure(t *testing.T) {
	bids := []Bid{
		{Participant: "z", Value: 6, Amount: 12.5},
		{Participant: "a", Value: 2, Amount: 10},
		{Participant: "m", Value: AllSuit, Amount: 3},
	}
	outcome := Outcome{2, 2, 5, 1, 6, 6}

	first, err := json.Marshal(Settle(bids, outcome))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := json.Marshal(Settle(bids, outcome))
		if string(again) != string(first) {
			t.Fatalf("run %d differs:\n%s\n%s", i, first, again)
		}
	}
	if bids[0].Participant != "z" {
		t.Fatalf("Settle reordered its input")
	}
}

func TestSettle_MalformedAmountsCountAsZero(t *testing.T) {
	bids := []Bid{
		{Participant: "u1", Value: 2, Amount: math.NaN()},
		{Participant: "u1", Value: 3, Amount: -4},
		{Participant: "u1", Value: 9, Amount: 10},
	}
	s := Settle(bids, Outcome{2, 2, 3, 3, 1, 1})
	p, _ := s.For("u1")
	if p.Staked != 0 || p.Payout != 0 || p.Net != 0 {
		t.Fatalf("got staked=%v payout=%v net=%v", p.Staked, p.Payout, p.Net)
	}
	if s.TotalIn != 0 {
		t.Fatalf("malformed lines must not count as stake, totalIn=%v", s.TotalIn)
	}
}

func TestSettle_OutOfDomainValueIsZeroStake(t *testing.T) {
	bids := []Bid{
		{Participant: "u1", Value: 9, Amount: 10},
		{Participant: "u1", Value: 0, Amount: 5},
		{Participant: "u1", Value: 2, Amount: 10},
	}
	s := Settle(bids, Outcome{2, 2, 5, 1, 6, 3})
	p, _ := s.For("u1")
	if p.Staked != 10 || p.Payout != 30 || p.Net != 20 {
		t.Fatalf("got staked=%v payout=%v net=%v", p.Staked, p.Payout, p.Net)
	}
	for _, l := range p.Lines {
		if !l.Value.Valid() && (l.Amount != 0 || l.Won) {
			t.Fatalf("out-of-domain line settled as %+v", l)
		}
	}
}

func TestSettle_Empty(t *testing.T) {
	s := Settle(nil, Outcome{1, 1, 1, 1, 1, 1})
	if len(s.Participants) != 0 || s.TotalIn != 0 || s.TotalOut != 0 {
		t.Fatalf("expected empty settlement, got %+v", s)
	}
}

func TestSettle_FromLedger(t *testing.T) {
	l := NewLedger()
	now := time.Unix(0, 0)
	l.Put("u1", 2, 10, now)
	l.Put("u1", 2, 25, now.Add(time.Second))

	s := Settle(l.Bids(), Outcome{2, 2, 5, 1, 6, 3})
	p, _ := s.For("u1")
	if p.Staked != 25 || p.Payout != 75 {
		t.Fatalf("expected overwritten stake to settle, got %+v", p)
	}
}
