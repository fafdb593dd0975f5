package engine

import (
	"sort"
	"time"
)

type Wager struct {
	Amount    float64
	UpdatedAt time.Time
}

type Bid struct {
	Participant string
	Value       Value
	Amount      float64
	UpdatedAt   time.Time
}

type ValueTotal struct {
	TotalAmount float64
	Count       int
}

// Ledger holds the current round's wagers, one per (participant, value).
// It is not safe for concurrent use; the round owner serializes access.
type Ledger struct {
	bids map[string]map[Value]Wager
}

func NewLedger() *Ledger {
	return &Ledger{bids: make(map[string]map[Value]Wager)}
}

// Put overwrites the wager for (participant, value). Last write wins.
func (l *Ledger) Put(participant string, v Value, amount float64, at time.Time) {
	m := l.bids[participant]
	if m == nil {
		m = make(map[Value]Wager)
		l.bids[participant] = m
	}
	m[v] = Wager{Amount: amount, UpdatedAt: at}
}

// Delete removes a wager and prunes the participant when nothing is left.
func (l *Ledger) Delete(participant string, v Value) bool {
	m, ok := l.bids[participant]
	if !ok {
		return false
	}
	if _, ok := m[v]; !ok {
		return false
	}
	delete(m, v)
	if len(m) == 0 {
		delete(l.bids, participant)
	}
	return true
}

func (l *Ledger) Get(participant string, v Value) (Wager, bool) {
	w, ok := l.bids[participant][v]
	return w, ok
}

// Participant returns a copy of one participant's wagers.
func (l *Ledger) Participant(participant string) map[Value]Wager {
	src := l.bids[participant]
	out := make(map[Value]Wager, len(src))
	for v, w := range src {
		out[v] = w
	}
	return out
}

func (l *Ledger) Has(participant string) bool {
	_, ok := l.bids[participant]
	return ok
}

// Len is the number of participants holding at least one wager.
func (l *Ledger) Len() int { return len(l.bids) }

// Bids flattens the ledger, sorted by participant then value.
func (l *Ledger) Bids() []Bid {
	out := make([]Bid, 0, len(l.bids))
	for p, m := range l.bids {
		for v, w := range m {
			out = append(out, Bid{Participant: p, Value: v, Amount: w.Amount, UpdatedAt: w.UpdatedAt})
		}
	}
	sortBids(out)
	return out
}

// Summary aggregates amounts and bettor counts per value.
func (l *Ledger) Summary() map[Value]ValueTotal {
	out := make(map[Value]ValueTotal)
	for _, m := range l.bids {
		for v, w := range m {
			t := out[v]
			t.TotalAmount += w.Amount
			t.Count++
			out[v] = t
		}
	}
	return out
}

func (l *Ledger) Total() float64 {
	total := 0.0
	for _, m := range l.bids {
		for _, w := range m {
			total += w.Amount
		}
	}
	return total
}

func sortBids(bids []Bid) {
	sort.Slice(bids, func(i, j int) bool {
		if bids[i].Participant != bids[j].Participant {
			return bids[i].Participant < bids[j].Participant
		}
		return bids[i].Value < bids[j].Value
	})
}
