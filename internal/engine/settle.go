package engine

import "math"

type LineResult struct {
	Value      Value
	Amount     float64
	MatchCount int
	Multiplier int
	Payout     float64
	Won        bool
}

type ParticipantResult struct {
	Participant string
	Lines       []LineResult
	Staked      float64
	Payout      float64
	Net         float64
}

type Settlement struct {
	Outcome      Outcome
	AllDistinct  bool
	Participants []ParticipantResult
	TotalIn      float64
	TotalOut     float64
}

// For returns the result of one participant.
func (s Settlement) For(participant string) (ParticipantResult, bool) {
	for _, p := range s.Participants {
		if p.Participant == participant {
			return p, true
		}
	}
	return ParticipantResult{}, false
}

// Settle computes every participant's payout for the given outcome.
//
// An ordinary value pays amount*matchCount plus the stake back when it shows on
// more than one die; a single match pays nothing. AllSuit pays amount*Dice plus
// the stake back only when all faces are distinct. Settle has no side effects
// and its output only depends on its input.
func Settle(bids []Bid, outcome Outcome) Settlement {
	sorted := make([]Bid, len(bids))
	copy(sorted, bids)
	sortBids(sorted)

	s := Settlement{
		Outcome:     outcome,
		AllDistinct: outcome.AllDistinct(),
	}

	var cur *ParticipantResult
	for _, b := range sorted {
		if cur == nil || cur.Participant != b.Participant {
			s.Participants = append(s.Participants, ParticipantResult{Participant: b.Participant})
			cur = &s.Participants[len(s.Participants)-1]
		}
		line := settleLine(b, outcome, s.AllDistinct)
		cur.Lines = append(cur.Lines, line)
		cur.Staked += line.Amount
		cur.Payout += line.Payout
	}

	for i := range s.Participants {
		p := &s.Participants[i]
		p.Net = p.Payout - p.Staked
		s.TotalIn += p.Staked
		s.TotalOut += p.Payout
	}
	return s
}

func settleLine(b Bid, outcome Outcome, allDistinct bool) LineResult {
	amount := b.Amount
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 || !b.Value.Valid() {
		amount = 0
	}
	line := LineResult{Value: b.Value, Amount: amount}

	switch {
	case b.Value == AllSuit:
		if allDistinct {
			line.MatchCount = Dice
			line.Multiplier = Dice
		}
	case b.Value.Valid():
		line.MatchCount = outcome.Count(int(b.Value))
		if line.MatchCount > 1 {
			line.Multiplier = line.MatchCount
		}
	}

	if line.Multiplier > 0 && amount > 0 {
		line.Payout = amount*float64(line.Multiplier) + amount
		line.Won = true
	}
	return line
}
