package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/KatariSolutions/NumberGame/internal/engine"
	"github.com/KatariSolutions/NumberGame/internal/types"
	pub "github.com/KatariSolutions/NumberGame/pkg/types"
)

var (
	ErrBadJSON     = errors.New("bad json")
	ErrUnknownType = errors.New("unknown type")
)

// Command is a decoded client message. Range checks on Value and Amount are
// left to the round engine so rejections carry its reasons.
type Command struct {
	Kind   string
	Value  engine.Value
	Amount float64
}

func Decode(data []byte) (Command, error) {
	var cm types.ClientMessage
	if err := json.Unmarshal(data, &cm); err != nil {
		return Command{}, ErrBadJSON
	}

	cmd := Command{Kind: cm.Type}
	switch cm.Type {
	case pub.CmdJoinSession, pub.CmdLeaveSession:
		return cmd, nil
	case pub.CmdPlaceBid, pub.CmdUpdateBid, pub.CmdDeleteBid:
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownType, cm.Type)
	}

	if cm.ChosenNumber != nil {
		cmd.Value = engine.Value(*cm.ChosenNumber)
	}
	if cm.Type != pub.CmdDeleteBid {
		cmd.Amount = parseAmount(cm.Amount)
	}
	return cmd, nil
}

// parseAmount reads the amount as a float. Anything unparsable becomes zero,
// which the engine rejects as an invalid amount.
func parseAmount(n json.Number) float64 {
	if n == "" {
		return 0
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0
	}
	return f
}
