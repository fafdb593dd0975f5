package types

import "encoding/json"

type ClientMessage struct {
	Type         string      `json:"type"`
	ChosenNumber *int        `json:"chosen_number,omitempty"`
	Amount       json.Number `json:"amount,omitempty"`
}

type ServerMessage struct {
	Type  string `json:"type"`
	Seq   int64  `json:"seq,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}
