package session

import (
	"encoding/json"

	"github.com/xylophonehero/hearts/engine"
	"github.com/xylophonehero/hearts/internal/models"
)

// Action type tags accepted from the network. Play is part of the wire
// union for completeness but is engine-internal; the room refuses it.
const (
	ActionUserEntered = "UserEntered"
	ActionUserExit    = "UserExit"
	ActionPass        = "pass"
	ActionPlay        = "play"
	ActionRequest     = "request"
)

// Action is the inbound wire union, tagged by Type. User is stamped by the
// session from the authenticated connection, never taken from the client
// payload.
type Action struct {
	Type      string          `json:"type"`
	User      models.User     `json:"user"`
	CardID    int             `json:"cardId,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// cards normalizes the value payload to a card batch. Clients may send a
// single number or an array of numbers.
func (a *Action) cards() ([]engine.Card, bool) {
	if len(a.Value) == 0 {
		return nil, false
	}
	var one int
	if err := json.Unmarshal(a.Value, &one); err == nil {
		return []engine.Card{engine.Card(one)}, true
	}
	var many []int
	if err := json.Unmarshal(a.Value, &many); err == nil {
		batch := make([]engine.Card, len(many))
		for i, v := range many {
			batch[i] = engine.Card(v)
		}
		return batch, true
	}
	return nil, false
}
