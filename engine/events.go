package engine

import "time"

// Event is an input to the state machine. Events are applied one at a time;
// the engine is never re-entered while an Apply is in progress.
type Event interface{ isEvent() }

// PassEvent is the legacy passing-phase action: move one card from the
// acting player's hand onto the table. Only honoured in PassTimed mode.
type PassEvent struct {
	PlayerID string
	CardID   Card
}

// PlayEvent applies an accepted card to the current trick. It is raised
// internally when a hand request completes and is never taken from the
// network.
type PlayEvent struct {
	PlayerID string
	CardID   Card
}

// RequestEvent is a player's answer to a live pending request, routed by
// correlation id. Values carries the normalized batch; a single-card answer
// is a one-element slice.
type RequestEvent struct {
	RequestID string
	PlayerID  string
	Values    []Card
}

// TimerEvent fires a previously scheduled transition. The token must match
// the engine's live timer token; stale timers are inert.
type TimerEvent struct {
	Token int
}

func (PassEvent) isEvent()    {}
func (PlayEvent) isEvent()    {}
func (RequestEvent) isEvent() {}
func (TimerEvent) isEvent()   {}

// Effect is a deferred transition the caller must schedule. After the given
// delay the caller feeds Event back through its (single) event loop.
type Effect struct {
	After time.Duration
	Event Event
}
