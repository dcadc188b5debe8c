package engine

import "time"

// PassingMode selects how the passing phase at the top of each deal works.
type PassingMode uint8

const (
	// PassRequest runs the full passing phase: one pending request per
	// player, each demanding PassCount cards out of that player's hand.
	PassRequest PassingMode = iota
	// PassTimed is the legacy variant: the phase sits open for the settle
	// delay, accepting bare pass events that move a card to the table,
	// then falls through to playing.
	PassTimed
	// PassOff skips the passing phase entirely.
	PassOff
)

// Rules holds the configurable rule settings for one game.
type Rules struct {
	PassingMode PassingMode
	PassCount   int // cards each player must pass; 0 treated as 3
	// EndScore ends the game once any player reaches it at the end of a
	// deal; the lowest score wins. 0 leaves the game open-ended.
	EndScore int
	// SettleDelay is the pause after a resolved trick (and the length of
	// the legacy timed passing phase) before the next transition fires.
	SettleDelay time.Duration
	// TricksPerDeal is the number of tricks in one deal. 0 is treated as
	// DeckSize divided by the number of players (13 for four players).
	TricksPerDeal int
}

// DefaultRules returns the standard four-player rule set.
func DefaultRules() Rules {
	return Rules{
		PassingMode:   PassRequest,
		PassCount:     3,
		EndScore:      100,
		SettleDelay:   time.Second,
		TricksPerDeal: 0,
	}
}

// passCount returns the effective pass count, treating 0 as 3.
func (r *Rules) passCount() int {
	if r.PassCount == 0 {
		return 3
	}
	return r.PassCount
}

// tricksPerDeal returns the effective tricks per deal for n players.
func (r *Rules) tricksPerDeal(n int) int {
	if r.TricksPerDeal > 0 {
		return r.TricksPerDeal
	}
	if n == 0 {
		return 0
	}
	return DeckSize / n
}
