// Package engine implements the rules of a hearts-style trick-taking game.
//
// The engine is a pure, single-threaded state machine: it owns all mutable
// game state, consumes events, and returns effects. It performs no I/O,
// holds no locks, and never sleeps. Timed transitions are returned to the
// caller as schedule effects and fed back in as timer events.
package engine

// Suit indices. A card id in [0,52) maps to suit id/13.
const (
	SuitSpades   = 0
	SuitDiamonds = 1
	SuitClubs    = 2
	SuitHearts   = 3
)

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

var suitSymbols = [4]string{"♠", "♦", "♣", "♥"}

// Card is a card identifier in [0,52). Suit and rank are derived from the
// id, never stored: suit = id/13, rank index = id%13.
type Card int

// Suit returns the card's suit index.
func (c Card) Suit() int { return int(c) / 13 }

// RankValue returns the ace-high rank value in [2,14]. Id 0 of a suit is
// the two, id 12 the ace. Trick comparison uses these values.
func (c Card) RankValue() int { return int(c)%13 + 2 }

// LowRankValue returns the ace-low rank value in [1,13], the numbering the
// legacy variant displayed. Kept for clients that render ace-low.
func (c Card) LowRankValue() int { return int(c)%13 + 1 }

// Rank returns the display rank: "2".."10", "J", "Q", "K", "A".
func (c Card) Rank() string {
	switch v := c.RankValue(); v {
	case 11:
		return "J"
	case 12:
		return "Q"
	case 13:
		return "K"
	case 14:
		return "A"
	default:
		return digits[v]
	}
}

var digits = [11]string{"", "", "2", "3", "4", "5", "6", "7", "8", "9", "10"}

// Score returns the card's point value: every heart is worth 1, the queen
// of spades 13, everything else 0.
func (c Card) Score() int {
	if c.Suit() == SuitHearts {
		return 1
	}
	if c.Suit() == SuitSpades && c.Rank() == "Q" {
		return 13
	}
	return 0
}

// String renders the card as rank plus suit symbol, e.g. "Q♠".
func (c Card) String() string {
	if c < 0 || c >= DeckSize {
		return "?"
	}
	return c.Rank() + suitSymbols[c.Suit()]
}

// CardInfo bundles a card id with its derived attributes. Clients answer
// requests by sending back the ids.
type CardInfo struct {
	ID        int    `json:"id"`
	Suit      int    `json:"suit"`
	Rank      string `json:"rank"`
	RankValue int    `json:"rankValue"`
}

// Info returns the card id with its derived suit, rank and rank value.
func (c Card) Info() CardInfo {
	return CardInfo{ID: int(c), Suit: c.Suit(), Rank: c.Rank(), RankValue: c.RankValue()}
}

// NewDeck returns the identity deck, card ids 0..51 in order.
func NewDeck() []Card {
	deck := make([]Card, DeckSize)
	for i := range deck {
		deck[i] = Card(i)
	}
	return deck
}

// NextPlayer walks the seating order from a given player. The offset may be
// negative: trick evaluation looks backward from the current player by the
// number of cards already played to find who led. The index arithmetic uses
// a true mathematical modulo so negative offsets never produce a negative
// index.
func NextPlayer(order []string, from string, offset int) string {
	if len(order) == 0 {
		return ""
	}
	at := 0
	for i, id := range order {
		if id == from {
			at = i
			break
		}
	}
	n := len(order)
	return order[((at+offset)%n+n)%n]
}
