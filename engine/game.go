package engine

import "sort"

// Player holds one seat's cards and score. Hands and play areas are owned
// exclusively by the engine and mutated only through event application.
type Player struct {
	ID       string
	Name     string
	Hand     []Card
	PlayArea []Card
	Score    int
}

// Seat names a player joining a new game.
type Seat struct {
	ID   string
	Name string
}

// Phase is the top-level state of the machine.
type Phase uint8

const (
	PhasePassing Phase = iota
	PhasePlaying
	PhaseEndGame
)

// Step is the substate within a phase.
type Step uint8

const (
	StepRequesting Step = iota
	StepEvaluating
	StepEndTurn
	StepFinal
)

// Game is the authoritative state of one table. It is not safe for
// concurrent use; the owner must serialize Apply calls.
type Game struct {
	rules Rules

	deck    []Card
	players map[string]*Player
	order   []string
	current string
	round   int
	// heartsBroken unlocks leading hearts once any heart has been played
	// this deal.
	heartsBroken bool
	table        []Card
	discard      []Card
	winner       string

	phase Phase
	step  Step

	// Live pending requests, keyed by correlation id.
	requests   map[string]*Request
	requestSeq int
	// Cards each player has committed during the passing phase, applied
	// simultaneously once every player's request has completed.
	pendingPasses map[string][]Card

	// timerToken invalidates timers scheduled for states the machine has
	// already left.
	timerToken int

	rng uint64
}

// New initializes a game for the given seats. The deck is built but not
// dealt; call Start to shuffle, deal and enter the first phase.
func New(seed uint64, rules Rules, seats []Seat) *Game {
	g := &Game{
		rules:         rules,
		deck:          NewDeck(),
		players:       make(map[string]*Player, len(seats)),
		order:         make([]string, 0, len(seats)),
		round:         1,
		requests:      make(map[string]*Request),
		pendingPasses: make(map[string][]Card),
		rng:           seed,
	}
	if g.rng == 0 {
		g.rng = 1 // xorshift can't start at 0
	}
	for _, s := range seats {
		g.players[s.ID] = &Player{ID: s.ID, Name: s.Name}
		g.order = append(g.order, s.ID)
	}
	if len(g.order) > 0 {
		g.current = g.order[0]
	}
	return g
}

// Start shuffles, deals and enters the opening phase. The returned effects
// must be scheduled by the caller.
func (g *Game) Start() []Effect {
	g.shuffle()
	g.deal()
	return g.enterPassing()
}

// ---------------------------------------------------------------------------
// xorshift64 RNG
// ---------------------------------------------------------------------------

func (g *Game) nextRand() uint64 {
	x := g.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.rng = x
	return x
}

func (g *Game) randN(n uint64) uint64 {
	return g.nextRand() % n
}

// ---------------------------------------------------------------------------
// Deck handling
// ---------------------------------------------------------------------------

// resetDeck rebuilds the full deck and wipes hands, play areas, table and
// discard. Only called between deals, when every card is accounted for.
func (g *Game) resetDeck() {
	g.deck = NewDeck()
	g.table = nil
	g.discard = nil
	for _, p := range g.players {
		p.Hand = nil
		p.PlayArea = nil
	}
}

// shuffle runs a Fisher-Yates shuffle over the undealt deck.
func (g *Game) shuffle() {
	for i := len(g.deck) - 1; i > 0; i-- {
		j := int(g.randN(uint64(i + 1)))
		g.deck[i], g.deck[j] = g.deck[j], g.deck[i]
	}
}

// deal distributes the whole deck round-robin and sorts each hand.
func (g *Game) deal() {
	for i, c := range g.deck {
		p := g.players[g.order[i%len(g.order)]]
		p.Hand = append(p.Hand, c)
	}
	g.deck = nil
	for _, p := range g.players {
		sortHand(p.Hand)
	}
}

func sortHand(hand []Card) {
	sort.Slice(hand, func(i, j int) bool { return hand[i] < hand[j] })
}

// ---------------------------------------------------------------------------
// Hand queries
// ---------------------------------------------------------------------------

func (p *Player) holds(c Card) bool {
	for _, h := range p.Hand {
		if h == c {
			return true
		}
	}
	return false
}

func (p *Player) holdsSuit(suit int) bool {
	for _, h := range p.Hand {
		if h.Suit() == suit {
			return true
		}
	}
	return false
}

func (p *Player) holdsOnlySuit(suit int) bool {
	for _, h := range p.Hand {
		if h.Suit() != suit {
			return false
		}
	}
	return len(p.Hand) > 0
}

// removeFromHand deletes one card from the hand, preserving order.
// Returns false if the card is not there.
func (p *Player) removeFromHand(c Card) bool {
	for i, h := range p.Hand {
		if h == c {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// Players returns the number of seats.
func (g *Game) Players() int { return len(g.order) }

// CurrentPlayer returns the id of the player whose turn it is.
func (g *Game) CurrentPlayer() string { return g.current }

// Round returns the 1-based trick number within the current deal.
func (g *Game) Round() int { return g.round }

// IsTerminal reports whether the game has reached endGame.
func (g *Game) IsTerminal() bool { return g.phase == PhaseEndGame }

// StatePath returns the dotted state path, e.g. "playing.requesting".
func (g *Game) StatePath() string {
	switch g.phase {
	case PhasePassing:
		return "passing." + g.step.String()
	case PhasePlaying:
		return "playing." + g.step.String()
	default:
		return "endGame"
	}
}

func (s Step) String() string {
	switch s {
	case StepRequesting:
		return "requesting"
	case StepEvaluating:
		return "evaluating"
	case StepEndTurn:
		return "endTurn"
	default:
		return "final"
	}
}
