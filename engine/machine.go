package engine

// Request tags. At most one live request per player per tag.
const (
	// TagHand asks the current player for one card out of their hand to
	// play into the trick.
	TagHand = "hand"
	// TagPass asks a player for the batch of cards to pass at the top of
	// a deal.
	TagPass = "pass"
)

// Apply feeds one event into the machine. It returns the effects the caller
// must schedule and whether the externally visible state changed. Events
// that fail any guard are inert: no mutation, no effects, changed=false.
func (g *Game) Apply(ev Event) ([]Effect, bool) {
	if g.phase == PhaseEndGame {
		return nil, false
	}
	switch e := ev.(type) {
	case RequestEvent:
		return g.applyRequest(e)
	case PassEvent:
		return g.applyLegacyPass(e)
	case TimerEvent:
		return g.applyTimer(e)
	case PlayEvent:
		// Raised internally during request acceptance; from anywhere
		// else it is inert.
		return nil, false
	default:
		return nil, false
	}
}

// applyRequest routes a submitted answer to the live request with the
// matching correlation id. Unknown ids and rejected batches consume
// nothing; the waiting request (if any) stays live.
func (g *Game) applyRequest(e RequestEvent) ([]Effect, bool) {
	r, ok := g.requests[e.RequestID]
	if !ok {
		return nil, false
	}
	if !r.offer(e.PlayerID, e.Values) {
		return nil, false
	}

	// The request is deregistered before its result is applied, so no
	// waiter is ever live while state mutates.
	g.stopRequest(r.ID)

	switch r.Tag {
	case TagPass:
		g.pendingPasses[r.PlayerID] = e.Values
		if len(g.pendingPasses) == len(g.order) {
			return g.evaluatePasses(), true
		}
		return nil, true
	case TagHand:
		g.applyPlay(PlayEvent{PlayerID: r.PlayerID, CardID: e.Values[0]})
		return g.evaluateTrick()
	default:
		return nil, false
	}
}

// applyLegacyPass handles the legacy timed-passing action: one card moves
// from the sender's hand onto the table.
func (g *Game) applyLegacyPass(e PassEvent) ([]Effect, bool) {
	if g.phase != PhasePassing || g.rules.PassingMode != PassTimed {
		return nil, false
	}
	p, ok := g.players[e.PlayerID]
	if !ok || !p.removeFromHand(e.CardID) {
		return nil, false
	}
	g.table = append(g.table, e.CardID)
	return nil, true
}

// applyTimer fires a scheduled transition. Tokens from states the machine
// has already left are stale and inert.
func (g *Game) applyTimer(e TimerEvent) ([]Effect, bool) {
	if e.Token != g.timerToken {
		return nil, false
	}
	switch {
	case g.phase == PhasePassing:
		// Legacy timed passing expired.
		return g.enterPlaying(), true
	case g.phase == PhasePlaying && g.step == StepEndTurn:
		return g.settleTrick(), true
	default:
		return nil, false
	}
}

// ---------------------------------------------------------------------------
// Passing phase
// ---------------------------------------------------------------------------

// enterPassing opens the passing phase for a fresh deal.
func (g *Game) enterPassing() []Effect {
	g.phase = PhasePassing
	g.step = StepRequesting
	switch g.rules.PassingMode {
	case PassOff:
		return g.enterPlaying()
	case PassTimed:
		return g.scheduleSettle()
	default:
		g.pendingPasses = make(map[string][]Card, len(g.order))
		for _, id := range g.order {
			p := g.players[id]
			g.spawnRequest(id, TagPass, g.rules.passCount(), func(c Card) bool {
				return p.holds(c)
			})
		}
		return nil
	}
}

// evaluatePasses applies every player's committed batch simultaneously:
// all passed cards leave their hands first, then each batch lands in the
// hand of the seat one to the left.
func (g *Game) evaluatePasses() []Effect {
	g.step = StepEvaluating
	for id, cards := range g.pendingPasses {
		p := g.players[id]
		for _, c := range cards {
			p.removeFromHand(c)
		}
	}
	for id, cards := range g.pendingPasses {
		to := g.players[NextPlayer(g.order, id, 1)]
		to.Hand = append(to.Hand, cards...)
	}
	for _, p := range g.players {
		sortHand(p.Hand)
	}
	g.pendingPasses = make(map[string][]Card)
	g.step = StepFinal
	return g.enterPlaying()
}

// ---------------------------------------------------------------------------
// Playing phase
// ---------------------------------------------------------------------------

// enterPlaying starts the trick loop.
func (g *Game) enterPlaying() []Effect {
	g.phase = PhasePlaying
	return g.requestPlay()
}

// requestPlay spawns the single live hand request for the current player.
// The validation predicate is computed fresh from the state of the trick
// at spawn time.
func (g *Game) requestPlay() []Effect {
	g.step = StepRequesting
	g.spawnRequest(g.current, TagHand, 1, g.handValidator())
	return nil
}

// handValidator builds the legality predicate for the current player's
// next play.
func (g *Game) handValidator() func(Card) bool {
	p := g.players[g.current]
	played := g.cardsInTrick()

	if played == 0 {
		// Leading: hearts stay locked until broken, unless the hand has
		// nothing else to offer.
		return func(c Card) bool {
			if !p.holds(c) {
				return false
			}
			if c.Suit() == SuitHearts && !g.heartsBroken && !p.holdsOnlySuit(SuitHearts) {
				return false
			}
			return true
		}
	}

	// Following: walk backward to whoever led this trick and follow their
	// suit when possible.
	leader := NextPlayer(g.order, g.current, -played)
	leadSuit := g.players[leader].PlayArea[0].Suit()
	mustFollow := p.holdsSuit(leadSuit)
	return func(c Card) bool {
		if !p.holds(c) {
			return false
		}
		if mustFollow && c.Suit() != leadSuit {
			return false
		}
		return true
	}
}

// applyPlay moves the accepted card from hand to play area and updates the
// broken-suit flag.
func (g *Game) applyPlay(e PlayEvent) {
	p := g.players[e.PlayerID]
	p.removeFromHand(e.CardID)
	p.PlayArea = append(p.PlayArea, e.CardID)
	if e.CardID.Suit() == SuitHearts {
		g.heartsBroken = true
	}
}

// evaluateTrick is the pass-through decision node entered synchronously
// after every accepted play: resolve the trick if everyone has played,
// otherwise advance the turn and request the next card.
func (g *Game) evaluateTrick() ([]Effect, bool) {
	g.step = StepEvaluating
	if g.cardsInTrick() == len(g.order) {
		winner := g.trickWinner()
		g.players[winner].Score += g.trickScore()
		g.current = winner
		g.step = StepEndTurn
		return g.scheduleSettle(), true
	}
	g.current = NextPlayer(g.order, g.current, 1)
	return g.requestPlay(), true
}

// cardsInTrick counts the players who have played into the current trick.
func (g *Game) cardsInTrick() int {
	n := 0
	for _, p := range g.players {
		if len(p.PlayArea) > 0 {
			n++
		}
	}
	return n
}

// trickWinner folds over the seats in play order, starting from the trick
// leader. A candidate displaces the running winner only with the same suit
// and a strictly greater rank value; off-suit cards never win.
func (g *Game) trickWinner() string {
	leader := NextPlayer(g.order, g.current, -(len(g.order) - 1))
	winner := leader
	for k := 1; k < len(g.order); k++ {
		id := NextPlayer(g.order, leader, k)
		best := g.players[winner].PlayArea[0]
		card := g.players[id].PlayArea[0]
		if card.Suit() == best.Suit() && card.RankValue() > best.RankValue() {
			winner = id
		}
	}
	return winner
}

// trickScore sums the point value of every card in the trick.
func (g *Game) trickScore() int {
	total := 0
	for _, p := range g.players {
		if len(p.PlayArea) > 0 {
			total += p.PlayArea[0].Score()
		}
	}
	return total
}

// settleTrick runs after the settle delay: either the deal continues with
// the next trick, or it ends and the game redeals or finishes.
func (g *Game) settleTrick() []Effect {
	if g.round >= g.rules.tricksPerDeal(len(g.order)) {
		return g.finishDeal()
	}
	for _, id := range g.order {
		p := g.players[id]
		g.discard = append(g.discard, p.PlayArea...)
		p.PlayArea = nil
	}
	g.round++
	return g.requestPlay()
}

// finishDeal closes out a completed deal: end the game if a score limit
// has been reached, otherwise reshuffle, redeal and re-enter passing.
func (g *Game) finishDeal() []Effect {
	if g.rules.EndScore > 0 {
		for _, p := range g.players {
			if p.Score >= g.rules.EndScore {
				g.endGame()
				return nil
			}
		}
	}
	g.resetDeck()
	g.shuffle()
	g.deal()
	g.heartsBroken = false
	g.round = 1
	return g.enterPassing()
}

// endGame enters the terminal state. The lowest score wins; ties go to the
// earlier seat.
func (g *Game) endGame() {
	g.phase = PhaseEndGame
	g.step = StepFinal
	winner := g.order[0]
	for _, id := range g.order[1:] {
		if g.players[id].Score < g.players[winner].Score {
			winner = id
		}
	}
	g.winner = winner
}

// scheduleSettle arms the single live settle timer, invalidating any timer
// scheduled for an earlier state.
func (g *Game) scheduleSettle() []Effect {
	g.timerToken++
	return []Effect{{After: g.rules.SettleDelay, Event: TimerEvent{Token: g.timerToken}}}
}
