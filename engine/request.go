package engine

import "strconv"

// Request is a live, uniquely addressable waiting-for-input unit: it waits
// for exactly one validated batch of values from one player, then is
// removed. Requests live in the game's registry keyed by correlation id;
// spawning is an insert, stopping is a delete, submitting is a lookup plus
// a guarded accept. At most one request per player per tag is live at a
// time.
type Request struct {
	ID       string
	PlayerID string
	Tag      string
	Count    int
	validate func(Card) bool
}

// offer checks a submitted batch against the request's guard. The batch is
// accepted only when it comes from the request's player, its length equals
// Count, it contains no duplicates, and every element passes validation.
// A rejected batch is discarded wholesale; the request keeps waiting.
func (r *Request) offer(playerID string, values []Card) bool {
	if playerID != r.PlayerID {
		return false
	}
	if len(values) != r.Count {
		return false
	}
	seen := make(map[Card]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return false
		}
		seen[v] = true
		if !r.validate(v) {
			return false
		}
	}
	return true
}

// spawnRequest registers a new request for a player. The correlation id
// comes from the game's monotonic counter, so ids are unique within one
// engine instance even when several requests are alive at once.
func (g *Game) spawnRequest(playerID, tag string, count int, validate func(Card) bool) *Request {
	g.requestSeq++
	r := &Request{
		ID:       strconv.Itoa(g.requestSeq),
		PlayerID: playerID,
		Tag:      tag,
		Count:    count,
		validate: validate,
	}
	g.requests[r.ID] = r
	return r
}

// stopRequest removes a request from the registry. A request is always
// stopped before its accepted values are applied, so no waiter dangles
// while state mutates.
func (g *Game) stopRequest(id string) {
	delete(g.requests, id)
}

// liveRequestFor returns the live request with the given tag for a player,
// or nil.
func (g *Game) liveRequestFor(playerID, tag string) *Request {
	for _, r := range g.requests {
		if r.PlayerID == playerID && r.Tag == tag {
			return r
		}
	}
	return nil
}
