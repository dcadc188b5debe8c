package engine

import "sort"

// PlayerSnapshot is the wire view of one seat.
type PlayerSnapshot struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Hand     []CardInfo `json:"hand"`
	PlayArea []CardInfo `json:"playArea"`
	Score    int        `json:"score"`
}

// RequestSnapshot is the wire view of one live request. Clients answer it
// by echoing the id back with their chosen values.
type RequestSnapshot struct {
	ID       string `json:"id"`
	PlayerID string `json:"playerId"`
	Tag      string `json:"tag"`
	Count    int    `json:"count"`
}

// Snapshot is the full serializable game state. Every broadcast carries a
// complete snapshot; there are no deltas.
type Snapshot struct {
	State         string                    `json:"state"`
	Round         int                       `json:"round"`
	CurrentPlayer string                    `json:"currentPlayer"`
	PlayerOrder   []string                  `json:"playerOrder"`
	PlayerCount   int                       `json:"playerCount"`
	HeartsBroken  bool                      `json:"heartsBroken"`
	Winner        string                    `json:"winner,omitempty"`
	Deck          int                       `json:"deck"`
	Table         []CardInfo                `json:"table"`
	Discard       int                       `json:"discard"`
	Players       map[string]PlayerSnapshot `json:"players"`
	Requests      []RequestSnapshot         `json:"requests"`
}

// Snapshot renders the current state. The returned value shares nothing
// with the game; callers may hold it across further Apply calls.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		State:         g.StatePath(),
		Round:         g.round,
		CurrentPlayer: g.current,
		PlayerOrder:   append([]string(nil), g.order...),
		PlayerCount:   len(g.order),
		HeartsBroken:  g.heartsBroken,
		Winner:        g.winner,
		Deck:          len(g.deck),
		Table:         cardInfos(g.table),
		Discard:       len(g.discard),
		Players:       make(map[string]PlayerSnapshot, len(g.players)),
	}
	for id, p := range g.players {
		s.Players[id] = PlayerSnapshot{
			ID:       p.ID,
			Name:     p.Name,
			Hand:     cardInfos(p.Hand),
			PlayArea: cardInfos(p.PlayArea),
			Score:    p.Score,
		}
	}
	for _, r := range g.requests {
		s.Requests = append(s.Requests, RequestSnapshot{
			ID:       r.ID,
			PlayerID: r.PlayerID,
			Tag:      r.Tag,
			Count:    r.Count,
		})
	}
	// Ids are decimal renderings of a counter; shorter-then-lexicographic
	// ordering is numeric ordering.
	sort.Slice(s.Requests, func(i, j int) bool {
		a, b := s.Requests[i].ID, s.Requests[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return s
}

func cardInfos(cards []Card) []CardInfo {
	out := make([]CardInfo, len(cards))
	for i, c := range cards {
		out[i] = c.Info()
	}
	return out
}
