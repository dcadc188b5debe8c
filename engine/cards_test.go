package engine

import "testing"

func TestCardDerivations(t *testing.T) {
	cases := []struct {
		id        Card
		suit      int
		rank      string
		rankValue int
		score     int
	}{
		{0, SuitSpades, "2", 2, 0},
		{3, SuitSpades, "5", 5, 0},
		{10, SuitSpades, "Q", 12, 13},
		{12, SuitSpades, "A", 14, 0},
		{13, SuitDiamonds, "2", 2, 0},
		{25, SuitDiamonds, "A", 14, 0},
		{26, SuitClubs, "2", 2, 0},
		{38, SuitClubs, "A", 14, 0},
		{39, SuitHearts, "2", 2, 1},
		{40, SuitHearts, "3", 3, 1},
		{51, SuitHearts, "A", 14, 1},
	}
	for _, c := range cases {
		if got := c.id.Suit(); got != c.suit {
			t.Errorf("card %d: suit = %d, want %d", c.id, got, c.suit)
		}
		if got := c.id.Rank(); got != c.rank {
			t.Errorf("card %d: rank = %q, want %q", c.id, got, c.rank)
		}
		if got := c.id.RankValue(); got != c.rankValue {
			t.Errorf("card %d: rank value = %d, want %d", c.id, got, c.rankValue)
		}
		if got := c.id.Score(); got != c.score {
			t.Errorf("card %d: score = %d, want %d", c.id, got, c.score)
		}
	}
}

func TestCardString(t *testing.T) {
	if got := Card(10).String(); got != "Q♠" {
		t.Errorf("card 10 = %q, want Q♠", got)
	}
	if got := Card(39).String(); got != "2♥" {
		t.Errorf("card 39 = %q, want 2♥", got)
	}
	if got := Card(99).String(); got != "?" {
		t.Errorf("card 99 = %q, want ?", got)
	}
}

func TestNewDeck(t *testing.T) {
	deck := NewDeck()
	if len(deck) != DeckSize {
		t.Fatalf("deck size = %d, want %d", len(deck), DeckSize)
	}
	for i, c := range deck {
		if int(c) != i {
			t.Fatalf("deck[%d] = %d", i, c)
		}
	}
}

func TestNextPlayer(t *testing.T) {
	order := []string{"A", "B", "C", "D"}
	cases := []struct {
		from   string
		offset int
		want   string
	}{
		{"A", 1, "B"},
		{"D", 1, "A"},
		{"A", 0, "A"},
		{"A", -1, "D"},
		{"B", -3, "C"},
		{"A", -7, "B"},
		{"C", 6, "A"},
	}
	for _, c := range cases {
		if got := NextPlayer(order, c.from, c.offset); got != c.want {
			t.Errorf("NextPlayer(%s, %d) = %s, want %s", c.from, c.offset, got, c.want)
		}
	}
	if got := NextPlayer(nil, "A", 1); got != "" {
		t.Errorf("NextPlayer on empty order = %q, want empty", got)
	}
}
