package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xylophonehero/hearts/engine"
	"github.com/xylophonehero/hearts/internal/models"
)

// mockBroadcaster captures serialized snapshots for assertions.
type mockBroadcaster struct {
	mu        sync.Mutex
	snapshots [][]byte
	notify    chan struct{}
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{notify: make(chan struct{}, 100)}
}

func (mb *mockBroadcaster) broadcastFn(data []byte) {
	mb.mu.Lock()
	mb.snapshots = append(mb.snapshots, append([]byte(nil), data...))
	mb.mu.Unlock()
	select {
	case mb.notify <- struct{}{}:
	default:
	}
}

func (mb *mockBroadcaster) count() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.snapshots)
}

func (mb *mockBroadcaster) last(t *testing.T) Snapshot {
	t.Helper()
	mb.mu.Lock()
	defer mb.mu.Unlock()
	require.NotEmpty(t, mb.snapshots, "no snapshot broadcast yet")
	var s Snapshot
	require.NoError(t, json.Unmarshal(mb.snapshots[len(mb.snapshots)-1], &s))
	return s
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testUsers() []models.User {
	return []models.User{
		{ID: "u1", Name: "Alice"},
		{ID: "u2", Name: "Bob"},
		{ID: "u3", Name: "Carol"},
		{ID: "u4", Name: "Dave"},
	}
}

// setupRoom builds a room with a deterministic seed and a filled table.
// Actions are applied synchronously through handleAction; nothing else
// touches the room, which matches the loop's ownership model.
func setupRoom(t *testing.T, rules engine.Rules) (*Room, *mockBroadcaster) {
	t.Helper()
	r := NewRoom("test-room", rules, testLogger())
	r.Seed = 42
	mb := newMockBroadcaster()
	r.BroadcastFn = mb.broadcastFn
	for _, u := range testUsers() {
		r.handleAction(Action{Type: ActionUserEntered, User: u})
	}
	return r, mb
}

func rawValue(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestRoomStartsWhenTableFills(t *testing.T) {
	_, mb := setupRoom(t, engine.DefaultRules())

	snap := mb.last(t)
	require.NotNil(t, snap.GameInfo, "game should start once four users joined")
	assert.Equal(t, "passing.requesting", snap.GameInfo.State)
	assert.Len(t, snap.Users, 4)
	assert.Len(t, snap.GameInfo.Requests, 4)

	// The log is bounded and newest-first: the game-start line displaced
	// the first join.
	require.Len(t, snap.Log, maxLogSize)
	assert.Equal(t, "The game begins", snap.Log[0].Message)
	assert.Equal(t, "Dave joined", snap.Log[1].Message)
}

func TestRoomDoesNotDuplicateRejoiningUser(t *testing.T) {
	r, mb := setupRoom(t, engine.DefaultRules())
	r.handleAction(Action{Type: ActionUserEntered, User: models.User{ID: "u1", Name: "Alice"}})

	snap := mb.last(t)
	assert.Len(t, snap.Users, 4)
}

func TestRoomKeepsSeatOnExit(t *testing.T) {
	r, mb := setupRoom(t, engine.DefaultRules())
	r.handleAction(Action{Type: ActionUserExit, User: models.User{ID: "u2", Name: "Bob"}})

	snap := mb.last(t)
	assert.Len(t, snap.Users, 3)
	require.NotNil(t, snap.GameInfo)
	assert.Len(t, snap.GameInfo.Players, 4, "the seat survives a disconnect")
	assert.Equal(t, "Bob left", snap.Log[0].Message)
}

func TestRoomRefusesExternalPlay(t *testing.T) {
	r, mb := setupRoom(t, engine.DefaultRules())
	before := mb.count()

	r.handleAction(Action{Type: ActionPlay, User: models.User{ID: "u1"}, CardID: 3})
	assert.Equal(t, before, mb.count(), "play from the network must not reach the engine")
}

func TestRoomPassingAndFirstTrick(t *testing.T) {
	rules := engine.DefaultRules()
	rules.SettleDelay = time.Minute // keep settle timers from firing mid-test
	r, mb := setupRoom(t, rules)

	// Answer every pass request straight off the broadcast snapshot.
	snap := mb.last(t)
	require.Len(t, snap.GameInfo.Requests, 4)
	for _, req := range snap.GameInfo.Requests {
		assert.Equal(t, "pass", req.Tag)
		assert.Equal(t, 3, req.Count)
		hand := snap.GameInfo.Players[req.PlayerID].Hand
		batch := []int{hand[0].ID, hand[1].ID, hand[2].ID}
		r.handleAction(Action{
			Type:      ActionRequest,
			User:      models.User{ID: req.PlayerID},
			RequestID: req.ID,
			Value:     rawValue(t, batch),
		})
	}

	snap = mb.last(t)
	assert.Equal(t, "playing.requesting", snap.GameInfo.State)
	require.Len(t, snap.GameInfo.Requests, 1)

	// Play the single live hand request with the first legal card.
	req := snap.GameInfo.Requests[0]
	assert.Equal(t, "hand", req.Tag)
	assert.Equal(t, snap.GameInfo.CurrentPlayer, req.PlayerID)

	before := mb.count()
	for _, ci := range snap.GameInfo.Players[req.PlayerID].Hand {
		r.handleAction(Action{
			Type:      ActionRequest,
			User:      models.User{ID: req.PlayerID},
			RequestID: req.ID,
			Value:     rawValue(t, ci.ID),
		})
		if mb.count() > before {
			break
		}
	}
	require.Greater(t, mb.count(), before, "no card was accepted for the lead")

	snap = mb.last(t)
	played := snap.GameInfo.Players[req.PlayerID].PlayArea
	assert.Len(t, played, 1)
}

func TestRoomIgnoresWrongSender(t *testing.T) {
	rules := engine.DefaultRules()
	rules.PassingMode = engine.PassOff
	r, mb := setupRoom(t, rules)

	snap := mb.last(t)
	require.Len(t, snap.GameInfo.Requests, 1)
	req := snap.GameInfo.Requests[0]
	hand := snap.GameInfo.Players[req.PlayerID].Hand

	intruder := "u1"
	if req.PlayerID == intruder {
		intruder = "u2"
	}
	before := mb.count()
	r.handleAction(Action{
		Type:      ActionRequest,
		User:      models.User{ID: intruder},
		RequestID: req.ID,
		Value:     rawValue(t, hand[0].ID),
	})
	assert.Equal(t, before, mb.count(), "request answered by the wrong user must be silent")
}

func TestRoomLoopDeliversTimerTransitions(t *testing.T) {
	rules := engine.DefaultRules()
	rules.PassingMode = engine.PassTimed
	rules.SettleDelay = 10 * time.Millisecond
	r := NewRoom("timed-room", rules, testLogger())
	r.Seed = 7
	mb := newMockBroadcaster()
	r.BroadcastFn = mb.broadcastFn

	go r.Run()
	defer r.Close()

	for _, u := range testUsers() {
		r.Post(Action{Type: ActionUserEntered, User: u})
	}

	// The timed passing phase expires on its own and the loop feeds the
	// timer back through the same channel as network actions.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-mb.notify:
			if mb.count() == 0 {
				continue
			}
			snap := mb.last(t)
			if snap.GameInfo != nil && snap.GameInfo.State == "playing.requesting" {
				return
			}
		case <-deadline:
			t.Fatal("timed passing never rolled into the playing phase")
		}
	}
}

func TestActionCardNormalization(t *testing.T) {
	cases := []struct {
		raw  string
		want []engine.Card
		ok   bool
	}{
		{"7", []engine.Card{7}, true},
		{"[1,2,3]", []engine.Card{1, 2, 3}, true},
		{"[]", []engine.Card{}, true},
		{`"seven"`, nil, false},
		{"", nil, false},
	}
	for _, c := range cases {
		a := Action{Value: json.RawMessage(c.raw)}
		got, ok := a.cards()
		assert.Equal(t, c.ok, ok, fmt.Sprintf("value %q", c.raw))
		if c.ok {
			assert.Equal(t, c.want, got, fmt.Sprintf("value %q", c.raw))
		}
	}
}
