// Package session runs one event loop per game room. The loop is the only
// goroutine that touches the engine: network actions and timer callbacks
// are posted into a single channel and applied one at a time, so the
// engine's single-threaded contract holds by construction.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xylophonehero/hearts/engine"
	"github.com/xylophonehero/hearts/internal/cache"
	"github.com/xylophonehero/hearts/internal/database"
	"github.com/xylophonehero/hearts/internal/models"
)

// maxLogSize bounds the room's activity log, newest entry first.
const maxLogSize = 4

// seatCount is the number of players a table waits for before dealing.
const seatCount = 4

// Snapshot is the outbound broadcast payload. GameInfo is null until the
// table fills and the game starts.
type Snapshot struct {
	Users    []models.User     `json:"users"`
	Log      []models.LogEntry `json:"log"`
	GameInfo *engine.Snapshot  `json:"gameInfo"`
}

// BroadcastFn delivers one serialized snapshot to every connection in the
// room.
type BroadcastFn func(data []byte)

type post struct {
	action *Action
	event  engine.Event
}

// Room owns one table: the engine instance, the user roster, the bounded
// activity log and the timers for the engine's scheduled transitions.
type Room struct {
	ID string

	// Seed overrides the shuffle seed when non-zero. Set before the table
	// fills; used by tests for determinism.
	Seed uint64

	// BroadcastFn must be set before Run.
	BroadcastFn BroadcastFn

	rules  engine.Rules
	game   *engine.Game
	logger *logrus.Entry

	users   []models.User
	journal []models.LogEntry

	postCh chan post
	quit   chan struct{}
	once   sync.Once

	// timers holds the live settle timers keyed by engine timer token,
	// touched only from the loop goroutine.
	timers map[int]*time.Timer

	actionIndex int
	resultSaved bool

	// mu guards users and journal for read-only access from HTTP
	// handlers; all writes happen on the loop goroutine.
	mu sync.RWMutex
}

// NewRoom builds a room with the given table rules. Call Run to start its
// loop.
func NewRoom(id string, rules engine.Rules, logger *logrus.Logger) *Room {
	return &Room{
		ID:     id,
		rules:  rules,
		logger: logger.WithField("room", id),
		postCh: make(chan post, 64),
		quit:   make(chan struct{}),
		timers: make(map[int]*time.Timer),
	}
}

// Run consumes the post channel until Close. It must run on its own
// goroutine; everything it calls assumes loop ownership.
func (r *Room) Run() {
	for {
		select {
		case p := <-r.postCh:
			if p.action != nil {
				r.handleAction(*p.action)
			} else {
				r.handleEngineEvent(p.event)
			}
		case <-r.quit:
			for _, t := range r.timers {
				t.Stop()
			}
			return
		}
	}
}

// Post queues one inbound action. Posts from a single connection are
// applied in arrival order. Posting to a closed room is a no-op.
func (r *Room) Post(a Action) {
	select {
	case r.postCh <- post{action: &a}:
	case <-r.quit:
	}
}

// postEvent feeds a timer event back into the loop.
func (r *Room) postEvent(ev engine.Event) {
	select {
	case r.postCh <- post{event: ev}:
	case <-r.quit:
	}
}

// Close stops the loop and cancels outstanding timers.
func (r *Room) Close() {
	r.once.Do(func() { close(r.quit) })
}

// Info returns the roster for room listings. Safe to call from any
// goroutine.
func (r *Room) Info() []models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.User(nil), r.users...)
}

// handleAction applies one inbound action. Runs on the loop goroutine.
func (r *Room) handleAction(a Action) {
	switch a.Type {
	case ActionUserEntered:
		r.addUser(a.User)
	case ActionUserExit:
		r.removeUser(a.User)
	case ActionPass:
		if r.game == nil {
			return
		}
		r.applyEngine(engine.PassEvent{PlayerID: a.User.ID, CardID: engine.Card(a.CardID)},
			a.User.ID, ActionPass, map[string]interface{}{"cardId": a.CardID})
	case ActionPlay:
		// Raised by the engine itself; from the network it is refused.
		r.logger.WithField("user", a.User.ID).Debug("refusing external play action")
	case ActionRequest:
		if r.game == nil {
			return
		}
		batch, ok := a.cards()
		if !ok {
			return
		}
		r.applyEngine(engine.RequestEvent{RequestID: a.RequestID, PlayerID: a.User.ID, Values: batch},
			a.User.ID, ActionRequest, map[string]interface{}{"requestId": a.RequestID})
	default:
		r.logger.WithField("type", a.Type).Debug("ignoring unknown action")
	}
}

// handleEngineEvent applies a timer event fed back by a fired timer.
func (r *Room) handleEngineEvent(ev engine.Event) {
	if r.game == nil {
		return
	}
	if te, ok := ev.(engine.TimerEvent); ok {
		delete(r.timers, te.Token)
	}
	r.applyEngine(ev, "", "timer", nil)
}

// applyEngine runs one engine transition to quiescence: apply, schedule
// any returned effects, record the action, persist on game end, and
// re-broadcast. Rejected input changes nothing and stays silent.
func (r *Room) applyEngine(ev engine.Event, actorID, actionType string, payload map[string]interface{}) {
	effects, changed := r.game.Apply(ev)
	r.schedule(effects)
	if !changed {
		return
	}
	r.recordAction(actorID, actionType, payload)
	if r.game.IsTerminal() && !r.resultSaved {
		r.finishGame()
	}
	r.broadcast()
}

// schedule arms timers for the engine's deferred transitions. Immediate
// effects are fed back before anything else can interleave.
func (r *Room) schedule(effects []engine.Effect) {
	for _, eff := range effects {
		if eff.After <= 0 {
			r.handleEngineEvent(eff.Event)
			continue
		}
		ev := eff.Event
		timer := time.AfterFunc(eff.After, func() { r.postEvent(ev) })
		if te, ok := ev.(engine.TimerEvent); ok {
			r.timers[te.Token] = timer
		}
	}
}

// addUser appends a user to the roster, starting the game when the table
// fills. Rejoining users are not duplicated.
func (r *Room) addUser(u models.User) {
	if u.ID == "" {
		return
	}
	for _, existing := range r.users {
		if existing.ID == u.ID {
			r.broadcast()
			return
		}
	}
	r.mu.Lock()
	r.users = append(r.users, u)
	r.mu.Unlock()
	r.appendLog(u.Name + " joined")
	r.recordAction(u.ID, ActionUserEntered, nil)

	if r.game == nil && len(r.users) >= seatCount {
		r.startGame()
	}
	r.broadcast()
}

// removeUser drops a user from the roster. The seat stays in the game;
// a rejoining user resumes it.
func (r *Room) removeUser(u models.User) {
	r.mu.Lock()
	kept := r.users[:0]
	removed := false
	for _, existing := range r.users {
		if existing.ID == u.ID {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	r.users = kept
	r.mu.Unlock()
	if !removed {
		return
	}
	r.appendLog(u.Name + " left")
	r.recordAction(u.ID, ActionUserExit, nil)
	r.broadcast()
}

// startGame seats the first four users and deals.
func (r *Room) startGame() {
	seats := make([]engine.Seat, 0, seatCount)
	for _, u := range r.users[:seatCount] {
		seats = append(seats, engine.Seat{ID: u.ID, Name: u.Name})
	}
	seed := r.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	r.game = engine.New(seed, r.rules, seats)
	r.schedule(r.game.Start())
	r.appendLog("The game begins")
	r.recordAction("", "game_start", map[string]interface{}{"players": len(seats)})
	r.logger.WithField("players", len(seats)).Info("game started")
}

// finishGame logs and persists the terminal result.
func (r *Room) finishGame() {
	r.resultSaved = true
	snap := r.game.Snapshot()

	winnerName := snap.Winner
	if p, ok := snap.Players[snap.Winner]; ok {
		winnerName = p.Name
	}
	r.appendLog(winnerName + " wins the game")
	r.logger.WithField("winner", snap.Winner).Info("game over")

	scores := make(map[string]int, len(snap.Players))
	for id, p := range snap.Players {
		scores[id] = p.Score
	}
	result := models.GameResult{
		RoomID:   r.ID,
		Winner:   snap.Winner,
		Scores:   scores,
		Rounds:   snap.Round,
		EndedAt:  time.Now().UnixMilli(),
		Players:  r.Info(),
		EndScore: r.rules.EndScore,
	}
	r.recordAction("", "game_end", map[string]interface{}{"winner": snap.Winner})

	if database.DB == nil {
		return
	}
	logger := r.logger
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.StoreGameResult(ctx, result); err != nil {
			logger.WithError(err).Error("failed to store game result")
		}
	}()
}

// appendLog prepends a message to the bounded activity log.
func (r *Room) appendLog(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := models.LogEntry{DT: time.Now().UnixMilli(), Message: message}
	r.journal = append([]models.LogEntry{entry}, r.journal...)
	if len(r.journal) > maxLogSize {
		r.journal = r.journal[:maxLogSize]
	}
}

// recordAction publishes one applied action to the historian queue.
// No-op when Redis is not configured.
func (r *Room) recordAction(actorID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if cache.Rdb == nil {
		return
	}
	rec := cache.ActionRecord{
		RoomID:      r.ID,
		ActionIndex: r.actionIndex,
		ActorID:     actorID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	logger := r.logger
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishAction(ctx, rec); err != nil {
			logger.WithError(err).Error("failed to publish action record")
		}
	}()
}

// broadcast serializes the full snapshot and hands it to the transport.
func (r *Room) broadcast() {
	if r.BroadcastFn == nil {
		return
	}
	data, err := json.Marshal(r.snapshot())
	if err != nil {
		r.logger.WithError(err).Error("failed to marshal snapshot")
		return
	}
	r.BroadcastFn(data)
}

// snapshot assembles the outbound payload.
func (r *Room) snapshot() Snapshot {
	r.mu.RLock()
	s := Snapshot{
		Users: append([]models.User(nil), r.users...),
		Log:   append([]models.LogEntry(nil), r.journal...),
	}
	r.mu.RUnlock()
	if r.game != nil {
		gs := r.game.Snapshot()
		s.GameInfo = &gs
	}
	if s.Users == nil {
		s.Users = []models.User{}
	}
	if s.Log == nil {
		s.Log = []models.LogEntry{}
	}
	return s
}
