// Package ws exposes the HTTP and websocket surface: guest login, room
// management, and the per-connection pumps that bridge sockets to room
// event loops.
package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xylophonehero/hearts/internal/auth"
	"github.com/xylophonehero/hearts/internal/config"
	"github.com/xylophonehero/hearts/internal/session"
)

// Server owns the room registry and the connection fan-out.
type Server struct {
	cfg config.Config
	log *logrus.Logger

	mu    sync.Mutex
	rooms map[string]*roomState
}

type roomState struct {
	room  *session.Room
	conns map[*client]struct{}
}

// NewServer builds a server around the given configuration.
func NewServer(cfg config.Config, log *logrus.Logger) *Server {
	return &Server{
		cfg:   cfg,
		log:   log,
		rooms: make(map[string]*roomState),
	}
}

// Router wires the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	a := r.Group("/api")
	a.POST("/login", s.login)
	a.GET("/rooms", s.listRooms)
	a.POST("/rooms", s.createRoom)
	a.GET("/rooms/:id", s.getRoom)
	a.DELETE("/rooms/:id", s.deleteRoom)
	r.GET("/ws", s.serveWS)
	return r
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully and closes every room.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.Router(),
		ReadTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.WithField("addr", s.cfg.Addr).Info("listening")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)

	s.mu.Lock()
	for id, st := range s.rooms {
		st.room.Close()
		delete(s.rooms, id)
	}
	s.mu.Unlock()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type loginRequest struct {
	Name string `json:"name"`
}

type loginResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}
	user := auth.NewUser(strings.TrimSpace(req.Name))
	token, err := auth.CreateToken(user)
	if err != nil {
		s.log.WithError(err).Error("token creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, loginResponse{ID: user.ID, Name: user.Name, Token: token})
}

type roomSummary struct {
	ID    string `json:"id"`
	Users int    `json:"users"`
}

func (s *Server) listRooms(c *gin.Context) {
	s.mu.Lock()
	out := make([]roomSummary, 0, len(s.rooms))
	for id, st := range s.rooms {
		out = append(out, roomSummary{ID: id, Users: len(st.room.Info())})
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

type createRoomRequest struct {
	ID string `json:"id"`
}

func (s *Server) createRoom(c *gin.Context) {
	var req createRoomRequest
	_ = c.ShouldBindJSON(&req)
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[id]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "room exists"})
		return
	}
	s.addRoom(id)
	c.JSON(http.StatusCreated, roomSummary{ID: id})
}

// addRoom registers and starts a room. Caller holds s.mu.
func (s *Server) addRoom(id string) *roomState {
	room := session.NewRoom(id, s.cfg.Rules, s.log)
	st := &roomState{room: room, conns: make(map[*client]struct{})}
	room.BroadcastFn = func(data []byte) { s.broadcast(id, data) }
	s.rooms[id] = st
	go room.Run()
	return st
}

func (s *Server) getRoom(c *gin.Context) {
	s.mu.Lock()
	st, ok := s.rooms[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "users": st.room.Info()})
}

func (s *Server) deleteRoom(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	st, ok := s.rooms[id]
	if ok {
		delete(s.rooms, id)
	}
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such room"})
		return
	}
	st.room.Close()
	for cl := range st.conns {
		cl.close()
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// broadcast fans one snapshot out to every connection in a room. Slow
// consumers are skipped rather than blocking the room loop.
func (s *Server) broadcast(roomID string, data []byte) {
	s.mu.Lock()
	st, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}
	conns := make([]*client, 0, len(st.conns))
	for cl := range st.conns {
		conns = append(conns, cl)
	}
	s.mu.Unlock()

	for _, cl := range conns {
		cl.send(data)
	}
}

// authenticate resolves the connecting user from the token query parameter
// or an Authorization bearer header.
func (s *Server) authenticate(c *gin.Context) (string, string, bool) {
	token := c.Query("token")
	if token == "" {
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	user, err := auth.VerifyToken(token)
	if err != nil {
		return "", "", false
	}
	return user.ID, user.Name, true
}
