package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/xylophonehero/hearts/internal/models"
	"github.com/xylophonehero/hearts/internal/session"
)

// subprotocol spoken over every game socket.
const subprotocol = "hearts"

// sendBuffer is the per-connection outbound queue. A full queue drops the
// oldest intent by skipping the send; the next broadcast carries the full
// state anyway.
const sendBuffer = 32

// client is one websocket connection bound to a user and a room.
type client struct {
	conn   *websocket.Conn
	user   models.User
	room   *session.Room
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
	log    *logrus.Entry
}

// serveWS upgrades the connection, authenticates it and runs the pumps
// until the socket dies.
func (s *Server) serveWS(c *gin.Context) {
	userID, userName, ok := s.authenticate(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	roomID := c.Query("room")
	s.mu.Lock()
	st, exists := s.rooms[roomID]
	s.mu.Unlock()
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such room"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		Subprotocols: []string{subprotocol},
	})
	if err != nil {
		s.log.WithError(err).Debug("websocket accept failed")
		return
	}
	if conn.Subprotocol() != subprotocol {
		conn.Close(websocket.StatusPolicyViolation, "client must speak the hearts subprotocol")
		return
	}

	cl := &client{
		conn:   conn,
		user:   models.User{ID: userID, Name: userName},
		room:   st.room,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		log:    s.log.WithFields(logrus.Fields{"room": roomID, "user": userID}),
	}

	s.mu.Lock()
	if st, ok := s.rooms[roomID]; ok {
		st.conns[cl] = struct{}{}
	}
	s.mu.Unlock()

	cl.room.Post(session.Action{Type: session.ActionUserEntered, User: cl.user})
	cl.log.Info("connected")

	go cl.writePump()
	cl.readPump()

	s.mu.Lock()
	if st, ok := s.rooms[roomID]; ok {
		delete(st.conns, cl)
	}
	s.mu.Unlock()

	cl.room.Post(session.Action{Type: session.ActionUserExit, User: cl.user})
	cl.close()
	cl.log.Info("disconnected")
}

// send queues one snapshot, dropping it if the connection is backed up.
func (cl *client) send(data []byte) {
	select {
	case cl.sendCh <- data:
	case <-cl.done:
	default:
		cl.log.Debug("dropping snapshot for slow consumer")
	}
}

func (cl *client) close() {
	cl.once.Do(func() {
		close(cl.done)
		cl.conn.Close(websocket.StatusNormalClosure, "bye")
	})
}

// readPump parses inbound actions, stamps the sender and forwards them to
// the room. Presence actions come from connection lifecycle, never from
// the payload.
func (cl *client) readPump() {
	ctx := context.Background()
	for {
		_, data, err := cl.conn.Read(ctx)
		if err != nil {
			return
		}
		var action session.Action
		if err := json.Unmarshal(data, &action); err != nil {
			cl.log.WithError(err).Debug("ignoring malformed action")
			continue
		}
		switch action.Type {
		case session.ActionPass, session.ActionRequest, session.ActionPlay:
			action.User = cl.user
			cl.room.Post(action)
		default:
			cl.log.WithField("type", action.Type).Debug("ignoring action type from network")
		}
	}
}

// writePump drains the send queue onto the socket.
func (cl *client) writePump() {
	for {
		select {
		case data := <-cl.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := cl.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				cl.close()
				return
			}
		case <-cl.done:
			return
		}
	}
}
