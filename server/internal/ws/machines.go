package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/factorypulse/factorypulse/server/internal/hub"
)

// Machines serves the machine-facing WebSocket endpoint. Each connection
// streams telemetry frames into the hub; commands routed to a machine on this
// connection flow back over it.
type Machines struct {
	hub *hub.Hub
}

// NewMachines returns the handler for the machine endpoint.
func NewMachines(h *hub.Hub) *Machines {
	return &Machines{hub: h}
}

// ServeHTTP upgrades the connection and serves it until it closes. The
// connection is handed to the hub as the command channel for whatever machine
// IDs its readings carry.
func (m *Machines) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	s := &machineSession{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	defer func() {
		m.hub.MachineDisconnected(s)
		s.close()
	}()

	go s.writePump()
	s.readPump(m.hub) // blocks until the connection closes
}

// machineSession is one machine connection. It satisfies hub.MachineConn:
// Send queues a command without blocking the hub's task loop.
type machineSession struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

var errSessionGone = errors.New("machine session closed")

// Send queues msg for delivery to the machine. It never blocks: a full
// buffer or a closed session reports failure immediately and the hub treats
// the machine as disconnected.
func (s *machineSession) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionGone
	}
	select {
	case s.send <- msg:
		return nil
	default:
		return errSessionGone
	}
}

func (s *machineSession) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
	s.mu.Unlock()
}

func (s *machineSession) readPump(h *hub.Hub) {
	defer s.conn.Close()
	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.HandleMachineMessage(s, raw)
	}
}

func (s *machineSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
