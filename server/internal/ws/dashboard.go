package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/factorypulse/factorypulse/server/internal/hub"
)

// Dashboard serves the dashboard-facing WebSocket endpoint. Each connection
// joins the hub as an observer: it receives the full-state sync followed by
// live deltas, and may send command requests and alert acknowledgements.
type Dashboard struct {
	hub *hub.Hub
}

// NewDashboard returns the handler for the dashboard endpoint.
func NewDashboard(h *hub.Hub) *Dashboard {
	return &Dashboard{hub: h}
}

// ServeHTTP upgrades the connection, joins it as an observer, and serves it
// until it closes or the hub drops it for falling behind.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	o := hub.NewObserver()
	d.hub.Join(o)
	defer d.hub.Leave(o)

	go observerWritePump(conn, o)
	observerReadPump(conn, d.hub, o) // blocks until the connection closes
}

// observerWritePump forwards hub broadcasts to the connection. When the hub
// closes the observer's channel the pump sends a close frame and exits, which
// unblocks the read pump.
func observerWritePump(conn *websocket.Conn, o *hub.Observer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-o.C():
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func observerReadPump(conn *websocket.Conn, h *hub.Hub, o *hub.Observer) {
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		h.HandleObserverMessage(o, raw)
	}
}
