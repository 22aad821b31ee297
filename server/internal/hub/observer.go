package hub

import "github.com/google/uuid"

// sendBufSize is the per-observer outgoing message buffer depth. An observer
// that falls this far behind is dropped rather than retried.
const sendBufSize = 16

// Observer is one joined dashboard consumer of broadcast state. Messages are
// delivered in publish order (FIFO per observer); delivery is best-effort.
type Observer struct {
	id   string
	send chan []byte
}

// NewObserver creates an unjoined observer. Pass it to Join to start
// receiving broadcasts, and drain C until it is closed.
func NewObserver() *Observer {
	return &Observer{
		id:   uuid.NewString(),
		send: make(chan []byte, sendBufSize),
	}
}

// ID returns the observer's unique identifier, used in log output.
func (o *Observer) ID() string { return o.id }

// C returns the channel the hub delivers messages on. The channel is closed
// when the observer leaves or is dropped.
func (o *Observer) C() <-chan []byte { return o.send }
