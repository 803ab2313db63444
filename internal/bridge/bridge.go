// Package bridge implements the DevTools Bridge (§4.4): a WebSocket
// endpoint that speaks the "Wall" protocol to runtime backends, forwards
// operations batches into the component tree, and brokers the
// inspect/profile request-response cycles.
package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teranos/agent-react-devtools/internal/devtoolslog"
	"github.com/teranos/agent-react-devtools/internal/opstream"
	"github.com/teranos/agent-react-devtools/internal/tree"
)

// WebSocket timeout constants, same discipline the teacher's chat-style
// hub uses: a read deadline refreshed by pongs, and periodic pings to
// detect a dead peer before the OS does.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4 * 1024 * 1024
)

// Envelope is the Wall protocol's JSON shape: {event, payload}.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub is the orchestrator-side surface the bridge calls into. All of its
// methods are expected to serialize internally — the bridge makes no
// ordering guarantees across concurrent peer connections beyond "one
// peer's own batches are applied in receive order" (§5).
type Hub interface {
	ApplyBatch(batch *opstream.DecodedBatch) []tree.AddedSummary
	RemoveRoot(rootID uint32) []uint32
	GetNode(id uint32) (*tree.Node, bool)
	PeerConnected()
	PeerDisconnected()
	ProcessProfilingPayload(raw json.RawMessage) error
}

// conn is one peer WebSocket connection.
type conn struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	decoder *opstream.Decoder

	rendererID      uint32
	firstOpSeen     bool
	ownedRoot       *uint32
	handshakeDone   bool
}

// Bridge owns every live peer connection and the pending-inspection
// table. Not safe for concurrent use outside its own internal locking —
// unlike internal/tree, the bridge genuinely is called concurrently from
// one goroutine per connection, so it keeps its own mutex.
type Bridge struct {
	hub      Hub
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*conn

	inspectTimeout    time.Duration
	profileStopGrace  time.Duration

	pendingMu sync.Mutex
	pending   map[uint32]*pendingInspection
}

// New returns a Bridge bound to hub, with the given inspect deadline and
// post-stop profiling-drain grace window.
func New(hub Hub, inspectTimeout, profileStopGrace time.Duration) *Bridge {
	return &Bridge{
		hub:              hub,
		upgrader:         websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		conns:            make(map[string]*conn),
		inspectTimeout:   inspectTimeout,
		profileStopGrace: profileStopGrace,
		pending:          make(map[uint32]*pendingInspection),
	}
}

// ServeHTTP upgrades the request to a WebSocket and runs the connection
// until it closes.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		devtoolslog.Logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	c := &conn{
		id:      uuid.NewString(),
		ws:      ws,
		send:    make(chan []byte, 64),
		decoder: opstream.NewDecoder(),
	}

	b.mu.Lock()
	b.conns[c.id] = c
	b.mu.Unlock()

	b.hub.PeerConnected()
	devtoolslog.Logger.Infow("runtime backend connected", "conn_id", c.id)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); b.writePump(c) }()
	go func() { defer wg.Done(); b.readPump(c) }()
	wg.Wait()
}

func (b *Bridge) readPump(c *conn) {
	defer b.disconnect(c)

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				devtoolslog.Logger.Debugw("websocket read error", "conn_id", c.id, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// Transport error taxonomy (§7): malformed inbound frames are
			// silently discarded per-frame, connection stays open.
			continue
		}
		b.handleEvent(c, env)
	}
}

func (b *Bridge) writePump(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (b *Bridge) disconnect(c *conn) {
	b.mu.Lock()
	delete(b.conns, c.id)
	b.mu.Unlock()

	if c.ownedRoot != nil {
		b.hub.RemoveRoot(*c.ownedRoot)
	}
	b.hub.PeerDisconnected()
	devtoolslog.Logger.Infow("runtime backend disconnected", "conn_id", c.id)

	close(c.send)
}

func (b *Bridge) sendEnvelope(c *conn, event string, payload interface{}) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		devtoolslog.Logger.Errorw("failed to marshal outbound envelope", "event", event, "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		devtoolslog.Logger.Warnw("dropping outbound message, send buffer full", "conn_id", c.id, "event", event)
	}
}

func (b *Bridge) broadcast(event string, payload interface{}) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		devtoolslog.Logger.Errorw("failed to marshal broadcast envelope", "event", event, "error", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conns {
		select {
		case c.send <- data:
		default:
		}
	}
}

func marshalEnvelope(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Payload: mustRawMessage(payload)})
}

func mustRawMessage(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// ConnectedCount returns the number of currently live peer connections.
func (b *Bridge) ConnectedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}
