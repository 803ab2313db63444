// Package orchestrator wires the Component Tree, Profiler, Connection
// Health Tracker and Wait Registry into a single serialized unit that
// implements bridge.Hub, and answers the command set the IPC server
// exposes to local clients (§4.8).
//
// Unlike internal/tree, internal/health and internal/profiler — which
// assume a single caller and carry no locking of their own — Orchestrator
// is genuinely called from multiple goroutines (one per bridge peer
// connection, one per IPC client connection), so it guards every one of
// those components behind its own mutex. This is the serializing event
// loop internal/tree's package doc refers to, just implemented as a
// lock rather than a dedicated goroutine with a channel — the teacher's
// server.QNTXServer.Run() plays the same role with a select loop; a
// mutex was chosen here because nearly every orchestrator method needs
// a read-then-write round trip across two or three of the underlying
// components (e.g. get-tree's disconnect hint reads both tree and
// health), which is awkward to express as independent channel ops
// without reintroducing a mutex internally anyway.
package orchestrator

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/teranos/agent-react-devtools/internal/bridge"
	"github.com/teranos/agent-react-devtools/internal/health"
	"github.com/teranos/agent-react-devtools/internal/opstream"
	"github.com/teranos/agent-react-devtools/internal/profiler"
	"github.com/teranos/agent-react-devtools/internal/tree"
	"github.com/teranos/agent-react-devtools/internal/wait"
)

var _ bridge.Hub = (*Orchestrator)(nil)

// BridgeOps is the subset of *bridge.Bridge the orchestrator calls into
// to service inspect/profiling IPC commands. Kept as an interface rather
// than a concrete *bridge.Bridge field so tests can stub it.
type BridgeOps interface {
	InspectElement(id uint32) (*bridge.InspectedElement, error)
	StartProfiling()
	StopProfilingAndCollect()
}

// Clock abstracts "now" so tests can control timestamps. nowMs returns
// unix milliseconds.
type Clock func() int64

// State mirrors the teacher's ServerState: Running while the daemon
// serves bridge and IPC traffic, Draining while an in-flight shutdown
// waits for handlers to finish, Stopped once both listeners are closed.
// Exposed through the status command so clients can see a shutdown in
// progress rather than just losing the socket.
type State int

const (
	StateRunning State = iota
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Orchestrator is the daemon's process-wide state: the live component
// tree, the active profiling session (if any), connection health
// history, and pending waiters. mu guards the tree, profiler, health
// tracker and lifecycle state; the wait registry keeps its own lock and
// is signalled after mu is released.
type Orchestrator struct {
	mu sync.Mutex

	tree    *tree.ComponentTree
	prof    *profiler.Profiler
	healthT *health.Tracker
	waits   *wait.Registry
	state   State
	br      BridgeOps

	clock       Clock
	defaultWait time.Duration
	startedAtMs int64
	port        int
}

// New builds an Orchestrator with the default connection-history ring
// size. reconnectWindowMs is passed straight to the health tracker;
// defaultWaitTimeout is used when a wait request omits one.
func New(clock Clock, reconnectWindowMs int64, defaultWaitTimeout time.Duration, port int) *Orchestrator {
	return NewWithHealthRingCapacity(clock, reconnectWindowMs, 0, defaultWaitTimeout, port)
}

// NewWithHealthRingCapacity is New with an explicit health-ring
// capacity (health_ring_capacity, §6.4); 0 keeps health's own default.
func NewWithHealthRingCapacity(clock Clock, reconnectWindowMs int64, healthRingCapacity int, defaultWaitTimeout time.Duration, port int) *Orchestrator {
	now := clock()
	return &Orchestrator{
		tree:        tree.New(),
		prof:        profiler.New(),
		healthT:     health.NewWithCapacity(reconnectWindowMs, healthRingCapacity),
		waits:       wait.New(),
		state:       StateRunning,
		clock:       clock,
		defaultWait: defaultWaitTimeout,
		startedAtMs: now,
		port:        port,
	}
}

// SetBridge wires the live bridge in once it exists. The bridge needs
// the orchestrator (as its Hub) to be constructed first, so this is a
// second step rather than a New parameter: cmd/devtools-daemon builds
// the Orchestrator, then bridge.New(orch, ...), then calls this.
func (o *Orchestrator) SetBridge(br BridgeOps) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.br = br
}

// BeginDraining marks the orchestrator as shutting down. Called once a
// shutdown signal arrives, before the bridge and IPC listeners close.
func (o *Orchestrator) BeginDraining() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateDraining
}

// MarkStopped marks the orchestrator as fully stopped, after both
// listeners have closed and in-flight handlers have drained.
func (o *Orchestrator) MarkStopped() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateStopped
}

// State reports the current lifecycle state for the status command.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// --- bridge.Hub ---

// ApplyBatch implements bridge.Hub.
func (o *Orchestrator) ApplyBatch(batch *opstream.DecodedBatch) []tree.AddedSummary {
	o.mu.Lock()
	added := o.tree.Apply(batch)
	o.mu.Unlock()

	if len(added) > 0 {
		o.waits.Signal()
	}
	return added
}

// RemoveRoot implements bridge.Hub.
func (o *Orchestrator) RemoveRoot(rootID uint32) []uint32 {
	o.mu.Lock()
	removed := o.tree.RemoveRoot(rootID)
	o.mu.Unlock()
	return removed
}

// GetNode implements bridge.Hub.
func (o *Orchestrator) GetNode(id uint32) (*tree.Node, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tree.GetNode(id)
}

// PeerConnected implements bridge.Hub.
func (o *Orchestrator) PeerConnected() {
	o.mu.Lock()
	o.healthT.Connected(o.clock())
	o.mu.Unlock()
	o.waits.Signal()
}

// PeerDisconnected implements bridge.Hub.
func (o *Orchestrator) PeerDisconnected() {
	o.mu.Lock()
	o.healthT.Disconnected(o.clock())
	o.mu.Unlock()
	o.waits.Signal()
}

// ProcessProfilingPayload implements bridge.Hub.
func (o *Orchestrator) ProcessProfilingPayload(raw json.RawMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.prof.ProcessPayload(raw)
}

// --- accessors used by the IPC command table ---

func (o *Orchestrator) resolveRef(ref string) (uint32, bool) {
	return o.tree.ResolveID(ref)
}

func (o *Orchestrator) nowMs() int64 {
	return o.clock()
}

func (o *Orchestrator) uptimeMs() int64 {
	return o.clock() - o.startedAtMs
}

// describeDisconnectHint builds §9's "app disconnected N ago, waiting for
// reconnect..." hint for an empty-tree get-tree response, or "" if no
// recent disconnect applies.
func (o *Orchestrator) describeDisconnectHint() string {
	last := o.healthT.LastDisconnectAt()
	if last == nil {
		return ""
	}
	agoMs := o.clock() - *last
	return fmt.Sprintf("app disconnected %s ago, waiting for reconnect...", humanDuration(agoMs))
}

func humanDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	switch {
	case d < time.Second:
		return "less than a second"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
