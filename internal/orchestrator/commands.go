package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teranos/agent-react-devtools/internal/ipc"
	"github.com/teranos/agent-react-devtools/internal/wireerr"
)

// Handler returns an ipc.Handler bound to this Orchestrator, dispatching
// on the request's "type" field to the command set §6.2 defines.
func (o *Orchestrator) Handler() ipc.Handler {
	return func(ctx context.Context, req map[string]interface{}) ipc.Response {
		kind, _ := req["type"].(string)
		switch kind {
		case "ping":
			return ipc.Response{OK: true, Data: "pong"}
		case "status":
			return o.cmdStatus()
		case "get-tree":
			return o.cmdGetTree(req)
		case "get-component":
			return o.cmdGetComponent(req)
		case "find":
			return o.cmdFind(req)
		case "count":
			return o.cmdCount()
		case "profile-start":
			return o.cmdProfileStart(req)
		case "profile-stop":
			return o.cmdProfileStop()
		case "profile-report":
			return o.cmdProfileReport(req)
		case "profile-slow":
			return o.cmdProfileSlow(req)
		case "profile-rerenders":
			return o.cmdProfileRerenders(req)
		case "profile-timeline":
			return o.cmdProfileTimeline(req)
		case "profile-commit":
			return o.cmdProfileCommit(req)
		case "wait":
			return o.cmdWait(req)
		default:
			return ipc.Response{OK: false, Error: "Unknown command: " + kind}
		}
	}
}

func errResponse(err error) ipc.Response {
	resp := ipc.Response{OK: false, Error: err.Error()}
	if hints := wireerr.GetAllHints(err); len(hints) > 0 {
		resp.Hint = hints[0]
	}
	return resp
}

// connectionStatus mirrors §6.2's status.connection sub-object.
type connectionStatus struct {
	ConnectedApps    int           `json:"connectedApps"`
	HasEverConnected bool          `json:"hasEverConnected"`
	LastDisconnectAt *int64        `json:"lastDisconnectAt,omitempty"`
	RecentEvents     []eventRecord `json:"recentEvents"`
}

type eventRecord struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type statusResponse struct {
	DaemonRunning   bool             `json:"daemonRunning"`
	State           string           `json:"state"`
	Port            int              `json:"port"`
	ConnectedApps   int              `json:"connectedApps"`
	ComponentCount  int              `json:"componentCount"`
	ProfilingActive bool             `json:"profilingActive"`
	UptimeMs        int64            `json:"uptime"`
	Connection      connectionStatus `json:"connection"`
}

func (o *Orchestrator) cmdStatus() ipc.Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	events := o.healthT.RecentEvents()
	records := make([]eventRecord, len(events))
	for i, e := range events {
		records[i] = eventRecord{Type: e.Kind.String(), Timestamp: e.Timestamp}
	}

	componentCount := 0
	for _, n := range o.tree.GetCountByKind() {
		componentCount += n
	}

	return ipc.Response{OK: true, Data: statusResponse{
		DaemonRunning:   o.state != StateStopped,
		State:           o.state.String(),
		Port:            o.port,
		ConnectedApps:   o.healthT.LiveConnections(),
		ComponentCount:  componentCount,
		ProfilingActive: o.prof.Active(),
		UptimeMs:        o.uptimeMs(),
		Connection: connectionStatus{
			ConnectedApps:    o.healthT.LiveConnections(),
			HasEverConnected: o.healthT.HasEverConnected(),
			LastDisconnectAt: o.healthT.LastDisconnectAt(),
			RecentEvents:     records,
		},
	}}
}

type treeResponse struct {
	Entries interface{} `json:"entries"`
	Hint    string      `json:"hint,omitempty"`
}

func (o *Orchestrator) cmdGetTree(req map[string]interface{}) ipc.Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	var depth *int
	if raw, ok := req["depth"]; ok {
		if f, ok := raw.(float64); ok {
			d := int(f)
			depth = &d
		}
	}

	entries := o.tree.GetTree(depth)
	resp := treeResponse{Entries: entries}
	if len(entries) == 0 {
		resp.Hint = o.describeDisconnectHint()
	}
	return ipc.Response{OK: true, Data: resp}
}

// cmdGetComponent performs the inspectElement round-trip (§4.4, E5):
// resolve the ref to an id locally, then hand off to the bridge, which
// broadcasts inspectElement and waits up to the configured timeout for
// the peer's reply. Released before calling the bridge, since
// InspectElement itself calls back into o.GetNode.
func (o *Orchestrator) cmdGetComponent(req map[string]interface{}) ipc.Response {
	rawRef := req["id"]
	ref, errStr := stringOrIntRef(rawRef)
	if errStr != "" {
		return ipc.Response{OK: false, Error: errStr}
	}

	o.mu.Lock()
	id, ok := o.resolveRef(ref)
	br := o.br
	o.mu.Unlock()
	if !ok {
		return errResponse(wireerr.Wrapf(wireerr.ErrNotFound, "component %q", ref))
	}
	if br == nil {
		return errResponse(wireerr.Wrap(wireerr.ErrNotReady, "bridge not wired"))
	}

	el, err := br.InspectElement(id)
	if err != nil {
		return errResponse(err)
	}

	resp := ipc.Response{OK: true, Data: el}
	if label, isLabel := rawRef.(string); isLabel && strings.HasPrefix(label, "@c") {
		resp.Label = label
	}
	return resp
}

func (o *Orchestrator) cmdFind(req map[string]interface{}) ipc.Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	name, _ := req["name"].(string)
	exact, _ := req["exact"].(bool)
	return ipc.Response{OK: true, Data: o.tree.FindByName(name, exact)}
}

func (o *Orchestrator) cmdCount() ipc.Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	counts := o.tree.GetCountByKind()
	out := make(map[string]int, len(counts))
	for k, n := range counts {
		out[k.String()] = n
	}
	return ipc.Response{OK: true, Data: out}
}

// cmdProfileStart begins a local session and broadcasts startProfiling
// to every connected peer (§4.4 "Profiling commands") so runtimes
// actually start emitting commit data.
func (o *Orchestrator) cmdProfileStart(req map[string]interface{}) ipc.Response {
	name, _ := req["name"].(string)

	o.mu.Lock()
	if name == "" {
		name = fmt.Sprintf("session-%d", o.nowMs())
	}
	o.prof.Start(name, o.tree, o.nowMs())
	br := o.br
	o.mu.Unlock()

	if br != nil {
		br.StartProfiling()
	}
	return ipc.Response{OK: true}
}

// cmdProfileStop broadcasts stopProfiling and suspends for the
// configured grace window (§5) so trailing profilingData commits land
// before the session is finalized. The mutex is released for the
// duration of the grace window so other commands aren't blocked by it.
func (o *Orchestrator) cmdProfileStop() ipc.Response {
	o.mu.Lock()
	active := o.prof.Active()
	br := o.br
	o.mu.Unlock()

	if !active {
		return errResponse(wireerr.Wrap(wireerr.ErrNotReady, "profile-stop with no active session"))
	}

	if br != nil {
		br.StopProfilingAndCollect()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	summary, err := o.prof.Stop(o.tree, o.nowMs())
	if err != nil {
		return errResponse(err)
	}
	return ipc.Response{OK: true, Data: summary}
}

func (o *Orchestrator) cmdProfileReport(req map[string]interface{}) ipc.Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	ref, errStr := stringOrIntRef(req["componentId"])
	if errStr != "" {
		return ipc.Response{OK: false, Error: errStr}
	}
	id, ok := o.resolveRef(ref)
	if !ok {
		return errResponse(wireerr.Wrapf(wireerr.ErrNotFound, "component %q", ref))
	}
	report, err := o.prof.GetReport(id, o.tree)
	if err != nil {
		return errResponse(err)
	}
	return ipc.Response{OK: true, Data: report}
}

func (o *Orchestrator) cmdProfileSlow(req map[string]interface{}) ipc.Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	limit := intField(req, "limit", 10)
	reports, err := o.prof.GetSlowest(o.tree, limit)
	if err != nil {
		return errResponse(err)
	}
	return ipc.Response{OK: true, Data: reports}
}

func (o *Orchestrator) cmdProfileRerenders(req map[string]interface{}) ipc.Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	limit := intField(req, "limit", 10)
	reports, err := o.prof.GetMostRerenders(o.tree, limit)
	if err != nil {
		return errResponse(err)
	}
	return ipc.Response{OK: true, Data: reports}
}

func (o *Orchestrator) cmdProfileTimeline(req map[string]interface{}) ipc.Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	var limit *int
	if raw, ok := req["limit"]; ok {
		if f, ok := raw.(float64); ok {
			l := int(f)
			limit = &l
		}
	}
	entries, err := o.prof.GetTimeline(limit)
	if err != nil {
		return errResponse(err)
	}
	return ipc.Response{OK: true, Data: entries}
}

func (o *Orchestrator) cmdProfileCommit(req map[string]interface{}) ipc.Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	index := intField(req, "index", -1)
	limit := intField(req, "limit", 10)
	details, err := o.prof.GetCommitDetails(index, o.tree, limit)
	if err != nil {
		return errResponse(err)
	}
	return ipc.Response{OK: true, Data: details}
}

func (o *Orchestrator) cmdWait(req map[string]interface{}) ipc.Response {
	condition, _ := req["condition"].(string)
	name, _ := req["name"].(string)

	timeout := o.defaultWait
	if raw, ok := req["timeout"]; ok {
		if f, ok := raw.(float64); ok {
			timeout = time.Duration(f) * time.Millisecond
		}
	}

	var predicate func() bool
	switch condition {
	case "connected":
		predicate = func() bool {
			o.mu.Lock()
			defer o.mu.Unlock()
			return o.healthT.LiveConnections() > 0
		}
	case "component":
		predicate = func() bool {
			o.mu.Lock()
			defer o.mu.Unlock()
			for _, e := range o.tree.FindByName(name, true) {
				if e.DisplayName == name {
					return true
				}
			}
			return false
		}
	default:
		return ipc.Response{OK: false, Error: "Unknown wait condition: " + condition}
	}

	result := <-o.waits.Register(predicate, timeout)

	data := map[string]interface{}{"met": result.Met, "condition": condition}
	if result.TimedOut {
		data["timeout"] = true
	}
	return ipc.Response{OK: true, Data: data}
}

func intField(req map[string]interface{}, key string, def int) int {
	if raw, ok := req[key]; ok {
		if f, ok := raw.(float64); ok {
			return int(f)
		}
	}
	return def
}

// stringOrIntRef accepts either a numeric id or an "@cN" label, matching
// get-component/profile-report's componentId/id field which clients may
// send as either a JSON number or a label string.
func stringOrIntRef(v interface{}) (string, string) {
	switch val := v.(type) {
	case string:
		return val, ""
	case float64:
		return fmt.Sprintf("%d", int64(val)), ""
	default:
		return "", "missing or invalid component reference"
	}
}
