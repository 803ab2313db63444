package bridge

import (
	"encoding/json"
	"time"

	"github.com/teranos/agent-react-devtools/internal/opstream"
	"github.com/teranos/agent-react-devtools/internal/wireerr"
)

// Hook is one entry in an InspectedElement's hooks sequence.
type Hook struct {
	Name     string      `json:"name"`
	Value    interface{} `json:"value"`
	SubHooks []Hook      `json:"subHooks,omitempty"`
}

// InspectedElement is the cleaned result of an inspect round-trip.
type InspectedElement struct {
	ID          uint32               `json:"id"`
	DisplayName string               `json:"displayName"`
	Kind        opstream.ElementKind `json:"kind"`
	Key         *string              `json:"key"`
	Props       interface{}          `json:"props"`
	State       interface{}          `json:"state"`
	Hooks       []Hook               `json:"hooks"`
	RenderedAt  *int64               `json:"renderedAt"`
}

type pendingInspection struct {
	result chan *InspectedElement
}

// InspectElement implements the inspectElement round-trip (§4.4). A node
// that doesn't exist, or a connection with no live peers, resolves
// immediately to ErrNotFound (testable property 15). Otherwise the node
// id is broadcast as the requestID; only one outstanding inspection per
// id is allowed — a second call for the same id replaces the first
// call's resolver, which will then simply time out on its own.
func (b *Bridge) InspectElement(id uint32) (*InspectedElement, error) {
	node, ok := b.hub.GetNode(id)
	if !ok {
		return nil, wireerr.Wrapf(wireerr.ErrNotFound, "component %d not found", id)
	}
	if b.ConnectedCount() == 0 {
		return nil, wireerr.Wrapf(wireerr.ErrNotFound, "component %d not found", id)
	}

	result := make(chan *InspectedElement, 1)
	b.pendingMu.Lock()
	b.pending[id] = &pendingInspection{result: result}
	b.pendingMu.Unlock()

	b.broadcast("inspectElement", map[string]interface{}{
		"id":            id,
		"rendererID":    node.RendererID,
		"forceFullData": true,
		"requestID":     id,
		"path":          nil,
	})

	select {
	case el := <-result:
		if el == nil {
			return nil, wireerr.Wrapf(wireerr.ErrNotFound, "component %d not found", id)
		}
		return el, nil
	case <-time.After(b.inspectTimeout):
		b.pendingMu.Lock()
		delete(b.pending, id)
		b.pendingMu.Unlock()
		return nil, wireerr.Wrapf(wireerr.ErrTimeout, "component %d not found", id)
	}
}

func (b *Bridge) handleInspectedElement(payload json.RawMessage) {
	var env struct {
		Type  string          `json:"type"`
		ID    uint32          `json:"id"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return
	}

	b.pendingMu.Lock()
	p, ok := b.pending[env.ID]
	if ok {
		delete(b.pending, env.ID)
	}
	b.pendingMu.Unlock()
	if !ok {
		return
	}

	if env.Type != "full-data" && env.Type != "hydrated-path" {
		p.result <- nil
		return
	}
	p.result <- buildInspectedElement(env.ID, env.Value)
}

func buildInspectedElement(id uint32, raw json.RawMessage) *InspectedElement {
	var value struct {
		DisplayName string          `json:"displayName"`
		Type        int64           `json:"type"`
		Key         *string         `json:"key"`
		Props       json.RawMessage `json:"props"`
		State       json.RawMessage `json:"state"`
		Hooks       json.RawMessage `json:"hooks"`
		RenderedAt  *int64          `json:"renderedAt"`
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return &InspectedElement{ID: id}
	}

	el := &InspectedElement{
		ID:          id,
		DisplayName: value.DisplayName,
		Kind:        opstream.WireKind(value.Type),
		Key:         value.Key,
		RenderedAt:  value.RenderedAt,
	}
	if len(value.Props) > 0 {
		el.Props = cleanGenericJSON(value.Props)
	}
	if len(value.State) > 0 {
		el.State = cleanGenericJSON(value.State)
	}
	if len(value.Hooks) > 0 {
		var hooksRaw []interface{}
		if err := json.Unmarshal(value.Hooks, &hooksRaw); err == nil {
			el.Hooks = parseHooks(hooksRaw)
		}
	}
	return el
}

func cleanGenericJSON(raw json.RawMessage) interface{} {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return cleanValue(v)
}

func parseHooks(raw []interface{}) []Hook {
	hooks := make([]Hook, 0, len(raw))
	for _, h := range raw {
		hm, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		hook := Hook{}
		if n, ok := hm["name"].(string); ok {
			hook.Name = n
		}
		if v, ok := hm["value"]; ok {
			hook.Value = cleanValue(v)
		}
		if sub, ok := hm["subHooks"].([]interface{}); ok {
			hook.SubHooks = parseHooks(sub)
		}
		hooks = append(hooks, hook)
	}
	return hooks
}
