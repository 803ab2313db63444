package bridge

import (
	"encoding/json"

	"github.com/teranos/agent-react-devtools/internal/devtoolslog"
)

// acceptedNoOpEvents never changes bridge state; they are replies to
// queries the handshake sequence issues, or capability reports the
// daemon doesn't act on (§4.4's event table).
var acceptedNoOpEvents = map[string]bool{
	"bridgeProtocol":                         true,
	"backendVersion":                         true,
	"profilingStatus":                        true,
	"overrideComponentFilters":               true,
	"hookSettings":                           true,
	"isBackendStorageAPISupported":           true,
	"isReactNativeEnvironment":               true,
	"isReloadAndProfileSupportedByBackend":   true,
	"isSynchronousXHRSupported":              true,
	"syncSelectionFromNativeElementsPanel":   true,
	"unsupportedRendererVersion":             true,
}

func (b *Bridge) handleEvent(c *conn, env Envelope) {
	switch env.Event {
	case "backendInitialized":
		b.runHandshake(c)

	case "renderer", "rendererAttached":
		var payload struct {
			RendererID uint32 `json:"rendererId"`
			ID         uint32 `json:"id"`
		}
		if err := json.Unmarshal(env.Payload, &payload); err == nil {
			if payload.RendererID != 0 {
				c.rendererID = payload.RendererID
			} else {
				c.rendererID = payload.ID
			}
		}

	case "operations":
		b.handleOperations(c, env.Payload)

	case "inspectedElement":
		b.handleInspectedElement(env.Payload)

	case "profilingData":
		if err := b.hub.ProcessProfilingPayload(env.Payload); err != nil {
			devtoolslog.Logger.Warnw("failed to process profilingData", "error", err)
		}

	case "shutdown":
		c.ws.Close()

	default:
		if acceptedNoOpEvents[env.Event] {
			return
		}
		devtoolslog.Logger.Debugw("ignoring unknown wall event", "event", env.Event)
	}
}

// runHandshake sends the fixed reply sequence the moment a peer
// announces itself (§4.4).
func (b *Bridge) runHandshake(c *conn) {
	c.handshakeDone = true
	for _, event := range []string{
		"getBridgeProtocol",
		"getBackendVersion",
		"getIfHasUnsupportedRendererVersion",
		"getHookSettings",
		"getProfilingStatus",
	} {
		b.sendEnvelope(c, event, nil)
	}
}

func (b *Bridge) handleOperations(c *conn, payload json.RawMessage) {
	var ints []int64
	if err := json.Unmarshal(payload, &ints); err != nil {
		return // malformed frame, drop silently per §7 Transport handling
	}
	if !c.firstOpSeen {
		c.firstOpSeen = true
		if len(ints) > 1 {
			root := uint32(ints[1])
			c.ownedRoot = &root
		}
	}

	decoded, err := c.decoder.Decode(ints)
	if err != nil {
		devtoolslog.Logger.Warnw("dropping malformed operations batch", "conn_id", c.id, "error", err)
		return
	}
	b.hub.ApplyBatch(decoded)
}
