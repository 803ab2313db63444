package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teranos/agent-react-devtools/internal/bridge"
	"github.com/teranos/agent-react-devtools/internal/opstream"
)

// stubBridge is a test double for BridgeOps that records which calls it
// received and returns a canned inspect result.
type stubBridge struct {
	inspectCalls  []uint32
	inspectResult *bridge.InspectedElement
	inspectErr    error
	startCalls    int
	stopCalls     int
}

func (s *stubBridge) InspectElement(id uint32) (*bridge.InspectedElement, error) {
	s.inspectCalls = append(s.inspectCalls, id)
	return s.inspectResult, s.inspectErr
}

func (s *stubBridge) StartProfiling() { s.startCalls++ }

func (s *stubBridge) StopProfilingAndCollect() { s.stopCalls++ }

func fixedClock(ms int64) Clock {
	return func() int64 { return ms }
}

func decodeBatch(t *testing.T, ops []int64) *opstream.DecodedBatch {
	t.Helper()
	d := opstream.NewDecoder()
	batch, err := d.Decode(ops)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return batch
}

func TestApplyBatchSignalsWaiters(t *testing.T) {
	o := New(fixedClock(1000), 5000, 30*time.Second, 8097)

	done := o.waits.Register(func() bool {
		o.mu.Lock()
		defer o.mu.Unlock()
		_, ok := o.tree.GetNode(100)
		return ok
	}, time.Second)

	batch := decodeBatch(t, []int64{
		1, 100, 0,
		1 /*opAdd*/, 100, 11, 1, 1, 1, 1,
	})
	o.ApplyBatch(batch)

	select {
	case res := <-done:
		if !res.Met {
			t.Fatalf("waiter result = %+v, want Met=true from ApplyBatch's signal", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never resolved")
	}
}

func TestStatusReportsConnectionAndComponentCount(t *testing.T) {
	o := New(fixedClock(2000), 5000, 30*time.Second, 8097)
	o.PeerConnected()

	batch := decodeBatch(t, []int64{
		1, 100, 0,
		1 /*opAdd*/, 100, 11, 1, 1, 1, 1,
	})
	o.ApplyBatch(batch)

	resp := o.cmdStatus()
	require.True(t, resp.OK)
	status, ok := resp.Data.(statusResponse)
	require.True(t, ok, "status response data = %T", resp.Data)
	require.Equal(t, 1, status.ConnectedApps)
	require.Equal(t, 1, status.ComponentCount)
	require.Equal(t, 1, status.Connection.ConnectedApps)
	require.True(t, status.Connection.HasEverConnected)
}

func TestGetTreeEmptyWithRecentDisconnectReturnsHint(t *testing.T) {
	clock := fixedClock(10_000)
	o := New(clock, 5000, 30*time.Second, 8097)
	o.PeerConnected()
	o.PeerDisconnected()

	resp := o.cmdGetTree(map[string]interface{}{})
	if !resp.OK {
		t.Fatalf("get-tree should succeed, got %+v", resp)
	}
	tr, ok := resp.Data.(treeResponse)
	if !ok {
		t.Fatalf("data = %T", resp.Data)
	}
	if tr.Hint == "" {
		t.Fatalf("expected a disconnect hint for an empty tree after a recent disconnect")
	}
}

func TestGetComponentUnknownRefIsNotFound(t *testing.T) {
	o := New(fixedClock(0), 5000, 30*time.Second, 8097)
	resp := o.cmdGetComponent(map[string]interface{}{"id": "@c9"})
	if resp.OK {
		t.Fatalf("expected failure for unknown ref, got %+v", resp)
	}
}

func TestUnknownIPCCommandType(t *testing.T) {
	o := New(fixedClock(0), 5000, 30*time.Second, 8097)
	handler := o.Handler()
	resp := handler(context.Background(), map[string]interface{}{"type": "bogus"})
	if resp.OK || resp.Error != "Unknown command: bogus" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestProfileStopWithNoSessionIsNotReady(t *testing.T) {
	o := New(fixedClock(0), 5000, 30*time.Second, 8097)
	resp := o.cmdProfileStop()
	if resp.OK {
		t.Fatalf("expected failure stopping with no active session, got %+v", resp)
	}
}

func TestWaitConnectedResolvesImmediatelyWhenAlreadyConnected(t *testing.T) {
	o := New(fixedClock(0), 5000, 30*time.Second, 8097)
	o.PeerConnected()

	resp := o.cmdWait(map[string]interface{}{"condition": "connected", "timeout": float64(50)})
	if !resp.OK {
		t.Fatalf("wait should resolve immediately, got %+v", resp)
	}
}

func TestWaitUnknownConditionFails(t *testing.T) {
	o := New(fixedClock(0), 5000, 30*time.Second, 8097)
	resp := o.cmdWait(map[string]interface{}{"condition": "bogus"})
	if resp.OK {
		t.Fatalf("expected failure for unknown wait condition")
	}
}

func TestStateTransitionsReflectInStatus(t *testing.T) {
	o := New(fixedClock(0), 5000, 30*time.Second, 8097)
	if o.State() != StateRunning {
		t.Fatalf("initial state = %v, want StateRunning", o.State())
	}

	o.BeginDraining()
	resp := o.cmdStatus()
	status := resp.Data.(statusResponse)
	require.Equal(t, "draining", status.State)
	require.True(t, status.DaemonRunning)

	o.MarkStopped()
	resp = o.cmdStatus()
	status = resp.Data.(statusResponse)
	require.Equal(t, "stopped", status.State)
	require.False(t, status.DaemonRunning)
}

func TestGetComponentCallsBridgeInspectAndEchoesLabel(t *testing.T) {
	o := New(fixedClock(0), 5000, 30*time.Second, 8097)
	batch := decodeBatch(t, []int64{
		1, 100, 0,
		1 /*opAdd*/, 100, 11, 1, 1, 1, 1,
	})
	o.ApplyBatch(batch)

	stub := &stubBridge{inspectResult: &bridge.InspectedElement{ID: 100, DisplayName: "Root"}}
	o.SetBridge(stub)

	// @cN labels come from the most recent get-tree.
	o.cmdGetTree(map[string]interface{}{})

	resp := o.cmdGetComponent(map[string]interface{}{"id": "@c1"})
	require.True(t, resp.OK)
	require.Equal(t, "@c1", resp.Label)
	require.Equal(t, []uint32{100}, stub.inspectCalls)
	el, ok := resp.Data.(*bridge.InspectedElement)
	require.True(t, ok)
	require.Equal(t, uint32(100), el.ID)
}

func TestGetComponentWithoutBridgeIsNotReady(t *testing.T) {
	o := New(fixedClock(0), 5000, 30*time.Second, 8097)
	batch := decodeBatch(t, []int64{
		1, 100, 0,
		1 /*opAdd*/, 100, 11, 1, 1, 1, 1,
	})
	o.ApplyBatch(batch)

	resp := o.cmdGetComponent(map[string]interface{}{"id": float64(100)})
	if resp.OK {
		t.Fatalf("expected failure with no bridge wired, got %+v", resp)
	}
}

func TestProfileStartAndStopCallBridge(t *testing.T) {
	o := New(fixedClock(0), 5000, 30*time.Second, 8097)
	stub := &stubBridge{}
	o.SetBridge(stub)

	resp := o.cmdProfileStart(map[string]interface{}{"name": "s1"})
	require.True(t, resp.OK)
	require.Equal(t, 1, stub.startCalls)

	resp = o.cmdProfileStop()
	require.True(t, resp.OK)
	require.Equal(t, 1, stub.stopCalls)
}

func TestProfileStopWithNoSessionNeverCallsBridge(t *testing.T) {
	o := New(fixedClock(0), 5000, 30*time.Second, 8097)
	stub := &stubBridge{}
	o.SetBridge(stub)

	resp := o.cmdProfileStop()
	if resp.OK {
		t.Fatalf("expected failure stopping with no active session, got %+v", resp)
	}
	require.Equal(t, 0, stub.stopCalls)
}

func TestWaitTimeoutReportsOKWithTimeoutFlag(t *testing.T) {
	o := New(fixedClock(0), 5000, 30*time.Second, 8097)

	resp := o.cmdWait(map[string]interface{}{"condition": "connected", "timeout": float64(10)})
	require.True(t, resp.OK)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "connected", data["condition"])
	require.Equal(t, false, data["met"])
	require.Equal(t, true, data["timeout"])
}
