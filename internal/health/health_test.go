package health

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectedIncrementsAndSticksEverConnected(t *testing.T) {
	tr := New(5000)
	tr.Connected(1000)
	if tr.LiveConnections() != 1 {
		t.Fatalf("liveConnections = %d, want 1", tr.LiveConnections())
	}
	if !tr.HasEverConnected() {
		t.Fatalf("hasEverConnected should be true")
	}
	tr.Disconnected(2000)
	if tr.HasEverConnected() != true {
		t.Fatalf("hasEverConnected should stay true after disconnect")
	}
}

func TestReconnectWithinWindowCoalesces(t *testing.T) {
	tr := New(5000)
	tr.Connected(1000)
	tr.Disconnected(2000)
	tr.Connected(4000) // within 5000ms window of the disconnect

	events := tr.RecentEvents()
	require.Equal(t, []Event{
		{Kind: Connected, Timestamp: 1000},
		{Kind: Reconnected, Timestamp: 4000},
	}, events)
}

func TestReconnectOutsideWindowIsFreshConnect(t *testing.T) {
	tr := New(5000)
	tr.Connected(1000)
	tr.Disconnected(2000)
	tr.Connected(10000) // well past the 5000ms window

	events := tr.RecentEvents()
	if len(events) != 3 {
		t.Fatalf("events = %+v, want 3 entries", events)
	}
	if events[2].Kind != Connected {
		t.Fatalf("last event kind = %v, want Connected", events[2].Kind)
	}
}

func TestRingCapsAtEight(t *testing.T) {
	tr := New(0) // window 0: every reconnect counts as fresh
	for i := int64(0); i < 10; i++ {
		tr.Connected(i * 100)
		tr.Disconnected(i*100 + 50)
	}
	if len(tr.RecentEvents()) != 8 {
		t.Fatalf("ring size = %d, want 8", len(tr.RecentEvents()))
	}
}

func TestNewWithCapacityHonorsCustomRingSize(t *testing.T) {
	tr := NewWithCapacity(0, 3)
	for i := int64(0); i < 10; i++ {
		tr.Connected(i * 100)
		tr.Disconnected(i*100 + 50)
	}
	if len(tr.RecentEvents()) != 3 {
		t.Fatalf("ring size = %d, want 3", len(tr.RecentEvents()))
	}
}

func TestLastDisconnectAt(t *testing.T) {
	tr := New(5000)
	if tr.LastDisconnectAt() != nil {
		t.Fatalf("expected nil before any disconnect")
	}
	tr.Connected(1000)
	tr.Disconnected(2000)
	if tr.LastDisconnectAt() == nil || *tr.LastDisconnectAt() != 2000 {
		t.Fatalf("LastDisconnectAt = %v, want 2000", tr.LastDisconnectAt())
	}
}
