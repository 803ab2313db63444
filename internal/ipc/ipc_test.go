package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func dialAndServe(t *testing.T, handler Handler) (net.Conn, *Server) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "daemon.sock")
	srv, err := Serve(socketPath, handler)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return conn, srv
}

func sendLine(t *testing.T, conn net.Conn, req map[string]interface{}) Response {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestPingRoundTrip(t *testing.T) {
	handler := func(ctx context.Context, req map[string]interface{}) Response {
		if req["type"] != "ping" {
			return Response{OK: false, Error: "Unknown command: " + req["type"].(string)}
		}
		return Response{OK: true, Data: "pong"}
	}
	conn, srv := dialAndServe(t, handler)
	defer conn.Close()
	defer srv.Close(time.Second)

	resp := sendLine(t, conn, map[string]interface{}{"type": "ping"})
	require.Equal(t, Response{OK: true, Data: "pong"}, resp)
}

func TestUnknownCommandType(t *testing.T) {
	handler := func(ctx context.Context, req map[string]interface{}) Response {
		return Response{OK: false, Error: "Unknown command: " + req["type"].(string)}
	}
	conn, srv := dialAndServe(t, handler)
	defer conn.Close()
	defer srv.Close(time.Second)

	resp := sendLine(t, conn, map[string]interface{}{"type": "bogus"})
	if resp.OK || resp.Error != "Unknown command: bogus" {
		t.Fatalf("resp = %+v, want unknown command error", resp)
	}
}

func TestInvalidJSONDoesNotCloseConnection(t *testing.T) {
	called := 0
	handler := func(ctx context.Context, req map[string]interface{}) Response {
		called++
		return Response{OK: true}
	}
	conn, srv := dialAndServe(t, handler)
	defer conn.Close()
	defer srv.Close(time.Second)

	conn.Write([]byte("{not json\n"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var resp Response
	json.Unmarshal(line, &resp)
	if resp.OK || resp.Error != "Invalid JSON" {
		t.Fatalf("resp = %+v, want Invalid JSON error", resp)
	}

	// connection should still be usable afterwards
	resp2 := sendLine(t, conn, map[string]interface{}{"type": "ping"})
	if !resp2.OK {
		t.Fatalf("connection should survive a malformed line, got %+v", resp2)
	}
	if called != 1 {
		t.Fatalf("handler called %d times, want 1 (malformed line shouldn't invoke it)", called)
	}
}

func TestCloseStopsAcceptingConnections(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "daemon.sock")
	srv, err := Serve(socketPath, func(ctx context.Context, req map[string]interface{}) Response {
		return Response{OK: true}
	})
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := srv.Close(time.Second); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := net.Dial("unix", socketPath); err == nil {
		t.Fatalf("expected dialing a closed socket to fail")
	}
}
