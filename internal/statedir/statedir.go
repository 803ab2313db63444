// Package statedir manages the daemon's on-disk state directory (§6.3):
// the daemon.json descriptor and the daemon.sock IPC socket, plus the
// stale-instance recovery check the orchestrator runs at startup (§4.8,
// §9 "Process-wide state").
package statedir

import (
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"

	"github.com/teranos/agent-react-devtools/internal/wireerr"
)

const (
	daemonInfoFile = "daemon.json"
	socketFile     = "daemon.sock"
)

// Info is the daemon.json descriptor written at startup and deleted at
// clean shutdown.
type Info struct {
	PID        int    `json:"pid"`
	Port       int    `json:"port"`
	SocketPath string `json:"socketPath"`
	StartedAt  int64  `json:"startedAt"`
}

// InfoPath returns the daemon.json path under stateDir.
func InfoPath(stateDir string) string {
	return filepath.Join(stateDir, daemonInfoFile)
}

// SocketPath returns the daemon.sock path under stateDir.
func SocketPath(stateDir string) string {
	return filepath.Join(stateDir, socketFile)
}

// Ensure creates stateDir (and parents) if it doesn't already exist.
func Ensure(stateDir string) error {
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return wireerr.Wrapf(err, "creating state directory %s", stateDir)
	}
	return nil
}

// Write serializes info to daemon.json.
func Write(stateDir string, info Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return wireerr.Wrap(err, "marshaling daemon info")
	}
	if err := os.WriteFile(InfoPath(stateDir), data, 0o600); err != nil {
		return wireerr.Wrap(err, "writing daemon.json")
	}
	return nil
}

// Read loads daemon.json, if present.
func Read(stateDir string) (*Info, error) {
	data, err := os.ReadFile(InfoPath(stateDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wireerr.Wrap(err, "reading daemon.json")
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, wireerr.Wrap(err, "parsing daemon.json")
	}
	return &info, nil
}

// Delete removes daemon.json and daemon.sock, ignoring either not
// existing.
func Delete(stateDir string) error {
	if err := os.Remove(InfoPath(stateDir)); err != nil && !os.IsNotExist(err) {
		return wireerr.Wrap(err, "removing daemon.json")
	}
	if err := os.Remove(SocketPath(stateDir)); err != nil && !os.IsNotExist(err) {
		return wireerr.Wrap(err, "removing daemon.sock")
	}
	return nil
}

// ProcessAlive reports whether pid names a live process. On Unix this is
// signal 0: the kernel still validates existence/permission without
// delivering anything.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// RecoverStale implements §4.8's startup check: if daemon.json exists and
// names a live pid, returns wireerr.ErrAlreadyRunning (the caller should
// exit). If it exists with a dead pid, the stale daemon.json and socket
// are removed and nil is returned. If no daemon.json exists, nil is
// returned immediately.
func RecoverStale(stateDir string) error {
	info, err := Read(stateDir)
	if err != nil {
		return err
	}
	if info == nil {
		return nil
	}
	if ProcessAlive(info.PID) {
		return wireerr.Wrapf(wireerr.ErrAlreadyRunning, "daemon.json names live pid %d", info.PID)
	}
	return Delete(stateDir)
}
