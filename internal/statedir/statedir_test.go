package statedir

import (
	"os"
	"testing"

	"github.com/teranos/agent-react-devtools/internal/wireerr"
)

func TestWriteReadDelete(t *testing.T) {
	dir := t.TempDir()
	if err := Ensure(dir); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	info := Info{PID: os.Getpid(), Port: 8097, SocketPath: SocketPath(dir), StartedAt: 1234}
	if err := Write(dir, info); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got == nil || got.Port != 8097 || got.PID != os.Getpid() {
		t.Fatalf("Read = %+v, want matching info", got)
	}

	if err := Delete(dir); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = Read(dir)
	if err != nil {
		t.Fatalf("Read after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestReadMissingReturnsNilNoError(t *testing.T) {
	dir := t.TempDir()
	info, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info != nil {
		t.Fatalf("info = %+v, want nil", info)
	}
}

func TestRecoverStaleWithNoFileIsNoop(t *testing.T) {
	dir := t.TempDir()
	if err := RecoverStale(dir); err != nil {
		t.Fatalf("RecoverStale: %v", err)
	}
}

func TestRecoverStaleWithLivePidReturnsAlreadyRunning(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, Info{PID: os.Getpid(), Port: 8097}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	err := RecoverStale(dir)
	if err == nil {
		t.Fatalf("expected ErrAlreadyRunning for a live pid")
	}
	if !isAlreadyRunning(err) {
		t.Fatalf("err = %v, want wrapped ErrAlreadyRunning", err)
	}
}

func isAlreadyRunning(err error) bool {
	return err != nil && wireerr.Is(err, wireerr.ErrAlreadyRunning)
}

func TestRecoverStaleWithDeadPidCleansUp(t *testing.T) {
	dir := t.TempDir()
	// PID 1 is init/a real process on any unix box this test runs on, so
	// use a pid unlikely to be alive instead: the max plausible pid plus a
	// large offset rarely exists.
	deadPID := 1 << 30
	if err := Write(dir, Info{PID: deadPID, Port: 8097}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := RecoverStale(dir); err != nil {
		t.Fatalf("RecoverStale with dead pid should clean up, got: %v", err)
	}
	info, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info != nil {
		t.Fatalf("daemon.json should have been deleted, got %+v", info)
	}
}
