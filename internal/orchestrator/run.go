package orchestrator

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teranos/agent-react-devtools/internal/ipc"
)

// Run supervises the bridge's WebSocket listener, the IPC listener, and
// OS signal handling as one unit via errgroup: whichever returns first —
// the HTTP server failing, or a shutdown signal arriving — drives the
// other two down, and Run returns the first non-nil error (nil on a
// clean signal-triggered shutdown).
func (o *Orchestrator) Run(ctx context.Context, httpServer *http.Server, wsListener net.Listener, ipcServer *ipc.Server, sigChan <-chan os.Signal, drainTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.Serve(wsListener); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			ipcServer.Close(drainTimeout)
			return nil
		case <-sigChan:
		}

		o.BeginDraining()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		ipcServer.Close(drainTimeout)
		o.MarkStopped()
		return nil
	})

	return g.Wait()
}
