package commands

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/agent-react-devtools/internal/bridge"
	"github.com/teranos/agent-react-devtools/internal/config"
	"github.com/teranos/agent-react-devtools/internal/devtoolslog"
	"github.com/teranos/agent-react-devtools/internal/ipc"
	"github.com/teranos/agent-react-devtools/internal/orchestrator"
	"github.com/teranos/agent-react-devtools/internal/statedir"
	"github.com/teranos/agent-react-devtools/internal/wireerr"
)

// DaemonCmd runs the bridge and IPC server in the foreground until a
// shutdown signal (SIGINT or SIGTERM) arrives; `devtools-daemon stop`
// sends that SIGTERM.
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the DevTools bridge daemon in the foreground",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	portFlag, _ := cmd.Flags().GetInt("port")
	stateDirFlag, _ := cmd.Flags().GetString("state-dir")

	cfg, err := config.Load(portFlag, stateDirFlag)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := devtoolslog.Initialize(cfg.JSONLogs); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer devtoolslog.Sync()

	if err := statedir.Ensure(cfg.StateDir); err != nil {
		return fmt.Errorf("preparing state directory: %w", err)
	}
	if err := statedir.RecoverStale(cfg.StateDir); err != nil {
		if wireerr.Is(err, wireerr.ErrAlreadyRunning) {
			pterm.Error.Println(err.Error())
			os.Exit(1)
		}
		return fmt.Errorf("checking for a running daemon: %w", err)
	}

	clock := func() int64 { return time.Now().UnixMilli() }
	orch := orchestrator.NewWithHealthRingCapacity(
		clock,
		int64(cfg.ReconnectWindow/time.Millisecond),
		cfg.HealthRingCapacity,
		cfg.DefaultWaitTimeout,
		cfg.Port,
	)

	br := bridge.New(orch, cfg.InspectTimeout, cfg.ProfileStopGrace)
	orch.SetBridge(br)

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.Port))
	if err != nil {
		return wireerr.Wrapf(wireerr.ErrBindFailure, "binding websocket port %d: %v", cfg.Port, err)
	}
	httpServer := &http.Server{Handler: br}

	socketPath := statedir.SocketPath(cfg.StateDir)
	ipcServer, err := ipc.Serve(socketPath, orch.Handler())
	if err != nil {
		listener.Close()
		return fmt.Errorf("starting ipc server: %w", err)
	}

	info := statedir.Info{
		PID:        os.Getpid(),
		Port:       cfg.Port,
		SocketPath: socketPath,
		StartedAt:  clock(),
	}
	if err := statedir.Write(cfg.StateDir, info); err != nil {
		ipcServer.Close(0)
		listener.Close()
		return fmt.Errorf("writing daemon.json: %w", err)
	}

	pterm.Success.Printf("devtools-daemon listening on ws://127.0.0.1:%d, ipc socket %s\n", cfg.Port, socketPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	runErr := orch.Run(context.Background(), httpServer, listener, ipcServer, sigChan, cfg.ShutdownDrainTimeout)
	statedir.Delete(cfg.StateDir)
	if runErr != nil {
		return fmt.Errorf("websocket server failed: %w", runErr)
	}

	pterm.Success.Println("devtools-daemon stopped cleanly")
	return nil
}
