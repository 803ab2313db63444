package commands

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/agent-react-devtools/internal/config"
	"github.com/teranos/agent-react-devtools/internal/statedir"
)

// StopCmd asks a running daemon to shut down by sending SIGTERM to the
// pid recorded in daemon.json, then waits for daemon.json to disappear
// (the daemon deletes it as the last step of a clean shutdown).
var StopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running devtools-daemon",
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	stateDirFlag, _ := cmd.Flags().GetString("state-dir")
	stateDir := stateDirFlag
	if stateDir == "" {
		stateDir = config.DefaultStateDir()
	}

	info, err := statedir.Read(stateDir)
	if err != nil {
		return fmt.Errorf("reading daemon state: %w", err)
	}
	if info == nil || !statedir.ProcessAlive(info.PID) {
		pterm.Warning.Println("no devtools-daemon is running")
		return nil
	}

	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return fmt.Errorf("finding daemon process %d: %w", info.PID, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signaling daemon process %d: %w", info.PID, err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		remaining, err := statedir.Read(stateDir)
		if err == nil && remaining == nil {
			pterm.Success.Println("devtools-daemon stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	pterm.Warning.Println("daemon did not confirm shutdown within 10s")
	return nil
}
