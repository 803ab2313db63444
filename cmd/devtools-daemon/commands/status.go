package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/agent-react-devtools/internal/config"
	"github.com/teranos/agent-react-devtools/internal/ipc"
	"github.com/teranos/agent-react-devtools/internal/statedir"
)

// StatusCmd reports whether a daemon is running and summarizes what it
// currently sees.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a devtools-daemon is running",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	client, err := ipc.Dial(info.SocketPath, 2*time.Second)
	if err != nil {
		pterm.Warning.Printf("daemon.json names pid %d but the socket did not answer: %v\n", info.PID, err)
		return nil
	}
	defer client.Close()

	resp, err := client.Call(map[string]interface{}{"type": "status"})
	if err != nil {
		return fmt.Errorf("querying daemon status: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("daemon returned an error: %s", resp.Error)
	}

	pretty, _ := json.MarshalIndent(resp.Data, "", "  ")
	pterm.Success.Println("devtools-daemon is running")
	fmt.Println(string(pretty))
	return nil
}
