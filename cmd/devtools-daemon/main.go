package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/agent-react-devtools/cmd/devtools-daemon/commands"
)

var rootCmd = &cobra.Command{
	Use:   "devtools-daemon",
	Short: "Local bridge between React DevTools runtimes and client programs",
	Long: `devtools-daemon is a long-lived local process that speaks the React
DevTools "Wall" protocol to one or more running React applications over a
WebSocket, maintains a component tree and profiling history for them, and
answers queries from local client programs over a Unix domain socket.

Available commands:
  daemon  - Run the bridge in the foreground
  status  - Report whether a daemon is running and what it sees
  stop    - Ask a running daemon to shut down cleanly`,
}

func init() {
	rootCmd.PersistentFlags().Int("port", 0, "WebSocket port (0 uses the configured default)")
	rootCmd.PersistentFlags().String("state-dir", "", "Directory for daemon.json/daemon.sock (defaults to ~/.agent-react-devtools)")

	rootCmd.AddCommand(commands.DaemonCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.StopCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
