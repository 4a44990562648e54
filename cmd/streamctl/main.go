// Streamctl is the command line client for the streamd daemon. It creates
// and feeds sessions, streams their output, and queries terminated-session
// history over the daemon's HTTP API.
//
// Usage:
//
//	streamctl [--api-url URL] [--token TOKEN] [--json] <command> [flags]
//
// Commands:
//
//	workers   List registered workers
//	session   Manage sessions (create, list, show, push, watch, close)
//	history   Query terminated sessions
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/freezer333/streaming-worker/internal/cli"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	var apiURL string
	var token string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "streamctl",
		Short:         "Client for the streamd session daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "Daemon API URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("STREAMD_TOKEN"), "Bearer token (defaults to $STREAMD_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, token) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewWorkersCmd(clientFn, outputFn),
		cli.NewSessionCmd(clientFn, outputFn),
		cli.NewHistoryCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
