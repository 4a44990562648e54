package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// NewWorkersCmd creates the command listing registered workers.
func NewWorkersCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "List registered workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workers, err := client.ListWorkers()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "DEFAULTS"}
			rows := make([][]string, len(workers))
			for i, w := range workers {
				rows[i] = []string{w.Name, formatOptions(w.Defaults)}
			}

			out.Print(headers, rows, workers)
			return nil
		},
	}
}

// formatOptions renders an options map as "k=v" pairs sorted by key.
func formatOptions(opts map[string]string) string {
	if len(opts) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + opts[k]
	}
	return strings.Join(pairs, " ")
}
