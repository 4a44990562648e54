package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the terminated-session history commands. The bare
// "history" command lists records; "history show ID" fetches one.
func NewHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var worker, outcome, since string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query terminated sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			records, total, err := client.ListHistory(HistoryOpts{
				Worker:  worker,
				Outcome: outcome,
				Since:   since,
				Limit:   limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKER", "OUTCOME", "IN", "OUT", "TERMINATED"}
			rows := make([][]string, len(records))
			for i, rec := range records {
				rows[i] = []string{
					rec.ID,
					rec.Worker,
					rec.Outcome,
					strconv.FormatInt(rec.MessagesIn, 10),
					strconv.FormatInt(rec.MessagesOut, 10),
					rec.TerminatedAt,
				}
			}

			out.Print(headers, rows, records)
			if !out.JSONMode() && total > len(records) {
				out.Success(fmt.Sprintf("Showing %d of %d records", len(records), total))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&worker, "worker", "", "Filter by worker name")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Filter by outcome (completed, failed)")
	cmd.Flags().StringVar(&since, "since", "", "Only sessions terminated at or after this RFC3339 time")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	cmd.AddCommand(newHistoryShowCmd(clientFn, outputFn))

	return cmd
}

func newHistoryShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one terminated session's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			rec, err := client.GetHistory(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKER", "OUTCOME", "ERROR", "IN", "OUT", "STARTED", "TERMINATED"}
			row := []string{
				rec.ID,
				rec.Worker,
				rec.Outcome,
				rec.Error,
				strconv.FormatInt(rec.MessagesIn, 10),
				strconv.FormatInt(rec.MessagesOut, 10),
				rec.StartedAt,
				rec.TerminatedAt,
			}

			out.Print(headers, [][]string{row}, rec)
			return nil
		},
	}
}
