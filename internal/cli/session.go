package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewSessionCmd creates the group of session management commands.
func NewSessionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage sessions",
	}

	cmd.AddCommand(
		newSessionListCmd(clientFn, outputFn),
		newSessionCreateCmd(clientFn, outputFn),
		newSessionShowCmd(clientFn, outputFn),
		newSessionPushCmd(clientFn, outputFn),
		newSessionWatchCmd(clientFn, outputFn),
		newSessionCloseCmd(clientFn, outputFn),
	)

	return cmd
}

var sessionHeaders = []string{"ID", "WORKER", "STATE", "IN", "OUT", "PENDING", "STARTED"}

func sessionRow(s *Session) []string {
	return []string{
		s.ID,
		s.Worker,
		s.State,
		strconv.FormatInt(s.MessagesIn, 10),
		strconv.FormatInt(s.MessagesOut, 10),
		strconv.Itoa(s.Pending),
		s.StartedAt,
	}
}

func newSessionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sessions, err := client.ListSessions()
			if err != nil {
				return err
			}

			rows := make([][]string, len(sessions))
			for i := range sessions {
				rows[i] = sessionRow(&sessions[i])
			}

			out.Print(sessionHeaders, rows, sessions)
			return nil
		},
	}
}

func newSessionCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var options []string

	cmd := &cobra.Command{
		Use:   "create WORKER",
		Short: "Create a session for a worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			opts, err := parseOptions(options)
			if err != nil {
				return err
			}

			session, err := client.CreateSession(args[0], opts)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Session created: %s", session.ID))
			out.Print(sessionHeaders, [][]string{sessionRow(session)}, session)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&options, "option", "o", nil, "Worker option as KEY=VALUE (repeatable)")

	return cmd
}

// parseOptions converts KEY=VALUE pairs to an options map.
func parseOptions(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	opts := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid option format %q, expected KEY=VALUE", kv)
		}
		opts[key] = value
	}
	return opts, nil
}

func newSessionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show session details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			session, err := client.GetSession(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKER", "STATE", "OUTCOME", "ERROR", "IN", "OUT", "STARTED", "TERMINATED"}
			row := []string{
				session.ID,
				session.Worker,
				session.State,
				session.Outcome,
				session.Error,
				strconv.FormatInt(session.MessagesIn, 10),
				strconv.FormatInt(session.MessagesOut, 10),
				session.StartedAt,
				session.TerminatedAt,
			}

			out.Print(headers, [][]string{row}, session)
			return nil
		},
	}
}

func newSessionPushCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "push ID NAME DATA",
		Short: "Push a message to a session's worker",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.PushMessage(args[0], args[1], args[2]); err != nil {
				return err
			}

			out.Success("Message queued")
			return nil
		},
	}
}

func newSessionWatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "watch ID",
		Short: "Stream a session's messages until it terminates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			// A failed session surfaces as the command's error, so scripts
			// get a non-zero exit for "error" terminals.
			err := client.Watch(cmd.Context(), args[0], func(m WatchMessage) {
				if out.JSONMode() {
					out.Line(m.Raw)
					return
				}
				out.Line(m.Name + "\t" + m.Data)
			})
			if err != nil {
				return err
			}

			out.Success("Session completed")
			return nil
		},
	}
}

func newSessionCloseCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "close ID",
		Short: "Signal end-of-input to a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.CloseSession(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Session closing: %s", args[0]))
			return nil
		},
	}
}
