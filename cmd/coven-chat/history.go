// ABOUTME: Journal commands: list recorded sessions, print one, export one as HTML
// ABOUTME: Read the local SQLite journal without contacting the backend

package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/render"
	"github.com/2389/coven-chat/internal/store"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "List journaled sessions or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(journalRequired)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				messages, err := a.journal.GetMessages(ctx, args[0])
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("session %s not found", args[0])
				}
				if err != nil {
					return fmt.Errorf("reading session: %w", err)
				}
				fmt.Fprint(out, render.Text(messages))
				return nil
			}

			sessions, err := a.journal.ListSessions(ctx, limit)
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded yet")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tMESSAGES\tCONTEXT\tTITLE")
			for _, s := range sessions {
				contextID := s.ContextID
				if contextID == "" {
					contextID = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					s.ID, s.StartedAt.Local().Format("2006-01-02 15:04"), s.MessageCount, contextID, s.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to list")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <session-id> <file.html>",
		Short: "Export a journaled session as a standalone HTML page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(journalRequired)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			sessionID, path := args[0], args[1]

			session, err := a.journal.GetSession(ctx, sessionID)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("session %s not found", sessionID)
			}
			if err != nil {
				return fmt.Errorf("reading session: %w", err)
			}
			messages, err := a.journal.GetMessages(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("reading messages: %w", err)
			}

			title := session.Title
			if title == "" {
				title = "Conversation " + session.ID
			}
			page, err := render.HTML(title, messages)
			if err != nil {
				return fmt.Errorf("rendering export: %w", err)
			}
			if err := os.WriteFile(path, page, 0644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d messages to %s\n", len(messages), path)
			return nil
		},
	}
}
