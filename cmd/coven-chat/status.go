// ABOUTME: Status command probing the backend endpoints and reporting token state
// ABOUTME: The root and context-listing probes run concurrently

package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/2389/coven-chat/internal/auth"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(oneShot)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			configPath := a.configPath
			if configPath == "" {
				configPath = "(defaults)"
			}
			fmt.Fprintf(out, "Config:    %s\n", configPath)
			fmt.Fprintf(out, "Backend:   %s\n", a.client.BaseURL())
			if a.journal != nil {
				fmt.Fprintf(out, "Journal:   %s\n", a.cfg.Journal.Path)
			} else {
				fmt.Fprintln(out, "Journal:   disabled")
			}
			printToken(out, a.token)

			var (
				greeting string
				count    int
				g        errgroup.Group
			)
			start := time.Now()
			g.Go(func() error {
				msg, err := a.client.Ping(ctx)
				if err != nil {
					return fmt.Errorf("probing /: %w", err)
				}
				greeting = msg
				return nil
			})
			g.Go(func() error {
				contexts, err := a.client.ListContexts(ctx)
				if err != nil {
					return fmt.Errorf("probing /get-contexts: %w", err)
				}
				count = len(contexts)
				return nil
			})
			if err := g.Wait(); err != nil {
				red := color.New(color.FgRed)
				red.Fprint(out, "✗ ")
				fmt.Fprintln(out, "unreachable")
				return err
			}

			green := color.New(color.FgGreen)
			green.Fprint(out, "✓ ")
			fmt.Fprintf(out, "reachable in %s", time.Since(start).Round(time.Millisecond))
			if greeting != "" {
				fmt.Fprintf(out, " (%s)", greeting)
			}
			fmt.Fprintf(out, ", %d conversations\n", count)
			return nil
		},
	}
}

func printToken(out io.Writer, token string) {
	if token == "" {
		fmt.Fprintln(out, "Token:     none")
		return
	}

	info, err := auth.Inspect(token)
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		yellow := color.New(color.FgYellow)
		yellow.Fprintf(out, "Token:     expired at %s\n", info.ExpiresAt.Local().Format(time.RFC1123))
	case err != nil:
		fmt.Fprintln(out, "Token:     set (not a JWT)")
	case info.ExpiresAt.IsZero():
		fmt.Fprintf(out, "Token:     %s, no expiry\n", subjectOr(info.Subject))
	default:
		fmt.Fprintf(out, "Token:     %s, valid until %s\n", subjectOr(info.Subject), info.ExpiresAt.Local().Format(time.RFC1123))
	}
}

func subjectOr(subject string) string {
	if subject == "" {
		return "anonymous"
	}
	return subject
}
