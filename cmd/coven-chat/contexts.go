// ABOUTME: Lists the conversations known to the backend
// ABOUTME: Refreshes a directory once and prints it as a table

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/directory"
)

func newContextsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contexts",
		Short: "List stored conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(oneShot)
			if err != nil {
				return err
			}
			defer a.Close()

			dir := directory.New(a.client, a.channel, a.logger)
			defer dir.Close()

			dir.Refresh()
			dir.Wait()

			listing := dir.Listing()
			if listing.Err != nil {
				return fmt.Errorf("listing contexts: %w", listing.Err)
			}

			out := cmd.OutOrStdout()
			if len(listing.Contexts) == 0 {
				fmt.Fprintln(out, "No conversations yet")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE")
			for _, c := range listing.Contexts {
				fmt.Fprintf(w, "%s\t%s\n", c.ID, c.Title)
			}
			return w.Flush()
		},
	}
}
