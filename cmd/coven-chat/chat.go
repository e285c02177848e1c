// ABOUTME: Interactive chat command wiring the controller and directory into the TUI
// ABOUTME: Optionally switches to a context given with --context once the screen starts

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/directory"
	"github.com/2389/coven-chat/internal/tui"
)

const screenTitle = "Coven Chat"

func newChatCmd(opts *rootOptions) *cobra.Command {
	var contextID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat screen",
		Long: `Open the interactive chat screen.

Keys:
  enter    - Send the message / open the selected conversation
  tab      - Switch between the input box and the sidebar
  ctrl+r   - Reset the conversation
  ctrl+n   - Start a new session
  ctrl+l   - Reload the conversation list
  ctrl+c   - Quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts, contextID)
		},
	}
	cmd.Flags().StringVar(&contextID, "context", "", "Load this context on start")
	return cmd
}

func runChat(cmd *cobra.Command, opts *rootOptions, contextID string) error {
	a, err := opts.open(interactive)
	if err != nil {
		return err
	}
	defer a.Close()

	ctrl := a.controller()
	defer ctrl.Close()

	dir := directory.New(a.client, a.channel, a.logger)
	defer dir.Close()

	dir.Refresh()
	if id := strings.TrimSpace(contextID); id != "" {
		dir.Select(id)
	}

	return tui.Run(cmd.Context(), a.channel, a.center, ctrl, dir, screenTitle)
}
