// ABOUTME: One-shot send, load, and reset commands driven through a conversation controller
// ABOUTME: Print the resulting transcript or acknowledgement and fail on error notifications

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/render"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var contextID string

	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(oneShot)
			if err != nil {
				return err
			}
			defer a.Close()

			ctrl := a.controller()
			defer ctrl.Close()

			if id := strings.TrimSpace(contextID); id != "" {
				ctrl.LoadContext(id)
				ctrl.Wait()
				if _, err := a.outcome.result(); err != nil {
					return err
				}
				a.outcome.clear()
			}

			if !ctrl.SendMessage(strings.Join(args, " ")) {
				return errors.New("message is empty")
			}
			ctrl.Wait()

			fmt.Fprint(cmd.OutOrStdout(), render.Text(ctrl.Transcript()))
			_, err = a.outcome.result()
			return err
		},
	}
	cmd.Flags().StringVar(&contextID, "context", "", "Load this context before sending")
	return cmd
}

func newLoadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <context-id>",
		Short: "Load a stored context and print its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(oneShot)
			if err != nil {
				return err
			}
			defer a.Close()

			ctrl := a.controller()
			defer ctrl.Close()

			if !ctrl.LoadContext(args[0]) {
				return errors.New("context id is empty")
			}
			ctrl.Wait()
			if _, err := a.outcome.result(); err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), render.Text(ctrl.Transcript()))
			return nil
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the backend workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(oneShot)
			if err != nil {
				return err
			}
			defer a.Close()

			ctrl := a.controller()
			defer ctrl.Close()

			ctrl.Reset()
			ctrl.Wait()
			n, err := a.outcome.result()
			if err != nil {
				return err
			}
			if n != nil {
				green := color.New(color.FgGreen)
				green.Fprint(cmd.OutOrStdout(), "✓ ")
				fmt.Fprintln(cmd.OutOrStdout(), n.Description)
			}
			return nil
		},
	}
}
