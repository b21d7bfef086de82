/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/serialmagic/internal/session"
	"github.com/allbin/serialmagic/internal/settings"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <device-id> [port]",
	Short: "Write the command sequence to a device port once",
	Long: `Connect to a port, write the command sequence and disconnect.

Each command is written followed by a newline. The sequence comes from the
commands key of the config file and can be replaced with --command flags.

Example usage:
  serialmagic send 1004
  serialmagic send 1004 1 --command AT --command ATI`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID, port, err := parseTarget(args)
		if err != nil {
			return err
		}
		wait, _ := cmd.Flags().GetDuration("permission-wait")

		rt, err := newRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctrl := rt.controller(session.NewLogStatus(rt.logger))
		defer ctrl.Close()

		infoStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)
		successStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")).
			Bold(true)

		fmt.Printf("%s Connecting to %d:%d...\n", infoStyle.Render("⚡"), deviceID, port)
		if err := connectAndWait(cmd.Context(), ctrl, deviceID, port, wait); err != nil {
			return err
		}
		fmt.Printf("%s Connected\n", successStyle.Render("✓"))

		commands := ctrl.Settings().Commands
		fmt.Printf("%s Sending %d commands...\n", infoStyle.Render("📤"), len(commands))
		if err := rt.sender(ctrl).Send(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s Sent %d commands\n", successStyle.Render("✓"), len(commands))

		ctrl.Disconnect()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringArrayP("command", "c", nil, "Command to write, repeatable (default: the configured sequence)")
	sendCmd.Flags().Duration("permission-wait", time.Minute, "How long to wait for the permission helper")
	cobra.CheckErr(viper.BindPFlag(settings.KeyCommands, sendCmd.Flags().Lookup("command")))
}

// connectAndWait connects and, if a permission request was started, handles
// controller events until it is answered
func connectAndWait(ctx context.Context, ctrl *session.Controller, deviceID, port int, wait time.Duration) error {
	err := ctrl.Connect(ctx, deviceID, port)
	if !errors.Is(err, session.ErrPermissionPending) {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	for ctrl.State() == session.PermissionRequested {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", session.ErrPermissionDenied, ctx.Err())
		case ev := <-ctrl.Events():
			if err := ctrl.Handle(ctx, ev); err != nil {
				return err
			}
		}
	}
	if ctrl.State() != session.Connected {
		return session.ErrNotConnected
	}
	return nil
}
