/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/allbin/serialmagic/internal/session"
	"github.com/allbin/serialmagic/internal/settings"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <device-id> [port]",
	Short: "Connect to a device port and log what it sends",
	Long: `Connect to a port of a USB serial device without the interactive UI.

After connecting the configured command sequence is written and, with
--stream, everything the device sends is logged as a hex dump until
interrupted. If permission to the device is missing the configured
permission helper is started and the connection is made once it grants
access.

Sending SIGHUP writes the command sequence again.

Example usage:
  serialmagic connect 1004
  serialmagic connect 1004 1 --stream --baud 115200
  kill -HUP $(pidof serialmagic)`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID, port, err := parseTarget(args)
		if err != nil {
			return err
		}

		rt, err := newRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctrl := rt.controller(session.NewLogStatus(rt.logger))
		defer ctrl.Close()

		return runConnect(ctx, ctrl, rt.sender(ctrl), rt.logger, deviceID, port)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().Duration("write-timeout", 2*time.Second, "Timeout for the command sequence")
	cobra.CheckErr(viper.BindPFlag(settings.KeyWriteTimeout, connectCmd.Flags().Lookup("write-timeout")))
}

func parseTarget(args []string) (deviceID, port int, err error) {
	deviceID, err = strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid device id %q", args[0])
	}
	if len(args) > 1 {
		port, err = strconv.Atoi(args[1])
		if err != nil || port < 0 {
			return 0, 0, fmt.Errorf("invalid port %q", args[1])
		}
	}
	return deviceID, port, nil
}

// runConnect owns ctrl until ctx is cancelled or the connection ends. The
// command sequence is written after connecting and again on SIGHUP.
func runConnect(ctx context.Context, ctrl *session.Controller, sender *session.Sender, logger *zap.Logger, deviceID, port int) error {
	g, ctx := errgroup.WithContext(ctx)
	resend := make(chan struct{}, 1)

	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				select {
				case resend <- struct{}{}:
				default:
				}
			}
		}
	})

	g.Go(func() error {
		send := func() {
			if err := sender.Send(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("send failed", zap.Error(err))
			}
		}

		err := ctrl.Connect(ctx, deviceID, port)
		if err != nil && !errors.Is(err, session.ErrPermissionPending) {
			return err
		}

		connected := false
		for {
			if ctrl.State() == session.Connected && !connected {
				connected = true
				send()
			}
			if connected && ctrl.State() != session.Connected {
				return fmt.Errorf("connection lost: %w", session.ErrNotConnected)
			}

			select {
			case <-ctx.Done():
				return nil
			case ev := <-ctrl.Events():
				if err := ctrl.Handle(ctx, ev); err != nil {
					return err
				}
			case <-resend:
				send()
			}
		}
	})

	return g.Wait()
}
