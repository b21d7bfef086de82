/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	serial "github.com/allbin/serialmagic"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <device-id>",
	Short: "Reset a USB serial device",
	Long: `Perform a USB-level reset on a device. This can recover adapters that
are hung or unresponsive without physically unplugging them.

The device re-enumerates after the reset and may get a new device id and
tty paths.

Requirements:
- usbreset utility must be installed (from usbutils package)
- Root/sudo permissions required for USB operations

Examples:
  sudo serialmagic reset 1004`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid device id %q", args[0])
		}

		if !serial.IsUSBResetAvailable() {
			fmt.Fprintln(os.Stderr, "Install with: sudo apt-get install usbutils")
			return serial.ErrUSBResetNotAvailable
		}

		rt, err := newRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()

		dev, err := findDevice(cmd, rt, id)
		if err != nil {
			return err
		}

		fmt.Printf("Resetting USB device: %s\n", dev)
		if err := serial.ResetDevice(dev); err != nil {
			if errors.Is(err, serial.ErrUSBInfoNotAvailable) {
				fmt.Fprintln(os.Stderr, "This device has no USB bus information")
			}
			return err
		}

		fmt.Println("USB device reset successfully")
		fmt.Println("\nUse 'serialmagic list --table' to see the updated device list")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
