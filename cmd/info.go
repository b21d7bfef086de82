/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	serial "github.com/allbin/serialmagic"
	"github.com/allbin/serialmagic/internal/session"
	"github.com/allbin/serialmagic/probe"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <device-id>",
	Short: "Display detailed information about a USB serial device",
	Long: `Display USB metadata and the resolved driver of a device.

Examples:
  serialmagic info 1004

The device id is busnum*1000 + devnum as printed by 'serialmagic list'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid device id %q", args[0])
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

		fmt.Printf("Device Information: %d\n\n", dev.ID)
		fmt.Printf("  Name:         %s\n", dev.Name)
		fmt.Printf("  USB ID:       %s\n", dev.USBID())
		if dev.Manufacturer != "" {
			fmt.Printf("  Manufacturer: %s\n", dev.Manufacturer)
		}
		if dev.Product != "" {
			fmt.Printf("  Product:      %s\n", dev.Product)
		}
		if dev.SerialNumber != "" {
			fmt.Printf("  Serial:       %s\n", dev.SerialNumber)
		}
		fmt.Printf("  Bus:          %03d\n", dev.BusNumber)
		fmt.Printf("  Device:       %03d\n", dev.DeviceNumber)
		if dev.KernelDriver != "" {
			fmt.Printf("  Kernel:       %s\n", dev.KernelDriver)
		}
		fmt.Printf("  TTYs:         %s\n", strings.Join(dev.TTYs, ", "))
		fmt.Printf("  Access:       %s\n", accessString(rt.provider.HasPermission(dev)))

		driver, ok := probe.Resolve(dev, rt.probers...)
		if !ok {
			fmt.Println("\nNo driver found for this device")
			return nil
		}

		fmt.Println("\nDriver:")
		fmt.Printf("  Family:       %s\n", driver.Family)
		fmt.Printf("  Parameters:   %t\n", driver.SupportsParameters())
		for _, p := range driver.Ports {
			path := p.Path
			if path == "" {
				path = "-"
			}
			fmt.Printf("  Port %d:       %s\n", p.Index, path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// findDevice enumerates devices and picks the one with the given id. A
// partial enumeration is fine as long as the device is in it.
func findDevice(cmd *cobra.Command, rt *runtime, id int) (serial.Device, error) {
	devices, err := rt.provider.Devices(cmd.Context())
	if dev, ok := serial.FindDevice(devices, id); ok {
		return dev, nil
	}
	if err != nil {
		return serial.Device{}, fmt.Errorf("%w: %d: %v", session.ErrDeviceNotFound, id, err)
	}
	return serial.Device{}, fmt.Errorf("%w: %d", session.ErrDeviceNotFound, id)
}

func accessString(ok bool) string {
	if ok {
		return "read/write"
	}
	return "no permission"
}
