/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/serialmagic/probe"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List USB serial devices and their ports",
	Long: `List every USB device that exposes a serial tty, one row per
(device, port) pair.

The driver family is resolved from the built-in vendor/product table and the
probe.custom entries of the config file. Devices without a known family are
still listed with "no driver".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()

		devices, err := rt.provider.Devices(cmd.Context())
		if err != nil {
			if len(devices) == 0 {
				return fmt.Errorf("listing devices: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}

		items := probe.Items(devices, rt.probers...)
		if len(items) == 0 {
			fmt.Println("No USB serial devices found")
			return nil
		}

		familyFilter, _ := cmd.Flags().GetString("family")
		if familyFilter != "" {
			family, err := probe.ParseFamily(familyFilter)
			if err != nil {
				return err
			}
			items = filterItems(items, family)
			if len(items) == 0 {
				fmt.Printf("No devices found with family: %s\n", family)
				return nil
			}
		}

		if tableFormat, _ := cmd.Flags().GetBool("table"); tableFormat {
			renderTable(items)
		} else {
			renderSimple(items)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("family", "f", "", "Only list devices of this family: ftdi, cp21xx, ch34x, prolific, cdc-acm, generic")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

func filterItems(items []probe.ListItem, family probe.Family) []probe.ListItem {
	var filtered []probe.ListItem
	for _, item := range items {
		if item.Driver != nil && item.Driver.Family == family {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func itemFamily(item probe.ListItem) string {
	if item.Driver == nil {
		return "no driver"
	}
	return item.Driver.Family.String()
}

// renderTable renders the item list in a styled static table format
func renderTable(items []probe.ListItem) {
	fmt.Printf("Found %d serial port(s):\n\n", len(items))

	idWidth := 8
	usbWidth := 11
	familyWidth := 10
	portWidth := 5
	pathWidth := 15

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("240")).
		PaddingBottom(1)

	cellStyle := lipgloss.NewStyle().
		PaddingRight(2)

	missingStyle := cellStyle.
		Foreground(lipgloss.Color("240"))

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s %s",
		idWidth, "Device",
		usbWidth, "USB ID",
		familyWidth, "Family",
		portWidth, "Port",
		pathWidth, "Path",
		"Name")
	fmt.Println(headerStyle.Render(header))

	for _, item := range items {
		path := item.Path()
		if path == "" {
			path = "-"
		}
		row := fmt.Sprintf("%-*d %-*s %-*s %-*d %-*s %s",
			idWidth, item.Device.ID,
			usbWidth, item.Device.USBID(),
			familyWidth, itemFamily(item),
			portWidth, item.Port,
			pathWidth, path,
			item.Device.DisplayName())

		if item.Driver == nil {
			fmt.Println(missingStyle.Render(row))
		} else {
			fmt.Println(cellStyle.Render(row))
		}
	}
}

// renderSimple prints one "device:port path family" line per item
func renderSimple(items []probe.ListItem) {
	for _, item := range items {
		fields := []string{fmt.Sprintf("%d:%d", item.Device.ID, item.Port)}
		if path := item.Path(); path != "" {
			fields = append(fields, path)
		}
		fields = append(fields, itemFamily(item))
		fmt.Println(strings.Join(fields, " "))
	}
}
