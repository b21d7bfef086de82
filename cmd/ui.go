/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/allbin/serialmagic/internal/tui/models"
)

// uiCmd represents the ui command
var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Pick a device port interactively",
	Long: `Start the interactive picker.

The table lists every (device, port) pair. Selecting a row connects to it
and writes the command sequence; received data is shown below the table.
Logs only go to --log-file while the picker is running.

Keys:
  enter      connect to the highlighted port and send
  s          send the command sequence again
  d          disconnect
  r          refresh the device list
  c          clear the received data
  ?          toggle help
  q          quit`,
	Args: cobra.NoArgs,
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sink := models.NewStatusSink()
	ctrl := rt.controller(sink)
	defer ctrl.Close()

	app := models.NewApp(ctx, rt.provider, rt.probers, ctrl, rt.sender(ctrl), sink, rt.logger)

	p := tea.NewProgram(app,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
	_, err = p.Run()
	return err
}
