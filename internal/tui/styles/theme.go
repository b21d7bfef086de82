package styles

import (
	"github.com/allbin/serialmagic/internal/session"
	"github.com/allbin/serialmagic/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	// Device table
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colors.Text)

	TableHighlightStyle = lipgloss.NewStyle().
				Foreground(colors.Text).
				Background(colors.Surface1)

	TableBaseStyle = lipgloss.NewStyle().
			BorderForeground(colors.Surface2).
			Align(lipgloss.Left)

	NoDriverStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay0).
			Italic(true)

	// Received data log
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	ReceiveStyle = lipgloss.NewStyle().
			Foreground(colors.Sky).
			Bold(true)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0)

	// Transient notifications
	ToastStyle = lipgloss.NewStyle().
			Foreground(colors.Base).
			Background(colors.Peach).
			Bold(true).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)
)

var (
	StatusConnectedStyle = lipgloss.NewStyle().
				Foreground(colors.Connected).
				Bold(true)

	StatusDisconnectedStyle = lipgloss.NewStyle().
				Foreground(colors.Idle).
				Bold(true)

	StatusPendingStyle = lipgloss.NewStyle().
				Foreground(colors.Pending).
				Bold(true)
)

// StateStyle colors a connection state indicator
func StateStyle(state session.State) lipgloss.Style {
	switch state {
	case session.Connected:
		return StatusConnectedStyle
	case session.PermissionRequested:
		return StatusPendingStyle
	default:
		return StatusDisconnectedStyle
	}
}
