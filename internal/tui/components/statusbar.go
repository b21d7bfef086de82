package components

import (
	"fmt"
	"time"

	"github.com/allbin/serialmagic/internal/session"
	"github.com/allbin/serialmagic/internal/tui/colors"
	"github.com/allbin/serialmagic/internal/tui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// toastDuration is how long a Notify message stays visible
const toastDuration = 3 * time.Second

// ToastExpiredMsg clears the toast with the given id
type ToastExpiredMsg struct {
	ID int
}

type ConnectionInfo struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	Stream   bool
}

type StatusBar struct {
	title   string
	target  string
	status  string
	state   session.State
	toast   string
	toastID int
	dropped uint64
	width   int
	info    *ConnectionInfo
}

func NewStatusBar(title string) *StatusBar {
	return &StatusBar{
		title:  title,
		status: "select a device",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConnectionInfo(info *ConnectionInfo) {
	sb.info = info
}

// SetStatus replaces the persistent status message
func (sb *StatusBar) SetStatus(status string) {
	sb.status = status
}

func (sb *StatusBar) Status() string {
	return sb.status
}

func (sb *StatusBar) SetState(state session.State) {
	sb.state = state
}

// SetTarget shows the device and port being connected to
func (sb *StatusBar) SetTarget(target string) {
	sb.target = target
}

func (sb *StatusBar) SetDropped(n uint64) {
	sb.dropped = n
}

// Notify shows a transient message and returns the command that clears it
func (sb *StatusBar) Notify(msg string) tea.Cmd {
	sb.toastID++
	sb.toast = msg
	id := sb.toastID
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return ToastExpiredMsg{ID: id}
	})
}

func (sb *StatusBar) Toast() string {
	return sb.toast
}

// ExpireToast clears the toast unless a newer one replaced it
func (sb *StatusBar) ExpireToast(id int) {
	if id == sb.toastID {
		sb.toast = ""
	}
}

func (sb *StatusBar) View(timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	title := styles.TitleStyle.Render(sb.title)

	indicator := "○"
	if sb.state == session.Connected {
		indicator = "●"
	}
	state := styles.StateStyle(sb.state).Padding(0, 1).Render(indicator)

	target := ""
	if sb.target != "" {
		target = lipgloss.NewStyle().
			Foreground(colors.Mauve).
			Bold(true).
			PaddingRight(1).
			Render(sb.target)
	}

	status := lipgloss.NewStyle().Foreground(colors.Text).Render(sb.status)
	if sb.toast != "" {
		status = lipgloss.JoinHorizontal(lipgloss.Left, status, " ", styles.ToastStyle.Render(sb.toast))
	}

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	var details string
	if sb.info != nil {
		details = fmt.Sprintf("⚡ %d %d%s%d", sb.info.BaudRate, sb.info.DataBits, sb.info.Parity, sb.info.StopBits)
		if sb.info.Stream {
			details += " stream"
		}
	} else {
		details = "⚡ serial"
	}
	if sb.dropped > 0 {
		details += fmt.Sprintf(" dropped:%d", sb.dropped)
	}
	detailsView := lipgloss.NewStyle().Foreground(colors.Subtext0).Padding(0, 1).Render(details)
	timeView := lipgloss.NewStyle().Foreground(colors.Subtext1).Padding(0, 1).Render(timestamp)

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, title, state, target, divider, status)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, detailsView, divider, timeView)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	statusBarStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	return statusBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
