package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxEntries bounds the log kept in memory
const maxEntries = 1000

// Terminal is a scrolling view of received data and status messages
type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	entries   []LogEntry
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(true),
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) Add(entry LogEntry) {
	t.entries = append(t.entries, entry)
	if len(t.entries) > maxEntries {
		t.entries = t.entries[len(t.entries)-maxEntries:]
	}
	t.refresh()
}

func (t *Terminal) Len() int {
	return len(t.entries)
}

func (t *Terminal) ToggleTimestamps() {
	t.formatter.ToggleTimestamps()
	t.refresh()
}

func (t *Terminal) refresh() {
	t.viewport.SetContent(strings.Join(t.formatter.FormatEntries(t.entries), "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) Clear() {
	t.entries = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ScrollUp() {
	t.viewport.HalfViewUp()
}

func (t *Terminal) ScrollDown() {
	t.viewport.HalfViewDown()
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// keys belong to the device table, only mouse and resize reach the viewport
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return t.viewport, cmd
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
