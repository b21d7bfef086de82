package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	serial "github.com/allbin/serialmagic"
	"github.com/allbin/serialmagic/internal/session"
	"github.com/allbin/serialmagic/internal/tui/components"
	"github.com/allbin/serialmagic/internal/tui/keys"
	"github.com/allbin/serialmagic/internal/tui/styles"
	"github.com/allbin/serialmagic/probe"
)

// DevicesMsg carries the result of an enumeration
type DevicesMsg struct {
	Items []probe.ListItem
	Err   error
}

// EventMsg wraps a controller event so Update handles it on the program
// goroutine
type EventMsg struct {
	Event session.Event
}

// StatusSink shows controller status in the UI. It is only called from
// Update, so it writes to the components directly and collects the commands
// that toasts need.
type StatusSink struct {
	bar  *components.StatusBar
	log  *components.Terminal
	cmds []tea.Cmd
}

func NewStatusSink() *StatusSink {
	return &StatusSink{
		bar: components.NewStatusBar("serialmagic"),
		log: components.NewTerminal(0, 0),
	}
}

func (s *StatusSink) Status(msg string) {
	s.bar.SetStatus(msg)
	s.log.Add(components.LogEntry{Timestamp: time.Now(), Kind: components.EntryStatus, Text: msg})
}

func (s *StatusSink) Notify(msg string) {
	s.cmds = append(s.cmds, s.bar.Notify(msg))
}

func (s *StatusSink) drain() []tea.Cmd {
	cmds := s.cmds
	s.cmds = nil
	return cmds
}

// App is the device picker: a table of (device, port) rows above the
// received data log. Selecting a row connects to it and sends the command
// sequence.
type App struct {
	ctx      context.Context
	provider serial.Provider
	probers  []probe.Prober
	ctrl     *session.Controller
	sender   *session.Sender
	logger   *zap.Logger

	list   *DeviceList
	table  *components.DeviceTable
	sink   *StatusSink
	help   help.Model
	keys   keys.PickerKeys
	err    error
	width  int
	height int

	// sendOnConnect sends the commands once a pending permission request
	// ends in a connection
	sendOnConnect bool
}

func NewApp(ctx context.Context, provider serial.Provider, probers []probe.Prober, ctrl *session.Controller, sender *session.Sender, sink *StatusSink, logger *zap.Logger) *App {
	s := ctrl.Settings()
	sink.bar.SetConnectionInfo(&components.ConnectionInfo{
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		StopBits: s.StopBits,
		Parity:   s.Parity.Letter(),
		Stream:   s.Stream,
	})

	return &App{
		ctx:      ctx,
		provider: provider,
		probers:  probers,
		ctrl:     ctrl,
		sender:   sender,
		logger:   logger.Named("ui"),
		list:     NewDeviceList(),
		table:    components.NewDeviceTable(80, 10),
		sink:     sink,
		help:     help.New(),
		keys:     keys.NewPickerKeys(),
	}
}

func (m *App) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.waitEvent())
}

func (m *App) refresh() tea.Cmd {
	ctx, provider, probers := m.ctx, m.provider, m.probers
	return func() tea.Msg {
		devices, err := provider.Devices(ctx)
		return DevicesMsg{Items: probe.Items(devices, probers...), Err: err}
	}
}

func (m *App) waitEvent() tea.Cmd {
	events, done := m.ctrl.Events(), m.ctx.Done()
	return func() tea.Msg {
		select {
		case ev := <-events:
			return EventMsg{Event: ev}
		case <-done:
			return nil
		}
	}
}

func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.ctrl.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.layout()
		case key.Matches(msg, m.keys.Refresh):
			cmds = append(cmds, m.refresh())
		case key.Matches(msg, m.keys.Select):
			if sel, ok := m.list.Select(m.table.Highlighted()); ok {
				cmds = append(cmds, func() tea.Msg { return sel })
			}
		case key.Matches(msg, m.keys.Send):
			m.send()
		case key.Matches(msg, m.keys.Disconnect):
			m.sendOnConnect = false
			m.ctrl.Disconnect()
			m.sink.Status("disconnected")
		case key.Matches(msg, m.keys.Clear):
			m.sink.log.Clear()
		case key.Matches(msg, m.keys.ScrollUp):
			m.sink.log.ScrollUp()
		case key.Matches(msg, m.keys.ScrollDown):
			m.sink.log.ScrollDown()
		default:
			cmds = append(cmds, m.table.Update(msg))
		}

	case tea.MouseMsg:
		_, cmd := m.sink.log.Update(msg)
		cmds = append(cmds, cmd)

	case SelectedMsg:
		m.selected(msg.Item)

	case DevicesMsg:
		m.err = msg.Err
		diff := m.list.Replace(msg.Items)
		m.table.SetItems(m.list.Items())
		if !diff.Empty() {
			m.logger.Debug("device list changed",
				zap.Int("inserted", len(diff.Inserted)),
				zap.Int("removed", len(diff.Removed)),
				zap.Int("changed", len(diff.Changed)),
			)
		}
		if msg.Err != nil {
			m.logger.Warn("device enumeration", zap.Error(msg.Err))
			if len(msg.Items) > 0 {
				m.sink.Notify("some devices could not be read")
			}
		}
		m.layout()

	case EventMsg:
		m.handleEvent(msg.Event)
		cmds = append(cmds, m.waitEvent())

	case tea.FocusMsg:
		if err := m.ctrl.Resume(m.ctx); err == nil && m.ctrl.State() == session.Connected {
			m.logger.Debug("reconnected on focus")
		}

	case components.ToastExpiredMsg:
		m.sink.bar.ExpireToast(msg.ID)
	}

	m.sink.bar.SetState(m.ctrl.State())
	m.sink.bar.SetDropped(m.ctrl.Dropped())
	cmds = append(cmds, m.sink.drain()...)
	return m, tea.Batch(cmds...)
}

// selected connects to item and sends the command sequence. An item without
// a driver is reported and the previous target is used instead.
func (m *App) selected(item probe.ListItem) {
	deviceID, port := item.Device.ID, item.Port
	if item.Driver == nil {
		m.sink.Notify("no driver")
		if id, p, ok := m.ctrl.Target(); ok {
			deviceID, port = id, p
		}
	}

	m.sendOnConnect = false
	m.sink.bar.SetTarget(fmt.Sprintf("%d:%d", deviceID, port))

	err := m.ctrl.Connect(m.ctx, deviceID, port)
	switch {
	case err == nil:
		m.send()
	case errors.Is(err, session.ErrPermissionPending):
		m.sendOnConnect = true
	}
}

func (m *App) send() {
	if err := m.sender.Send(m.ctx); err != nil && !errors.Is(err, session.ErrNotConnected) {
		m.logger.Warn("send failed", zap.Error(err))
	}
}

func (m *App) handleEvent(ev session.Event) {
	if data, ok := ev.(session.DataReceived); ok {
		m.sink.log.Add(components.LogEntry{Timestamp: time.Now(), Kind: components.EntryReceive, Data: data.Data})
	}

	err := m.ctrl.Handle(m.ctx, ev)

	if _, ok := ev.(session.PermissionResult); ok && m.sendOnConnect && m.ctrl.State() != session.PermissionRequested {
		m.sendOnConnect = false
		if err == nil && m.ctrl.State() == session.Connected {
			m.send()
		}
	}
}

func (m *App) layout() {
	if m.width == 0 {
		return
	}
	m.sink.bar.SetWidth(m.width)
	m.help.Width = m.width

	// table gets its rows plus chrome, up to half the screen
	tableHeight := min(max(m.list.Len()+4, 6), m.height/2)
	m.table.SetSize(m.width, tableHeight)

	helpHeight := lipgloss.Height(m.help.View(m.keys))
	logHeight := m.height - tableHeight - helpHeight - 2 // border and status bar
	if logHeight < 1 {
		logHeight = 1
	}
	m.sink.log.SetSize(m.width, logHeight)
}

func (m *App) View() string {
	var top string
	if m.list.Len() == 0 {
		top = components.EmptyView(m.err)
	} else {
		top = m.table.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		top,
		styles.ContentBorderStyle.Render(m.sink.log.View()),
		m.sink.bar.View(time.Now().Format("15:04:05")),
		m.help.View(m.keys),
	)
}
