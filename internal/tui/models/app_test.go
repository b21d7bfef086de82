package models

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	serial "github.com/allbin/serialmagic"
	"github.com/allbin/serialmagic/internal/session"
	"github.com/allbin/serialmagic/internal/tui/components"
	"github.com/allbin/serialmagic/probe"
)

// busyProvider lists devices but never opens them
type busyProvider struct {
	devices []serial.Device
}

func (p *busyProvider) Devices(context.Context) ([]serial.Device, error) { return p.devices, nil }
func (p *busyProvider) HasPermission(serial.Device) bool                 { return true }
func (p *busyProvider) RequestPermission(serial.Device, func(bool))      {}
func (p *busyProvider) OpenConnection(serial.Device) (serial.Connection, error) {
	return nil, errors.New("device busy")
}

// recordingPort accepts every write
type recordingPort struct {
	mu     sync.Mutex
	writes []string
}

func (p *recordingPort) Path() string { return "/dev/ttyUSB2" }
func (p *recordingPort) Open() error  { return nil }
func (p *recordingPort) SetParameters(int, int, int, serial.Parity) error {
	return nil
}
func (p *recordingPort) Read([]byte) (int, error) { return 0, nil }
func (p *recordingPort) ReadContext(context.Context, []byte) (int, error) {
	return 0, nil
}
func (p *recordingPort) Close() error { return nil }

func (p *recordingPort) Write(data []byte, _ time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, string(data))
	return len(data), nil
}

func (p *recordingPort) Writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.writes...)
}

type recordingConnection struct {
	device serial.Device
	port   *recordingPort
}

func (c *recordingConnection) Device() serial.Device { return c.device }
func (c *recordingConnection) Port(int, bool) (serial.Port, error) {
	return c.port, nil
}

// pendingProvider leaves permission requests open until grant is called
type pendingProvider struct {
	mu        sync.Mutex
	devices   []serial.Device
	permitted bool
	callbacks []func(bool)
	port      *recordingPort
}

func (p *pendingProvider) Devices(context.Context) ([]serial.Device, error) { return p.devices, nil }

func (p *pendingProvider) HasPermission(serial.Device) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permitted
}

func (p *pendingProvider) RequestPermission(_ serial.Device, callback func(bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, callback)
}

func (p *pendingProvider) OpenConnection(dev serial.Device) (serial.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.permitted {
		return nil, serial.ErrPermissionDenied
	}
	return &recordingConnection{device: dev, port: p.port}, nil
}

func (p *pendingProvider) grant() {
	p.mu.Lock()
	p.permitted = true
	callbacks := p.callbacks
	p.callbacks = nil
	p.mu.Unlock()
	for _, callback := range callbacks {
		callback(true)
	}
}

func nextEvent(t *testing.T, ctrl *session.Controller) session.Event {
	t.Helper()
	select {
	case ev := <-ctrl.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func newTestApp(t *testing.T, devices ...serial.Device) (*App, *session.Controller) {
	t.Helper()
	provider := &busyProvider{devices: devices}
	probers := []probe.Prober{probe.DefaultProber(), probe.CustomProber()}
	sink := NewStatusSink()
	ctrl := session.NewController(provider, probers, session.DefaultSettings(), zap.NewNop(), sink)
	t.Cleanup(ctrl.Close)

	sender := session.NewSender(ctrl, nil, session.DefaultSettings().WriteTimeout)
	app := NewApp(context.Background(), provider, probers, ctrl, sender, sink, zap.NewNop())
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return app, ctrl
}

func TestAppDevices(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(DevicesMsg{Items: items(dual, unknown)})
	if got := app.list.Len(); got != 3 {
		t.Errorf("list has %d items, want 3", got)
	}

	app.Update(DevicesMsg{Items: items(single)})
	if got := app.list.Len(); got != 1 {
		t.Errorf("list has %d items after refresh, want 1", got)
	}
}

func TestAppSelect(t *testing.T) {
	tests := []struct {
		name       string
		item       probe.ListItem
		wantToast  string
		wantStatus string
	}{
		{
			name:       "open failure",
			item:       items(single)[0],
			wantStatus: "connection failed: open failed",
		},
		{
			name:       "no driver without target",
			item:       items(unknown)[0],
			wantToast:  "no driver",
			wantStatus: "connection failed: no driver for device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, ctrl := newTestApp(t, single, unknown)

			app.Update(SelectedMsg{Item: tt.item})

			if got := app.sink.bar.Toast(); got != tt.wantToast {
				t.Errorf("toast = %q, want %q", got, tt.wantToast)
			}
			if got := app.sink.bar.Status(); got != tt.wantStatus {
				t.Errorf("status = %q, want %q", got, tt.wantStatus)
			}
			if ctrl.State() != session.Disconnected {
				t.Errorf("state = %v, want disconnected", ctrl.State())
			}
		})
	}
}

func TestAppSelectNoDriverUsesPreviousTarget(t *testing.T) {
	app, ctrl := newTestApp(t, single, unknown)

	app.Update(SelectedMsg{Item: items(single)[0]})
	app.Update(SelectedMsg{Item: items(unknown)[0]})

	id, port, ok := ctrl.Target()
	if !ok || id != single.ID || port != 0 {
		t.Errorf("target = %d:%d (%t), want %d:0", id, port, ok, single.ID)
	}
	if got := app.sink.bar.Status(); got != "connection failed: open failed" {
		t.Errorf("status = %q", got)
	}
}

func TestAppReceiveLogged(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(EventMsg{Event: session.DataReceived{Data: []byte{0x01, 0x02}}})
	app.Update(EventMsg{Event: session.DataReceived{Data: []byte("ok")}})

	if got := app.sink.log.Len(); got != 2 {
		t.Errorf("log has %d entries, want 2", got)
	}
}

func TestAppToastExpires(t *testing.T) {
	app, _ := newTestApp(t, unknown)

	app.Update(SelectedMsg{Item: items(unknown)[0]})
	app.Update(components.ToastExpiredMsg{ID: 1})

	if got := app.sink.bar.Toast(); got != "" {
		t.Errorf("toast = %q after expiry", got)
	}
}

func TestAppQuit(t *testing.T) {
	app, _ := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("quit command did not quit")
	}
}

func TestAppSendsAfterPermissionGranted(t *testing.T) {
	provider := &pendingProvider{devices: []serial.Device{single}, port: &recordingPort{}}
	probers := []probe.Prober{probe.DefaultProber(), probe.CustomProber()}
	sink := NewStatusSink()
	ctrl := session.NewController(provider, probers, session.DefaultSettings(), zap.NewNop(), sink)
	t.Cleanup(ctrl.Close)
	sender := session.NewSender(ctrl, session.DefaultCommands, session.DefaultSettings().WriteTimeout)
	app := NewApp(context.Background(), provider, probers, ctrl, sender, sink, zap.NewNop())

	app.Update(SelectedMsg{Item: items(single)[0]})
	if ctrl.State() != session.PermissionRequested {
		t.Fatalf("state = %v, want permission requested", ctrl.State())
	}
	if got := len(provider.port.Writes()); got != 0 {
		t.Fatalf("%d writes before the grant", got)
	}

	provider.grant()
	ev := nextEvent(t, ctrl)
	app.Update(EventMsg{Event: ev})

	if ctrl.State() != session.Connected {
		t.Fatalf("state = %v, want connected", ctrl.State())
	}
	want := make([]string, len(session.DefaultCommands))
	for i, cmd := range session.DefaultCommands {
		want[i] = cmd + "\n"
	}
	if d := cmp.Diff(want, provider.port.Writes()); d != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", d)
	}

	// a repeated grant does not send again
	app.Update(EventMsg{Event: ev})
	if got := len(provider.port.Writes()); got != len(session.DefaultCommands) {
		t.Errorf("%d writes after a second grant, want %d", got, len(session.DefaultCommands))
	}
}
