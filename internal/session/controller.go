package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	serial "github.com/allbin/serialmagic"
	"github.com/allbin/serialmagic/probe"
)

type target struct {
	deviceID int
	port     int
}

// Controller owns the single serial connection of the application. Exported
// methods other than Events, Dropped and Close must be called from one owner
// goroutine; asynchronous sources only post to the event queue.
type Controller struct {
	provider serial.Provider
	probers  []probe.Prober
	settings Settings
	logger   *zap.Logger
	status   StatusSink

	events  chan Event
	done    chan struct{}
	closed  atomic.Bool
	dropped atomic.Uint64

	state      State
	permission PermissionStatus
	target     *target
	port       serial.Port
	reader     *serial.IOManager
	connID     uint64
}

// NewController creates a disconnected controller. probers are tried in
// order when resolving a device's driver.
func NewController(provider serial.Provider, probers []probe.Prober, settings Settings, logger *zap.Logger, status StatusSink) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if status == nil {
		status = discardStatus{}
	}
	if settings.QueueSize <= 0 {
		settings.QueueSize = DefaultQueueSize
	}

	c := &Controller{
		provider: provider,
		probers:  probers,
		settings: settings,
		logger:   logger.Named("controller"),
		status:   status,
		events:   make(chan Event, settings.QueueSize),
		done:     make(chan struct{}),
	}
	return c
}

func (c *Controller) State() State                 { return c.state }
func (c *Controller) ConnID() uint64               { return c.connID }
func (c *Controller) Permission() PermissionStatus { return c.permission }
func (c *Controller) Settings() Settings           { return c.settings }

// Streaming reports whether the background read loop is running
func (c *Controller) Streaming() bool {
	return c.reader != nil && c.reader.Running()
}

// Target returns the device and port of the last Connect call
func (c *Controller) Target() (deviceID, port int, ok bool) {
	if c.target == nil {
		return 0, 0, false
	}
	return c.target.deviceID, c.target.port, true
}

// Events is drained by the owner goroutine, which passes every event to
// Handle
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Dropped is the number of received chunks that did not fit in the queue
func (c *Controller) Dropped() uint64 {
	return c.dropped.Load()
}

// post enqueues ev. Received data is dropped when the queue is full since it
// has already been logged; other events wait for room until Close.
func (c *Controller) post(ev Event) {
	if _, ok := ev.(DataReceived); ok {
		select {
		case c.events <- ev:
		default:
			c.dropped.Add(1)
		}
		return
	}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Connect opens port portIndex of device deviceID, configures it and, if
// streaming is enabled, starts the read loop. It returns ErrPermissionPending
// when a permission request was issued; Connect runs again when the result
// is handled.
func (c *Controller) Connect(ctx context.Context, deviceID, portIndex int) error {
	if c.state != Disconnected {
		c.Disconnect()
	}
	c.target = &target{deviceID: deviceID, port: portIndex}

	devices, err := c.provider.Devices(ctx)
	if err != nil {
		if len(devices) == 0 {
			return c.fail(fmt.Errorf("enumerate devices: %w", err))
		}
		c.logger.Warn("partial device enumeration", zap.Error(err))
	}

	dev, ok := serial.FindDevice(devices, deviceID)
	if !ok {
		return c.fail(ErrDeviceNotFound)
	}

	driver, ok := probe.Resolve(dev, c.probers...)
	if !ok {
		return c.fail(ErrNoDriverFound)
	}
	if portIndex < 0 || portIndex >= len(driver.Ports) {
		return c.fail(ErrPortOutOfRange)
	}

	conn, err := c.provider.OpenConnection(dev)
	if err != nil {
		hasPermission := c.provider.HasPermission(dev)
		if c.permission == PermissionUnknown && !hasPermission {
			c.requestPermission(dev)
			return ErrPermissionPending
		}
		if !hasPermission {
			return c.fail(ErrPermissionDenied)
		}
		return c.fail(fmt.Errorf("%w: %w", ErrOpenFailed, err))
	}

	port, err := conn.Port(portIndex, driver.SupportsParameters())
	if err != nil {
		return c.fail(err)
	}
	// owned from here so a failure below releases it
	c.port = port
	c.connID++

	if err := port.Open(); err != nil {
		if errors.Is(err, serial.ErrPermissionDenied) {
			return c.fail(ErrPermissionDenied)
		}
		return c.fail(err)
	}

	s := c.settings
	if err := port.SetParameters(s.BaudRate, s.DataBits, s.StopBits, s.Parity); err != nil {
		if !errors.Is(err, serial.ErrParametersUnsupported) {
			return c.fail(err)
		}
		c.logger.Warn("line parameters not applied", zap.String("family", driver.Family.String()), zap.Error(err))
		c.status.Notify("unsupported setParameters")
	}

	if s.Stream {
		c.reader = serial.NewIOManager(port, newReceiveLogger(c.logger.Named("receive"), c.connID, c.post))
		if err := c.reader.Start(); err != nil {
			return c.fail(err)
		}
	}

	c.state = Connected
	c.logger.Info("connected",
		zap.Int("device", dev.ID),
		zap.Int("port", portIndex),
		zap.String("path", port.Path()),
		zap.String("family", driver.Family.String()),
		zap.Bool("stream", s.Stream),
	)
	c.status.Status("connected")
	return nil
}

func (c *Controller) requestPermission(dev serial.Device) {
	c.state = PermissionRequested
	c.permission = PermissionRequestedStatus
	c.logger.Info("requesting permission", zap.Int("device", dev.ID), zap.Strings("ttys", dev.TTYs))
	c.status.Status("permission requested")

	id := dev.ID
	c.provider.RequestPermission(dev, func(granted bool) {
		c.post(PermissionResult{DeviceID: id, Granted: granted})
	})
}

// fail tears the connection down and reports err. It returns err.
func (c *Controller) fail(err error) error {
	c.Disconnect()
	c.logger.Warn("connection failed", zap.Error(err))
	c.status.Status(failureStatus(err))
	return err
}

func failureStatus(err error) string {
	for _, known := range []error{ErrDeviceNotFound, ErrNoDriverFound, ErrPortOutOfRange, ErrPermissionDenied, ErrOpenFailed} {
		if errors.Is(err, known) {
			return "connection failed: " + known.Error()
		}
	}
	return "connection failed: " + err.Error()
}

// Disconnect stops the read loop, closes the port and returns to
// Disconnected. It is safe to call in any state.
func (c *Controller) Disconnect() {
	if c.reader != nil {
		c.reader.SetListener(nil)
		c.reader.Stop()
		c.reader = nil
	}
	if c.port != nil {
		if err := c.port.Close(); err != nil && !errors.Is(err, serial.ErrPortClosed) {
			c.logger.Debug("close failed", zap.Error(err))
		}
		c.port = nil
	}
	if c.state != Disconnected {
		c.logger.Info("disconnected")
	}
	c.state = Disconnected
}

// Handle applies one event from the queue. A granted permission re-runs
// Connect for the remembered target and returns its result.
func (c *Controller) Handle(ctx context.Context, ev Event) error {
	switch ev := ev.(type) {
	case PermissionResult:
		return c.handlePermission(ctx, ev)
	case RunError:
		if ev.Conn == c.connID {
			c.connectionLost(ev.Err)
		}
	case DataReceived:
		// already logged on the read goroutine
	}
	return nil
}

func (c *Controller) handlePermission(ctx context.Context, ev PermissionResult) error {
	if !ev.Granted {
		c.permission = PermissionDenied
		if c.state == PermissionRequested {
			return c.fail(ErrPermissionDenied)
		}
		return nil
	}

	// a grant for the remembered target always reconnects, even when a
	// Connect made while the request was in flight already failed
	c.permission = PermissionGranted
	if c.state == Connected || c.target == nil || c.target.deviceID != ev.DeviceID {
		return nil
	}
	return c.Connect(ctx, c.target.deviceID, c.target.port)
}

func (c *Controller) connectionLost(err error) {
	if c.state != Connected {
		return
	}
	c.logger.Warn("connection lost", zap.Error(err))
	c.Disconnect()
	c.status.Status("connection lost: " + err.Error())
}

// Resume reconnects to the remembered target unless permission was denied.
// It is called when the application regains focus.
func (c *Controller) Resume(ctx context.Context) error {
	if c.target == nil || c.state != Disconnected {
		return nil
	}
	if c.permission != PermissionUnknown && c.permission != PermissionGranted {
		return nil
	}
	return c.Connect(ctx, c.target.deviceID, c.target.port)
}

// Close disconnects and releases goroutines blocked posting events
func (c *Controller) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.done)
	}
	c.Disconnect()
}
