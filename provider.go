package serial

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Provider is the host's view of attached USB serial hardware
type Provider interface {
	// Devices enumerates attached devices. A non-nil error may accompany a
	// partial result.
	Devices(ctx context.Context) ([]Device, error)
	// HasPermission reports whether every tty of dev can be opened read/write
	HasPermission(dev Device) bool
	// RequestPermission asks the host for access to dev. It returns
	// immediately; callback runs on another goroutine once the request ends.
	RequestPermission(dev Device, callback func(granted bool))
	// OpenConnection returns a handle for dev, or ErrPermissionDenied
	OpenConnection(dev Device) (Connection, error)
}

// Connection is an authorised handle to a device from which ports are opened
type Connection interface {
	Device() Device
	// Port returns the unopened port for driver port index. lineSettings
	// reports whether the driver honours SetParameters.
	Port(index int, lineSettings bool) (Port, error)
}

type ttyConnection struct {
	device Device
	opts   []Option
}

func (c *ttyConnection) Device() Device {
	return c.device
}

func (c *ttyConnection) Port(index int, lineSettings bool) (Port, error) {
	if index < 0 || index >= len(c.device.TTYs) {
		return nil, fmt.Errorf("%w: device %d has no tty for port %d", ErrOpenFailed, c.device.ID, index)
	}
	return NewPort(c.device.TTYs[index], lineSettings, c.opts...)
}

// SystemProvider enumerates devices through sysfs and grants access by running
// an external helper command.
type SystemProvider struct {
	permissionCommand []string
	permissionTimeout time.Duration
	portOptions       []Option
	onError           func(error)

	// access is a variable so tests can fake device node permissions
	access func(path string) bool

	mu       sync.Mutex
	inFlight map[int]bool
}

var _ Provider = (*SystemProvider)(nil)

// ProviderOption configures a SystemProvider
type ProviderOption func(*SystemProvider)

// WithPermissionCommand sets the helper run by RequestPermission. The device's
// tty paths are appended as arguments, e.g. {"pkexec", "chmod", "0666"}.
func WithPermissionCommand(argv ...string) ProviderOption {
	return func(p *SystemProvider) {
		p.permissionCommand = argv
	}
}

// WithPermissionTimeout bounds how long the helper may run
func WithPermissionTimeout(timeout time.Duration) ProviderOption {
	return func(p *SystemProvider) {
		p.permissionTimeout = timeout
	}
}

// WithPortOptions sets the initial line settings of every opened port
func WithPortOptions(opts ...Option) ProviderOption {
	return func(p *SystemProvider) {
		p.portOptions = opts
	}
}

// WithErrorHandler receives failures of the permission helper
func WithErrorHandler(fn func(error)) ProviderOption {
	return func(p *SystemProvider) {
		p.onError = fn
	}
}

// NewSystemProvider creates a provider for the local host
func NewSystemProvider(opts ...ProviderOption) *SystemProvider {
	p := &SystemProvider{
		permissionTimeout: time.Minute,
		access:            canReadWrite,
		inFlight:          make(map[int]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func canReadWrite(path string) bool {
	return unix.Access(path, unix.R_OK|unix.W_OK) == nil
}

func (p *SystemProvider) Devices(ctx context.Context) ([]Device, error) {
	return ListDevices(ctx)
}

func (p *SystemProvider) HasPermission(dev Device) bool {
	if len(dev.TTYs) == 0 {
		return false
	}
	for _, tty := range dev.TTYs {
		if !p.access(tty) {
			return false
		}
	}
	return true
}

func (p *SystemProvider) RequestPermission(dev Device, callback func(granted bool)) {
	p.mu.Lock()
	if p.inFlight[dev.ID] {
		p.mu.Unlock()
		return
	}
	p.inFlight[dev.ID] = true
	p.mu.Unlock()

	go func() {
		granted := p.runPermissionCommand(dev)

		p.mu.Lock()
		delete(p.inFlight, dev.ID)
		p.mu.Unlock()

		if callback != nil {
			callback(granted)
		}
	}()
}

func (p *SystemProvider) runPermissionCommand(dev Device) bool {
	if len(p.permissionCommand) == 0 || len(dev.TTYs) == 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.permissionTimeout)
	defer cancel()

	args := append(append([]string{}, p.permissionCommand[1:]...), dev.TTYs...)
	cmd := exec.CommandContext(ctx, p.permissionCommand[0], args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if p.onError != nil {
			p.onError(fmt.Errorf("permission helper %s failed: %w (output: %s)",
				strings.Join(p.permissionCommand, " "), err, strings.TrimSpace(string(output))))
		}
		return false
	}
	return p.HasPermission(dev)
}

func (p *SystemProvider) OpenConnection(dev Device) (Connection, error) {
	if len(dev.TTYs) == 0 {
		return nil, fmt.Errorf("%w: device %d has no ttys", ErrOpenFailed, dev.ID)
	}
	if !p.HasPermission(dev) {
		return nil, ErrPermissionDenied
	}
	return &ttyConnection{device: dev, opts: p.portOptions}, nil
}
