package serial

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Port is a single serial endpoint of a USB device, backed by a kernel tty
type Port interface {
	// Path returns the device node, e.g. /dev/ttyUSB0
	Path() string
	Open() error
	// SetParameters changes the line settings of an open port. It returns
	// ErrParametersUnsupported when the driver cannot honour them.
	SetParameters(baudRate, dataBits, stopBits int, parity Parity) error
	Read(buf []byte) (int, error)
	ReadContext(ctx context.Context, buf []byte) (int, error)
	// Write blocks at most timeout waiting for the tty to accept data
	Write(data []byte, timeout time.Duration) (int, error)
	Close() error
}

// ttyPort is the concrete implementation of the Port interface
type ttyPort struct {
	mu           sync.RWMutex
	path         string
	fd           int
	config       Config
	lineSettings bool
	open         bool
	closed       bool
}

// Ensure ttyPort implements Port interface at compile time
var _ Port = (*ttyPort)(nil)

var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	speed, ok := baudRates[rate]
	if !ok {
		return 0, ErrInvalidBaudRate
	}
	return speed, nil
}

// NewPort returns an unopened port for the tty at path. lineSettings reports
// whether the driver behind the tty honours baud rate and framing changes.
func NewPort(path string, lineSettings bool, opts ...Option) (Port, error) {
	config, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &ttyPort{
		path:         path,
		fd:           -1,
		config:       config,
		lineSettings: lineSettings,
	}, nil
}

func (p *ttyPort) Path() string {
	return p.path
}

// Open opens the tty in raw mode with the port's current config
func (p *ttyPort) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	if p.open {
		return nil
	}

	fd, err := unix.Open(p.path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		switch {
		case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, p.path)
		case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
			return fmt.Errorf("%w: %s", ErrPermissionDenied, p.path)
		default:
			return fmt.Errorf("%w: %s: %v", ErrOpenFailed, p.path, err)
		}
	}

	if err := makeRaw(fd, p.config); err != nil {
		unix.Close(fd)
		return err
	}

	p.fd = fd
	p.open = true
	return nil
}

// makeRaw puts the tty in raw mode and applies config
func makeRaw(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("%w: failed to get termios: %v", ErrOpenFailed, err)
	}

	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0
	termios.Cflag = unix.CREAD | unix.CLOCAL

	// VMIN=0 so reads return after VTIME even with no data
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = config.readTimeoutTenths()

	if err := applyLineSettings(termios, config); err != nil {
		return err
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("%w: failed to set termios: %v", ErrOpenFailed, err)
	}
	return nil
}

// applyLineSettings rewrites speed, character size, stop bits and parity
func applyLineSettings(termios *unix.Termios, config Config) error {
	speed, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | speed
	termios.Ispeed = speed
	termios.Ospeed = speed

	termios.Cflag &^= unix.CSIZE
	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	termios.Cflag &^= unix.CSTOPB
	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	termios.Cflag &^= unix.PARENB | unix.PARODD | unix.CMSPAR
	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	case ParityMark:
		termios.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
	}
	return nil
}

func (p *ttyPort) SetParameters(baudRate, dataBits, stopBits int, parity Parity) error {
	config := p.config
	for _, opt := range []Option{WithBaudRate(baudRate), WithDataBits(dataBits), WithStopBits(stopBits), WithParity(parity)} {
		if err := opt(&config); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	if !p.open {
		return ErrPortNotOpen
	}
	if !p.lineSettings {
		return ErrParametersUnsupported
	}

	termios, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return lineSettingsError(err)
	}
	if err := applyLineSettings(termios, config); err != nil {
		return err
	}
	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS, termios); err != nil {
		return lineSettingsError(err)
	}

	p.config = config
	return nil
}

func lineSettingsError(err error) error {
	if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EINVAL) {
		return fmt.Errorf("%w: %v", ErrParametersUnsupported, err)
	}
	return fmt.Errorf("failed to set line parameters: %w", err)
}

// Read reads whatever is available, returning 0 bytes after the read timeout
func (p *ttyPort) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	if !p.open {
		return 0, ErrPortNotOpen
	}

	n, err := unix.Read(p.fd, buf)
	if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
		return 0, nil
	}
	if n < 0 {
		n = 0
	}
	// a hung up tty reads 0 bytes forever, same as an idle one
	if n == 0 && err == nil && p.hungUp() {
		return 0, fmt.Errorf("read %s: %w", p.path, ErrDeviceNotFound)
	}
	return n, err
}

func (p *ttyPort) hungUp() bool {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	if _, err := unix.Poll(fds, 0); err != nil {
		return false
	}
	return fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0
}

// ReadContext reads data with context cancellation support
func (p *ttyPort) ReadContext(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	type readResult struct {
		n   int
		err error
	}
	resultCh := make(chan readResult, 1)

	go func() {
		n, err := p.Read(buf)
		resultCh <- readResult{n: n, err: err}
	}()

	select {
	case result := <-resultCh:
		return result.n, result.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Write writes all of data, polling the fd so the call never blocks longer
// than timeout.
func (p *ttyPort) Write(data []byte, timeout time.Duration) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	if !p.open {
		return 0, ErrPortNotOpen
	}

	deadline := time.Now().Add(timeout)
	written := 0
	for written < len(data) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return written, ErrWriteTimeout
		}

		fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLOUT}}
		ready, err := unix.Poll(fds, int(remaining.Milliseconds())+1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return written, fmt.Errorf("poll %s: %w", p.path, err)
		}
		if ready == 0 {
			return written, ErrWriteTimeout
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return written, fmt.Errorf("write %s: device hung up", p.path)
		}

		n, err := unix.Write(p.fd, data[written:])
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			return written, fmt.Errorf("write %s: %w", p.path, err)
		}
		written += n
	}
	return written, nil
}

// Close closes the tty. Closing twice returns ErrPortClosed.
func (p *ttyPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true

	if !p.open {
		return nil
	}
	p.open = false
	err := unix.Close(p.fd)
	p.fd = -1
	return err
}
