package session

import (
	"context"
	"sync"
	"time"

	serial "github.com/allbin/serialmagic"
)

type fakePort struct {
	path string

	openErr   error
	paramsErr error
	writeErr  error
	failAfter int // writes that succeed before writeErr is returned

	mu      sync.Mutex
	opened  bool
	closed  int
	params  []int
	writes  []string
	readCh  chan []byte
	readErr chan error
}

func newFakePort(path string) *fakePort {
	return &fakePort{
		path:    path,
		readCh:  make(chan []byte, 16),
		readErr: make(chan error, 1),
	}
}

func (p *fakePort) Path() string { return p.path }

func (p *fakePort) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return p.openErr
	}
	p.opened = true
	return nil
}

func (p *fakePort) SetParameters(baudRate, dataBits, stopBits int, parity serial.Parity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params = []int{baudRate, dataBits, stopBits, int(parity)}
	return p.paramsErr
}

func (p *fakePort) Read(buf []byte) (int, error) {
	select {
	case data := <-p.readCh:
		return copy(buf, data), nil
	case err := <-p.readErr:
		return 0, err
	case <-time.After(5 * time.Millisecond):
		return 0, nil
	}
}

func (p *fakePort) ReadContext(ctx context.Context, buf []byte) (int, error) {
	return p.Read(buf)
}

func (p *fakePort) Write(data []byte, timeout time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil && len(p.writes) >= p.failAfter {
		return 0, p.writeErr
	}
	p.writes = append(p.writes, string(data))
	return len(data), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	if p.closed > 1 {
		return serial.ErrPortClosed
	}
	return nil
}

func (p *fakePort) Writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.writes...)
}

func (p *fakePort) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeConnection struct {
	device serial.Device
	ports  map[int]*fakePort
}

func (c *fakeConnection) Device() serial.Device { return c.device }

func (c *fakeConnection) Port(index int, lineSettings bool) (serial.Port, error) {
	p, ok := c.ports[index]
	if !ok {
		return nil, serial.ErrOpenFailed
	}
	return p, nil
}

type fakeProvider struct {
	mu        sync.Mutex
	devices   []serial.Device
	enumErr   error
	permitted map[int]bool
	openErr   error
	grant     *bool // answer to RequestPermission; nil leaves the request pending
	requests  int
	pending   []func(bool)
	ports     map[int]*fakePort
}

func newFakeProvider(devices ...serial.Device) *fakeProvider {
	return &fakeProvider{
		devices:   devices,
		permitted: make(map[int]bool),
		ports:     make(map[int]*fakePort),
	}
}

func (p *fakeProvider) Devices(ctx context.Context) ([]serial.Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.devices, p.enumErr
}

func (p *fakeProvider) HasPermission(dev serial.Device) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permitted[dev.ID]
}

func (p *fakeProvider) RequestPermission(dev serial.Device, callback func(granted bool)) {
	p.mu.Lock()
	p.requests++
	grant := p.grant
	if grant == nil {
		p.pending = append(p.pending, callback)
		p.mu.Unlock()
		return
	}
	if *grant {
		p.permitted[dev.ID] = true
	}
	p.mu.Unlock()
	go callback(*grant)
}

func (p *fakeProvider) OpenConnection(dev serial.Device) (serial.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	if !p.permitted[dev.ID] {
		return nil, serial.ErrPermissionDenied
	}
	return &fakeConnection{device: dev, ports: p.ports}, nil
}

// answer resolves every pending permission request
func (p *fakeProvider) answer(dev serial.Device, granted bool) {
	p.mu.Lock()
	if granted {
		p.permitted[dev.ID] = true
	}
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()
	for _, callback := range pending {
		go callback(granted)
	}
}

func (p *fakeProvider) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

type recordedStatus struct {
	mu       sync.Mutex
	statuses []string
	notes    []string
}

func (s *recordedStatus) Status(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, msg)
}

func (s *recordedStatus) Notify(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, msg)
}

func (s *recordedStatus) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

func (s *recordedStatus) Notes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notes...)
}
