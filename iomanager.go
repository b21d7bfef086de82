package serial

import (
	"errors"
	"sync"
)

// Reader is the read side of a Port as seen by the read loop
type Reader interface {
	Read(buf []byte) (int, error)
}

// Listener receives events from an IOManager. Both callbacks run on the read
// loop goroutine and must return quickly.
type Listener interface {
	OnNewData(data []byte)
	OnRunError(err error)
}

const readBufferSize = 4096

// IOManager runs a background read loop and pushes every received chunk to
// its Listener.
type IOManager struct {
	reader Reader

	mu       sync.Mutex
	listener Listener
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewIOManager creates a stopped read loop for reader
func NewIOManager(reader Reader, listener Listener) *IOManager {
	return &IOManager{
		reader:   reader,
		listener: listener,
	}
}

// SetListener replaces the listener. Setting nil before Stop guarantees that
// no event is delivered after teardown.
func (m *IOManager) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

func (m *IOManager) currentListener() Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listener
}

// Running reports whether the read loop goroutine is active
func (m *IOManager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start launches the read loop
func (m *IOManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrIOManagerRunning
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.run(m.stopCh, m.doneCh)
	return nil
}

// Stop ends the read loop and waits for it to exit. Safe to call repeatedly.
func (m *IOManager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (m *IOManager) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	buffer := make([]byte, readBufferSize)
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		n, err := m.reader.Read(buffer)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buffer[:n])
			if l := m.currentListener(); l != nil {
				l.OnNewData(data)
			}
		}
		if err != nil {
			select {
			case <-stopCh:
				// port closed underneath us during shutdown
				return
			default:
			}
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			if errors.Is(err, ErrPortClosed) {
				return
			}
			if l := m.currentListener(); l != nil {
				l.OnRunError(err)
			}
			return
		}
	}
}
