package serial

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedReader returns its chunks in order, then err (or idles if err is nil)
type scriptedReader struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
}

func (r *scriptedReader) Read(buf []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.chunks) > 0 {
		n := copy(buf, r.chunks[0])
		r.chunks = r.chunks[1:]
		return n, nil
	}
	if r.err != nil {
		return 0, r.err
	}
	time.Sleep(time.Millisecond)
	return 0, nil
}

type recordingListener struct {
	mu     sync.Mutex
	data   [][]byte
	errs   []error
	dataCh chan struct{}
	errCh  chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		dataCh: make(chan struct{}, 16),
		errCh:  make(chan struct{}, 16),
	}
}

func (l *recordingListener) OnNewData(data []byte) {
	l.mu.Lock()
	l.data = append(l.data, data)
	l.mu.Unlock()
	l.dataCh <- struct{}{}
}

func (l *recordingListener) OnRunError(err error) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
	l.errCh <- struct{}{}
}

func waitSignal(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for listener callback")
	}
}

func TestIOManagerDeliversChunks(t *testing.T) {
	reader := &scriptedReader{chunks: [][]byte{{0x01, 0x02}, {0x03}}}
	listener := newRecordingListener()

	m := NewIOManager(reader, listener)
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitSignal(t, listener.dataCh)
	waitSignal(t, listener.dataCh)
	m.Stop()

	listener.mu.Lock()
	defer listener.mu.Unlock()
	if len(listener.data) != 2 {
		t.Fatalf("got %d chunks, want 2", len(listener.data))
	}
	if len(listener.data[0]) != 2 || listener.data[1][0] != 0x03 {
		t.Errorf("unexpected chunks: %v", listener.data)
	}
	if len(listener.errs) != 0 {
		t.Errorf("unexpected errors: %v", listener.errs)
	}
}

func TestIOManagerRunError(t *testing.T) {
	boom := errors.New("device unplugged")
	reader := &scriptedReader{err: boom}
	listener := newRecordingListener()

	m := NewIOManager(reader, listener)
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitSignal(t, listener.errCh)

	// give the loop a moment to publish its stopped state
	deadline := time.Now().Add(time.Second)
	for m.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if m.Running() {
		t.Error("read loop still running after run error")
	}
	m.Stop()

	listener.mu.Lock()
	defer listener.mu.Unlock()
	if len(listener.errs) != 1 || !errors.Is(listener.errs[0], boom) {
		t.Errorf("errs = %v, want exactly [%v]", listener.errs, boom)
	}
}

func TestIOManagerStartTwice(t *testing.T) {
	m := NewIOManager(&scriptedReader{}, nil)
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()
	if err := m.Start(); err != ErrIOManagerRunning {
		t.Errorf("second Start: expected ErrIOManagerRunning, got %v", err)
	}
}

func TestIOManagerStopIdempotent(t *testing.T) {
	m := NewIOManager(&scriptedReader{}, newRecordingListener())
	m.Stop()
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.Stop()
	m.Stop()
	if m.Running() {
		t.Error("Running() = true after Stop")
	}
}

func TestIOManagerNilListenerDropsEvents(t *testing.T) {
	reader := &scriptedReader{chunks: [][]byte{{0xAA}}, err: errors.New("gone")}
	listener := newRecordingListener()

	m := NewIOManager(reader, listener)
	m.SetListener(nil)
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	m.Stop()

	listener.mu.Lock()
	defer listener.mu.Unlock()
	if len(listener.data) != 0 || len(listener.errs) != 0 {
		t.Errorf("listener received events after being cleared: data=%v errs=%v", listener.data, listener.errs)
	}
}
