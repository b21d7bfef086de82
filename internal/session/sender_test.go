package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSendNotConnected(t *testing.T) {
	h := newHarness(t, DefaultSettings(), ftdiDual)
	s := NewSender(h.c, DefaultCommands, h.c.Settings().WriteTimeout)

	if err := s.Send(context.Background()); err != ErrNotConnected {
		t.Fatalf("Send() = %v, want ErrNotConnected", err)
	}
	for i, p := range h.provider.ports {
		if n := len(p.Writes()); n != 0 {
			t.Errorf("port %d got %d writes while disconnected", i, n)
		}
	}
	if diff := cmp.Diff([]string{"not connected"}, h.status.Notes()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestSendCommandSequence(t *testing.T) {
	h := newHarness(t, DefaultSettings(), ftdiDual)
	if err := h.c.Connect(context.Background(), ftdiDual.ID, 0); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	s := NewSender(h.c, h.c.Settings().Commands, h.c.Settings().WriteTimeout)
	if err := s.Send(context.Background()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	want := []string{
		"admin\n",
		"admin\n",
		"configure\n",
		"set system time-zone Brazil/East\n",
		"set system host-name diadema\n",
		"commit\n",
		"exit\n",
		"exit\n",
	}
	if diff := cmp.Diff(want, h.provider.ports[0].Writes()); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
	if n := len(h.provider.ports[1].Writes()); n != 0 {
		t.Errorf("unselected port got %d writes", n)
	}
}

func TestSendWriteFailureAborts(t *testing.T) {
	h := newHarness(t, DefaultSettings(), ftdiDual)
	port := h.provider.ports[0]
	port.writeErr = errors.New("write timed out")
	port.failAfter = 2

	if err := h.c.Connect(context.Background(), ftdiDual.ID, 0); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	err := NewSender(h.c, DefaultCommands, 0).Send(context.Background())
	if !errors.Is(err, ErrWriteFailed) || !errors.Is(err, port.writeErr) {
		t.Fatalf("Send() = %v, want ErrWriteFailed wrapping the write error", err)
	}
	if got := len(port.Writes()); got != 2 {
		t.Errorf("%d commands written before the failure, want 2", got)
	}
	if h.c.State() != Disconnected {
		t.Errorf("State() = %v after write failure, want disconnected", h.c.State())
	}
	if h.status.Last() == "connected" {
		t.Error("write failure was not reported")
	}
}

func TestSendCancelled(t *testing.T) {
	h := newHarness(t, DefaultSettings(), ftdiDual)
	if err := h.c.Connect(context.Background(), ftdiDual.ID, 0); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewSender(h.c, DefaultCommands, 0).Send(ctx); err != context.Canceled {
		t.Errorf("Send() = %v, want context.Canceled", err)
	}
	if n := len(h.provider.ports[0].Writes()); n != 0 {
		t.Errorf("got %d writes after cancellation", n)
	}
}
