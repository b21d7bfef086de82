package session

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Sender writes a fixed command sequence over the controller's connection
type Sender struct {
	c        *Controller
	commands []string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewSender(c *Controller, commands []string, timeout time.Duration) *Sender {
	return &Sender{
		c:        c,
		commands: commands,
		timeout:  timeout,
		logger:   c.logger.Named("sender"),
	}
}

// Send writes every command followed by '\n', one write per command. The
// first failed write aborts the sequence and drops the connection.
func (s *Sender) Send(ctx context.Context) error {
	port := s.c.port
	if s.c.state != Connected || port == nil {
		s.c.status.Notify("not connected")
		return ErrNotConnected
	}

	for i, cmd := range s.commands {
		if err := ctx.Err(); err != nil {
			return err
		}

		data := []byte(cmd + "\n")
		n, err := port.Write(data, s.timeout)
		if err == nil && n != len(data) {
			err = io.ErrShortWrite
		}
		if err != nil {
			err = fmt.Errorf("%w: command %d %q: %w", ErrWriteFailed, i, cmd, err)
			s.c.connectionLost(err)
			return err
		}
		s.logger.Debug("sent", zap.Int("index", i), zap.String("command", cmd))
	}

	s.logger.Info("command sequence sent", zap.Int("commands", len(s.commands)))
	return nil
}
