package session

import "go.uber.org/zap"

// StatusSink shows controller outcomes to the user. Status replaces the
// persistent status line, Notify is a transient message.
type StatusSink interface {
	Status(msg string)
	Notify(msg string)
}

// LogStatus writes status messages to a logger
type LogStatus struct {
	logger *zap.Logger
}

func NewLogStatus(logger *zap.Logger) *LogStatus {
	return &LogStatus{logger: logger.Named("status")}
}

func (s *LogStatus) Status(msg string) {
	s.logger.Info(msg)
}

func (s *LogStatus) Notify(msg string) {
	s.logger.Info(msg, zap.Bool("transient", true))
}

type discardStatus struct{}

func (discardStatus) Status(string) {}
func (discardStatus) Notify(string) {}
