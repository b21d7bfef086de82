package session

import (
	"time"

	serial "github.com/allbin/serialmagic"
)

// DefaultCommands is the configuration sequence written after connecting
var DefaultCommands = []string{
	"admin",
	"admin",
	"configure",
	"set system time-zone Brazil/East",
	"set system host-name diadema",
	"commit",
	"exit",
	"exit",
}

const DefaultQueueSize = 64

// Settings are the line parameters and behaviour of a session
type Settings struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   serial.Parity

	// Stream starts the background read loop on connect
	Stream bool

	Commands     []string
	WriteTimeout time.Duration

	// QueueSize is the capacity of the event queue
	QueueSize int
}

func DefaultSettings() Settings {
	return Settings{
		BaudRate:     9600,
		DataBits:     8,
		StopBits:     1,
		Parity:       serial.ParityNone,
		Commands:     append([]string(nil), DefaultCommands...),
		WriteTimeout: 2000 * time.Millisecond,
		QueueSize:    DefaultQueueSize,
	}
}
