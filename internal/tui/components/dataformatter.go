package components

import (
	"strings"
	"time"

	"github.com/allbin/serialmagic/internal/session"
	"github.com/allbin/serialmagic/internal/tui/styles"
)

// EntryKind tells received data apart from controller messages in the log
type EntryKind int

const (
	EntryReceive EntryKind = iota
	EntryStatus
)

// LogEntry is one block of the received data log
type LogEntry struct {
	Timestamp time.Time
	Kind      EntryKind
	Data      []byte // EntryReceive
	Text      string // EntryStatus
}

type DataFormatter struct {
	showTimestamps bool
}

func NewDataFormatter(showTimestamps bool) *DataFormatter {
	return &DataFormatter{showTimestamps: showTimestamps}
}

func (df *DataFormatter) ToggleTimestamps() {
	df.showTimestamps = !df.showTimestamps
}

// FormatEntry renders an entry as one or more lines. Received chunks use the
// same layout as the log file so the two can be compared.
func (df *DataFormatter) FormatEntry(entry LogEntry) string {
	var body string
	switch entry.Kind {
	case EntryReceive:
		chunk := strings.TrimSuffix(session.FormatChunk(entry.Data), "\n")
		header, dump, _ := strings.Cut(chunk, "\n")
		body = styles.ReceiveStyle.Render("↙ " + header)
		if dump != "" {
			body += "\n" + dump
		}
	case EntryStatus:
		body = styles.TimestampStyle.Render("• " + entry.Text)
	}

	if !df.showTimestamps {
		return body
	}
	ts := styles.TimestampStyle.Render("[" + entry.Timestamp.Format("15:04:05.000") + "]")
	return ts + " " + body
}

func (df *DataFormatter) FormatEntries(entries []LogEntry) []string {
	formatted := make([]string, len(entries))
	for i, e := range entries {
		formatted[i] = df.FormatEntry(e)
	}
	return formatted
}
