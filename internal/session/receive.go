package session

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const hexDumpWidth = 16

// HexDump renders data as lines of 16 bytes:
//
//	00000000  48 65 6C 6C 6F 0A  Hello.
//
// an 8 digit hex offset, the bytes in upper case hex separated by single
// spaces and the printable ASCII with '.' for everything else. Short lines
// are not padded. Lines are separated by '\n' without a trailing newline.
func HexDump(data []byte) string {
	var b strings.Builder
	for off := 0; off < len(data); off += hexDumpWidth {
		line := data[off:min(off+hexDumpWidth, len(data))]
		if off > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%08X  % X  ", off, line)
		for _, c := range line {
			if c < 0x20 || c > 0x7e {
				c = '.'
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

// FormatChunk renders a received chunk as a byte count header followed by
// its hex dump
func FormatChunk(data []byte) string {
	header := fmt.Sprintf("receive %d bytes\n", len(data))
	if len(data) == 0 {
		return header
	}
	return header + HexDump(data) + "\n"
}

// ReceiveLogger is the read loop listener of a session. Its callbacks run on
// the read goroutine: they log and post events and never touch controller
// state.
type ReceiveLogger struct {
	logger *zap.Logger
	conn   uint64
	post   func(Event)
}

func newReceiveLogger(logger *zap.Logger, conn uint64, post func(Event)) *ReceiveLogger {
	return &ReceiveLogger{logger: logger, conn: conn, post: post}
}

func (r *ReceiveLogger) OnNewData(data []byte) {
	if ce := r.logger.Check(zap.InfoLevel, "receive"); ce != nil {
		ce.Write(zap.Int("bytes", len(data)), zap.String("hex", HexDump(data)))
	}
	r.post(DataReceived{Conn: r.conn, Data: data})
}

func (r *ReceiveLogger) OnRunError(err error) {
	r.logger.Warn("read loop stopped", zap.Error(err))
	r.post(RunError{Conn: r.conn, Err: err})
}
