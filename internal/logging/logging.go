// Package logging builds the zap loggers used by serialmagic.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects where log output goes
type Config struct {
	Level string
	// File, when set, receives a rotated copy of the log
	File string
	// Console writes to stderr. The TUI turns this off so logs never draw
	// over the screen.
	Console bool
}

// NewEncoderConfig is the encoder shared by every sink. Stacktraces are
// disabled and levels are capitalised.
func NewEncoderConfig(color bool) zapcore.EncoderConfig {
	level := zapcore.CapitalLevelEncoder
	if color {
		level = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    level,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// New builds a logger for cfg. The returned close function flushes and
// closes the log file.
func New(cfg Config) (*zap.Logger, func() error, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = zapcore.ParseLevel(cfg.Level); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	var cores []zapcore.Core
	closeFn := func() error { return nil }

	if cfg.Console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(NewEncoderConfig(true)),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(NewEncoderConfig(false)),
			zapcore.AddSync(file),
			level,
		))
		closeFn = file.Close
	}

	if len(cores) == 0 {
		return zap.NewNop(), closeFn, nil
	}

	logger := zap.New(zapcore.NewTee(cores...))
	return logger, func() error {
		// syncing stderr fails on terminals, only the file matters
		_ = logger.Sync()
		return closeFn()
	}, nil
}

// Close runs every close function and combines their errors
func Close(fns ...func() error) error {
	var errs error
	for _, fn := range fns {
		if fn != nil {
			errs = multierr.Append(errs, fn())
		}
	}
	return errs
}
