/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"github.com/spf13/viper"
	"go.uber.org/zap"

	serial "github.com/allbin/serialmagic"
	"github.com/allbin/serialmagic/internal/logging"
	"github.com/allbin/serialmagic/internal/session"
	"github.com/allbin/serialmagic/internal/settings"
	"github.com/allbin/serialmagic/probe"
)

// runtime is what every command builds from the loaded configuration
type runtime struct {
	settings settings.Settings
	logger   *zap.Logger
	provider *serial.SystemProvider
	probers  []probe.Prober
	closeLog func() error
}

// newRuntime loads settings and builds the logger, provider and probers.
// console selects whether logs go to stderr in addition to the log file.
func newRuntime(console bool) (*runtime, error) {
	s, err := settings.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	s.Log.Console = console

	logger, closeLog, err := logging.New(s.Log)
	if err != nil {
		return nil, err
	}

	opts := []serial.ProviderOption{
		serial.WithErrorHandler(func(err error) {
			logger.Warn("permission helper", zap.Error(err))
		}),
	}
	if len(s.PermissionCommand) > 0 {
		opts = append(opts, serial.WithPermissionCommand(s.PermissionCommand...))
	}

	return &runtime{
		settings: s,
		logger:   logger,
		provider: serial.NewSystemProvider(opts...),
		probers:  []probe.Prober{probe.DefaultProber(), probe.CustomProber(s.CustomProbes...)},
		closeLog: closeLog,
	}, nil
}

func (r *runtime) controller(status session.StatusSink) *session.Controller {
	return session.NewController(r.provider, r.probers, r.settings.Session, r.logger, status)
}

func (r *runtime) sender(c *session.Controller) *session.Sender {
	return session.NewSender(c, r.settings.Session.Commands, r.settings.Session.WriteTimeout)
}

func (r *runtime) Close() error {
	_ = r.logger.Sync()
	return logging.Close(r.closeLog)
}
