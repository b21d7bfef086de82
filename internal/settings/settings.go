// Package settings loads serialmagic configuration from viper.
package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	serial "github.com/allbin/serialmagic"
	"github.com/allbin/serialmagic/internal/logging"
	"github.com/allbin/serialmagic/internal/session"
	"github.com/allbin/serialmagic/probe"
)

const (
	KeyBaud              = "serial.baud"
	KeyDataBits          = "serial.data_bits"
	KeyStopBits          = "serial.stop_bits"
	KeyParity            = "serial.parity"
	KeyWriteTimeout      = "serial.write_timeout"
	KeyStream            = "serial.stream"
	KeyCommands          = "commands"
	KeyCustomProbes      = "probe.custom"
	KeyPermissionCommand = "permission.command"
	KeyLogLevel          = "log.level"
	KeyLogFile           = "log.file"
	KeyQueueSize         = "events.queue_size"
)

// EnvPrefix is prepended to environment overrides, e.g. SERIALMAGIC_SERIAL_BAUD
const EnvPrefix = "SERIALMAGIC"

// Settings is the validated configuration of a run
type Settings struct {
	Session           session.Settings
	CustomProbes      []probe.Entry
	PermissionCommand []string
	Log               logging.Config
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	d := session.DefaultSettings()
	v.SetDefault(KeyBaud, d.BaudRate)
	v.SetDefault(KeyDataBits, d.DataBits)
	v.SetDefault(KeyStopBits, d.StopBits)
	v.SetDefault(KeyParity, d.Parity.String())
	v.SetDefault(KeyWriteTimeout, d.WriteTimeout)
	v.SetDefault(KeyStream, d.Stream)
	v.SetDefault(KeyCommands, d.Commands)
	v.SetDefault(KeyPermissionCommand, []string{"pkexec", "chmod", "0666"})
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyQueueSize, d.QueueSize)
}

// probeEntry is the config file form of a probe.Entry:
//
//	probe:
//	  custom:
//	    - {vid: "0x1234", pid: "0x0003", family: ftdi}
type probeEntry struct {
	VID    string `mapstructure:"vid"`
	PID    string `mapstructure:"pid"`
	Family string `mapstructure:"family"`
}

// Load reads and validates the configuration held by v
func Load(v *viper.Viper) (Settings, error) {
	parity, err := serial.ParseParity(v.GetString(KeyParity))
	if err != nil {
		return Settings{}, err
	}

	s := session.Settings{
		BaudRate:     v.GetInt(KeyBaud),
		DataBits:     v.GetInt(KeyDataBits),
		StopBits:     v.GetInt(KeyStopBits),
		Parity:       parity,
		Stream:       v.GetBool(KeyStream),
		Commands:     v.GetStringSlice(KeyCommands),
		WriteTimeout: v.GetDuration(KeyWriteTimeout),
		QueueSize:    v.GetInt(KeyQueueSize),
	}

	// line settings go through the same validation as a port
	if _, err := serial.NewConfig(
		serial.WithBaudRate(s.BaudRate),
		serial.WithDataBits(s.DataBits),
		serial.WithStopBits(s.StopBits),
		serial.WithParity(s.Parity),
	); err != nil {
		return Settings{}, err
	}
	if s.WriteTimeout <= 0 {
		return Settings{}, fmt.Errorf("%w: %s must be positive, got %v", serial.ErrInvalidConfig, KeyWriteTimeout, s.WriteTimeout)
	}
	if s.QueueSize <= 0 {
		return Settings{}, fmt.Errorf("%w: %s must be positive, got %d", serial.ErrInvalidConfig, KeyQueueSize, s.QueueSize)
	}

	var raw []probeEntry
	if err := v.UnmarshalKey(KeyCustomProbes, &raw); err != nil {
		return Settings{}, fmt.Errorf("%w: %s: %v", serial.ErrInvalidConfig, KeyCustomProbes, err)
	}
	entries := make([]probe.Entry, 0, len(raw))
	for i, r := range raw {
		e, err := r.entry()
		if err != nil {
			return Settings{}, fmt.Errorf("%s[%d]: %w", KeyCustomProbes, i, err)
		}
		entries = append(entries, e)
	}

	return Settings{
		Session:           s,
		CustomProbes:      entries,
		PermissionCommand: v.GetStringSlice(KeyPermissionCommand),
		Log: logging.Config{
			Level: v.GetString(KeyLogLevel),
			File:  v.GetString(KeyLogFile),
		},
	}, nil
}

func (r probeEntry) entry() (probe.Entry, error) {
	vid, err := parseUSBID(r.VID)
	if err != nil {
		return probe.Entry{}, fmt.Errorf("%w: vid %q", probe.ErrInvalidEntry, r.VID)
	}
	pid, err := parseUSBID(r.PID)
	if err != nil {
		return probe.Entry{}, fmt.Errorf("%w: pid %q", probe.ErrInvalidEntry, r.PID)
	}
	family, err := probe.ParseFamily(r.Family)
	if err != nil {
		return probe.Entry{}, err
	}
	return probe.Entry{VendorID: vid, ProductID: pid, Family: family}, nil
}

// parseUSBID accepts "1234" and "0x1234", both hexadecimal
func parseUSBID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	return uint16(v), err
}
