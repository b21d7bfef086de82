package serial

import "errors"

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrOpenFailed       = errors.New("failed to open serial device")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrPortNotOpen      = errors.New("serial port is not open")
	ErrWriteTimeout     = errors.New("write operation timed out")

	// ErrParametersUnsupported is returned by SetParameters when the driver
	// accepts data but ignores line settings. Callers may treat it as a warning.
	ErrParametersUnsupported = errors.New("line parameters not supported by driver")

	// Read loop errors
	ErrIOManagerRunning = errors.New("read loop already running")

	// USB-related errors
	ErrNoUSBSupport         = errors.New("USB sysfs tree not available")
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)
