package serial

import (
	"fmt"
	"os/exec"
	"time"
)

// resetCommand is a variable so tests can observe the invocation
var resetCommand = func(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// resetSettle is how long a reset device is given to re-enumerate
var resetSettle = 2 * time.Second

// ResetDevice performs a USB-level reset of dev. This can recover adapters
// that stopped responding.
//
// Requires the usbreset utility (usbutils) and typically root. Returns
// ErrUSBResetNotAvailable if usbreset is missing and ErrUSBInfoNotAvailable
// if the device has no bus/device numbers.
func ResetDevice(dev Device) error {
	if dev.BusNumber <= 0 || dev.DeviceNumber <= 0 {
		return ErrUSBInfoNotAvailable
	}
	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	if output, err := resetCommand("usbreset", usbResetPath(dev)); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	// devices take a moment to come back and may get a new device number
	time.Sleep(resetSettle)
	return nil
}

// usbResetPath formats the BBB/DDD argument usbreset expects
func usbResetPath(dev Device) string {
	return fmt.Sprintf("%03d/%03d", dev.BusNumber, dev.DeviceNumber)
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
var IsUSBResetAvailable = func() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}
