// Package serial is the host transport for serialmagic: it discovers USB
// serial adapters, opens their ttys and runs the background read loop.
//
// # Devices
//
// ListDevices groups the USB ttys reported by the enumerator by the USB
// device they belong to, reading vendor/product ids and bus numbers from
// sysfs:
//
//	devices, err := serial.ListDevices(ctx)
//	for _, dev := range devices {
//	    fmt.Printf("%d %s %v\n", dev.ID, dev.USBID(), dev.TTYs)
//	}
//
// A non-nil error may accompany a partial list when some ports could not be
// resolved.
//
// # Access
//
// SystemProvider implements Provider. Access to a device means every one of
// its ttys is readable and writable by this process. RequestPermission runs an
// external helper to change that and reports back through a callback:
//
//	provider := serial.NewSystemProvider(
//	    serial.WithPermissionCommand("pkexec", "chmod", "0666"),
//	)
//	if !provider.HasPermission(dev) {
//	    provider.RequestPermission(dev, func(granted bool) { ... })
//	}
//
// # Ports
//
//	conn, err := provider.OpenConnection(dev)
//	port, err := conn.Port(0, true)
//	err = port.Open()
//	err = port.SetParameters(9600, 8, 1, serial.ParityNone)
//	n, err := port.Write([]byte("admin\n"), 2*time.Second)
//
// SetParameters returns ErrParametersUnsupported when the driver ignores
// line settings; data still flows.
//
// # Read loop
//
// IOManager reads a port on its own goroutine and pushes every chunk to a
// Listener. Clear the listener before Stop to guarantee no callback runs
// after teardown:
//
//	m := serial.NewIOManager(port, listener)
//	m.Start()
//	...
//	m.SetListener(nil)
//	m.Stop()
//
// # Default Configuration
//
//   - BaudRate: 9600
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - ReadTimeout: 200ms
package serial
