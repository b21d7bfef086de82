package serial

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/multierr"
)

var (
	// listPorts is a variable so tests can substitute a fixed port list
	listPorts = enumerator.GetDetailedPortsList

	// sysfsRoot is where USB metadata is read from
	sysfsRoot = "/sys"
)

// usbPort is one tty resolved to its USB interface and device
type usbPort struct {
	path            string
	interfaceNumber int
	kernelDriver    string
	deviceDir       string
}

// ListDevices enumerates USB serial devices, grouping their ttys by the USB
// device they belong to. Ports that cannot be resolved through sysfs are
// skipped and reported in the returned error alongside the devices that
// could be listed.
func ListDevices(ctx context.Context) ([]Device, error) {
	if _, err := os.Stat(filepath.Join(sysfsRoot, "class", "tty")); err != nil {
		return nil, ErrNoUSBSupport
	}

	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	var errs error
	byDevice := make(map[string][]usbPort)
	for _, p := range ports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !p.IsUSB {
			continue
		}

		resolved, err := resolveUSBPort(p.Name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		byDevice[resolved.deviceDir] = append(byDevice[resolved.deviceDir], resolved)
	}

	devices := make([]Device, 0, len(byDevice))
	for dir, group := range byDevice {
		dev, err := readDevice(dir, group)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		devices = append(devices, dev)
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].ID != devices[j].ID {
			return devices[i].ID < devices[j].ID
		}
		return devices[i].Name < devices[j].Name
	})

	return devices, errs
}

// resolveUSBPort follows /sys/class/tty/<name>/device up to the USB
// interface and device directories
func resolveUSBPort(portPath string) (usbPort, error) {
	name := filepath.Base(portPath)
	link := filepath.Join(sysfsRoot, "class", "tty", name, "device")

	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		return usbPort{}, fmt.Errorf("%s: %w", name, ErrUSBInfoNotAvailable)
	}

	// usb-serial ttys sit one level below the interface, cdc-acm ttys are
	// the interface itself
	interfaceDir := ""
	for dir, i := resolved, 0; i < 3; dir, i = filepath.Dir(dir), i+1 {
		if _, err := os.Stat(filepath.Join(dir, "bInterfaceNumber")); err == nil {
			interfaceDir = dir
			break
		}
	}
	if interfaceDir == "" {
		return usbPort{}, fmt.Errorf("%s: no USB interface: %w", name, ErrUSBInfoNotAvailable)
	}

	deviceDir := filepath.Dir(interfaceDir)
	if readSysfsFile(filepath.Join(deviceDir, "idVendor")) == "" {
		return usbPort{}, fmt.Errorf("%s: no USB device: %w", name, ErrUSBInfoNotAvailable)
	}

	ifNum, _ := strconv.ParseInt(readSysfsFile(filepath.Join(interfaceDir, "bInterfaceNumber")), 16, 32)

	driver := ""
	if target, err := os.Readlink(filepath.Join(interfaceDir, "driver")); err == nil {
		driver = filepath.Base(target)
	}

	return usbPort{
		path:            portPath,
		interfaceNumber: int(ifNum),
		kernelDriver:    driver,
		deviceDir:       deviceDir,
	}, nil
}

func readDevice(dir string, ports []usbPort) (Device, error) {
	vid, err := parseHexID(readSysfsFile(filepath.Join(dir, "idVendor")))
	if err != nil {
		return Device{}, fmt.Errorf("%s: idVendor: %w", filepath.Base(dir), err)
	}
	pid, err := parseHexID(readSysfsFile(filepath.Join(dir, "idProduct")))
	if err != nil {
		return Device{}, fmt.Errorf("%s: idProduct: %w", filepath.Base(dir), err)
	}
	bus, _ := strconv.Atoi(readSysfsFile(filepath.Join(dir, "busnum")))
	devnum, _ := strconv.Atoi(readSysfsFile(filepath.Join(dir, "devnum")))

	sort.Slice(ports, func(i, j int) bool {
		if ports[i].interfaceNumber != ports[j].interfaceNumber {
			return ports[i].interfaceNumber < ports[j].interfaceNumber
		}
		return ports[i].path < ports[j].path
	})

	ttys := make([]string, len(ports))
	for i, p := range ports {
		ttys[i] = p.path
	}

	return Device{
		ID:           DeviceID(bus, devnum),
		Name:         filepath.Base(dir),
		VendorID:     vid,
		ProductID:    pid,
		SerialNumber: readSysfsFile(filepath.Join(dir, "serial")),
		Manufacturer: readSysfsFile(filepath.Join(dir, "manufacturer")),
		Product:      readSysfsFile(filepath.Join(dir, "product")),
		BusNumber:    bus,
		DeviceNumber: devnum,
		KernelDriver: ports[0].kernelDriver,
		TTYs:         ttys,
	}, nil
}

func parseHexID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// readSysfsFile returns the trimmed content of a sysfs attribute, or "" if
// it cannot be read
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
