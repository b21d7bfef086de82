package serial

import "fmt"

// Device is a USB peripheral exposing one or more serial ttys. Values are
// snapshots taken at enumeration time and are never updated in place.
type Device struct {
	ID           int    // busnum*1000 + devnum
	Name         string // sysfs name, e.g. "1-2.3"
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Manufacturer string
	Product      string
	BusNumber    int
	DeviceNumber int
	KernelDriver string   // driver bound to the first serial interface
	TTYs         []string // device nodes ordered by interface number
}

// DeviceID computes the identifier used for a device on the given bus
func DeviceID(bus, dev int) int {
	return bus*1000 + dev
}

// USBID renders the vendor and product ids as "vvvv:pppp"
func (d Device) USBID() string {
	return fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID)
}

// DisplayName is a short human-readable label for the device
func (d Device) DisplayName() string {
	switch {
	case d.Manufacturer != "" && d.Product != "":
		return d.Manufacturer + " " + d.Product
	case d.Product != "":
		return d.Product
	default:
		return d.USBID()
	}
}

func (d Device) String() string {
	return fmt.Sprintf("%d (%s %s)", d.ID, d.USBID(), d.DisplayName())
}

// FindDevice returns the device with the given id
func FindDevice(devices []Device, id int) (Device, bool) {
	for _, d := range devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}
