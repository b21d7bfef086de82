package probe

import (
	"fmt"

	serial "github.com/allbin/serialmagic"
)

// Port is one serial endpoint of a Driver
type Port struct {
	Index int
	// Path is the tty bound to this port, empty if the kernel exposes none
	Path string
}

// Driver is a device recognised as a member of a chipset family
type Driver struct {
	Device serial.Device
	Family Family
	Ports  []Port
}

func newDriver(dev serial.Device, family Family) *Driver {
	n := family.portCount(dev)
	ports := make([]Port, n)
	for i := range ports {
		ports[i] = Port{Index: i}
		if i < len(dev.TTYs) {
			ports[i].Path = dev.TTYs[i]
		}
	}
	return &Driver{Device: dev, Family: family, Ports: ports}
}

// SupportsParameters reports whether SetParameters has an effect on this
// driver's ports
func (d *Driver) SupportsParameters() bool {
	return d.Family.SupportsParameters()
}

func (d *Driver) String() string {
	return fmt.Sprintf("%s (%d ports)", d.Family, len(d.Ports))
}
