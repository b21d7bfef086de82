package probe

import (
	serial "github.com/allbin/serialmagic"
)

// Key identifies a list row. Port indexes repeat across devices so the
// device id is part of the key.
type Key struct {
	DeviceID int
	Port     int
}

// ListItem is one selectable (device, port) pair. Driver is nil when no
// prober recognised the device, in which case Port is always 0.
type ListItem struct {
	Device serial.Device
	Port   int
	Driver *Driver
}

func (i ListItem) Key() Key {
	return Key{DeviceID: i.Device.ID, Port: i.Port}
}

// Path is the tty of the item, if known
func (i ListItem) Path() string {
	if i.Driver != nil && i.Port < len(i.Driver.Ports) {
		return i.Driver.Ports[i.Port].Path
	}
	return ""
}

// Items expands devices into list rows, one per driver port
func Items(devices []serial.Device, probers ...Prober) []ListItem {
	var items []ListItem
	for _, dev := range devices {
		driver, ok := Resolve(dev, probers...)
		if !ok {
			items = append(items, ListItem{Device: dev, Port: 0})
			continue
		}
		for _, p := range driver.Ports {
			items = append(items, ListItem{Device: dev, Port: p.Index, Driver: driver})
		}
	}
	return items
}
