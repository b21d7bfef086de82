package models

import (
	"github.com/google/go-cmp/cmp"

	"github.com/allbin/serialmagic/probe"
)

// Diff describes how a new enumeration differs from the previous one
type Diff struct {
	Inserted []probe.Key
	Removed  []probe.Key
	Changed  []probe.Key
}

func (d Diff) Empty() bool {
	return len(d.Inserted) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DeviceList holds the latest enumeration result as an ordered list of
// (device, port) items. Items are identified by device id and port index;
// two items with the same key are compared field by field to detect changes.
type DeviceList struct {
	items []probe.ListItem
	index map[probe.Key]int
}

func NewDeviceList() *DeviceList {
	return &DeviceList{index: make(map[probe.Key]int)}
}

// Replace swaps in a new enumeration result in full and reports the
// difference to the previous one
func (l *DeviceList) Replace(items []probe.ListItem) Diff {
	var diff Diff

	index := make(map[probe.Key]int, len(items))
	for i, item := range items {
		key := item.Key()
		index[key] = i

		prev, ok := l.index[key]
		switch {
		case !ok:
			diff.Inserted = append(diff.Inserted, key)
		case !cmp.Equal(l.items[prev], item):
			diff.Changed = append(diff.Changed, key)
		}
	}
	for _, item := range l.items {
		if _, ok := index[item.Key()]; !ok {
			diff.Removed = append(diff.Removed, item.Key())
		}
	}

	l.items = append([]probe.ListItem(nil), items...)
	l.index = index
	return diff
}

func (l *DeviceList) Items() []probe.ListItem {
	return l.items
}

func (l *DeviceList) Len() int {
	return len(l.items)
}

// Find returns the position of the item with key
func (l *DeviceList) Find(key probe.Key) (int, bool) {
	i, ok := l.index[key]
	return i, ok
}

// SelectedMsg is emitted when the user picks a list item
type SelectedMsg struct {
	Item probe.ListItem
}

// Select returns the selection event for the item at index
func (l *DeviceList) Select(index int) (SelectedMsg, bool) {
	if index < 0 || index >= len(l.items) {
		return SelectedMsg{}, false
	}
	return SelectedMsg{Item: l.items[index]}, true
}
