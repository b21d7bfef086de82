package probe

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	serial "github.com/allbin/serialmagic"
)

func TestParseFamily(t *testing.T) {
	tests := []struct {
		input   string
		want    Family
		wantErr bool
	}{
		{"ftdi", FamilyFTDI, false},
		{"FTDI", FamilyFTDI, false},
		{" cp21xx ", FamilyCP21xx, false},
		{"ch34x", FamilyCH34x, false},
		{"prolific", FamilyProlific, false},
		{"cdc-acm", FamilyCDCACM, false},
		{"generic", FamilyGeneric, false},
		{"unrecognized", FamilyUnrecognized, true},
		{"pl2303", FamilyUnrecognized, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFamily(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFamily) {
					t.Errorf("ParseFamily(%q) error = %v, want ErrUnknownFamily", tt.input, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFamily(%q) = %v, %v; want %v", tt.input, got, err, tt.want)
			}
		})
	}
}

func TestDefaultProber(t *testing.T) {
	tests := []struct {
		name       string
		dev        serial.Device
		wantFamily Family
		wantPorts  int
		wantOK     bool
	}{
		{
			name:       "FT232R",
			dev:        serial.Device{VendorID: 0x0403, ProductID: 0x6001, TTYs: []string{"/dev/ttyUSB0"}},
			wantFamily: FamilyFTDI, wantPorts: 1, wantOK: true,
		},
		{
			name:       "FT2232 with one bound tty",
			dev:        serial.Device{VendorID: 0x0403, ProductID: 0x6010, TTYs: []string{"/dev/ttyUSB0"}},
			wantFamily: FamilyFTDI, wantPorts: 2, wantOK: true,
		},
		{
			name:       "CP2108",
			dev:        serial.Device{VendorID: 0x10c4, ProductID: 0xea71},
			wantFamily: FamilyCP21xx, wantPorts: 4, wantOK: true,
		},
		{
			name:       "CH340",
			dev:        serial.Device{VendorID: 0x1a86, ProductID: 0x7523},
			wantFamily: FamilyCH34x, wantPorts: 1, wantOK: true,
		},
		{
			name:       "PL2303",
			dev:        serial.Device{VendorID: 0x067b, ProductID: 0x2303},
			wantFamily: FamilyProlific, wantPorts: 1, wantOK: true,
		},
		{
			name:       "CDC-ACM by kernel driver",
			dev:        serial.Device{VendorID: 0x2341, ProductID: 0x0043, KernelDriver: "cdc_acm", TTYs: []string{"/dev/ttyACM0", "/dev/ttyACM1"}},
			wantFamily: FamilyCDCACM, wantPorts: 2, wantOK: true,
		},
		{
			name:   "custom product is not in the default table",
			dev:    serial.Device{VendorID: 0x1234, ProductID: 0x0001, KernelDriver: "usbserial_generic"},
			wantOK: false,
		},
	}

	prober := DefaultProber()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := prober.Probe(tt.dev)
			if ok != tt.wantOK {
				t.Fatalf("Probe() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if d.Family != tt.wantFamily {
				t.Errorf("Family = %v, want %v", d.Family, tt.wantFamily)
			}
			if len(d.Ports) != tt.wantPorts {
				t.Errorf("len(Ports) = %d, want %d", len(d.Ports), tt.wantPorts)
			}
		})
	}
}

func TestCustomProberResolvesRegistryDevice(t *testing.T) {
	dev := serial.Device{ID: 2005, VendorID: 0x1234, ProductID: 0x0001, TTYs: []string{"/dev/ttyUSB0"}}

	if _, ok := DefaultProber().Probe(dev); ok {
		t.Fatal("default prober should not recognise 1234:0001")
	}

	d, ok := Resolve(dev, DefaultProber(), CustomProber())
	if !ok {
		t.Fatal("Resolve did not find a driver for 1234:0001")
	}
	if d.Family != FamilyFTDI {
		t.Errorf("Family = %v, want ftdi", d.Family)
	}
	if len(d.Ports) < 1 {
		t.Errorf("expected at least one port, got %d", len(d.Ports))
	}
	if d.Ports[0].Path != "/dev/ttyUSB0" {
		t.Errorf("Ports[0].Path = %q", d.Ports[0].Path)
	}
}

func TestCustomProberExtraEntries(t *testing.T) {
	prober := CustomProber(
		Entry{VendorID: 0x1234, ProductID: 0x0002, Family: FamilyGeneric},
		Entry{VendorID: 0xcafe, ProductID: 0x4001, Family: FamilyCH34x},
	)

	want := []Entry{
		{VendorID: 0x1234, ProductID: 0x0001, Family: FamilyFTDI},
		{VendorID: 0x1234, ProductID: 0x0002, Family: FamilyGeneric},
		{VendorID: 0xcafe, ProductID: 0x4001, Family: FamilyCH34x},
	}
	if diff := cmp.Diff(want, prober.Table().Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}

	d, ok := prober.Probe(serial.Device{VendorID: 0x1234, ProductID: 0x0002})
	if !ok || d.SupportsParameters() {
		t.Errorf("expected generic driver without parameter support, got %v ok=%v", d, ok)
	}
}

func TestResolveSkipsNilProbers(t *testing.T) {
	dev := serial.Device{VendorID: 0x0403, ProductID: 0x6001}
	if _, ok := Resolve(dev, nil, DefaultProber()); !ok {
		t.Error("Resolve failed with a nil prober in the list")
	}
	if _, ok := Resolve(dev); ok {
		t.Error("Resolve with no probers should not match")
	}
}

func TestItems(t *testing.T) {
	devices := []serial.Device{
		{ID: 1004, VendorID: 0x0403, ProductID: 0x6010, TTYs: []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}},
		{ID: 1005, VendorID: 0xdead, ProductID: 0xbeef, TTYs: []string{"/dev/ttyUSB2"}},
		{ID: 1006, VendorID: 0x1234, ProductID: 0x0001, TTYs: []string{"/dev/ttyUSB3"}},
	}

	items := Items(devices, DefaultProber(), CustomProber())

	var keys []Key
	for _, item := range items {
		keys = append(keys, item.Key())
		if item.Driver == nil && item.Port != 0 {
			t.Errorf("item %v has no driver but port %d", item.Key(), item.Port)
		}
	}
	want := []Key{{1004, 0}, {1004, 1}, {1005, 0}, {1006, 0}}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("Items() keys mismatch (-want +got):\n%s", diff)
	}

	if items[2].Driver != nil {
		t.Errorf("unknown device resolved to %v", items[2].Driver)
	}
	if got := items[1].Path(); got != "/dev/ttyUSB1" {
		t.Errorf("items[1].Path() = %q", got)
	}
	if got := items[2].Path(); got != "" {
		t.Errorf("items[2].Path() = %q, want empty", got)
	}
}
