package probe

import (
	"fmt"
	"sort"

	serial "github.com/allbin/serialmagic"
)

type product struct {
	vendorID  uint16
	productID uint16
}

// Table maps USB vendor/product ids to driver families
type Table struct {
	products map[product]Family
}

func NewTable() *Table {
	return &Table{products: make(map[product]Family)}
}

func (t *Table) AddProduct(vendorID, productID uint16, family Family) {
	t.products[product{vendorID, productID}] = family
}

func (t *Table) Lookup(vendorID, productID uint16) (Family, bool) {
	f, ok := t.products[product{vendorID, productID}]
	return f, ok
}

// Entry is one vendor/product mapping of a probe table
type Entry struct {
	VendorID  uint16
	ProductID uint16
	Family    Family
}

func (e Entry) String() string {
	return fmt.Sprintf("%04x:%04x -> %s", e.VendorID, e.ProductID, e.Family)
}

// Entries returns the table contents ordered by vendor then product id
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.products))
	for p, f := range t.products {
		entries = append(entries, Entry{VendorID: p.vendorID, ProductID: p.productID, Family: f})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].VendorID != entries[j].VendorID {
			return entries[i].VendorID < entries[j].VendorID
		}
		return entries[i].ProductID < entries[j].ProductID
	})
	return entries
}

// Prober recognises devices of the families it knows about
type Prober interface {
	Probe(dev serial.Device) (*Driver, bool)
}

// TableProber recognises devices by vendor/product id and, failing that, by
// the kernel driver bound to them
type TableProber struct {
	table          *Table
	byKernelDriver map[string]Family
}

var _ Prober = (*TableProber)(nil)

func (p *TableProber) Probe(dev serial.Device) (*Driver, bool) {
	if family, ok := p.table.Lookup(dev.VendorID, dev.ProductID); ok {
		return newDriver(dev, family), true
	}
	if family, ok := p.byKernelDriver[dev.KernelDriver]; ok {
		return newDriver(dev, family), true
	}
	return nil, false
}

// Table exposes the vendor/product table of the prober
func (p *TableProber) Table() *Table {
	return p.table
}

// DefaultProber knows the common USB UART chips and any CDC-ACM device
func DefaultProber() *TableProber {
	t := NewTable()
	for _, pid := range []uint16{0x6001, 0x6010, 0x6011, 0x6014, 0x6015} {
		t.AddProduct(0x0403, pid, FamilyFTDI)
	}
	for _, pid := range []uint16{0xea60, 0xea70, 0xea71} {
		t.AddProduct(0x10c4, pid, FamilyCP21xx)
	}
	for _, pid := range []uint16{0x7523, 0x5523, 0x55d4} {
		t.AddProduct(0x1a86, pid, FamilyCH34x)
	}
	for _, pid := range []uint16{0x2303, 0x23a3, 0x23c3, 0x23d3} {
		t.AddProduct(0x067b, pid, FamilyProlific)
	}
	return &TableProber{
		table:          t,
		byKernelDriver: map[string]Family{"cdc_acm": FamilyCDCACM},
	}
}

// builtinCustom are devices that speak a known protocol under a product id
// the default table does not carry
var builtinCustom = []Entry{
	{VendorID: 0x1234, ProductID: 0x0001, Family: FamilyFTDI},
	{VendorID: 0x1234, ProductID: 0x0002, Family: FamilyFTDI},
}

// CustomProber is the probe registry: the built-in custom products extended
// by extra. Later entries override earlier ones for the same product.
func CustomProber(extra ...Entry) *TableProber {
	t := NewTable()
	for _, e := range append(append([]Entry{}, builtinCustom...), extra...) {
		t.AddProduct(e.VendorID, e.ProductID, e.Family)
	}
	return &TableProber{table: t}
}

// Resolve tries probers in order and returns the first match
func Resolve(dev serial.Device, probers ...Prober) (*Driver, bool) {
	for _, p := range probers {
		if p == nil {
			continue
		}
		if d, ok := p.Probe(dev); ok {
			return d, true
		}
	}
	return nil, false
}
