package probe

import (
	"fmt"
	"strings"

	serial "github.com/allbin/serialmagic"
)

// Family is a chipset family a device can be driven as
type Family int

const (
	FamilyUnrecognized Family = iota
	FamilyFTDI
	FamilyCP21xx
	FamilyCH34x
	FamilyProlific
	FamilyCDCACM
	// FamilyGeneric moves bytes but ignores line settings
	FamilyGeneric
)

var familyNames = map[Family]string{
	FamilyUnrecognized: "unrecognized",
	FamilyFTDI:         "ftdi",
	FamilyCP21xx:       "cp21xx",
	FamilyCH34x:        "ch34x",
	FamilyProlific:     "prolific",
	FamilyCDCACM:       "cdc-acm",
	FamilyGeneric:      "generic",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// ParseFamily accepts the names printed by String, case-insensitively
func ParseFamily(name string) (Family, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range familyNames {
		if f != FamilyUnrecognized && n == name {
			return f, nil
		}
	}
	return FamilyUnrecognized, fmt.Errorf("%w: unknown driver family %q", ErrUnknownFamily, name)
}

// SupportsParameters reports whether the family honours baud rate and
// framing changes
func (f Family) SupportsParameters() bool {
	switch f {
	case FamilyUnrecognized, FamilyGeneric:
		return false
	default:
		return true
	}
}

// multiPort lists products exposing more than one UART
var multiPort = map[product]int{
	{0x0403, 0x6010}: 2, // FT2232
	{0x0403, 0x6011}: 4, // FT4232
	{0x10c4, 0xea70}: 2, // CP2105
	{0x10c4, 0xea71}: 4, // CP2108
}

// portCount is the number of ports the family exposes for dev
func (f Family) portCount(dev serial.Device) int {
	switch f {
	case FamilyUnrecognized:
		return 0
	case FamilyCDCACM, FamilyGeneric:
		return max(len(dev.TTYs), 1)
	}
	if n, ok := multiPort[product{dev.VendorID, dev.ProductID}]; ok {
		return n
	}
	return 1
}
