package enums

import "fmt"

// AllocationMode selects how requested quantity is spread across lots.
type AllocationMode string

const (
	AllocationModeUnified AllocationMode = "unified"
	AllocationModePerLot  AllocationMode = "per_lot"
)

var validAllocationModes = []AllocationMode{
	AllocationModeUnified,
	AllocationModePerLot,
}

// String implements fmt.Stringer.
func (a AllocationMode) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AllocationMode.
func (a AllocationMode) IsValid() bool {
	for _, candidate := range validAllocationModes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAllocationMode converts raw input into an AllocationMode.
func ParseAllocationMode(value string) (AllocationMode, error) {
	for _, candidate := range validAllocationModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allocation mode %q", value)
}
