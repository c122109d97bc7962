package enums

import "fmt"

// SellUnit describes how a presentation is measured at the register.
type SellUnit string

const (
	SellUnitWeight SellUnit = "weight"
	SellUnitUnit   SellUnit = "unit"
)

var validSellUnits = []SellUnit{
	SellUnitWeight,
	SellUnitUnit,
}

// String implements fmt.Stringer.
func (s SellUnit) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SellUnit.
func (s SellUnit) IsValid() bool {
	for _, candidate := range validSellUnits {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSellUnit converts raw input into a SellUnit.
func ParseSellUnit(value string) (SellUnit, error) {
	for _, candidate := range validSellUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sell unit %q", value)
}
