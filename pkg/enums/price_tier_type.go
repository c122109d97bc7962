package enums

import "fmt"

// PriceTierType separates retail and wholesale price lists.
type PriceTierType string

const (
	PriceTierTypeRetail    PriceTierType = "retail"
	PriceTierTypeWholesale PriceTierType = "wholesale"
)

var validPriceTierTypes = []PriceTierType{
	PriceTierTypeRetail,
	PriceTierTypeWholesale,
}

// String implements fmt.Stringer.
func (p PriceTierType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PriceTierType.
func (p PriceTierType) IsValid() bool {
	for _, candidate := range validPriceTierTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriceTierType converts raw input into a PriceTierType.
func ParsePriceTierType(value string) (PriceTierType, error) {
	for _, candidate := range validPriceTierTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price tier type %q", value)
}
