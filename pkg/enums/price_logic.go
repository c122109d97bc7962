package enums

import "fmt"

// PriceLogic distinguishes flat pricing from quantity-discount pricing.
type PriceLogic string

const (
	PriceLogicFlat             PriceLogic = "flat"
	PriceLogicQuantityDiscount PriceLogic = "quantity_discount"
)

var validPriceLogics = []PriceLogic{
	PriceLogicFlat,
	PriceLogicQuantityDiscount,
}

// String implements fmt.Stringer.
func (p PriceLogic) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PriceLogic.
func (p PriceLogic) IsValid() bool {
	for _, candidate := range validPriceLogics {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriceLogic converts raw input into a PriceLogic.
func ParsePriceLogic(value string) (PriceLogic, error) {
	for _, candidate := range validPriceLogics {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price logic %q", value)
}
