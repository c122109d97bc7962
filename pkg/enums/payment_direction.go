package enums

import "fmt"

// PaymentDirection marks whether cash flowed into or out of the drawer.
type PaymentDirection string

const (
	PaymentDirectionIn  PaymentDirection = "in"
	PaymentDirectionOut PaymentDirection = "out"
)

var validPaymentDirections = []PaymentDirection{
	PaymentDirectionIn,
	PaymentDirectionOut,
}

// String implements fmt.Stringer.
func (p PaymentDirection) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentDirection.
func (p PaymentDirection) IsValid() bool {
	for _, candidate := range validPaymentDirections {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentDirection converts raw input into a PaymentDirection.
func ParsePaymentDirection(value string) (PaymentDirection, error) {
	for _, candidate := range validPaymentDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment direction %q", value)
}
