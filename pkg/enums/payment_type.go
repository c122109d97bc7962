package enums

import "fmt"

// PaymentType classifies the business event behind a payment.
type PaymentType string

const (
	PaymentTypeOrder           PaymentType = "order"
	PaymentTypeClientPayment   PaymentType = "client_payment"
	PaymentTypeProviderPayment PaymentType = "provider_payment"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeOrder,
	PaymentTypeClientPayment,
	PaymentTypeProviderPayment,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
