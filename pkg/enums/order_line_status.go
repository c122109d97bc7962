package enums

import "fmt"

// OrderLineStatus tracks the lifecycle of a committed sale line.
type OrderLineStatus string

const (
	OrderLineStatusPending   OrderLineStatus = "pending"
	OrderLineStatusCompleted OrderLineStatus = "completed"
	OrderLineStatusCancelled OrderLineStatus = "cancelled"
)

var validOrderLineStatuses = []OrderLineStatus{
	OrderLineStatusPending,
	OrderLineStatusCompleted,
	OrderLineStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderLineStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderLineStatus.
func (o OrderLineStatus) IsValid() bool {
	for _, candidate := range validOrderLineStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderLineStatus converts raw input into an OrderLineStatus.
func ParseOrderLineStatus(value string) (OrderLineStatus, error) {
	for _, candidate := range validOrderLineStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order line status %q", value)
}
