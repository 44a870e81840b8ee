package enums

import "fmt"

// CheckoutSessionStatus tracks the lifecycle of a payment-provider
// checkout session as recorded locally.
type CheckoutSessionStatus string

const (
	CheckoutSessionStatusOpen    CheckoutSessionStatus = "open"
	CheckoutSessionStatusPaid    CheckoutSessionStatus = "paid"
	CheckoutSessionStatusExpired CheckoutSessionStatus = "expired"
	CheckoutSessionStatusError   CheckoutSessionStatus = "error"
)

var validCheckoutSessionStatuses = []CheckoutSessionStatus{
	CheckoutSessionStatusOpen,
	CheckoutSessionStatusPaid,
	CheckoutSessionStatusExpired,
	CheckoutSessionStatusError,
}

// String implements fmt.Stringer.
func (c CheckoutSessionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutSessionStatus.
func (c CheckoutSessionStatus) IsValid() bool {
	for _, candidate := range validCheckoutSessionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (c CheckoutSessionStatus) IsTerminal() bool {
	return c == CheckoutSessionStatusPaid ||
		c == CheckoutSessionStatusExpired ||
		c == CheckoutSessionStatusError
}

// ParseCheckoutSessionStatus converts raw input into a CheckoutSessionStatus.
func ParseCheckoutSessionStatus(value string) (CheckoutSessionStatus, error) {
	for _, candidate := range validCheckoutSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout session status %q", value)
}

// CheckoutStatus is the externally reported state of a checkout. Sessions
// that are still open report as pending.
type CheckoutStatus string

const (
	CheckoutStatusPending CheckoutStatus = "pending"
	CheckoutStatusPaid    CheckoutStatus = "paid"
	CheckoutStatusExpired CheckoutStatus = "expired"
	CheckoutStatusError   CheckoutStatus = "error"
)

// String implements fmt.Stringer.
func (c CheckoutStatus) String() string {
	return string(c)
}

// Reported maps a stored session status onto the externally visible status.
func (c CheckoutSessionStatus) Reported() CheckoutStatus {
	switch c {
	case CheckoutSessionStatusPaid:
		return CheckoutStatusPaid
	case CheckoutSessionStatusExpired:
		return CheckoutStatusExpired
	case CheckoutSessionStatusError:
		return CheckoutStatusError
	default:
		return CheckoutStatusPending
	}
}
