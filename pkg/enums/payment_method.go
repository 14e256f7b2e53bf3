package enums

import "fmt"

// PaymentMethod is the payment channel the customer selected at checkout.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodCelfin PaymentMethod = "celfin"
	PaymentMethodBkash  PaymentMethod = "bkash"
	PaymentMethodNagad  PaymentMethod = "nagad"
	PaymentMethodIBBL   PaymentMethod = "ibbl"
)

var validPaymentMethodValues = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodCelfin,
	PaymentMethodBkash,
	PaymentMethodNagad,
	PaymentMethodIBBL,
}

// String implements fmt.Stringer.
func (s PaymentMethod) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentMethod.
func (s PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethodValues {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethodValues {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
