package enums

import "fmt"

// DeliveryZone selects the shipping tariff for an order.
type DeliveryZone string

const (
	DeliveryZoneInsideDhaka  DeliveryZone = "inside_dhaka"
	DeliveryZoneOutsideDhaka DeliveryZone = "outside_dhaka"
)

var validDeliveryZoneValues = []DeliveryZone{
	DeliveryZoneInsideDhaka,
	DeliveryZoneOutsideDhaka,
}

// String implements fmt.Stringer.
func (s DeliveryZone) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DeliveryZone.
func (s DeliveryZone) IsValid() bool {
	for _, candidate := range validDeliveryZoneValues {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDeliveryZone converts raw input into a DeliveryZone.
func ParseDeliveryZone(value string) (DeliveryZone, error) {
	for _, candidate := range validDeliveryZoneValues {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery zone %q", value)
}
