package enums

import "fmt"

// OutletType distinguishes the organization's central kitchen from its outlets.
type OutletType string

const (
	OutletTypeCentral OutletType = "CENTRAL"
	OutletTypeOutlet  OutletType = "OUTLET"
)

var validOutletTypes = []OutletType{
	OutletTypeCentral,
	OutletTypeOutlet,
}

// String implements fmt.Stringer.
func (o OutletType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutletType.
func (o OutletType) IsValid() bool {
	for _, candidate := range validOutletTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutletType converts raw input into a OutletType.
func ParseOutletType(value string) (OutletType, error) {
	for _, candidate := range validOutletTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outlet type %q", value)
}
