package dinner

import (
	"fmt"
	"strings"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
)

// Address is the location of a dinner. It travels on the wire as a single
// formatted string: "street, city, state, postalCode, country".
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// ParseAddress parses a formatted address string. All five components must
// be present and non-empty.
func ParseAddress(s string) (Address, error) {
	if strings.TrimSpace(s) == "" {
		return Address{}, apperr.New(apperr.CodeInvalid, "address is required")
	}
	parts := strings.Split(s, ",")
	if len(parts) != 5 {
		return Address{}, apperr.New(apperr.CodeInvalid,
			"invalid address format, expected: street, city, state, postalCode, country")
	}
	a := Address{
		Street:     strings.TrimSpace(parts[0]),
		City:       strings.TrimSpace(parts[1]),
		State:      strings.TrimSpace(parts[2]),
		PostalCode: strings.TrimSpace(parts[3]),
		Country:    strings.TrimSpace(parts[4]),
	}
	if a.Street == "" || a.City == "" || a.State == "" || a.PostalCode == "" || a.Country == "" {
		return Address{}, apperr.New(apperr.CodeInvalid, "all address components must be non-empty")
	}
	return a, nil
}

// Format renders the address back into its wire form.
func (a Address) Format() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s", a.Street, a.City, a.State, a.PostalCode, a.Country)
}
