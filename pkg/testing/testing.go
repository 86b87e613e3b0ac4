package testing

import (
	"github.com/onsi/gomega/format"
)

func init() {
	// Gomega's default string diff behavior makes it impossible to figure
	// out which ACL match or DHCP option differs, so turn it off
	format.TruncatedDiff = false
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// IntPtr returns a pointer to i
func IntPtr(i int) *int {
	return &i
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
