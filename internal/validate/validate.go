// Package validate holds field validators for Australian business
// identifiers and common contact fields.
package validate

import (
	"regexp"
	"strings"
)

var (
	abnDigits = regexp.MustCompile(`^\d{11}$`)
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// abnWeights are the ATO checksum weights for the 11 ABN digits.
var abnWeights = [11]int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}

// ABN reports whether the given string is a valid Australian Business
// Number. Spaces are ignored; the checksum follows the ATO algorithm:
// subtract 1 from the first digit, multiply each digit by its weight, and
// the sum must be divisible by 89.
func ABN(abn string) bool {
	cleaned := strings.ReplaceAll(abn, " ", "")
	if !abnDigits.MatchString(cleaned) {
		return false
	}

	sum := 0
	for i, r := range cleaned {
		d := int(r - '0')
		if i == 0 {
			d--
		}
		sum += d * abnWeights[i]
	}
	return sum%89 == 0
}

// Email reports whether the given string looks like a valid email address.
func Email(email string) bool {
	return emailRe.MatchString(strings.TrimSpace(email))
}
