package delivery

import (
	"errors"
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// ErrUnparseablePhone marks a number that cannot be canonicalized; the
// caller records a terminal invalid-phone outcome and never calls Send.
var ErrUnparseablePhone = errors.New("unparseable_phone")

// NormalizePhone canonicalizes a raw phone value to international-dialable
// form. Inputs already +-prefixed are revalidated to 8-16 total characters
// and passed through; 11-digit numbers starting with 1 and bare 10-digit
// numbers are treated as North American.
func NormalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrUnparseablePhone
	}

	digits := nonDigits.ReplaceAllString(trimmed, "")

	if strings.HasPrefix(trimmed, "+") {
		candidate := "+" + digits
		if len(candidate) < 8 || len(candidate) > 16 {
			return "", ErrUnparseablePhone
		}
		return candidate, nil
	}

	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits, nil
	case len(digits) == 10:
		return "+1" + digits, nil
	default:
		return "", ErrUnparseablePhone
	}
}
