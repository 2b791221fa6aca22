// Package template substitutes named {{placeholder}} values into outbound
// message bodies.
package template

import (
	"errors"
	"regexp"

	"go.uber.org/zap"
)

// Placeholder names recognized by the billing operations.
const (
	PlaceholderBusinessName   = "businessName"
	PlaceholderCustomerName   = "customerName"
	PlaceholderBalance        = "balance"
	PlaceholderNumTiffins     = "numTiffins"
	PlaceholderMonth          = "month"
	PlaceholderOrderID        = "orderId"
	PlaceholderEtransferEmail = "etransferEmail"
	PlaceholderPhoneNumber    = "phoneNumber"
	PlaceholderWhatsappLink   = "whatsappLink"
)

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ErrEmptyTemplate is returned for a nil or empty template body. A malformed
// body must never silently become an empty SMS.
var ErrEmptyTemplate = errors.New("empty_template")

// Render replaces every {{identifier}} occurrence with the matching value
// from data. A placeholder without a value stays verbatim in the output and
// is logged, so operators can see exactly which substitution failed instead
// of receiving a silently garbled message.
func Render(tpl string, data map[string]string, log *zap.Logger) (string, error) {
	if tpl == "" {
		return "", ErrEmptyTemplate
	}

	out := placeholderPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := data[name]
		if !ok || value == "" {
			if log != nil {
				log.Warn("template placeholder not resolved", zap.String("placeholder", name))
			}
			return match
		}
		return value
	})

	return out, nil
}
