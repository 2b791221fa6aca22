package domain

import (
	"fmt"
	"net/mail"
	"regexp"
)

const (
	maxBusinessNameLen = 100
	maxPhoneDisplayLen = 20
	maxTemplateNameLen = 50
	minMessageLen      = 50
	maxMessageLen      = 1600
	minBatchSize       = 1
	maxBatchSize       = 200
	minMessageDelayMs  = 500
	maxMessageDelayMs  = 5000
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Validate checks a settings document against every structural and value
// constraint in one pass. It never short-circuits, so callers can surface
// all problems at once. An empty slice means the document is valid.
func Validate(s Settings) []FieldError {
	var errs []FieldError

	if s.Version != CurrentVersion {
		errs = append(errs, FieldError{
			Field:   "version",
			Section: "general",
			Message: fmt.Sprintf("version must be %d", CurrentVersion),
		})
	}

	errs = append(errs, validateBusiness(s.Business)...)
	errs = append(errs, validateTemplates(s.Templates)...)
	errs = append(errs, validateBehavior(s.Behavior)...)
	errs = append(errs, validateColors(s.Colors)...)
	errs = append(errs, validateColumns(s.Columns)...)

	return errs
}

func validateBusiness(b Business) []FieldError {
	if b == (Business{}) {
		return []FieldError{{Field: "business", Section: "business", Message: "business section is missing"}}
	}

	var errs []FieldError
	if len(b.Name) > maxBusinessNameLen {
		errs = append(errs, FieldError{
			Field:   "name",
			Section: "business",
			Message: fmt.Sprintf("business name must be at most %d characters", maxBusinessNameLen),
		})
	}
	if _, err := mail.ParseAddress(b.Email); err != nil {
		errs = append(errs, FieldError{
			Field:   "email",
			Section: "business",
			Message: "contact email is not a valid address",
		})
	}
	if len(b.Phone) > maxPhoneDisplayLen {
		errs = append(errs, FieldError{
			Field:   "phone",
			Section: "business",
			Message: fmt.Sprintf("display phone must be at most %d characters", maxPhoneDisplayLen),
		})
	}
	return errs
}

func validateTemplates(t Templates) []FieldError {
	if t == (Templates{}) {
		return []FieldError{{Field: "templates", Section: "templates", Message: "templates section is missing"}}
	}

	var errs []FieldError
	errs = append(errs, validateTemplate(TemplateFirstNotice, t.FirstNotice)...)
	errs = append(errs, validateTemplate(TemplateFollowUp, t.FollowUp)...)
	errs = append(errs, validateTemplate(TemplateFinalNotice, t.FinalNotice)...)

	if n := len(t.ThankYouMessage); n < minMessageLen || n > maxMessageLen {
		errs = append(errs, FieldError{
			Field:   "thankYouMessage",
			Section: "templates",
			Message: fmt.Sprintf("thank-you message must be %d-%d characters", minMessageLen, maxMessageLen),
		})
	}
	return errs
}

func validateTemplate(key string, tpl Template) []FieldError {
	var errs []FieldError
	if tpl.Name == "" || len(tpl.Name) > maxTemplateNameLen {
		errs = append(errs, FieldError{
			Field:   key + ".name",
			Section: "templates",
			Message: fmt.Sprintf("template name must be 1-%d characters", maxTemplateNameLen),
		})
	}
	if n := len(tpl.Message); n < minMessageLen || n > maxMessageLen {
		errs = append(errs, FieldError{
			Field:   key + ".message",
			Section: "templates",
			Message: fmt.Sprintf("template message must be %d-%d characters", minMessageLen, maxMessageLen),
		})
	}
	return errs
}

func validateBehavior(b Behavior) []FieldError {
	if b == (Behavior{}) {
		return []FieldError{{Field: "behavior", Section: "behavior", Message: "behavior section is missing"}}
	}

	var errs []FieldError
	if b.BatchSize < minBatchSize || b.BatchSize > maxBatchSize {
		errs = append(errs, FieldError{
			Field:   "batchSize",
			Section: "behavior",
			Message: fmt.Sprintf("batch size must be between %d and %d", minBatchSize, maxBatchSize),
		})
	}
	if b.MessageDelayMs < minMessageDelayMs || b.MessageDelayMs > maxMessageDelayMs {
		errs = append(errs, FieldError{
			Field:   "messageDelayMs",
			Section: "behavior",
			Message: fmt.Sprintf("message delay must be between %d and %d ms", minMessageDelayMs, maxMessageDelayMs),
		})
	}
	if b.HeaderRow < 1 {
		errs = append(errs, FieldError{
			Field:   "headerRow",
			Section: "behavior",
			Message: "header row must be 1 or greater",
		})
	}
	return errs
}

func validateColors(c Colors) []FieldError {
	if c == (Colors{}) {
		return []FieldError{{Field: "colors", Section: "colors", Message: "colors section is missing"}}
	}

	var errs []FieldError
	for field, value := range map[string]string{
		"successColor": c.SuccessColor,
		"errorColor":   c.ErrorColor,
		"dryRunColor":  c.DryRunColor,
	} {
		if !hexColorPattern.MatchString(value) {
			errs = append(errs, FieldError{
				Field:   field,
				Section: "colors",
				Message: "color must be a 6-digit hex value like #B7E1CD",
			})
		}
	}
	return errs
}

func validateColumns(columns map[string]string) []FieldError {
	if len(columns) == 0 {
		return []FieldError{{Field: "columns", Section: "columns", Message: "columns section is missing"}}
	}

	var errs []FieldError
	for _, key := range ColumnKeys {
		if columns[key] == "" {
			errs = append(errs, FieldError{
				Field:   key,
				Section: "columns",
				Message: "column header mapping is required",
			})
		}
	}
	return errs
}
