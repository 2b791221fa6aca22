package domain

import "errors"

// CurrentVersion is the schema version produced by this build. Stored
// documents with a lower version are migrated forward on load.
const CurrentVersion = 2

// PropertyKey is the property-store key holding the settings document.
const PropertyKey = "settings:document"

// Settings is the single versioned configuration document. It is only ever
// produced by Merge/Migrate/Validate and never partially shaped at runtime.
type Settings struct {
	Version   int               `json:"version"`
	Business  Business          `json:"business"`
	Templates Templates         `json:"templates"`
	Behavior  Behavior          `json:"behavior"`
	Colors    Colors            `json:"colors"`
	Columns   map[string]string `json:"columns"`
}

type Business struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	WhatsappLink string `json:"whatsappLink"`
}

type Templates struct {
	FirstNotice     Template `json:"firstNotice"`
	FollowUp        Template `json:"followUp"`
	FinalNotice     Template `json:"finalNotice"`
	ThankYouMessage string   `json:"thankYouMessage"`
}

type Template struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type Behavior struct {
	DryRun              bool   `json:"dryRun"`
	BatchSize           int    `json:"batchSize"`
	MessageDelayMs      int    `json:"messageDelayMs"`
	HeaderRow           int    `json:"headerRow"`
	TestOrderID         string `json:"testOrderId,omitempty"`
	AutoThankYouEnabled bool   `json:"autoThankYouEnabled"`
}

type Colors struct {
	SuccessColor string `json:"successColor"`
	ErrorColor   string `json:"errorColor"`
	DryRunColor  string `json:"dryRunColor"`
}

// Semantic column keys. The columns mapping binds each key to the header
// text used in the row store, which keeps row lookup resilient to column
// reordering and renaming.
const (
	ColumnPhoneNumber   = "phoneNumber"
	ColumnCustomerName  = "customerName"
	ColumnBalance       = "balance"
	ColumnNumTiffins    = "numTiffins"
	ColumnDueDate       = "dueDate"
	ColumnMessageStatus = "messageStatus"
	ColumnOrderID       = "orderId"
	ColumnPaymentStatus = "paymentStatus"
)

// ColumnKeys lists every semantic key the columns mapping must bind.
var ColumnKeys = []string{
	ColumnPhoneNumber,
	ColumnCustomerName,
	ColumnBalance,
	ColumnNumTiffins,
	ColumnDueDate,
	ColumnMessageStatus,
	ColumnOrderID,
	ColumnPaymentStatus,
}

// Template type selectors accepted by the billing operations.
const (
	TemplateFirstNotice = "firstNotice"
	TemplateFollowUp    = "followUp"
	TemplateFinalNotice = "finalNotice"
)

// FieldError identifies one invalid field and the section (UI tab) owning it.
type FieldError struct {
	Field   string `json:"field"`
	Section string `json:"section"`
	Message string `json:"message"`
}

// ValidationError carries every field error found in one validation pass.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (v ValidationError) Error() string {
	return "settings validation failed"
}

var (
	ErrInvalidDocument = errors.New("invalid_settings_document")
)
