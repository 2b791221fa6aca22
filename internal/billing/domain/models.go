package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/tiffinbill/internal/delivery"
)

// Row filters accepted by SendBatch.
const (
	FilterUnpaid = "unpaid"
	FilterAll    = "all"
	FilterByDate = "byDate"
)

var (
	ErrInvalidFilter   = errors.New("invalid_filter")
	ErrUnknownTemplate = errors.New("unknown_template")
	ErrRowNotFound     = errors.New("row_not_found")
	ErrNoRowSelector   = errors.New("no_row_selector")
)

// SendBatchRequest selects and messages a set of customer rows in one pass.
type SendBatchRequest struct {
	// Filter is one of unpaid, all, byDate.
	Filter string `json:"filter"`
	// DateNeedle is matched as a case-insensitive substring against the raw
	// due date and the derived month name. Required for the byDate filter.
	DateNeedle string `json:"dateNeedle,omitempty"`
	// TemplateType selects firstNotice, followUp or finalNotice. Empty means
	// firstNotice.
	TemplateType string `json:"templateType,omitempty"`
	// DryRunOverride, when set, wins over the configured dry-run flag.
	DryRunOverride *bool `json:"dryRun,omitempty"`
	// BatchSizeOverride, when set and positive, wins over the configured
	// batch size.
	BatchSizeOverride *int `json:"batchSize,omitempty"`
}

// RowError describes one row's terminal failure inside a batch.
type RowError struct {
	RowIndex int    `json:"rowIndex"`
	Customer string `json:"customer,omitempty"`
	Reason   string `json:"reason"`
}

// BatchResult summarizes one SendBatch run.
type BatchResult struct {
	RunID     string `json:"runId"`
	Filter    string `json:"filter"`
	DryRun    bool   `json:"dryRun"`
	Processed int    `json:"processed"`
	Sent      int    `json:"sent"`
	Errors    int    `json:"errors"`
	Skipped   int    `json:"skipped"`
	// ErrorDetails holds at most the first ten row failures.
	ErrorDetails []RowError `json:"errorDetails,omitempty"`
}

// SendSingleRequest targets one row, by explicit index or by order id.
type SendSingleRequest struct {
	RowIndex       int    `json:"rowIndex,omitempty"`
	OrderID        string `json:"orderId,omitempty"`
	TemplateType   string `json:"templateType,omitempty"`
	DryRunOverride *bool  `json:"dryRun,omitempty"`
}

// SingleResult reports the outcome written back to the targeted row.
type SingleResult struct {
	RowIndex int    `json:"rowIndex"`
	Customer string `json:"customer,omitempty"`
	Success  bool   `json:"success"`
	Status   string `json:"status"`
}

// ClearResult reports how many data rows had their status blanked.
type ClearResult struct {
	Cleared int `json:"cleared"`
}

// PaymentEditRequest is the reactive hook payload fired when a payment
// status cell changes.
type PaymentEditRequest struct {
	RowIndex int    `json:"rowIndex"`
	NewValue string `json:"newValue"`
	OldValue string `json:"oldValue,omitempty"`
}

// PaymentEditResult reports whether a thank-you message went out and, if
// not, why the edit was ignored.
type PaymentEditResult struct {
	RowIndex int    `json:"rowIndex"`
	Sent     bool   `json:"sent"`
	Reason   string `json:"reason,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Service orchestrates billing runs over the row store: settings load,
// header resolution, row filtering, rendering, delivery and write-back.
type Service interface {
	SendBatch(ctx context.Context, req SendBatchRequest) (BatchResult, error)
	SendSingle(ctx context.Context, req SendSingleRequest) (SingleResult, error)
	ClearStatuses(ctx context.Context) (ClearResult, error)
	HandlePaymentEdit(ctx context.Context, req PaymentEditRequest) (PaymentEditResult, error)
	VerifyCredentials(ctx context.Context) (delivery.Account, error)
}
