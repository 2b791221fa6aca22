package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	settingsdomain "github.com/smallbiznis/tiffinbill/internal/settings/domain"
)

// CustomerRow is the transient view of one data row, materialized fresh from
// the row store on every operation and never cached across calls.
type CustomerRow struct {
	RowIndex         int // 1-based sheet row
	Phone            string
	Name             string
	BalanceRaw       string
	BalanceFormatted string
	NumTiffins       string
	DueDateRaw       string
	DueMonth         string
	MessageStatus    string
	OrderID          string
	PaymentStatus    string
}

// RowFromCells builds the customer view of one grid row.
func RowFromCells(rowIndex int, cells []string, cols ColumnIndexes) CustomerRow {
	balance := cols.Cell(cells, settingsdomain.ColumnBalance)
	dueDate := cols.Cell(cells, settingsdomain.ColumnDueDate)
	return CustomerRow{
		RowIndex:         rowIndex,
		Phone:            cols.Cell(cells, settingsdomain.ColumnPhoneNumber),
		Name:             cols.Cell(cells, settingsdomain.ColumnCustomerName),
		BalanceRaw:       balance,
		BalanceFormatted: FormatBalance(balance),
		NumTiffins:       cols.Cell(cells, settingsdomain.ColumnNumTiffins),
		DueDateRaw:       dueDate,
		DueMonth:         MonthName(dueDate),
		MessageStatus:    cols.Cell(cells, settingsdomain.ColumnMessageStatus),
		OrderID:          cols.Cell(cells, settingsdomain.ColumnOrderID),
		PaymentStatus:    cols.Cell(cells, settingsdomain.ColumnPaymentStatus),
	}
}

// HasBillingData reports whether the row carries everything a bill message
// needs. Rows failing this get a terminal missing-data outcome and are never
// sent.
func (r CustomerRow) HasBillingData() bool {
	return r.Phone != "" && r.Name != "" && r.BalanceRaw != "" && r.NumTiffins != ""
}

// IsEmpty reports whether every mapped cell on the row is blank. Empty rows
// are invisible to the billing filters.
func (r CustomerRow) IsEmpty() bool {
	return r.Phone == "" && r.Name == "" && r.BalanceRaw == "" && r.NumTiffins == "" &&
		r.DueDateRaw == "" && r.MessageStatus == "" && r.OrderID == "" && r.PaymentStatus == ""
}

// FormatBalance renders a parseable amount as currency and leaves anything
// else untouched.
func FormatBalance(raw string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(raw), "$"), ",", ""))
	if cleaned == "" {
		return raw
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return raw
	}
	return fmt.Sprintf("$%.2f", amount)
}

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// MonthName derives the month a due date falls in. Free text containing an
// English month name wins; otherwise common date layouts are tried. Returns
// "" when nothing matches.
func MonthName(raw string) string {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}

	for _, name := range monthNames {
		if strings.Contains(text, strings.ToLower(name)) {
			return name
		}
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return parsed.Month().String()
		}
	}
	return ""
}
