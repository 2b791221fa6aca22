package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/tiffinbill/internal/activitylog/domain"
	billingdomain "github.com/smallbiznis/tiffinbill/internal/billing/domain"
	"github.com/smallbiznis/tiffinbill/internal/delivery"
	"github.com/smallbiznis/tiffinbill/internal/metrics"
	"github.com/smallbiznis/tiffinbill/internal/template"
	"go.uber.org/zap"
)

// thankYouMarker prefixes the status written after a thank-you send. Its
// presence in the status cell makes repeated edit events no-ops.
const thankYouMarker = "Thank-you:"

const templateThankYou = "thankYou"

// HandlePaymentEdit reacts to a payment-status cell change. It fires only on
// a transition into "paid", sends the configured thank-you message, and
// writes its row back immediately so an interrupted burst of edits loses
// only unfinished rows.
func (s *Service) HandlePaymentEdit(ctx context.Context, req billingdomain.PaymentEditRequest) (billingdomain.PaymentEditResult, error) {
	if req.RowIndex <= 0 {
		return billingdomain.PaymentEditResult{}, billingdomain.ErrNoRowSelector
	}
	result := billingdomain.PaymentEditResult{RowIndex: req.RowIndex}

	if !isPaid(req.NewValue) || isPaid(req.OldValue) {
		result.Reason = "not a transition to paid"
		return result, nil
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return billingdomain.PaymentEditResult{}, err
	}
	if !snap.settings.Behavior.AutoThankYouEnabled {
		result.Reason = "auto thank-you disabled"
		return result, nil
	}

	row, err := findRow(snap, req.RowIndex, "")
	if err != nil {
		return billingdomain.PaymentEditResult{}, err
	}

	if strings.Contains(row.MessageStatus, thankYouMarker) {
		result.Reason = "thank-you already sent"
		s.log.Info("payment edit ignored, thank-you already recorded", zap.Int("row", row.RowIndex))
		return result, nil
	}

	palette := paletteFrom(snap.settings.Colors)
	if row.Name == "" || row.Phone == "" || row.OrderID == "" {
		outcome := delivery.Outcome{
			Success: false,
			Status:  "Failed: missing required data",
			Color:   palette.Error,
		}
		if err := s.writeRowStatus(ctx, snap, row.RowIndex, outcome); err != nil {
			return billingdomain.PaymentEditResult{}, fmt.Errorf("write status: %w", err)
		}
		result.Reason = "missing required data"
		result.Status = outcome.Status
		return result, nil
	}

	creds, err := s.resolver.Resolve(ctx)
	if err != nil {
		return billingdomain.PaymentEditResult{}, err
	}

	to, err := delivery.NormalizePhone(row.Phone)
	if err != nil {
		outcome := delivery.Outcome{
			Success: false,
			Status:  "Failed: invalid phone number",
			Color:   palette.Error,
		}
		if writeErr := s.writeRowStatus(ctx, snap, row.RowIndex, outcome); writeErr != nil {
			return billingdomain.PaymentEditResult{}, fmt.Errorf("write status: %w", writeErr)
		}
		result.Reason = "invalid phone number"
		result.Status = outcome.Status
		return result, nil
	}

	body, err := template.Render(snap.settings.Templates.ThankYouMessage, s.renderData(snap.settings, row), s.log)
	if err != nil {
		return billingdomain.PaymentEditResult{}, fmt.Errorf("render thank-you: %w", err)
	}

	dryRun := snap.settings.Behavior.DryRun
	outcome := s.factory.New(creds).Send(ctx, to, body, dryRun, palette)
	if outcome.Success {
		outcome.Status = thankYouMarker + " " + outcome.Status
		s.metrics.RecordMessage(templateThankYou, metrics.ResultSent)
	} else {
		s.metrics.RecordMessage(templateThankYou, metrics.ResultError)
	}

	if err := s.writeRowStatus(ctx, snap, row.RowIndex, outcome); err != nil {
		return billingdomain.PaymentEditResult{}, fmt.Errorf("write status: %w", err)
	}

	s.activity.Append(ctx, domain.LevelInfo, "payment_edit",
		fmt.Sprintf("row %d: %s", row.RowIndex, outcome.Status),
		map[string]any{
			"row":      row.RowIndex,
			"customer": row.Name,
			"order_id": row.OrderID,
			"dry_run":  dryRun,
		})

	result.Sent = outcome.Success
	result.Status = outcome.Status
	if !outcome.Success {
		result.Reason = outcome.Status
	}
	return result, nil
}

// VerifyCredentials checks the resolved credentials against the provider's
// account endpoint without sending a message.
func (s *Service) VerifyCredentials(ctx context.Context) (delivery.Account, error) {
	creds, err := s.resolver.Resolve(ctx)
	if err != nil {
		return delivery.Account{}, err
	}

	account, err := s.factory.New(creds).VerifyCredentials(ctx)
	if err != nil {
		s.activity.Append(ctx, domain.LevelError, "verify_credentials",
			"credential check failed", map[string]any{"error": err.Error()})
		return delivery.Account{}, err
	}

	s.activity.Append(ctx, domain.LevelInfo, "verify_credentials",
		fmt.Sprintf("credentials valid for %q (%s)", account.FriendlyName, account.Status), nil)
	return account, nil
}
