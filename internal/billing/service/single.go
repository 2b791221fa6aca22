package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/tiffinbill/internal/activitylog/domain"
	billingdomain "github.com/smallbiznis/tiffinbill/internal/billing/domain"
	"github.com/smallbiznis/tiffinbill/internal/delivery"
	"github.com/smallbiznis/tiffinbill/internal/metrics"
	settingsdomain "github.com/smallbiznis/tiffinbill/internal/settings/domain"
	sheetdomain "github.com/smallbiznis/tiffinbill/internal/sheet/domain"
	"go.uber.org/zap"
)

// SendSingle messages one row, resolved by explicit index or by the first
// exact order-id match, and writes that row's status back immediately.
func (s *Service) SendSingle(ctx context.Context, req billingdomain.SendSingleRequest) (billingdomain.SingleResult, error) {
	if req.RowIndex <= 0 && strings.TrimSpace(req.OrderID) == "" {
		return billingdomain.SingleResult{}, billingdomain.ErrNoRowSelector
	}

	creds, err := s.resolver.Resolve(ctx)
	if err != nil {
		return billingdomain.SingleResult{}, err
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return billingdomain.SingleResult{}, err
	}

	tpl, err := templateFor(snap.settings.Templates, req.TemplateType)
	if err != nil {
		return billingdomain.SingleResult{}, err
	}

	row, err := findRow(snap, req.RowIndex, req.OrderID)
	if err != nil {
		return billingdomain.SingleResult{}, err
	}

	dryRun := snap.settings.Behavior.DryRun
	if req.DryRunOverride != nil {
		dryRun = *req.DryRunOverride
	}

	sender := s.factory.New(creds)
	palette := paletteFrom(snap.settings.Colors)
	outcome, _ := s.sendRow(ctx, sender, row, tpl.Message, snap.settings, dryRun, palette)

	templateType := effectiveTemplateType(req.TemplateType)
	if outcome.Success {
		s.metrics.RecordMessage(templateType, metrics.ResultSent)
	} else {
		s.metrics.RecordMessage(templateType, metrics.ResultError)
	}

	if err := s.writeRowStatus(ctx, snap, row.RowIndex, outcome); err != nil {
		return billingdomain.SingleResult{}, fmt.Errorf("write status: %w", err)
	}

	s.activity.Append(ctx, domain.LevelInfo, "send_single",
		fmt.Sprintf("row %d: %s", row.RowIndex, outcome.Status),
		map[string]any{
			"row":      row.RowIndex,
			"customer": row.Name,
			"template": templateType,
			"dry_run":  dryRun,
		})

	return billingdomain.SingleResult{
		RowIndex: row.RowIndex,
		Customer: row.Name,
		Success:  outcome.Success,
		Status:   outcome.Status,
	}, nil
}

// ClearStatuses blanks the status column and row highlights for every data
// row in one batch write.
func (s *Service) ClearStatuses(ctx context.Context) (billingdomain.ClearResult, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return billingdomain.ClearResult{}, err
	}

	if snap.lastRow < snap.firstDataRow {
		return billingdomain.ClearResult{}, nil
	}

	span := snap.lastRow - snap.firstDataRow + 1
	values := make([]string, span)
	colors := make([]string, span)
	if err := s.rows.WriteColumn(ctx, snap.firstDataRow, snap.cols[settingsdomain.ColumnMessageStatus], values, colors); err != nil {
		return billingdomain.ClearResult{}, fmt.Errorf("clear statuses: %w", err)
	}

	s.activity.Append(ctx, domain.LevelInfo, "clear_statuses",
		fmt.Sprintf("cleared %d rows", span), nil)
	s.log.Info("statuses cleared", zap.Int("rows", span))
	return billingdomain.ClearResult{Cleared: span}, nil
}

func (s *Service) writeRowStatus(ctx context.Context, snap snapshot, rowIndex int, outcome delivery.Outcome) error {
	return s.rows.WriteColumn(ctx, rowIndex, snap.cols[settingsdomain.ColumnMessageStatus],
		[]string{outcome.Status}, []string{outcome.Color})
}

func findRow(snap snapshot, rowIndex int, orderID string) (sheetdomain.CustomerRow, error) {
	if rowIndex > 0 {
		if rowIndex < snap.firstDataRow || rowIndex > snap.lastRow {
			return sheetdomain.CustomerRow{}, fmt.Errorf("%w: row %d", billingdomain.ErrRowNotFound, rowIndex)
		}
		return snap.rows[rowIndex-snap.firstDataRow], nil
	}

	needle := strings.TrimSpace(orderID)
	for _, row := range snap.rows {
		if strings.EqualFold(strings.TrimSpace(row.OrderID), needle) {
			return row, nil
		}
	}
	return sheetdomain.CustomerRow{}, fmt.Errorf("%w: order %q", billingdomain.ErrRowNotFound, orderID)
}
