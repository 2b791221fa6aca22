package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/tiffinbill/internal/activitylog/domain"
	billingdomain "github.com/smallbiznis/tiffinbill/internal/billing/domain"
	"github.com/smallbiznis/tiffinbill/internal/clock"
	"github.com/smallbiznis/tiffinbill/internal/delivery"
	"github.com/smallbiznis/tiffinbill/internal/metrics"
	settingsdomain "github.com/smallbiznis/tiffinbill/internal/settings/domain"
	sheetdomain "github.com/smallbiznis/tiffinbill/internal/sheet/domain"
	"github.com/smallbiznis/tiffinbill/internal/template"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxErrorDetails = 10

type Params struct {
	fx.In

	Settings settingsdomain.Service
	Rows     sheetdomain.RowStore
	Resolver *delivery.Resolver
	Factory  delivery.Factory
	Activity domain.Service
	Clock    clock.Clock
	Log      *zap.Logger
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	settings settingsdomain.Service
	rows     sheetdomain.RowStore
	resolver *delivery.Resolver
	factory  delivery.Factory
	activity domain.Service
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func New(p Params) billingdomain.Service {
	return &Service{
		settings: p.Settings,
		rows:     p.Rows,
		resolver: p.Resolver,
		factory:  p.Factory,
		activity: p.Activity,
		clock:    p.Clock,
		log:      p.Log.Named("billing.service"),
		metrics:  p.Metrics,
	}
}

// snapshot is one operation's view of the sheet: settings, resolved column
// positions and the materialized data rows. It is built fresh per call and
// never cached.
type snapshot struct {
	settings     settingsdomain.Settings
	cols         sheetdomain.ColumnIndexes
	rows         []sheetdomain.CustomerRow
	firstDataRow int // 1-based sheet row of the first data row
	lastRow      int // 1-based sheet row of the last grid row
}

func (s *Service) loadSnapshot(ctx context.Context) (snapshot, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("load settings: %w", err)
	}

	grid, err := s.rows.ReadAllRows(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("read rows: %w", err)
	}

	headerRow := cfg.Behavior.HeaderRow
	if headerRow < 1 {
		headerRow = 1
	}
	if len(grid) < headerRow {
		return snapshot{}, sheetdomain.ErrHeaderRowMissing
	}

	cols, err := sheetdomain.ResolveHeaders(grid[headerRow-1], cfg.Columns, s.log)
	if err != nil {
		return snapshot{}, err
	}

	rows := make([]sheetdomain.CustomerRow, 0, len(grid)-headerRow)
	for i := headerRow; i < len(grid); i++ {
		rows = append(rows, sheetdomain.RowFromCells(i+1, grid[i], cols))
	}

	return snapshot{
		settings:     cfg,
		cols:         cols,
		rows:         rows,
		firstDataRow: headerRow + 1,
		lastRow:      len(grid),
	}, nil
}

// SendBatch messages every row matching the filter, serially and with the
// configured inter-message delay, then writes all statuses back in one batch.
func (s *Service) SendBatch(ctx context.Context, req billingdomain.SendBatchRequest) (billingdomain.BatchResult, error) {
	runID := ulid.Make().String()
	log := s.log.With(zap.String("run_id", runID), zap.String("filter", req.Filter))

	if err := validateFilter(req.Filter, req.DateNeedle); err != nil {
		return billingdomain.BatchResult{}, err
	}

	creds, err := s.resolver.Resolve(ctx)
	if err != nil {
		s.activity.Append(ctx, domain.LevelError, "send_batch",
			"aborted: provider credentials incomplete", map[string]any{"run_id": runID})
		return billingdomain.BatchResult{}, err
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return billingdomain.BatchResult{}, err
	}

	tpl, err := templateFor(snap.settings.Templates, req.TemplateType)
	if err != nil {
		return billingdomain.BatchResult{}, err
	}

	selected := s.selectRows(snap, req.Filter, req.DateNeedle, log)
	s.warnDuplicates(ctx, selected, log)

	dryRun := snap.settings.Behavior.DryRun
	if req.DryRunOverride != nil {
		dryRun = *req.DryRunOverride
	}
	batchSize := snap.settings.Behavior.BatchSize
	if req.BatchSizeOverride != nil && *req.BatchSizeOverride > 0 {
		batchSize = *req.BatchSizeOverride
	}

	result := billingdomain.BatchResult{
		RunID:  runID,
		Filter: req.Filter,
		DryRun: dryRun,
	}
	templateType := effectiveTemplateType(req.TemplateType)

	if len(selected) > batchSize {
		result.Skipped = len(selected) - batchSize
		for range selected[batchSize:] {
			s.metrics.RecordMessage(templateType, metrics.ResultSkipped)
		}
		log.Info("batch size cap reached, remainder deferred",
			zap.Int("batch_size", batchSize),
			zap.Int("deferred", result.Skipped),
		)
		selected = selected[:batchSize]
	}

	started := s.clock.Now()
	sender := s.factory.New(creds)
	palette := paletteFrom(snap.settings.Colors)
	delay := snap.settings.Behavior.MessageDelayMs

	outcomes := make(map[int]delivery.Outcome, len(selected))
	for i, row := range selected {
		outcome, delivered := s.sendRow(ctx, sender, row, tpl.Message, snap.settings, dryRun, palette)
		outcomes[row.RowIndex] = outcome
		result.Processed++

		if outcome.Success {
			result.Sent++
			s.metrics.RecordMessage(templateType, metrics.ResultSent)
		} else {
			result.Errors++
			s.metrics.RecordMessage(templateType, metrics.ResultError)
			if len(result.ErrorDetails) < maxErrorDetails {
				result.ErrorDetails = append(result.ErrorDetails, billingdomain.RowError{
					RowIndex: row.RowIndex,
					Customer: row.Name,
					Reason:   outcome.Status,
				})
			}
		}

		// Pace real deliveries. Dry runs and locally rejected rows never
		// touched the provider, so there is nothing to pace.
		if delivered && i < len(selected)-1 {
			s.clock.Sleep(ctx, millis(delay))
		}
	}

	if err := s.writeStatuses(ctx, snap, outcomes); err != nil {
		log.Error("status write-back failed", zap.Error(err))
		return result, fmt.Errorf("write statuses: %w", err)
	}

	s.metrics.ObserveBatch(req.Filter, s.clock.Now().Sub(started))
	s.activity.Append(ctx, domain.LevelInfo, "send_batch",
		fmt.Sprintf("batch complete: %d sent, %d errors, %d skipped", result.Sent, result.Errors, result.Skipped),
		map[string]any{
			"run_id":   runID,
			"filter":   req.Filter,
			"dry_run":  dryRun,
			"template": templateType,
		})
	log.Info("batch complete",
		zap.Int("sent", result.Sent),
		zap.Int("errors", result.Errors),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// selectRows applies the request filter. When a test order id is configured
// the selection narrows to that single order so rehearsal runs cannot reach
// real customers.
func (s *Service) selectRows(snap snapshot, filter, needle string, log *zap.Logger) []sheetdomain.CustomerRow {
	var selected []sheetdomain.CustomerRow
	for _, row := range snap.rows {
		if row.IsEmpty() {
			continue
		}
		if !matchesFilter(row, filter, needle) {
			continue
		}
		selected = append(selected, row)
	}

	if testOrder := strings.TrimSpace(snap.settings.Behavior.TestOrderID); testOrder != "" {
		var narrowed []sheetdomain.CustomerRow
		for _, row := range selected {
			if strings.EqualFold(strings.TrimSpace(row.OrderID), testOrder) {
				narrowed = append(narrowed, row)
			}
		}
		log.Info("test order id configured, narrowing selection",
			zap.String("test_order_id", testOrder),
			zap.Int("matched", len(narrowed)),
		)
		selected = narrowed
	}
	return selected
}

func matchesFilter(row sheetdomain.CustomerRow, filter, needle string) bool {
	switch filter {
	case billingdomain.FilterAll:
		return true
	case billingdomain.FilterUnpaid:
		return !isPaid(row.PaymentStatus)
	case billingdomain.FilterByDate:
		if isPaid(row.PaymentStatus) {
			return false
		}
		n := strings.ToLower(strings.TrimSpace(needle))
		return strings.Contains(strings.ToLower(row.DueDateRaw), n) ||
			(row.DueMonth != "" && strings.Contains(strings.ToLower(row.DueMonth), n))
	}
	return false
}

func isPaid(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "paid")
}

// warnDuplicates flags rows sharing a phone number and due date. Duplicates
// are advisory only: the batch still sends to every selected row.
func (s *Service) warnDuplicates(ctx context.Context, rows []sheetdomain.CustomerRow, log *zap.Logger) {
	seen := make(map[string]int, len(rows))
	for _, row := range rows {
		if row.Phone == "" {
			continue
		}
		key := strings.ToLower(row.Phone) + "|" + strings.ToLower(row.DueDateRaw)
		if first, dup := seen[key]; dup {
			log.Warn("duplicate phone and due date in selection",
				zap.Int("row", row.RowIndex),
				zap.Int("first_row", first),
				zap.String("phone", row.Phone),
			)
			s.activity.Append(ctx, domain.LevelWarn, "send_batch",
				fmt.Sprintf("rows %d and %d share phone and due date", first, row.RowIndex),
				map[string]any{"phone": row.Phone, "due_date": row.DueDateRaw})
			continue
		}
		seen[key] = row.RowIndex
	}
}

// sendRow produces the terminal outcome for one row. The second return
// reports whether the provider was actually contacted, which drives pacing.
func (s *Service) sendRow(
	ctx context.Context,
	sender delivery.Sender,
	row sheetdomain.CustomerRow,
	message string,
	cfg settingsdomain.Settings,
	dryRun bool,
	palette delivery.Palette,
) (delivery.Outcome, bool) {
	if !row.HasBillingData() {
		s.log.Warn("row missing required billing data", zap.Int("row", row.RowIndex))
		return delivery.Outcome{
			Success: false,
			Status:  "Failed: missing required data",
			Color:   palette.Error,
		}, false
	}

	to, err := delivery.NormalizePhone(row.Phone)
	if err != nil {
		s.log.Warn("row phone number unparseable",
			zap.Int("row", row.RowIndex),
			zap.String("phone", row.Phone),
		)
		return delivery.Outcome{
			Success: false,
			Status:  "Failed: invalid phone number",
			Color:   palette.Error,
		}, false
	}

	body, err := template.Render(message, s.renderData(cfg, row), s.log)
	if err != nil {
		return delivery.Outcome{
			Success: false,
			Status:  "Failed: " + err.Error(),
			Color:   palette.Error,
		}, false
	}

	return sender.Send(ctx, to, body, dryRun, palette), !dryRun
}

func (s *Service) renderData(cfg settingsdomain.Settings, row sheetdomain.CustomerRow) map[string]string {
	month := row.DueMonth
	if month == "" {
		month = s.clock.Now().Month().String()
	}
	return map[string]string{
		template.PlaceholderBusinessName:   cfg.Business.Name,
		template.PlaceholderCustomerName:   row.Name,
		template.PlaceholderBalance:        row.BalanceFormatted,
		template.PlaceholderNumTiffins:     row.NumTiffins,
		template.PlaceholderMonth:          month,
		template.PlaceholderOrderID:        row.OrderID,
		template.PlaceholderEtransferEmail: cfg.Business.Email,
		template.PlaceholderPhoneNumber:    cfg.Business.Phone,
		template.PlaceholderWhatsappLink:   cfg.Business.WhatsappLink,
	}
}

// writeStatuses flushes every outcome in one batch write covering the full
// data range. Rows without an outcome keep their stored status text.
func (s *Service) writeStatuses(ctx context.Context, snap snapshot, outcomes map[int]delivery.Outcome) error {
	if len(outcomes) == 0 || snap.lastRow < snap.firstDataRow {
		return nil
	}

	span := snap.lastRow - snap.firstDataRow + 1
	values := make([]string, span)
	colors := make([]string, span)
	for _, row := range snap.rows {
		values[row.RowIndex-snap.firstDataRow] = row.MessageStatus
	}
	for rowIndex, outcome := range outcomes {
		values[rowIndex-snap.firstDataRow] = outcome.Status
		colors[rowIndex-snap.firstDataRow] = outcome.Color
	}

	return s.rows.WriteColumn(ctx, snap.firstDataRow, snap.cols[settingsdomain.ColumnMessageStatus], values, colors)
}

func validateFilter(filter, needle string) error {
	switch filter {
	case billingdomain.FilterAll, billingdomain.FilterUnpaid:
		return nil
	case billingdomain.FilterByDate:
		if strings.TrimSpace(needle) == "" {
			return fmt.Errorf("%w: byDate requires a date needle", billingdomain.ErrInvalidFilter)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", billingdomain.ErrInvalidFilter, filter)
}

func templateFor(t settingsdomain.Templates, typ string) (settingsdomain.Template, error) {
	switch typ {
	case "", settingsdomain.TemplateFirstNotice:
		return t.FirstNotice, nil
	case settingsdomain.TemplateFollowUp:
		return t.FollowUp, nil
	case settingsdomain.TemplateFinalNotice:
		return t.FinalNotice, nil
	}
	return settingsdomain.Template{}, fmt.Errorf("%w: %q", billingdomain.ErrUnknownTemplate, typ)
}

func effectiveTemplateType(typ string) string {
	if typ == "" {
		return settingsdomain.TemplateFirstNotice
	}
	return typ
}

func paletteFrom(c settingsdomain.Colors) delivery.Palette {
	return delivery.Palette{
		Success: c.SuccessColor,
		Error:   c.ErrorColor,
		DryRun:  c.DryRunColor,
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
