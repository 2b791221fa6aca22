package service

import (
	"context"
	"testing"
	"time"

	activitydomain "github.com/smallbiznis/tiffinbill/internal/activitylog/domain"
	billingdomain "github.com/smallbiznis/tiffinbill/internal/billing/domain"
	"github.com/smallbiznis/tiffinbill/internal/clock"
	"github.com/smallbiznis/tiffinbill/internal/config"
	"github.com/smallbiznis/tiffinbill/internal/delivery"
	settingsdomain "github.com/smallbiznis/tiffinbill/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSettingsService struct {
	cfg settingsdomain.Settings
}

func (f *fakeSettingsService) Load(context.Context) (settingsdomain.Settings, error) {
	return f.cfg, nil
}

func (f *fakeSettingsService) Save(_ context.Context, s settingsdomain.Settings) error {
	f.cfg = s
	return nil
}

func (f *fakeSettingsService) Reset(context.Context) error { return nil }

type emptyStore struct{}

func (emptyStore) Get(context.Context, string) (string, error) {
	return "", settingsdomain.ErrPropertyNotFound
}
func (emptyStore) Set(context.Context, string, string) error { return nil }
func (emptyStore) Delete(context.Context, string) error      { return nil }

type columnWrite struct {
	startRow, colIndex int
	values, colors     []string
}

type fakeRowStore struct {
	grid   [][]string
	colors map[int]string
	writes []columnWrite
}

func newFakeRowStore(grid [][]string) *fakeRowStore {
	return &fakeRowStore{grid: grid, colors: map[int]string{}}
}

func (f *fakeRowStore) ReadAllRows(context.Context) ([][]string, error) {
	out := make([][]string, len(f.grid))
	for i, row := range f.grid {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (f *fakeRowStore) WriteColumn(_ context.Context, startRow, colIndex int, values, colors []string) error {
	f.writes = append(f.writes, columnWrite{startRow, colIndex, values, colors})
	for i, value := range values {
		rowIndex := startRow + i
		for len(f.grid) < rowIndex {
			f.grid = append(f.grid, []string{})
		}
		cells := f.grid[rowIndex-1]
		for len(cells) <= colIndex {
			cells = append(cells, "")
		}
		cells[colIndex] = value
		f.grid[rowIndex-1] = cells
		f.colors[rowIndex] = colors[i]
	}
	return nil
}

type senderCall struct {
	to, body string
	dryRun   bool
}

type fakeSender struct {
	calls   []senderCall
	failTo  map[string]bool
	account delivery.Account
}

func (f *fakeSender) Send(_ context.Context, to, body string, dryRun bool, palette delivery.Palette) delivery.Outcome {
	f.calls = append(f.calls, senderCall{to: to, body: body, dryRun: dryRun})
	if dryRun {
		return delivery.Outcome{Success: true, Status: "[DRY RUN] Would send at 2026-01-01 00:00", Color: palette.DryRun}
	}
	if f.failTo[to] {
		return delivery.Outcome{Success: false, Status: "Failed: http 400: invalid number", Color: palette.Error}
	}
	return delivery.Outcome{Success: true, Status: "Sent 2026-01-01 00:00", Color: palette.Success}
}

func (f *fakeSender) VerifyCredentials(context.Context) (delivery.Account, error) {
	return f.account, nil
}

type fakeFactory struct {
	sender *fakeSender
	creds  delivery.Credentials
}

func (f *fakeFactory) New(creds delivery.Credentials) delivery.Sender {
	f.creds = creds
	return f.sender
}

type activityEntry struct {
	level, operation, message string
}

type fakeActivity struct {
	entries []activityEntry
}

func (f *fakeActivity) Append(_ context.Context, level, operation, message string, _ map[string]any) {
	f.entries = append(f.entries, activityEntry{level, operation, message})
}

func (f *fakeActivity) Recent(context.Context, int) ([]activitydomain.Entry, error) {
	return nil, nil
}

func (f *fakeActivity) count(operation, level string) int {
	n := 0
	for _, e := range f.entries {
		if e.operation == operation && e.level == level {
			n++
		}
	}
	return n
}

type fixture struct {
	svc      billingdomain.Service
	rows     *fakeRowStore
	sender   *fakeSender
	activity *fakeActivity
	clk      *clock.FakeClock
	settings *fakeSettingsService
}

func testConfig() config.Config {
	return config.Config{
		TwilioAccountSID: "AC00000000000000000000000000000000",
		TwilioAuthToken:  "secret",
		TwilioFromNumber: "+15550001111",
	}
}

func newFixture(t *testing.T, grid [][]string, cfg settingsdomain.Settings) *fixture {
	t.Helper()
	rows := newFakeRowStore(grid)
	sender := &fakeSender{failTo: map[string]bool{}}
	factory := &fakeFactory{sender: sender}
	activity := &fakeActivity{}
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	settings := &fakeSettingsService{cfg: cfg}

	svc := New(Params{
		Settings: settings,
		Rows:     rows,
		Resolver: delivery.NewResolver(delivery.ResolverParams{Store: emptyStore{}, Config: testConfig()}),
		Factory:  factory,
		Activity: activity,
		Clock:    clk,
		Log:      zap.NewNop(),
	})
	return &fixture{svc: svc, rows: rows, sender: sender, activity: activity, clk: clk, settings: settings}
}

func headerRow() []string {
	return []string{
		"Phone Number", "Customer Name", "Balance", "Number of Tiffins",
		"Due Date", "Message Status", "Order ID", "Payment Status",
	}
}

func dataRow(phone, name, balance, tiffins, due, status, order, paid string) []string {
	return []string{phone, name, balance, tiffins, due, status, order, paid}
}

func ptrBool(b bool) *bool { return &b }
func ptrInt(i int) *int    { return &i }

func TestSendBatchUnpaidRespectsBatchCap(t *testing.T) {
	grid := [][]string{headerRow()}
	// six unpaid, four paid
	for i := 0; i < 10; i++ {
		paid := ""
		if i%5 == 4 || i%5 == 3 {
			paid = "Paid"
		}
		grid = append(grid, dataRow(
			"647555100"+string(rune('0'+i)), "Customer", "120.5", "22",
			"2026-03-01", "", "ORD-"+string(rune('0'+i)), paid,
		))
	}

	f := newFixture(t, grid, settingsdomain.Defaults())
	res, err := f.svc.SendBatch(context.Background(), billingdomain.SendBatchRequest{
		Filter:            billingdomain.FilterUnpaid,
		BatchSizeOverride: ptrInt(3),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 0, res.Errors)
	assert.Equal(t, 3, res.Skipped)
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, f.sender.calls, 3)

	// sends are paced, but not after the last one
	require.Len(t, f.clk.Sleeps, 2)
	for _, d := range f.clk.Sleeps {
		assert.Equal(t, time.Second, d)
	}

	// one batch write covering the whole data range
	require.Len(t, f.rows.writes, 1)
	write := f.rows.writes[0]
	assert.Equal(t, 2, write.startRow)
	assert.Len(t, write.values, 10)
	assert.Contains(t, write.values[0], "Sent")
}

func TestSendBatchDryRunNeverPacesAndMarksRows(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("6475551234", "Asha", "85", "17", "2026-02-01", "", "ORD-1", ""),
		dataRow("6475555678", "Ravi", "92", "19", "2026-02-01", "", "ORD-2", ""),
	}

	f := newFixture(t, grid, settingsdomain.Defaults())
	res, err := f.svc.SendBatch(context.Background(), billingdomain.SendBatchRequest{
		Filter:         billingdomain.FilterUnpaid,
		DryRunOverride: ptrBool(true),
	})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.Sent)
	assert.Empty(t, f.clk.Sleeps)
	for _, call := range f.sender.calls {
		assert.True(t, call.dryRun)
	}
	require.Len(t, f.rows.writes, 1)
	for _, v := range f.rows.writes[0].values {
		assert.Contains(t, v, "[DRY RUN]")
	}
}

func TestSendBatchRowFailuresAreTerminalAndBatchContinues(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("6475551234", "Asha", "", "17", "2026-02-01", "", "ORD-1", ""), // missing balance
		dataRow("555", "Ravi", "92", "19", "2026-02-01", "", "ORD-2", ""),      // bad phone
		dataRow("6475559999", "Meera", "40", "8", "2026-02-01", "", "ORD-3", ""),
	}

	f := newFixture(t, grid, settingsdomain.Defaults())
	res, err := f.svc.SendBatch(context.Background(), billingdomain.SendBatchRequest{
		Filter: billingdomain.FilterUnpaid,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, res.Errors)
	require.Len(t, res.ErrorDetails, 2)
	assert.Equal(t, 2, res.ErrorDetails[0].RowIndex)
	assert.Contains(t, res.ErrorDetails[0].Reason, "missing required data")
	assert.Equal(t, 3, res.ErrorDetails[1].RowIndex)
	assert.Contains(t, res.ErrorDetails[1].Reason, "invalid phone")

	// only the valid row reached the provider
	require.Len(t, f.sender.calls, 1)
	assert.Equal(t, "+16475559999", f.sender.calls[0].to)
}

func TestSendBatchByDateMatchesMonthName(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("6475551111", "Asha", "85", "17", "2026-03-05", "", "ORD-1", ""),
		dataRow("6475552222", "Ravi", "92", "19", "April 2, 2026", "", "ORD-2", ""),
		dataRow("6475553333", "Meera", "40", "8", "2026-03-20", "", "ORD-3", "Paid"),
	}

	f := newFixture(t, grid, settingsdomain.Defaults())
	res, err := f.svc.SendBatch(context.Background(), billingdomain.SendBatchRequest{
		Filter:     billingdomain.FilterByDate,
		DateNeedle: "march",
	})
	require.NoError(t, err)

	// row 2 is the only unpaid March row
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Sent)
	require.Len(t, f.sender.calls, 1)
	assert.Equal(t, "+16475551111", f.sender.calls[0].to)
}

func TestSendBatchRejectsInvalidFilter(t *testing.T) {
	f := newFixture(t, [][]string{headerRow()}, settingsdomain.Defaults())

	_, err := f.svc.SendBatch(context.Background(), billingdomain.SendBatchRequest{Filter: "paidOnly"})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidFilter)

	_, err = f.svc.SendBatch(context.Background(), billingdomain.SendBatchRequest{Filter: billingdomain.FilterByDate})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidFilter)

	_, err = f.svc.SendBatch(context.Background(), billingdomain.SendBatchRequest{
		Filter:       billingdomain.FilterUnpaid,
		TemplateType: "nonsense",
	})
	assert.ErrorIs(t, err, billingdomain.ErrUnknownTemplate)
}

func TestSendBatchAbortsWithoutCredentials(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("6475551234", "Asha", "85", "17", "2026-02-01", "", "ORD-1", ""),
	}
	rows := newFakeRowStore(grid)
	sender := &fakeSender{}
	activity := &fakeActivity{}

	svc := New(Params{
		Settings: &fakeSettingsService{cfg: settingsdomain.Defaults()},
		Rows:     rows,
		Resolver: delivery.NewResolver(delivery.ResolverParams{Store: emptyStore{}, Config: config.Config{}}),
		Factory:  &fakeFactory{sender: sender},
		Activity: activity,
		Clock:    clock.NewFakeClock(time.Now()),
		Log:      zap.NewNop(),
	})

	_, err := svc.SendBatch(context.Background(), billingdomain.SendBatchRequest{Filter: billingdomain.FilterUnpaid})
	assert.ErrorIs(t, err, delivery.ErrMissingCredentials)
	assert.Empty(t, sender.calls)
	assert.Empty(t, rows.writes)
	assert.Equal(t, 1, activity.count("send_batch", activitydomain.LevelError))
}

func TestSendBatchWarnsOnDuplicatePhoneAndDueDate(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("6475551234", "Asha", "85", "17", "2026-02-01", "", "ORD-1", ""),
		dataRow("6475551234", "Asha Again", "85", "17", "2026-02-01", "", "ORD-2", ""),
	}

	f := newFixture(t, grid, settingsdomain.Defaults())
	res, err := f.svc.SendBatch(context.Background(), billingdomain.SendBatchRequest{
		Filter: billingdomain.FilterUnpaid,
	})
	require.NoError(t, err)

	// advisory only: both rows still go out
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, f.activity.count("send_batch", activitydomain.LevelWarn))
}

func TestSendBatchTestOrderNarrowsSelection(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("6475551111", "Asha", "85", "17", "2026-02-01", "", "ORD-1", ""),
		dataRow("6475552222", "Ravi", "92", "19", "2026-02-01", "", "ORD-2", ""),
	}

	cfg := settingsdomain.Defaults()
	cfg.Behavior.TestOrderID = "ORD-2"
	f := newFixture(t, grid, cfg)

	res, err := f.svc.SendBatch(context.Background(), billingdomain.SendBatchRequest{
		Filter: billingdomain.FilterAll,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, f.sender.calls, 1)
	assert.Equal(t, "+16475552222", f.sender.calls[0].to)
}

func TestSendSingleByOrderID(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("6475551111", "Asha", "85", "17", "2026-02-01", "", "ORD-1", ""),
		dataRow("6475552222", "Ravi", "92", "19", "2026-02-01", "", "ORD-2", ""),
	}

	f := newFixture(t, grid, settingsdomain.Defaults())
	res, err := f.svc.SendSingle(context.Background(), billingdomain.SendSingleRequest{OrderID: "ord-2"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.RowIndex)
	assert.Equal(t, "Ravi", res.Customer)

	// one single-row write at the target row
	require.Len(t, f.rows.writes, 1)
	assert.Equal(t, 3, f.rows.writes[0].startRow)
	assert.Len(t, f.rows.writes[0].values, 1)
}

func TestSendSingleUnknownRowFails(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("6475551111", "Asha", "85", "17", "2026-02-01", "", "ORD-1", ""),
	}

	f := newFixture(t, grid, settingsdomain.Defaults())

	_, err := f.svc.SendSingle(context.Background(), billingdomain.SendSingleRequest{OrderID: "ORD-404"})
	assert.ErrorIs(t, err, billingdomain.ErrRowNotFound)

	_, err = f.svc.SendSingle(context.Background(), billingdomain.SendSingleRequest{RowIndex: 99})
	assert.ErrorIs(t, err, billingdomain.ErrRowNotFound)

	_, err = f.svc.SendSingle(context.Background(), billingdomain.SendSingleRequest{})
	assert.ErrorIs(t, err, billingdomain.ErrNoRowSelector)
}

func TestClearStatusesBlanksDataRows(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("6475551111", "Asha", "85", "17", "2026-02-01", "Sent earlier", "ORD-1", ""),
		dataRow("6475552222", "Ravi", "92", "19", "2026-02-01", "Failed", "ORD-2", ""),
	}

	f := newFixture(t, grid, settingsdomain.Defaults())
	res, err := f.svc.ClearStatuses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Cleared)
	require.Len(t, f.rows.writes, 1)
	write := f.rows.writes[0]
	assert.Equal(t, 2, write.startRow)
	for i := range write.values {
		assert.Empty(t, write.values[i])
		assert.Empty(t, write.colors[i])
	}
}

func TestPaymentEditSendsThankYouExactlyOnce(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("6475551111", "Asha", "85", "17", "2026-02-01", "", "ORD-1", "Paid"),
	}

	f := newFixture(t, grid, settingsdomain.Defaults())
	req := billingdomain.PaymentEditRequest{RowIndex: 2, NewValue: "Paid", OldValue: "unpaid"}

	first, err := f.svc.HandlePaymentEdit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, first.Sent)
	assert.Contains(t, first.Status, "Thank-you:")
	require.Len(t, f.sender.calls, 1)

	// the write-back landed, so the same edit event is now a no-op
	second, err := f.svc.HandlePaymentEdit(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Sent)
	assert.Equal(t, "thank-you already sent", second.Reason)
	assert.Len(t, f.sender.calls, 1)
}

func TestPaymentEditIgnoresNonPaidTransitions(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("6475551111", "Asha", "85", "17", "2026-02-01", "", "ORD-1", "Paid"),
	}
	f := newFixture(t, grid, settingsdomain.Defaults())

	res, err := f.svc.HandlePaymentEdit(context.Background(), billingdomain.PaymentEditRequest{
		RowIndex: 2, NewValue: "pending",
	})
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Equal(t, "not a transition to paid", res.Reason)

	res, err = f.svc.HandlePaymentEdit(context.Background(), billingdomain.PaymentEditRequest{
		RowIndex: 2, NewValue: "Paid", OldValue: "paid",
	})
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Empty(t, f.sender.calls)
}

func TestPaymentEditMissingDataWritesTerminalStatus(t *testing.T) {
	grid := [][]string{
		headerRow(),
		dataRow("", "Asha", "85", "17", "2026-02-01", "", "ORD-1", "Paid"),
	}
	f := newFixture(t, grid, settingsdomain.Defaults())

	res, err := f.svc.HandlePaymentEdit(context.Background(), billingdomain.PaymentEditRequest{
		RowIndex: 2, NewValue: "Paid",
	})
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Equal(t, "missing required data", res.Reason)
	require.Len(t, f.rows.writes, 1)
	assert.Contains(t, f.rows.writes[0].values[0], "missing required data")
	assert.Empty(t, f.sender.calls)
}

func TestVerifyCredentialsReturnsAccount(t *testing.T) {
	f := newFixture(t, [][]string{headerRow()}, settingsdomain.Defaults())
	f.sender.account = delivery.Account{FriendlyName: "Tiffin Billing", Status: "active"}

	account, err := f.svc.VerifyCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Tiffin Billing", account.FriendlyName)
	assert.Equal(t, "active", account.Status)
}
