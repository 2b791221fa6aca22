package domain

import (
	"testing"

	settingsdomain "github.com/smallbiznis/tiffinbill/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveHeadersMatchesMapping(t *testing.T) {
	header := []string{"Order ID", "Customer Name", "Phone Number", "Balance"}
	mapping := map[string]string{
		settingsdomain.ColumnOrderID:      "Order ID",
		settingsdomain.ColumnCustomerName: "Customer Name",
		settingsdomain.ColumnPhoneNumber:  "Phone Number",
		settingsdomain.ColumnBalance:      "Balance",
	}

	indexes, err := ResolveHeaders(header, mapping, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, indexes[settingsdomain.ColumnOrderID])
	assert.Equal(t, 2, indexes[settingsdomain.ColumnPhoneNumber])
}

func TestResolveHeadersIsCaseInsensitive(t *testing.T) {
	indexes, err := ResolveHeaders([]string{"phone number"}, map[string]string{
		settingsdomain.ColumnPhoneNumber: "Phone Number",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, indexes[settingsdomain.ColumnPhoneNumber])
}

func TestResolveHeadersDuplicateUsesLastOccurrence(t *testing.T) {
	header := []string{"Balance", "Customer Name", "Balance"}
	indexes, err := ResolveHeaders(header, map[string]string{
		settingsdomain.ColumnBalance:      "Balance",
		settingsdomain.ColumnCustomerName: "Customer Name",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, indexes[settingsdomain.ColumnBalance])
}

func TestResolveHeadersMissingColumnFails(t *testing.T) {
	_, err := ResolveHeaders([]string{"Customer Name"}, map[string]string{
		settingsdomain.ColumnPhoneNumber: "Phone Number",
	}, zap.NewNop())
	assert.ErrorIs(t, err, ErrColumnsUnmapped)
}

func TestCellHandlesRaggedRows(t *testing.T) {
	indexes := ColumnIndexes{settingsdomain.ColumnBalance: 5}
	assert.Equal(t, "", indexes.Cell([]string{"short", "row"}, settingsdomain.ColumnBalance))
}
