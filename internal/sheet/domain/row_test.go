package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBalance(t *testing.T) {
	assert.Equal(t, "$120.00", FormatBalance("120"))
	assert.Equal(t, "$1234.50", FormatBalance("$1,234.5"))
	assert.Equal(t, "n/a", FormatBalance("n/a"))
	assert.Equal(t, "", FormatBalance(""))
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "March", MonthName("March 2026"))
	assert.Equal(t, "March", MonthName("due in march"))
	assert.Equal(t, "February", MonthName("2026-02-15"))
	assert.Equal(t, "April", MonthName("04/01/2026"))
	assert.Equal(t, "", MonthName("next week"))
	assert.Equal(t, "", MonthName(""))
}

func TestHasBillingData(t *testing.T) {
	row := CustomerRow{Phone: "6475551234", Name: "Priya", BalanceRaw: "120", NumTiffins: "20"}
	assert.True(t, row.HasBillingData())

	row.NumTiffins = ""
	assert.False(t, row.HasBillingData())
}
