package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"parkflow/internal/fee"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLookup_Table(t *testing.T) {
	body := `{
		"rates_2wheeler": {"upTo2Hours": 2, "upTo6Hours": 4, "upTo12Hours": 6, "upTo24Hours": 10},
		"rates_4wheeler": {"upTo2Hours": 5, "upTo6Hours": 10, "upTo12Hours": 18, "upTo24Hours": 30}
	}`
	var lookup RateLookup
	require.NoError(t, json.Unmarshal([]byte(body), &lookup))
	require.True(t, lookup.Configured())

	table, err := lookup.Table()
	require.NoError(t, err)
	assert.Equal(t, fee.RateTier{UpTo2Hours: 2, UpTo6Hours: 4, UpTo12Hours: 6, UpTo24Hours: 10}, table.TwoWheeler)
	assert.Equal(t, 30.0, table.FourWheeler.UpTo24Hours)

	back := RateLookupFromTable(*table)
	again, err := back.Table()
	require.NoError(t, err)
	assert.Equal(t, table, again)
}

func TestRateLookup_MissingField(t *testing.T) {
	body := `{
		"rates_2wheeler": {"upTo2Hours": 2, "upTo6Hours": 4, "upTo12Hours": 6, "upTo24Hours": 10},
		"rates_4wheeler": {"upTo2Hours": 5, "upTo6Hours": 10, "upTo24Hours": 30}
	}`
	var lookup RateLookup
	require.NoError(t, json.Unmarshal([]byte(body), &lookup))

	_, err := lookup.Table()
	require.Error(t, err)
	assert.True(t, errors.Is(err, &fee.Error{Kind: fee.InvalidRateTable, Field: fee.FieldUpTo12Hours}))
	assert.Contains(t, err.Error(), "upTo12Hours")
}

func TestRateLookup_NotConfigured(t *testing.T) {
	var lookup *RateLookup
	assert.False(t, lookup.Configured())
	assert.False(t, (&RateLookup{}).Configured())

	partial := &RateLookup{Rates2Wheeler: &RawRateTier{}}
	assert.True(t, partial.Configured())
	_, err := partial.Table()
	assert.Equal(t, fee.InvalidRateTable, fee.KindOf(err))
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod(" Card ")
	require.NoError(t, err)
	assert.Equal(t, PaymentCard, m)

	_, err = ParsePaymentMethod("cheque")
	assert.Error(t, err)
}
