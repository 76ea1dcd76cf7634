package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiryMonthYear(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"slash separated", "05/26", time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{"dash separated", "11-27", time.Date(2027, time.November, 1, 0, 0, 0, 0, time.UTC)},
		{"single digit month", "5/26", time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{"year pivot below 50", "01/49", time.Date(2049, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"year pivot at 50", "01/50", time.Date(1950, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"year pivot above 50", "12/99", time.Date(1999, time.December, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseExpiry(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseExpiryYearMonth(t *testing.T) {
	got := ParseExpiry("2025-11")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC), *got)

	got = ParseExpiry("2026-5")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC), *got)
}

func TestParseExpiryGenericDate(t *testing.T) {
	got := ParseExpiry("2025-11-30")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC), *got)

	got = ParseExpiry("Mar 2027")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC), *got)
}

func TestParseExpiryUnknown(t *testing.T) {
	assert.Nil(t, ParseExpiry(""))
	assert.Nil(t, ParseExpiry("   "))
	assert.Nil(t, ParseExpiry("not-a-date"))
	assert.Nil(t, ParseExpiry("13/26"), "month 13 is invalid")
	assert.Nil(t, ParseExpiry("00/26"), "month 0 is invalid")
}
