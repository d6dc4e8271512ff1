package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{input: "42", expected: 42, ok: true},
		{input: "  3.5 ", expected: 3.5, ok: true},
		{input: "-7", expected: -7, ok: true},
		{input: "1,234", expected: 1234, ok: true},
		{input: "1,234,567.89", expected: 1234567.89, ok: true},
		{input: "$99.50", expected: 99.5, ok: true},
		{input: "-$12", expected: -12, ok: true},
		{input: "12.5%", expected: 12.5, ok: true},
		{input: "1e3", expected: 1000, ok: true},
		{input: "", ok: false},
		{input: "   ", ok: false},
		{input: "abc", ok: false},
		{input: "NaN", ok: false},
		{input: "Inf", ok: false},
		{input: "-inf", ok: false},
		{input: "12,34", ok: false},
		{input: "2024-01-01", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, ok := ParseNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, v)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
	}{
		{input: "2024-03-05", expected: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{input: "2024-03-05 14:30:00", expected: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)},
		{input: "2024-03-05T14:30:00", expected: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)},
		{input: "2024-03-05T14:30:00+02:00", expected: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)},
		{input: " 2024-03-05 ", expected: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ts, ok := ParseTimestamp(tt.input)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, ts)
		})
	}

	for _, bad := range []string{"", "not a date", "yesterday-ish"} {
		_, ok := ParseTimestamp(bad)
		assert.False(t, ok, bad)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, ts := range []time.Time{
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 23, 59, 1, 0, time.UTC),
	} {
		parsed, ok := ParseTimestamp(FormatTimestamp(ts))
		assert.True(t, ok)
		assert.Equal(t, ts, parsed)
	}

	for _, v := range []float64{0, -1.5, 1e-9, 123456789.125} {
		parsed, ok := ParseNumber(FormatNumber(v))
		assert.True(t, ok)
		assert.Equal(t, v, parsed)
	}
}
