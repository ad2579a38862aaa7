package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		minutes int
		ok      bool
	}{
		{"one hour", "1 h", 60, true},
		{"thirty minutes", "30 m", 30, true},
		{"two hours", "2 h", 120, true},
		{"ninety minutes", "90 m", 90, true},
		{"unknown unit counts as minutes", "45 min", 45, true},
		{"first pair only", "1 h 30 m", 60, true},
		{"empty", "", 0, false},
		{"no unit", "30", 0, false},
		{"non numeric", "abc m", 0, false},
		{"negative", "-5 m", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minutes, ok := ParseDuration(tt.input)
			assert.Equal(t, tt.minutes, minutes)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		want    string
	}{
		{"hours and minutes", 90, "1h 30m"},
		{"whole hours", 120, "2h"},
		{"minutes only", 45, "45m"},
		{"zero", 0, ""},
		{"negative", -10, ""},
		{"long", 150, "2h 30m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.minutes))
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	durations := []string{"30 m", "1 h", "45 m", "2 h"}
	total := 0
	for _, d := range durations {
		m, ok := ParseDuration(d)
		assert.True(t, ok)
		total += m
	}
	assert.Equal(t, 255, total)
	assert.Equal(t, "4h 15m", FormatDuration(total))
}
