package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		// Standard Go format
		{"hours", "720h", 720 * time.Hour, false},
		{"minutes", "90m", 90 * time.Minute, false},
		{"seconds", "45s", 45 * time.Second, false},
		{"milliseconds", "100ms", 100 * time.Millisecond, false},
		{"combined standard", "1h30m", 90 * time.Minute, false},

		// Retention-style extended units
		{"days short", "7d", 7 * 24 * time.Hour, false},
		{"single day", "1d", 24 * time.Hour, false},
		{"days and hours", "1d12h", 36 * time.Hour, false},
		{"day singular word", "1 day", 24 * time.Hour, false},
		{"days plural word", "30 days", 30 * 24 * time.Hour, false},
		{"days no space", "30days", 30 * 24 * time.Hour, false},

		{"weeks short", "2w", 14 * 24 * time.Hour, false},
		{"wk abbrev", "2wk", 14 * 24 * time.Hour, false},
		{"wks abbrev", "2wks", 14 * 24 * time.Hour, false},
		{"week singular word", "1 week", 7 * 24 * time.Hour, false},
		{"weeks plural word", "2 weeks", 14 * 24 * time.Hour, false},

		{"month short", "1mo", 30 * 24 * time.Hour, false},
		{"months short", "2mos", 60 * 24 * time.Hour, false},
		{"month singular word", "1 month", 30 * 24 * time.Hour, false},
		{"months plural word", "2 months", 60 * 24 * time.Hour, false},

		// Combinations
		{"weeks and days", "1w2d", 9 * 24 * time.Hour, false},
		{"weeks days hours", "1w2d12h", 9*24*time.Hour + 12*time.Hour, false},
		{"full combo short", "1w2d3h4m5s", 9*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second, false},
		{"full combo words", "1 week 2 days 3h", 9*24*time.Hour + 3*time.Hour, false},
		{"month week day", "1mo1w1d", (30 + 7 + 1) * 24 * time.Hour, false},

		// Case insensitive
		{"DAYS uppercase", "30DAYS", 30 * 24 * time.Hour, false},
		{"Days mixed", "30Days", 30 * 24 * time.Hour, false},

		// Zero
		{"zero seconds", "0s", 0, false},
		{"zero hours", "0h", 0, false},

		// Negative
		{"negative days", "-30d", -30 * 24 * time.Hour, false},
		{"negative days words", "-30 days", -30 * 24 * time.Hour, false},
		{"negative hours", "-12h", -12 * time.Hour, false},

		// Standard units as full words
		{"hours word", "3 hours", 3 * time.Hour, false},
		{"minutes word", "30 minutes", 30 * time.Minute, false},
		{"seconds word", "45 seconds", 45 * time.Second, false},
		{"hrs abbrev", "2 hrs", 2 * time.Hour, false},
		{"mins abbrev", "15 mins", 15 * time.Minute, false},
		{"mixed full words", "2 hours 30 minutes", 2*time.Hour + 30*time.Minute, false},

		// Errors
		{"invalid", "invalid", 0, true},
		{"empty", "", 0, true},
		{"whitespace only", "   ", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d, "Parse(%q) = %v, want %v", tt.input, d, tt.expected)
		})
	}
}

func TestMustParse(t *testing.T) {
	assert.NotPanics(t, func() {
		d := MustParse("7d")
		assert.Equal(t, 7*24*time.Hour, d)
	})

	assert.Panics(t, func() {
		MustParse("invalid")
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"zero", 0, "0s"},
		{"seconds", 45 * time.Second, "45s"},
		{"minutes", 30 * time.Minute, "30m"},
		{"hours", 12 * time.Hour, "12h"},
		{"hours and minutes", 90 * time.Minute, "1h30m"},
		{"one day", 24 * time.Hour, "1d"},
		{"days", 3 * 24 * time.Hour, "3d"},
		{"day and hours", 36 * time.Hour, "1d12h"},
		{"week as days", 7 * 24 * time.Hour, "7d"},
		{"negative days", -3 * 24 * time.Hour, "-3d"},
		{"sub-second", 250 * time.Millisecond, "250ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.duration))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	durations := []time.Duration{
		0,
		time.Second,
		time.Minute,
		time.Hour,
		24 * time.Hour,
		7 * 24 * time.Hour,
		30 * 24 * time.Hour,
		36*time.Hour + 15*time.Minute,
	}

	for _, d := range durations {
		formatted := Format(d)
		parsed, err := Parse(formatted)
		require.NoError(t, err, "Parse(Format(%v)) failed", d)
		assert.Equal(t, d, parsed, "round trip failed for %v: formatted=%q, parsed=%v", d, formatted, parsed)
	}
}

func TestParseEquivalence(t *testing.T) {
	equivalents := [][]string{
		{"1d", "1 day", "24h"},
		{"1w", "1 week", "7d", "7 days", "168h"},
		{"2w", "2 weeks", "2wks", "14d", "14 days", "336h"},
		{"1d12h", "36h"},
		{"1mo", "1 month", "30d", "30 days"},
		{"2mo", "2 months", "60d"},
	}

	for _, group := range equivalents {
		var expected time.Duration
		for i, s := range group {
			d, err := Parse(s)
			require.NoError(t, err)
			if i == 0 {
				expected = d
			} else {
				assert.Equal(t, expected, d, "%q should equal %q", s, group[0])
			}
		}
	}
}
