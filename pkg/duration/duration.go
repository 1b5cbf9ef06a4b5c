// Package duration parses the human-readable duration strings used by
// retention and scheduling settings. It extends Go's time.ParseDuration
// with day, week, and month units so operators can write "7d", "2 weeks",
// or "1mo" in the settings table instead of "168h".
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Day represents 24 hours.
	Day = 24 * time.Hour
	// Week represents 7 days.
	Week = 7 * Day
	// Month represents 30 days (approximate).
	Month = 30 * Day
)

// extendedUnitHours maps day-and-above unit spellings to their hour count.
var extendedUnitHours = map[string]int64{
	"mo":     30 * 24,
	"mos":    30 * 24,
	"month":  30 * 24,
	"months": 30 * 24,

	"w":     7 * 24,
	"wk":    7 * 24,
	"wks":   7 * 24,
	"week":  7 * 24,
	"weeks": 7 * 24,

	"d":    24,
	"day":  24,
	"days": 24,
}

// wordUnitShort maps full-word sub-day units to time.ParseDuration spellings.
var wordUnitShort = map[string]string{
	"hour":    "h",
	"hours":   "h",
	"hr":      "h",
	"hrs":     "h",
	"minute":  "m",
	"minutes": "m",
	"min":     "m",
	"mins":    "m",
	"second":  "s",
	"seconds": "s",
	"sec":     "s",
	"secs":    "s",
}

// Whitespace between number and unit is optional: "30d" and "30 days"
// both parse.
var (
	extendedUnitPattern = regexp.MustCompile(`(?i)(\d+)\s*(months?|mos?|weeks?|wks?|w|days?|d)`)
	wordUnitPattern     = regexp.MustCompile(`(?i)(\d+)\s*(hours?|hrs?|minutes?|mins?|seconds?|secs?)`)
)

// Parse parses a human-readable duration string such as "7d", "2 weeks",
// "1mo", "90m", or "1d12h". Extended units are converted to hours before
// delegating to time.ParseDuration, so anything the standard parser
// accepts still works.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("duration: empty string")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}

	var extendedHours int64
	remaining := extendedUnitPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := extendedUnitPattern.FindStringSubmatch(match)
		if len(parts) == 3 {
			value, _ := strconv.ParseInt(parts[1], 10, 64)
			if hours, ok := extendedUnitHours[strings.ToLower(parts[2])]; ok {
				extendedHours += value * hours
			}
		}
		return ""
	})

	remaining = wordUnitPattern.ReplaceAllStringFunc(remaining, func(match string) string {
		parts := wordUnitPattern.FindStringSubmatch(match)
		if len(parts) == 3 {
			if short, ok := wordUnitShort[strings.ToLower(parts[2])]; ok {
				return parts[1] + short
			}
		}
		return match
	})

	// The standard parser rejects spaces between components.
	remaining = strings.Join(strings.Fields(remaining), "")

	durationStr := remaining
	if extendedHours > 0 {
		durationStr = fmt.Sprintf("%dh", extendedHours) + remaining
	}
	if durationStr == "" {
		durationStr = "0s"
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return 0, fmt.Errorf("duration: %w", err)
	}

	if negative {
		d = -d
	}
	return d, nil
}

// MustParse is like Parse but panics on error. Use only for built-in
// setting defaults.
func MustParse(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders a duration compactly with days as the largest unit,
// omitting zero components: 36h becomes "1d12h", 90m becomes "1h30m".
// Sub-second durations fall through to the standard formatting.
func Format(d time.Duration) string {
	if d == 0 {
		return "0s"
	}

	negative := d < 0
	if negative {
		d = -d
	}

	if d < time.Second {
		if negative {
			return "-" + d.String()
		}
		return d.String()
	}

	var b strings.Builder
	days := d / Day
	d -= days * Day
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	if days > 0 {
		fmt.Fprintf(&b, "%dd", days)
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%dh", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dm", minutes)
	}
	if seconds > 0 {
		fmt.Fprintf(&b, "%ds", seconds)
	}

	if negative {
		return "-" + b.String()
	}
	return b.String()
}
