// Package format provides human-readable formatting helpers. The spoken
// helpers render numbers the way they should be read on air; figures that
// reach the script writer already carry separators and units so the
// generated copy reads naturally.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Bytes formats a byte count into human-readable form.
// Example: Bytes(1536) => "1.5 KB"
func Bytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	sizes := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), sizes[exp])
}

// Number formats a number with thousand separators.
// Example: Number(1234567) => "1,234,567"
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Percentage formats a percentage value.
// Example: Percentage(45.678, 1) => "45.7%"
func Percentage(value float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, value)
}

// Price renders a USD amount for script context lines. Cents are noise
// when read on air, so amounts round to whole dollars.
// Example: Price(64250.73) => "$64,251"
func Price(v float64) string {
	return printer.Sprintf("$%d", int64(math.Round(v)))
}

// Change renders a 24-hour percentage move the way a host would say it.
// Moves inside ±0.05% read as flat.
// Example: Change(2.53) => "up 2.5%", Change(-0.04) => "flat"
func Change(pct float64) string {
	switch {
	case pct > 0.05:
		return fmt.Sprintf("up %.1f%%", pct)
	case pct < -0.05:
		return fmt.Sprintf("down %.1f%%", -pct)
	default:
		return "flat"
	}
}

// Temperature renders a Celsius reading for script context lines.
// Example: Temperature(21.4) => "21°C"
func Temperature(c float64) string {
	return fmt.Sprintf("%.0f°C", c)
}
