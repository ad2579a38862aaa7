package session

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDuration converts a catalog duration string like "30 m" or "1 h" to
// minutes. Only the first value+unit pair is read; the catalog never stores
// compound durations. Returns ok=false for malformed input, which the total
// treats as a zero-minute contribution.
func ParseDuration(s string) (int, bool) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return 0, false
	}
	value, err := strconv.Atoi(fields[0])
	if err != nil || value < 0 {
		return 0, false
	}
	if fields[1] == "h" {
		return value * 60, true
	}
	return value, true
}

// FormatDuration renders total minutes as "1h 30m", omitting zero-valued
// components. Zero total renders as an empty string.
func FormatDuration(totalMinutes int) string {
	if totalMinutes <= 0 {
		return ""
	}
	hours := totalMinutes / 60
	minutes := totalMinutes % 60

	var b strings.Builder
	if hours > 0 {
		fmt.Fprintf(&b, "%dh ", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dm", minutes)
	}
	return strings.TrimRight(b.String(), " ")
}
