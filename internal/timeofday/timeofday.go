// Package timeofday converts human time expressions into the canonical
// 24-hour "HH:mm" form used to match reminders against the wall clock.
package timeofday

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical reminder time layout.
const Layout = "15:04"

// Normalize turns "5:00 AM", "12:30 pm" or "17:05" into "05:00", "12:30" and "17:05".
// Input it cannot read is returned trimmed and otherwise untouched; such a
// value never equals a formatted minute so the reminder simply never fires.
func Normalize(expr string) string {
	trimmed := strings.TrimSpace(expr)
	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) == 0 || len(fields) > 2 {
		return trimmed
	}

	hourPart, minutePart, ok := strings.Cut(fields[0], ":")
	if !ok {
		return trimmed
	}
	hours, errH := strconv.Atoi(hourPart)
	minutes, errM := strconv.Atoi(minutePart)
	if errH != nil || errM != nil {
		return trimmed
	}

	if len(fields) == 2 {
		switch fields[1] {
		case "pm":
			if hours < 12 {
				hours += 12
			}
		case "am":
			if hours == 12 {
				hours = 0
			}
		default:
			return trimmed
		}
	}

	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

// Minute formats t as the "HH:mm" wall-clock minute it falls in.
func Minute(t time.Time) string {
	return t.Format(Layout)
}
