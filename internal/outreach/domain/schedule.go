package domain

import (
	"strconv"
	"strings"
	"time"
)

// IsWithinWindow reports whether now falls inside the campaign's daily send
// window. Both bounds are inclusive wall-clock minutes in now's location.
// A window whose start is after its end wraps past midnight.
// Campaigns without a (parseable) window are always open.
func IsWithinWindow(s Settings, now time.Time) bool {
	start, okStart := parseClock(s.DailyStart)
	end, okEnd := parseClock(s.DailyEnd)
	if !okStart || !okEnd {
		return true
	}

	minute := now.Hour()*60 + now.Minute()
	if start <= end {
		return minute >= start && minute <= end
	}
	return minute >= start || minute <= end
}

// parseClock converts "HH:MM" (or "HH:MM:SS") to minutes after midnight.
func parseClock(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, false
	}
	if len(parts) == 3 {
		seconds, err := strconv.Atoi(parts[2])
		if err != nil || seconds < 0 || seconds > 59 {
			return 0, false
		}
	}

	return hours*60 + minutes, true
}
