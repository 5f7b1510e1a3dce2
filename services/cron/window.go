package cron

import (
	"fmt"
	"time"
)

// ParseWindowTime validates an "HH:MM" working-window bound and returns
// it as minutes past midnight.
func ParseWindowTime(s string) (int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("invalid working window time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("working window time %q out of range", s)
	}
	return hour*60 + minute, nil
}

// EligibleAt reports whether the cron may run at the given instant.
// The working window is compared in loc, the single reference location all
// crons share; a window whose end precedes its start spans midnight.
// Pure: no side effects, deterministic for given inputs.
func (c *Cron) EligibleAt(now time.Time, loc *time.Location) bool {
	if c.Status != StatusActive || c.Deleted {
		return false
	}
	if now.Before(c.CronStartAt) || now.After(c.CronEndAt) {
		return false
	}

	start, err := ParseWindowTime(c.WorkingWindowStartAt)
	if err != nil {
		return false
	}
	end, err := ParseWindowTime(c.WorkingWindowEndAt)
	if err != nil {
		return false
	}

	local := now.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if start <= end {
		return minute >= start && minute <= end
	}
	// Window spans midnight, e.g. 22:00-06:00.
	return minute >= start || minute <= end
}
