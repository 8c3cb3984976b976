// Package export decides when a scheduled report is due and renders it as
// an xlsx workbook.
package export

import (
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/report"
)

// DueWindow is how far from the scheduled wall-clock time a run still counts.
const DueWindow = 30 * time.Minute

var minInterval = map[string]time.Duration{
	domain.FrequencyDaily:   23 * time.Hour,
	domain.FrequencyWeekly:  6*24*time.Hour + 23*time.Hour,
	domain.FrequencyMonthly: 27 * 24 * time.Hour,
}

func Location(cfg domain.ScheduledExportConfig) *time.Location {
	name := strings.TrimSpace(cfg.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseClock reads "HH:MM".
func ParseClock(raw string) (hour int, minute int, ok bool) {
	h, m, found := strings.Cut(strings.TrimSpace(raw), ":")
	if !found {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// IsDue reports whether cfg should run at now.
func IsDue(cfg domain.ScheduledExportConfig, now time.Time) bool {
	if !cfg.IsActive {
		return false
	}
	interval, ok := minInterval[cfg.Frequency]
	if !ok {
		return false
	}
	hour, minute, ok := ParseClock(cfg.ScheduleTime)
	if !ok {
		return false
	}

	slot, ok := nearestSlot(now.In(Location(cfg)), hour, minute)
	if !ok {
		return false
	}

	switch cfg.Frequency {
	case domain.FrequencyWeekly:
		if cfg.DayOfWeek != nil && int(slot.Weekday()) != *cfg.DayOfWeek {
			return false
		}
	case domain.FrequencyMonthly:
		want := 1
		if cfg.DayOfMonth != nil {
			want = *cfg.DayOfMonth
		}
		if last := daysIn(slot.Year(), slot.Month()); want > last {
			want = last
		}
		if slot.Day() != want {
			return false
		}
	}

	if cfg.LastRunAt == nil {
		return true
	}
	return now.Sub(*cfg.LastRunAt) >= interval
}

// nearestSlot is the scheduled time on the local day of now, or on an
// adjacent day when the window crosses midnight.
func nearestSlot(local time.Time, hour int, minute int) (time.Time, bool) {
	for _, offset := range []int{0, -1, 1} {
		d := local.AddDate(0, 0, offset)
		slot := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, local.Location())
		diff := local.Sub(slot)
		if diff < 0 {
			diff = -diff
		}
		if diff <= DueWindow {
			return slot, true
		}
	}
	return time.Time{}, false
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Window is the reporting period a run at now covers, in the config's
// local calendar.
func Window(cfg domain.ScheduledExportConfig, now time.Time) report.Range {
	local := now.In(Location(cfg))
	to := domain.NewDate(local.Year(), local.Month(), local.Day())

	var from time.Time
	switch cfg.Frequency {
	case domain.FrequencyWeekly:
		from = to.AddDate(0, 0, -7)
	case domain.FrequencyMonthly:
		from = to.AddDate(0, -1, 0)
	default:
		from = to.AddDate(0, 0, -1)
	}
	return report.Range{From: domain.Date{Time: from}, To: to}
}
