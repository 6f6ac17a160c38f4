// Package datetime computes the calendar dates and times of day used to lay out bulk
// commit schedules.
package datetime

import (
	"strconv"
	"strings"
	"time"

	"streakd/internal/domain"
)

const minutesPerDay = 24 * 60

// Rand is the randomness the generator draws from. *math/rand/v2.Rand satisfies it,
// so tests can pass a seeded source.
type Rand interface {
	IntN(n int) int
}

// GenerateCommitDates returns every whole day in [start, end] whose weekday matches
// the frequency rule, in ascending order. Days are computed in start's location.
func GenerateCommitDates(start, end time.Time, frequency domain.Frequency, customDays []int) []time.Time {
	loc := start.Location()
	day := truncateToDay(start, loc)
	last := truncateToDay(end.In(loc), loc)

	var custom map[time.Weekday]bool
	if frequency == domain.FrequencyCustom {
		custom = make(map[time.Weekday]bool, len(customDays))
		for _, d := range customDays {
			custom[time.Weekday(d)] = true
		}
	}

	dates := []time.Time{}
	for !day.After(last) {
		if matchesFrequency(day.Weekday(), frequency, custom) {
			dates = append(dates, day)
		}
		day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc)
	}
	return dates
}

func matchesFrequency(wd time.Weekday, frequency domain.Frequency, custom map[time.Weekday]bool) bool {
	switch frequency {
	case domain.FrequencyDaily:
		return true
	case domain.FrequencyWeekdays:
		return wd >= time.Monday && wd <= time.Friday
	case domain.FrequencyWeekends:
		return wd == time.Saturday || wd == time.Sunday
	case domain.FrequencyCustom:
		return custom[wd]
	default:
		return false
	}
}

// PickTimeInRange draws a uniform minute in the window [startTime, endTime) on date.
// An end earlier than (or equal to) the start wraps past midnight; the result stays on
// date's calendar day, so a wrapped draw lands in the early hours of that same day.
func PickTimeInRange(r Rand, date time.Time, startTime, endTime string) (time.Time, error) {
	startMinutes, err := clockMinutes(startTime)
	if err != nil {
		return time.Time{}, err
	}
	endMinutes, err := clockMinutes(endTime)
	if err != nil {
		return time.Time{}, err
	}

	window := WindowMinutes(startMinutes, endMinutes)
	final := (startMinutes + r.IntN(window)) % minutesPerDay

	return atClock(date, final/60, final%60, 0), nil
}

// WindowMinutes is the length of the [start, end) window, wrapping past midnight when
// end does not come after start.
func WindowMinutes(startMinutes, endMinutes int) int {
	if endMinutes > startMinutes {
		return endMinutes - startMinutes
	}
	return (minutesPerDay - startMinutes) + endMinutes
}

// PickTimeFromList applies one uniformly chosen "HH:MM[:SS]" candidate to date.
func PickTimeFromList(r Rand, date time.Time, candidateTimes []string) (time.Time, error) {
	if len(candidateTimes) == 0 {
		return time.Time{}, domain.Validationf("no candidate times given")
	}
	return ApplyClock(date, candidateTimes[r.IntN(len(candidateTimes))])
}

// ApplyClock sets the time of day of date to an "HH:MM[:SS]" value.
func ApplyClock(date time.Time, clock string) (time.Time, error) {
	h, m, s, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return atClock(date, h, m, s), nil
}

// Noon is the fallback time for schedules that give neither a range nor a list.
func Noon(date time.Time) time.Time {
	return atClock(date, 12, 0, 0)
}

// ParseClock parses "HH:MM" or "HH:MM:SS".
func ParseClock(clock string) (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, domain.Validationf("invalid time %q: expected HH:MM or HH:MM:SS", clock)
	}

	limits := []int{23, 59, 59}
	values := make([]int, 3)
	for i, p := range parts {
		v, convErr := strconv.Atoi(p)
		if convErr != nil || v < 0 || v > limits[i] {
			return 0, 0, 0, domain.Validationf("invalid time %q", clock)
		}
		values[i] = v
	}
	return values[0], values[1], values[2], nil
}

func clockMinutes(clock string) (int, error) {
	h, m, _, err := ParseClock(clock)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

func atClock(date time.Time, hour, minute, second int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, second, 0, date.Location())
}

func truncateToDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
