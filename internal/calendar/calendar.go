package calendar

import (
	"errors"
	"sort"
	"time"
)

var ErrEmptyRange = errors.New("calendar range end is not after start")

// Kind classifies a calendar event
type Kind string

const (
	KindFixed    Kind = "fixe"     // fixed-date public holiday
	KindMobile   Kind = "mobile"   // movable public holiday (Easter family)
	KindVacation Kind = "vacances" // school vacation day
)

// priority orders kinds for label selection when a day carries several events
func (k Kind) priority() int {
	switch k {
	case KindFixed:
		return 0
	case KindMobile:
		return 1
	default:
		return 2
	}
}

// DatedEvent is one sparse calendar entry: a single day with a kind and label
type DatedEvent struct {
	Date  time.Time
	Label string
	Kind  Kind
}

// DaySummary aggregates all events falling on one day
type DaySummary struct {
	Holiday  bool
	Vacation bool
	Label    string
}

// Hour is one row of the dense hourly calendar
type Hour struct {
	Time     time.Time
	Holiday  bool
	Vacation bool
	Label    string
}

// HourlyCalendar is the dense hourly expansion of sparse dated events
type HourlyCalendar struct {
	Hours []Hour

	loc   *time.Location
	byDay map[int64]DaySummary
}

// Expand densifies sparse events into one row per elapsed hour of
// [start, end). Every hour of a day carries that day's aggregated
// flags; days without events get false flags and an empty label.
// Hours step by absolute duration, so the row count is exact across
// DST transitions.
func Expand(events []DatedEvent, start, end time.Time) (*HourlyCalendar, error) {
	if !end.After(start) {
		return nil, ErrEmptyRange
	}

	loc := start.Location()
	cal := &HourlyCalendar{
		loc:   loc,
		byDay: summarizeByDay(events, loc),
	}

	for t := start; t.Before(end); t = t.Add(time.Hour) {
		day := cal.byDay[dayKey(t, loc)]
		cal.Hours = append(cal.Hours, Hour{
			Time:     t,
			Holiday:  day.Holiday,
			Vacation: day.Vacation,
			Label:    day.Label,
		})
	}

	return cal, nil
}

// FromHours rebuilds a calendar from already-dense hourly rows, as
// read back from storage
func FromHours(hours []Hour, loc *time.Location) *HourlyCalendar {
	cal := &HourlyCalendar{
		Hours: hours,
		loc:   loc,
		byDay: map[int64]DaySummary{},
	}
	for _, h := range hours {
		key := dayKey(h.Time, loc)
		day := cal.byDay[key]
		day.Holiday = day.Holiday || h.Holiday
		day.Vacation = day.Vacation || h.Vacation
		if day.Label == "" {
			day.Label = h.Label
		}
		cal.byDay[key] = day
	}
	return cal
}

// Day returns the aggregated flags of the day containing t; ok is
// false when no event falls on that day
func (c *HourlyCalendar) Day(t time.Time) (DaySummary, bool) {
	day, ok := c.byDay[dayKey(t, c.loc)]
	return day, ok
}

// Len returns the number of hourly rows
func (c *HourlyCalendar) Len() int { return len(c.Hours) }

// HolidayHours counts rows flagged as a public holiday
func (c *HourlyCalendar) HolidayHours() int {
	n := 0
	for _, h := range c.Hours {
		if h.Holiday {
			n++
		}
	}
	return n
}

// VacationHours counts rows flagged as school vacation
func (c *HourlyCalendar) VacationHours() int {
	n := 0
	for _, h := range c.Hours {
		if h.Vacation {
			n++
		}
	}
	return n
}

// summarizeByDay folds events into per-day flags. The label is the
// first non-empty one, fixed holidays before mobile ones before
// vacations, then input order.
func summarizeByDay(events []DatedEvent, loc *time.Location) map[int64]DaySummary {
	grouped := map[int64][]DatedEvent{}
	for _, ev := range events {
		key := dayKey(ev.Date, loc)
		grouped[key] = append(grouped[key], ev)
	}

	days := make(map[int64]DaySummary, len(grouped))
	for key, evs := range grouped {
		sort.SliceStable(evs, func(i, j int) bool {
			return evs[i].Kind.priority() < evs[j].Kind.priority()
		})

		var day DaySummary
		for _, ev := range evs {
			switch ev.Kind {
			case KindFixed, KindMobile:
				day.Holiday = true
			case KindVacation:
				day.Vacation = true
			}
			if day.Label == "" && ev.Label != "" {
				day.Label = ev.Label
			}
		}
		days[key] = day
	}
	return days
}

// dayKey identifies the calendar day containing t in the given zone
func dayKey(t time.Time, loc *time.Location) int64 {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).Unix()
}
