package calendar

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

const dateLayout = "2006-01-02"

// LoadEvents reads sparse holiday events from a CSV file with a
// header naming the date, nom_ferie and type columns. Dates are
// interpreted in the given zone.
func LoadEvents(path string, loc *time.Location) ([]DatedEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening events file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading events file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("events file %s is empty", path)
	}

	cols := map[string]int{}
	for i, name := range records[0] {
		cols[name] = i
	}
	for _, required := range []string{"date", "type"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("events file %s missing column %q", path, required)
		}
	}

	events := make([]DatedEvent, 0, len(records)-1)
	for n, rec := range records[1:] {
		date, err := time.ParseInLocation(dateLayout, rec[cols["date"]], loc)
		if err != nil {
			return nil, fmt.Errorf("events file row %d: parsing date: %w", n+2, err)
		}
		kind := Kind(rec[cols["type"]])
		switch kind {
		case KindFixed, KindMobile, KindVacation:
		default:
			return nil, fmt.Errorf("events file row %d: unknown event type %q", n+2, rec[cols["type"]])
		}
		label := ""
		if i, ok := cols["nom_ferie"]; ok && i < len(rec) {
			label = rec[i]
		}
		events = append(events, DatedEvent{Date: date, Label: label, Kind: kind})
	}

	return events, nil
}

// VacationPeriod is an inclusive range of school vacation days
type VacationPeriod struct {
	Start time.Time
	End   time.Time
	Label string
}

// SchoolVacations returns the zone C (Île-de-France) school vacation
// periods for the 2025-2026 and 2026-2027 school years. The winter
// break spanning the new year runs to its real January end date.
func SchoolVacations(loc *time.Location) []VacationPeriod {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	return []VacationPeriod{
		{Start: day(2026, time.February, 21), End: day(2026, time.March, 8), Label: "Vacances d'hiver"},
		{Start: day(2026, time.April, 18), End: day(2026, time.May, 3), Label: "Vacances de printemps"},
		{Start: day(2026, time.July, 4), End: day(2026, time.August, 31), Label: "Vacances d'été"},
		{Start: day(2026, time.October, 24), End: day(2026, time.November, 8), Label: "Vacances de la Toussaint"},
		{Start: day(2026, time.December, 19), End: day(2027, time.January, 3), Label: "Vacances de Noël"},
	}
}

// VacationEvents expands vacation periods into one event per day
func VacationEvents(periods []VacationPeriod) []DatedEvent {
	var events []DatedEvent
	for _, p := range periods {
		for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
			events = append(events, DatedEvent{Date: d, Label: p.Label, Kind: KindVacation})
		}
	}
	return events
}
