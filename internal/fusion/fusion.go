package fusion

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bafodej/Consomation-electricite-france/internal/calendar"
	"github.com/bafodej/Consomation-electricite-france/internal/series"
)

// ErrNoOverlap means the consumption and weather series share no
// timestamps, so the joined dataset would be empty
var ErrNoOverlap = errors.New("consumption and weather series share no timestamps")

// Input column names, as stored upstream
const (
	colConsumption = "mw_conso"
	colTemperature = "temperature"
	colWind        = "vent"
	colSunshine    = "ensoleillement"
)

// Record is one hour of the enriched dataset: consumption joined with
// weather and calendar context plus derived temporal features
type Record struct {
	Time          time.Time
	ConsumptionMW float64
	Temperature   float64
	Wind          float64
	Sunshine      float64
	Holiday       bool
	Vacation      bool
	HolidayName   string
	Hour          int
	Weekday       int // Monday = 0, Sunday = 6
	Month         int
	DayOfMonth    int
	Weekend       bool
}

// Result carries the fused records and the number of rows dropped for
// holding unusable values
type Result struct {
	Records []Record
	Dropped int
}

// Fuse joins hourly consumption with weather on exact timestamps and
// enriches each surviving row with calendar flags and temporal
// features. Consumption hours without a weather observation are
// discarded by the join; days absent from the calendar fall back to
// non-holiday defaults, so a nil or sparse calendar never loses rows.
// Rows still holding unusable values after the join are dropped and
// counted. An empty join is an error.
func Fuse(conso, meteo *series.Table, cal *calendar.HourlyCalendar) (*Result, error) {
	if err := conso.Validate(); err != nil {
		return nil, fmt.Errorf("validating consumption series: %w", err)
	}
	if err := meteo.Validate(); err != nil {
		return nil, fmt.Errorf("validating weather series: %w", err)
	}

	consoVals, ok := conso.Column(colConsumption)
	if !ok {
		return nil, fmt.Errorf("consumption series has no %s column", colConsumption)
	}
	temp, ok := meteo.Column(colTemperature)
	if !ok {
		return nil, fmt.Errorf("weather series has no %s column", colTemperature)
	}
	wind, ok := meteo.Column(colWind)
	if !ok {
		return nil, fmt.Errorf("weather series has no %s column", colWind)
	}
	sun, ok := meteo.Column(colSunshine)
	if !ok {
		return nil, fmt.Errorf("weather series has no %s column", colSunshine)
	}

	// Index weather rows by instant, first occurrence wins
	meteoRow := make(map[int64]int, meteo.Len())
	for i, t := range meteo.Times {
		key := t.Unix()
		if _, seen := meteoRow[key]; !seen {
			meteoRow[key] = i
		}
	}

	res := &Result{}
	for i, t := range conso.Times {
		j, ok := meteoRow[t.Unix()]
		if !ok {
			continue
		}

		rec := Record{
			Time:          t,
			ConsumptionMW: consoVals.Values[i],
			Temperature:   temp.Values[j],
			Wind:          wind.Values[j],
			Sunshine:      sun.Values[j],
		}

		if cal != nil {
			if day, found := cal.Day(t); found {
				rec.Holiday = day.Holiday
				rec.Vacation = day.Vacation
				rec.HolidayName = day.Label
			}
		}

		rec.Hour = t.Hour()
		rec.Weekday = (int(t.Weekday()) + 6) % 7
		rec.Month = int(t.Month())
		rec.DayOfMonth = t.Day()
		rec.Weekend = rec.Weekday >= 5

		if hasMissing(rec) {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, rec)
	}

	if len(res.Records) == 0 && res.Dropped == 0 {
		return nil, ErrNoOverlap
	}

	return res, nil
}

// hasMissing reports whether any measured value of the record is
// unusable
func hasMissing(r Record) bool {
	return math.IsNaN(r.ConsumptionMW) || math.IsNaN(r.Temperature) ||
		math.IsNaN(r.Wind) || math.IsNaN(r.Sunshine)
}
