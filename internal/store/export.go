package store

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bafodej/Consomation-electricite-france/internal/calendar"
	"github.com/bafodej/Consomation-electricite-france/internal/fusion"
	"github.com/bafodej/Consomation-electricite-france/internal/series"
)

// CSVPath returns the flat-file mirror path of a table
func (s *Store) CSVPath(table string) string {
	return filepath.Join(s.dataDir, table+".csv")
}

// exportSeriesCSV mirrors a series table to its CSV file
func (s *Store) exportSeriesCSV(table string, t *series.Table) error {
	header := append([]string{"datetime"}, t.ColumnNames()...)
	return s.writeCSV(table, header, t.Len(), func(i int) []string {
		row := make([]string, 0, len(header))
		row = append(row, t.Times[i].Format(datetimeLayout))
		for _, c := range t.Columns {
			row = append(row, formatFloat(c.Values[i]))
		}
		return row
	})
}

// exportCalendarCSV mirrors the hourly calendar to its CSV file
func (s *Store) exportCalendarCSV(cal *calendar.HourlyCalendar) error {
	header := []string{"datetime", "date", "est_ferie", "est_vacances", "nom_ferie"}
	return s.writeCSV(TableCalendar, header, cal.Len(), func(i int) []string {
		h := cal.Hours[i]
		return []string{
			h.Time.Format(datetimeLayout),
			h.Time.Format("2006-01-02"),
			strconv.Itoa(boolToInt(h.Holiday)),
			strconv.Itoa(boolToInt(h.Vacation)),
			h.Label,
		}
	})
}

// exportFusedCSV mirrors the enriched dataset to its CSV file
func (s *Store) exportFusedCSV(records []fusion.Record) error {
	header := []string{
		"datetime", "mw_conso", "temperature", "vent", "ensoleillement",
		"est_ferie", "est_vacances", "nom_ferie",
		"heure", "jour_semaine", "mois", "jour_mois", "est_weekend",
	}
	return s.writeCSV(TableFused, header, len(records), func(i int) []string {
		r := records[i]
		return []string{
			r.Time.Format(datetimeLayout),
			formatFloat(r.ConsumptionMW),
			formatFloat(r.Temperature),
			formatFloat(r.Wind),
			formatFloat(r.Sunshine),
			strconv.Itoa(boolToInt(r.Holiday)),
			strconv.Itoa(boolToInt(r.Vacation)),
			r.HolidayName,
			strconv.Itoa(r.Hour),
			strconv.Itoa(r.Weekday),
			strconv.Itoa(r.Month),
			strconv.Itoa(r.DayOfMonth),
			strconv.Itoa(boolToInt(r.Weekend)),
		}
	})
}

// writeCSV writes a header and rows to the table's mirror file
func (s *Store) writeCSV(table string, header []string, rows int, row func(int) []string) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	path := s.CSVPath(table)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing %s header: %w", path, err)
	}
	for i := 0; i < rows; i++ {
		if err := w.Write(row(i)); err != nil {
			return fmt.Errorf("writing %s row %d: %w", path, i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return nil
}

// formatFloat renders a value for CSV, an empty cell when missing
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
