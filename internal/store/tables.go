package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bafodej/Consomation-electricite-france/internal/calendar"
	"github.com/bafodej/Consomation-electricite-france/internal/fusion"
	"github.com/bafodej/Consomation-electricite-france/internal/series"
)

// ReadSeries loads the named columns of a series table ordered by
// datetime. SQL NULLs come back as missing values.
func (s *Store) ReadSeries(ctx context.Context, table string, cols ...string) (*series.Table, error) {
	query := fmt.Sprintf("SELECT datetime, %s FROM %s ORDER BY datetime",
		strings.Join(cols, ", "), table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, s.tableErr(table, err)
	}
	defer rows.Close()

	tbl := &series.Table{}
	for _, col := range cols {
		tbl.Columns = append(tbl.Columns, series.Column{Name: col})
	}

	for rows.Next() {
		var ts string
		vals := make([]sql.NullFloat64, len(cols))
		dest := make([]interface{}, 0, len(cols)+1)
		dest = append(dest, &ts)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}

		t, err := time.ParseInLocation(datetimeLayout, ts, s.loc)
		if err != nil {
			return nil, fmt.Errorf("parsing %s datetime %q: %w", table, ts, err)
		}
		tbl.Times = append(tbl.Times, t)
		for i, v := range vals {
			if v.Valid {
				tbl.Columns[i].Values = append(tbl.Columns[i].Values, v.Float64)
			} else {
				tbl.Columns[i].Values = append(tbl.Columns[i].Values, math.NaN())
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}

	return tbl, nil
}

// ReplaceSeries replaces a series table with the given data in one
// transaction: the previous contents disappear entirely, and on any
// failure they survive untouched. Returns the number of rows written.
func (s *Store) ReplaceSeries(ctx context.Context, table string, t *series.Table) (int, error) {
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("validating %s data: %w", table, err)
	}

	cols := t.ColumnNames()
	defs := make([]string, 0, len(cols)+1)
	defs = append(defs, "datetime TEXT NOT NULL")
	for _, c := range cols {
		defs = append(defs, c+" DOUBLE PRECISION")
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	insert := fmt.Sprintf("INSERT INTO %s (datetime, %s) VALUES %s",
		table, strings.Join(cols, ", "), s.placeholders(len(cols)+1))

	n, err := s.replace(ctx, table, create, insert, t.Len(), func(i int) []interface{} {
		args := make([]interface{}, 0, len(cols)+1)
		args = append(args, t.Times[i].Format(datetimeLayout))
		for _, c := range t.Columns {
			args = append(args, nullableFloat(c.Values[i]))
		}
		return args
	})
	if err != nil {
		return 0, err
	}

	if s.dataDir != "" {
		if err := s.exportSeriesCSV(table, t); err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadCalendar rehydrates the dense hourly calendar
func (s *Store) ReadCalendar(ctx context.Context) (*calendar.HourlyCalendar, error) {
	query := fmt.Sprintf(
		"SELECT datetime, est_ferie, est_vacances, nom_ferie FROM %s ORDER BY datetime",
		TableCalendar)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, s.tableErr(TableCalendar, err)
	}
	defer rows.Close()

	var hours []calendar.Hour
	for rows.Next() {
		var ts string
		var ferie, vacances int
		var label sql.NullString
		if err := rows.Scan(&ts, &ferie, &vacances, &label); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", TableCalendar, err)
		}
		t, err := time.ParseInLocation(datetimeLayout, ts, s.loc)
		if err != nil {
			return nil, fmt.Errorf("parsing %s datetime %q: %w", TableCalendar, ts, err)
		}
		hours = append(hours, calendar.Hour{
			Time:     t,
			Holiday:  ferie == 1,
			Vacation: vacances == 1,
			Label:    label.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", TableCalendar, err)
	}

	return calendar.FromHours(hours, s.loc), nil
}

// ReplaceCalendar replaces the hourly calendar table
func (s *Store) ReplaceCalendar(ctx context.Context, cal *calendar.HourlyCalendar) (int, error) {
	create := fmt.Sprintf(`CREATE TABLE %s (
		datetime TEXT NOT NULL,
		date TEXT NOT NULL,
		est_ferie INTEGER NOT NULL,
		est_vacances INTEGER NOT NULL,
		nom_ferie TEXT
	)`, TableCalendar)
	insert := fmt.Sprintf(
		"INSERT INTO %s (datetime, date, est_ferie, est_vacances, nom_ferie) VALUES %s",
		TableCalendar, s.placeholders(5))

	n, err := s.replace(ctx, TableCalendar, create, insert, cal.Len(), func(i int) []interface{} {
		h := cal.Hours[i]
		return []interface{}{
			h.Time.Format(datetimeLayout),
			h.Time.Format("2006-01-02"),
			boolToInt(h.Holiday),
			boolToInt(h.Vacation),
			h.Label,
		}
	})
	if err != nil {
		return 0, err
	}

	if s.dataDir != "" {
		if err := s.exportCalendarCSV(cal); err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReplaceFused replaces the enriched dataset table
func (s *Store) ReplaceFused(ctx context.Context, records []fusion.Record) (int, error) {
	create := fmt.Sprintf(`CREATE TABLE %s (
		datetime TEXT NOT NULL,
		mw_conso DOUBLE PRECISION NOT NULL,
		temperature DOUBLE PRECISION NOT NULL,
		vent DOUBLE PRECISION NOT NULL,
		ensoleillement DOUBLE PRECISION NOT NULL,
		est_ferie INTEGER NOT NULL,
		est_vacances INTEGER NOT NULL,
		nom_ferie TEXT,
		heure INTEGER NOT NULL,
		jour_semaine INTEGER NOT NULL,
		mois INTEGER NOT NULL,
		jour_mois INTEGER NOT NULL,
		est_weekend INTEGER NOT NULL
	)`, TableFused)
	insert := fmt.Sprintf(
		"INSERT INTO %s (datetime, mw_conso, temperature, vent, ensoleillement, est_ferie, est_vacances, nom_ferie, heure, jour_semaine, mois, jour_mois, est_weekend) VALUES %s",
		TableFused, s.placeholders(13))

	n, err := s.replace(ctx, TableFused, create, insert, len(records), func(i int) []interface{} {
		r := records[i]
		return []interface{}{
			r.Time.Format(datetimeLayout),
			r.ConsumptionMW,
			r.Temperature,
			r.Wind,
			r.Sunshine,
			boolToInt(r.Holiday),
			boolToInt(r.Vacation),
			r.HolidayName,
			r.Hour,
			r.Weekday,
			r.Month,
			r.DayOfMonth,
			boolToInt(r.Weekend),
		}
	})
	if err != nil {
		return 0, err
	}

	if s.dataDir != "" {
		if err := s.exportFusedCSV(records); err != nil {
			return n, err
		}
	}
	return n, nil
}

// replace runs the drop, create and batch insert of a table as one
// transaction
func (s *Store) replace(ctx context.Context, table, create, insert string, rows int, args func(int) []interface{}) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction for %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return 0, fmt.Errorf("dropping %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("creating %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < rows; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return 0, fmt.Errorf("inserting row %d into %s: %w", i, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing %s: %w", table, err)
	}
	return rows, nil
}

// nullableFloat maps missing values onto SQL NULL
func nullableFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
