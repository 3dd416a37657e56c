package store

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bafodej/Consomation-electricite-france/internal/calendar"
	"github.com/bafodej/Consomation-electricite-france/internal/fusion"
	"github.com/bafodej/Consomation-electricite-france/internal/series"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	opts = append([]Option{WithLocation(time.UTC)}, opts...)
	s, err := Open("sqlite", path, opts...)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSeries(start time.Time, col string, values ...float64) *series.Table {
	times := make([]time.Time, len(values))
	for i := range values {
		times[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return &series.Table{
		Times:   times,
		Columns: []series.Column{{Name: col, Values: values}},
	}
}

func TestReplaceAndReadSeries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	in := sampleSeries(start, "mw_conso", 41000, 42500.5, 39800)
	n, err := s.ReplaceSeries(ctx, TableConsumption, in)
	if err != nil {
		t.Fatalf("replacing: %v", err)
	}
	if n != 3 {
		t.Errorf("written = %d, want 3", n)
	}

	out, err := s.ReadSeries(ctx, TableConsumption, "mw_conso")
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if out.Len() != 3 {
		t.Fatalf("rows = %d, want 3", out.Len())
	}
	for i := range in.Times {
		if !out.Times[i].Equal(in.Times[i]) {
			t.Errorf("time[%d] = %v, want %v", i, out.Times[i], in.Times[i])
		}
		if out.Columns[0].Values[i] != in.Columns[0].Values[i] {
			t.Errorf("value[%d] = %v, want %v", i, out.Columns[0].Values[i], in.Columns[0].Values[i])
		}
	}
}

func TestReplaceSeriesIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := sampleSeries(start, "prix_spot_eur_mwh", 80, 95, 102, 88)

	for run := 0; run < 2; run++ {
		if _, err := s.ReplaceSeries(ctx, TablePrices, in); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}

	count, err := s.Count(ctx, TablePrices)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 4 {
		t.Errorf("count after two runs = %d, want 4", count)
	}
}

func TestReplaceSeriesOverwritesOldContents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.ReplaceSeries(ctx, TableWeather, sampleSeries(start, "temperature", 1, 2, 3, 4, 5)); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if _, err := s.ReplaceSeries(ctx, TableWeather, sampleSeries(start, "temperature", 9, 8)); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	out, err := s.ReadSeries(ctx, TableWeather, "temperature")
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if out.Len() != 2 {
		t.Errorf("rows = %d, want 2 (old contents must be gone)", out.Len())
	}
	if out.Columns[0].Values[0] != 9 {
		t.Errorf("value[0] = %v, want 9", out.Columns[0].Values[0])
	}
}

func TestMissingValuesRoundTripAsNaN(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	in := sampleSeries(start, "vent", 12, math.NaN(), 14)
	if _, err := s.ReplaceSeries(ctx, TableWeather, in); err != nil {
		t.Fatalf("replacing: %v", err)
	}

	out, err := s.ReadSeries(ctx, TableWeather, "vent")
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if !math.IsNaN(out.Columns[0].Values[1]) {
		t.Errorf("value[1] = %v, want NaN", out.Columns[0].Values[1])
	}
	if out.Columns[0].Values[0] != 12 || out.Columns[0].Values[2] != 14 {
		t.Errorf("present values altered: %v", out.Columns[0].Values)
	}
}

func TestReadSeriesMissingTable(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadSeries(context.Background(), TableConsumption, "mw_conso")
	if !errors.Is(err, ErrMissingTable) {
		t.Errorf("error = %v, want ErrMissingTable", err)
	}
}

func TestCountMissingTable(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Count(context.Background(), TableFused)
	if !errors.Is(err, ErrMissingTable) {
		t.Errorf("error = %v, want ErrMissingTable", err)
	}
}

func TestReplaceAndReadCalendar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []calendar.DatedEvent{
		{Date: day, Label: "Jour de l'An", Kind: calendar.KindFixed},
	}
	cal, err := calendar.Expand(events, day, day.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("expanding: %v", err)
	}

	n, err := s.ReplaceCalendar(ctx, cal)
	if err != nil {
		t.Fatalf("replacing: %v", err)
	}
	if n != 48 {
		t.Errorf("written = %d, want 48", n)
	}

	out, err := s.ReadCalendar(ctx)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if out.Len() != 48 {
		t.Fatalf("rows = %d, want 48", out.Len())
	}

	sum, ok := out.Day(day)
	if !ok || !sum.Holiday || sum.Label != "Jour de l'An" {
		t.Errorf("day summary = (%+v,%v), want holiday Jour de l'An", sum, ok)
	}
	if _, ok := out.Day(day.AddDate(0, 0, 1)); ok {
		t.Errorf("event-free day unexpectedly present in rebuilt calendar")
	}
}

func TestReplaceFused(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 3, 8, 0, 0, 0, time.UTC)
	records := []fusion.Record{
		{
			Time: base, ConsumptionMW: 39000, Temperature: 4, Wind: 11, Sunshine: 35,
			Holiday: false, Vacation: true, HolidayName: "Vacances de Noël",
			Hour: 8, Weekday: 5, Month: 1, DayOfMonth: 3, Weekend: true,
		},
		{
			Time: base.Add(time.Hour), ConsumptionMW: 40100, Temperature: 5, Wind: 10, Sunshine: 42,
			Hour: 9, Weekday: 5, Month: 1, DayOfMonth: 3, Weekend: true,
		},
	}

	n, err := s.ReplaceFused(ctx, records)
	if err != nil {
		t.Fatalf("replacing: %v", err)
	}
	if n != 2 {
		t.Errorf("written = %d, want 2", n)
	}

	count, err := s.Count(ctx, TableFused)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	stats, err := s.SeriesStats(ctx, TableFused, "mw_conso")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Rows != 2 || stats.Min != 39000 || stats.Max != 40100 {
		t.Errorf("stats = %+v, want rows 2 min 39000 max 40100", stats)
	}
	if !stats.First.Equal(base) {
		t.Errorf("first = %v, want %v", stats.First, base)
	}
}

func TestDuplicateTimestamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// The store persists what it is given; duplicates are the
	// cleaner's job to remove, the inspector's job to spot
	in := &series.Table{
		Times:   []time.Time{base, base.Add(time.Hour), base.Add(time.Hour)},
		Columns: []series.Column{{Name: "mw_conso", Values: []float64{1, 2, 3}}},
	}
	if _, err := s.ReplaceSeries(ctx, TableConsumption, in); err != nil {
		t.Fatalf("replacing: %v", err)
	}

	dups, err := s.DuplicateTimestamps(ctx, TableConsumption)
	if err != nil {
		t.Fatalf("counting duplicates: %v", err)
	}
	if dups != 1 {
		t.Errorf("duplicates = %d, want 1", dups)
	}
}

func TestCSVMirror(t *testing.T) {
	dataDir := t.TempDir()
	s := newTestStore(t, WithDataDir(dataDir))
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	in := sampleSeries(start, "mw_conso", 41000, 42000)
	if _, err := s.ReplaceSeries(ctx, TableConsumption, in); err != nil {
		t.Fatalf("replacing: %v", err)
	}

	f, err := os.Open(filepath.Join(dataDir, "consommation.csv"))
	if err != nil {
		t.Fatalf("opening mirror: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading mirror: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("mirror rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "datetime" || rows[0][1] != "mw_conso" {
		t.Errorf("header = %v, want [datetime mw_conso]", rows[0])
	}
	if rows[1][0] != "2026-01-01 00:00:00" || rows[1][1] != "41000" {
		t.Errorf("first row = %v, want timestamp + 41000", rows[1])
	}
}

func TestCSVMirrorForCalendar(t *testing.T) {
	dataDir := t.TempDir()
	s := newTestStore(t, WithDataDir(dataDir))
	ctx := context.Background()

	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	events := []calendar.DatedEvent{{Date: day, Label: "Fête du Travail", Kind: calendar.KindFixed}}
	cal, err := calendar.Expand(events, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("expanding: %v", err)
	}
	if _, err := s.ReplaceCalendar(ctx, cal); err != nil {
		t.Fatalf("replacing: %v", err)
	}

	f, err := os.Open(filepath.Join(dataDir, "calendrier_feries.csv"))
	if err != nil {
		t.Fatalf("opening mirror: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading mirror: %v", err)
	}
	if len(rows) != 25 {
		t.Fatalf("mirror rows = %d, want header + 24", len(rows))
	}
	if rows[1][2] != "1" || rows[1][4] != "Fête du Travail" {
		t.Errorf("first row = %v, want est_ferie 1 and label", rows[1])
	}
}
