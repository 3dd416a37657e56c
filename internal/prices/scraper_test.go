package prices

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestSimulatedScraperWindow(t *testing.T) {
	s := NewSimulatedScraper(DefaultSeed)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 3, 23, 0, 0, 0, time.UTC)

	tbl, err := s.Fetch(context.Background(), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tbl.Len() != 72 {
		t.Fatalf("rows = %d, want 72", tbl.Len())
	}
	if !tbl.Times[0].Equal(start) || !tbl.Times[71].Equal(end) {
		t.Errorf("window = [%v,%v], want [%v,%v]", tbl.Times[0], tbl.Times[71], start, end)
	}
	for i := 1; i < tbl.Len(); i++ {
		if tbl.Times[i].Sub(tbl.Times[i-1]) != time.Hour {
			t.Errorf("gap at row %d: %v", i, tbl.Times[i].Sub(tbl.Times[i-1]))
		}
	}
}

func TestSimulatedScraperDeterminism(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	a, err := NewSimulatedScraper(DefaultSeed).Fetch(context.Background(), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewSimulatedScraper(DefaultSeed).Fetch(context.Background(), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range a.Columns[0].Values {
		if a.Columns[0].Values[i] != b.Columns[0].Values[i] {
			t.Fatalf("value[%d] differs between identical seeds: %v vs %v",
				i, a.Columns[0].Values[i], b.Columns[0].Values[i])
		}
	}

	c, err := NewSimulatedScraper(7).Fetch(context.Background(), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	same := true
	for i := range a.Columns[0].Values {
		if a.Columns[0].Values[i] != c.Columns[0].Values[i] {
			same = false
			break
		}
	}
	if same {
		t.Errorf("different seeds produced identical series")
	}
}

func TestSimulatedScraperPriceShape(t *testing.T) {
	s := NewSimulatedScraper(DefaultSeed)
	// A full week starting on a Monday
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7).Add(-time.Hour)

	tbl, err := s.Fetch(context.Background(), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var weekdaySum, weekendSum, peakSum, offSum float64
	var weekdayN, weekendN, peakN, offN int
	for i, tm := range tbl.Times {
		v := tbl.Columns[0].Values[i]

		if v < 30 {
			t.Errorf("price[%d] = %v below the 30 EUR/MWh floor", i, v)
		}
		if cents := v * 100; math.Abs(cents-math.Round(cents)) > 1e-6 {
			t.Errorf("price[%d] = %v not rounded to cents", i, v)
		}

		if isWeekend(tm) {
			weekendSum += v
			weekendN++
		} else {
			weekdaySum += v
			weekdayN++
			if h := tm.Hour(); h >= 8 && h <= 20 {
				peakSum += v
				peakN++
			} else {
				offSum += v
				offN++
			}
		}
	}

	if weekendN == 0 || weekdayN == 0 {
		t.Fatalf("window missed weekdays or weekend")
	}
	if weekdaySum/float64(weekdayN) <= weekendSum/float64(weekendN) {
		t.Errorf("weekday mean %.2f not above weekend mean %.2f",
			weekdaySum/float64(weekdayN), weekendSum/float64(weekendN))
	}
	if peakSum/float64(peakN) <= offSum/float64(offN) {
		t.Errorf("peak mean %.2f not above off-peak mean %.2f",
			peakSum/float64(peakN), offSum/float64(offN))
	}
}

func TestSimulatedScraperInvalidWindow(t *testing.T) {
	s := NewSimulatedScraper(DefaultSeed)
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	if _, err := s.Fetch(context.Background(), start, start.Add(-time.Hour)); err == nil {
		t.Errorf("expected error for end before start")
	}
}
