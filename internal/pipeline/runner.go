package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bafodej/Consomation-electricite-france/internal/calendar"
	"github.com/bafodej/Consomation-electricite-france/internal/config"
	"github.com/bafodej/Consomation-electricite-france/internal/fusion"
	"github.com/bafodej/Consomation-electricite-france/internal/metrics"
	"github.com/bafodej/Consomation-electricite-france/internal/prices"
	"github.com/bafodej/Consomation-electricite-france/internal/series"
	"github.com/bafodej/Consomation-electricite-france/internal/store"
	"github.com/bafodej/Consomation-electricite-france/internal/weather"
)

// WeatherSource fetches an hourly weather series for a window
type WeatherSource interface {
	FetchHourly(ctx context.Context, start, end time.Time) (*series.Table, error)
}

// Runner executes the pipeline stages against one store. Stages run
// strictly in sequence; each one fetches or loads its input, cleans
// it and persists the result before the next stage starts.
type Runner struct {
	store   *store.Store
	weather WeatherSource
	prices  prices.Source
	cfg     config.Config
	loc     *time.Location
	log     *slog.Logger

	mu   sync.Mutex
	last *RunSummary
}

// RunSummary describes the most recent full pipeline run
type RunSummary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"` // "ok" or "error"
	Error      string    `json:"error,omitempty"`
	FusedRows  int       `json:"fused_rows"`
	Dropped    int       `json:"dropped_rows"`
}

// NewRunner wires the pipeline stages together
func NewRunner(st *store.Store, ws WeatherSource, ps prices.Source, cfg config.Config, loc *time.Location, log *slog.Logger) *Runner {
	return &Runner{
		store:   st,
		weather: ws,
		prices:  ps,
		cfg:     cfg,
		loc:     loc,
		log:     log,
	}
}

// LastRun returns a copy of the most recent full-run summary, nil
// when no run has completed yet
func (r *Runner) LastRun() *RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	s := *r.last
	return &s
}

// CollectWeather fetches the hourly weather window, cleans it and
// replaces the meteo table
func (r *Runner) CollectWeather(ctx context.Context) error {
	defer metrics.ObserveStage("meteo", time.Now())

	start, end, err := r.cfg.Window(r.loc)
	if err != nil {
		return err
	}

	tbl, err := r.weather.FetchHourly(ctx, start, end)
	if err != nil {
		return fmt.Errorf("fetching weather: %w", err)
	}

	rep, err := series.Clean(tbl, weather.Ranges())
	if err != nil {
		return fmt.Errorf("cleaning weather series: %w", err)
	}
	metrics.RecordCleaning(store.TableWeather, rep.Interpolated, rep.Repaired, rep.Duplicates)

	n, err := r.store.ReplaceSeries(ctx, store.TableWeather, tbl)
	if err != nil {
		return err
	}
	metrics.RowsPersisted.WithLabelValues(store.TableWeather).Add(float64(n))

	r.log.Info("weather collected",
		"table", store.TableWeather,
		"rows", n,
		"interpolated", rep.Interpolated,
		"repaired", rep.Repaired,
		"duplicates", rep.Duplicates)
	return nil
}

// CollectPrices fetches the hourly spot-price window, cleans it and
// replaces the price table
func (r *Runner) CollectPrices(ctx context.Context) error {
	defer metrics.ObserveStage("prix", time.Now())

	start, end, err := r.cfg.Window(r.loc)
	if err != nil {
		return err
	}

	tbl, err := r.prices.Fetch(ctx, start, end)
	if err != nil {
		return fmt.Errorf("fetching prices: %w", err)
	}

	rep, err := series.Clean(tbl, prices.Ranges())
	if err != nil {
		return fmt.Errorf("cleaning price series: %w", err)
	}
	metrics.RecordCleaning(store.TablePrices, rep.Interpolated, rep.Repaired, rep.Duplicates)

	n, err := r.store.ReplaceSeries(ctx, store.TablePrices, tbl)
	if err != nil {
		return err
	}
	metrics.RowsPersisted.WithLabelValues(store.TablePrices).Add(float64(n))

	r.log.Info("prices collected",
		"table", store.TablePrices,
		"rows", n,
		"interpolated", rep.Interpolated,
		"repaired", rep.Repaired,
		"duplicates", rep.Duplicates)
	return nil
}

// BuildCalendar loads the holiday file, injects the school vacation
// periods and replaces the dense hourly calendar covering the whole
// calendar year of the collection window
func (r *Runner) BuildCalendar(ctx context.Context) error {
	defer metrics.ObserveStage("calendrier", time.Now())

	start, _, err := r.cfg.Window(r.loc)
	if err != nil {
		return err
	}

	events, err := calendar.LoadEvents(r.cfg.CalendarFile, r.loc)
	if err != nil {
		return fmt.Errorf("loading holiday events: %w", err)
	}
	events = append(events, calendar.VacationEvents(calendar.SchoolVacations(r.loc))...)

	yearStart := time.Date(start.Year(), time.January, 1, 0, 0, 0, 0, r.loc)
	yearEnd := yearStart.AddDate(1, 0, 0)

	cal, err := calendar.Expand(events, yearStart, yearEnd)
	if err != nil {
		return fmt.Errorf("expanding calendar: %w", err)
	}

	n, err := r.store.ReplaceCalendar(ctx, cal)
	if err != nil {
		return err
	}
	metrics.RowsPersisted.WithLabelValues(store.TableCalendar).Add(float64(n))

	r.log.Info("calendar built",
		"table", store.TableCalendar,
		"rows", n,
		"events", len(events),
		"holiday_hours", cal.HolidayHours(),
		"vacation_hours", cal.VacationHours())
	return nil
}

// Fuse reads the cleaned consumption, weather and calendar tables,
// joins them into the enriched dataset and replaces the fused table.
// A missing prerequisite maps to an actionable message naming the
// command to run first.
func (r *Runner) Fuse(ctx context.Context) error {
	defer metrics.ObserveStage("fusion", time.Now())

	conso, err := r.store.ReadSeries(ctx, store.TableConsumption, "mw_conso")
	if err != nil {
		return prerequisite(err, "conso seed")
	}
	meteo, err := r.store.ReadSeries(ctx, store.TableWeather,
		weather.ColTemperature, weather.ColWind, weather.ColSunshine)
	if err != nil {
		return prerequisite(err, "conso meteo")
	}
	cal, err := r.store.ReadCalendar(ctx)
	if err != nil {
		return prerequisite(err, "conso calendrier")
	}

	res, err := fusion.Fuse(conso, meteo, cal)
	if err != nil {
		return fmt.Errorf("fusing series: %w", err)
	}
	if res.Dropped > 0 {
		metrics.RowsDropped.Add(float64(res.Dropped))
		r.log.Warn("dropped rows with unusable values", "rows", res.Dropped)
	}

	for _, c := range fusion.Correlations(res.Records) {
		r.log.Info("correlation with consumption", "variable", c.Name, "r", c.R)
	}

	n, err := r.store.ReplaceFused(ctx, res.Records)
	if err != nil {
		return err
	}
	metrics.RowsPersisted.WithLabelValues(store.TableFused).Add(float64(n))

	r.log.Info("dataset fused",
		"table", store.TableFused,
		"rows", n,
		"dropped", res.Dropped)

	r.mu.Lock()
	if r.last != nil {
		r.last.FusedRows = n
		r.last.Dropped = res.Dropped
	}
	r.mu.Unlock()
	return nil
}

// Run executes the full pipeline: weather, prices, calendar, fusion.
// The first failing stage aborts the run; nothing past it is written.
func (r *Runner) Run(ctx context.Context) error {
	summary := &RunSummary{StartedAt: time.Now(), Status: "ok"}
	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()

	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"meteo", r.CollectWeather},
		{"prix", r.CollectPrices},
		{"calendrier", r.BuildCalendar},
		{"fusion", r.Fuse},
	}

	var runErr error
	for _, stage := range stages {
		if err := stage.run(ctx); err != nil {
			runErr = fmt.Errorf("stage %s: %w", stage.name, err)
			break
		}
	}

	r.mu.Lock()
	summary.FinishedAt = time.Now()
	if runErr != nil {
		summary.Status = "error"
		summary.Error = runErr.Error()
	}
	r.mu.Unlock()

	if runErr != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return runErr
	}
	metrics.PipelineRuns.WithLabelValues("ok").Inc()
	return nil
}

// prerequisite turns a missing-table error into a message naming the
// command that produces the table
func prerequisite(err error, command string) error {
	if errors.Is(err, store.ErrMissingTable) {
		return fmt.Errorf("%w (run `%s` first)", err, command)
	}
	return err
}
