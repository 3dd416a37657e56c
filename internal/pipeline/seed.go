package pipeline

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/bafodej/Consomation-electricite-france/internal/metrics"
	"github.com/bafodej/Consomation-electricite-france/internal/series"
	"github.com/bafodej/Consomation-electricite-france/internal/store"
)

// SeedConsumption replaces the consumption table with a synthetic
// hourly series over the collection window, standing in for the
// external metering feed so a fresh checkout can run end to end. The
// shape follows the French national load: around 45 GW with a daily
// sine swing of 12 GW and Gaussian noise, deterministic per seed.
func (r *Runner) SeedConsumption(ctx context.Context) error {
	defer metrics.ObserveStage("seed", time.Now())

	start, end, err := r.cfg.Window(r.loc)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(r.cfg.PriceSeed))

	var times []time.Time
	var values []float64
	for t := start; !t.After(end); t = t.Add(time.Hour) {
		load := 45000 + 12000*math.Sin(2*math.Pi*float64(t.Hour())/24) + rng.NormFloat64()*1500
		times = append(times, t)
		values = append(values, math.Round(load))
	}

	tbl := &series.Table{
		Times:   times,
		Columns: []series.Column{{Name: "mw_conso", Values: values}},
	}

	n, err := r.store.ReplaceSeries(ctx, store.TableConsumption, tbl)
	if err != nil {
		return err
	}
	metrics.RowsPersisted.WithLabelValues(store.TableConsumption).Add(float64(n))

	r.log.Info("consumption seeded", "table", store.TableConsumption, "rows", n)
	return nil
}
