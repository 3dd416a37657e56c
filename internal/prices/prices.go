package prices

import (
	"context"
	"errors"
	"time"

	"github.com/bafodej/Consomation-electricite-france/internal/series"
)

// ErrSourceUnavailable marks a price fetch that could not produce
// usable data
var ErrSourceUnavailable = errors.New("price source unavailable")

// ColPrice is the column name of the spot price series
const ColPrice = "prix_spot_eur_mwh"

// Ranges declares the plausible bounds of the price column. French
// spot prices historically stay under 500 EUR/MWh outside exceptional
// spikes.
func Ranges() map[string]series.Range {
	return map[string]series.Range{
		ColPrice: {Min: 0, Max: 500},
	}
}

// Source fetches hourly spot prices for [start, end], both bounds
// included. Implementations must return raw values as observed and
// leave repairs to the cleaning stage.
type Source interface {
	Fetch(ctx context.Context, start, end time.Time) (*series.Table, error)
}
