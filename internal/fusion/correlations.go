package fusion

import "math"

// Correlation pairs a driver variable with its Pearson correlation
// against consumption
type Correlation struct {
	Name string
	R    float64
}

// Correlations measures how each driver variable tracks consumption
// across the fused records, in a fixed reporting order. With fewer
// than two records or a constant variable the coefficient is NaN.
func Correlations(records []Record) []Correlation {
	drivers := []struct {
		name string
		get  func(Record) float64
	}{
		{"temperature", func(r Record) float64 { return r.Temperature }},
		{"vent", func(r Record) float64 { return r.Wind }},
		{"ensoleillement", func(r Record) float64 { return r.Sunshine }},
		{"heure", func(r Record) float64 { return float64(r.Hour) }},
		{"jour_semaine", func(r Record) float64 { return float64(r.Weekday) }},
	}

	conso := make([]float64, len(records))
	for i, r := range records {
		conso[i] = r.ConsumptionMW
	}

	out := make([]Correlation, 0, len(drivers))
	for _, d := range drivers {
		vals := make([]float64, len(records))
		for i, r := range records {
			vals[i] = d.get(r)
		}
		out = append(out, Correlation{Name: d.name, R: pearson(conso, vals)})
	}
	return out
}

// pearson computes the sample correlation coefficient of two equal
// length series
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return math.NaN()
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varX*varY)
}
