package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/bafodej/Consomation-electricite-france/internal/series"
)

// ErrSourceUnavailable marks a weather fetch that could not produce
// usable data: transport failure, non-2xx status or a malformed body
var ErrSourceUnavailable = errors.New("weather source unavailable")

const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

const timeLayout = "2006-01-02T15:04"

// Columns of the weather series
const (
	ColTemperature = "temperature"
	ColWind        = "vent"
	ColSunshine    = "ensoleillement"
)

// Ranges declares the plausible bounds of each weather column, for
// the cleaning stage
func Ranges() map[string]series.Range {
	return map[string]series.Range{
		ColTemperature: {Min: -30, Max: 50},
		ColWind:        {Min: 0, Max: 200},
		ColSunshine:    {Min: 0, Max: 100},
	}
}

// Client fetches hourly observations from the Open-Meteo forecast API
type Client struct {
	httpClient *http.Client
	baseURL    string
	latitude   float64
	longitude  float64
	loc        *time.Location
}

// Option adjusts a Client
type Option func(*Client)

// WithBaseURL points the client at a different API endpoint
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an Open-Meteo client for the given coordinates.
// Timestamps in the returned series carry the given zone.
func NewClient(lat, lon float64, loc *time.Location, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		latitude:   lat,
		longitude:  lon,
		loc:        loc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// openMeteoResponse represents the API response. Hourly entries may
// be null, so values decode as pointers.
type openMeteoResponse struct {
	Hourly struct {
		Time          []string   `json:"time"`
		Temperature2m []*float64 `json:"temperature_2m"`
		WindSpeed10m  []*float64 `json:"windspeed_10m"`
		CloudCover    []*float64 `json:"cloudcover"`
	} `json:"hourly"`
}

// FetchHourly fetches hourly weather between two dates, both
// inclusive, as a series with columns temperature, vent and
// ensoleillement. Sunshine is derived on the spot as the complement
// of cloud cover. Missing API entries become NaN for the cleaning
// stage; no value is ever synthesized here.
func (c *Client) FetchHourly(ctx context.Context, start, end time.Time) (*series.Table, error) {
	params := url.Values{}
	params.Add("latitude", fmt.Sprintf("%.4f", c.latitude))
	params.Add("longitude", fmt.Sprintf("%.4f", c.longitude))
	params.Add("start_date", start.Format("2006-01-02"))
	params.Add("end_date", end.Format("2006-01-02"))
	params.Add("hourly", "temperature_2m,windspeed_10m,cloudcover")
	params.Add("timezone", c.loc.String())

	fullURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: API returned status %d: %s", ErrSourceUnavailable, resp.StatusCode, string(body))
	}

	var meteoResp openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&meteoResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrSourceUnavailable, err)
	}

	return c.toTable(meteoResp)
}

// toTable converts the parallel hourly arrays into a series table
func (c *Client) toTable(resp openMeteoResponse) (*series.Table, error) {
	h := resp.Hourly
	n := len(h.Time)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty hourly response", ErrSourceUnavailable)
	}
	if len(h.Temperature2m) != n || len(h.WindSpeed10m) != n || len(h.CloudCover) != n {
		return nil, fmt.Errorf("%w: hourly arrays have mismatched lengths", ErrSourceUnavailable)
	}

	times := make([]time.Time, n)
	for i, s := range h.Time {
		t, err := time.ParseInLocation(timeLayout, s, c.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing timestamp %q: %v", ErrSourceUnavailable, s, err)
		}
		times[i] = t
	}

	temp := make([]float64, n)
	wind := make([]float64, n)
	sun := make([]float64, n)
	for i := 0; i < n; i++ {
		temp[i] = deref(h.Temperature2m[i])
		wind[i] = deref(h.WindSpeed10m[i])
		if cover := deref(h.CloudCover[i]); math.IsNaN(cover) {
			sun[i] = math.NaN()
		} else {
			sun[i] = 100 - cover
		}
	}

	return &series.Table{
		Times: times,
		Columns: []series.Column{
			{Name: ColTemperature, Values: temp},
			{Name: ColWind, Values: wind},
			{Name: ColSunshine, Values: sun},
		},
	}, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
