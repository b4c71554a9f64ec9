package providers

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/i474232898/air-quality-dashboard/internal/airquality"
)

const (
	DefaultWAQIBaseURL = "https://api.waqi.info"
	// HereLocation asks the feed to geolocate the caller by IP.
	HereLocation = "here"

	maxBodyBytes = 4 << 20
)

// WAQIOptions configures a WAQIProvider.
type WAQIOptions struct {
	BaseURL   string
	Token     string
	Location  string
	UserAgent string
	Client    *http.Client
	// RatePerSecond <= 0 disables client-side limiting.
	RatePerSecond float64
	Burst         int
}

// WAQIProvider implements the airquality.Provider interface for the World Air
// Quality Index feed API.
type WAQIProvider struct {
	name      string
	token     string
	baseURL   string
	location  string
	userAgent string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

func NewWAQIProvider(opts WAQIOptions) *WAQIProvider {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultWAQIBaseURL
	}
	location := strings.Trim(opts.Location, "/")
	if location == "" {
		location = HereLocation
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &WAQIProvider{
		name:      "waqi",
		token:     opts.Token,
		baseURL:   baseURL,
		location:  location,
		userAgent: opts.UserAgent,
		httpCfg: HTTPClientConfig{
			Client:  opts.Client,
			Limiter: limiter,
		},
		circuit: newCircuitBreaker("waqi"),
	}
}

func (p *WAQIProvider) Name() string {
	return p.name
}

// Location returns the feed path segment this provider queries.
func (p *WAQIProvider) Location() string {
	return p.location
}

// feedURL builds the request URL. The location segment is used verbatim
// because geo locations ("geo:lat;lng") must keep their separator.
func (p *WAQIProvider) feedURL() string {
	values := url.Values{}
	values.Set("token", p.token)
	return p.baseURL + "/feed/" + p.location + "/?" + values.Encode()
}

func (p *WAQIProvider) Fetch(ctx context.Context) (airquality.Snapshot, error) {
	if p.token == "" {
		return airquality.Snapshot{}, airquality.NewFetchError(airquality.ErrorTransport, eris.New("waqi token is not configured"))
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if p.userAgent != "" {
			req.Header.Set("User-Agent", p.userAgent)
		}
		return req, nil
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return airquality.Snapshot{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return airquality.Snapshot{}, airquality.NewFetchError(airquality.ErrorTransport, eris.Wrap(err, "read response body"))
	}

	return DecodeFeed(body)
}

// DecodeFeed parses a feed envelope into a Snapshot.
//
// The status is checked before the payload shape: an error envelope carries a
// plain string in data. Numeric fields are read with gjson so that values the
// feed sometimes sends as strings (station coordinates) still decode.
func DecodeFeed(body []byte) (airquality.Snapshot, error) {
	if !gjson.ValidBytes(body) {
		return airquality.Snapshot{}, protocolError(eris.New("response is not valid JSON"))
	}
	envelope := gjson.ParseBytes(body)

	status := envelope.Get("status")
	if status.Type != gjson.String {
		return airquality.Snapshot{}, protocolError(eris.New("envelope has no status"))
	}
	if status.String() != "ok" {
		return airquality.Snapshot{}, airquality.NewFetchError(airquality.ErrorSemantic,
			eris.Errorf("feed status %q: %s", status.String(), envelope.Get("data").String()))
	}

	data := envelope.Get("data")
	if !data.IsObject() {
		return airquality.Snapshot{}, protocolError(eris.Errorf("envelope data is not an object: %s", data.Type))
	}
	aqi := data.Get("aqi")
	if aqi.Type != gjson.Number {
		return airquality.Snapshot{}, protocolError(eris.Errorf("aqi is not numeric: %q", aqi.Raw))
	}

	snap := airquality.Snapshot{
		StationID:         int(data.Get("idx").Int()),
		AQI:               clampIndex(aqi.Float()),
		DominantPollutant: data.Get("dominentpol").String(),
		Measurements:      make(map[string]float64),
		Forecast:          make(map[string][]airquality.ForecastDay),
		Location: airquality.Location{
			Name: data.Get("city.name").String(),
			URL:  data.Get("city.url").String(),
		},
		ObservedAt: airquality.ObservedAt{
			Local:    data.Get("time.s").String(),
			Timezone: data.Get("time.tz").String(),
			Unix:     data.Get("time.v").Int(),
			ISO:      data.Get("time.iso").String(),
		},
	}

	if geo := data.Get("city.geo").Array(); len(geo) == 2 {
		snap.Location.Latitude = geo[0].Float()
		snap.Location.Longitude = geo[1].Float()
	}

	data.Get("iaqi").ForEach(func(key, value gjson.Result) bool {
		if v := value.Get("v"); v.Exists() {
			snap.Measurements[key.String()] = v.Float()
		}
		return true
	})

	data.Get("forecast.daily").ForEach(func(key, value gjson.Result) bool {
		days := make([]airquality.ForecastDay, 0, len(value.Array()))
		for _, d := range value.Array() {
			days = append(days, airquality.ForecastDay{
				Date: d.Get("day").String(),
				Min:  d.Get("min").Float(),
				Avg:  d.Get("avg").Float(),
				Max:  d.Get("max").Float(),
			})
		}
		sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })
		snap.Forecast[key.String()] = days
		return true
	})

	for _, a := range data.Get("attributions").Array() {
		snap.Sources = append(snap.Sources, airquality.Source{
			Name: a.Get("name").String(),
			URL:  a.Get("url").String(),
		})
	}

	return snap, nil
}

// clampIndex rounds v into the int32 range. Out-of-range readings stay at the
// far end of the scale instead of wrapping around.
func clampIndex(v float64) int {
	v = math.Round(v)
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}

func protocolError(err error) *airquality.FetchError {
	return airquality.NewFetchError(airquality.ErrorProtocol, err)
}

var _ airquality.Provider = (*WAQIProvider)(nil)
