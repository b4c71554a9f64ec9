package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/i474232898/air-quality-dashboard/internal/airquality"
	"github.com/i474232898/air-quality-dashboard/internal/store"
)

const okFeed = `{
  "status": "ok",
  "data": {
    "aqi": 74,
    "idx": 1451,
    "attributions": [
      {"url": "http://www.bjmemc.com.cn/", "name": "Beijing Environmental Protection Monitoring Center"},
      {"url": "https://waqi.info/", "name": "World Air Quality Index Project"}
    ],
    "city": {"geo": ["39.954592", "116.468117"], "name": "Beijing (北京)", "url": "https://aqicn.org/city/beijing"},
    "dominentpol": "pm25",
    "iaqi": {
      "h": {"v": 64},
      "no2": {"v": 9.2},
      "pm10": {"v": 31},
      "pm25": {"v": 74},
      "t": {"v": 21.5}
    },
    "time": {"s": "2024-05-01 14:00:00", "tz": "+08:00", "v": 1714572000, "iso": "2024-05-01T14:00:00+08:00"},
    "forecast": {
      "daily": {
        "pm25": [
          {"avg": 45, "day": "2024-05-02", "max": 70, "min": 20},
          {"avg": 60, "day": "2024-05-01", "max": 90, "min": 30}
        ],
        "pm10": [
          {"avg": 20, "day": "2024-05-01", "max": 30, "min": 10}
        ]
      }
    }
  }
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*WAQIProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewWAQIProvider(WAQIOptions{
		BaseURL:   srv.URL + "/",
		Token:     "secret-token",
		Location:  "geo:39.9546;116.4681",
		UserAgent: "air-quality-dashboard/test",
		Client:    srv.Client(),
	})
	return p, srv
}

func TestWAQIFetchOK(t *testing.T) {
	var gotPath, gotToken, gotUA string
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okFeed))
	})

	snap, err := p.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/feed/geo:39.9546;116.4681/", gotPath)
	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, "air-quality-dashboard/test", gotUA)

	assert.Equal(t, 1451, snap.StationID)
	assert.Equal(t, 74, snap.AQI)
	assert.Equal(t, "pm25", snap.DominantPollutant)
	assert.True(t, snap.IsDominant("pm25"))
	assert.Equal(t, "Beijing (北京)", snap.Location.Name)
	assert.InDelta(t, 39.954592, snap.Location.Latitude, 1e-9)
	assert.InDelta(t, 116.468117, snap.Location.Longitude, 1e-9)
	assert.Equal(t, 9.2, snap.Measurements["no2"])
	assert.Len(t, snap.Measurements, 5)
	assert.Equal(t, "+08:00", snap.ObservedAt.Timezone)
	assert.Equal(t, int64(1714572000), snap.ObservedAt.Unix)

	require.Len(t, snap.Forecast["pm25"], 2)
	assert.Equal(t, "2024-05-01", snap.Forecast["pm25"][0].Date, "forecast sorted by date")
	assert.Equal(t, 90.0, snap.Forecast["pm25"][0].Max)

	require.Len(t, snap.Sources, 2)
	assert.Equal(t, "https://waqi.info/", snap.Sources[1].URL)
}

func TestWAQIFetchDominantBadgeSurvivesAssembly(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okFeed))
	})

	snap, err := p.Fetch(context.Background())
	require.NoError(t, err)

	vm := airquality.Assemble(snap, airquality.DefaultSeriesSelection)
	require.NotEmpty(t, vm.Pollutants)
	assert.Equal(t, "pm25", vm.Pollutants[0].Key)
	assert.True(t, vm.Pollutants[0].Dominant)
}

func TestWAQIFetchFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   airquality.ErrorKind
	}{
		{"status error", http.StatusOK, `{"status":"error","data":"Invalid key"}`, airquality.ErrorSemantic},
		{"unknown station", http.StatusOK, `{"status":"error","data":"Unknown station"}`, airquality.ErrorSemantic},
		{"server error", http.StatusInternalServerError, `oops`, airquality.ErrorHTTP},
		{"not found", http.StatusNotFound, `nope`, airquality.ErrorHTTP},
		{"invalid json", http.StatusOK, `<html>maintenance</html>`, airquality.ErrorProtocol},
		{"missing status", http.StatusOK, `{"data":{}}`, airquality.ErrorProtocol},
		{"data not object", http.StatusOK, `{"status":"ok","data":"x"}`, airquality.ErrorProtocol},
		{"aqi placeholder", http.StatusOK, `{"status":"ok","data":{"aqi":"-"}}`, airquality.ErrorProtocol},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := p.Fetch(context.Background())
			require.Error(t, err)
			assert.Equal(t, tc.kind, airquality.KindOf(err))
		})
	}
}

func TestWAQIFetchHTTPStatusCode(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.Fetch(context.Background())
	var fe *airquality.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
}

func TestWAQIFetchTransportFailure(t *testing.T) {
	p, srv := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := p.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, airquality.ErrorTransport, airquality.KindOf(err))
}

func TestWAQIFetchWithoutToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	p := NewWAQIProvider(WAQIOptions{BaseURL: srv.URL, Client: srv.Client()})
	_, err := p.Fetch(context.Background())
	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, HereLocation, p.Location())
}

func TestWAQICircuitOpensAfterRepeatedFailures(t *testing.T) {
	hits := 0
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for range 5 {
		_, err := p.Fetch(context.Background())
		require.Equal(t, airquality.ErrorHTTP, airquality.KindOf(err))
	}

	_, err := p.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, airquality.ErrorTransport, airquality.KindOf(err))
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.Equal(t, 5, hits)
}

func TestDecodeFeedIgnoresEntriesWithoutValue(t *testing.T) {
	snap, err := DecodeFeed([]byte(`{"status":"ok","data":{"aqi":12.6,"iaqi":{"pm25":{"v":12},"co":{}}}}`))
	require.NoError(t, err)
	assert.Equal(t, 13, snap.AQI)
	assert.Equal(t, map[string]float64{"pm25": 12}, snap.Measurements)
	assert.Empty(t, snap.Forecast)
	assert.Empty(t, snap.DominantPollutant)
}

func TestWAQITransportFailureDoesNotLogToken(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	p, srv := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := p.Fetch(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
	assert.NotContains(t, fmt.Sprintf("%+v", err), "secret-token")

	loader := airquality.NewLoader(p, store.NewMemoryStore())
	st := loader.Reload(context.Background())
	require.Equal(t, airquality.PhaseFailed, st.Phase)

	failures := logs.FilterMessage("air quality load failed").All()
	require.Len(t, failures, 1)
	for _, f := range failures[0].Context {
		if f.Key == "error" {
			assert.NotContains(t, fmt.Sprint(f.Interface), "secret-token")
		}
	}
	for _, entry := range logs.All() {
		for _, v := range entry.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), "secret-token")
		}
	}
}

func TestDecodeFeedClampsOutOfRangeIndex(t *testing.T) {
	snap, err := DecodeFeed([]byte(`{"status":"ok","data":{"aqi":1e20}}`))
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, snap.AQI)
	assert.Equal(t, airquality.TierHazardous, airquality.ClassifyIndex(snap.AQI).Tier)

	snap, err = DecodeFeed([]byte(`{"status":"ok","data":{"aqi":-1e20}}`))
	require.NoError(t, err)
	assert.Equal(t, math.MinInt32, snap.AQI)
}

func TestRedactURL(t *testing.T) {
	_, err := http.NewRequest(http.MethodGet, "http://[::1:80/feed/here/?token=secret-token", nil)
	require.Error(t, err)
	assert.NotContains(t, redactURL(err).Error(), "secret-token")
}
