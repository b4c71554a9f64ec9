package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/i474232898/air-quality-dashboard/internal/airquality"
	"github.com/i474232898/air-quality-dashboard/internal/airquality/providers"
	"github.com/i474232898/air-quality-dashboard/internal/config"
	"github.com/i474232898/air-quality-dashboard/internal/store"
)

// resolveLocation returns the feed location to query. A configured city is
// geocoded; if that fails the configured feed location is used instead.
func resolveLocation(c *config.AppConfig, resolver *providers.LocationResolver) string {
	if c.Geocode.City == "" {
		return c.Feed.Location
	}

	loc, err := resolver.Resolve(c.Geocode.City, c.Geocode.Country)
	if err != nil {
		zap.L().Warn("geocoding failed, using configured feed location",
			zap.String("city", c.Geocode.City),
			zap.String("fallback", c.Feed.Location),
			zap.Error(err),
		)
		return c.Feed.Location
	}
	return loc
}

// newLoader wires the provider and the state container together.
func newLoader(c *config.AppConfig) *airquality.Loader {
	location := resolveLocation(c, providers.NewLocationResolver(c.Geocode.APIKey))

	// The client timeout is the only timeout on a load.
	httpClient := &http.Client{
		Timeout: c.Feed.Timeout,
	}

	provider := providers.NewWAQIProvider(providers.WAQIOptions{
		BaseURL:       c.Feed.BaseURL,
		Token:         c.Feed.Token,
		Location:      location,
		UserAgent:     c.Feed.UserAgent,
		Client:        httpClient,
		RatePerSecond: c.Feed.RatePerSecond,
		Burst:         c.Feed.Burst,
	})
	zap.L().Info("air quality feed configured", zap.String("location", provider.Location()))

	return airquality.NewLoader(provider, store.NewMemoryStore())
}
