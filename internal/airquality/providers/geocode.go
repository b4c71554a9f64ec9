package providers

import (
	"fmt"

	"github.com/kelvins/geocoder"
	"github.com/rotisserie/eris"
)

var errNoGeocodeKey = eris.New("geocoding api key is not configured")

// LocationResolver turns a city and country into a geo feed location.
type LocationResolver struct {
	geocode func(geocoder.Address) (geocoder.Location, error)
	enabled bool
}

// NewLocationResolver configures the geocoder with apiKey. The geocoder
// package keeps its key in a package variable, so only one key can be active
// per process.
func NewLocationResolver(apiKey string) *LocationResolver {
	if apiKey != "" {
		geocoder.ApiKey = apiKey
	}
	return &LocationResolver{
		geocode: geocoder.Geocoding,
		enabled: apiKey != "",
	}
}

// Resolve geocodes city/country and returns a "geo:lat;lng" feed location.
func (r *LocationResolver) Resolve(city, country string) (string, error) {
	if city == "" {
		return "", eris.New("city is required")
	}
	if !r.enabled {
		return "", errNoGeocodeKey
	}

	loc, err := r.geocode(geocoder.Address{City: city, Country: country})
	if err != nil {
		return "", eris.Wrapf(err, "geocode %s, %s", city, country)
	}
	return GeoLocation(loc.Latitude, loc.Longitude), nil
}

// GeoLocation formats coordinates as a feed location segment.
func GeoLocation(lat, lng float64) string {
	return fmt.Sprintf("geo:%.4f;%.4f", lat, lng)
}
