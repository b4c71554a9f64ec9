package providers

import (
	"errors"
	"testing"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationResolverResolve(t *testing.T) {
	var got geocoder.Address
	r := &LocationResolver{
		enabled: true,
		geocode: func(addr geocoder.Address) (geocoder.Location, error) {
			got = addr
			return geocoder.Location{Latitude: 48.856613, Longitude: 2.352222}, nil
		},
	}

	loc, err := r.Resolve("Paris", "FR")
	require.NoError(t, err)
	assert.Equal(t, "geo:48.8566;2.3522", loc)
	assert.Equal(t, "Paris", got.City)
	assert.Equal(t, "FR", got.Country)
}

func TestLocationResolverErrors(t *testing.T) {
	r := &LocationResolver{
		enabled: true,
		geocode: func(geocoder.Address) (geocoder.Location, error) {
			return geocoder.Location{}, errors.New("ZERO_RESULTS")
		},
	}

	_, err := r.Resolve("", "FR")
	require.Error(t, err)

	_, err = r.Resolve("Atlantis", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Atlantis")

	_, err = NewLocationResolver("").Resolve("Paris", "FR")
	assert.ErrorIs(t, err, errNoGeocodeKey)
}

func TestGeoLocation(t *testing.T) {
	assert.Equal(t, "geo:-33.8688;151.2093", GeoLocation(-33.86882, 151.20929))
}
