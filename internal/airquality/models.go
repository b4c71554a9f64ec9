package airquality

// Category separates pollutant readings from weather readings.
type Category string

const (
	CategoryPollutant Category = "pollutant"
	CategoryWeather   Category = "weather"
)

// Location identifies the monitoring station that produced a snapshot.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	URL       string  `json:"url"`
}

// ObservedAt is the observation time as delivered by the feed.
// Local is the station-local wall clock ("2006-01-02 15:04:05"), Timezone
// its UTC offset ("+08:00").
type ObservedAt struct {
	Local    string `json:"local"`
	Timezone string `json:"timezone"`
	Unix     int64  `json:"unix"`
	ISO      string `json:"iso"`
}

// ForecastDay is one daily forecast triple for a single pollutant.
type ForecastDay struct {
	Date string  `json:"date"` // YYYY-MM-DD
	Min  float64 `json:"min"`
	Avg  float64 `json:"avg"`
	Max  float64 `json:"max"`
}

// Source is an attribution record for the data behind a snapshot.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Snapshot is the air quality payload for one location at one instant.
// A Snapshot is never mutated after decoding; every derived view is computed
// fresh from it.
type Snapshot struct {
	StationID         int                      `json:"stationId"`
	AQI               int                      `json:"aqi"`
	DominantPollutant string                   `json:"dominantPollutant"`
	Measurements      map[string]float64       `json:"measurements"`
	Location          Location                 `json:"location"`
	ObservedAt        ObservedAt               `json:"observedAt"`
	Forecast          map[string][]ForecastDay `json:"forecast"`
	Sources           []Source                 `json:"sources"`
}
