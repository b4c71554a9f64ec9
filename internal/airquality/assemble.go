package airquality

import (
	"math"
	"sort"
	"time"
)

// SeriesSelection picks the two forecast series exposed to charting.
type SeriesSelection struct {
	Primary   string `json:"primary" validate:"omitempty,alphanum,max=16"`
	Secondary string `json:"secondary" validate:"omitempty,alphanum,max=16"`
}

// DefaultSeriesSelection is used when the caller selects nothing.
var DefaultSeriesSelection = SeriesSelection{Primary: "pm25", Secondary: "pm10"}

// MeasurementCard is one rendered reading.
type MeasurementCard struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	Unit         string   `json:"unit"`
	Category     Category `json:"category"`
	Value        float64  `json:"value"`
	GaugePercent float64  `json:"gaugePercent"`
	Dominant     bool     `json:"dominant"`
}

// ForecastPoint is a forecast triple plus its axis label.
type ForecastPoint struct {
	ForecastDay
	Weekday string `json:"weekday"`
}

// ForecastSeries is one chartable pollutant forecast.
type ForecastSeries struct {
	Key    string          `json:"key"`
	Name   string          `json:"name"`
	Unit   string          `json:"unit"`
	Points []ForecastPoint `json:"points"`
}

// ViewModel holds every presentation-ready value derived from a snapshot.
type ViewModel struct {
	AQI           int               `json:"aqi"`
	Status        Status            `json:"status"`
	ScalePosition float64           `json:"scalePosition"`
	Location      Location          `json:"location"`
	ObservedAt    string            `json:"observedAt"`
	ObservedISO   string            `json:"observedIso"`
	DominantKey   string            `json:"dominantKey"`
	DominantName  string            `json:"dominantName"`
	Pollutants    []MeasurementCard `json:"pollutants"`
	Weather       []MeasurementCard `json:"weather"`
	Primary       ForecastSeries    `json:"primary"`
	Secondary     ForecastSeries    `json:"secondary"`
	ForecastKeys  []string          `json:"forecastKeys"`
	Sources       []Source          `json:"sources"`
}

// GaugePercent scales reading against ceiling into [0, 100]. Readings above
// the ceiling give a full gauge; negative readings and non-positive ceilings
// give 0.
func GaugePercent(reading, ceiling float64) float64 {
	if ceiling <= 0 || math.IsNaN(reading) {
		return 0
	}
	ratio := math.Min(reading/ceiling, 1.0)
	return math.Max(ratio, 0) * 100
}

// ScalePosition places an AQI value on the 0-500 index scale, in percent.
func ScalePosition(aqi int) float64 {
	return GaugePercent(float64(aqi), IndexScaleCap)
}

// IsDominant reports whether key is the snapshot's dominant pollutant.
// The match is exact and case-sensitive.
func (s Snapshot) IsDominant(key string) bool {
	return key != "" && key == s.DominantPollutant
}

// Partition splits the measurement keys into pollutant and weather keys,
// each in display order. Keys missing from the display table are pollutants.
func (s Snapshot) Partition() (pollutants, weather []string) {
	for _, key := range sortedKeys(s.Measurements) {
		if DisplayMetaFor(key).Category == CategoryWeather {
			weather = append(weather, key)
		} else {
			pollutants = append(pollutants, key)
		}
	}
	return pollutants, weather
}

// Assemble derives the view model from snap. It does not modify snap, and
// the same input always yields the same output.
func Assemble(snap Snapshot, sel SeriesSelection) ViewModel {
	if sel.Primary == "" {
		sel.Primary = DefaultSeriesSelection.Primary
	}
	if sel.Secondary == "" {
		sel.Secondary = DefaultSeriesSelection.Secondary
	}

	pollutantKeys, weatherKeys := snap.Partition()

	vm := ViewModel{
		AQI:           snap.AQI,
		Status:        ClassifyIndex(snap.AQI),
		ScalePosition: ScalePosition(snap.AQI),
		Location:      snap.Location,
		ObservedAt:    FormatObservedAt(snap.ObservedAt),
		ObservedISO:   snap.ObservedAt.ISO,
		DominantKey:   snap.DominantPollutant,
		Pollutants:    cards(snap, pollutantKeys),
		Weather:       cards(snap, weatherKeys),
		Primary:       forecastSeries(snap, sel.Primary),
		Secondary:     forecastSeries(snap, sel.Secondary),
		ForecastKeys:  forecastKeys(snap),
		Sources:       append([]Source(nil), snap.Sources...),
	}
	// Named only when a pollutant card carries the badge.
	for _, c := range vm.Pollutants {
		if c.Dominant {
			vm.DominantName = c.Name
		}
	}
	return vm
}

func cards(snap Snapshot, keys []string) []MeasurementCard {
	out := make([]MeasurementCard, 0, len(keys))
	for _, key := range keys {
		meta := DisplayMetaFor(key)
		value := snap.Measurements[key]
		out = append(out, MeasurementCard{
			Key:          key,
			Name:         meta.Name,
			Unit:         meta.Unit,
			Category:     meta.Category,
			Value:        value,
			GaugePercent: GaugePercent(value, meta.GaugeCap),
			// Weather cards are never flagged, even if the feed names one.
			Dominant: meta.Category == CategoryPollutant && snap.IsDominant(key),
		})
	}
	return out
}

func forecastSeries(snap Snapshot, key string) ForecastSeries {
	meta := DisplayMetaFor(key)
	days := snap.Forecast[key]
	points := make([]ForecastPoint, 0, len(days))
	for _, d := range days {
		points = append(points, ForecastPoint{ForecastDay: d, Weekday: ShortWeekday(d.Date)})
	}
	return ForecastSeries{
		Key:    key,
		Name:   meta.Name,
		Unit:   meta.Unit,
		Points: points,
	}
}

func forecastKeys(snap Snapshot) []string {
	keys := make([]string, 0, len(snap.Forecast))
	for k, days := range snap.Forecast {
		if len(days) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, oj := displayOrder(keys[i]), displayOrder(keys[j])
		if oi != oj {
			return oi < oj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// ShortWeekday turns a YYYY-MM-DD date into "Mon". Unparseable dates are
// returned unchanged.
func ShortWeekday(date string) string {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date
	}
	return t.Format("Mon")
}

const observedLayout = "Mon, Jan 2 · 3:04 PM -07:00"

// FormatObservedAt renders the observation time in the station's own zone.
// It prefers the ISO string and falls back to the local string plus offset.
func FormatObservedAt(o ObservedAt) string {
	if t, err := time.Parse(time.RFC3339, o.ISO); err == nil {
		return t.Format(observedLayout)
	}
	if o.Local != "" {
		if t, err := time.Parse("2006-01-02 15:04:05-07:00", o.Local+o.Timezone); err == nil {
			return t.Format(observedLayout)
		}
		return o.Local
	}
	if o.Unix > 0 {
		return time.Unix(o.Unix, 0).UTC().Format(observedLayout)
	}
	return ""
}
