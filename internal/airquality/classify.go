package airquality

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tier is an AQI status band.
type Tier string

const (
	TierGood                        Tier = "good"
	TierModerate                    Tier = "moderate"
	TierUnhealthyForSensitiveGroups Tier = "unhealthy-for-sensitive-groups"
	TierUnhealthy                   Tier = "unhealthy"
	TierVeryUnhealthy               Tier = "very-unhealthy"
	TierHazardous                   Tier = "hazardous"
)

// Status is the classification of a single AQI value.
type Status struct {
	Tier        Tier   `json:"tier"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type breakpoint struct {
	upper  int
	status Status
}

// Upper bounds are inclusive; anything above the last bound is hazardous.
var breakpoints = []breakpoint{
	{50, Status{TierGood, "Good", "Air quality is satisfactory, and air pollution poses little or no risk.", "green"}},
	{100, Status{TierModerate, "Moderate", "Air quality is acceptable. Unusually sensitive people should consider limiting prolonged outdoor exertion.", "yellow"}},
	{150, Status{TierUnhealthyForSensitiveGroups, "Unhealthy for Sensitive Groups", "Members of sensitive groups may experience health effects. The general public is less likely to be affected.", "orange"}},
	{200, Status{TierUnhealthy, "Unhealthy", "Some members of the general public may experience health effects; sensitive groups may experience more serious effects.", "red"}},
	{300, Status{TierVeryUnhealthy, "Very Unhealthy", "Health alert: the risk of health effects is increased for everyone.", "purple"}},
}

var hazardous = Status{TierHazardous, "Hazardous", "Health warning of emergency conditions: everyone is more likely to be affected.", "maroon"}

// ClassifyIndex maps an AQI value to its status tier. Negative values are
// treated as Good.
func ClassifyIndex(aqi int) Status {
	for _, bp := range breakpoints {
		if aqi <= bp.upper {
			return bp.status
		}
	}
	return hazardous
}

// DisplayMeta describes how a measurement key is presented.
type DisplayMeta struct {
	Name     string   `json:"name"`
	Unit     string   `json:"unit"`
	Category Category `json:"category"`
	// GaugeCap is the reading at which the gauge is full.
	GaugeCap float64 `json:"gaugeCap"`
}

const (
	PollutantGaugeCap = 200
	IndexScaleCap     = 500
)

type metaEntry struct {
	key  string
	meta DisplayMeta
}

// displayTable is ordered; card order on the dashboard follows it.
var displayTable = []metaEntry{
	{"pm25", DisplayMeta{"PM2.5", "µg/m³", CategoryPollutant, PollutantGaugeCap}},
	{"pm10", DisplayMeta{"PM10", "µg/m³", CategoryPollutant, PollutantGaugeCap}},
	{"o3", DisplayMeta{"Ozone", "ppb", CategoryPollutant, PollutantGaugeCap}},
	{"no2", DisplayMeta{"Nitrogen Dioxide", "ppb", CategoryPollutant, PollutantGaugeCap}},
	{"so2", DisplayMeta{"Sulfur Dioxide", "ppb", CategoryPollutant, PollutantGaugeCap}},
	{"co", DisplayMeta{"Carbon Monoxide", "ppm", CategoryPollutant, PollutantGaugeCap}},
	{"t", DisplayMeta{"Temperature", "°C", CategoryWeather, 50}},
	{"h", DisplayMeta{"Humidity", "%", CategoryWeather, 100}},
	{"p", DisplayMeta{"Pressure", "hPa", CategoryWeather, 1100}},
	{"w", DisplayMeta{"Wind", "m/s", CategoryWeather, 20}},
	{"wg", DisplayMeta{"Wind Gust", "m/s", CategoryWeather, 30}},
	{"dew", DisplayMeta{"Dew Point", "°C", CategoryWeather, 50}},
	{"r", DisplayMeta{"Rain", "mm", CategoryWeather, 50}},
}

var displayIndex = buildDisplayIndex()

func buildDisplayIndex() map[string]int {
	idx := make(map[string]int, len(displayTable))
	for i, e := range displayTable {
		idx[e.key] = i
	}
	return idx
}

// DisplayMetaFor returns presentation metadata for a measurement key.
// Unknown keys get an uppercased name, no unit, and the pollutant category.
func DisplayMetaFor(key string) DisplayMeta {
	if i, ok := displayIndex[key]; ok {
		return displayTable[i].meta
	}
	return DisplayMeta{
		Name:     cases.Upper(language.Und).String(key),
		Unit:     "",
		Category: CategoryPollutant,
		GaugeCap: PollutantGaugeCap,
	}
}

// displayOrder returns the sort rank of key; unknown keys rank after every
// known key.
func displayOrder(key string) int {
	if i, ok := displayIndex[key]; ok {
		return i
	}
	return len(displayTable)
}
