package httpapi

import (
	"fmt"
	"math"
	"strings"

	"github.com/i474232898/air-quality-dashboard/internal/airquality"
)

const (
	chartWidth   = 600
	chartHeight  = 200
	chartPadding = 20
)

type chartLine struct {
	Name   string
	Class  string
	Points string
}

type chartLabel struct {
	X, Y int
	Text string
}

type forecastChart struct {
	Width, Height int
	Lines         []chartLine
	Labels        []chartLabel
}

// buildForecastChart lays out the daily averages of the selected series as
// SVG polylines sharing one y axis. Empty series are left out.
func buildForecastChart(vm airquality.ViewModel) forecastChart {
	chart := forecastChart{Width: chartWidth, Height: chartHeight}

	series := []struct {
		s     airquality.ForecastSeries
		class string
	}{
		{vm.Primary, "primary"},
		{vm.Secondary, "secondary"},
	}

	ceiling := 1.0
	longest := 0
	for _, e := range series {
		for _, p := range e.s.Points {
			ceiling = math.Max(ceiling, p.Max)
		}
		longest = max(longest, len(e.s.Points))
	}
	if longest == 0 {
		return chart
	}

	for _, e := range series {
		if len(e.s.Points) == 0 {
			continue
		}
		coords := make([]string, 0, len(e.s.Points))
		for i, p := range e.s.Points {
			coords = append(coords, fmt.Sprintf("%d,%d", chartX(i, longest), chartY(p.Avg, ceiling)))
		}
		chart.Lines = append(chart.Lines, chartLine{
			Name:   e.s.Name,
			Class:  e.class,
			Points: strings.Join(coords, " "),
		})
	}

	labels := vm.Primary.Points
	if len(vm.Secondary.Points) > len(labels) {
		labels = vm.Secondary.Points
	}
	for i, p := range labels {
		chart.Labels = append(chart.Labels, chartLabel{
			X:    chartX(i, longest),
			Y:    chartHeight - 4,
			Text: p.Weekday,
		})
	}
	return chart
}

func chartX(i, n int) int {
	if n <= 1 {
		return chartWidth / 2
	}
	span := float64(chartWidth - 2*chartPadding)
	return chartPadding + int(math.Round(float64(i)*span/float64(n-1)))
}

func chartY(v, ceiling float64) int {
	span := float64(chartHeight - 2*chartPadding)
	ratio := math.Max(0, math.Min(v/ceiling, 1))
	return chartHeight - chartPadding - int(math.Round(ratio*span))
}
