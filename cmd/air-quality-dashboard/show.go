package main

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/i474232898/air-quality-dashboard/internal/airquality"
)

var (
	showFormat    string
	showPrimary   string
	showSecondary string
)

var showValidate = validator.New()

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Fetch the feed once and print the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := showValidate.Var(showFormat, "oneof=text json"); err != nil {
			return eris.Errorf("invalid --format %q: want text or json", showFormat)
		}
		sel := airquality.SeriesSelection{
			Primary:   firstNonEmpty(showPrimary, cfg.Dashboard.PrimarySeries),
			Secondary: firstNonEmpty(showSecondary, cfg.Dashboard.SecondarySeries),
		}
		if err := showValidate.Struct(sel); err != nil {
			return eris.Wrap(err, "invalid series selection")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		loader := newLoader(cfg)
		return runShow(loader.Load(ctx), sel, showFormat, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// runShow consumes one load sequence and prints its outcome.
func runShow(seq iter.Seq[airquality.LoadState], sel airquality.SeriesSelection, format string, out, errOut io.Writer) error {
	var settled bool
	for st := range seq {
		switch st.Phase {
		case airquality.PhaseLoading:
			fmt.Fprintln(errOut, "Loading air quality data…")
		case airquality.PhaseReady:
			settled = true
			vm := airquality.Assemble(*st.Snapshot, sel)
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(vm); err != nil {
					return eris.Wrap(err, "encode view")
				}
				continue
			}
			if err := renderText(out, vm); err != nil {
				return eris.Wrap(err, "render view")
			}
		case airquality.PhaseFailed:
			return eris.New(st.Message)
		}
	}
	if !settled {
		return eris.New("load cancelled")
	}
	return nil
}

func renderText(w io.Writer, vm airquality.ViewModel) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n", vm.Location.Name)
	fmt.Fprintf(tw, "Updated %s\n\n", vm.ObservedAt)
	fmt.Fprintf(tw, "AQI %d\t%s\n", vm.AQI, vm.Status.Label)
	fmt.Fprintf(tw, "%s\n", vm.Status.Description)
	fmt.Fprintf(tw, "Scale\t%s\n", bar(vm.ScalePosition))
	if vm.DominantName != "" {
		fmt.Fprintf(tw, "Dominant\t%s\n", vm.DominantName)
	}

	fmt.Fprintln(tw, "\nPollutants")
	for _, c := range vm.Pollutants {
		marker := ""
		if c.Dominant {
			marker = " *"
		}
		fmt.Fprintf(tw, "  %s%s\t%.1f %s\t%s\n", c.Name, marker, c.Value, c.Unit, bar(c.GaugePercent))
	}
	if len(vm.Weather) > 0 {
		fmt.Fprintln(tw, "\nWeather")
		for _, c := range vm.Weather {
			fmt.Fprintf(tw, "  %s\t%.1f %s\t%s\n", c.Name, c.Value, c.Unit, bar(c.GaugePercent))
		}
	}

	for _, s := range []airquality.ForecastSeries{vm.Primary, vm.Secondary} {
		fmt.Fprintf(tw, "\nForecast %s\n", s.Name)
		if len(s.Points) == 0 {
			fmt.Fprintln(tw, "  no forecast available")
			continue
		}
		for _, p := range s.Points {
			fmt.Fprintf(tw, "  %s\t%s\tmin %.0f\tavg %.0f\tmax %.0f\n", p.Weekday, p.Date, p.Min, p.Avg, p.Max)
		}
	}

	if len(vm.Sources) > 0 {
		fmt.Fprintln(tw, "\nSources")
		for _, s := range vm.Sources {
			fmt.Fprintf(tw, "  %s\t%s\n", s.Name, s.URL)
		}
	}
	return tw.Flush()
}

// bar renders a percentage as a 20 cell text gauge.
func bar(percent float64) string {
	filled := int(percent / 5)
	filled = min(max(filled, 0), 20)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", 20-filled) + "]"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "text", "output format: text or json")
	showCmd.Flags().StringVar(&showPrimary, "primary", "", "primary forecast series (default from config)")
	showCmd.Flags().StringVar(&showSecondary, "secondary", "", "secondary forecast series (default from config)")
	rootCmd.AddCommand(showCmd)
}
