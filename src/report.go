package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"AirQuality/src/charts"
	"AirQuality/src/config"
	"AirQuality/src/processor"
	"AirQuality/src/storage"

	"github.com/spf13/cobra"
)

func newDiagnoseCmd(withApp appRunner) *cobra.Command {
	var save bool
	var format string
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Report the percentage of missing values per station and parameter",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			snap, err := a.loadBoth()
			if err != nil {
				return err
			}
			report, err := a.proc.DiagnoseMissing(snap.Meteo, snap.Cont)
			if err != nil {
				return err
			}
			if err := printMissing(cmd.OutOrStdout(), report.Col(processor.ColStation).Records(),
				report.Col(processor.ColParameter).Records(), report.Col(processor.ColMissing).Float()); err != nil {
				return err
			}
			if !save {
				return nil
			}
			w := storage.NewWriter(a.cfg.OutputDir, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
			path, written, err := w.Save(report, "missing_values", format)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", path)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&save, "save", false, "also save the report to the output directory")
	cmd.Flags().StringVar(&format, "format", "csv", "output format when saving: csv or xlsx")
	return cmd
}

func printMissing(out io.Writer, stations, params []string, values []float64) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATION\tPARAMETER\tMISSING %")
	for i := range stations {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\n", stations[i], params[i], values[i])
	}
	return tw.Flush()
}

func newMetricsCmd(withApp appRunner) *cobra.Command {
	var days int
	var family string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Mean of the last N days per parameter and its change from the N days before",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			fam, err := config.ParseFamily(family)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = a.cfg.DefaultDays
			}
			path := a.cfg.ContPath()
			if fam == config.Meteo {
				path = a.cfg.MeteoPath()
			}
			long, err := processor.LoadMelted(path, a.cfg.Encoding)
			if err != nil {
				return err
			}
			summary, err := a.proc.Metrics(long, days, fam)
			if err != nil {
				return err
			}
			cards, err := charts.MetricCards(summary, a.reg)
			if err != nil {
				return err
			}
			return printCards(cmd.OutOrStdout(), days, cards)
		}),
	}
	cmd.Flags().IntVar(&days, "days", 7, "window length in days (defaults to default_days)")
	cmd.Flags().StringVar(&family, "family", string(config.Cont), "parameter family: meteo or cont")
	return cmd
}

func printCards(out io.Writer, days int, cards []charts.Card) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PARAMETER\tMEAN (%dd)\tDIFF\n", days)
	for _, c := range cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Label(), formatMetric(c.Mean, false), formatMetric(c.Diff, true))
	}
	return tw.Flush()
}

func formatMetric(v *float64, signed bool) string {
	if v == nil {
		return "n/a"
	}
	if signed {
		return fmt.Sprintf("%+.2f", *v)
	}
	return fmt.Sprintf("%.2f", *v)
}
