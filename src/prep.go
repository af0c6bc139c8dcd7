package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"AirQuality/src/charts"
	"AirQuality/src/config"
	"AirQuality/src/datasource/email"
	"AirQuality/src/processor"
	"AirQuality/src/storage"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"
)

type prepOptions struct {
	format  string
	station string
	db      bool
	mail    bool
}

func newPrepCmd(withApp appRunner) *cobra.Command {
	var opts prepOptions
	cmd := &cobra.Command{
		Use:   "prep",
		Short: "Melt the raw datasets and save the long tables",
		Long: "prep melts both raw datasets into date/parameter/station/value tables and saves\n" +
			"them as meteo_long and cont_long in the output directory. With --station it also\n" +
			"saves the station's merged daily table and one PNG per series.",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			return a.prep(cmd, opts)
		}),
	}
	cmd.Flags().StringVar(&opts.format, "format", "csv", "output format: csv or xlsx")
	cmd.Flags().StringVar(&opts.station, "station", "", "also export the merged daily table of this station")
	cmd.Flags().BoolVar(&opts.db, "db", false, "store the long tables in PostgreSQL (database_url)")
	cmd.Flags().BoolVar(&opts.mail, "email", false, "mail the saved files to send_email.to")
	return cmd
}

func (a *app) prep(cmd *cobra.Command, opts prepOptions) error {
	snap, err := a.loadBoth()
	if err != nil {
		return err
	}
	writer := storage.NewWriter(a.cfg.OutputDir, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)

	var saved []string
	save := func(name string, path string, written bool, err error) error {
		if err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		if written {
			saved = append(saved, path)
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", path)
		}
		return nil
	}

	path, written, err := writer.Save(snap.Meteo, "meteo_long", opts.format)
	if err := save("meteo_long", path, written, err); err != nil {
		return err
	}
	path, written, err = writer.Save(snap.Cont, "cont_long", opts.format)
	if err := save("cont_long", path, written, err); err != nil {
		return err
	}

	if opts.station != "" {
		files, err := a.exportStation(writer, snap, opts)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", f)
		}
		saved = append(saved, files...)
	}

	if opts.db {
		if err := a.storeObservations(cmd.Context(), snap); err != nil {
			return err
		}
	}

	if opts.mail {
		if len(saved) == 0 {
			a.logger.Info("nothing new to mail")
			return nil
		}
		body := fmt.Sprintf("Processed air quality data: %d files attached.", len(saved))
		if err := email.SendReport(a.cfg, body, saved...); err != nil {
			return err
		}
		a.logger.Info(fmt.Sprintf("mailed %d files to %s", len(saved), strings.Join(a.cfg.SendEmail.To, ", ")))
	}
	return nil
}

// exportStation saves the station's daily meteo and cont tables merged on
// date, plus a PNG per numeric series.
func (a *app) exportStation(writer *storage.Writer, snap processor.Snapshot, opts prepOptions) ([]string, error) {
	meteo, err := a.proc.Extract(snap.Meteo, opts.station)
	if err != nil {
		return nil, err
	}
	cont, err := a.proc.Extract(snap.Cont, opts.station)
	if err != nil {
		return nil, err
	}
	for _, t := range []*processor.StationTable{meteo, cont} {
		if t.Coerced > 0 {
			a.logger.Warning(fmt.Sprintf("%s: %d values were not numeric", t.Station, t.Coerced))
		}
	}

	dailyMeteo, err := processor.Resample(meteo.Frame, string(processor.Daily))
	if err != nil {
		return nil, err
	}
	dailyCont, err := processor.Resample(cont.Frame, string(processor.Daily))
	if err != nil {
		return nil, err
	}
	merged, err := processor.Merge(dailyMeteo, dailyCont)
	if err != nil {
		return nil, err
	}

	var files []string
	name := meteo.Code + "_daily"
	path, written, err := writer.Save(merged, name, opts.format)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", name, err)
	}
	if written {
		files = append(files, path)
	}

	for _, column := range merged.Names() {
		if column == processor.ColDate {
			continue
		}
		png := filepath.Join(a.cfg.OutputDir, column+".png")
		if err := writePNG(png, merged, column, fmt.Sprintf("%s daily %s", meteo.Station, column)); err != nil {
			if errors.Is(err, charts.ErrTooFewPoints) {
				a.logger.Warning(err.Error())
				continue
			}
			return files, err
		}
		files = append(files, png)
	}
	return files, nil
}

func writePNG(path string, table dataframe.DataFrame, column, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := charts.RenderPNG(f, table, column, title); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func (a *app) storeObservations(ctx context.Context, snap processor.Snapshot) error {
	if a.cfg.DatabaseURL == "" {
		return errors.New("--db needs database_url or DATABASE_URL")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := storage.OpenPGStore(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, fam := range []config.Family{config.Meteo, config.Cont} {
		long, _ := snap.Frame(fam)
		n, err := store.SaveFrame(ctx, long, fam)
		if err != nil {
			return fmt.Errorf("store %s observations: %w", fam, err)
		}
		a.logger.Info(fmt.Sprintf("stored %d %s observations", n, fam))
	}
	return nil
}
