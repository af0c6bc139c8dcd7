package main

import (
	"fmt"
	"os"
	"path/filepath"

	"AirQuality/src/config"
	"AirQuality/src/processor"
	"AirQuality/src/storage"

	"github.com/spf13/cobra"
)

const dataConfigFile = "dataconfig.json"

// loadConfig is swapped in tests, where the process-wide cache gets in the
// way.
var loadConfig = config.LoadConfig

// app is what every subcommand needs.
type app struct {
	cfg    *config.Config
	reg    *config.Registry
	proc   *processor.DataProcessor
	logger *storage.Logger
}

func newApp(configPath string) (*app, error) {
	cfg, dcfg, err := loadConfig(filepath.Dir(configPath), filepath.Base(configPath), dataConfigFile)
	if err != nil {
		return nil, err
	}
	reg, err := config.NewRegistry(dcfg)
	if err != nil {
		return nil, err
	}
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", cfg.LogName, err)
	}
	return &app{
		cfg:    cfg,
		reg:    reg,
		proc:   processor.NewDataProcessor(reg, logger),
		logger: logger,
	}, nil
}

func (a *app) close() {
	a.logger.Close()
}

// loadBoth melts the two raw datasets.
func (a *app) loadBoth() (processor.Snapshot, error) {
	var snap processor.Snapshot
	var err error
	if snap.Meteo, err = processor.LoadMelted(a.cfg.MeteoPath(), a.cfg.Encoding); err != nil {
		return snap, err
	}
	if snap.Cont, err = processor.LoadMelted(a.cfg.ContPath(), a.cfg.Encoding); err != nil {
		return snap, err
	}
	return snap, nil
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "aqdash",
		Short:         "Monterrey air quality dashboard and data preparation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.json", "path to config.json (dataconfig.json is read from the same folder)")

	withApp := func(run func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()
			return run(cmd, a)
		}
	}

	root.AddCommand(
		newServeCmd(withApp),
		newPrepCmd(withApp),
		newDiagnoseCmd(withApp),
		newMetricsCmd(withApp),
	)
	return root
}

type appRunner func(run func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "aqdash:", err)
		os.Exit(1)
	}
}
