package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bafodej/Consomation-electricite-france/internal/config"
	"github.com/bafodej/Consomation-electricite-france/internal/logging"
	"github.com/bafodej/Consomation-electricite-france/internal/pipeline"
	"github.com/bafodej/Consomation-electricite-france/internal/prices"
	"github.com/bafodej/Consomation-electricite-france/internal/store"
	"github.com/bafodej/Consomation-electricite-france/internal/weather"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "conso",
		Short: "Data pipeline for the French electricity consumption dataset",
		Long: `conso collects hourly consumption, weather, spot-price and holiday
data, validates each source and fuses them into one enriched dataset
ready for model training.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(meteoCmd())
	rootCmd.AddCommand(prixCmd())
	rootCmd.AddCommand(calendrierCmd())
	rootCmd.AddCommand(fusionCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(inspectCmd())

	err := rootCmd.Execute()
	if closeLog != nil {
		closeLog()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	// .env first, so viper's env pass sees its values
	godotenv.Load()

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, closeLog, err = logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore connects to the configured database, creating the SQLite
// directory on first use
func openStore() (*store.Store, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	driver, dsn := cfg.DSN()
	if driver == "sqlite" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	return store.Open(driver, dsn, store.WithLocation(loc), store.WithDataDir(cfg.DataDir))
}

func newRunner() (*pipeline.Runner, *store.Store, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	st, err := openStore()
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	wc := weather.NewClient(cfg.Latitude, cfg.Longitude, loc)
	ps := prices.NewSimulatedScraper(cfg.PriceSeed)

	return pipeline.NewRunner(st, wc, ps, cfg, loc, logger), st, nil
}

// stageCmd builds a subcommand that runs one pipeline stage
func stageCmd(use, short string, stage func(*pipeline.Runner, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, st, err := newRunner()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := stage(r, cmd.Context()); err != nil {
				return fmt.Errorf("stage %s: %w", use, err)
			}
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return stageCmd("seed", "Generate a synthetic consumption table for the collection window",
		(*pipeline.Runner).SeedConsumption)
}

func meteoCmd() *cobra.Command {
	return stageCmd("meteo", "Collect hourly weather from Open-Meteo and clean it",
		(*pipeline.Runner).CollectWeather)
}

func prixCmd() *cobra.Command {
	return stageCmd("prix", "Collect hourly electricity spot prices and clean them",
		(*pipeline.Runner).CollectPrices)
}

func calendrierCmd() *cobra.Command {
	return stageCmd("calendrier", "Build the dense hourly holiday and vacation calendar",
		(*pipeline.Runner).BuildCalendar)
}

func fusionCmd() *cobra.Command {
	return stageCmd("fusion", "Fuse consumption, weather and calendar into the enriched dataset",
		(*pipeline.Runner).Fuse)
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: meteo, prix, calendrier, fusion",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, st, err := newRunner()
			if err != nil {
				return err
			}
			defer st.Close()

			return r.Run(cmd.Context())
		},
	}
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Report row counts, spans and integrity of the stored tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer st.Close()

			ctx := cmd.Context()

			seriesTables := []struct {
				table string
				col   string
			}{
				{store.TableConsumption, "mw_conso"},
				{store.TableWeather, weather.ColTemperature},
				{store.TablePrices, prices.ColPrice},
				{store.TableFused, "mw_conso"},
			}

			for _, s := range seriesTables {
				stats, err := st.SeriesStats(ctx, s.table, s.col)
				if errors.Is(err, store.ErrMissingTable) {
					fmt.Printf("%-24s absent\n", s.table)
					continue
				}
				if err != nil {
					return err
				}

				dups, err := st.DuplicateTimestamps(ctx, s.table)
				if err != nil {
					return err
				}

				fmt.Printf("%-24s %6d rows  %s -> %s\n", s.table, stats.Rows,
					stats.First.Format("2006-01-02 15:04"), stats.Last.Format("2006-01-02 15:04"))
				fmt.Printf("%-24s %s: min=%.2f avg=%.2f max=%.2f  duplicate datetimes=%d\n",
					"", s.col, stats.Min, stats.Avg, stats.Max, dups)
			}

			calRows, err := st.Count(ctx, store.TableCalendar)
			if errors.Is(err, store.ErrMissingTable) {
				fmt.Printf("%-24s absent\n", store.TableCalendar)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("%-24s %6d rows\n", store.TableCalendar, calRows)
			return nil
		},
	}
}
