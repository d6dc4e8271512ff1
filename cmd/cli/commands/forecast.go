package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inferloop/tsforecast/cmd/cli/config"
	"github.com/inferloop/tsforecast/internal/export"
	"github.com/inferloop/tsforecast/internal/normalize"
	"github.com/inferloop/tsforecast/internal/pipeline"
	"github.com/inferloop/tsforecast/internal/storage"
	"github.com/inferloop/tsforecast/pkg/models"
)

type ForecastOptions struct {
	InputFile         string
	Days              int
	SeasonalityMode   string
	Growth            string
	DailySeasonality  string
	WeeklySeasonality string
	YearlySeasonality string
	Holidays          []string
	Engine            string
	Tail              bool
	OutputFormat      string
	OutputFile        string

	// Series source flags, used instead of --input
	Source      string
	SeriesID    string
	Measurement string
	Field       string
	Start       string
	End         string
	Limit       int
}

func NewForecastCmd(globals *GlobalOptions) *cobra.Command {
	opts := &ForecastOptions{}

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast a time series and flag anomalies",
		Long: `Forecast a time series read from a CSV file or a time series database.
The date and value columns of a CSV are detected automatically.`,
		Example: `  # Forecast the next 30 days
  tsforecast-cli forecast --input sales.csv

  # Multiplicative seasonality, CSV output of the future rows only
  tsforecast-cli forecast --input sales.csv --days 14 --seasonality-mode multiplicative --tail --format csv

  # Read the history from InfluxDB
  tsforecast-cli forecast --source influxdb --measurement sales --series-id store-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecast(cmd, globals, opts)
		},
	}

	// Add flags
	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Input CSV file (- for stdin)")
	cmd.Flags().IntVarP(&opts.Days, "days", "d", models.DefaultHorizonDays, "Number of days to forecast")
	cmd.Flags().StringVar(&opts.SeasonalityMode, "seasonality-mode", "", "Seasonality mode (additive, multiplicative)")
	cmd.Flags().StringVar(&opts.Growth, "growth", "", "Trend growth (linear, flat)")
	cmd.Flags().StringVar(&opts.DailySeasonality, "daily-seasonality", "auto", "Daily seasonality (true, false, auto)")
	cmd.Flags().StringVar(&opts.WeeklySeasonality, "weekly-seasonality", "auto", "Weekly seasonality (true, false, auto)")
	cmd.Flags().StringVar(&opts.YearlySeasonality, "yearly-seasonality", "auto", "Yearly seasonality (true, false, auto)")
	cmd.Flags().StringSliceVar(&opts.Holidays, "holiday", nil, "Holiday as name=date, repeatable")
	cmd.Flags().StringVar(&opts.Engine, "engine", "", "Forecast engine (decomposition, linear)")
	cmd.Flags().BoolVar(&opts.Tail, "tail", false, "Only output the forecast horizon")
	cmd.Flags().StringVarP(&opts.OutputFormat, "format", "f", "", "Output format (json, csv, text)")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "-", "Output file (- for stdout)")

	cmd.Flags().StringVar(&opts.Source, "source", "", "Series source instead of --input (influxdb, timescaledb)")
	cmd.Flags().StringVar(&opts.SeriesID, "series-id", "", "Series identifier in the source")
	cmd.Flags().StringVar(&opts.Measurement, "measurement", "", "Measurement or table in the source")
	cmd.Flags().StringVar(&opts.Field, "field", "", "Field or value column in the source")
	cmd.Flags().StringVar(&opts.Start, "start", "", "Start of the source range")
	cmd.Flags().StringVar(&opts.End, "end", "", "End of the source range")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum points read from the source")

	return cmd
}

func runForecast(cmd *cobra.Command, globals *GlobalOptions, opts *ForecastOptions) error {
	cfg, err := config.LoadConfig(globals.ConfigFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, globals.Verbose, cmd.ErrOrStderr())

	days := cfg.DefaultDays
	if cmd.Flags().Changed("days") {
		days = opts.Days
	}

	modelConfig, err := opts.modelConfig(cfg.Model)
	if err != nil {
		return err
	}

	formatName := cfg.DefaultFormat
	if opts.OutputFormat != "" {
		formatName = opts.OutputFormat
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	engine := cfg.DefaultEngine
	if opts.Engine != "" {
		engine = opts.Engine
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req := &pipeline.Request{
		Horizon: days,
		Config:  modelConfig,
		Engine:  engine,
	}

	switch {
	case opts.Source != "" && opts.InputFile != "":
		return fmt.Errorf("--input and --source are mutually exclusive")
	case opts.Source != "":
		series, err := fetchSeries(ctx, cfg, opts, logger)
		if err != nil {
			return err
		}
		req.Series = series
	case opts.InputFile != "":
		table, err := readTable(cmd, opts.InputFile)
		if err != nil {
			return err
		}
		req.Table = table
	default:
		return fmt.Errorf("one of --input or --source is required")
	}

	result, err := pipeline.New(logger).Run(ctx, req)
	if err != nil {
		return err
	}

	out, err := openOutput(cmd, opts.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	return export.NewExportEngine(logger).Export(ctx, format, out, result, export.Options{
		TailOnly:         opts.Tail,
		IncludeDetection: req.Table != nil,
		Pretty:           cfg.Preferences.Pretty,
		Precision:        cfg.Preferences.Precision,
	})
}

// modelConfig applies the model flags over the configured defaults
func (o *ForecastOptions) modelConfig(base models.ModelConfig) (models.ModelConfig, error) {
	cfg := base
	if o.SeasonalityMode != "" {
		cfg.SeasonalityMode = models.SeasonalityMode(strings.ToLower(o.SeasonalityMode))
	}
	if o.Growth != "" {
		cfg.Growth = models.Growth(strings.ToLower(o.Growth))
	}

	toggles := []struct {
		name   string
		raw    string
		target **bool
	}{
		{"daily-seasonality", o.DailySeasonality, &cfg.DailySeasonality},
		{"weekly-seasonality", o.WeeklySeasonality, &cfg.WeeklySeasonality},
		{"yearly-seasonality", o.YearlySeasonality, &cfg.YearlySeasonality},
	}
	for _, toggle := range toggles {
		value, err := models.ParseToggle(toggle.raw)
		if err != nil {
			return cfg, fmt.Errorf("--%s: %w", toggle.name, err)
		}
		if value != nil {
			*toggle.target = value
		}
	}

	for _, raw := range o.Holidays {
		holiday, err := parseHoliday(raw)
		if err != nil {
			return cfg, err
		}
		cfg.Holidays = append(cfg.Holidays, holiday)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseHoliday(raw string) (models.Holiday, error) {
	name, date, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return models.Holiday{}, fmt.Errorf("invalid holiday %q: expected name=date", raw)
	}
	ts, ok := normalize.ParseTimestamp(date)
	if !ok {
		return models.Holiday{}, fmt.Errorf("invalid holiday date %q", date)
	}
	return models.Holiday{Name: strings.TrimSpace(name), Date: ts}, nil
}

func readTable(cmd *cobra.Command, path string) (*models.Table, error) {
	in, err := openInput(cmd, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	return normalize.ReadCSV(in)
}

func fetchSeries(ctx context.Context, cfg *config.CLIConfig, opts *ForecastOptions, logger *logrus.Logger) (*models.Series, error) {
	query, err := opts.seriesQuery()
	if err != nil {
		return nil, err
	}

	storageConfig := cfg.Storage
	storageConfig.Source = opts.Source

	source, err := storage.NewSeriesSource(&storageConfig, logger)
	if err != nil {
		return nil, err
	}
	if err := source.Connect(ctx); err != nil {
		return nil, err
	}
	defer source.Close()

	return source.Fetch(ctx, query)
}

func (o *ForecastOptions) seriesQuery() (*models.SeriesQuery, error) {
	query := &models.SeriesQuery{
		SeriesID:    o.SeriesID,
		Measurement: o.Measurement,
		Field:       o.Field,
		Limit:       o.Limit,
	}

	bounds := []struct {
		flag   string
		raw    string
		target *time.Time
	}{
		{"start", o.Start, &query.StartTime},
		{"end", o.End, &query.EndTime},
	}
	for _, bound := range bounds {
		if bound.raw == "" {
			continue
		}
		ts, ok := normalize.ParseTimestamp(bound.raw)
		if !ok {
			return nil, fmt.Errorf("--%s: cannot parse %q as a time", bound.flag, bound.raw)
		}
		*bound.target = ts
	}

	if !query.StartTime.IsZero() && !query.EndTime.IsZero() && !query.EndTime.After(query.StartTime) {
		return nil, fmt.Errorf("--end must be after --start")
	}
	return query, nil
}
