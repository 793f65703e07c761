package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Houeta/geobatch/internal/config"
	"github.com/Houeta/geobatch/internal/extract"
	"github.com/Houeta/geobatch/internal/geocoding"
	"github.com/Houeta/geobatch/internal/metrics"
	"github.com/Houeta/geobatch/internal/output"
	"github.com/Houeta/geobatch/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
)

// Exit codes reported to the operator. Rate-limit aborts get their own code
// so automation can tell "re-run later" apart from real failures.
const (
	exitMissingKey  = 2
	exitRateLimited = 3
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

var rootCmd = &cobra.Command{
	Use:   "geobatch",
	Short: "Batch-geocode dm store addresses from an Excel workbook",
	Long: "Reads store addresses from the input workbook, resolves missing " +
		"coordinates through the Google Maps Geocoding API with a CSV lookup " +
		"cache, and writes a per-country workbook with the results.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().String("input", "", "input workbook with the store sheets (required)")
	rootCmd.Flags().String("output", "", "output workbook to write (required)")
	rootCmd.Flags().String("cache", config.DefaultCachePath, "CSV cache path")
	rootCmd.Flags().Duration("sleep", config.DefaultSleep, "pause between provider calls")
	rootCmd.Flags().String("locale", config.DefaultLocale, "locale for output column captions")
	_ = rootCmd.MarkFlagRequired("input")
	_ = rootCmd.MarkFlagRequired("output")
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, config.ErrMissingAPIKey):
		fmt.Fprintln(os.Stderr, "ERROR: GOOGLE_MAPS_API_KEY not set.")
		os.Exit(exitMissingKey)
	case errors.Is(err, geocoding.ErrRateLimited):
		fmt.Println("Rate limit hit. Progress saved to cache. Re-run later.")
		os.Exit(exitRateLimited)
	default:
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	// Interrupts cancel the run; the retry policy and backoff waits observe
	// the context, so Ctrl+C does not hang inside a sleep.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Env)

	client, err := geocoding.NewGoogleClient(cfg.APIKey)
	if err != nil {
		return err
	}
	provider := geocoding.NewGoogleProvider(client, logger)

	reg := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(reg)

	records, err := extract.Sheets(cfg.InputPath, cfg.Sheets)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Addresses extracted", "input", cfg.InputPath, "records", len(records))

	batch := service.NewBatch(logger, provider, appMetrics, cfg.CachePath, cfg.Sleep)
	rows, err := batch.Run(ctx, records)
	if err != nil {
		return err
	}

	if err = output.NewWriter(cfg.Locale).Write(cfg.OutputPath, rows); err != nil {
		return err
	}

	logSummary(ctx, logger, reg)
	fmt.Printf("Saved: %s\n", cfg.OutputPath)

	return nil
}

// logSummary reports the run counters collected in the metrics registry.
func logSummary(ctx context.Context, logger *slog.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.ErrorContext(ctx, "Failed to gather metrics", "error", err)
		return
	}

	attrs := make([]any, 0, len(families)*2)
	for _, family := range families {
		if family.GetType() != dto.MetricType_COUNTER {
			continue
		}
		var total float64
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		attrs = append(attrs, family.GetName(), total)
	}

	logger.InfoContext(ctx, "Batch finished", attrs...)
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelError,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
