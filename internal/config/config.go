package config

import (
	"time"

	"github.com/Houeta/geobatch/internal/extract"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults for the optional knobs of the command surface.
const (
	DefaultCachePath = "geocode_cache.csv"
	DefaultSleep     = 50 * time.Millisecond
	DefaultLocale    = "pl"
	DefaultEnv       = "production"
)

// ErrMissingAPIKey is returned when the provider credential is absent from
// the environment. Nothing can run without it, so this aborts startup.
var ErrMissingAPIKey = eris.New("GOOGLE_MAPS_API_KEY is not set")

// Config holds everything a batch run needs. It is built once in the
// command layer and passed down explicitly; nothing reads the environment
// after Load returns.
//
// Fields:
// - Env: the logging profile (local, development, production).
// - APIKey: the Google Maps API key, from GOOGLE_MAPS_API_KEY.
// - InputPath: the workbook with the store sheets.
// - OutputPath: the annotated workbook to write.
// - CachePath: the CSV lookup cache.
// - Sleep: the pause between successive provider calls.
// - Locale: the locale for output column captions.
// - Sheets: the input sheets and their country labels.
type Config struct {
	Env        string
	APIKey     string
	InputPath  string
	OutputPath string
	CachePath  string
	Sleep      time.Duration
	Locale     string
	Sheets     []extract.SheetSpec
}

// DefaultSheets lists the sheets a standard input workbook carries.
func DefaultSheets() []extract.SheetSpec {
	return []extract.SheetSpec{
		{Name: "dm DE", Country: "Germany"},
		{Name: "dm AT", Country: "Austria"},
	}
}

// Load builds the configuration from the given flag set and the process
// environment. A .env file is honored when present but never overrides
// variables already set. A missing API key is the only hard failure.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	vpr := viper.New()
	if err := vpr.BindPFlags(flags); err != nil {
		return nil, eris.Wrap(err, "config: bind flags")
	}
	vpr.SetDefault("cache", DefaultCachePath)
	vpr.SetDefault("sleep", DefaultSleep)
	vpr.SetDefault("locale", DefaultLocale)
	vpr.SetDefault("env", DefaultEnv)
	_ = vpr.BindEnv("api-key", "GOOGLE_MAPS_API_KEY")
	_ = vpr.BindEnv("env", "GEOBATCH_ENV")

	cfg := &Config{
		Env:        vpr.GetString("env"),
		APIKey:     vpr.GetString("api-key"),
		InputPath:  vpr.GetString("input"),
		OutputPath: vpr.GetString("output"),
		CachePath:  vpr.GetString("cache"),
		Sleep:      vpr.GetDuration("sleep"),
		Locale:     vpr.GetString("locale"),
		Sheets:     DefaultSheets(),
	}

	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	return cfg, nil
}
