package geocoding

import (
	"context"
	"math"
	"time"

	"github.com/Houeta/geobatch/internal/models"
)

// RetryConfig controls the bounded exponential backoff applied to
// rate-limited provider calls.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first try.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait.
	MaxBackoff time.Duration

	// Multiplier scales the wait after each attempt.
	Multiplier float64

	// ShouldRetry decides whether an error is worth another attempt.
	// If nil, IsRateLimited is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each backoff wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultRetryConfig mirrors the provider quota policy: six attempts in
// total, waits starting at two seconds and doubling up to a minute.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    6,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     60 * time.Second,
		Multiplier:     2,
	}
}

// GeocodeWithRetry runs provider.Geocode under cfg. Only errors accepted by
// ShouldRetry are retried; any other error returns immediately, and the last
// error is returned once the attempt budget is spent. Context cancellation
// cuts a backoff wait short.
func GeocodeWithRetry(
	ctx context.Context,
	provider Provider,
	cfg RetryConfig,
	address string,
) (*models.GeocodeResult, error) {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := provider.Geocode(ctx, address)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil || !cfg.ShouldRetry(err) {
			return nil, lastErr
		}
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		wait := backoff(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lastErr
		case <-timer.C:
		}
	}

	return nil, lastErr
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = IsRateLimited
	}
	return cfg
}

func backoff(attempt int, cfg RetryConfig) time.Duration {
	wait := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if wait > float64(cfg.MaxBackoff) {
		wait = float64(cfg.MaxBackoff)
	}
	return time.Duration(wait)
}
