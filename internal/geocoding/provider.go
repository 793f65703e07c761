package geocoding

import (
	"context"
	"errors"

	"github.com/Houeta/geobatch/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// The Geocode method takes a context and an address string as input and
// returns the best match for it. A nil result with a nil error means the
// provider found nothing for the query; that is a normal outcome, not an
// error.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.GeocodeResult, error)
}

// ErrRateLimited marks provider failures caused by quota exhaustion. Only
// these are retried by the backoff policy; everything else propagates.
var ErrRateLimited = errors.New("geocoding provider rate limit exceeded")

// IsRateLimited reports whether err stems from provider quota exhaustion.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
