package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Houeta/geobatch/internal/models"
	"googlemaps.github.io/maps"
)

// requestLanguage asks Google for German-language results, matching the
// language of the source addresses.
const requestLanguage = "de"

// quotaMarkers are the status markers Google embeds in quota-exhaustion
// error messages.
var quotaMarkers = []string{"OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT"}

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding services.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the part of the Google Maps client the provider uses.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider wraps an existing Google Maps API client with the given logger.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// NewGoogleClient builds the real Google Maps client from an API key.
func NewGoogleClient(apiKey string) (GoogleAPIClient, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return client, nil
}

// Geocode resolves the address to the provider's best match using the Google
// Maps Geocoding API. A query the provider cannot match yields (nil, nil).
// Quota exhaustion is wrapped with ErrRateLimited so the retry policy can
// pick it out; all other failures propagate as a generic fetch error.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.GeocodeResult, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	req := maps.GeocodingRequest{Address: address, Language: requestLanguage}
	results, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		if isQuotaError(err) {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, err.Error())
		}
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	best := results[0]
	location := best.Geometry.Location

	return &models.GeocodeResult{
		Latitude:         location.Lat,
		Longitude:        location.Lng,
		PlaceID:          best.PlaceID,
		FormattedAddress: best.FormattedAddress,
	}, nil
}

func isQuotaError(err error) bool {
	msg := err.Error()
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
