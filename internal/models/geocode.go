package models

// GeocodeResult is the provider's best match for a query.
type GeocodeResult struct {
	Latitude         float64 // Latitude of the matched location.
	Longitude        float64 // Longitude of the matched location.
	PlaceID          string  // PlaceID is the provider's identifier for the match.
	FormattedAddress string  // FormattedAddress is the provider's canonical rendering.
}
