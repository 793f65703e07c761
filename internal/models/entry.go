package models

// Geocode lookup statuses as persisted in the cache store.
const (
	StatusOK       = "OK"
	StatusNotFound = "NOT_FOUND"

	errorPrefix = "ERROR: "
)

// ErrorStatus renders a failed lookup as a status string carrying the failure detail.
func ErrorStatus(detail string) string {
	return errorPrefix + detail
}

// CacheEntry is one persisted geocoding outcome, keyed by the query string.
// NOT_FOUND and ERROR entries carry nil coordinates.
type CacheEntry struct {
	Query     string   // Query is the normalized address the provider was asked for.
	Latitude  *float64 // Latitude of the resolved location, nil when unresolved.
	Longitude *float64 // Longitude of the resolved location, nil when unresolved.
	PlaceID   string   // PlaceID is the provider's identifier for the location.
	Status    string   // Status is OK, NOT_FOUND, or an ERROR string with detail.
}

// Resolved reports whether the entry carries usable coordinates.
func (e CacheEntry) Resolved() bool {
	return e.Latitude != nil && e.Longitude != nil
}
