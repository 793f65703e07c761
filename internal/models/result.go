package models

// Row is one element of the final batch result: an address record joined
// with whatever the cache holds for its query string. Records the provider
// never resolved keep a nil entry.
type Row struct {
	AddressRecord

	Entry *CacheEntry
}
