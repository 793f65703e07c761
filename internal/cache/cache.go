package cache

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Houeta/geobatch/internal/models"
	"github.com/rotisserie/eris"
)

// header is the fixed column layout of the persisted cache file.
var header = []string{"address_for_geocoding", "latitude", "longitude", "place_id", "geocode_status"}

// Cache maps query strings to their last known geocoding outcome. Entries
// keep first-insertion order so repeated saves produce stable files. The
// cache has exactly one writer during a run; no locking.
type Cache struct {
	entries map[string]models.CacheEntry
	order   []string
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]models.CacheEntry)}
}

// Load reads the cache file at path. Any failure, a missing file, unreadable
// contents or an unexpected layout, yields an empty cache: a broken cache
// must never block a full re-fetch run, it only costs repeat lookups.
func Load(path string) *Cache {
	cch := New()

	file, err := os.Open(path)
	if err != nil {
		return cch
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil || len(rows) == 0 || len(rows[0]) < len(header) || rows[0][0] != header[0] {
		return New()
	}

	for _, row := range rows[1:] {
		if len(row) < len(header) || row[0] == "" {
			continue
		}
		cch.Put(models.CacheEntry{
			Query:     row[0],
			Latitude:  parseCoord(row[1]),
			Longitude: parseCoord(row[2]),
			PlaceID:   row[3],
			Status:    row[4],
		})
	}

	return cch
}

// Put upserts an entry; the last write for a query wins.
func (c *Cache) Put(entry models.CacheEntry) {
	if _, ok := c.entries[entry.Query]; !ok {
		c.order = append(c.order, entry.Query)
	}
	c.entries[entry.Query] = entry
}

// Get returns the entry stored for query, if any.
func (c *Cache) Get(query string) (models.CacheEntry, bool) {
	entry, ok := c.entries[query]
	return entry, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Save rewrites the whole cache file at path, creating parent directories as
// needed. One row per query, so saving repeatedly mid-run is safe and
// saving without new entries leaves the file content unchanged.
func (c *Cache) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "cache: create directory %s", dir)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "cache: create %s", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err = writer.Write(header); err != nil {
		return eris.Wrap(err, "cache: write header")
	}
	for _, query := range c.order {
		entry := c.entries[query]
		row := []string{
			entry.Query,
			formatCoord(entry.Latitude),
			formatCoord(entry.Longitude),
			entry.PlaceID,
			entry.Status,
		}
		if err = writer.Write(row); err != nil {
			return eris.Wrapf(err, "cache: write entry %s", entry.Query)
		}
	}

	writer.Flush()
	if err = writer.Error(); err != nil {
		return eris.Wrapf(err, "cache: flush %s", path)
	}

	return nil
}

// Partition splits records into cache hits and misses. Only an entry with
// resolved coordinates counts as a hit; NOT_FOUND and ERROR entries carry
// nil coordinates and fall through as misses, so later runs retry them.
func (c *Cache) Partition(records []models.AddressRecord) (hits, misses []models.AddressRecord) {
	for _, record := range records {
		if entry, ok := c.entries[record.QueryString()]; ok && entry.Resolved() {
			hits = append(hits, record)
			continue
		}
		misses = append(misses, record)
	}

	return hits, misses
}

func parseCoord(raw string) *float64 {
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &value
}

func formatCoord(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}
