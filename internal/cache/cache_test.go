package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/Houeta/geobatch/internal/cache"
	"github.com/Houeta/geobatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float(v float64) *float64 {
	return &v
}

func TestLoad(t *testing.T) {
	defer filet.CleanUp(t)

	t.Run("missing file yields an empty cache", func(t *testing.T) {
		cch := cache.Load(filepath.Join(filet.TmpDir(t, ""), "nope.csv"))

		assert.Equal(t, 0, cch.Len())
	})

	t.Run("corrupt file yields an empty cache", func(t *testing.T) {
		path := filepath.Join(filet.TmpDir(t, ""), "cache.csv")
		require.NoError(t, os.WriteFile(path, []byte("\"unterminated,garbage\n1,2"), 0o644))

		cch := cache.Load(path)

		assert.Equal(t, 0, cch.Len())
	})

	t.Run("unexpected header yields an empty cache", func(t *testing.T) {
		path := filepath.Join(filet.TmpDir(t, ""), "cache.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b,c,d,e\n1,2,3,4,5\n"), 0o644))

		cch := cache.Load(path)

		assert.Equal(t, 0, cch.Len())
	})

	t.Run("round trips saved entries", func(t *testing.T) {
		path := filepath.Join(filet.TmpDir(t, ""), "cache.csv")

		cch := cache.New()
		cch.Put(models.CacheEntry{
			Query:     "Hauptstrasse 1, 01067 Dresden, Germany",
			Latitude:  float(51.05),
			Longitude: float(13.73),
			PlaceID:   "place-1",
			Status:    models.StatusOK,
		})
		cch.Put(models.CacheEntry{
			Query:  "Nowhere 1, 00000 Nirgends, Germany",
			Status: models.StatusNotFound,
		})
		cch.Put(models.CacheEntry{
			Query:  "Broken 2, 11111 Kaputt, Austria",
			Status: models.ErrorStatus("connection refused"),
		})
		require.NoError(t, cch.Save(path))

		loaded := cache.Load(path)

		require.Equal(t, 3, loaded.Len())
		resolved, ok := loaded.Get("Hauptstrasse 1, 01067 Dresden, Germany")
		require.True(t, ok)
		require.NotNil(t, resolved.Latitude)
		assert.InEpsilon(t, 51.05, *resolved.Latitude, 0.0001)
		assert.Equal(t, "place-1", resolved.PlaceID)
		assert.Equal(t, models.StatusOK, resolved.Status)

		missing, ok := loaded.Get("Nowhere 1, 00000 Nirgends, Germany")
		require.True(t, ok)
		assert.Nil(t, missing.Latitude)
		assert.Equal(t, models.StatusNotFound, missing.Status)

		failed, ok := loaded.Get("Broken 2, 11111 Kaputt, Austria")
		require.True(t, ok)
		assert.Equal(t, "ERROR: connection refused", failed.Status)
	})
}

func TestSave(t *testing.T) {
	defer filet.CleanUp(t)

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(filet.TmpDir(t, ""), "nested", "dir", "cache.csv")

		require.NoError(t, cache.New().Save(path))

		_, err := os.Stat(path)
		require.NoError(t, err)
	})

	t.Run("saving twice without new entries is idempotent", func(t *testing.T) {
		path := filepath.Join(filet.TmpDir(t, ""), "cache.csv")

		cch := cache.New()
		cch.Put(models.CacheEntry{Query: "q1", Latitude: float(1), Longitude: float(2), Status: models.StatusOK})
		cch.Put(models.CacheEntry{Query: "q2", Status: models.StatusNotFound})

		require.NoError(t, cch.Save(path))
		first, err := os.ReadFile(path)
		require.NoError(t, err)

		require.NoError(t, cch.Save(path))
		second, err := os.ReadFile(path)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("last write wins per query", func(t *testing.T) {
		path := filepath.Join(filet.TmpDir(t, ""), "cache.csv")

		cch := cache.New()
		cch.Put(models.CacheEntry{Query: "q1", Status: models.StatusNotFound})
		cch.Put(models.CacheEntry{Query: "q1", Latitude: float(48.2), Longitude: float(16.37), Status: models.StatusOK})
		require.NoError(t, cch.Save(path))

		loaded := cache.Load(path)

		require.Equal(t, 1, loaded.Len())
		entry, ok := loaded.Get("q1")
		require.True(t, ok)
		assert.Equal(t, models.StatusOK, entry.Status)
		require.NotNil(t, entry.Latitude)
		assert.InEpsilon(t, 48.2, *entry.Latitude, 0.0001)
	})
}

func TestPartition(t *testing.T) {
	records := []models.AddressRecord{
		{Code: "D001", Street: "Hauptstrasse 1", PostalCode: "01067", City: "Dresden", CountryLabel: "Germany"},
		{Code: "D002", Street: "Nowhere 1", PostalCode: "00000", City: "Nirgends", CountryLabel: "Germany"},
		{Code: "A001", Street: "Mariahilfer Str. 10", PostalCode: "1070", City: "Wien", CountryLabel: "Austria"},
	}

	cch := cache.New()
	cch.Put(models.CacheEntry{
		Query:     records[0].QueryString(),
		Latitude:  float(51.05),
		Longitude: float(13.73),
		Status:    models.StatusOK,
	})
	// Unresolved entries must be treated as misses so they are retried.
	cch.Put(models.CacheEntry{Query: records[1].QueryString(), Status: models.StatusNotFound})

	hits, misses := cch.Partition(records)

	require.Len(t, hits, 1)
	assert.Equal(t, "D001", hits[0].Code)
	require.Len(t, misses, 2)
	assert.Equal(t, "D002", misses[0].Code)
	assert.Equal(t, "A001", misses[1].Code)
}
