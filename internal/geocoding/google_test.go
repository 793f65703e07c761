package geocoding_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/Houeta/geobatch/internal/geocoding"
	"github.com/Houeta/geobatch/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGeocode(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := context.Background()

	t.Run("api returns error", func(t *testing.T) {
		address := "some invalid place"
		req := &maps.GeocodingRequest{Address: address, Language: "de"}

		mockClient.On("Geocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.Geocode(ctx, address)

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		assert.False(t, geocoding.IsRateLimited(err))
		mockClient.AssertExpectations(t)
	})

	t.Run("quota exhaustion is marked as rate limited", func(t *testing.T) {
		address := "Hauptstrasse 1, 01067 Dresden, Germany"
		req := &maps.GeocodingRequest{Address: address, Language: "de"}
		quotaErr := errors.New("maps: OVER_QUERY_LIMIT - You have exceeded your daily request quota")

		mockClient.On("Geocode", ctx, req).Return(nil, quotaErr).Once()

		_, err := provider.Geocode(ctx, address)

		require.Error(t, err)
		require.ErrorIs(t, err, geocoding.ErrRateLimited)
		assert.Contains(t, err.Error(), "OVER_QUERY_LIMIT")
		mockClient.AssertExpectations(t)
	})

	t.Run("zero results is not an error", func(t *testing.T) {
		address := "some unknown place"
		req := &maps.GeocodingRequest{Address: address, Language: "de"}

		mockClient.On("Geocode", ctx, req).Return(nil, nil).Once()

		result, err := provider.Geocode(ctx, address)

		require.NoError(t, err)
		require.Nil(t, result)
		mockClient.AssertExpectations(t)
	})

	t.Run("successfull geocoding", func(t *testing.T) {
		address := "Hauptstrasse 1, 01067 Dresden, Germany"
		req := &maps.GeocodingRequest{Address: address, Language: "de"}
		mockReponse := []maps.GeocodingResult{
			{
				Geometry:         maps.AddressGeometry{Location: maps.LatLng{Lat: 51.05, Lng: 13.73}},
				PlaceID:          "place-1",
				FormattedAddress: "Hauptstraße 1, 01067 Dresden, Deutschland",
			},
		}

		mockClient.On("Geocode", ctx, req).Return(mockReponse, nil).Once()

		result, err := provider.Geocode(ctx, address)

		require.NoError(t, err)
		require.NotNil(t, result)
		require.InEpsilon(t, 51.05, result.Latitude, 0.01)
		require.InEpsilon(t, 13.73, result.Longitude, 0.01)
		assert.Equal(t, "place-1", result.PlaceID)
		assert.Equal(t, "Hauptstraße 1, 01067 Dresden, Deutschland", result.FormattedAddress)
		mockClient.AssertExpectations(t)
	})
}
