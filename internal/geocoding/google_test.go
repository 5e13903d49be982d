package geocoding_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/venuemap/internal/geocoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

type mockGoogleClient struct {
	mock.Mock
}

func (m *mockGoogleClient) Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	args := m.Called(ctx, r)
	results, _ := args.Get(0).([]maps.GeocodingResult)
	return results, args.Error(1)
}

func TestGoogleProvider_Geocode(t *testing.T) {
	ctx := t.Context()

	t.Run("api returns error", func(t *testing.T) {
		client := &mockGoogleClient{}
		provider := geocoding.NewGoogleProvider(client, geocoding.GoogleOptions{}, slog.Default())
		req := &maps.GeocodingRequest{Address: "nowhere"}

		client.On("Geocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.Geocode(ctx, "nowhere")

		require.ErrorIs(t, err, assert.AnError)
		client.AssertExpectations(t)
	})

	t.Run("api returns empty response", func(t *testing.T) {
		client := &mockGoogleClient{}
		provider := geocoding.NewGoogleProvider(client, geocoding.GoogleOptions{}, slog.Default())
		req := &maps.GeocodingRequest{Address: "nowhere"}

		client.On("Geocode", ctx, req).Return(nil, nil).Once()

		point, err := provider.Geocode(ctx, "nowhere")

		require.Nil(t, point)
		require.ErrorIs(t, err, geocoding.ErrEmptyResponse)
		client.AssertExpectations(t)
	})

	t.Run("empty query", func(t *testing.T) {
		client := &mockGoogleClient{}
		provider := geocoding.NewGoogleProvider(client, geocoding.GoogleOptions{}, slog.Default())

		_, err := provider.Geocode(ctx, "")

		require.ErrorIs(t, err, geocoding.ErrEmptyQuery)
		client.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
	})

	t.Run("successful geocoding", func(t *testing.T) {
		client := &mockGoogleClient{}
		provider := geocoding.NewGoogleProvider(client, geocoding.GoogleOptions{}, slog.Default())
		req := &maps.GeocodingRequest{Address: "Moda, Istanbul"}
		response := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 40.98, Lng: 29.02}}},
		}

		client.On("Geocode", ctx, req).Return(response, nil).Once()

		point, err := provider.Geocode(ctx, "Moda, Istanbul")

		require.NoError(t, err)
		require.InEpsilon(t, 40.98, point.Latitude, 0.01)
		require.InEpsilon(t, 29.02, point.Longitude, 0.01)
		client.AssertExpectations(t)
	})

	t.Run("region and language are sent", func(t *testing.T) {
		client := &mockGoogleClient{}
		opts := geocoding.GoogleOptions{Region: "nl", Language: "en"}
		provider := geocoding.NewGoogleProvider(client, opts, slog.Default())
		req := &maps.GeocodingRequest{Address: "Brew, Delft", Region: "nl", Language: "en"}
		response := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 52.01, Lng: 4.36}}},
		}

		client.On("Geocode", ctx, req).Return(response, nil).Once()

		point, err := provider.Geocode(ctx, "Brew, Delft")

		require.NoError(t, err)
		require.InEpsilon(t, 52.01, point.Latitude, 0.001)
		client.AssertExpectations(t)
	})

	t.Run("place result preferred over street match", func(t *testing.T) {
		client := &mockGoogleClient{}
		provider := geocoding.NewGoogleProvider(client, geocoding.GoogleOptions{}, slog.Default())
		response := []maps.GeocodingResult{
			{
				Types:    []string{"route"},
				Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 41.0, Lng: 29.0}},
			},
			{
				Types:        []string{"cafe", "point_of_interest", "establishment"},
				PartialMatch: true,
				Geometry:     maps.AddressGeometry{Location: maps.LatLng{Lat: 40.98, Lng: 29.03}},
			},
			{
				Types:    []string{"cafe", "establishment"},
				Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 40.99, Lng: 29.02}},
			},
		}

		client.On("Geocode", ctx, mock.Anything).Return(response, nil).Once()

		point, err := provider.Geocode(ctx, "Moda Roasters, Istanbul")

		require.NoError(t, err)
		require.InEpsilon(t, 40.99, point.Latitude, 0.0001)
		require.InEpsilon(t, 29.02, point.Longitude, 0.0001)
	})
}
