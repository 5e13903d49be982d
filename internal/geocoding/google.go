package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/UnknownOlympus/venuemap/internal/models"
	"googlemaps.github.io/maps"
)

// venueTypes are the Google result types that denote a place rather than a street or an area.
var venueTypes = []string{"establishment", "point_of_interest"}

// GoogleOptions biases Google lookups towards the area the venues are in.
type GoogleOptions struct {
	Region   string // ccTLD region bias, e.g. "nl"
	Language string // language of the formatted address
}

// GoogleProvider locates venues through the Google Maps Geocoding API.
type GoogleProvider struct {
	client GoogleAPIClient
	opts   GoogleOptions
	log    *slog.Logger
}

// GoogleAPIClient is the part of *maps.Client used by GoogleProvider.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider creates a GoogleProvider sending its lookups through client.
func NewGoogleProvider(client GoogleAPIClient, opts GoogleOptions, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, opts: opts, log: log}
}

// Geocode locates the venue described by query. A result that Google classifies as a place
// wins over street or area matches, and a full match wins over a partial one.
func (gp *GoogleProvider) Geocode(ctx context.Context, query string) (*models.Point, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	gp.log.DebugContext(ctx, "Geocoding venue using Google Maps", "query", query, "region", gp.opts.Region)

	results, err := gp.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  query,
		Region:   gp.opts.Region,
		Language: gp.opts.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to geocode with Google Maps: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrEmptyResponse
	}

	best := bestVenueResult(results)
	gp.log.DebugContext(ctx, "Google Maps result chosen",
		"place_id", best.PlaceID,
		"address", best.FormattedAddress,
		"partial", best.PartialMatch)

	location := best.Geometry.Location
	return &models.Point{Latitude: location.Lat, Longitude: location.Lng}, nil
}

func bestVenueResult(results []maps.GeocodingResult) maps.GeocodingResult {
	best, bestScore := results[0], -1
	for _, result := range results {
		score := 0
		if slices.ContainsFunc(result.Types, func(t string) bool { return slices.Contains(venueTypes, t) }) {
			score += 2
		}
		if !result.PartialMatch {
			score++
		}
		if score > bestScore {
			best, bestScore = result, score
		}
	}

	return best
}
