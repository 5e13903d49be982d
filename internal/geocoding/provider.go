// Package geocoding locates venue submissions that were sent without coordinates.
package geocoding

import (
	"context"
	"errors"

	"github.com/UnknownOlympus/venuemap/internal/models"
)

// Provider turns a free-text place description into a point.
type Provider interface {
	Geocode(ctx context.Context, query string) (*models.Point, error)
}

// Common errors of geocoding providers.
var (
	ErrEmptyQuery    = errors.New("geocoding query is empty")
	ErrEmptyResponse = errors.New("geocoding provider returned no results")
	ErrInvalidCoords = errors.New("geocoding provider returned invalid coordinates")
)
