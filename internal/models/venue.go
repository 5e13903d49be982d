package models

import (
	"fmt"
	"math"
	"net/url"
)

// Venue is a place entry as returned by the venue query service.
// Identity is the ID: two results with the same ID describe the same venue.
type Venue struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	CategorySlug string     `json:"category_slug,omitempty"`
	City         string     `json:"city,omitempty"`
	Country      string     `json:"country,omitempty"`
	Address      string     `json:"address,omitempty"`
	Latitude     Coordinate `json:"latitude"`
	Longitude    Coordinate `json:"longitude"`
}

// Position returns the venue location. The second value is false unless both coordinates are present.
func (v Venue) Position() (Point, bool) {
	if !v.Latitude.Valid || !v.Longitude.Valid {
		return Point{}, false
	}

	return Point{Latitude: v.Latitude.Value, Longitude: v.Longitude.Value}, true
}

// Marker is a map-eligible venue with resolved numeric coordinates.
type Marker struct {
	VenueID  int64  `json:"venue_id"`
	Name     string `json:"name"`
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`
	Position Point  `json:"position"`
	Link     string `json:"link"`
}

// NewMarker builds the marker for a venue of the given category.
// It returns false for venues that cannot be placed on a map.
func NewMarker(category string, venue Venue) (Marker, bool) {
	pos, ok := venue.Position()
	if !ok {
		return Marker{}, false
	}

	return Marker{
		VenueID:  venue.ID,
		Name:     venue.Name,
		City:     venue.City,
		Country:  venue.Country,
		Position: pos,
		Link:     VenueDetailPath(category, venue.Slug),
	}, true
}

// VenueDetailPath returns the detail view path for a venue of a category.
func VenueDetailPath(category, venueSlug string) string {
	return fmt.Sprintf("/categories/%s/venues/%s", url.PathEscape(category), url.PathEscape(venueSlug))
}

// BoundingBox describes the rectangular region currently visible on the map.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"` // South bound.
	MaxLat float64 `json:"max_lat"` // North bound.
	MinLng float64 `json:"min_lng"` // West bound.
	MaxLng float64 `json:"max_lng"` // East bound.
}

// bboxPrecision is the rounding factor for cache keys: three decimals, roughly 110 m.
const bboxPrecision = 1000

// Valid reports whether the box can be queried. A box with non-finite values,
// inverted bounds, latitudes out of range or no area comes from a map that is not ready yet.
func (b BoundingBox) Valid() bool {
	for _, v := range []float64{b.MinLat, b.MaxLat, b.MinLng, b.MaxLng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	if b.MinLat < -90 || b.MaxLat > 90 {
		return false
	}

	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return false
	}

	return b.MinLat != b.MaxLat || b.MinLng != b.MaxLng
}

// Rounded returns the box with every bound rounded to three decimal places.
func (b BoundingBox) Rounded() BoundingBox {
	return BoundingBox{
		MinLat: roundBound(b.MinLat),
		MaxLat: roundBound(b.MaxLat),
		MinLng: roundBound(b.MinLng),
		MaxLng: roundBound(b.MaxLng),
	}
}

// Param encodes the rounded box as the API expects it: minLng,minLat,maxLng,maxLat.
func (b BoundingBox) Param() string {
	r := b.Rounded()
	return fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", r.MinLng, r.MinLat, r.MaxLng, r.MaxLat)
}

func roundBound(v float64) float64 {
	rounded := math.Round(v*bboxPrecision) / bboxPrecision
	if rounded == 0 {
		// avoid "-0.000" in keys
		return 0
	}
	return rounded
}
