package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/UnknownOlympus/venuemap/internal/models"
)

// ListVenues returns the venues matching the query.
func (c *Client) ListVenues(ctx context.Context, query models.VenueQuery) ([]models.Venue, error) {
	var body rawBody
	err := c.call(ctx, request{
		endpoint: "venues_list",
		method:   http.MethodGet,
		path:     "/venues/",
		query:    query.Values(),
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}

	venues, err := decodeList[models.Venue](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode venues_list response: %w", err)
	}

	c.log.DebugContext(ctx, "Venues fetched", "category", query.Category, "bbox", query.BBox.Param(), "count", len(venues))
	return venues, nil
}

// CountVenues returns the total number of venues of a category, regardless of any viewport.
func (c *Client) CountVenues(ctx context.Context, category string) (int, error) {
	var result struct {
		Count int `json:"count"`
	}

	err := c.call(ctx, request{
		endpoint: "venues_count",
		method:   http.MethodGet,
		path:     "/venues/",
		query:    url.Values{"category": {category}, "count_only": {"1"}},
	}, &result)
	if err != nil {
		return 0, fmt.Errorf("failed to count venues: %w", err)
	}

	return result.Count, nil
}

// GetVenue returns one venue by slug.
func (c *Client) GetVenue(ctx context.Context, slug string) (*models.Venue, error) {
	var venue models.Venue
	err := c.call(ctx, request{
		endpoint: "venues_get",
		method:   http.MethodGet,
		path:     "/venues/" + url.PathEscape(slug) + "/",
	}, &venue)
	if err != nil {
		return nil, fmt.Errorf("failed to get venue %q: %w", slug, err)
	}

	return &venue, nil
}
