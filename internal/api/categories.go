package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/UnknownOlympus/venuemap/internal/models"
)

// GetCategory returns the category metadata with its field definitions.
func (c *Client) GetCategory(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := c.call(ctx, request{
		endpoint: "categories_get",
		method:   http.MethodGet,
		path:     "/categories/" + url.PathEscape(slug) + "/",
	}, &category)
	if err != nil {
		return nil, fmt.Errorf("failed to get category %q: %w", slug, err)
	}

	return &category, nil
}

// ListCategories returns all categories.
func (c *Client) ListCategories(ctx context.Context) ([]models.CategorySummary, error) {
	return c.listCategories(ctx, nil)
}

// SearchCategories returns the categories whose name matches term.
func (c *Client) SearchCategories(ctx context.Context, term string) ([]models.CategorySummary, error) {
	return c.listCategories(ctx, url.Values{"search": {term}})
}

func (c *Client) listCategories(ctx context.Context, query url.Values) ([]models.CategorySummary, error) {
	var body rawBody
	err := c.call(ctx, request{
		endpoint: "categories_list",
		method:   http.MethodGet,
		path:     "/categories/",
		query:    query,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories, err := decodeList[models.CategorySummary](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode categories_list response: %w", err)
	}

	return categories, nil
}
