package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/UnknownOlympus/venuemap/internal/models"
)

// SubmitVenue sends a new venue for moderation.
func (c *Client) SubmitVenue(ctx context.Context, submission models.VenueSubmission) error {
	err := c.call(ctx, request{
		endpoint: "contributions_submit",
		method:   http.MethodPost,
		path:     "/contributions/venue/",
		body:     submission,
		auth:     true,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to submit venue: %w", err)
	}

	c.log.InfoContext(ctx, "Venue submitted", "category", submission.Category, "name", submission.Name)
	return nil
}

// ProposeVenueEdit sends changes to an existing venue for moderation.
func (c *Client) ProposeVenueEdit(ctx context.Context, venueID int64, edit models.VenueSubmission) error {
	err := c.call(ctx, request{
		endpoint: "contributions_edit",
		method:   http.MethodPost,
		path:     "/contributions/venue/" + strconv.FormatInt(venueID, 10) + "/edit/",
		body:     edit,
		auth:     true,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to propose edit of venue %d: %w", venueID, err)
	}

	c.log.InfoContext(ctx, "Venue edit proposed", "venue_id", venueID, "name", edit.Name)
	return nil
}

// PendingContributions returns the contributions of a category awaiting moderation.
func (c *Client) PendingContributions(ctx context.Context, category string) ([]models.Contribution, error) {
	var query url.Values
	if category != "" {
		query = url.Values{"category": {category}}
	}

	var body rawBody
	err := c.call(ctx, request{
		endpoint: "contributions_pending",
		method:   http.MethodGet,
		path:     "/contributions/pending/",
		query:    query,
		auth:     true,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending contributions: %w", err)
	}

	contributions, err := decodeList[models.Contribution](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode contributions_pending response: %w", err)
	}

	return contributions, nil
}

// ApproveContribution approves a pending contribution.
func (c *Client) ApproveContribution(ctx context.Context, id int64) error {
	err := c.call(ctx, request{
		endpoint: "contributions_approve",
		method:   http.MethodPost,
		path:     "/contributions/" + strconv.FormatInt(id, 10) + "/approve/",
		body:     struct{}{},
		auth:     true,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to approve contribution %d: %w", id, err)
	}

	return nil
}

// RejectContribution rejects a pending contribution with a note for the contributor.
func (c *Client) RejectContribution(ctx context.Context, id int64, note string) error {
	err := c.call(ctx, request{
		endpoint: "contributions_reject",
		method:   http.MethodPost,
		path:     "/contributions/" + strconv.FormatInt(id, 10) + "/reject/",
		body:     map[string]string{"note": note},
		auth:     true,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to reject contribution %d: %w", id, err)
	}

	return nil
}
