package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/UnknownOlympus/venuemap/internal/geocoding"
	"github.com/UnknownOlympus/venuemap/internal/metrics"
	"github.com/UnknownOlympus/venuemap/internal/models"
)

// ErrInvalidSubmission is returned for submissions missing a category or a name.
var ErrInvalidSubmission = errors.New("invalid venue submission")

// Submitter sends venue submissions and edit proposals to the places API. *api.Client satisfies it.
type Submitter interface {
	SubmitVenue(ctx context.Context, submission models.VenueSubmission) error
	ProposeVenueEdit(ctx context.Context, venueID int64, edit models.VenueSubmission) error
}

// ContributionService prepares venue contributions before they are sent for moderation.
type ContributionService struct {
	log          *slog.Logger       // Logger for logging service activities
	api          Submitter          // Places API receiving the submissions
	provider     geocoding.Provider // Geocoding provider, nil when geocoding is disabled
	providerName string             // Name of the provider for metrics labeling
	metrics      *metrics.Metrics   // Metrics for tracking provider performance
}

// NewContributionService creates a new instance of ContributionService.
// A nil provider submits venues without looking up missing coordinates.
func NewContributionService(
	log *slog.Logger,
	api Submitter,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
) *ContributionService {
	return &ContributionService{
		log:          log,
		api:          api,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
	}
}

// Submit validates the submission, fills in missing coordinates from its address and submits it.
// It returns the submission as sent. A geocoding failure does not prevent the submission.
func (cs *ContributionService) Submit(
	ctx context.Context,
	submission models.VenueSubmission,
) (models.VenueSubmission, error) {
	submission.Category = strings.TrimSpace(submission.Category)
	submission.Name = strings.TrimSpace(submission.Name)

	if submission.Category == "" || submission.Name == "" {
		return submission, fmt.Errorf("%w: category and name are required", ErrInvalidSubmission)
	}

	if !submission.HasPosition() && submission.MapsURL == "" {
		submission = cs.geocode(ctx, submission)
	}

	if err := cs.api.SubmitVenue(ctx, submission); err != nil {
		return submission, fmt.Errorf("failed to submit contribution: %w", err)
	}

	cs.log.InfoContext(ctx, "Contribution submitted",
		"category", submission.Category,
		"name", submission.Name,
		"has_position", submission.HasPosition())

	return submission, nil
}

// ProposeEdit sends changes to an existing venue for moderation and returns the edit as sent.
// Fields left blank keep the venue's current values. The venue keeps its position unless the
// edit moves it or changes its address, in which case the new address is geocoded.
func (cs *ContributionService) ProposeEdit(
	ctx context.Context,
	venue models.Venue,
	edit models.VenueSubmission,
) (models.VenueSubmission, error) {
	edit.Category = ""
	edit.Name = orDefault(strings.TrimSpace(edit.Name), venue.Name)
	edit.City = orDefault(strings.TrimSpace(edit.City), venue.City)
	edit.Country = orDefault(strings.TrimSpace(edit.Country), venue.Country)
	edit.Address = orDefault(strings.TrimSpace(edit.Address), venue.Address)

	if edit.Name == "" {
		return edit, fmt.Errorf("%w: name is required", ErrInvalidSubmission)
	}

	if !edit.HasPosition() && edit.MapsURL == "" {
		_, located := venue.Position()
		moved := edit.City != venue.City || edit.Country != venue.Country || edit.Address != venue.Address
		if located && !moved {
			edit.Latitude, edit.Longitude = venue.Latitude, venue.Longitude
		} else {
			edit = cs.geocode(ctx, edit)
		}
	}

	if err := cs.api.ProposeVenueEdit(ctx, venue.ID, edit); err != nil {
		return edit, fmt.Errorf("failed to propose venue edit: %w", err)
	}

	cs.log.InfoContext(ctx, "Venue edit proposed",
		"venue_id", venue.ID,
		"name", edit.Name,
		"has_position", edit.HasPosition())

	return edit, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (cs *ContributionService) geocode(ctx context.Context, submission models.VenueSubmission) models.VenueSubmission {
	if cs.provider == nil {
		return submission
	}

	query := submission.GeocodingQuery()

	startTime := time.Now()
	point, err := cs.provider.Geocode(ctx, query)
	duration := time.Since(startTime).Seconds()
	cs.metrics.GeocodingSeconds.WithLabelValues(cs.providerName).Observe(duration)

	if err != nil {
		cs.log.WarnContext(ctx, "Failed to geocode contribution, submitting without coordinates",
			"query", query,
			"error", err)
		return submission
	}

	cs.log.DebugContext(ctx, "Contribution geocoded", "query", query, "lat", point.Latitude, "lng", point.Longitude)

	submission.Latitude = models.NewCoordinate(point.Latitude)
	submission.Longitude = models.NewCoordinate(point.Longitude)

	return submission
}
