package models

import (
	"encoding/json"
	"time"
)

// VenueSubmission is the payload of a new venue contribution or of an edit proposal.
type VenueSubmission struct {
	Category    string            `json:"category"`
	Name        string            `json:"name"`
	City        string            `json:"city,omitempty"`
	Country     string            `json:"country,omitempty"`
	Address     string            `json:"address,omitempty"`
	Latitude    Coordinate        `json:"latitude"`
	Longitude   Coordinate        `json:"longitude"`
	MapsURL     string            `json:"maps_url,omitempty"`
	FieldValues map[string]string `json:"field_values,omitempty"`
}

// HasPosition reports whether both coordinates are filled in.
func (s VenueSubmission) HasPosition() bool {
	return s.Latitude.Valid && s.Longitude.Valid
}

// MarshalJSON sends the coordinates only when both are known and falls back to
// the maps link otherwise. Edit proposals leave the category out.
func (s VenueSubmission) MarshalJSON() ([]byte, error) {
	type payload struct {
		Category    string            `json:"category,omitempty"`
		Name        string            `json:"name"`
		City        string            `json:"city,omitempty"`
		Country     string            `json:"country,omitempty"`
		Address     string            `json:"address,omitempty"`
		Latitude    *Coordinate       `json:"latitude,omitempty"`
		Longitude   *Coordinate       `json:"longitude,omitempty"`
		MapsURL     string            `json:"maps_url,omitempty"`
		FieldValues map[string]string `json:"field_values,omitempty"`
	}

	out := payload{
		Category:    s.Category,
		Name:        s.Name,
		City:        s.City,
		Country:     s.Country,
		Address:     s.Address,
		FieldValues: s.FieldValues,
	}
	if s.HasPosition() {
		out.Latitude, out.Longitude = &s.Latitude, &s.Longitude
	} else {
		out.MapsURL = s.MapsURL
	}

	return json.Marshal(out)
}

// GeocodingQuery returns the free-text address used to locate the venue.
func (s VenueSubmission) GeocodingQuery() string {
	query := ""
	for _, part := range []string{s.Name, s.Address, s.City, s.Country} {
		if part == "" {
			continue
		}
		if query != "" {
			query += ", "
		}
		query += part
	}

	return query
}

// Contribution is a pending change awaiting moderation.
type Contribution struct {
	ID               int64          `json:"id"`
	ContributionType string         `json:"contribution_type"`
	Contributor      string         `json:"contributor"`
	Status           string         `json:"status,omitempty"`
	Payload          map[string]any `json:"payload"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Tokens is an access/refresh token pair issued by the auth endpoints.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Profile is the authenticated user's profile.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Bio      string `json:"bio,omitempty"`
}
