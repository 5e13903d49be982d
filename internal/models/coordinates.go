package models

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Point represents a geographical point defined by its latitude and longitude.
type Point struct {
	Latitude  float64 `json:"lat"` // Latitude of the geographical point.
	Longitude float64 `json:"lng"` // Longitude of the geographical point.
}

// Coordinate is a single latitude or longitude value as exchanged with the places API.
// The API sends coordinates as numeric strings, plain numbers, empty strings or null;
// anything that does not parse to a finite number is treated as absent.
type Coordinate struct {
	Value float64 // Value is meaningful only when Valid is true.
	Valid bool    // Valid reports whether the coordinate is present.
}

// NewCoordinate returns a present coordinate with the given value.
func NewCoordinate(value float64) Coordinate {
	return Coordinate{Value: value, Valid: true}
}

// ParseCoordinate parses a textual coordinate. Empty or malformed input yields an absent coordinate.
func ParseCoordinate(raw string) Coordinate {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Coordinate{}
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Coordinate{}
	}

	return NewCoordinate(value)
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = Coordinate{}
		return nil
	}

	*c = ParseCoordinate(strings.Trim(string(data), `"`))
	return nil
}

// MarshalJSON writes the coordinate as a numeric string, the form the places API stores, or null.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}

	return []byte(strconv.Quote(c.String())), nil
}

// String formats the coordinate without trailing zeros, or returns an empty string when absent.
func (c Coordinate) String() string {
	if !c.Valid {
		return ""
	}

	return strconv.FormatFloat(c.Value, 'f', -1, 64)
}
