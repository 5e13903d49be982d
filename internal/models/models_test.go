package models_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/UnknownOlympus/venuemap/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   string
		want  float64
		valid bool
	}{
		{name: "decimal string", raw: "52.3676", want: 52.3676, valid: true},
		{name: "negative with spaces", raw: " -4.9041 ", want: -4.9041, valid: true},
		{name: "empty", raw: "", valid: false},
		{name: "garbage", raw: "north", valid: false},
		{name: "not a number", raw: "NaN", valid: false},
		{name: "infinite", raw: "+Inf", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := models.ParseCoordinate(tt.raw)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.InDelta(t, tt.want, got.Value, 1e-9)
			}
		})
	}
}

func TestCoordinate_JSON(t *testing.T) {
	t.Parallel()

	var venue models.Venue
	err := json.Unmarshal([]byte(`{"id":1,"name":"Brew","latitude":"52.1","longitude":4.25}`), &venue)
	require.NoError(t, err)

	pos, ok := venue.Position()
	require.True(t, ok)
	assert.InDelta(t, 52.1, pos.Latitude, 1e-9)
	assert.InDelta(t, 4.25, pos.Longitude, 1e-9)

	err = json.Unmarshal([]byte(`{"id":2,"latitude":null,"longitude":""}`), &venue)
	require.NoError(t, err)
	_, ok = venue.Position()
	assert.False(t, ok)
}

func TestVenueSubmission_MarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		submission models.VenueSubmission
		want       string
	}{
		{
			name: "position wins over maps link",
			submission: models.VenueSubmission{
				Category:  "cafes",
				Name:      "Bean",
				Latitude:  models.NewCoordinate(52.5),
				Longitude: models.NewCoordinate(4.25),
				MapsURL:   "https://maps.example.org/bean",
			},
			want: `{"category":"cafes","name":"Bean","latitude":"52.5","longitude":"4.25"}`,
		},
		{
			name: "half a position falls back to maps link",
			submission: models.VenueSubmission{
				Category: "cafes",
				Name:     "Bean",
				Latitude: models.NewCoordinate(52.5),
				MapsURL:  "https://maps.example.org/bean",
			},
			want: `{"category":"cafes","name":"Bean","maps_url":"https://maps.example.org/bean"}`,
		},
		{
			name:       "edit proposal without category",
			submission: models.VenueSubmission{Name: "Bean", City: "Delft", FieldValues: map[string]string{"wifi": "true"}},
			want:       `{"name":"Bean","city":"Delft","field_values":{"wifi":"true"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := json.Marshal(tt.submission)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out))
		})
	}
}

func TestNewMarker(t *testing.T) {
	t.Parallel()

	t.Run("venue with coordinates", func(t *testing.T) {
		t.Parallel()

		marker, ok := models.NewMarker("cafes", models.Venue{
			ID:        7,
			Name:      "Brew",
			Slug:      "brew bar",
			Latitude:  models.NewCoordinate(52.1),
			Longitude: models.NewCoordinate(4.1),
		})

		require.True(t, ok)
		assert.Equal(t, int64(7), marker.VenueID)
		assert.Equal(t, "/categories/cafes/venues/brew%20bar", marker.Link)
	})

	t.Run("venue without coordinates", func(t *testing.T) {
		t.Parallel()

		_, ok := models.NewMarker("cafes", models.Venue{ID: 8, Latitude: models.NewCoordinate(52.1)})
		assert.False(t, ok)
	})
}

func TestBoundingBox_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		box  models.BoundingBox
		want bool
	}{
		{name: "regular box", box: models.BoundingBox{MinLat: 52, MaxLat: 53, MinLng: 4, MaxLng: 5}, want: true},
		{name: "zero box", box: models.BoundingBox{}, want: false},
		{name: "inverted latitude", box: models.BoundingBox{MinLat: 53, MaxLat: 52, MinLng: 4, MaxLng: 5}, want: false},
		{name: "latitude out of range", box: models.BoundingBox{MinLat: -95, MaxLat: 10, MinLng: 4, MaxLng: 5}, want: false},
		{name: "not a number", box: models.BoundingBox{MinLat: math.NaN(), MaxLat: 52, MinLng: 4, MaxLng: 5}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.box.Valid())
		})
	}
}

func TestBoundingBox_Param(t *testing.T) {
	t.Parallel()

	box := models.BoundingBox{MinLat: 52.36761, MaxLat: 52.4, MinLng: -0.0001, MaxLng: 4.90449}

	assert.Equal(t, "0.000,52.368,4.904,52.400", box.Param())
}

func TestVenueQuery_Key(t *testing.T) {
	t.Parallel()

	base := models.VenueQuery{
		Category: "cafes",
		BBox:     models.BoundingBox{MinLat: 52.1, MaxLat: 52.2, MinLng: 4.1, MaxLng: 4.2},
		Filters:  models.FilterSet{"wifi": "true", "outdoor": "false"},
	}

	t.Run("bounds equal after rounding share a key", func(t *testing.T) {
		t.Parallel()

		other := base
		other.BBox = models.BoundingBox{MinLat: 52.10001, MaxLat: 52.19998, MinLng: 4.1002, MaxLng: 4.2}
		assert.Equal(t, base.Key(), other.Key())
	})

	t.Run("filter order and inactive filters do not matter", func(t *testing.T) {
		t.Parallel()

		other := base
		other.Filters = models.FilterSet{"outdoor": "false", "vegan": "", "wifi": "true"}
		assert.Equal(t, base.Key(), other.Key())
	})

	t.Run("different filters differ", func(t *testing.T) {
		t.Parallel()

		other := base
		other.Filters = models.FilterSet{"wifi": "false"}
		assert.NotEqual(t, base.Key(), other.Key())
	})

	t.Run("parameters", func(t *testing.T) {
		t.Parallel()

		values := base.Values()
		assert.Equal(t, "cafes", values.Get("category"))
		assert.Equal(t, "4.100,52.100,4.200,52.200", values.Get("bbox"))
		assert.Equal(t, "true", values.Get("field__wifi"))
		assert.Equal(t, "false", values.Get("field__outdoor"))
	})
}

func TestFilterSet(t *testing.T) {
	t.Parallel()

	filters := models.FilterSet{"wifi": "true", "vegan": "", "secret": "x"}

	assert.Equal(t, []string{"secret", "wifi"}, filters.Names())
	assert.True(t, filters.Equal(models.FilterSet{"wifi": "true", "secret": "x"}))
	assert.False(t, filters.Equal(models.FilterSet{"wifi": "true"}))

	category := &models.Category{Fields: []models.FieldDefinition{
		{Name: "wifi", IsPublic: true},
		{Name: "secret", IsPublic: false},
		{Name: "vegan", IsPublic: true},
	}}
	assert.Equal(t, models.FilterSet{"wifi": "true"}, filters.Restrict(category.FilterableFields()))

	var missing *models.Category
	assert.Empty(t, missing.FilterableFields())
}

func TestVenueSubmission_GeocodingQuery(t *testing.T) {
	t.Parallel()

	submission := models.VenueSubmission{Name: "Brew", City: "Amsterdam", Country: "Netherlands"}

	assert.Equal(t, "Brew, Amsterdam, Netherlands", submission.GeocodingQuery())
	assert.False(t, submission.HasPosition())
}
