package models

import "net/url"

// filterParamPrefix prefixes every custom field filter in venue queries.
const filterParamPrefix = "field__"

// VenueQuery selects the venues of one category inside a bounding box.
type VenueQuery struct {
	Category string
	BBox     BoundingBox
	Filters  FilterSet
}

// Values returns the query parameters: category, the rounded bbox and one
// field__<name> parameter per active filter.
func (q VenueQuery) Values() url.Values {
	values := url.Values{}
	values.Set("category", q.Category)
	values.Set("bbox", q.BBox.Param())

	for name, value := range q.Filters.Active() {
		values.Set(filterParamPrefix+name, value)
	}

	return values
}

// Key returns the canonical query string of the query.
// Encode sorts parameters by name, so the key depends only on the category,
// the rounded bbox and the active filters.
func (q VenueQuery) Key() string {
	return q.Values().Encode()
}
