package models

import "sort"

// FieldType is the value type of a category field definition.
type FieldType string

const (
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeString  FieldType = "string"
	FieldTypeText    FieldType = "text"
	FieldTypeInteger FieldType = "integer"
	FieldTypeDecimal FieldType = "decimal"
	FieldTypeURL     FieldType = "url"
)

// FieldDefinition describes one custom field of a category.
type FieldDefinition struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"field_type"`
	IsPublic bool      `json:"is_public"`
	HelpText string    `json:"help_text,omitempty"`
}

// Category is a venue category together with its ordered field definitions.
type Category struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Description string            `json:"description,omitempty"`
	Fields      []FieldDefinition `json:"field_definitions"`
}

// FilterableFields returns the public fields in their original order.
func (c *Category) FilterableFields() []FieldDefinition {
	if c == nil {
		return []FieldDefinition{}
	}

	fields := make([]FieldDefinition, 0, len(c.Fields))
	for _, field := range c.Fields {
		if field.IsPublic {
			fields = append(fields, field)
		}
	}

	return fields
}

// CategorySummary is a category entry of the category listing and search endpoints.
type CategorySummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	VenueCount int    `json:"venue_count,omitempty"`
}

// FilterSet maps a field name to a filter value. Booleans travel as "true" or "false".
// Only entries with a non-empty value are active.
type FilterSet map[string]string

// Active returns a copy holding only the active entries.
func (f FilterSet) Active() FilterSet {
	active := make(FilterSet, len(f))
	for name, value := range f {
		if name != "" && value != "" {
			active[name] = value
		}
	}

	return active
}

// Names returns the active field names in sorted order.
func (f FilterSet) Names() []string {
	names := make([]string, 0, len(f))
	for name, value := range f {
		if name != "" && value != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names
}

// Equal reports whether both sets have the same active entries.
func (f FilterSet) Equal(other FilterSet) bool {
	a, b := f.Active(), other.Active()
	if len(a) != len(b) {
		return false
	}

	for name, value := range a {
		if b[name] != value {
			return false
		}
	}

	return true
}

// Restrict returns the active entries whose names are filterable fields of the category.
func (f FilterSet) Restrict(fields []FieldDefinition) FilterSet {
	allowed := make(map[string]bool, len(fields))
	for _, field := range fields {
		allowed[field.Name] = true
	}

	restricted := make(FilterSet)
	for name, value := range f.Active() {
		if allowed[name] {
			restricted[name] = value
		}
	}

	return restricted
}
