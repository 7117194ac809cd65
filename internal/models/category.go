package models

import (
	"fmt"
	"strings"
)

// Category is the closed set of topics a post can be filed under.
type Category string

const (
	CategoryCulture     Category = "culture"
	CategorySports      Category = "sports"
	CategoryEducation   Category = "education"
	CategoryLifestyle   Category = "lifestyle"
	CategoryEnvironment Category = "environment"
	CategoryPolitics    Category = "politics"
)

// CategoryInfo is the display metadata for a category.
type CategoryInfo struct {
	ID   Category `json:"id"`
	Name string   `json:"name"`
	Icon string   `json:"icon"`
}

// Categories lists every category in display order.
var Categories = []CategoryInfo{
	{ID: CategoryCulture, Name: "Culture", Icon: "🎭"},
	{ID: CategorySports, Name: "Sports", Icon: "⚽"},
	{ID: CategoryEducation, Name: "Education", Icon: "📚"},
	{ID: CategoryLifestyle, Name: "Lifestyle", Icon: "✨"},
	{ID: CategoryEnvironment, Name: "Environment", Icon: "🌍"},
	{ID: CategoryPolitics, Name: "Politics", Icon: "🏛️"},
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCulture, CategorySports, CategoryEducation,
		CategoryLifestyle, CategoryEnvironment, CategoryPolitics:
		return true
	}
	return false
}

// ParseCategory converts raw input into a Category, rejecting unknown values.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// UnmarshalText implements encoding.TextUnmarshaler so decoders reject unknown categories.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
