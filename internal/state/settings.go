package state

import (
	"context"
	"fmt"

	"briefing-bot/internal/domain/entity"
)

// CategorySettings holds the user-configurable values for one category.
// All fields are optional; a category with no persisted settings behaves
// as enabled with profile defaults.
type CategorySettings struct {
	// Enabled turns the category on or off. Missing means enabled.
	Enabled *bool `json:"enabled,omitempty"`

	// Time overrides the scheduled trigger time ("HH:MM", daemon mode only).
	Time string `json:"time,omitempty"`

	// City and CountryCode override the profile location (weather only).
	City        string `json:"city,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// IsEnabled reports whether the category should run. Absent settings
// default to enabled, preserving the "proactive, always-on" behavior.
func (s CategorySettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LoadCategorySettings reads the settings for one category, returning the
// zero value (enabled, no overrides) when none are persisted.
func LoadCategorySettings(ctx context.Context, store *Store, category entity.Category) (CategorySettings, error) {
	var settings CategorySettings
	err := store.Get(ctx, settingsKey(category), &settings)
	return settings, err
}

// SaveCategorySettings stages the settings for one category; the change is
// persisted on the next Flush.
func SaveCategorySettings(ctx context.Context, store *Store, category entity.Category, settings CategorySettings) error {
	return store.Set(ctx, settingsKey(category), settings)
}

func settingsKey(category entity.Category) string {
	return fmt.Sprintf("%s:%s", RegionSettings, category)
}
