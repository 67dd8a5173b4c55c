package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile holds the user-editable briefing defaults. Values here are the
// baseline; per-category settings stored remotely override them at run
// time. The zero value is usable.
type Profile struct {
	// Locations lists the cities covered by the weather briefing, in
	// delivery order. The first entry is the home city used in schedule
	// headers.
	Locations []Location `yaml:"locations"`

	// Topics are the news interest areas, matched against article
	// titles and descriptions.
	Topics []string `yaml:"topics"`

	// Schedule maps category names to local delivery times (HH:MM),
	// consumed by the daemon's cron registration.
	Schedule map[string]string `yaml:"schedule"`

	// Timezone is an IANA zone name for schedule interpretation and
	// message timestamps.
	Timezone string `yaml:"timezone"`

	// ImportantKeywords mark calendar events that deserve emphasis.
	ImportantKeywords []string `yaml:"important_keywords"`
}

// Location is a weather lookup target.
type Location struct {
	City    string `yaml:"city"`
	Country string `yaml:"country"`
}

// DefaultProfile returns the built-in defaults, used when no profile
// file is configured.
func DefaultProfile() Profile {
	return Profile{
		Locations: []Location{{City: "Seoul", Country: "KR"}},
		Topics:    []string{"AI", "Tech", "EdTech"},
		Schedule: map[string]string{
			"weather":  "07:00",
			"news":     "08:00",
			"schedule": "08:30",
			"evening":  "20:00",
			"night":    "22:00",
		},
		Timezone:          "Asia/Seoul",
		ImportantKeywords: []string{"interview", "deadline", "exam", "flight"},
	}
}

// LoadProfile reads the profile YAML at path, layering it over the
// built-in defaults. An empty path returns the defaults; a missing file
// is an error since the operator asked for it explicitly.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}

	var overlay Profile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}

	if len(overlay.Locations) > 0 {
		profile.Locations = overlay.Locations
	}
	if len(overlay.Topics) > 0 {
		profile.Topics = overlay.Topics
	}
	for category, at := range overlay.Schedule {
		profile.Schedule[category] = at
	}
	if overlay.Timezone != "" {
		profile.Timezone = overlay.Timezone
	}
	if len(overlay.ImportantKeywords) > 0 {
		profile.ImportantKeywords = overlay.ImportantKeywords
	}

	return profile, nil
}

// HomeCity returns the first configured location's city name.
func (p Profile) HomeCity() string {
	if len(p.Locations) == 0 {
		return ""
	}
	return p.Locations[0].City
}
