// Package entity defines the core domain entities for the briefing bot.
// It contains the per-category payloads (weather, news, calendar, projects),
// the composed briefing message, and domain-specific errors.
package entity

// Category identifies one briefing category. Each category maps to one
// provider chain and one scheduled command.
type Category string

const (
	CategoryWeather  Category = "weather"
	CategoryNews     Category = "news"
	CategorySchedule Category = "schedule"
	CategoryEvening  Category = "evening"
	CategoryNight    Category = "night"
)

// Categories lists all known categories in delivery order.
var Categories = []Category{
	CategoryWeather,
	CategoryNews,
	CategorySchedule,
	CategoryEvening,
	CategoryNight,
}

// Valid reports whether the category is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWeather, CategoryNews, CategorySchedule, CategoryEvening, CategoryNight:
		return true
	}
	return false
}

// Message is the final text payload handed to the delivery sink.
// Body must never be empty; the composer substitutes a placeholder when
// every upstream provider is exhausted.
type Message struct {
	Category Category
	Body     string
	// Provider is the name of the provider that supplied the data,
	// or empty when the message is a placeholder.
	Provider string
}
