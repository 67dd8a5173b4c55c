package briefing

import (
	"fmt"
	"strings"
	"time"

	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/infra/weather"
)

// Message templates. Briefings are plain text: Telegram renders them
// as-is and the rewriter may restyle them afterwards.

// composeWeather renders one or more city reports into a single message.
func composeWeather(reports []entity.WeatherReport, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Good morning! Weather for %s:\n", date.Format("Mon, Jan 2"))

	for _, r := range reports {
		fmt.Fprintf(&b, "\n%s: %s, %.0f°C (feels like %.0f°C)\n", r.City, r.Description, r.TempC, r.FeelsLikeC)
		fmt.Fprintf(&b, "  Low %.0f°C / High %.0f°C, humidity %d%%, wind %.1f m/s\n",
			r.TempMinC, r.TempMaxC, r.HumidityPct, r.WindSpeedMS)
		if r.RainProbability != weather.RainUnknown {
			fmt.Fprintf(&b, "  Rain chance: %d%%\n", r.RainProbability)
			if r.RainProbability >= 50 {
				b.WriteString("  Take an umbrella!\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// composeNews renders deduplicated articles grouped by topic.
func composeNews(items []entity.NewsItem) string {
	if len(items) == 0 {
		return "Today's news: nothing new since the last briefing. Enjoy the quiet!"
	}

	var b strings.Builder
	b.WriteString("Today's news:\n")

	byTopic := make(map[entity.NewsTopic][]entity.NewsItem)
	var order []entity.NewsTopic
	for _, item := range items {
		if _, seen := byTopic[item.Topic]; !seen {
			order = append(order, item.Topic)
		}
		byTopic[item.Topic] = append(byTopic[item.Topic], item)
	}

	for _, topic := range order {
		fmt.Fprintf(&b, "\n[%s]\n", topic)
		for _, item := range byTopic[topic] {
			fmt.Fprintf(&b, "• %s", item.Title)
			if item.Source != "" {
				fmt.Fprintf(&b, " (%s)", item.Source)
			}
			b.WriteString("\n")
			if summary := itemSummary(item); summary != "" {
				fmt.Fprintf(&b, "  %s\n", summary)
			}
			fmt.Fprintf(&b, "  %s\n", item.URL)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// itemSummary prefers the rewritten summary and falls back to a
// truncated description.
func itemSummary(item entity.NewsItem) string {
	if item.Summary != "" {
		return item.Summary
	}
	desc := strings.TrimSpace(item.Description)
	const maxDesc = 180
	if len(desc) > maxDesc {
		desc = desc[:maxDesc] + "…"
	}
	return desc
}

// composeSchedule renders today's events.
func composeSchedule(briefing entity.ScheduleBriefing, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule for %s:\n", date.Format("Mon, Jan 2"))

	if len(briefing.Events) == 0 {
		b.WriteString("\nNo events today. A free day!")
		return b.String()
	}

	for _, e := range briefing.Events {
		fmt.Fprintf(&b, "\n%s  %s", e.TimeLabel(), e.Title)
		if e.Important {
			b.WriteString(" ⭐")
		}
		if e.Location != "" {
			fmt.Fprintf(&b, " @ %s", e.Location)
		}
	}
	if briefing.ImportantCount > 0 {
		fmt.Fprintf(&b, "\n\n%d important event(s) today — good luck!", briefing.ImportantCount)
	}
	return b.String()
}

// eveningRecommendations is rotated by weekday so the evening briefing
// always closes with a small wind-down suggestion.
var eveningRecommendations = []string{
	"Tonight's suggestion: pick one article from your reading list.",
	"Tonight's suggestion: a short walk before screens off.",
	"Tonight's suggestion: review tomorrow's first task for five minutes.",
	"Tonight's suggestion: one chapter of whatever you're reading.",
	"Tonight's suggestion: stretch for ten minutes.",
	"Tonight's suggestion: queue up a talk or documentary.",
	"Tonight's suggestion: write down three lines about today.",
}

// composeEvening renders tonight's remaining events plus tomorrow's preview.
func composeEvening(briefing entity.EveningBriefing, date time.Time) string {
	recommendation := eveningRecommendations[int(date.Weekday())%len(eveningRecommendations)]

	if !briefing.HasPlans() {
		return "Good evening! Nothing left on the calendar tonight, and tomorrow looks clear so far. Rest well.\n\n" + recommendation
	}

	var b strings.Builder
	b.WriteString("Good evening!\n")

	if len(briefing.EveningEvents) > 0 {
		b.WriteString("\nStill ahead tonight:\n")
		for _, e := range briefing.EveningEvents {
			fmt.Fprintf(&b, "%s  %s\n", e.TimeLabel(), e.Title)
		}
	}
	if len(briefing.TomorrowPreview) > 0 {
		b.WriteString("\nTomorrow to keep in mind:\n")
		for _, e := range briefing.TomorrowPreview {
			fmt.Fprintf(&b, "%s  %s", e.TimeLabel(), e.Title)
			if e.Important {
				b.WriteString(" ⭐")
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n" + recommendation)
	return strings.TrimRight(b.String(), "\n")
}

// composeNight renders the project reminders.
func composeNight(reminders entity.ProjectReminders) string {
	if !reminders.HasProjects() {
		return "Good night! No active projects on the list. Sleep well."
	}

	var b strings.Builder
	b.WriteString("Before you wind down, your active projects:\n")
	for _, p := range reminders.Projects {
		fmt.Fprintf(&b, "\n%s (%s)\n", p.Title, p.Status)
		for _, action := range p.NextActions {
			fmt.Fprintf(&b, "  - %s\n", action)
		}
	}
	b.WriteString("\nGood night!")
	return b.String()
}

// placeholder is the degraded message sent when every provider in a
// category's chain failed. Delivering something keeps the bot's
// always-on contract: silence would look like the bot itself died.
func placeholder(category entity.Category) string {
	switch category {
	case entity.CategoryWeather:
		return "Good morning! The weather services are unreachable right now, so no forecast today. I'll try again tomorrow."
	case entity.CategoryNews:
		return "Today's news briefing is unavailable — every news source failed. Normal service should resume next run."
	case entity.CategorySchedule:
		return "I couldn't reach your calendar this morning, so no schedule briefing today. Please check your calendar directly."
	case entity.CategoryEvening:
		return "Good evening! Your calendar is unreachable right now, so no evening summary today."
	case entity.CategoryNight:
		return "Good night! I couldn't read your project notes this time. Sleep well anyway."
	default:
		return "This briefing is temporarily unavailable."
	}
}
