package entity

import "time"

// CalendarEvent represents one event in a schedule briefing.
type CalendarEvent struct {
	Title     string
	Location  string
	Start     time.Time
	End       time.Time
	AllDay    bool
	Important bool
}

// TimeLabel renders the event start for display: "15:04" for timed
// events, "all day" for date-only events.
func (e CalendarEvent) TimeLabel() string {
	if e.AllDay {
		return "all day"
	}
	return e.Start.Format("15:04")
}

// ScheduleBriefing holds the events selected for one schedule run.
type ScheduleBriefing struct {
	Events         []CalendarEvent
	ImportantCount int
}

// EveningBriefing holds tonight's events and tomorrow's important preview.
type EveningBriefing struct {
	EveningEvents   []CalendarEvent
	TomorrowPreview []CalendarEvent
}

// HasPlans reports whether the evening briefing carries anything worth
// a rewrite attempt.
func (b EveningBriefing) HasPlans() bool {
	return len(b.EveningEvents) > 0 || len(b.TomorrowPreview) > 0
}
