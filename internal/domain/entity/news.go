package entity

import "time"

// NewsTopic is the keyword bucket a news item falls into.
type NewsTopic string

const (
	TopicAI     NewsTopic = "AI"
	TopicTech   NewsTopic = "Tech"
	TopicEdTech NewsTopic = "EdTech"
	TopicOther  NewsTopic = "News"
)

// NewsItem represents one article in a news briefing.
// URL doubles as the dedup identifier across runs.
type NewsItem struct {
	Title       string
	Description string
	URL         string
	Source      string
	Topic       NewsTopic
	PublishedAt time.Time
	// Summary is filled by the rewriter when available; the composer
	// falls back to the truncated description otherwise.
	Summary string
}

// ID returns the dedup identifier for the item.
func (n NewsItem) ID() string { return n.URL }
