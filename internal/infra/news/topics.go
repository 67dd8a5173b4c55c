// Package news implements the news providers: NewsAPI as the primary,
// Google News RSS as the fallback, and an HTML headline scrape as the
// last resort. All three normalize into the same NewsItem shape so the
// downstream pipeline never cares which one answered.
package news

import (
	"strings"

	"briefing-bot/internal/domain/entity"
)

var topicKeywords = map[entity.NewsTopic][]string{
	entity.TopicAI: {
		"ai", "artificial intelligence", "machine learning", "llm",
		"deep learning", "neural", "gpt", "chatbot", "generative",
	},
	entity.TopicEdTech: {
		"edtech", "education", "learning platform", "e-learning",
		"online course", "classroom", "student",
	},
	entity.TopicTech: {
		"tech", "software", "startup", "cloud", "chip", "semiconductor",
		"app", "developer", "cyber", "robot", "quantum",
	},
}

// topicOrder fixes precedence: a title matching both AI and Tech
// keywords lands in the more specific bucket.
var topicOrder = []entity.NewsTopic{entity.TopicAI, entity.TopicEdTech, entity.TopicTech}

// Classify buckets an item by keyword match over its title and
// description. Unmatched items fall into the general bucket.
func Classify(title, description string) entity.NewsTopic {
	haystack := strings.ToLower(title + " " + description)
	for _, topic := range topicOrder {
		for _, kw := range topicKeywords[topic] {
			if containsWord(haystack, kw) {
				return topic
			}
		}
	}
	return entity.TopicOther
}

// containsWord matches kw on word boundaries so "ai" does not match
// "daily" or "maintain".
func containsWord(haystack, kw string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isAlnum(haystack[start-1])
		afterOK := end == len(haystack) || !isAlnum(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
