package state

import (
	"context"
	"fmt"
	"time"

	"briefing-bot/internal/domain/entity"
)

// DefaultRetention is how long a delivered item identifier is remembered
// before it may be re-delivered.
const DefaultRetention = 14 * 24 * time.Hour

// SeenItem is one previously-delivered identifier with its delivery time.
type SeenItem struct {
	ID     string    `json:"id"`
	SeenAt time.Time `json:"seen_at"`
}

// DedupTracker suppresses previously-delivered items using the state
// store. It never consults a network provider: both IsNew and MarkSeen
// operate purely on the loaded state document, keeping dedup decisions
// fast and offline-safe.
type DedupTracker struct {
	store     *Store
	retention time.Duration
	now       func() time.Time
}

// NewDedupTracker creates a tracker over the given store with the default
// 14-day retention window.
func NewDedupTracker(store *Store) *DedupTracker {
	return &DedupTracker{
		store:     store,
		retention: DefaultRetention,
		now:       time.Now,
	}
}

// NewDedupTrackerWithClock creates a tracker with an explicit retention
// window and clock, for tests.
func NewDedupTrackerWithClock(store *Store, retention time.Duration, now func() time.Time) *DedupTracker {
	return &DedupTracker{store: store, retention: retention, now: now}
}

// IsNew reports whether itemID has not been delivered for the category
// within the retention window.
func (t *DedupTracker) IsNew(ctx context.Context, category entity.Category, itemID string) (bool, error) {
	seen, err := t.seenItems(ctx, category)
	if err != nil {
		return false, err
	}

	cutoff := t.now().Add(-t.retention)
	for _, item := range seen {
		if item.ID == itemID && item.SeenAt.After(cutoff) {
			return false, nil
		}
	}
	return true, nil
}

// MarkSeen records itemID as delivered now. Identifiers older than the
// retention window are pruned on the same write, bounding document growth.
func (t *DedupTracker) MarkSeen(ctx context.Context, category entity.Category, itemID string) error {
	seen, err := t.seenItems(ctx, category)
	if err != nil {
		return err
	}

	now := t.now()
	cutoff := now.Add(-t.retention)

	kept := make([]SeenItem, 0, len(seen)+1)
	for _, item := range seen {
		if item.SeenAt.After(cutoff) && item.ID != itemID {
			kept = append(kept, item)
		}
	}
	kept = append(kept, SeenItem{ID: itemID, SeenAt: now})

	return t.store.Set(ctx, dedupKey(category), kept)
}

func (t *DedupTracker) seenItems(ctx context.Context, category entity.Category) ([]SeenItem, error) {
	var seen []SeenItem
	if err := t.store.Get(ctx, dedupKey(category), &seen); err != nil {
		return nil, err
	}
	return seen, nil
}

func dedupKey(category entity.Category) string {
	return fmt.Sprintf("%s:%s", RegionDedup, category)
}
