// Package state implements the persistent key-value store that survives
// across independent invocations of the bot. All state lives in a single
// JSON document with two regions: "dedup" (previously delivered item
// identifiers per category) and "settings" (user-configurable values).
//
// The store follows a strict read-modify-write discipline: the document is
// loaded at most once per run, mutated in memory, and written back by a
// single Flush call. There is no optimistic-concurrency merge; the
// deployment model guarantees at most one writer per document at a time
// (one scheduled run per trigger), so the last flush wins.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Region names inside the persisted document.
const (
	RegionDedup    = "dedup"
	RegionSettings = "settings"
)

// ErrUnknownRegion is returned for keys outside the two document regions.
var ErrUnknownRegion = errors.New("unknown state region")

// DocumentStore is the port to the backing medium for the state document.
// Implementations must create the document (as an empty JSON object) on
// first use instead of failing with "not found".
type DocumentStore interface {
	// Load returns the current raw document content. A document that has
	// never been written loads as an empty JSON object, never as an error.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the full document content in a single remote write.
	Save(ctx context.Context, data []byte) error
}

// document is the persisted JSON shape. Missing regions decode as nil
// maps and read as empty, never as errors.
type document struct {
	Dedup    map[string]json.RawMessage `json:"dedup,omitempty"`
	Settings map[string]json.RawMessage `json:"settings,omitempty"`
}

// Store provides typed get/set access over the state document with
// deferred persistence. It is safe for use from a single run; it is not
// meant to be shared across concurrent runs.
type Store struct {
	docs DocumentStore

	mu     sync.Mutex
	doc    document
	loaded bool
	dirty  bool
}

// NewStore creates a store over the given backing document.
func NewStore(docs DocumentStore) *Store {
	return &Store{docs: docs}
}

// Get decodes the value stored under key into out. Keys are
// "<region>:<name>", e.g. "dedup:news" or "settings:weather".
// A missing key leaves out untouched and returns nil, so callers always
// see their zero value as the default.
func (s *Store) Get(ctx context.Context, key string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return err
	}

	region, name, err := splitKey(key)
	if err != nil {
		return err
	}

	raw, ok := s.region(region)[name]
	if !ok || len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode state value %q: %w", key, err)
	}
	return nil
}

// Set stores value under key in memory. The change is not persisted until
// Flush is called.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return err
	}

	region, name, err := splitKey(key)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode state value %q: %w", key, err)
	}

	switch region {
	case RegionDedup:
		if s.doc.Dedup == nil {
			s.doc.Dedup = make(map[string]json.RawMessage)
		}
		s.doc.Dedup[name] = raw
	case RegionSettings:
		if s.doc.Settings == nil {
			s.doc.Settings = make(map[string]json.RawMessage)
		}
		s.doc.Settings[name] = raw
	}
	s.dirty = true
	return nil
}

// Dirty reports whether the store holds unflushed mutations.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Flush commits all pending writes as a single remote write. When the
// write fails the in-memory state is kept intact, so the caller may retry
// Flush under its retry policy. A store with no pending writes flushes as
// a no-op.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("encode state document: %w", err)
	}

	if err := s.docs.Save(ctx, data); err != nil {
		return fmt.Errorf("flush state document: %w", err)
	}

	s.dirty = false
	return nil
}

// load reads the document on first access. Callers hold s.mu.
func (s *Store) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	data, err := s.docs.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state document: %w", err)
	}

	// An empty or never-initialized document reads as empty regions
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return fmt.Errorf("decode state document: %w", err)
		}
	}
	s.loaded = true
	return nil
}

func (s *Store) region(name string) map[string]json.RawMessage {
	switch name {
	case RegionDedup:
		return s.doc.Dedup
	case RegionSettings:
		return s.doc.Settings
	}
	return nil
}

func splitKey(key string) (region, name string, err error) {
	region, name, ok := strings.Cut(key, ":")
	if !ok || name == "" {
		return "", "", fmt.Errorf("%w: key %q must be <region>:<name>", ErrUnknownRegion, key)
	}
	if region != RegionDedup && region != RegionSettings {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	return region, name, nil
}
