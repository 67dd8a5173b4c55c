// Package gist persists the state document in a private GitHub Gist.
// A Gist survives redeploys of a stateless bot host and is editable by
// hand when an operator needs to reset deduplication or settings.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"briefing-bot/internal/resilience/retry"
)

const (
	defaultAPIBase  = "https://api.github.com"
	defaultFilename = "briefing_state.json"
	requestTimeout  = 10 * time.Second
)

// Store reads and writes a single Gist file holding the JSON state
// document. It implements the document store port consumed by the
// state layer.
type Store struct {
	apiBase    string
	token      string
	gistID     string
	filename   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.httpClient = c }
}

// WithAPIBase overrides the GitHub API base URL.
func WithAPIBase(base string) Option {
	return func(s *Store) { s.apiBase = base }
}

// WithFilename overrides the file name inside the Gist.
func WithFilename(name string) Option {
	return func(s *Store) { s.filename = name }
}

// New creates a Gist-backed document store. gistID may be empty: the
// first Save then creates a new private Gist and logs its ID so the
// operator can pin it in the environment.
func New(token, gistID string, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		apiBase:    defaultAPIBase,
		token:      token,
		gistID:     gistID,
		filename:   defaultFilename,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

type gistPayload struct {
	Description string              `json:"description,omitempty"`
	Public      *bool               `json:"public,omitempty"`
	Files       map[string]gistFile `json:"files"`
}

// Load fetches the state document. A missing Gist or missing file reads
// as an empty document, so a brand-new deployment starts clean.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	if s.gistID == "" {
		return []byte("{}"), nil
	}

	req, err := s.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/gists/%s", s.apiBase, s.gistID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		s.logger.Warn("state gist not found, starting with empty document",
			slog.String("gist_id", s.gistID))
		return []byte("{}"), nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "gist fetch failed"}
	}

	var payload gistPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode gist response: %w", err)
	}

	file, ok := payload.Files[s.filename]
	if !ok {
		return []byte("{}"), nil
	}
	if file.Truncated {
		return s.fetchRaw(ctx, file.RawURL)
	}
	return []byte(file.Content), nil
}

// Save writes the document back. When no Gist ID is configured it
// creates a new private Gist and remembers its ID for the rest of the
// process lifetime.
func (s *Store) Save(ctx context.Context, data []byte) error {
	body, err := json.Marshal(gistPayload{
		Files: map[string]gistFile{s.filename: {Content: string(data)}},
	})
	if err != nil {
		return fmt.Errorf("marshal gist payload: %w", err)
	}

	if s.gistID == "" {
		return s.create(ctx, data)
	}

	req, err := s.newRequest(ctx, http.MethodPatch, fmt.Sprintf("%s/gists/%s", s.apiBase, s.gistID), bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: "gist update failed"}
	}
	return nil
}

func (s *Store) create(ctx context.Context, data []byte) error {
	private := false
	body, err := json.Marshal(gistPayload{
		Description: "briefing bot state",
		Public:      &private,
		Files:       map[string]gistFile{s.filename: {Content: string(data)}},
	})
	if err != nil {
		return fmt.Errorf("marshal gist payload: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.apiBase+"/gists", bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: "gist create failed"}
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("decode gist create response: %w", err)
	}

	s.gistID = created.ID
	s.logger.Warn("created new state gist, set STATE_GIST_ID to persist it across restarts",
		slog.String("gist_id", created.ID))
	return nil
}

func (s *Store) fetchRaw(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := s.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch raw gist content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "raw gist fetch failed"}
	}
	return io.ReadAll(resp.Body)
}

func (s *Store) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
