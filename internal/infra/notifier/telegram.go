package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/resilience/retry"
)

const (
	telegramBaseURL = "https://api.telegram.org"
	telegramTimeout = 15 * time.Second

	// Telegram rejects messages longer than 4096 characters.
	maxMessageLength = 4096
	truncationSuffix = "\n…"
)

// Telegram sends briefings through the Bot API's sendMessage method.
type Telegram struct {
	baseURL     string
	token       string
	chatID      string
	httpClient  *http.Client
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// NewTelegram creates the sink. Telegram allows roughly one message
// per second to a single chat, so the limiter stays just under that.
func NewTelegram(token, chatID string, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{
		baseURL:     telegramBaseURL,
		token:       token,
		chatID:      chatID,
		httpClient:  &http.Client{Timeout: telegramTimeout},
		rateLimiter: NewRateLimiter(0.9, 2),
		logger:      logger,
	}
}

// NewTelegramWithBase overrides the API endpoint, for tests.
func NewTelegramWithBase(token, chatID string, logger *slog.Logger, baseURL string) *Telegram {
	n := NewTelegram(token, chatID, logger)
	n.baseURL = baseURL
	return n
}

// Name identifies the sink in logs and error messages.
func (t *Telegram) Name() string { return "telegram" }

type sendMessageRequest struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	DisableWebPreview   bool   `json:"disable_web_page_preview"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send delivers one message to the configured chat.
func (t *Telegram) Send(ctx context.Context, msg entity.Message) error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("telegram sink not configured: %w", entity.ErrDeliveryFailed)
	}

	if err := t.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("telegram rate limiter: %w", err)
	}

	// Telegram's limit counts characters, and a cut inside a multi-byte
	// rune would make the payload invalid UTF-8, so truncate on runes.
	text := msg.Body
	if runes := []rune(text); len(runes) > maxMessageLength {
		keep := maxMessageLength - len([]rune(truncationSuffix))
		text = string(runes[:keep]) + truncationSuffix
		t.logger.Warn("briefing truncated for telegram",
			slog.String("category", string(msg.Category)),
			slog.Int("original_runes", len(runes)))
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:            t.chatID,
		Text:              text,
		DisableWebPreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage payload: %w", err)
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	var body telegramResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode != http.StatusOK || !body.OK {
		t.logger.Warn("telegram send failed",
			slog.String("category", string(msg.Category)),
			slog.Int("status", resp.StatusCode),
			slog.String("description", body.Description))
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: "telegram sendMessage: " + body.Description}
	}

	t.logger.Info("briefing delivered",
		slog.String("category", string(msg.Category)),
		slog.String("provider", msg.Provider),
		slog.Int("length", len(text)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
