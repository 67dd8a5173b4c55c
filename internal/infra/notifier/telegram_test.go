package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/resilience/retry"
)

func TestTelegram_SendPostsMessage(t *testing.T) {
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottok-123/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	sink := NewTelegramWithBase("tok-123", "987", nil, server.URL)
	msg := entity.Message{Category: entity.CategoryWeather, Body: "Sunny, 21°C", Provider: "openweathermap"}

	require.NoError(t, sink.Send(context.Background(), msg))
	assert.Equal(t, "987", got.ChatID)
	assert.Equal(t, "Sunny, 21°C", got.Text)
	assert.True(t, got.DisableWebPreview)
}

func TestTelegram_TruncatesLongMessages(t *testing.T) {
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	sink := NewTelegramWithBase("tok", "1", nil, server.URL)
	msg := entity.Message{Category: entity.CategoryNews, Body: strings.Repeat("x", 5000)}

	require.NoError(t, sink.Send(context.Background(), msg))
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Text), maxMessageLength)
	assert.True(t, strings.HasSuffix(got.Text, truncationSuffix))
}

func TestTelegram_TruncatesOnRuneBoundary(t *testing.T) {
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	sink := NewTelegramWithBase("tok", "1", nil, server.URL)
	msg := entity.Message{Category: entity.CategoryNews, Body: strings.Repeat("가", 5000)}

	require.NoError(t, sink.Send(context.Background(), msg))
	assert.True(t, utf8.ValidString(got.Text), "truncation must never split a rune")
	assert.Equal(t, maxMessageLength, utf8.RuneCountInString(got.Text))
	assert.True(t, strings.HasSuffix(got.Text, truncationSuffix))
}

func TestTelegram_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Gateway"}`))
	}))
	defer server.Close()

	sink := NewTelegramWithBase("tok", "1", nil, server.URL)
	err := sink.Send(context.Background(), entity.Message{Category: entity.CategoryNews, Body: "x"})
	require.Error(t, err)

	var httpErr *retry.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.True(t, retry.IsRetryable(err))
}

func TestTelegram_BadChatIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	sink := NewTelegramWithBase("tok", "wrong", nil, server.URL)
	err := sink.Send(context.Background(), entity.Message{Category: entity.CategoryNews, Body: "x"})
	require.Error(t, err)
	assert.False(t, retry.IsRetryable(err))
}

func TestTelegram_UnconfiguredFailsDelivery(t *testing.T) {
	sink := NewTelegram("", "", nil)
	err := sink.Send(context.Background(), entity.Message{Category: entity.CategoryNews, Body: "x"})
	assert.ErrorIs(t, err, entity.ErrDeliveryFailed)
}

func TestNoop_AlwaysSucceeds(t *testing.T) {
	sink := NewNoop(nil)
	assert.NoError(t, sink.Send(context.Background(), entity.Message{Category: entity.CategoryNight, Body: "good night"}))
}
