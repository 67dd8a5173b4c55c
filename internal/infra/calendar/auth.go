package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"briefing-bot/internal/resilience/retry"
)

const (
	googleTokenURL = "https://oauth2.googleapis.com/token"
	calendarScope  = "https://www.googleapis.com/auth/calendar.readonly"
)

// tokenSource produces a short-lived access token for the Calendar API.
type tokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// cachedToken adds expiry-aware caching around a fetch function so one
// briefing run performs at most one token exchange.
type cachedToken struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	fetch   func(ctx context.Context) (tokenResponse, error)
	now     func() time.Time
}

func (c *cachedToken) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Refresh a minute early to dodge clock skew
	if c.token != "" && c.now().Add(time.Minute).Before(c.expires) {
		return c.token, nil
	}

	resp, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = resp.AccessToken
	c.expires = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	return c.token, nil
}

// refreshTokenSource exchanges a long-lived OAuth refresh token for
// access tokens. This is the flow for a personal calendar.
func refreshTokenSource(clientID, clientSecret, refreshToken, tokenURL string, httpClient *http.Client) tokenSource {
	return &cachedToken{
		now: time.Now,
		fetch: func(ctx context.Context) (tokenResponse, error) {
			form := url.Values{}
			form.Set("grant_type", "refresh_token")
			form.Set("client_id", clientID)
			form.Set("client_secret", clientSecret)
			form.Set("refresh_token", refreshToken)
			return exchangeToken(ctx, httpClient, tokenURL, form)
		},
	}
}

// serviceAccountSource signs a JWT assertion with the service account's
// RSA key and exchanges it for an access token. This is the flow for a
// calendar shared with a service account.
func serviceAccountSource(email, privateKeyPEM, tokenURL string, httpClient *http.Client) tokenSource {
	return &cachedToken{
		now: time.Now,
		fetch: func(ctx context.Context) (tokenResponse, error) {
			key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
			if err != nil {
				return tokenResponse{}, fmt.Errorf("parse service account key: %w", err)
			}

			now := time.Now()
			claims := jwt.MapClaims{
				"iss":   email,
				"scope": calendarScope,
				"aud":   tokenURL,
				"iat":   now.Unix(),
				"exp":   now.Add(time.Hour).Unix(),
			}
			assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
			if err != nil {
				return tokenResponse{}, fmt.Errorf("sign service account assertion: %w", err)
			}

			form := url.Values{}
			form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
			form.Set("assertion", assertion)
			return exchangeToken(ctx, httpClient, tokenURL, form)
		},
	}
}

func exchangeToken(ctx context.Context, httpClient *http.Client, tokenURL string, form url.Values) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tokenResponse{}, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "google token exchange"}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return tokenResponse{}, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return tokenResponse{}, fmt.Errorf("token response missing access_token")
	}
	return token, nil
}
