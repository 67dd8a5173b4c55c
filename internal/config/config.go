// Package config defines the application configuration. The configuration
// is constructed exactly once at process start and passed by reference
// into the run coordinator and every provider's capability predicate; no
// component reads the environment afterwards.
package config

import (
	"fmt"
	"time"

	pkgconfig "briefing-bot/pkg/config"
)

// State backend identifiers for Config.State.Backend.
const (
	StateBackendGist     = "gist"
	StateBackendPostgres = "postgres"
	StateBackendFile     = "file"
)

// Config is the full application configuration. A missing credential is
// represented as an empty string; the owning provider's capability
// predicate turns that into an Unavailable outcome, never a crash.
type Config struct {
	Telegram TelegramConfig
	Weather  WeatherConfig
	News     NewsConfig
	Google   GoogleConfig
	Projects ProjectsConfig
	Rewriter RewriterConfig
	State    StateConfig

	// ProviderTimeout bounds every individual provider network call,
	// independent of retry backoff, so one hung provider cannot stall
	// the whole invocation.
	ProviderTimeout time.Duration

	// Profile carries the user-editable defaults (locations, topics,
	// schedule times) loaded from the optional YAML profile file.
	Profile Profile
}

// TelegramConfig holds the delivery sink credentials.
type TelegramConfig struct {
	Token  string
	ChatID string
}

// Configured reports whether delivery credentials are present.
func (c TelegramConfig) Configured() bool { return c.Token != "" && c.ChatID != "" }

// WeatherConfig holds weather provider credentials.
type WeatherConfig struct {
	OpenWeatherAPIKey string
}

// NewsConfig holds news provider credentials and tuning.
type NewsConfig struct {
	NewsAPIKey string

	// HeadlineURL is the optional HTML page scraped as the last-resort
	// news provider. Empty disables the scraper.
	HeadlineURL string

	// FetchContent enables readability extraction of article bodies
	// before rewriting.
	FetchContent bool

	MaxItems int
}

// GoogleConfig holds Google Calendar credentials. Either the OAuth
// refresh-token triple or the service-account pair may be set; the
// provider prefers the refresh token when both are present.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	ServiceAccountEmail string
	// ServiceAccountKeyPEM is the RSA private key in PEM form, used to
	// sign the OAuth JWT assertion.
	ServiceAccountKeyPEM string

	CalendarID string
}

// HasRefreshToken reports whether the OAuth refresh-token flow is usable.
func (c GoogleConfig) HasRefreshToken() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// HasServiceAccount reports whether the service-account JWT flow is usable.
func (c GoogleConfig) HasServiceAccount() bool {
	return c.ServiceAccountEmail != "" && c.ServiceAccountKeyPEM != ""
}

// Configured reports whether any calendar auth flow is usable.
func (c GoogleConfig) Configured() bool {
	return c.HasRefreshToken() || c.HasServiceAccount()
}

// ProjectsConfig holds the project-notes provider settings.
type ProjectsConfig struct {
	VaultPath string
}

// RewriterConfig holds the optional LLM credentials.
type RewriterConfig struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
}

// StateConfig selects and configures the state document backend.
type StateConfig struct {
	Backend string

	// Gist backend
	GistToken string
	GistID    string

	// Postgres backend
	DatabaseURL string

	// File backend (development and tests)
	FilePath string
}

// Load builds the configuration from the environment and the optional
// profile file named by BRIEFING_PROFILE. It never fails on missing
// credentials; only a malformed profile file is an error.
func Load() (*Config, error) {
	profile, err := LoadProfile(pkgconfig.GetEnvString("BRIEFING_PROFILE", ""))
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			Token:  pkgconfig.GetEnvString("TELEGRAM_TOKEN", ""),
			ChatID: pkgconfig.GetEnvString("TELEGRAM_CHAT_ID", ""),
		},
		Weather: WeatherConfig{
			OpenWeatherAPIKey: pkgconfig.GetEnvString("OPENWEATHER_API_KEY", ""),
		},
		News: NewsConfig{
			NewsAPIKey:   pkgconfig.GetEnvString("NEWS_API_KEY", ""),
			HeadlineURL:  pkgconfig.GetEnvString("NEWS_HEADLINE_URL", ""),
			FetchContent: pkgconfig.GetEnvBool("NEWS_FETCH_CONTENT", false),
			MaxItems:     pkgconfig.GetEnvInt("NEWS_MAX_ITEMS", 5),
		},
		Google: GoogleConfig{
			ClientID:             pkgconfig.GetEnvString("GOOGLE_CLIENT_ID", ""),
			ClientSecret:         pkgconfig.GetEnvString("GOOGLE_CLIENT_SECRET", ""),
			RefreshToken:         pkgconfig.GetEnvString("GOOGLE_REFRESH_TOKEN", ""),
			ServiceAccountEmail:  pkgconfig.GetEnvString("GOOGLE_SA_EMAIL", ""),
			ServiceAccountKeyPEM: pkgconfig.GetEnvString("GOOGLE_SA_PRIVATE_KEY", ""),
			CalendarID:           pkgconfig.GetEnvString("GOOGLE_CALENDAR_ID", "primary"),
		},
		Projects: ProjectsConfig{
			VaultPath: pkgconfig.GetEnvString("OBSIDIAN_VAULT_PATH", ""),
		},
		Rewriter: RewriterConfig{
			AnthropicAPIKey: pkgconfig.GetEnvString("ANTHROPIC_API_KEY", ""),
			OpenAIAPIKey:    pkgconfig.GetEnvString("OPENAI_API_KEY", ""),
		},
		State: StateConfig{
			Backend:     pkgconfig.GetEnvString("STATE_BACKEND", StateBackendGist),
			GistToken:   pkgconfig.GetEnvString("GIST_TOKEN", ""),
			GistID:      pkgconfig.GetEnvString("STATE_GIST_ID", ""),
			DatabaseURL: pkgconfig.GetEnvString("DATABASE_URL", ""),
			FilePath:    pkgconfig.GetEnvString("STATE_FILE_PATH", "briefing_state.json"),
		},
		ProviderTimeout: pkgconfig.GetEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),
		Profile:         profile,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency. Missing credentials are not
// errors (they degrade to Unavailable at fetch time); only values that
// can never work are rejected.
func (c *Config) Validate() error {
	switch c.State.Backend {
	case StateBackendGist, StateBackendPostgres, StateBackendFile:
	default:
		return fmt.Errorf("invalid STATE_BACKEND %q: want gist, postgres, or file", c.State.Backend)
	}

	if err := pkgconfig.ValidatePositiveDuration(c.ProviderTimeout); err != nil {
		return fmt.Errorf("invalid PROVIDER_TIMEOUT: %w", err)
	}

	if c.News.MaxItems < 1 || c.News.MaxItems > 20 {
		return fmt.Errorf("NEWS_MAX_ITEMS must be between 1 and 20, got %d", c.News.MaxItems)
	}

	return nil
}
