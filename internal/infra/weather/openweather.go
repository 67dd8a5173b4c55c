// Package weather implements the weather report providers. OpenWeatherMap
// is the primary source; wttr.in serves as the keyless fallback.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/resilience/retry"
)

const (
	openWeatherBaseURL = "https://api.openweathermap.org"
	requestTimeout     = 10 * time.Second
)

// RainUnknown marks a report whose rain probability could not be
// determined. Composers render it as an absent field rather than 0%.
const RainUnknown = -1

// OpenWeather fetches current conditions and the short-range forecast
// from OpenWeatherMap.
type OpenWeather struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenWeather creates the provider. An empty apiKey leaves the
// provider unusable; Available reports that.
func NewOpenWeather(apiKey string) *OpenWeather {
	return &OpenWeather{
		apiKey:     apiKey,
		baseURL:    openWeatherBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// NewOpenWeatherWithBase overrides the API endpoint, for tests.
func NewOpenWeatherWithBase(apiKey, baseURL string) *OpenWeather {
	p := NewOpenWeather(apiKey)
	p.baseURL = baseURL
	return p
}

// Name identifies the provider in logs and degradation notes.
func (p *OpenWeather) Name() string { return "openweathermap" }

// Available reports whether an API key is configured.
func (p *OpenWeather) Available() bool { return p.apiKey != "" }

type owmCurrentResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type owmForecastResponse struct {
	List []struct {
		Pop float64 `json:"pop"`
	} `json:"list"`
}

// Fetch returns the current report for a city. The rain probability
// comes from the forecast endpoint and degrades to unknown when that
// second call fails; current conditions alone are worth delivering.
func (p *OpenWeather) Fetch(ctx context.Context, city, country string) (entity.WeatherReport, error) {
	if !p.Available() {
		return entity.WeatherReport{}, &entity.UnavailableError{Provider: p.Name(), Reason: "no API key configured"}
	}

	query := city
	if country != "" {
		query = city + "," + country
	}

	var current owmCurrentResponse
	if err := p.getJSON(ctx, "/data/2.5/weather", query, &current); err != nil {
		return entity.WeatherReport{}, err
	}

	report := entity.WeatherReport{
		City:            city,
		TempC:           current.Main.Temp,
		FeelsLikeC:      current.Main.FeelsLike,
		TempMinC:        current.Main.TempMin,
		TempMaxC:        current.Main.TempMax,
		HumidityPct:     current.Main.Humidity,
		WindSpeedMS:     current.Wind.Speed,
		RainProbability: RainUnknown,
	}
	if len(current.Weather) > 0 {
		report.Description = current.Weather[0].Description
	}

	var forecast owmForecastResponse
	if err := p.getJSON(ctx, "/data/2.5/forecast", query, &forecast); err == nil && len(forecast.List) > 0 {
		// Peak probability over the next ~24h (8 three-hour slots)
		slots := forecast.List
		if len(slots) > 8 {
			slots = slots[:8]
		}
		peak := 0.0
		for _, slot := range slots {
			if slot.Pop > peak {
				peak = slot.Pop
			}
		}
		report.RainProbability = int(peak * 100)
	}

	return report, nil
}

func (p *OpenWeather) getJSON(ctx context.Context, path, query string, out any) error {
	u := fmt.Sprintf("%s%s?q=%s&appid=%s&units=metric", p.baseURL, path, url.QueryEscape(query), url.QueryEscape(p.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openweathermap request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: "openweathermap " + path}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode openweathermap response: %w", err)
	}
	return nil
}
