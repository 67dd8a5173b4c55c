package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/resilience/retry"
)

const wttrBaseURL = "https://wttr.in"

// Wttr fetches weather from wttr.in's JSON endpoint. It needs no
// credentials, which makes it the natural fallback when the primary
// provider is down or unconfigured.
type Wttr struct {
	baseURL    string
	httpClient *http.Client
}

// NewWttr creates the fallback provider.
func NewWttr() *Wttr {
	return &Wttr{
		baseURL:    wttrBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// NewWttrWithBase overrides the endpoint, for tests.
func NewWttrWithBase(baseURL string) *Wttr {
	p := NewWttr()
	p.baseURL = baseURL
	return p
}

// Name identifies the provider in logs and degradation notes.
func (p *Wttr) Name() string { return "wttr.in" }

// Available always reports true: the service is keyless.
func (p *Wttr) Available() bool { return true }

// wttr.in returns every numeric field as a string.
type wttrResponse struct {
	CurrentCondition []struct {
		TempC        string `json:"temp_C"`
		FeelsLikeC   string `json:"FeelsLikeC"`
		Humidity     string `json:"humidity"`
		WindspeedKPH string `json:"windspeedKmph"`
		WeatherDesc  []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
	Weather []struct {
		MinTempC string `json:"mintempC"`
		MaxTempC string `json:"maxtempC"`
		Hourly   []struct {
			ChanceOfRain string `json:"chanceofrain"`
		} `json:"hourly"`
	} `json:"weather"`
}

// Fetch returns the current report for a city.
func (p *Wttr) Fetch(ctx context.Context, city, _ string) (entity.WeatherReport, error) {
	u := fmt.Sprintf("%s/%s?format=j1", p.baseURL, url.PathEscape(city))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return entity.WeatherReport{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return entity.WeatherReport{}, fmt.Errorf("wttr.in request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entity.WeatherReport{}, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "wttr.in"}
	}

	var payload wttrResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return entity.WeatherReport{}, fmt.Errorf("decode wttr.in response: %w", err)
	}
	if len(payload.CurrentCondition) == 0 {
		return entity.WeatherReport{}, fmt.Errorf("wttr.in response has no current conditions")
	}

	cond := payload.CurrentCondition[0]
	report := entity.WeatherReport{
		City:            city,
		TempC:           parseFloat(cond.TempC),
		FeelsLikeC:      parseFloat(cond.FeelsLikeC),
		HumidityPct:     parseInt(cond.Humidity),
		WindSpeedMS:     parseFloat(cond.WindspeedKPH) / 3.6,
		RainProbability: RainUnknown,
	}
	if len(cond.WeatherDesc) > 0 {
		report.Description = cond.WeatherDesc[0].Value
	}

	if len(payload.Weather) > 0 {
		today := payload.Weather[0]
		report.TempMinC = parseFloat(today.MinTempC)
		report.TempMaxC = parseFloat(today.MaxTempC)
		peak := 0
		for _, h := range today.Hourly {
			if chance := parseInt(h.ChanceOfRain); chance > peak {
				peak = chance
			}
		}
		report.RainProbability = peak
	}

	return report, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
