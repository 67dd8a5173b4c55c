package entity

// WeatherReport represents normalized current-conditions data for one city.
// Providers map their own response shapes onto this struct so the composer
// never sees provider-specific fields.
type WeatherReport struct {
	City            string
	Description     string
	TempC           float64
	FeelsLikeC      float64
	TempMinC        float64
	TempMaxC        float64
	HumidityPct     int
	WindSpeedMS     float64
	RainProbability int // 0-100, estimated on keyless fallback providers
}
