// Package resilience provides reliability and fault tolerance patterns for the application.
// It includes implementations of circuit breakers and retry logic used around every
// outbound network call: provider fetches, LLM rewriting, state document writes,
// and message delivery.
//
// The package supports:
//   - Circuit breakers for external API calls (weather, news, calendar, LLM, Telegram)
//   - Retry logic with exponential backoff and jitter
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.ProviderConfig("weather-openweather"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return callExternalService()
//	})
//
//	retryConfig := retry.ProviderConfig()
//	err := retry.WithBackoff(ctx, retryConfig, func() error {
//	    return performOperation()
//	})
package resilience
