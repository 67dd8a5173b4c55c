package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestExecute_Success(t *testing.T) {
	cb := New(DefaultConfig("test"))

	result, err := cb.Execute(func() (interface{}, error) {
		return "ok", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "ok" {
		t.Errorf("expected ok, got %v", result)
	}
}

func TestExecute_PropagatesError(t *testing.T) {
	cb := New(DefaultConfig("test"))
	testErr := errors.New("boom")

	_, err := cb.Execute(func() (interface{}, error) {
		return nil, testErr
	})

	if !errors.Is(err, testErr) {
		t.Errorf("expected original error, got %v", err)
	}
	if cb.IsOpen() {
		t.Error("single failure must not open the breaker")
	}
}

func TestExecute_TripsAfterThreshold(t *testing.T) {
	cfg := Config{
		Name:             "trip-test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      4,
	}
	cb := New(cfg)

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, errors.New("boom")
		})
	}

	if !cb.IsOpen() {
		t.Errorf("expected breaker open after repeated failures, state %v", cb.State())
	}

	_, err := cb.Execute(func() (interface{}, error) {
		return "should not run", nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestConfigNames(t *testing.T) {
	if got := ProviderConfig("weather-openweather").Name; got != "weather-openweather" {
		t.Errorf("unexpected name %q", got)
	}
	if got := DeliveryConfig().Name; got != "telegram-delivery" {
		t.Errorf("unexpected name %q", got)
	}
}
