package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"briefing-bot/internal/domain/entity"
	"briefing-bot/internal/resilience/retry"
	"briefing-bot/internal/state"
)

// Health builds the readiness report (which providers are configured
// per category, whether the state document is reachable) and delivers
// it through the sink, proving the delivery path end to end.
// It performs no provider network calls. The report is returned even
// when an error is.
func (c *Coordinator) Health(ctx context.Context) (string, error) {
	report, stateErr := c.healthReport(ctx)

	deliveryErr := retry.WithBackoff(ctx, c.deliveryRetry, func() error {
		return c.sink.Send(ctx, entity.Message{Body: report, Provider: "health"})
	})
	if deliveryErr != nil {
		deliveryErr = fmt.Errorf("%w: health report: %v", entity.ErrDeliveryFailed, deliveryErr)
	}

	return report, errors.Join(stateErr, deliveryErr)
}

// healthReport renders the readiness report; the state load is the only
// remote touch.
func (c *Coordinator) healthReport(ctx context.Context) (string, error) {
	var b strings.Builder
	b.WriteString("Briefing bot health:\n")

	stateOK := true
	if _, err := state.LoadCategorySettings(ctx, c.store, entity.CategoryWeather); err != nil {
		stateOK = false
		fmt.Fprintf(&b, "\nstate backend (%s): UNREACHABLE (%v)\n", c.cfg.State.Backend, err)
	} else {
		fmt.Fprintf(&b, "\nstate backend (%s): ok\n", c.cfg.State.Backend)
	}

	writeSources := func(label string, names []string, available []bool) {
		fmt.Fprintf(&b, "%s:", label)
		anyReady := false
		for i, name := range names {
			status := "not configured"
			if available[i] {
				status = "ready"
				anyReady = true
			}
			fmt.Fprintf(&b, "\n  %s: %s", name, status)
		}
		if len(names) == 0 {
			b.WriteString(" none registered")
		} else if !anyReady {
			b.WriteString("\n  (this category will always deliver a placeholder)")
		}
		b.WriteString("\n")
	}

	names, avail := sourceStatus(c.sources.Weather, func(s WeatherSource) (string, bool) { return s.Name(), s.Available() })
	writeSources("weather", names, avail)
	names, avail = sourceStatus(c.sources.News, func(s NewsSource) (string, bool) { return s.Name(), s.Available() })
	writeSources("news", names, avail)
	names, avail = sourceStatus(c.sources.Calendar, func(s CalendarSource) (string, bool) { return s.Name(), s.Available() })
	writeSources("calendar", names, avail)
	names, avail = sourceStatus(c.sources.Projects, func(s ProjectSource) (string, bool) { return s.Name(), s.Available() })
	writeSources("projects", names, avail)

	fmt.Fprintf(&b, "delivery sink: %s\n", c.sink.Name())

	if !stateOK {
		return b.String(), fmt.Errorf("state backend unreachable")
	}
	return b.String(), nil
}

func sourceStatus[T any](sources []T, probe func(T) (string, bool)) ([]string, []bool) {
	names := make([]string, 0, len(sources))
	avail := make([]bool, 0, len(sources))
	for _, s := range sources {
		name, ok := probe(s)
		names = append(names, name)
		avail = append(avail, ok)
	}
	return names, avail
}
