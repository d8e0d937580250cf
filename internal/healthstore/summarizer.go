package healthstore

import (
	"context"
	"errors"
	"time"
)

// Summarizer assembles dashboard snapshots from a store over a fixed
// trailing window.
type Summarizer struct {
	store  Store
	window time.Duration
}

func NewSummarizer(store Store, window time.Duration) *Summarizer {
	if window <= 0 {
		window = 14 * 24 * time.Hour
	}
	return &Summarizer{store: store, window: window}
}

// Summary reads the trailing window of samples and rolls them up.
// Series whose authorization is missing are left empty rather than
// failing the whole snapshot.
func (s *Summarizer) Summary(ctx context.Context) (HealthSummary, error) {
	end := time.Now()
	start := end.Add(-s.window)

	glucose, err := s.store.GlucoseReadings(ctx, start, end)
	if err != nil && !errors.Is(err, ErrNotAuthorized) {
		return HealthSummary{}, err
	}
	weight, err := s.store.WeightReadings(ctx, start, end)
	if err != nil && !errors.Is(err, ErrNotAuthorized) {
		return HealthSummary{}, err
	}
	activity, err := s.store.ActivitySummaries(ctx, start, end)
	if err != nil && !errors.Is(err, ErrNotAuthorized) {
		return HealthSummary{}, err
	}

	return Summarize(glucose, weight, activity), nil
}
