package healthstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory Store for tests and ephemeral runs.
type Memory struct {
	mu         sync.RWMutex
	authorized map[SampleType]bool
	glucose    map[int64]GlucoseReading
	weight     map[int64]WeightReading
	activity   map[int64]ActivitySummary
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		authorized: make(map[SampleType]bool),
		glucose:    make(map[int64]GlucoseReading),
		weight:     make(map[int64]WeightReading),
		activity:   make(map[int64]ActivitySummary),
	}
}

func (m *Memory) Authorized(types ...SampleType) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range types {
		if !m.authorized[t] {
			return false
		}
	}
	return len(types) > 0
}

func (m *Memory) RequestAuthorization(_ context.Context, types ...SampleType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range types {
		if !supportedSampleType(t) {
			return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
		}
		m.authorized[t] = true
	}
	return nil
}

func (m *Memory) GlucoseReadings(_ context.Context, start, end time.Time) ([]GlucoseReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.authorized[SampleGlucose] {
		return nil, ErrNotAuthorized
	}

	var readings []GlucoseReading
	for ts, r := range m.glucose {
		if ts >= start.Unix() && ts < end.Unix() {
			readings = append(readings, r)
		}
	}
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
	return readings, nil
}

func (m *Memory) WeightReadings(_ context.Context, start, end time.Time) ([]WeightReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.authorized[SampleWeight] {
		return nil, ErrNotAuthorized
	}

	var readings []WeightReading
	for ts, r := range m.weight {
		if ts >= start.Unix() && ts < end.Unix() {
			readings = append(readings, r)
		}
	}
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
	return readings, nil
}

func (m *Memory) ActivitySummaries(_ context.Context, start, end time.Time) ([]ActivitySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.activityAuthorized() {
		return nil, ErrNotAuthorized
	}

	var summaries []ActivitySummary
	for date, a := range m.activity {
		if date >= start.Unix() && date < end.Unix() {
			summaries = append(summaries, a)
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date.Before(summaries[j].Date)
	})
	return summaries, nil
}

func (m *Memory) InsertGlucose(_ context.Context, readings []GlucoseReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authorized[SampleGlucose] {
		return ErrNotAuthorized
	}
	for _, r := range readings {
		if r.Unit == "" {
			r.Unit = "mg/dL"
		}
		if _, ok := m.glucose[r.Timestamp.Unix()]; !ok {
			m.glucose[r.Timestamp.Unix()] = r
		}
	}
	return nil
}

func (m *Memory) InsertWeight(_ context.Context, readings []WeightReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authorized[SampleWeight] {
		return ErrNotAuthorized
	}
	for _, r := range readings {
		if _, ok := m.weight[r.Timestamp.Unix()]; !ok {
			m.weight[r.Timestamp.Unix()] = r
		}
	}
	return nil
}

// activityAuthorized reports whether all activity sample types were
// granted. Callers must hold m.mu.
func (m *Memory) activityAuthorized() bool {
	for _, t := range activitySampleTypes {
		if !m.authorized[t] {
			return false
		}
	}
	return true
}

func (m *Memory) InsertActivity(_ context.Context, summaries []ActivitySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.activityAuthorized() {
		return ErrNotAuthorized
	}
	for _, a := range summaries {
		m.activity[a.Date.Unix()] = a
	}
	return nil
}

func (m *Memory) SampleCount(_ context.Context, t SampleType) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch t {
	case SampleGlucose:
		return len(m.glucose), nil
	case SampleWeight:
		return len(m.weight), nil
	case SampleSteps, SampleActiveEnergy, SampleExerciseMinutes:
		return len(m.activity), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
}
