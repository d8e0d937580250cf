// Package healthstore persists health samples locally and gates access to
// them behind an explicit authorization step, so readers can distinguish
// "no data" from "not allowed to read data".
package healthstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotAuthorized is returned by read and write operations before
	// RequestAuthorization has been granted.
	ErrNotAuthorized = errors.New("healthstore: access not authorized")

	// ErrUnsupportedType is returned for sample types the store does not
	// track.
	ErrUnsupportedType = errors.New("healthstore: unsupported sample type")
)

// Authorizer gates access to stored samples.
type Authorizer interface {
	// Authorized reports whether access to the given types was granted.
	Authorized(types ...SampleType) bool

	// RequestAuthorization asks for access to the given types. It is
	// idempotent; re-requesting granted types succeeds immediately.
	RequestAuthorization(ctx context.Context, types ...SampleType) error
}

// Store reads and writes local health samples.
type Store interface {
	Authorizer

	GlucoseReadings(ctx context.Context, start, end time.Time) ([]GlucoseReading, error)
	WeightReadings(ctx context.Context, start, end time.Time) ([]WeightReading, error)
	ActivitySummaries(ctx context.Context, start, end time.Time) ([]ActivitySummary, error)

	// InsertGlucose records readings, deduplicating on timestamp.
	InsertGlucose(ctx context.Context, readings []GlucoseReading) error
	InsertWeight(ctx context.Context, readings []WeightReading) error
	InsertActivity(ctx context.Context, summaries []ActivitySummary) error

	// SampleCount returns the number of stored samples of a type,
	// ignoring authorization. Diagnostics use it for read-only checks.
	SampleCount(ctx context.Context, t SampleType) (int, error)
}

// activitySampleTypes are the types an ActivitySummary row exposes;
// reading or writing summaries requires all of them.
var activitySampleTypes = []SampleType{SampleSteps, SampleActiveEnergy, SampleExerciseMinutes}

func supportedSampleType(t SampleType) bool {
	switch t {
	case SampleGlucose, SampleWeight, SampleSteps, SampleActiveEnergy, SampleExerciseMinutes:
		return true
	}
	return false
}

// Summarize builds a dashboard snapshot from a window of samples.
func Summarize(glucose []GlucoseReading, weight []WeightReading, activity []ActivitySummary) HealthSummary {
	return HealthSummary{
		GeneratedAt: time.Now().UTC(),
		Glucose:     glucose,
		Weight:      weight,
		Activity:    activity,
		Stats:       ComputeGlucoseStats(glucose),
	}
}
