package healthstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	store, err := NewSQLite(filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestSQLite(t)
	ctx := context.Background()

	if err := store.RequestAuthorization(ctx, SampleGlucose, SampleWeight); err != nil {
		t.Fatalf("RequestAuthorization() error = %v", err)
	}

	base := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	glucose := []GlucoseReading{
		{Timestamp: base, Value: 95, Unit: "mg/dL"},
		{Timestamp: base.Add(15 * time.Minute), Value: 132, Unit: "mg/dL"},
	}
	if err := store.InsertGlucose(ctx, glucose); err != nil {
		t.Fatalf("InsertGlucose() error = %v", err)
	}

	got, err := store.GlucoseReadings(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("GlucoseReadings() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(readings) = %d, want 2", len(got))
	}
	if got[0].Value != 95 || got[1].Value != 132 {
		t.Errorf("readings = %v, want values 95, 132", got)
	}
}

func TestSQLiteInsertDeduplicates(t *testing.T) {
	t.Parallel()

	store := newTestSQLite(t)
	ctx := context.Background()

	if err := store.RequestAuthorization(ctx, SampleGlucose); err != nil {
		t.Fatalf("RequestAuthorization() error = %v", err)
	}

	ts := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	for range 3 {
		if err := store.InsertGlucose(ctx, []GlucoseReading{{Timestamp: ts, Value: 100}}); err != nil {
			t.Fatalf("InsertGlucose() error = %v", err)
		}
	}

	count, err := store.SampleCount(ctx, SampleGlucose)
	if err != nil {
		t.Fatalf("SampleCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("SampleCount() = %d, want 1", count)
	}
}

func TestSQLiteAuthorizationPersists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "health.db")
	ctx := context.Background()

	first, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	if err := first.RequestAuthorization(ctx, SampleGlucose); err != nil {
		t.Fatalf("RequestAuthorization() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer second.Close()

	if !second.Authorized(SampleGlucose) {
		t.Error("Authorized(glucose) = false after reopen, want persisted grant")
	}
}

func TestSQLiteActivityRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestSQLite(t)
	ctx := context.Background()

	if err := store.RequestAuthorization(ctx, SampleSteps, SampleActiveEnergy, SampleExerciseMinutes); err != nil {
		t.Fatalf("RequestAuthorization() error = %v", err)
	}

	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	want := ActivitySummary{Date: day, Steps: 10400, ActiveEnergyKcal: 640.5, ExerciseMinutes: 48}
	if err := store.InsertActivity(ctx, []ActivitySummary{want}); err != nil {
		t.Fatalf("InsertActivity() error = %v", err)
	}

	got, err := store.ActivitySummaries(ctx, day.Add(-time.Hour), day.Add(time.Hour))
	if err != nil {
		t.Fatalf("ActivitySummaries() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(summaries) = %d, want 1", len(got))
	}
	if got[0] != want {
		t.Errorf("summary = %+v, want %+v", got[0], want)
	}

	count, err := store.SampleCount(ctx, SampleActiveEnergy)
	if err != nil {
		t.Fatalf("SampleCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("SampleCount(active_energy) = %d, want 1", count)
	}
}

func TestSQLiteUnauthorizedRead(t *testing.T) {
	t.Parallel()

	store := newTestSQLite(t)
	now := time.Now()

	_, err := store.WeightReadings(context.Background(), now.Add(-time.Hour), now)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("WeightReadings() error = %v, want ErrNotAuthorized", err)
	}
}
