package healthstore

import (
	"time"

	go_json "github.com/goccy/go-json"
)

// SampleType identifies a class of locally stored health samples.
type SampleType string

const (
	SampleGlucose         SampleType = "glucose"
	SampleWeight          SampleType = "weight"
	SampleSteps           SampleType = "steps"
	SampleActiveEnergy    SampleType = "active_energy"
	SampleExerciseMinutes SampleType = "exercise_minutes"
)

// GlucoseRange buckets a reading relative to the standard clinical bands.
type GlucoseRange string

const (
	RangeLow      GlucoseRange = "low"
	RangeInRange  GlucoseRange = "in_range"
	RangeHigh     GlucoseRange = "high"
	RangeVeryHigh GlucoseRange = "very_high"
)

// GlucoseReading is a single glucose sample in mg/dL.
type GlucoseReading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
}

// Range classifies the reading. Bands follow the consensus CGM targets:
// below 70 is low, 70-180 in range, 180-250 high, above 250 very high.
func (r GlucoseReading) Range() GlucoseRange {
	switch {
	case r.Value < 70:
		return RangeLow
	case r.Value <= 180:
		return RangeInRange
	case r.Value <= 250:
		return RangeHigh
	default:
		return RangeVeryHigh
	}
}

// WeightReading is a single body-weight sample in kilograms.
type WeightReading struct {
	Timestamp time.Time `json:"timestamp"`
	Kilograms float64   `json:"kilograms"`
}

// ActivitySummary is a per-day rollup of steps, active energy burned
// and exercise minutes.
type ActivitySummary struct {
	Date             time.Time `json:"date"`
	Steps            int       `json:"steps"`
	ActiveEnergyKcal float64   `json:"active_energy_kcal"`
	ExerciseMinutes  int       `json:"exercise_minutes"`
}

// HealthSummary is the snapshot pushed to the dashboard surface.
type HealthSummary struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Glucose     []GlucoseReading  `json:"glucose"`
	Weight      []WeightReading   `json:"weight"`
	Activity    []ActivitySummary `json:"activity"`
	Stats       GlucoseStats      `json:"stats"`
}

func (s HealthSummary) ToJSON() ([]byte, error) {
	return go_json.Marshal(s)
}

// GlucoseStats summarizes a window of glucose readings.
type GlucoseStats struct {
	Count       int     `json:"count"`
	Mean        float64 `json:"mean"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	StdDev      float64 `json:"std_dev"`
	TimeInRange float64 `json:"time_in_range"`
}
