package healthstore

import "math"

// ComputeGlucoseStats summarizes readings. An empty slice yields zeroes.
func ComputeGlucoseStats(readings []GlucoseReading) GlucoseStats {
	if len(readings) == 0 {
		return GlucoseStats{}
	}

	stats := GlucoseStats{
		Count: len(readings),
		Min:   readings[0].Value,
		Max:   readings[0].Value,
	}

	var sum float64
	inRange := 0
	for _, r := range readings {
		sum += r.Value
		stats.Min = math.Min(stats.Min, r.Value)
		stats.Max = math.Max(stats.Max, r.Value)
		if r.Range() == RangeInRange {
			inRange++
		}
	}
	stats.Mean = sum / float64(len(readings))
	stats.TimeInRange = float64(inRange) / float64(len(readings))

	var sq float64
	for _, r := range readings {
		d := r.Value - stats.Mean
		sq += d * d
	}
	stats.StdDev = math.Sqrt(sq / float64(len(readings)))

	return stats
}
