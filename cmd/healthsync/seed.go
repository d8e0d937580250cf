package main

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/viiraa/healthsync/internal/healthstore"
)

// seedCmd injects synthetic readings into the local health store, so
// sync and dashboard flows can be exercised without a real device.
func seedCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Inject synthetic health data (dev only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.health.RequestAuthorization(ctx,
				healthstore.SampleGlucose, healthstore.SampleWeight, healthstore.SampleSteps,
				healthstore.SampleActiveEnergy, healthstore.SampleExerciseMinutes); err != nil {
				return err
			}

			now := time.Now().Truncate(time.Hour)
			var glucose []healthstore.GlucoseReading
			var weight []healthstore.WeightReading
			var activity []healthstore.ActivitySummary

			for d := range days {
				day := now.Add(-time.Duration(d) * 24 * time.Hour)
				for h := range 24 {
					ts := day.Add(-time.Duration(h) * time.Hour)
					// A plausible daily curve around 110 mg/dL.
					value := 110 + 30*math.Sin(float64(h)/24*2*math.Pi) + float64((d*7+h*13)%11) - 5
					glucose = append(glucose, healthstore.GlucoseReading{
						Timestamp: ts,
						Value:     math.Round(value*10) / 10,
						Unit:      "mg/dL",
					})
				}
				weight = append(weight, healthstore.WeightReading{
					Timestamp: day,
					Kilograms: 82.0 - 0.05*float64(days-d),
				})
				activity = append(activity, healthstore.ActivitySummary{
					Date:             day,
					Steps:            6000 + (d*937)%4000,
					ActiveEnergyKcal: 380 + float64((d*53)%220),
					ExerciseMinutes:  20 + (d*11)%35,
				})
			}

			if err := a.health.InsertGlucose(ctx, glucose); err != nil {
				return err
			}
			if err := a.health.InsertWeight(ctx, weight); err != nil {
				return err
			}
			if err := a.health.InsertActivity(ctx, activity); err != nil {
				return err
			}

			fmt.Printf("Seeded %d glucose readings, %d weight readings and %d activity days.\n",
				len(glucose), len(weight), len(activity))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "days of history to generate")
	return cmd
}
