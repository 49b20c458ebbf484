package motion

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Features holds the window statistics the classifier decides on.
type Features struct {
	AccelMean       float64 `json:"accel_mean"`
	AccelStd        float64 `json:"accel_std"`
	AccelMax        float64 `json:"accel_max"`
	GyroMean        float64 `json:"gyro_mean"`
	MeanAccelChange float64 `json:"mean_accel_change"`
	SampleCount     int     `json:"sample_count"`
}

// ExtractFeatures computes window statistics over samples, oldest first.
// The standard deviation is the population (biased) estimate. An empty
// window yields zero Features.
func ExtractFeatures(samples []Sample) Features {
	if len(samples) == 0 {
		return Features{}
	}

	accel := make([]float64, len(samples))
	gyro := make([]float64, len(samples))
	for i, s := range samples {
		accel[i] = s.AccelMagnitude()
		gyro[i] = s.GyroMagnitude()
	}

	mean, std := stat.PopMeanStdDev(accel, nil)
	f := Features{
		AccelMean:   mean,
		AccelStd:    std,
		AccelMax:    floats.Max(accel),
		GyroMean:    stat.Mean(gyro, nil),
		SampleCount: len(samples),
	}

	if len(accel) > 1 {
		changes := make([]float64, len(accel)-1)
		for i := 1; i < len(accel); i++ {
			changes[i-1] = math.Abs(accel[i] - accel[i-1])
		}
		f.MeanAccelChange = stat.Mean(changes, nil)
	}
	return f
}
