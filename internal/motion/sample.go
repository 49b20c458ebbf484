package motion

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedSample is returned for samples that cannot be classified, such
// as readings containing NaN or infinite values.
var ErrMalformedSample = errors.New("malformed sample")

// Sample is a single 6-axis inertial reading. Accelerations are in m/s² and
// angular rates in the sensor's native unit (rad/s for the MPU6050 sketch).
type Sample struct {
	AccelX float64 `json:"accel_x"`
	AccelY float64 `json:"accel_y"`
	AccelZ float64 `json:"accel_z"`
	GyroX  float64 `json:"gyro_x"`
	GyroY  float64 `json:"gyro_y"`
	GyroZ  float64 `json:"gyro_z"`

	Timestamp time.Time `json:"timestamp"`
}

// Validate checks every axis holds a finite number.
func (s Sample) Validate() error {
	fields := [...]struct {
		name string
		v    float64
	}{
		{"accel_x", s.AccelX},
		{"accel_y", s.AccelY},
		{"accel_z", s.AccelZ},
		{"gyro_x", s.GyroX},
		{"gyro_y", s.GyroY},
		{"gyro_z", s.GyroZ},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrMalformedSample, f.name, f.v)
		}
	}
	return nil
}

// AccelMagnitude returns the Euclidean norm of the acceleration vector.
func (s Sample) AccelMagnitude() float64 {
	return math.Sqrt(s.AccelX*s.AccelX + s.AccelY*s.AccelY + s.AccelZ*s.AccelZ)
}

// GyroMagnitude returns the Euclidean norm of the angular rate vector.
func (s Sample) GyroMagnitude() float64 {
	return math.Sqrt(s.GyroX*s.GyroX + s.GyroY*s.GyroY + s.GyroZ*s.GyroZ)
}
