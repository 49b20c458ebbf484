package serialmux

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/motion.report/internal/motion"
)

const (
	EventTypeSample = "sample"
	EventTypeStatus = "status"
	EventTypeEmpty  = "empty"
)

// SampleFieldCount is the number of comma separated fields in a sample line:
// device millis, three accel axes, three gyro axes and temperature.
const SampleFieldCount = 8

// ErrMalformedLine is returned for sample lines that do not parse.
var ErrMalformedLine = errors.New("malformed sample line")

// Reading is one parsed sample line.
type Reading struct {
	DeviceMillis int64         `json:"device_millis"`
	Sample       motion.Sample `json:"sample"`
	TemperatureC float64       `json:"temperature_c"`
}

// ClassifyPayload returns a coarse line type. Any line containing a comma is
// treated as a sample so that truncated lines surface as ErrMalformedLine;
// other text (boot banners, sensor found messages) is status.
func ClassifyPayload(payload string) string {
	p := strings.TrimSpace(payload)
	switch {
	case p == "":
		return EventTypeEmpty
	case strings.Contains(p, ","):
		return EventTypeSample
	default:
		return EventTypeStatus
	}
}

var axisNames = [6]string{"accel_x", "accel_y", "accel_z", "gyro_x", "gyro_y", "gyro_z"}

// ParseSampleLine parses "millis,ax,ay,az,gx,gy,gz,temp". The sample is
// stamped with received, since the device only knows its uptime.
func ParseSampleLine(line string, received time.Time) (Reading, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != SampleFieldCount {
		return Reading{}, fmt.Errorf("%w: got %d fields, want %d", ErrMalformedLine, len(parts), SampleFieldCount)
	}

	millis, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: device millis %q", ErrMalformedLine, parts[0])
	}

	var axes [6]float64
	for i := range axes {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			return Reading{}, fmt.Errorf("%w: %s %q", ErrMalformedLine, axisNames[i], parts[i+1])
		}
		axes[i] = v
	}

	temp, err := strconv.ParseFloat(strings.TrimSpace(parts[7]), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: temperature %q", ErrMalformedLine, parts[7])
	}

	return Reading{
		DeviceMillis: millis,
		Sample: motion.Sample{
			AccelX:    axes[0],
			AccelY:    axes[1],
			AccelZ:    axes[2],
			GyroX:     axes[3],
			GyroY:     axes[4],
			GyroZ:     axes[5],
			Timestamp: received,
		},
		TemperatureC: temp,
	}, nil
}

// FormatSampleLine renders a reading in the sensor's line format.
func FormatSampleLine(r Reading) string {
	s := r.Sample
	return fmt.Sprintf("%d,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f,%.2f",
		r.DeviceMillis, s.AccelX, s.AccelY, s.AccelZ, s.GyroX, s.GyroY, s.GyroZ, r.TemperatureC)
}
