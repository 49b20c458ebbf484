package serialmux

import (
	"fmt"
	"log"
	"time"
)

// ReadingHandler consumes one parsed sample.
type ReadingHandler func(Reading) error

// HandleEvent dispatches one line from the sensor. Sample lines are parsed
// and passed to handle; status lines are logged; empty lines are ignored.
func HandleEvent(payload string, received time.Time, handle ReadingHandler) error {
	switch ClassifyPayload(payload) {
	case EventTypeSample:
		r, err := ParseSampleLine(payload, received)
		if err != nil {
			return err
		}
		if err := handle(r); err != nil {
			return fmt.Errorf("failed to handle sample: %w", err)
		}
	case EventTypeStatus:
		log.Printf("Sensor status: %s", payload)
	}
	return nil
}
