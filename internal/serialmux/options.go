package serialmux

import (
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaudRate matches Serial.begin in the MPU6050 sketch.
const DefaultBaudRate = 115200

// DefaultFraming is the Arduino default: 8 data bits, no parity, 1 stop bit.
const DefaultFraming = "8N1"

// PortOptions are the line settings used to open the sensor's port.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// ParsePortOptions builds options from a baud rate and a framing string
// such as "8N1" or "7E2". An empty framing means DefaultFraming.
func ParsePortOptions(baud int, framing string) (PortOptions, error) {
	framing = strings.ToUpper(strings.TrimSpace(framing))
	if framing == "" {
		framing = DefaultFraming
	}
	if len(framing) != 3 {
		return PortOptions{}, fmt.Errorf("invalid framing %q: want <data bits><parity><stop bits>, e.g. 8N1", framing)
	}
	dataBits, err := strconv.Atoi(framing[:1])
	if err != nil {
		return PortOptions{}, fmt.Errorf("invalid framing %q: data bits must be a digit", framing)
	}
	stopBits, err := strconv.Atoi(framing[2:])
	if err != nil {
		return PortOptions{}, fmt.Errorf("invalid framing %q: stop bits must be a digit", framing)
	}
	return PortOptions{
		BaudRate: baud,
		DataBits: dataBits,
		StopBits: stopBits,
		Parity:   framing[1:2],
	}.Normalize()
}

// Normalize fills in defaults and rejects settings go.bug.st/serial cannot
// open. Parity is reduced to N, E or O.
func (o PortOptions) Normalize() (PortOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = DefaultBaudRate
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("invalid data bits %d: must be between 5 and 8", o.DataBits)
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	if o.StopBits != 1 && o.StopBits != 2 {
		return o, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}

	switch strings.ToUpper(strings.TrimSpace(o.Parity)) {
	case "", "N", "NONE":
		o.Parity = "N"
	case "E", "EVEN":
		o.Parity = "E"
	case "O", "ODD":
		o.Parity = "O"
	default:
		return o, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	return o, nil
}

// String renders the options as "115200 8N1".
func (o PortOptions) String() string {
	return fmt.Sprintf("%d %d%s%d", o.BaudRate, o.DataBits, o.Parity, o.StopBits)
}

// SerialMode converts the options into the go.bug.st/serial mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode, nil
}
