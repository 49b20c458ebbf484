package serialmux

import (
	"io"

	"go.bug.st/serial"
)

// SerialPorter is the part of a serial port SerialMux uses. Tests satisfy
// it with TestableSerialPort; go.bug.st/serial ports satisfy it directly.
type SerialPorter interface {
	io.ReadWriteCloser
}

var _ SerialPorter = serial.Port(nil)
