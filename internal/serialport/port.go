// Package serialport connects to a sensor over a serial line. A background
// reader moves bytes from the device into a bounded buffer so that consumers
// can poll for bytes that have already arrived without ever blocking.
package serialport

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with timeout capabilities.
// This is an optional interface that serial ports may implement.
type TimeoutSerialPorter interface {
	SerialPorter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}

// Opener opens a serial port at path with the given options. The daemon
// uses it so tests can substitute a mock device.
type Opener func(path string, opts PortOptions) (SerialPorter, error)
