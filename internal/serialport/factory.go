package serialport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// readTimeout bounds each blocking read on a real port so the background
// reader notices cancellation even on a silent line.
const readTimeout = 500 * time.Millisecond

// OpenReal opens the serial device at path using go.bug.st/serial.
func OpenReal(path string, opts PortOptions) (SerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}

	return port, nil
}

// ListPorts returns the names of the serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

var _ Opener = OpenReal
