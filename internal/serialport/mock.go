package serialport

import (
	"io"
	"sync"
	"time"
)

// MockSerialPort implements SerialPorter for testing and for replaying
// captured sensor traffic in dev mode.
type MockSerialPort struct {
	mu sync.Mutex

	ReadData    []byte
	WrittenData []byte
	ReadError   error
	WriteError  error
	CloseError  error
	Closed      bool

	// ChunkSize limits how many bytes each Read returns. Zero means no limit.
	ChunkSize int
	// ReadDelay is slept before every Read.
	ReadDelay time.Duration
	// Loop restarts ReadData from the beginning once it is exhausted
	// instead of returning io.EOF.
	Loop bool

	ReadCallCount int

	data   []byte
	offset int
}

// NewMockSerialPort creates a port that replays data.
func NewMockSerialPort(data []byte) *MockSerialPort {
	return &MockSerialPort{ReadData: data}
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	if m.ReadDelay > 0 {
		time.Sleep(m.ReadDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Closed {
		return 0, io.EOF
	}
	if m.ReadError != nil {
		return 0, m.ReadError
	}
	m.ReadCallCount++

	if m.data == nil {
		m.data = m.ReadData
	}
	if m.offset >= len(m.data) {
		if !m.Loop || len(m.data) == 0 {
			return 0, io.EOF
		}
		m.offset = 0
	}

	end := len(m.data)
	if m.ChunkSize > 0 && m.offset+m.ChunkSize < end {
		end = m.offset + m.ChunkSize
	}
	n = copy(p, m.data[m.offset:end])
	m.offset += n
	return n, nil
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.WrittenData = append(m.WrittenData, p...)
	return len(p), nil
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseError
}

// Written returns a copy of everything written to the port.
func (m *MockSerialPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.WrittenData))
	copy(out, m.WrittenData)
	return out
}

// NewMockOpener returns an Opener that always hands out port.
func NewMockOpener(port SerialPorter) Opener {
	return func(string, PortOptions) (SerialPorter, error) {
		return port, nil
	}
}
