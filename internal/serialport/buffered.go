package serialport

import (
	"context"
	"errors"
	"io"
	"sync"
)

// DefaultBufferLimit holds several seconds of PMS traffic at 9600 baud.
const DefaultBufferLimit = 1024

var (
	// ErrNoData is returned by ReadByte when nothing is buffered.
	ErrNoData = errors.New("no data available")
	// ErrWriteFailed is returned when the port accepts fewer bytes than sent.
	ErrWriteFailed = errors.New("failed to write to serial port")
)

// BufferedPort wraps a SerialPorter with a bounded receive buffer filled by
// Monitor. Available and ReadByte only look at that buffer, so they never
// block on the device. When the buffer is full the oldest bytes are dropped.
type BufferedPort[T SerialPorter] struct {
	port  T
	limit int

	mu      sync.Mutex
	buf     []byte
	dropped int
	total   int

	writeMu sync.Mutex
}

// NewBufferedPort creates a BufferedPort around port. A limit of zero or less
// selects DefaultBufferLimit.
func NewBufferedPort[T SerialPorter](port T, limit int) *BufferedPort[T] {
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	return &BufferedPort[T]{
		port:  port,
		limit: limit,
		buf:   make([]byte, 0, limit),
	}
}

// Port returns the wrapped port.
func (p *BufferedPort[T]) Port() T { return p.port }

// Available returns the number of buffered bytes.
func (p *BufferedPort[T]) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// ReadByte pops the oldest buffered byte, or returns ErrNoData.
func (p *BufferedPort[T]) ReadByte() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) == 0 {
		return 0, ErrNoData
	}
	b := p.buf[0]
	p.buf = p.buf[1:]
	return b, nil
}

// Write sends data to the device.
func (p *BufferedPort[T]) Write(data []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	n, err := p.port.Write(data)
	if err != nil {
		return n, err
	}
	if n != len(data) {
		return n, ErrWriteFailed
	}
	return n, nil
}

// Dropped returns how many bytes were discarded because the buffer was full.
func (p *BufferedPort[T]) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Received returns the total number of bytes read from the device.
func (p *BufferedPort[T]) Received() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// push appends data, discarding the oldest bytes beyond the limit.
func (p *BufferedPort[T]) push(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total += len(data)
	if len(data) >= p.limit {
		p.dropped += len(p.buf) + len(data) - p.limit
		p.buf = append(p.buf[:0], data[len(data)-p.limit:]...)
		return
	}
	if over := len(p.buf) + len(data) - p.limit; over > 0 {
		p.dropped += over
		p.buf = append(p.buf[:0], p.buf[over:]...)
	}
	p.buf = append(p.buf, data...)
}

// Monitor reads from the device until ctx is cancelled or the device
// reports an error. io.EOF ends monitoring without an error.
func (p *BufferedPort[T]) Monitor(ctx context.Context) error {
	chunks := make(chan []byte)
	readErrChan := make(chan error, 1)

	// the blocking Read runs in its own goroutine so the loop below can
	// still observe context cancellation.
	go func() {
		defer close(chunks)
		scratch := make([]byte, 256)
		for ctx.Err() == nil {
			n, err := p.port.Read(scratch)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, scratch[:n])
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErrChan <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case chunk, ok := <-chunks:
			if !ok {
				select {
				case err := <-readErrChan:
					if errors.Is(err, io.EOF) {
						return nil
					}
					return err
				default:
					return ctx.Err()
				}
			}
			p.push(chunk)
		}
	}
}

// Flush discards all buffered bytes and returns how many were dropped.
func (p *BufferedPort[T]) Flush() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.buf)
	p.buf = p.buf[:0]
	return n
}

// Close closes the underlying port, which also ends Monitor's reader.
func (p *BufferedPort[T]) Close() error {
	return p.port.Close()
}
