package api

import (
	"sync"

	"github.com/banshee-data/airquality.report/internal/pms"
)

// ReadingSource supplies the latest sensor snapshot to the handlers.
type ReadingSource interface {
	Reading() pms.Reading
}

// ReadingStore holds the most recent Reading published by the acquisition
// loop. The loop owns the sensor; HTTP handlers only ever see copies.
type ReadingStore struct {
	mu sync.RWMutex
	r  pms.Reading
}

// NewReadingStore returns a store holding initial.
func NewReadingStore(initial pms.Reading) *ReadingStore {
	return &ReadingStore{r: initial}
}

// Set publishes r.
func (s *ReadingStore) Set(r pms.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r = r
}

// Reading returns the last published Reading.
func (s *ReadingStore) Reading() pms.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r
}
