/*
File: metrics.go
Version: 1.1.0
Description: Prediction counters persisted to a JSON file.
             The classifier never reads these; the API only loads, bumps and saves them.
             Concurrent reads of the file are coalesced with singleflight.
             UPDATED: Record is the only write path.
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Metrics is the persisted counter set.
type Metrics struct {
	Total       int     `json:"total"`
	Phishing    int     `json:"phishing"`
	Legit       int     `json:"legit"`
	LastUpdated *string `json:"last_updated"`
}

// MetricsStore serialises updates to the metrics file.
type MetricsStore struct {
	path   string
	mu     sync.Mutex
	flight singleflight.Group
}

func NewMetricsStore(path string) *MetricsStore {
	return &MetricsStore{path: path}
}

// Load returns the stored counters, or zeros when nothing has been saved yet.
func (s *MetricsStore) Load() (Metrics, error) {
	v, err, _ := s.flight.Do("load", func() (interface{}, error) {
		return s.read()
	})
	if err != nil {
		return Metrics{}, err
	}
	return v.(Metrics), nil
}

// Record adds one count per label and persists the result.
func (s *MetricsStore) Record(labels ...string) (Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		LogWarn("[METRICS] Resetting unreadable metrics file %s: %v", s.path, err)
		m = Metrics{}
	}

	for _, label := range labels {
		m.Total++
		if label == PredPhishing {
			m.Phishing++
		} else {
			m.Legit++
		}
	}

	return s.write(m)
}

func (s *MetricsStore) read() (Metrics, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Metrics{}, nil
	}
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to read metrics: %w", err)
	}

	var m Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return Metrics{}, fmt.Errorf("failed to parse metrics %s: %w", s.path, err)
	}
	return m, nil
}

func (s *MetricsStore) write(m Metrics) (Metrics, error) {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	m.LastUpdated = &ts

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0644); err != nil {
		return Metrics{}, err
	}

	LogDebug("[METRICS] Saved to %s (total=%d phishing=%d legit=%d)", s.path, m.Total, m.Phishing, m.Legit)
	return m, nil
}
