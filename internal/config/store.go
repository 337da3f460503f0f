package config

import (
	"sync"
	"time"
)

// Store persists sync state through the config file: the last-sync
// watermark, alert silences, and free-form key/value pairs. Writes go
// straight to disk so a crash never loses a recorded watermark.
type Store struct {
	mu   sync.Mutex
	cfg  *Config
	path string
}

// NewStore wraps a loaded configuration backed by the file at path.
func NewStore(cfg *Config, path string) *Store {
	return &Store{cfg: cfg, path: path}
}

// Config returns the wrapped configuration.
func (s *Store) Config() *Config {
	return s.cfg
}

// LastSyncAt returns the persisted watermark, empty when no sync has
// succeeded yet.
func (s *Store) LastSyncAt() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.State.LastSyncAt, nil
}

// SetLastSyncAt records the watermark and writes the config file.
func (s *Store) SetLastSyncAt(ts string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.State.LastSyncAt = ts
	return s.cfg.SaveToPath(s.path)
}

// Get returns a free-form state value, empty when unset.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.State.Values[key], nil
}

// Set records a free-form state value and writes the config file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.State.Values == nil {
		s.cfg.State.Values = make(map[string]string)
	}
	s.cfg.State.Values[key] = value
	return s.cfg.SaveToPath(s.path)
}

// Silenced returns a copy of the alert snooze map.
func (s *Store) Silenced() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.cfg.Alerts.Silenced))
	for k, v := range s.cfg.Alerts.Silenced {
		out[k] = v
	}
	return out
}

// Silence snoozes an alert key until the given instant and writes the
// config file.
func (s *Store) Silence(key string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Alerts.Silenced == nil {
		s.cfg.Alerts.Silenced = make(map[string]time.Time)
	}
	s.cfg.Alerts.Silenced[key] = until
	return s.cfg.SaveToPath(s.path)
}
