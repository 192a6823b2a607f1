// Package prefs persists small key-value preferences, like the last
// selected date range, as a JSON file under the data directory.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Well-known preference keys.
const (
	KeyRangeStart  = "range_start"
	KeyRangeEnd    = "range_end"
	KeyRangePreset = "range_preset"
	KeyCurrency    = "currency"
)

const fileName = "prefs.json"

type Store struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

// Open loads preferences from dir, creating the directory if needed.
// A missing file starts empty; a corrupt one is an error.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create prefs directory: %w", err)
	}

	s := &Store{
		path:   filepath.Join(dir, fileName),
		values: make(map[string]string),
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs file: %w", err)
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parse prefs file: %w", err)
	}
	return s, nil
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// GetDefault returns the stored value or def when the key is absent.
func (s *Store) GetDefault(key, def string) string {
	if v, ok := s.Get(key); ok {
		return v
	}
	return def
}

func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.save()
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.save()
}

func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// save writes the file atomically via a temp file and rename so a crash
// mid-write never leaves a truncated prefs file. Callers hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write prefs file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace prefs file: %w", err)
	}
	return nil
}
