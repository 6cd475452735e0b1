// Package state provides JSON-based persistence for incremental scraping.
//
// Each scraper keeps a small state file in the data directory recording
// what it has already processed: tournament IDs for the City League and
// labs scrapers, page numbers for the card list scraper. On later runs
// those items are skipped, which is what makes the scheduled scrapes cheap.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SeenSet is a persisted set of string IDs.
type SeenSet struct {
	path string
	ids  map[string]bool
}

type seenFile struct {
	IDs       []string `json:"ids"`
	UpdatedAt string   `json:"updated_at"`
}

// Dir resolves and creates the data directory, expanding a leading ~/.
func Dir(dataDir string) (string, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return dataDir, nil
}

// LoadSeen loads a seen-ID set from path. A missing file yields an empty
// set, the first-run case.
func LoadSeen(path string) (*SeenSet, error) {
	s := &SeenSet{path: path, ids: make(map[string]bool)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var f seenFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	for _, id := range f.IDs {
		s.ids[id] = true
	}
	return s, nil
}

// Has reports whether id has already been processed.
func (s *SeenSet) Has(id string) bool {
	return s.ids[id]
}

// Add marks id as processed. The change is in memory until Save.
func (s *SeenSet) Add(id string) {
	s.ids[id] = true
}

// Len reports the number of tracked IDs.
func (s *SeenSet) Len() int {
	return len(s.ids)
}

// Save writes the set back to its file. The write goes through a temp file
// and rename so a crash mid-run never truncates existing state.
func (s *SeenSet) Save() error {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.MarshalIndent(seenFile{
		IDs:       ids,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
