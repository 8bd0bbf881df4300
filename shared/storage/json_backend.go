package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio/v2"
)

// processedRecord is one entry of the JSON store.
type processedRecord struct {
	VideoID     string    `json:"video_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

// JSONBackend stores the set as a JSON array in a single file. It reads both
// the record form and a plain array of ID strings; it always writes records.
type JSONBackend struct {
	path string
}

func NewJSONBackend(path string) *JSONBackend {
	return &JSONBackend{path: path}
}

func (b *JSONBackend) Load() (map[string]time.Time, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]time.Time{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]time.Time{}, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrCorruptStore, b.path, err)
	}

	records := make(map[string]time.Time, len(entries))
	for i, entry := range entries {
		trimmed := bytes.TrimSpace(entry)
		if len(trimmed) > 0 && trimmed[0] == '"' {
			var id string
			if err := json.Unmarshal(trimmed, &id); err != nil {
				return nil, fmt.Errorf("%w: failed to decode entry %d of %s: %v", ErrCorruptStore, i, b.path, err)
			}
			if id != "" {
				records[id] = time.Time{}
			}
			continue
		}

		var rec processedRecord
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil, fmt.Errorf("%w: failed to decode entry %d of %s: %v", ErrCorruptStore, i, b.path, err)
		}
		if rec.VideoID != "" {
			records[rec.VideoID] = rec.ProcessedAt
		}
	}
	return records, nil
}

// Save writes the full set to a temporary file and renames it over the old
// one, so readers see either the previous or the new contents.
func (b *JSONBackend) Save(records map[string]time.Time, _ string) error {
	list := make([]processedRecord, 0, len(records))
	for id, at := range records {
		list = append(list, processedRecord{VideoID: id, ProcessedAt: at})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].VideoID < list[j].VideoID })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode processed videos: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(b.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	if err := renameio.WriteFile(b.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", b.path, err)
	}
	return nil
}

func (b *JSONBackend) Close() error { return nil }
