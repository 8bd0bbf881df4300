package storage

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Backend persists the processed-video records.
type Backend interface {
	// Load returns every stored record. A missing store is not an error.
	Load() (map[string]time.Time, error)
	// Save persists records after latest was added. File backends rewrite the
	// whole set atomically; the SQLite backend inserts only latest.
	Save(records map[string]time.Time, latest string) error
	Close() error
}

// ErrCorruptStore marks a store whose contents cannot be decoded. Such a store
// is replaced by an empty set; any other load failure is returned to the caller.
var ErrCorruptStore = errors.New("processed store is corrupt")

// ProcessedSet is the durable set of video IDs whose pipeline has completed.
// It is owned by a single run and needs no locking.
type ProcessedSet struct {
	backend Backend
	records map[string]time.Time
	now     func() time.Time
}

// OpenProcessedSet picks a backend from the path extension (.db, .sqlite and
// .sqlite3 use SQLite, anything else JSON) and loads it. A missing store is
// empty. A corrupt store is logged and treated as empty; a corrupt SQLite file
// is first renamed aside so a fresh database can be created. Any other failure,
// such as a permission error, is returned.
func OpenProcessedSet(path string, logger zerolog.Logger) (*ProcessedSet, error) {
	var backend Backend
	if IsSQLitePath(path) {
		b, err := NewSQLiteBackend(path)
		if errors.Is(err, ErrCorruptStore) {
			aside := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405Z"))
			if renameErr := os.Rename(path, aside); renameErr != nil {
				return nil, fmt.Errorf("failed to move corrupt store %s aside: %w", path, renameErr)
			}
			logger.Warn().Err(err).Str("moved_to", aside).Msg("Processed store is corrupt; starting with an empty set")
			b, err = NewSQLiteBackend(path)
		}
		if err != nil {
			return nil, err
		}
		backend = b
	} else {
		backend = NewJSONBackend(path)
	}

	set, err := NewProcessedSet(backend, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return set, nil
}

func NewProcessedSet(backend Backend, logger zerolog.Logger) (*ProcessedSet, error) {
	records, err := backend.Load()
	if err != nil {
		if !errors.Is(err, ErrCorruptStore) {
			return nil, fmt.Errorf("failed to load processed videos: %w", err)
		}
		logger.Warn().Err(err).Msg("Could not decode processed videos; starting with an empty set")
		records = nil
	}
	if records == nil {
		records = make(map[string]time.Time)
	}
	return &ProcessedSet{backend: backend, records: records, now: time.Now}, nil
}

func (p *ProcessedSet) Contains(videoID string) bool {
	_, ok := p.records[videoID]
	return ok
}

// Mark records videoID as processed and persists the set before returning.
// On a persistence failure the in-memory set is left unchanged.
func (p *ProcessedSet) Mark(videoID string) error {
	if p.Contains(videoID) {
		return nil
	}
	p.records[videoID] = p.now().UTC()
	if err := p.backend.Save(p.records, videoID); err != nil {
		delete(p.records, videoID)
		return fmt.Errorf("failed to persist processed video %s: %w", videoID, err)
	}
	return nil
}

func (p *ProcessedSet) Len() int {
	return len(p.records)
}

// IDs returns the stored video IDs in sorted order.
func (p *ProcessedSet) IDs() []string {
	ids := make([]string, 0, len(p.records))
	for id := range p.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *ProcessedSet) Close() error {
	return p.backend.Close()
}

func IsSQLitePath(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range []string{".db", ".sqlite", ".sqlite3"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
