package transfer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultStoreFileName is where transfer records live when no explicit
	// path is configured.
	DefaultStoreFileName = ".hemdealer-transfers.json"
)

// Store persists transfer records across process restarts so in-flight
// settlements can be timed out and cancelled after a crash. Active records
// are keyed by car ID; terminal records move to the archive.
type Store struct {
	filePath string
	mu       sync.Mutex
	active   map[uint64]*Record
	archive  []*Record
}

type storeFile struct {
	Active  map[uint64]*Record `json:"active"`
	Archive []*Record          `json:"archive"`
}

// NewStore opens (or creates) a record store at filePath. An empty path
// defaults to the home directory.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStoreFileName)
	}

	s := &Store{
		filePath: filePath,
		active:   make(map[uint64]*Record),
	}

	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load transfer records: %w", err)
		}
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal transfer records: %w", err)
	}

	s.active = file.Active
	if s.active == nil {
		s.active = make(map[uint64]*Record)
	}
	s.archive = file.Archive
	return nil
}

// saveLocked writes the store atomically via tmp+rename. Callers hold s.mu.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(storeFile{Active: s.active, Archive: s.archive}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transfer records: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write transfer records: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Put registers a new active record for its car.
func (s *Store) Put(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.active[rec.CarID]; ok && !existing.CurrentState().Terminal() {
		return fmt.Errorf("car %d: %w", rec.CarID, ErrTransferInProgress)
	}
	s.active[rec.CarID] = rec
	return s.saveLocked()
}

// Update persists the current state of an active record. Updating a record
// the store does not track is a programming error.
func (s *Store) Update(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[rec.CarID]; !ok {
		return fmt.Errorf("no active transfer for car %d", rec.CarID)
	}
	return s.saveLocked()
}

// Get returns the active record for a car.
func (s *Store) Get(carID uint64) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.active[carID]
	if !ok {
		return nil, fmt.Errorf("no active transfer for car %d", carID)
	}
	return rec, nil
}

// Active returns every non-archived record.
func (s *Store) Active() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]*Record, 0, len(s.active))
	for _, rec := range s.active {
		records = append(records, rec)
	}
	return records
}

// Archive moves a terminal record out of the active set. Archiving a
// non-terminal record is a programming error.
func (s *Store) Archive(rec *Record) error {
	if !rec.CurrentState().Terminal() {
		return fmt.Errorf("cannot archive record for car %d in state %s", rec.CarID, rec.CurrentState())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, rec.CarID)
	s.archive = append(s.archive, rec)
	return s.saveLocked()
}

// Archived returns the terminal record history.
func (s *Store) Archived() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Record, len(s.archive))
	copy(out, s.archive)
	return out
}
