// Package history is the bounded, file-backed message history kept per
// channel and per thread.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"discord-logbot/database/jsonfile"
	"discord-logbot/models"
)

// DefaultLimit is the channel store capacity.
const DefaultLimit = 50

// EvictFunc observes records pushed out of a bounded store.
type EvictFunc func(path string, evicted models.Message)

// Store persists newest-first message sequences, one JSON file per key.
// Every mutation is a full read-modify-write under a per-file lock.
type Store struct {
	layout  Layout
	limit   int
	locks   sync.Map // path -> *sync.Mutex
	onEvict EvictFunc
}

// NewStore creates a store rooted at root. Channel stores hold at most limit
// records; thread stores are unbounded.
func NewStore(root string, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{layout: Layout{Root: root}, limit: limit}
}

// OnEvict registers fn to be called for every evicted record.
func (s *Store) OnEvict(fn EvictFunc) {
	s.onEvict = fn
}

// Root returns the directory all transcripts live under.
func (s *Store) Root() string {
	return s.layout.Root
}

// Path returns the transcript file for k.
func (s *Store) Path(k Key) string {
	return s.layout.Path(k)
}

func (s *Store) capacity(k Key) int {
	if k.IsThread() {
		return 0
	}
	return s.limit
}

func (s *Store) lock(path string) func() {
	v, _ := s.locks.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Upsert inserts rec at the head of k's store. When the store exceeds its
// capacity the oldest record is removed and returned.
func (s *Store) Upsert(k Key, rec models.Message) (*models.Message, error) {
	path := s.Path(k)
	defer s.lock(path)()

	recs, err := s.LoadFile(path)
	if err != nil {
		return nil, err
	}
	recs, evicted := pushFront(recs, rec, s.capacity(k))
	if err := jsonfile.Write(path, recs); err != nil {
		return nil, err
	}
	return s.evicted(path, evicted), nil
}

// Update replaces the record with rec.ID in place. When no such record exists
// rec is inserted as Upsert would, and found is false.
func (s *Store) Update(k Key, rec models.Message) (found bool, err error) {
	path := s.Path(k)
	defer s.lock(path)()

	recs, err := s.LoadFile(path)
	if err != nil {
		return false, err
	}

	var evicted []models.Message
	if idx := indexOf(recs, rec.ID); idx >= 0 {
		recs[idx] = rec
		found = true
	} else {
		recs, evicted = pushFront(recs, rec, s.capacity(k))
	}
	if err := jsonfile.Write(path, recs); err != nil {
		return false, err
	}
	s.evicted(path, evicted)
	return found, nil
}

// Remove deletes the record with id from k's store and returns it, or nil
// when the store never saw it.
func (s *Store) Remove(k Key, id string) (*models.Message, error) {
	path := s.Path(k)
	defer s.lock(path)()

	recs, err := s.LoadFile(path)
	if err != nil {
		return nil, err
	}
	idx := indexOf(recs, id)
	if idx < 0 {
		return nil, nil
	}
	removed := recs[idx]
	recs = append(recs[:idx], recs[idx+1:]...)
	if err := jsonfile.Write(path, recs); err != nil {
		return nil, err
	}
	return &removed, nil
}

// Find returns the stored record with id, or nil.
func (s *Store) Find(k Key, id string) (*models.Message, error) {
	recs, err := s.Load(k)
	if err != nil {
		return nil, err
	}
	if idx := indexOf(recs, id); idx >= 0 {
		return &recs[idx], nil
	}
	return nil, nil
}

// Load returns k's records, newest first.
func (s *Store) Load(k Key) ([]models.Message, error) {
	return s.LoadFile(s.Path(k))
}

// Save replaces k's records.
func (s *Store) Save(k Key, recs []models.Message) error {
	path := s.Path(k)
	defer s.lock(path)()
	if c := s.capacity(k); c > 0 && len(recs) > c {
		recs = recs[:c]
	}
	return jsonfile.Write(path, nonNil(recs))
}

// LoadFile reads a transcript file. A missing, corrupt or malformed file
// loads as empty.
func (s *Store) LoadFile(path string) ([]models.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Message{}, nil
		}
		return nil, fmt.Errorf("failed to read history %s: %w", path, err)
	}
	if err := validate(data); err != nil {
		log.Printf("[history] ignoring malformed history file %s: %v", path, err)
		return []models.Message{}, nil
	}
	var recs []models.Message
	if err := json.Unmarshal(data, &recs); err != nil {
		log.Printf("[history] ignoring undecodable history file %s: %v", path, err)
		return []models.Message{}, nil
	}
	return nonNil(recs), nil
}

// Relocate moves the transcript at src to dst, replacing dst if present.
func (s *Store) Relocate(src, dst string) error {
	unlockSrc := s.lock(src)
	defer unlockSrc()
	if src != dst {
		defer s.lock(dst)()
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	return nil
}

// evicted reports every evicted record to the hook and returns the oldest.
func (s *Store) evicted(path string, recs []models.Message) *models.Message {
	if len(recs) == 0 {
		return nil
	}
	if s.onEvict != nil {
		for _, rec := range recs {
			s.onEvict(path, rec)
		}
	}
	oldest := recs[len(recs)-1]
	return &oldest
}

func pushFront(recs []models.Message, rec models.Message, capacity int) ([]models.Message, []models.Message) {
	recs = append([]models.Message{rec}, recs...)
	if capacity <= 0 || len(recs) <= capacity {
		return recs, nil
	}
	evicted := make([]models.Message, len(recs)-capacity)
	copy(evicted, recs[capacity:])
	return recs[:capacity], evicted
}

func indexOf(recs []models.Message, id string) int {
	for i := range recs {
		if recs[i].ID == id {
			return i
		}
	}
	return -1
}

func nonNil(recs []models.Message) []models.Message {
	if recs == nil {
		return []models.Message{}
	}
	return recs
}
