// Package threadindex maps thread starter messages to their transcripts.
//
// The index is a cache: one small file per starter id under a flat
// directory. When an entry is missing or points at a file that no longer
// exists, Resolve falls back to scanning the transcript tree and rewrites the
// entry it finds.
package threadindex

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"discord-logbot/database/history"
	"discord-logbot/database/jsonfile"
	"discord-logbot/models"
)

// Index is the starter-message to thread transcript mapping.
type Index struct {
	dir   string
	store *history.Store
}

// New creates an index stored in dir that falls back to scanning store.
func New(dir string, store *history.Store) *Index {
	return &Index{dir: dir, store: store}
}

func (x *Index) entryPath(starterID string) string {
	return filepath.Join(x.dir, starterID+".json")
}

// Record points starterID at threadID's transcript at path, replacing any
// previous entry.
func (x *Index) Record(starterID, threadID, path string) error {
	if starterID == "" {
		return nil
	}
	entry := models.ThreadIndexEntry{ThreadID: threadID, Path: path}
	if err := jsonfile.Write(x.entryPath(starterID), entry); err != nil {
		return fmt.Errorf("failed to record thread %s for starter %s: %w", threadID, starterID, err)
	}
	return nil
}

// Lookup reads the entry for starterID without any fallback. A missing or
// unreadable entry returns nil.
func (x *Index) Lookup(starterID string) (*models.ThreadIndexEntry, error) {
	if starterID == "" {
		return nil, nil
	}
	var entry models.ThreadIndexEntry
	found, err := jsonfile.Read(x.entryPath(starterID), &entry)
	if err != nil {
		log.Printf("[threadindex] ignoring unreadable entry for %s: %v", starterID, err)
		return nil, nil
	}
	if !found || entry.ThreadID == "" {
		return nil, nil
	}
	entry.StarterID = starterID
	return &entry, nil
}

// Resolve returns the entry for starterID, repairing the index from the
// transcript tree when the entry is missing or stale.
func (x *Index) Resolve(starterID string) (*models.ThreadIndexEntry, error) {
	entry, err := x.Lookup(starterID)
	if err != nil {
		return nil, err
	}
	if entry != nil && entry.Path != "" {
		if jsonfile.Exists(entry.Path) {
			return entry, nil
		}
		if archived := history.ArchivedPath(entry.Path); jsonfile.Exists(archived) {
			entry.Path = archived
			x.repair(entry)
			return entry, nil
		}
	}

	scanned, err := x.Scan(starterID)
	if err != nil {
		return entry, err
	}
	if scanned == nil {
		return entry, nil
	}
	x.repair(scanned)
	return scanned, nil
}

func (x *Index) repair(entry *models.ThreadIndexEntry) {
	if err := x.Record(entry.StarterID, entry.ThreadID, entry.Path); err != nil {
		log.Printf("[threadindex] failed to repair entry for %s: %v", entry.StarterID, err)
		return
	}
	log.Printf("[threadindex] repaired entry for starter %s -> %s", entry.StarterID, entry.Path)
}

// Scan searches the live and archived thread transcripts for starterID,
// either as a thread whose id equals it or as a record inside a transcript.
func (x *Index) Scan(starterID string) (*models.ThreadIndexEntry, error) {
	if starterID == "" {
		return nil, nil
	}
	var found *models.ThreadIndexEntry
	err := x.store.Walk(func(path string, recs []models.Message) error {
		if !history.IsThreadPath(path) {
			return nil
		}
		threadID := history.ThreadIDFromPath(path)
		match := threadID == starterID
		for i := 0; !match && i < len(recs); i++ {
			match = recs[i].ID == starterID
		}
		if match {
			found = &models.ThreadIndexEntry{StarterID: starterID, ThreadID: threadID, Path: path}
			return history.ErrStopWalk
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan transcripts for starter %s: %w", starterID, err)
	}
	return found, nil
}

// FindByThread returns the entry whose thread id is threadID, or nil.
func (x *Index) FindByThread(threadID string) (*models.ThreadIndexEntry, error) {
	entries, err := os.ReadDir(x.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list thread index: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		entry, err := x.Lookup(strings.TrimSuffix(name, ".json"))
		if err != nil || entry == nil {
			continue
		}
		if entry.ThreadID == threadID {
			return entry, nil
		}
	}
	return nil, nil
}
