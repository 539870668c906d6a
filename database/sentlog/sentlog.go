// Package sentlog remembers which notification messages were posted for a
// deleted original, so a later notification delete can be traced back.
package sentlog

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"discord-logbot/database/jsonfile"
	"discord-logbot/models"
)

// ErrNotFound is returned when no original owns a notification id.
var ErrNotFound = errors.New("notification not found in sent log")

// Log is a directory of <originalId>.json files.
type Log struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Log {
	return &Log{dir: dir}
}

func (l *Log) path(originalID string) string {
	return filepath.Join(l.dir, originalID+".json")
}

// Record adds the notification ids posted for originalID to the ones already
// recorded. Known ids are not repeated and nothing is written when ids is
// empty.
func (l *Log) Record(originalID string, ids []string) error {
	if originalID == "" || len(ids) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var entry models.SentNotification
	if _, err := jsonfile.Read(l.path(originalID), &entry); err != nil {
		log.Printf("[sentlog] replacing unreadable record for %s: %v", originalID, err)
		entry = models.SentNotification{}
	}
	seen := make(map[string]bool, len(entry.Sent)+len(ids))
	for _, id := range entry.Sent {
		seen[id] = true
	}
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			entry.Sent = append(entry.Sent, id)
		}
	}

	if err := jsonfile.Write(l.path(originalID), entry); err != nil {
		return fmt.Errorf("failed to record notifications for %s: %w", originalID, err)
	}
	return nil
}

// Get returns the notification ids recorded for originalID.
func (l *Log) Get(originalID string) ([]string, error) {
	var entry models.SentNotification
	found, err := jsonfile.Read(l.path(originalID), &entry)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return entry.Sent, nil
}

// FindByNotification returns the original message id that notifID was sent for.
func (l *Log) FindByNotification(notifID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	orig, _, err := l.find(notifID)
	return orig, err
}

func (l *Log) find(notifID string) (string, *models.SentNotification, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, ErrNotFound
		}
		return "", nil, fmt.Errorf("failed to list sent log: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		var entry models.SentNotification
		found, err := jsonfile.Read(filepath.Join(l.dir, name), &entry)
		if err != nil || !found {
			continue
		}
		for _, id := range entry.Sent {
			if id == notifID {
				entry.OriginalID = strings.TrimSuffix(name, ".json")
				return entry.OriginalID, &entry, nil
			}
		}
	}
	return "", nil, ErrNotFound
}

// Retract drops notifID from whichever entry holds it and removes the entry
// once it is empty. Unknown ids are ignored.
func (l *Log) Retract(notifID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	orig, entry, err := l.find(notifID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	kept := entry.Sent[:0]
	for _, id := range entry.Sent {
		if id != notifID {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		if err := os.Remove(l.path(orig)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove sent log entry %s: %w", orig, err)
		}
		log.Printf("[sentlog] all notifications for %s removed", orig)
		return nil
	}
	return jsonfile.Write(l.path(orig), models.SentNotification{Sent: kept})
}
