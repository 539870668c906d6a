// Package archive moves deleted threads' transcripts out of live storage.
package archive

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"discord-logbot/database/history"
	"discord-logbot/database/jsonfile"
	"discord-logbot/database/threadindex"
	"discord-logbot/models"
	"discord-logbot/suppressor"

	"github.com/bwmarrin/discordgo"
)

// ErrTranscriptMissing is returned when neither the live nor the archived
// transcript of a thread can be found.
var ErrTranscriptMissing = errors.New("thread transcript not found")

// ThreadDeleter removes the live thread on the platform.
type ThreadDeleter interface {
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Manager is the single archival path used by message deletes, thread
// deletes and transcript view requests.
type Manager struct {
	store    *history.Store
	index    *threadindex.Index
	deleter  ThreadDeleter
	suppress *suppressor.Suppressor
}

// NewManager creates a manager. deleter may be nil to skip remote deletion.
// Threads deleted through deleter are added to suppress under their thread
// key, when set, so the resulting thread-delete event is not reported again.
func NewManager(store *history.Store, index *threadindex.Index, deleter ThreadDeleter, suppress *suppressor.Suppressor) *Manager {
	return &Manager{store: store, index: index, deleter: deleter, suppress: suppress}
}

// Archive moves the entry's transcript to the archived folder, repoints the
// index at it and deletes the live thread, in that order. Archiving an
// already archived entry returns the same path.
func (m *Manager) Archive(entry *models.ThreadIndexEntry) (string, error) {
	return m.archive(entry, true)
}

// ArchiveDeleted archives the transcript of a thread that is already gone on
// the platform. No remote delete is requested and nothing is suppressed.
func (m *Manager) ArchiveDeleted(entry *models.ThreadIndexEntry) (string, error) {
	return m.archive(entry, false)
}

func (m *Manager) archive(entry *models.ThreadIndexEntry, remote bool) (string, error) {
	if entry == nil {
		return "", ErrTranscriptMissing
	}
	threadID := entry.ThreadID
	src, err := m.locate(entry)
	if err != nil {
		if remote {
			m.deleteRemote(threadID)
		}
		return "", err
	}
	if threadID == "" {
		threadID = history.ThreadIDFromPath(src)
	}

	dst := src
	if !history.IsArchivedPath(src) {
		dst = history.ArchivedPath(src)
		if err := m.store.Relocate(src, dst); err != nil {
			return "", fmt.Errorf("failed to archive thread %s: %w", threadID, err)
		}
		log.Printf("[archive] moved thread %s transcript to %s", threadID, dst)
	}

	if entry.StarterID != "" && entry.Path != dst {
		if err := m.index.Record(entry.StarterID, threadID, dst); err != nil {
			log.Printf("[archive] %v", err)
		}
	}
	entry.ThreadID, entry.Path = threadID, dst

	if remote {
		m.deleteRemote(threadID)
	}
	return dst, nil
}

// locate finds the transcript an entry refers to: the recorded path, its
// archived counterpart, or whatever a scan of the tree turns up.
func (m *Manager) locate(entry *models.ThreadIndexEntry) (string, error) {
	if entry.Path != "" {
		if jsonfile.Exists(entry.Path) {
			return entry.Path, nil
		}
		if archived := history.ArchivedPath(entry.Path); jsonfile.Exists(archived) {
			return archived, nil
		}
	}
	for _, id := range []string{entry.StarterID, entry.ThreadID} {
		if id == "" {
			continue
		}
		found, err := m.index.Scan(id)
		if err != nil {
			return "", err
		}
		if found != nil {
			return found.Path, nil
		}
	}
	return "", fmt.Errorf("%w: starter %s thread %s", ErrTranscriptMissing, entry.StarterID, entry.ThreadID)
}

func (m *Manager) deleteRemote(threadID string) {
	if m.deleter == nil || threadID == "" {
		return
	}
	if m.suppress != nil {
		m.suppress.Add(suppressor.ThreadKey(threadID))
	}
	if _, err := m.deleter.ChannelDelete(threadID); err != nil {
		if IsNotFound(err) {
			return
		}
		log.Printf("[archive] failed to delete thread %s: %v", threadID, err)
	}
}

// IsNotFound reports whether err is a platform 404.
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
