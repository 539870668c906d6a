package message

import (
	"errors"
	"log"

	"discord-logbot/database/history"
	"discord-logbot/database/jsonfile"
	"discord-logbot/models"
	"discord-logbot/transcript"
)

var (
	// ErrNoThreadHistory means no transcript is known for a starter id.
	ErrNoThreadHistory = errors.New("no thread history found")
	// ErrThreadFileMissing means the index points at a file that is gone.
	ErrThreadFileMissing = errors.New("thread file missing")
)

// Transcript resolves starterID and paginates its transcript oldest first.
func (e *Engine) Transcript(starterID string) (*models.ThreadIndexEntry, []transcript.Page, error) {
	entry, err := e.index.Resolve(starterID)
	if err != nil {
		return nil, nil, err
	}
	if entry == nil || entry.Path == "" {
		return nil, nil, ErrNoThreadHistory
	}
	return e.paginate(entry)
}

// ViewTranscript is Transcript for a deleted starter: a transcript still in
// live storage is archived before it is shown.
func (e *Engine) ViewTranscript(starterID string) (*models.ThreadIndexEntry, []transcript.Page, error) {
	entry, err := e.index.Resolve(starterID)
	if err != nil {
		return nil, nil, err
	}
	if entry == nil || entry.Path == "" {
		return nil, nil, ErrNoThreadHistory
	}
	if !history.IsArchivedPath(entry.Path) {
		if _, err := e.archiver.Archive(entry); err != nil {
			log.Printf("[engine] failed to archive thread of starter %s on view: %v", starterID, err)
		}
	}
	return e.paginate(entry)
}

func (e *Engine) paginate(entry *models.ThreadIndexEntry) (*models.ThreadIndexEntry, []transcript.Page, error) {
	if !jsonfile.Exists(entry.Path) {
		return entry, nil, ErrThreadFileMissing
	}
	recs, err := e.store.LoadFile(entry.Path)
	if err != nil {
		return entry, nil, err
	}
	return entry, transcript.Paginate(transcript.Reverse(recs), transcript.PageCapacity), nil
}
