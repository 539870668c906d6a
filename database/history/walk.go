package history

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"discord-logbot/models"
)

// ErrStopWalk ends a Walk early without reporting an error.
var ErrStopWalk = errors.New("stop walk")

// Walk calls fn for every transcript file under the store root. Unreadable
// files and directories are skipped.
func (s *Store) Walk(fn func(path string, recs []models.Message) error) error {
	err := filepath.WalkDir(s.layout.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.layout.Root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		recs, err := s.LoadFile(path)
		if err != nil {
			return nil
		}
		return fn(path, recs)
	})
	if errors.Is(err, ErrStopWalk) {
		return nil
	}
	return err
}

// FindMessage searches every transcript for id and returns the first match
// with the file it was found in.
func (s *Store) FindMessage(id string) (*models.Message, string, error) {
	var (
		found *models.Message
		where string
	)
	err := s.Walk(func(path string, recs []models.Message) error {
		if idx := indexOf(recs, id); idx >= 0 {
			rec := recs[idx]
			found, where = &rec, path
			return ErrStopWalk
		}
		return nil
	})
	return found, where, err
}

// Count returns the number of transcript files and the records they hold.
func (s *Store) Count() (files, messages int, err error) {
	err = s.Walk(func(path string, recs []models.Message) error {
		files++
		messages += len(recs)
		return nil
	})
	return files, messages, err
}
