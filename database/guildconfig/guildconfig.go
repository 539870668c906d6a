// Package guildconfig persists the guild -> notification channel mapping.
package guildconfig

import (
	"fmt"
	"log"
	"sync"

	"discord-logbot/database/jsonfile"
)

// Store resolves and updates per-guild notification channels.
type Store interface {
	Get(guildID string) string
	Set(guildID, channelID string) error
	Remove(guildID string) error
	IsLogsChannel(guildID, channelID string) bool
}

// FileStore keeps the mapping in one JSON object. Reads always go to disk so
// hand edits of the file take effect without a restart.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() map[string]string {
	servers := map[string]string{}
	if _, err := jsonfile.Read(s.path, &servers); err != nil {
		log.Printf("[guildconfig] failed to load %s: %v", s.path, err)
		return map[string]string{}
	}
	return servers
}

// Get returns the notification channel for guildID, or "".
func (s *FileStore) Get(guildID string) string {
	if guildID == "" {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()[guildID]
}

func (s *FileStore) Set(guildID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	servers := s.load()
	servers[guildID] = channelID
	if err := jsonfile.Write(s.path, servers); err != nil {
		return fmt.Errorf("failed to save logging channel for guild %s: %w", guildID, err)
	}
	return nil
}

func (s *FileStore) Remove(guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	servers := s.load()
	if _, ok := servers[guildID]; !ok {
		return nil
	}
	delete(servers, guildID)
	if err := jsonfile.Write(s.path, servers); err != nil {
		return fmt.Errorf("failed to remove logging channel for guild %s: %w", guildID, err)
	}
	return nil
}

// IsLogsChannel reports whether channelID is guildID's notification channel.
func (s *FileStore) IsLogsChannel(guildID, channelID string) bool {
	logs := s.Get(guildID)
	return logs != "" && logs == channelID
}
