package history

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	channelFile   = "messages.json"
	threadsDir    = "Threads"
	liveDir       = "current"
	archivedDir   = "deleted"
	noCategoryID  = "nocat"
	noCategory    = "NoCategory"
	maxNameLength = 200
)

// Key identifies one store: a channel, or a thread under its parent channel.
type Key struct {
	CategoryID   string
	CategoryName string
	ChannelID    string
	ChannelName  string
	ThreadID     string
}

// IsThread reports whether the key selects a thread transcript.
func (k Key) IsThread() bool {
	return k.ThreadID != ""
}

// Layout derives file locations under Root:
//
//	<Root>/<category id> - <category>/Channels/<channel id> - <channel>/messages.json
//	<Root>/<category id> - <category>/Channels/<channel id> - <channel>/Threads/current/<thread id>.json
//
// Archived transcripts live in the sibling Threads/deleted directory.
type Layout struct {
	Root string
}

// ChannelDir returns the folder holding the channel's files. An existing
// folder whose name starts with the same id is reused so a renamed channel
// keeps its history.
func (l Layout) ChannelDir(k Key) string {
	catID, catName := k.CategoryID, k.CategoryName
	if catID == "" {
		catID = noCategoryID
	}
	if catName == "" {
		catName = noCategory
	}
	catFolder := resolveFolder(l.Root, catID, catName)

	chName := k.ChannelName
	if chName == "" {
		chName = k.ChannelID
	}
	return resolveFolder(filepath.Join(catFolder, "Channels"), k.ChannelID, chName)
}

// Path returns the transcript file for k.
func (l Layout) Path(k Key) string {
	dir := l.ChannelDir(k)
	if k.IsThread() {
		return filepath.Join(dir, threadsDir, liveDir, k.ThreadID+".json")
	}
	return filepath.Join(dir, channelFile)
}

// ArchivedPath maps a live thread transcript to its archived location. An
// already archived path maps to itself.
func ArchivedPath(path string) string {
	return filepath.Join(filepath.Dir(filepath.Dir(path)), archivedDir, filepath.Base(path))
}

// IsArchivedPath reports whether path lies in an archived transcript folder.
func IsArchivedPath(path string) bool {
	return filepath.Base(filepath.Dir(path)) == archivedDir &&
		filepath.Base(filepath.Dir(filepath.Dir(path))) == threadsDir
}

// IsThreadPath reports whether path is a live or archived thread transcript.
func IsThreadPath(path string) bool {
	parent := filepath.Base(filepath.Dir(path))
	return (parent == liveDir || parent == archivedDir) &&
		filepath.Base(filepath.Dir(filepath.Dir(path))) == threadsDir &&
		strings.HasSuffix(path, ".json")
}

// ThreadIDFromPath returns the thread id encoded in a transcript file name.
func ThreadIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".json")
}

// SanitizeName replaces characters that are unsafe in file names.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := []rune(b.String())
	if len(out) > maxNameLength {
		out = out[:maxNameLength]
	}
	return string(out)
}

func resolveFolder(parent, id, name string) string {
	want := filepath.Join(parent, id+" - "+SanitizeName(name))
	if _, err := os.Stat(want); err == nil {
		return want
	}
	entries, err := os.ReadDir(parent)
	if err != nil {
		return want
	}
	prefix := id + " - "
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			return filepath.Join(parent, e.Name())
		}
	}
	return want
}
