package models

// ThreadIndexEntry maps a starter message to its thread transcript.
// The starter id is the file name of the index entry, so it is not serialized.
type ThreadIndexEntry struct {
	StarterID string `json:"-"`
	ThreadID  string `json:"threadId"`
	Path      string `json:"path"`
}

// SentNotification records which notification messages were posted for an
// audited message.
type SentNotification struct {
	OriginalID string   `json:"-"`
	Sent       []string `json:"sent"`
}

// Stats is the snapshot written by the stats job.
type Stats struct {
	Channels  int          `json:"channels"`
	Messages  int          `json:"messages"`
	Uptime    string       `json:"uptime"`
	Timestamp string       `json:"timestamp"`
	Ledger    LedgerCounts `json:"ledger"`
}
