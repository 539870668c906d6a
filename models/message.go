package models

import (
	"encoding/json"
	"time"
)

// Attachment is the stored form of a message attachment.
type Attachment struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
}

// Message is one audited message snapshot as written to a transcript file.
// Embeds are kept as raw JSON so a payload the platform changes shape on still
// round-trips; rendering decodes them best-effort.
type Message struct {
	ID          string            `json:"id"`
	ChannelID   string            `json:"channelId,omitempty"`
	AuthorID    string            `json:"authorId"`
	AuthorTag   string            `json:"authorTag,omitempty"`
	AuthorName  string            `json:"authorName"`
	WebhookID   string            `json:"webhookId,omitempty"`
	Bot         bool              `json:"bot"`
	Content     string            `json:"content"`
	CreatedAt   time.Time         `json:"createdAt"`
	Attachments []Attachment      `json:"attachments"`
	Embeds      []json.RawMessage `json:"embeds"`
}

// DisplayAuthor returns the best available author label.
func (m *Message) DisplayAuthor() string {
	switch {
	case m.AuthorTag != "":
		return m.AuthorTag
	case m.AuthorName != "":
		return m.AuthorName
	default:
		return "Unknown"
	}
}

// MessageEdit is a ledger row describing an accepted edit.
type MessageEdit struct {
	EditID          int64  `json:"edit_id"`
	MessageID       string `json:"message_id"`
	GuildID         string `json:"guild_id"`
	ChannelID       string `json:"channel_id"`
	OriginalContent string `json:"original_content"`
	EditedContent   string `json:"edited_content"`
	EditTimestamp   int64  `json:"edit_timestamp"`
}

// MessageDeletion is a ledger row describing an audited deletion.
type MessageDeletion struct {
	DeletionID        int64  `json:"deletion_id"`
	MessageID         string `json:"message_id"`
	GuildID           string `json:"guild_id"`
	ChannelID         string `json:"channel_id"`
	AuthorID          string `json:"author_id"`
	FromStore         bool   `json:"from_store"`
	Notifications     int    `json:"notifications"`
	DeletionTimestamp int64  `json:"deletion_timestamp"`
}

// Eviction is a ledger row for a record pushed out of a bounded channel store.
type Eviction struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	StorePath string `json:"store_path"`
	EvictedAt int64  `json:"evicted_at"`
}

// LedgerCounts summarises the ledger tables.
type LedgerCounts struct {
	Edits     int64 `json:"edits"`
	Deletions int64 `json:"deletions"`
	Evictions int64 `json:"evictions"`
}
