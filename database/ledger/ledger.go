// Package ledger keeps a durable SQLite record of audited edits, deletions
// and evictions from the bounded channel stores.
package ledger

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"discord-logbot/models"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// Ledger wraps the SQLite connection.
type Ledger struct {
	db    *sql.DB
	mutex sync.Mutex
}

// Open opens (creating if needed) the ledger database at dbPath.
func Open(dbPath string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to ledger: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	log.Println("Ledger ready at", dbPath)
	return l, nil
}

func (l *Ledger) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS message_edits (
            edit_id INTEGER PRIMARY KEY AUTOINCREMENT,
            message_id TEXT NOT NULL,
            guild_id TEXT NOT NULL,
            channel_id TEXT NOT NULL,
            original_content TEXT NOT NULL,
            edited_content TEXT NOT NULL,
            edit_timestamp INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS message_deletions (
            deletion_id INTEGER PRIMARY KEY AUTOINCREMENT,
            message_id TEXT NOT NULL,
            guild_id TEXT NOT NULL,
            channel_id TEXT NOT NULL,
            author_id TEXT DEFAULT '',
            from_store BOOLEAN DEFAULT FALSE,
            notifications INTEGER DEFAULT 0,
            deletion_timestamp INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS evictions (
            eviction_id INTEGER PRIMARY KEY AUTOINCREMENT,
            message_id TEXT NOT NULL,
            channel_id TEXT NOT NULL,
            store_path TEXT NOT NULL,
            evicted_at INTEGER NOT NULL
        );`,
	}
	for _, q := range tables {
		if _, err := l.db.Exec(q); err != nil {
			return fmt.Errorf("failed to create ledger table: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_message_edits_message_id ON message_edits(message_id);",
		"CREATE INDEX IF NOT EXISTS idx_message_edits_timestamp ON message_edits(edit_timestamp);",
		"CREATE INDEX IF NOT EXISTS idx_message_deletions_message_id ON message_deletions(message_id);",
		"CREATE INDEX IF NOT EXISTS idx_message_deletions_timestamp ON message_deletions(deletion_timestamp);",
		"CREATE INDEX IF NOT EXISTS idx_evictions_evicted_at ON evictions(evicted_at);",
	}
	for _, q := range indexes {
		if _, err := l.db.Exec(q); err != nil {
			log.Printf("Warning: failed to create ledger index: %v", err)
		}
	}
	return nil
}

// RecordEdit stores an edit. A zero EditTimestamp is filled with now.
func (l *Ledger) RecordEdit(edit models.MessageEdit) error {
	if edit.EditTimestamp == 0 {
		edit.EditTimestamp = time.Now().Unix()
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	_, err := l.db.Exec(`INSERT INTO message_edits (message_id, guild_id, channel_id, original_content, edited_content, edit_timestamp)
        VALUES (?, ?, ?, ?, ?, ?)`,
		edit.MessageID, edit.GuildID, edit.ChannelID, edit.OriginalContent, edit.EditedContent, edit.EditTimestamp)
	if err != nil {
		return fmt.Errorf("failed to insert message edit %s: %w", edit.MessageID, err)
	}
	return nil
}

// RecordDeletion stores a deletion. A zero DeletionTimestamp is filled with now.
func (l *Ledger) RecordDeletion(d models.MessageDeletion) error {
	if d.DeletionTimestamp == 0 {
		d.DeletionTimestamp = time.Now().Unix()
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	_, err := l.db.Exec(`INSERT INTO message_deletions (message_id, guild_id, channel_id, author_id, from_store, notifications, deletion_timestamp)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.MessageID, d.GuildID, d.ChannelID, d.AuthorID, d.FromStore, d.Notifications, d.DeletionTimestamp)
	if err != nil {
		return fmt.Errorf("failed to insert message deletion %s: %w", d.MessageID, err)
	}
	return nil
}

// RecordEviction stores a record dropped from a bounded store.
func (l *Ledger) RecordEviction(e models.Eviction) error {
	if e.EvictedAt == 0 {
		e.EvictedAt = time.Now().Unix()
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	_, err := l.db.Exec(`INSERT INTO evictions (message_id, channel_id, store_path, evicted_at) VALUES (?, ?, ?, ?)`,
		e.MessageID, e.ChannelID, e.StorePath, e.EvictedAt)
	if err != nil {
		return fmt.Errorf("failed to insert eviction %s: %w", e.MessageID, err)
	}
	return nil
}

// Counts returns the row count of every table.
func (l *Ledger) Counts() (models.LedgerCounts, error) {
	var c models.LedgerCounts
	row := l.db.QueryRow(`SELECT
        (SELECT COUNT(*) FROM message_edits),
        (SELECT COUNT(*) FROM message_deletions),
        (SELECT COUNT(*) FROM evictions)`)
	if err := row.Scan(&c.Edits, &c.Deletions, &c.Evictions); err != nil {
		return c, fmt.Errorf("failed to count ledger rows: %w", err)
	}
	return c, nil
}

// Edits returns the recorded edits of messageID, oldest first.
func (l *Ledger) Edits(messageID string) ([]models.MessageEdit, error) {
	rows, err := l.db.Query(`SELECT edit_id, message_id, guild_id, channel_id, original_content, edited_content, edit_timestamp
        FROM message_edits WHERE message_id = ? ORDER BY edit_id`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edits of %s: %w", messageID, err)
	}
	defer rows.Close()

	var edits []models.MessageEdit
	for rows.Next() {
		var e models.MessageEdit
		if err := rows.Scan(&e.EditID, &e.MessageID, &e.GuildID, &e.ChannelID, &e.OriginalContent, &e.EditedContent, &e.EditTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan edit row: %w", err)
		}
		edits = append(edits, e)
	}
	return edits, rows.Err()
}

// Prune deletes rows older than before and returns how many were removed.
func (l *Ledger) Prune(before time.Time) (int64, error) {
	cutoff := before.Unix()
	queries := []string{
		"DELETE FROM message_edits WHERE edit_timestamp < ?",
		"DELETE FROM message_deletions WHERE deletion_timestamp < ?",
		"DELETE FROM evictions WHERE evicted_at < ?",
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	tx, err := l.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin prune: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, q := range queries {
		res, err := tx.Exec(q, cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to prune ledger: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return total, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
