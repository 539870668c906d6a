package bot

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"discord-logbot/database/jsonfile"
	"discord-logbot/models"

	"github.com/robfig/cron/v3"
)

var c *cron.Cron

// StatusUpdater sets the bot's presence. *discordgo.Session satisfies it.
type StatusUpdater interface {
	UpdateWatchStatus(idle int, name string) error
}

// startScheduler starts the cron jobs.
func (b *Bot) startScheduler() {
	log.Println("Initializing scheduler...")
	c = cron.New()

	spec := b.Config.StatsSchedule
	if spec == "" {
		spec = "@every 1m"
	}
	_, err := c.AddFunc(spec, func() {
		if _, err := b.refreshStats(b.Session, time.Now()); err != nil {
			log.Printf("Failed to refresh stats: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Could not set up stats job: %v", err)
	}

	if b.Ledger != nil && b.Config.LedgerRetention > 0 {
		_, err = c.AddFunc("@daily", func() {
			n, err := b.Ledger.Prune(retentionCutoff(time.Now(), b.Config.LedgerRetention))
			if err != nil {
				log.Printf("Failed to prune ledger: %v", err)
				return
			}
			log.Printf("Pruned %d ledger rows.", n)
		})
		if err != nil {
			log.Fatalf("Could not set up ledger prune job: %v", err)
		}
	}

	c.Start()
	log.Printf("Stats job scheduled (%s).", spec)
}

// stopScheduler stops the cron jobs.
func stopScheduler() {
	if c != nil {
		c.Stop()
		log.Println("Scheduler stopped.")
	}
}

// refreshStats counts stored transcripts, writes stats.json and updates the
// presence text.
func (b *Bot) refreshStats(status StatusUpdater, now time.Time) (*models.Stats, error) {
	files, messages, err := b.Store.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}

	stats := &models.Stats{
		Channels:  files,
		Messages:  messages,
		Uptime:    formatUptime(now.Sub(b.startedAt)),
		Timestamp: now.Format(time.RFC3339),
	}
	if b.Ledger != nil {
		if counts, err := b.Ledger.Counts(); err == nil {
			stats.Ledger = counts
		} else {
			log.Printf("Failed to read ledger counts: %v", err)
		}
	}

	if err := jsonfile.Write(filepath.Join(b.Config.DataDir, "stats.json"), stats); err != nil {
		return stats, err
	}
	if status != nil {
		if err := status.UpdateWatchStatus(0, statusText(stats)); err != nil {
			log.Printf("Failed to update status: %v", err)
		}
	}
	return stats, nil
}

func statusText(s *models.Stats) string {
	return fmt.Sprintf("Tracking %d channels, %d messages | Uptime %s", s.Channels, s.Messages, s.Uptime)
}

// formatUptime renders d as its two most significant units, e.g. "3d 4h".
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	days, secs := secs/86400, secs%86400
	hours, secs := secs/3600, secs%3600
	mins, secs := secs/60, secs%60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// retentionCutoff is the start of the day days before now.
func retentionCutoff(now time.Time, days int) time.Time {
	d := now.AddDate(0, 0, -days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}
