package bot

import (
	"path/filepath"
	"testing"
	"time"

	"discord-logbot/database/history"
	"discord-logbot/database/jsonfile"
	"discord-logbot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatus struct{ text string }

func (f *fakeStatus) UpdateWatchStatus(_ int, name string) error {
	f.text = name
	return nil
}

func TestNewSession_CachesMessages(t *testing.T) {
	dg, err := newSession(&models.AppConfig{Token: "abc", HistoryLimit: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, dg.State.MaxMessageCount)
	assert.NotZero(t, dg.Identify.Intents&discordgo.IntentsMessageContent)

	dg, err = newSession(&models.AppConfig{Token: "abc"})
	require.NoError(t, err)
	assert.Equal(t, history.DefaultLimit, dg.State.MaxMessageCount)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0s", formatUptime(-time.Second))
	assert.Equal(t, "42s", formatUptime(42*time.Second))
	assert.Equal(t, "2m 5s", formatUptime(125*time.Second))
	assert.Equal(t, "1h 1m", formatUptime(61*time.Minute))
	assert.Equal(t, "3d 4h", formatUptime(76*time.Hour+30*time.Minute))
}

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), retentionCutoff(now, 30))
}

func TestRefreshStats(t *testing.T) {
	dir := t.TempDir()
	b := &Bot{
		Config:    &models.AppConfig{DataDir: dir},
		Store:     history.NewStore(filepath.Join(dir, "Categories"), 50),
		startedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	key := history.Key{CategoryID: "c", CategoryName: "Cat", ChannelID: "ch", ChannelName: "general"}
	_, err := b.Store.Upsert(key, models.Message{ID: "m1", Content: "hi"})
	require.NoError(t, err)
	_, err = b.Store.Upsert(key, models.Message{ID: "m2", Content: "yo"})
	require.NoError(t, err)

	status := &fakeStatus{}
	stats, err := b.refreshStats(status, b.startedAt.Add(90*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Channels)
	assert.Equal(t, 2, stats.Messages)
	assert.Equal(t, "Tracking 1 channels, 2 messages | Uptime 1h 30m", status.text)

	var onDisk models.Stats
	found, err := jsonfile.Read(filepath.Join(dir, "stats.json"), &onDisk)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, *stats, onDisk)
}
