// Package scanner seeds the message history at startup so that deletions of
// messages sent while the bot was offline can still be reported.
package scanner

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

// Source lists a guild's channels and active threads. *discordgo.Session
// satisfies it.
type Source interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildThreadsActive(guildID string, options ...discordgo.RequestOption) (*discordgo.ThreadsList, error)
}

// Seeder stores fetched history.
type Seeder interface {
	Accepts(guildID, channelID string) bool
	SeedChannel(ch *discordgo.Channel) (int, error)
	SeedThread(th *discordgo.Channel) (int, error)
}

// Result summarizes a scan.
type Result struct {
	Channels int
	Threads  int
	Messages int
	Failures int
}

// StartScanning seeds every text channel and active thread of guildIDs.
func StartScanning(src Source, seeder Seeder, guildIDs []string) Result {
	log.Println("Starting the scanning process...")

	var res Result
	for _, guildID := range guildIDs {
		scanGuild(src, seeder, guildID, &res)
	}

	log.Printf("Scanning process finished: %d channels, %d threads, %d messages, %d failures.",
		res.Channels, res.Threads, res.Messages, res.Failures)
	return res
}

func scanGuild(src Source, seeder Seeder, guildID string, res *Result) {
	channels, err := src.GuildChannels(guildID)
	if err != nil {
		log.Printf("Failed to get channels for guild %s: %v", guildID, err)
		res.Failures++
		return
	}

	for _, ch := range channels {
		if !isTextChannel(ch) || !seeder.Accepts(guildID, ch.ID) {
			continue
		}
		n, err := seeder.SeedChannel(ch)
		if err != nil {
			log.Printf("Failed to seed channel %s (%s): %v", ch.Name, ch.ID, err)
			res.Failures++
			continue
		}
		res.Channels++
		res.Messages += n
	}

	active, err := src.GuildThreadsActive(guildID)
	if err != nil {
		log.Printf("Failed to get active threads for guild %s: %v", guildID, err)
		res.Failures++
		return
	}

	processedThreads := make(map[string]bool)
	for _, th := range active.Threads {
		if processedThreads[th.ID] || !seeder.Accepts(guildID, th.ParentID) {
			continue
		}
		processedThreads[th.ID] = true
		n, err := seeder.SeedThread(th)
		if err != nil {
			log.Printf("Failed to seed thread %s (%s): %v", th.Name, th.ID, err)
			res.Failures++
			continue
		}
		res.Threads++
		res.Messages += n
	}
}

func isTextChannel(ch *discordgo.Channel) bool {
	return ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews
}
