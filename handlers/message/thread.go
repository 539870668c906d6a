package message

import (
	"errors"
	"fmt"
	"log"
	"time"

	"discord-logbot/archive"
	"discord-logbot/models"
	"discord-logbot/suppressor"
	"discord-logbot/transcript"
	"discord-logbot/utils"

	"github.com/bwmarrin/discordgo"
)

// HandleThreadCreate maps a new thread to the message it was started from.
func (e *Engine) HandleThreadCreate(t *discordgo.ThreadCreate) {
	if t == nil || t.Channel == nil || t.ID == "" {
		return
	}
	if !e.Accepts(t.GuildID, t.ParentID) {
		return
	}
	starterID := e.starterOf(t.Channel)
	if starterID == "" {
		return
	}
	loc := e.locateChannel(t.Channel)
	if err := e.index.Record(starterID, t.ID, e.store.Path(loc.Key)); err != nil {
		log.Printf("[engine] %v", err)
		return
	}
	log.Printf("[engine] mapped thread %s to starter %s", t.ID, starterID)
}

// HandleThreadDelete archives a deleted thread's transcript and reports it.
func (e *Engine) HandleThreadDelete(t *discordgo.ThreadDelete) {
	if t == nil || t.Channel == nil || t.ID == "" {
		return
	}
	if e.suppress.Consume(suppressor.ThreadKey(t.ID)) {
		log.Printf("[engine] skipping suppressed delete of thread %s", t.ID)
		return
	}
	if !e.Accepts(t.GuildID, t.ParentID) {
		return
	}

	entry, err := e.index.FindByThread(t.ID)
	if err != nil {
		log.Printf("[engine] %v", err)
	}
	if entry == nil {
		// threads started from a message share its id
		if entry, err = e.index.Resolve(t.ID); err != nil {
			log.Printf("[engine] %v", err)
		}
	}
	if entry == nil {
		th := t.Channel
		if th.Type == 0 {
			th = &discordgo.Channel{ID: t.ID, GuildID: t.GuildID, ParentID: t.ParentID, Type: discordgo.ChannelTypeGuildPublicThread}
		}
		loc := e.locateChannel(th)
		entry = &models.ThreadIndexEntry{ThreadID: t.ID, Path: e.store.Path(loc.Key)}
	}
	if _, err := e.archiver.ArchiveDeleted(entry); err != nil {
		e.archiveFailed("thread "+t.ID, err)
	}

	sent := e.notifyThreadDeleted(t.GuildID, t.ParentID, t.ID, t.Name, entry.StarterID)
	if err := e.sent.Record(t.ID, sent); err != nil {
		log.Printf("[engine] %v", err)
	}
}

func (e *Engine) notifyThreadDeleted(guildID, parentID, threadID, name, starterID string) []string {
	logsID := e.notifyChannel(guildID)
	if logsID == "" {
		return nil
	}
	data := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{ThreadDeletedEmbed(guildID, parentID, threadID, name, starterID, e.now())},
	}
	if starterID != "" {
		data.Components = []discordgo.MessageComponent{transcript.ViewButton(starterID)}
	}
	msg, err := e.discord.ChannelMessageSendComplex(logsID, data)
	if err != nil {
		log.Printf("[engine] failed to send thread delete log for %s: %v", threadID, err)
		return nil
	}
	if msg == nil {
		return nil
	}
	return []string{msg.ID}
}

// ThreadDeletedEmbed renders the "Thread deleted" notification.
func ThreadDeletedEmbed(guildID, parentID, threadID, name, starterID string, at time.Time) *discordgo.MessageEmbed {
	if name == "" {
		name = "Unknown"
	}
	madeUnder := "<#" + parentID + ">"
	if starterID != "" && parentID != "" {
		madeUnder = fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, parentID, starterID)
	}
	return &discordgo.MessageEmbed{
		Title: "Thread deleted",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Thread", Value: fmt.Sprintf("%s (%s)", name, threadID), Inline: true},
			{Name: "Made under", Value: madeUnder, Inline: true},
			{Name: "Deleted", Value: discordTime(at), Inline: true},
		},
		Timestamp: at.Format(time.RFC3339),
	}
}

// archiveFailed reports an archival error. A thread without a recorded
// transcript is routine and stays out of the admin channel.
func (e *Engine) archiveFailed(what string, err error) {
	if errors.Is(err, archive.ErrTranscriptMissing) {
		log.Printf("[engine] %s has no transcript to archive: %v", what, err)
		return
	}
	utils.Error("Engine", "Archive", fmt.Sprintf("%s: %v", what, err))
}
