package message

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"discord-logbot/models"
	"discord-logbot/normalizer"
	"discord-logbot/transcript"
	"discord-logbot/utils"

	"github.com/bwmarrin/discordgo"
)

const unparsableEmbed = "Embed (could not fully parse)"

// HandleDelete reports a deleted message, archiving its thread first when it
// was a thread starter.
func (e *Engine) HandleDelete(m *discordgo.MessageDelete) {
	if m == nil || m.Message == nil || m.ID == "" {
		return
	}
	if normalizer.IsInteractionPlaceholder(m.BeforeDelete) || e.placeholders.Consume(m.ID) {
		return
	}
	if e.suppress.Consume(m.ID) {
		log.Printf("[engine] skipping suppressed delete of %s", m.ID)
		return
	}

	loc, err := e.locate(m.ChannelID)
	if err != nil {
		log.Printf("[engine] %v", err)
	}
	guildID := m.GuildID
	if guildID == "" && loc != nil {
		guildID = loc.GuildID
	}
	if !e.Accepts(guildID, m.ChannelID) {
		return
	}

	var removed *models.Message
	if loc != nil {
		if removed, err = e.store.Remove(loc.Key, m.ID); err != nil {
			log.Printf("[engine] failed to remove message %s: %v", m.ID, err)
		}
	}
	fromStore := removed != nil
	if !fromStore {
		var rec models.Message
		if m.BeforeDelete != nil {
			rec = normalizer.FromMessage(m.BeforeDelete)
		} else {
			rec = normalizer.FromMessage(m.Message)
		}
		removed = &rec
	}
	if removed.ChannelID == "" {
		removed.ChannelID = m.ChannelID
	}

	entry, err := e.index.Lookup(m.ID)
	if err != nil {
		log.Printf("[engine] %v", err)
	}
	if entry != nil {
		if _, err := e.archiver.Archive(entry); err != nil {
			e.archiveFailed("starter "+m.ID, err)
		}
	}

	sent := e.notifyDeletion(guildID, removed, m.ChannelID, entry != nil)
	if err := e.sent.Record(m.ID, sent); err != nil {
		log.Printf("[engine] %v", err)
	}
	if e.ledger != nil {
		d := models.MessageDeletion{
			MessageID:     m.ID,
			GuildID:       guildID,
			ChannelID:     m.ChannelID,
			AuthorID:      removed.AuthorID,
			FromStore:     fromStore,
			Notifications: len(sent),
		}
		if err := e.ledger.RecordDeletion(d); err != nil {
			log.Printf("[engine] %v", err)
		}
	}
}

// notifyDeletion posts the deletion notification and returns the ids of the
// messages sent.
func (e *Engine) notifyDeletion(guildID string, rec *models.Message, channelID string, hasThread bool) []string {
	logsID := e.notifyChannel(guildID)
	if logsID == "" {
		return nil
	}

	embeds, err := e.buildDeletion(rec, channelID)
	if err != nil {
		log.Printf("[engine] falling back to plain deletion log for %s: %v", rec.ID, err)
		return e.sendPlain(logsID, plainDeletion(rec, channelID))
	}

	var sent []string
	for i, chunk := range chunkEmbeds(embeds, embedsPerMessage) {
		data := &discordgo.MessageSend{Embeds: chunk}
		if i == 0 && hasThread {
			data.Components = []discordgo.MessageComponent{transcript.ViewButton(rec.ID)}
		}
		if i == 0 {
			data.Files = e.attachmentFiles(rec)
		}
		msg, err := e.discord.ChannelMessageSendComplex(logsID, data)
		if err != nil && len(data.Files) > 0 {
			log.Printf("[engine] resending %s without attachments: %v", rec.ID, err)
			links := *data
			links.Files = nil
			msg, err = e.discord.ChannelMessageSendComplex(logsID, &links)
		}
		if err != nil {
			utils.Warn("Engine", "NotifyDeletion", fmt.Sprintf("chunk %d of %s: %v", i, rec.ID, err))
			continue
		}
		if msg != nil {
			sent = append(sent, msg.ID)
		}
	}
	return sent
}

// attachmentFiles downloads the deleted message's attachments for re-upload.
// Attachments that cannot be fetched stay as links in the notification.
func (e *Engine) attachmentFiles(rec *models.Message) []*discordgo.File {
	if e.attachments == nil || len(rec.Attachments) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), attachmentFetchTimeout)
	defer cancel()

	var files []*discordgo.File
	for _, a := range rec.Attachments {
		if len(files) == filesPerMessage {
			break
		}
		if a.URL == "" {
			continue
		}
		body, contentType, err := e.attachments.Fetch(ctx, a.URL)
		if err != nil {
			log.Printf("[engine] could not fetch attachment %s of %s: %v", a.ID, rec.ID, err)
			continue
		}
		if contentType == "" {
			contentType = a.ContentType
		}
		name := a.Name
		if name == "" {
			name = a.ID
		}
		files = append(files, &discordgo.File{Name: name, ContentType: contentType, Reader: bytes.NewReader(body)})
	}
	return files
}

func (e *Engine) buildDeletion(rec *models.Message, channelID string) (embeds []*discordgo.MessageEmbed, err error) {
	defer func() {
		if r := recover(); r != nil {
			embeds, err = nil, fmt.Errorf("panic while building deletion log: %v", r)
		}
	}()
	return DeletionEmbeds(rec, channelID, e.now()), nil
}

// DeletionEmbeds renders the "Message deleted" notification: a metadata
// block, the content and one block per original embed.
func DeletionEmbeds(rec *models.Message, channelID string, at time.Time) []*discordgo.MessageEmbed {
	meta := &discordgo.MessageEmbed{
		Title: "Message deleted",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Sent by", Value: authorLine(rec), Inline: true},
			{Name: "Channel", Value: "<#" + channelID + ">", Inline: true},
			{Name: "Time", Value: discordTime(rec.CreatedAt), Inline: true},
		},
		Timestamp: at.Format(time.RFC3339),
	}
	if len(rec.Attachments) > 0 {
		meta.Fields = append(meta.Fields, &discordgo.MessageEmbedField{Name: "Attachments", Value: attachmentList(rec.Attachments)})
	}

	embeds := []*discordgo.MessageEmbed{meta}
	if rec.Content != "" {
		embeds = append(embeds, &discordgo.MessageEmbed{Description: truncate(rec.Content, descriptionLimit)})
	}
	for _, raw := range rec.Embeds {
		embed, err := normalizer.DecodeEmbed(raw)
		if err != nil || isEmptyEmbed(embed) {
			embeds = append(embeds, &discordgo.MessageEmbed{Description: unparsableEmbed})
			continue
		}
		// provider and video are read-only on the platform
		embed.Type = discordgo.EmbedTypeRich
		embed.Provider = nil
		embed.Video = nil
		embeds = append(embeds, embed)
	}
	return embeds
}

func isEmptyEmbed(e *discordgo.MessageEmbed) bool {
	return e.Title == "" && e.Description == "" && len(e.Fields) == 0 &&
		e.Image == nil && e.Thumbnail == nil && e.Author == nil && e.Footer == nil && e.URL == ""
}

func plainDeletion(rec *models.Message, channelID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Message deleted by %s in <#%s>\nSent: %s\n", authorLine(rec), channelID, rec.CreatedAt.Format(time.RFC3339))
	if rec.Content != "" {
		fmt.Fprintf(&b, "\nContent:\n%s\n", rec.Content)
	}
	return b.String()
}

func (e *Engine) sendPlain(channelID, text string) []string {
	var sent []string
	for _, part := range splitText(text, plainTextLimit) {
		msg, err := e.discord.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{Content: part})
		if err != nil {
			log.Printf("[engine] failed to send plain log: %v", err)
			continue
		}
		if msg != nil {
			sent = append(sent, msg.ID)
		}
	}
	return sent
}
