package message

import (
	"log"
	"time"

	"discord-logbot/models"
	"discord-logbot/normalizer"

	"github.com/bwmarrin/discordgo"
)

// Verdict is the outcome of classifying an edit.
type Verdict int

const (
	Accept Verdict = iota
	Suppress
)

func (v Verdict) String() string {
	if v == Suppress {
		return "suppress"
	}
	return "accept"
}

// ClassifyEdit decides whether the change from before to after is a real
// edit. A nil before cannot be proven to be noise and is accepted.
func ClassifyEdit(before *models.Message, after *models.Message) Verdict {
	if before == nil || after == nil {
		return Accept
	}
	// an interaction response gaining its embeds after the fact
	if len(before.Embeds) == 0 && len(after.Embeds) > 0 &&
		before.Content == after.Content &&
		normalizer.SameAttachments(before.Attachments, after.Attachments) {
		return Suppress
	}
	if normalizer.Fingerprint(before) == normalizer.Fingerprint(after) {
		return Suppress
	}
	return Accept
}

// HandleUpdate reconciles an edit with the stored record and reports real
// changes.
func (e *Engine) HandleUpdate(m *discordgo.MessageUpdate) {
	if m == nil || m.Message == nil || m.ID == "" {
		return
	}
	if e.isPlaceholder(m.Message) || e.isPlaceholder(m.BeforeUpdate) {
		return
	}
	if e.suppress.Consume(m.ID) {
		log.Printf("[engine] skipping suppressed edit of %s", m.ID)
		return
	}

	current := m.Message
	if current.Author == nil {
		// partial update payloads carry only the changed fields
		if full, err := e.discord.ChannelMessage(m.ChannelID, m.ID); err == nil && full != nil {
			if full.GuildID == "" {
				full.GuildID = m.GuildID
			}
			if e.isPlaceholder(full) {
				return
			}
			current = full
		}
	}
	guildID := current.GuildID
	if guildID == "" {
		guildID = m.GuildID
	}
	if !e.Accepts(guildID, current.ChannelID) {
		return
	}

	loc, err := e.locate(current.ChannelID)
	if err != nil {
		log.Printf("[engine] %v", err)
		return
	}

	after := normalizer.FromMessage(current)
	var before *models.Message
	if m.BeforeUpdate != nil {
		rec := normalizer.FromMessage(m.BeforeUpdate)
		before = &rec
	} else if stored, err := e.store.Find(loc.Key, m.ID); err == nil && stored != nil {
		before = stored
	}

	if verdict := ClassifyEdit(before, &after); verdict == Suppress {
		return
	}

	if _, err := e.store.Update(loc.Key, after); err != nil {
		log.Printf("[engine] failed to update message %s: %v", m.ID, err)
	}
	if before == nil {
		log.Printf("[engine] edit of %s accepted without a previous version", m.ID)
	}

	e.notifyEdit(guildID, current.ChannelID, before, &after)

	if e.ledger != nil {
		edit := models.MessageEdit{
			MessageID:     after.ID,
			GuildID:       guildID,
			ChannelID:     current.ChannelID,
			EditedContent: after.Content,
		}
		if before != nil {
			edit.OriginalContent = before.Content
		}
		if err := e.ledger.RecordEdit(edit); err != nil {
			log.Printf("[engine] %v", err)
		}
	}
}

func (e *Engine) notifyEdit(guildID, channelID string, before, after *models.Message) {
	logsID := e.notifyChannel(guildID)
	if logsID == "" {
		return
	}
	_, err := e.discord.ChannelMessageSendComplex(logsID, &discordgo.MessageSend{
		Embeds: EditEmbeds(before, after, channelID, e.now()),
	})
	if err != nil {
		log.Printf("[engine] failed to send edit log for %s: %v", after.ID, err)
	}
}

// EditEmbeds renders the "Message Edited" notification.
func EditEmbeds(before, after *models.Message, channelID string, at time.Time) []*discordgo.MessageEmbed {
	beforeText := "(unknown)"
	if before != nil {
		beforeText = orNoText(before.Content)
	}
	return []*discordgo.MessageEmbed{
		{
			Title: "Message Edited",
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Sent by", Value: authorLine(after), Inline: true},
				{Name: "Channel", Value: "<#" + channelID + ">", Inline: true},
				{Name: "Sent", Value: discordTime(after.CreatedAt), Inline: true},
			},
			Timestamp: at.Format(time.RFC3339),
		},
		{Title: "Before", Description: truncate(beforeText, descriptionLimit)},
		{Title: "After", Description: truncate(orNoText(after.Content), descriptionLimit)},
	}
}

func orNoText(s string) string {
	if s == "" {
		return "(no text)"
	}
	return s
}
