// Package normalizer turns platform messages into stored records and derives
// the comparison fingerprint used to tell real edits from platform churn.
package normalizer

import (
	"encoding/json"
	"log"
	"time"

	"discord-logbot/models"

	"github.com/bwmarrin/discordgo"
)

// flagLoading marks a deferred interaction response that is still "thinking".
const flagLoading discordgo.MessageFlags = 1 << 7

// FromMessage converts a platform message into its stored form.
func FromMessage(m *discordgo.Message) models.Message {
	rec := models.Message{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		WebhookID:   m.WebhookID,
		Content:     m.Content,
		CreatedAt:   createdAt(m),
		Attachments: []models.Attachment{},
		Embeds:      []json.RawMessage{},
	}

	if m.Author != nil {
		rec.AuthorID = m.Author.ID
		rec.AuthorTag = authorTag(m.Author)
		rec.Bot = m.Author.Bot
		rec.AuthorName = displayName(m)
	}

	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		rec.Attachments = append(rec.Attachments, models.Attachment{ID: a.ID, URL: a.URL, Name: a.Filename, ContentType: a.ContentType})
	}

	for _, e := range m.Embeds {
		if e == nil {
			continue
		}
		raw, err := json.Marshal(e)
		if err != nil {
			log.Printf("[normalizer] failed to encode embed of message %s: %v", m.ID, err)
			continue
		}
		rec.Embeds = append(rec.Embeds, raw)
	}
	return rec
}

// IsInteractionPlaceholder reports whether m is an interaction response the
// platform posts through its webhook before (or instead of) a real message.
func IsInteractionPlaceholder(m *discordgo.Message) bool {
	if m == nil || m.WebhookID == "" || m.Author == nil || !m.Author.Bot {
		return false
	}
	return m.Interaction != nil ||
		m.InteractionMetadata != nil ||
		m.Flags&flagLoading != 0 ||
		m.Type == discordgo.MessageTypeChatInputCommand
}

// DecodeEmbed decodes a stored embed back into its platform form.
func DecodeEmbed(raw json.RawMessage) (*discordgo.MessageEmbed, error) {
	var e discordgo.MessageEmbed
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	if m.Author.Username != "" {
		return m.Author.Username
	}
	return m.Author.String()
}

// authorTag is username#discriminator, or the bare username for accounts on
// the new username system.
func authorTag(u *discordgo.User) string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.String()
}

func createdAt(m *discordgo.Message) time.Time {
	if !m.Timestamp.IsZero() {
		return m.Timestamp.UTC()
	}
	if ts, err := discordgo.SnowflakeTimestamp(m.ID); err == nil && m.ID != "" {
		return ts.UTC()
	}
	return time.Now().UTC()
}
