package message

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"discord-logbot/database/sentlog"
	"discord-logbot/models"

	"github.com/bwmarrin/discordgo"
)

// ErrNoLogsChannel is returned when a guild has no notification channel.
var ErrNoLogsChannel = errors.New("no logs channel configured")

var sentByPattern = regexp.MustCompile(`^(.*)\s*\((\d{17,20}|N/A)\)$`)

// RetractResult describes a retracted notification.
type RetractResult struct {
	OriginalID string
	Deleted    bool
}

// retractedInfo is what is known about the message a notification covered.
type retractedInfo struct {
	author        string
	excerpt       string
	hadText       bool
	hadEmbed      bool
	hadAttachment bool
}

// Retract deletes notification notifID from the guild's logs channel, posts
// an audit entry naming actor and prunes the sent log.
func (e *Engine) Retract(guildID, notifID string, actor *discordgo.User) (*RetractResult, error) {
	logsID := e.notifyChannel(guildID)
	if logsID == "" {
		return nil, ErrNoLogsChannel
	}

	res := &RetractResult{}
	origID, err := e.sent.FindByNotification(notifID)
	if err != nil && !errors.Is(err, sentlog.ErrNotFound) {
		return nil, err
	}
	res.OriginalID = origID

	info := e.originalInfo(logsID, notifID, origID)
	if _, err := e.discord.ChannelMessageSendComplex(logsID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{retractionEmbed(actor, info, e.now().Format(time.RFC3339))},
	}); err != nil {
		log.Printf("[engine] failed to send retraction log for %s: %v", notifID, err)
	}

	e.suppress.Add(notifID)
	if err := e.discord.ChannelMessageDelete(logsID, notifID); err != nil {
		log.Printf("[engine] failed to delete logs message %s: %v", notifID, err)
	} else {
		res.Deleted = true
	}

	if err := e.sent.Retract(notifID); err != nil {
		log.Printf("[engine] %v", err)
	}
	return res, nil
}

// originalInfo recovers the covered message from the history, the thread
// transcripts or, failing both, the notification itself.
func (e *Engine) originalInfo(logsID, notifID, origID string) retractedInfo {
	if origID == "" {
		return retractedInfo{author: "Unknown"}
	}
	if rec := e.findRecord(origID); rec != nil {
		info := retractedInfo{
			author:        authorLine(rec),
			hadText:       strings.TrimSpace(rec.Content) != "",
			hadEmbed:      len(rec.Embeds) > 0,
			hadAttachment: len(rec.Attachments) > 0,
		}
		if info.hadText {
			info.excerpt = truncate(rec.Content, 1000)
		}
		return info
	}

	info := retractedInfo{author: fmt.Sprintf("Unknown (%s)", origID)}
	msg, err := e.discord.ChannelMessage(logsID, notifID)
	if err != nil || msg == nil || len(msg.Embeds) == 0 {
		return info
	}
	for _, f := range msg.Embeds[0].Fields {
		if f == nil {
			continue
		}
		if strings.Contains(strings.ToLower(f.Name), "sent by") && f.Value != "" {
			if m := sentByPattern.FindStringSubmatch(f.Value); m != nil {
				info.author = fmt.Sprintf("%s (%s)", strings.TrimSpace(m[1]), m[2])
			} else {
				info.author = f.Value
			}
		}
		if f.Name == "Attachments" {
			info.hadAttachment = true
		}
	}
	if len(msg.Embeds) > 1 && msg.Embeds[1].Title == "" && strings.TrimSpace(msg.Embeds[1].Description) != "" {
		info.hadText = true
		info.excerpt = truncate(msg.Embeds[1].Description, 1000)
	}
	textBlocks := 1
	if info.hadText {
		textBlocks = 2
	}
	info.hadEmbed = len(msg.Embeds) > textBlocks
	info.hadAttachment = info.hadAttachment || len(msg.Attachments) > 0
	return info
}

func (e *Engine) findRecord(id string) *models.Message {
	if rec, _, err := e.store.FindMessage(id); err == nil && rec != nil {
		return rec
	}
	entry, err := e.index.Lookup(id)
	if err != nil || entry == nil || entry.Path == "" {
		return nil
	}
	recs, err := e.store.LoadFile(entry.Path)
	if err != nil {
		return nil
	}
	for i := range recs {
		if recs[i].ID == id {
			return &recs[i]
		}
	}
	return nil
}

func retractionEmbed(actor *discordgo.User, info retractedInfo, ts string) *discordgo.MessageEmbed {
	by := "Unknown"
	if actor != nil {
		by = fmt.Sprintf("%s (%s)", actor.String(), actor.ID)
	}
	return &discordgo.MessageEmbed{
		Title:       "Log deleted",
		Description: info.excerpt,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Log deleted by", Value: by, Inline: true},
			{Name: "Original message sent by", Value: info.author, Inline: true},
			{Name: "Message had", Value: fmt.Sprintf("Text: %s\nEmbed: %s\nAttachment: %s", check(info.hadText), check(info.hadEmbed), check(info.hadAttachment))},
		},
		Timestamp: ts,
	}
}
