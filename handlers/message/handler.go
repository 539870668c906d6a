package message

import (
	"context"

	"discord-logbot/models"

	"github.com/bwmarrin/discordgo"
)

// MessageHandler defines the interface for handling Discord message and thread
// lifecycle events.
type MessageHandler interface {
	// HandleCreate is called when a new message is created.
	HandleCreate(m *discordgo.MessageCreate)

	// HandleUpdate is called when a message is updated (edited).
	HandleUpdate(m *discordgo.MessageUpdate)

	// HandleDelete is called when a message is deleted.
	HandleDelete(m *discordgo.MessageDelete)

	HandleThreadCreate(t *discordgo.ThreadCreate)
	HandleThreadDelete(t *discordgo.ThreadDelete)

	// Close is called to release any resources held by the handler, such as database connections.
	Close() error
}

// Discord is the slice of the platform client the engine talks to.
// *discordgo.Session satisfies it.
type Discord interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// AttachmentFetcher downloads an attachment and returns its body and content
// type.
type AttachmentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Ledger receives audited edits and deletions.
type Ledger interface {
	RecordEdit(edit models.MessageEdit) error
	RecordDeletion(deletion models.MessageDeletion) error
	Close() error
}
