package handlers

import (
	"discord-logbot/bot"

	"github.com/bwmarrin/discordgo"
)

// MessageCreateHandler records new messages.
func MessageCreateHandler(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.Engine.HandleCreate(m)
	}
}

// MessageUpdateHandler reports edits.
func MessageUpdateHandler(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageUpdate) {
	return func(s *discordgo.Session, m *discordgo.MessageUpdate) {
		b.Engine.HandleUpdate(m)
	}
}

// MessageDeleteHandler reports deletions.
func MessageDeleteHandler(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageDelete) {
	return func(s *discordgo.Session, m *discordgo.MessageDelete) {
		b.Engine.HandleDelete(m)
	}
}
