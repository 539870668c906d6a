package handlers

import (
	"discord-logbot/bot"

	"github.com/bwmarrin/discordgo"
)

// ThreadCreateHandler maps new threads to their starter message.
func ThreadCreateHandler(b *bot.Bot) func(s *discordgo.Session, t *discordgo.ThreadCreate) {
	return func(s *discordgo.Session, t *discordgo.ThreadCreate) {
		b.Engine.HandleThreadCreate(t)
	}
}
