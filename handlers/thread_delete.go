package handlers

import (
	"discord-logbot/bot"

	"github.com/bwmarrin/discordgo"
)

// ThreadDeleteHandler archives deleted threads.
func ThreadDeleteHandler(b *bot.Bot) func(s *discordgo.Session, t *discordgo.ThreadDelete) {
	return func(s *discordgo.Session, t *discordgo.ThreadDelete) {
		b.Engine.HandleThreadDelete(t)
	}
}
