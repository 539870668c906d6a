// Package handlers connects gateway events and interactions to the engine.
package handlers

import (
	"log"
	"sync"

	"discord-logbot/bot"
	"discord-logbot/database/guildconfig"
	"discord-logbot/handlers/message"
	"discord-logbot/models"
	"discord-logbot/scanner"
	"discord-logbot/transcript"
	"discord-logbot/utils"

	"github.com/bwmarrin/discordgo"
)

// API is the part of the platform the interaction handlers call.
type API interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Engine is what the interaction handlers need from the message engine.
type Engine interface {
	ViewTranscript(starterID string) (*models.ThreadIndexEntry, []transcript.Page, error)
	Retract(guildID, notifID string, actor *discordgo.User) (*message.RetractResult, error)
}

// Deps bundles the collaborators of the interaction handlers.
type Deps struct {
	API    API
	Engine Engine
	Guilds guildconfig.Store
	Auth   *utils.Auth
	Config *models.AppConfig
}

// Register all handlers to the bot.
func Register(b *bot.Bot) {
	deps := &Deps{
		API:    b.Platform,
		Engine: b.Engine,
		Guilds: b.Guilds,
		Auth:   b.Auth,
		Config: b.Config,
	}

	// Register event handlers
	b.Session.AddHandler(InteractionCreate(deps))
	b.Session.AddHandler(MessageCreateHandler(b))
	b.Session.AddHandler(MessageUpdateHandler(b))
	b.Session.AddHandler(MessageDeleteHandler(b))
	b.Session.AddHandler(ThreadCreateHandler(b))
	b.Session.AddHandler(ThreadDeleteHandler(b))
	b.Session.AddHandler(ReadyHandler(b))
}

// ReadyHandler logs the connection and seeds the history once per process.
func ReadyHandler(b *bot.Bot) func(s *discordgo.Session, r *discordgo.Ready) {
	var once sync.Once
	return func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v", s.State.User.String())
		if !b.Config.SeedAtStartup {
			log.Println("Skipping initial scan on startup as per configuration.")
			return
		}
		once.Do(func() {
			guildIDs := readyGuilds(r, b.Config)
			go scanner.StartScanning(b.Platform, b.Engine, guildIDs)
		})
	}
}

func readyGuilds(r *discordgo.Ready, cfg *models.AppConfig) []string {
	var ids []string
	for _, g := range r.Guilds {
		if cfg.AllowsGuild(g.ID) {
			ids = append(ids, g.ID)
		}
	}
	return ids
}
