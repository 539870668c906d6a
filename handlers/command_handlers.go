package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"discord-logbot/command"
	"discord-logbot/handlers/message"

	"github.com/bwmarrin/discordgo"
)

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

// HandleLogDel handles the logic for the /log_del command.
func HandleLogDel(d *Deps, i *discordgo.InteractionCreate) {
	var notifID string
	if opt, ok := optionMap(i)[command.OptionLogMessageID]; ok {
		notifID = strings.TrimSpace(opt.StringValue())
	}
	if notifID == "" {
		respondEphemeral(d.API, i, "Missing logs message id.")
		return
	}

	err := d.API.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		log.Printf("Failed to defer log_del reply: %v", err)
	}

	var actor *discordgo.User
	if i.Member != nil {
		actor = i.Member.User
	}

	var reply string
	res, err := d.Engine.Retract(i.GuildID, notifID, actor)
	switch {
	case errors.Is(err, message.ErrNoLogsChannel):
		reply = "Logs channel not accessible."
	case err != nil:
		log.Printf("Failed to retract %s: %v", notifID, err)
		reply = fmt.Sprintf("Could not find or delete logs message id %s.", notifID)
	case !res.Deleted:
		reply = fmt.Sprintf("Could not find or delete logs message id %s.", notifID)
	default:
		reply = fmt.Sprintf("Deleted logs message %s.", notifID)
	}

	if _, err := d.API.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &reply}); err != nil {
		log.Printf("Failed to edit log_del reply: %v", err)
	}
}

// HandleLoggingChannel handles the logic for the /logging_channel command.
func HandleLoggingChannel(d *Deps, i *discordgo.InteractionCreate) {
	guildID := i.GuildID

	if opt, ok := optionMap(i)[command.OptionChannel]; ok {
		channelID, _ := opt.Value.(string)
		if !canSend(d.API, channelID) {
			respondEphemeral(d.API, i, "The selected channel is not a text channel the bot can send to.")
			return
		}
		if err := d.Guilds.Set(guildID, channelID); err != nil {
			log.Printf("Failed to save logging channel for %s: %v", guildID, err)
			respondEphemeral(d.API, i, "🚫 Internal error: could not save the logging channel.")
			return
		}
		respondEphemeral(d.API, i, fmt.Sprintf("Logging channel set to <#%s> for this server.", channelID))
		return
	}

	if current := d.Guilds.Get(guildID); current != "" && current == i.ChannelID {
		if err := d.Guilds.Remove(guildID); err != nil {
			log.Printf("Failed to remove logging channel for %s: %v", guildID, err)
			respondEphemeral(d.API, i, "🚫 Internal error: could not remove the logging channel.")
			return
		}
		respondEphemeral(d.API, i, "Logging channel mapping removed for this server.")
		return
	}

	if !canSend(d.API, i.ChannelID) {
		respondEphemeral(d.API, i, "Cannot use this channel for logs (bot cannot send here).")
		return
	}
	if err := d.Guilds.Set(guildID, i.ChannelID); err != nil {
		log.Printf("Failed to save logging channel for %s: %v", guildID, err)
		respondEphemeral(d.API, i, "🚫 Internal error: could not save the logging channel.")
		return
	}
	respondEphemeral(d.API, i, fmt.Sprintf("Logging channel set to this channel (<#%s>) for this server.", i.ChannelID))
}

// canSend reports whether channelID is a channel messages can be posted to.
func canSend(api API, channelID string) bool {
	if channelID == "" {
		return false
	}
	ch, err := api.Channel(channelID)
	if err != nil || ch == nil {
		return false
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return true
	}
	return false
}
