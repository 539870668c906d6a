package handlers

import (
	"discord-logbot/command"

	"github.com/bwmarrin/discordgo"
)

// commandPermissions maps each command to the permissions that allow it.
// Administrator and developers always pass.
var commandPermissions = map[string][]int64{
	command.LogDelName:         {discordgo.PermissionManageMessages},
	command.LoggingChannelName: {discordgo.PermissionManageGuild},
}

var permissionDenied = map[string]string{
	command.LogDelName:         "🚫 You do not have permission to run this command.",
	command.LoggingChannelName: "🚫 You do not have permission to change the logging channel.",
}

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func CommandDispatcher(d *Deps, i *discordgo.InteractionCreate) {
	commandName := i.ApplicationCommandData().Name

	if i.GuildID == "" {
		respondEphemeral(d.API, i, "This command must be used in a server.")
		return
	}
	if d.Config != nil && !d.Config.AllowsGuild(i.GuildID) {
		respondEphemeral(d.API, i, "This server is not allowed to use this bot.")
		return
	}
	if i.Member == nil {
		respondEphemeral(d.API, i, "Cannot determine member.")
		return
	}

	if perms, ok := commandPermissions[commandName]; ok {
		if !d.Auth.HasPermission(i, perms...) {
			respondEphemeral(d.API, i, permissionDenied[commandName])
			return
		}
	}

	switch commandName {
	case command.LogDelName:
		HandleLogDel(d, i)
	case command.LoggingChannelName:
		HandleLoggingChannel(d, i)
	default:
		respondEphemeral(d.API, i, "🚫 Unknown command.")
	}
}
