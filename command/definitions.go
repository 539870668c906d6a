package command

import "github.com/bwmarrin/discordgo"

const (
	LogDelName         = "log_del"
	LoggingChannelName = "logging_channel"

	OptionLogMessageID = "log_message_id"
	OptionChannel      = "channel"
)

var (
	manageMessages = int64(discordgo.PermissionManageMessages)
	manageGuild    = int64(discordgo.PermissionManageGuild)
)

// LogDelCommand defines the structure for the /log_del command.
type LogDelCommand struct{}

// Definition returns the application command definition.
func (c *LogDelCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     LogDelName,
		Description:              "Delete a message from the logs channel",
		DefaultMemberPermissions: &manageMessages,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        OptionLogMessageID,
				Description: "ID of the log message to delete",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
		},
	}
}

// LoggingChannelCommand defines the structure for the /logging_channel command.
type LoggingChannelCommand struct{}

// Definition returns the application command definition.
func (c *LoggingChannelCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     LoggingChannelName,
		Description:              "Set or toggle the channel that receives audit logs",
		DefaultMemberPermissions: &manageGuild,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        OptionChannel,
				Description: "Channel to send logs to (defaults to toggling this channel)",
				Type:        discordgo.ApplicationCommandOptionChannel,
				Required:    false,
				ChannelTypes: []discordgo.ChannelType{
					discordgo.ChannelTypeGuildText,
					discordgo.ChannelTypeGuildNews,
				},
			},
		},
	}
}
