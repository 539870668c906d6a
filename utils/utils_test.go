package utils

import (
	"testing"

	"discord-logbot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	channel string
	embeds  []*discordgo.MessageEmbed
}

func (f *fakeSender) ChannelMessageSendEmbed(ch string, e *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel = ch
	f.embeds = append(f.embeds, e)
	return &discordgo.Message{}, nil
}

func TestLogMirrorsToAdminChannel(t *testing.T) {
	s := &fakeSender{}
	InitLogger(s, "admin")
	t.Cleanup(func() { InitLogger(nil, "") })

	Error("Engine", "Delete", "boom")
	require.Len(t, s.embeds, 1)
	assert.Equal(t, "admin", s.channel)
	assert.Equal(t, ColorError, s.embeds[0].Color)
	assert.Equal(t, "boom", s.embeds[0].Fields[2].Value)

	InitLogger(s, "")
	Info("Engine", "Noop", "")
	assert.Len(t, s.embeds, 1)
}

func member(userID string, perms int64) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: userID}, Permissions: perms},
	}}
}

func TestHasPermission(t *testing.T) {
	auth := NewAuth(models.CommandsConfig{Auth: models.AuthConfig{Developers: []string{"dev"}}})

	assert.True(t, auth.HasPermission(member("u", discordgo.PermissionManageMessages), discordgo.PermissionManageMessages))
	assert.True(t, auth.HasPermission(member("u", discordgo.PermissionAdministrator), discordgo.PermissionManageMessages))
	assert.True(t, auth.HasPermission(member("dev", 0), discordgo.PermissionManageGuild))
	assert.False(t, auth.HasPermission(member("u", discordgo.PermissionSendMessages), discordgo.PermissionManageGuild))
	assert.False(t, auth.HasPermission(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}, discordgo.PermissionManageGuild))
}
