package utils

import (
	"discord-logbot/models"

	"github.com/bwmarrin/discordgo"
)

// Auth provides methods for authorization checks.
type Auth struct {
	config models.CommandsConfig
}

// NewAuth creates a new Auth instance from the commands configuration.
func NewAuth(config models.CommandsConfig) *Auth {
	return &Auth{config: config}
}

// IsDeveloper checks if a user is a developer.
func (a *Auth) IsDeveloper(userID string) bool {
	for _, devID := range a.config.Auth.Developers {
		if userID == devID {
			return true
		}
	}
	return false
}

// HasPermission reports whether the invoking member holds any of perms or
// Administrator. Developers always pass.
func (a *Auth) HasPermission(i *discordgo.InteractionCreate, perms ...int64) bool {
	if i == nil || i.Member == nil {
		return false
	}
	if i.Member.User != nil && a.IsDeveloper(i.Member.User.ID) {
		return true
	}
	granted := i.Member.Permissions
	if granted&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, p := range perms {
		if granted&p != 0 {
			return true
		}
	}
	return false
}
