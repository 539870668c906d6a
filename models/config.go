package models

import "time"

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Token           string
	AllowedGuilds   []string
	DataDir         string
	HistoryLimit    int
	SuppressTTL     time.Duration
	SeedAtStartup   bool
	AdminChannelID  string
	StatsSchedule   string
	LedgerPath      string
	LedgerRetention int
	GRPCListen      string
	CommandsConfig  CommandsConfig
}

// CommandsConfig holds permission overrides for operator commands.
type CommandsConfig struct {
	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig lists users that bypass platform permission checks.
type AuthConfig struct {
	Developers []string `mapstructure:"developers"`
}

// AllowsGuild reports whether events from guildID should be processed.
func (c *AppConfig) AllowsGuild(guildID string) bool {
	if len(c.AllowedGuilds) == 0 {
		return true
	}
	for _, id := range c.AllowedGuilds {
		if id == guildID {
			return true
		}
	}
	return false
}
