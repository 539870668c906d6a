package bot

import "github.com/bwmarrin/discordgo"

// Platform is the discordgo session as seen by the engine. Channel lookups
// are served from the gateway state cache when possible.
type Platform struct {
	*discordgo.Session
}

// Channel returns the cached channel or fetches it over REST.
func (p *Platform) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if p.State != nil {
		if ch, err := p.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	return p.Session.Channel(channelID, options...)
}
