package handlers

import (
	"errors"
	"log"

	"discord-logbot/handlers/message"
	"discord-logbot/transcript"

	"github.com/bwmarrin/discordgo"
)

// InteractionCreate handles slash commands and transcript buttons.
func InteractionCreate(d *Deps) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			CommandDispatcher(d, i)
		case discordgo.InteractionMessageComponent:
			HandleTranscriptButton(d, i)
		}
	}
}

// HandleTranscriptButton shows a transcript page: a view button posts it as a
// new message, a Prev/Next button replaces the page in place.
func HandleTranscriptButton(d *Deps, i *discordgo.InteractionCreate) {
	action, starterID, page, ok := transcript.ParseID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	_, pages, err := d.Engine.ViewTranscript(starterID)
	switch {
	case errors.Is(err, message.ErrNoThreadHistory):
		respondEphemeral(d.API, i, "No thread history found.")
		return
	case errors.Is(err, message.ErrThreadFileMissing):
		respondEphemeral(d.API, i, "Thread file missing.")
		return
	case err != nil:
		log.Printf("Failed to load transcript for %s: %v", starterID, err)
		respondEphemeral(d.API, i, "🚫 Internal error: could not load thread history.")
		return
	case len(pages) == 0:
		respondEphemeral(d.API, i, "No visible messages in thread history.")
		return
	}

	page = transcript.ClampPage(page, len(pages))
	data := &discordgo.InteractionResponseData{
		Embeds:     pages[page].Embeds(),
		Components: transcript.NavButtons(starterID, page, len(pages)),
	}

	respType := discordgo.InteractionResponseChannelMessageWithSource
	if action == transcript.ActionPage {
		respType = discordgo.InteractionResponseUpdateMessage
	}
	if err := d.API.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{Type: respType, Data: data}); err != nil {
		log.Printf("Failed to show page %d of %s: %v", page, starterID, err)
	}
}

func respondEphemeral(api API, i *discordgo.InteractionCreate, content string) {
	err := api.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Failed to respond to interaction: %v", err)
	}
}
