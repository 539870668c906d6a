package transcript

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	viewPrefix = "view_thread_"
	pagePrefix = "thread_view_"
)

// Action tells how a paging button wants its page shown.
type Action int

const (
	// ActionOpen posts the page as a new message.
	ActionOpen Action = iota + 1
	// ActionPage replaces the message the button belongs to.
	ActionPage
)

// ViewID is the custom id of the button attached to deletion notifications.
func ViewID(starterID string, page int) string {
	return fmt.Sprintf("%s%s_p%d", viewPrefix, starterID, page)
}

// PageID is the custom id of the Prev/Next buttons.
func PageID(starterID string, page int) string {
	return fmt.Sprintf("%s%s_p%d", pagePrefix, starterID, page)
}

// ParseID decodes a paging custom id. An unparsable page index reads as 0.
func ParseID(customID string) (action Action, starterID string, page int, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(customID, viewPrefix):
		action, rest = ActionOpen, strings.TrimPrefix(customID, viewPrefix)
	case strings.HasPrefix(customID, pagePrefix):
		action, rest = ActionPage, strings.TrimPrefix(customID, pagePrefix)
	default:
		return 0, "", 0, false
	}
	starterID = rest
	if i := strings.LastIndex(rest, "_p"); i >= 0 {
		starterID = rest[:i]
		if n, err := strconv.Atoi(rest[i+2:]); err == nil && n > 0 {
			page = n
		}
	}
	if starterID == "" {
		return 0, "", 0, false
	}
	return action, starterID, page, true
}

// ViewButton is the single-button row offering a thread transcript.
func ViewButton(starterID string) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			CustomID: ViewID(starterID, 0),
			Label:    "Thread",
			Emoji:    &discordgo.ComponentEmoji{Name: "🧵"},
			Style:    discordgo.PrimaryButton,
		},
	}}
}

// NavButtons returns the Prev/Next row for page of count, or nil when there
// is only one page.
func NavButtons(starterID string, page, count int) []discordgo.MessageComponent {
	if count <= 1 {
		return nil
	}
	var buttons []discordgo.MessageComponent
	if page > 0 {
		buttons = append(buttons, discordgo.Button{
			CustomID: PageID(starterID, page-1),
			Label:    "Prev",
			Style:    discordgo.SecondaryButton,
		})
	}
	if page < count-1 {
		buttons = append(buttons, discordgo.Button{
			CustomID: PageID(starterID, page+1),
			Label:    "Next",
			Style:    discordgo.PrimaryButton,
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

// Embeds renders a page as message embeds, one per block.
func (p Page) Embeds() []*discordgo.MessageEmbed {
	embeds := make([]*discordgo.MessageEmbed, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		embeds = append(embeds, &discordgo.MessageEmbed{Description: b})
	}
	return embeds
}
