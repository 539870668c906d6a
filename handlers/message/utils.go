package message

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"discord-logbot/models"

	"github.com/bwmarrin/discordgo"
)

const (
	embedsPerMessage = 10
	filesPerMessage  = 10
	descriptionLimit = 4096
	plainTextLimit   = 2000
	fieldValueLimit  = 1024
)

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// splitText splits s into pieces of at most limit runes.
func splitText(s string, limit int) []string {
	runes := []rune(s)
	var parts []string
	for len(runes) > limit {
		parts = append(parts, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 || len(parts) == 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// chunkEmbeds groups embeds into sends of at most size.
func chunkEmbeds(embeds []*discordgo.MessageEmbed, size int) [][]*discordgo.MessageEmbed {
	var out [][]*discordgo.MessageEmbed
	for i := 0; i < len(embeds); i += size {
		end := i + size
		if end > len(embeds) {
			end = len(embeds)
		}
		out = append(out, embeds[i:end])
	}
	return out
}

func authorLine(rec *models.Message) string {
	id := rec.AuthorID
	if id == "" {
		id = "N/A"
	}
	return fmt.Sprintf("%s (%s)", rec.DisplayAuthor(), id)
}

func discordTime(t time.Time) string {
	return fmt.Sprintf("<t:%d:F>", t.Unix())
}

// attachmentList renders attachments as markdown links for an embed field.
func attachmentList(atts []models.Attachment) string {
	lines := make([]string, 0, len(atts))
	for _, a := range atts {
		name := a.Name
		if name == "" {
			name = a.ID
		}
		if a.URL != "" {
			lines = append(lines, fmt.Sprintf("[%s](%s)", name, a.URL))
		} else {
			lines = append(lines, name)
		}
	}
	return truncate(strings.Join(lines, "\n"), fieldValueLimit)
}

func check(v bool) string {
	if v {
		return "✅"
	}
	return "❌"
}
