// Package transcript renders stored thread transcripts into display pages.
package transcript

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"discord-logbot/models"
)

const (
	// PageCapacity is the number of records consumed per page.
	PageCapacity = 38
	// BlockLimit is the character budget of one rendered block.
	BlockLimit = 4000
	// MaxBlocks is the number of blocks a page may hold.
	MaxBlocks = 10

	TruncatedMarker = "\n... (truncated)"
	EmptyPage       = "(no visible messages)"
)

// Page is one screen of a transcript.
type Page struct {
	Blocks []string
}

// Paginate splits records (oldest first) into pages of at most capacity
// records. When a page runs out of blocks before its records are rendered,
// it is closed with TruncatedMarker and the rest start the next page.
func Paginate(records []models.Message, capacity int) []Page {
	if capacity <= 0 {
		capacity = PageCapacity
	}
	var pages []Page
	for i := 0; i < len(records); {
		end := i + capacity
		if end > len(records) {
			end = len(records)
		}
		page, consumed := buildPage(records[i:end])
		pages = append(pages, page)
		i += consumed
	}
	return pages
}

func buildPage(recs []models.Message) (Page, int) {
	var blocks []string
	var cur strings.Builder
	curLen := 0
	for n, rec := range recs {
		line, ok := Line(rec)
		if !ok {
			continue
		}
		lineLen := utf8.RuneCountInString(line)
		if curLen > 0 && curLen+lineLen > BlockLimit {
			blocks = append(blocks, cur.String())
			cur.Reset()
			curLen = 0
			if len(blocks) == MaxBlocks {
				blocks[len(blocks)-1] += TruncatedMarker
				return Page{Blocks: blocks}, n
			}
		}
		cur.WriteString(line)
		curLen += lineLen
	}
	if curLen > 0 {
		blocks = append(blocks, cur.String())
	}
	if len(blocks) == 0 {
		blocks = []string{EmptyPage}
	}
	return Page{Blocks: blocks}, len(recs)
}

// Line renders one record. Records with nothing visible report false.
func Line(rec models.Message) (string, bool) {
	content := rec.Content
	if strings.TrimSpace(content) == "" {
		switch {
		case len(rec.Embeds) > 0:
			content = "_embed(s) attached_"
		case len(rec.Attachments) > 0:
			content = "_attachment(s) attached_"
		default:
			return "", false
		}
	}
	author := rec.AuthorName
	if author == "" {
		author = rec.DisplayAuthor()
	}
	header := fmt.Sprintf("**%s** • <t:%d:F>\n", author, rec.CreatedAt.Unix())
	budget := BlockLimit - utf8.RuneCountInString(header) - 2
	return header + Truncate(content, budget) + "\n\n", true
}

// Truncate shortens s to at most limit runes, ending with "..." when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 3 {
		return string([]rune(s)[:limit])
	}
	return string([]rune(s)[:limit-3]) + "..."
}

// Reverse returns a newest-first store sequence in oldest-first order.
func Reverse(recs []models.Message) []models.Message {
	out := make([]models.Message, len(recs))
	for i, r := range recs {
		out[len(recs)-1-i] = r
	}
	return out
}

// ClampPage bounds page to [0, count-1].
func ClampPage(page, count int) int {
	if page >= count {
		page = count - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}
