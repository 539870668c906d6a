package normalizer

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"discord-logbot/models"
)

var (
	urlPattern        = regexp.MustCompile(`(?i)https?://\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// embedText is the subset of an embed that contributes to a fingerprint.
type embedText struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      *struct {
		Name string `json:"name"`
	} `json:"author"`
	Fields []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"fields"`
}

// CollapseURLs replaces every URL in text with its last path segment, or its
// host when the path is empty.
func CollapseURLs(text string) string {
	return urlPattern.ReplaceAllStringFunc(text, func(raw string) string {
		u, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
		if len(segments) > 0 {
			return segments[len(segments)-1]
		}
		if host := u.Hostname(); host != "" {
			return host
		}
		return raw
	})
}

// Fingerprint returns the lower-cased comparison key over a record's visible
// text, attachment names and embed text.
func Fingerprint(m *models.Message) string {
	if m == nil {
		return ""
	}
	var parts []string

	if c := strings.TrimSpace(whitespacePattern.ReplaceAllString(CollapseURLs(m.Content), " ")); c != "" {
		parts = append(parts, c)
	}

	var names []string
	for _, a := range m.Attachments {
		switch {
		case a.Name != "":
			names = append(names, a.Name)
		case a.ID != "":
			names = append(names, a.ID)
		}
	}
	if len(names) > 0 {
		parts = append(parts, "att:"+strings.Join(names, ","))
	}

	var embeds []string
	for _, raw := range m.Embeds {
		var e embedText
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		var f []string
		if e.Title != "" {
			f = append(f, e.Title)
		}
		if e.Description != "" {
			f = append(f, e.Description)
		}
		if e.Author != nil && e.Author.Name != "" {
			f = append(f, e.Author.Name)
		}
		if len(e.Fields) > 0 {
			fields := make([]string, 0, len(e.Fields))
			for _, fl := range e.Fields {
				fields = append(fields, fl.Name+":"+fl.Value)
			}
			f = append(f, strings.Join(fields, ";"))
		}
		if s := strings.Join(f, "|"); s != "" {
			embeds = append(embeds, s)
		}
	}
	if len(embeds) > 0 {
		parts = append(parts, "emb:"+strings.Join(embeds, "||"))
	}

	return strings.ToLower(strings.Join(parts, "||"))
}

// SameAttachments compares attachment lists by id, url and name in order.
func SameAttachments(a, b []models.Attachment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
