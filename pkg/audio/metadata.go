package audio

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// Metadata identifies one playable item, resolved from a search query or URL.
// Immutable once produced; consumed exactly once when dequeued.
type Metadata struct {
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
	Source      string `json:"webpage_url"`
}

// Embed builds a message embed for the track, truncating the description to
// descriptionLimit runes.
func (m *Metadata) Embed(requestedBy string, descriptionLimit int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     m.Title,
		URL:       m.Source,
		Color:     0xff0000, // Red
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if m.Description != "" {
		embed.Description = truncate(m.Description, descriptionLimit)
	}

	if m.Thumbnail != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: m.Thumbnail}
	}

	if requestedBy != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "Requested by " + requestedBy,
		}
	}

	return embed
}

func truncate(s string, limit int) string {
	if limit <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
