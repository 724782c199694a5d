package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/natelatchaw/Jam/pkg/audio"
)

// descriptionLimit bounds embed descriptions built from track metadata.
const descriptionLimit = 150

// Enqueue resolves a query to track metadata, posts it and appends it to the
// guild's queue.
func (c *Commands) Enqueue(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	guildID, err := parseGuildID(m)
	if err != nil {
		c.logger.Debug("invalid guild id", zap.String("guild", m.GuildID))
		return
	}

	query := strings.Join(args, " ")
	if query == "" {
		c.sendEmbed(s, m.ChannelID, "Usage Error", "Provide a URL or search query.", 0xff0000)
		return
	}

	item, err := c.resolver.Resolve(context.Background(), query)
	if errors.Is(err, audio.ErrNoResults) {
		c.sendEmbed(s, m.ChannelID, "No Results", fmt.Sprintf("No results found for `%s`", query), 0x808080)
		return
	}
	if err != nil {
		c.logger.Error("metadata resolution failed", zap.String("query", query), zap.Error(err))
		c.sendEmbed(s, m.ChannelID, "Error", "An issue occurred during audio download. Check the logs for details.", 0xff0000)
		return
	}

	c.tracks.Enqueue(guildID, item)
	c.presence.UpdateTrack(item.Title)

	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, item.Embed(m.Author.Username, descriptionLimit)); err != nil {
		c.logger.Warn("failed to send track embed", zap.Error(err))
	}
}

// List posts the guild's pending tracks in play order.
func (c *Commands) List(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID, err := parseGuildID(m)
	if err != nil {
		return
	}

	items := c.tracks.List(guildID)
	if len(items) == 0 {
		c.sendEmbed(s, m.ChannelID, "Queue", "The queue is empty.", 0x808080)
		return
	}

	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, item.Title)
	}
	c.sendEmbed(s, m.ChannelID, "Queue", b.String(), 0x00ff00)
}
