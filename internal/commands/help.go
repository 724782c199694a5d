package commands

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Help displays all available commands.
func (c *Commands) Help(s *discordgo.Session, m *discordgo.MessageCreate, prefix string) {
	embed := &discordgo.MessageEmbed{
		Title:       "Jam",
		Description: "Here are all the available commands:",
		Color:       0x00ff00,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Music Commands",
				Value: strings.Join([]string{
					"• `" + prefix + "queue <query>` - Search for a track and add it to the queue",
					"• `" + prefix + "queue` - List the pending tracks",
					"• `" + prefix + "play` - Join your voice channel and play the queue",
					"• `" + prefix + "stop` - Stop playback (the queue is kept)",
					"• `" + prefix + "clear` - Discard all pending tracks",
					"• `" + prefix + "leave` - Disconnect from the voice channel",
				}, "\n"),
				Inline: false,
			},
			{
				Name:   "Information Commands",
				Value:  "• `" + prefix + "help` - Show this help message",
				Inline: false,
			},
		},
	}

	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		c.logger.Warn("failed to send help embed")
	}
}
