package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Clear discards every pending track in the guild's queue. Anything already
// downloading keeps playing.
func (c *Commands) Clear(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID, err := parseGuildID(m)
	if err != nil {
		return
	}

	discarded := c.tracks.Clear(guildID)
	if discarded == 0 {
		c.sendEmbed(s, m.ChannelID, "Queue Already Empty", "The queue is already empty.", 0x808080)
		return
	}

	c.sendEmbed(s, m.ChannelID, "Queue Cleared",
		fmt.Sprintf("Removed %d pending tracks.", discarded), 0x00ff00)
}
