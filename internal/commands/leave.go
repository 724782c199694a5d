package commands

import (
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/natelatchaw/Jam/pkg/audio"
)

// Leave disconnects the bot from the guild's voice channel.
func (c *Commands) Leave(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID, err := parseGuildID(m)
	if err != nil {
		return
	}

	if err := c.sessions.Leave(guildID); err != nil {
		if errors.Is(err, audio.ErrNoConnection) {
			c.sendEmbed(s, m.ChannelID, "Error", "Not connected to a voice channel.", 0xff0000)
			return
		}
		c.logger.Error("leave failed", zap.Uint64("guild", guildID), zap.Error(err))
		c.sendEmbed(s, m.ChannelID, "Error", "Failed to leave the voice channel.", 0xff0000)
		return
	}

	c.presence.Clear()
	c.sendEmbed(s, m.ChannelID, "Disconnected", "Left the voice channel.", 0x00ff00)
}
