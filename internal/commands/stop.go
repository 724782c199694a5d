package commands

import (
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/natelatchaw/Jam/pkg/audio"
)

// Stop interrupts the guild's playback loop. Only a caller in the bot's
// current voice channel may stop it. The voice connection stays up; a later
// play resumes from the queue.
func (c *Commands) Stop(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID, err := parseGuildID(m)
	if err != nil {
		return
	}

	channelID, err := audio.UserVoiceChannel(s, m.GuildID, m.Author.ID)
	if err != nil {
		c.sendEmbed(s, m.ChannelID, "Error", "Could not determine the voice channel to use.", 0xff0000)
		return
	}

	if err := c.sessions.Stop(guildID, channelID); err != nil {
		switch {
		case errors.Is(err, audio.ErrNoConnection):
			c.sendEmbed(s, m.ChannelID, "Error", "Could not determine the voice channel to use.", 0xff0000)
		case errors.Is(err, audio.ErrWrongChannel):
			c.sendEmbed(s, m.ChannelID, "Error", "You must be in the bot's voice channel to stop playback.", 0xff0000)
		default:
			c.logger.Error("stop failed", zap.Uint64("guild", guildID), zap.Error(err))
		}
		return
	}

	c.presence.Clear()
	c.sendEmbed(s, m.ChannelID, "Stopped", "Playback stopped.", 0x00ff00)
}
