package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/natelatchaw/Jam/pkg/audio"
)

// Play joins the caller's voice channel and starts draining the guild's
// queue into it.
func (c *Commands) Play(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	guildID, err := parseGuildID(m)
	if err != nil {
		c.logger.Debug("invalid guild id", zap.String("guild", m.GuildID))
		return
	}

	channelID, err := audio.UserVoiceChannel(s, m.GuildID, m.Author.ID)
	if err != nil {
		c.logger.Error("voice channel lookup failed", zap.Error(err))
		c.sendEmbed(s, m.ChannelID, "Error", "Could not determine the voice channel to use.", 0xff0000)
		return
	}

	if _, err := c.sessions.Join(guildID, channelID); err != nil {
		c.logger.Error("voice join failed", zap.Uint64("guild", guildID), zap.Error(err))
		c.sendEmbed(s, m.ChannelID, "Error", "Failed to join the voice channel.", 0xff0000)
		return
	}

	// The playback loop runs until the queue drains or playback is stopped;
	// don't hold up the handler for it.
	go func() {
		err := c.sessions.Play(context.Background(), guildID, channelID)
		switch {
		case err == nil:
		case errors.Is(err, audio.ErrAlreadyPlaying):
			c.sendEmbed(s, m.ChannelID, "Already Playing", "Playback is already running.", 0x808080)
		case errors.Is(err, audio.ErrNoConnection):
			c.sendEmbed(s, m.ChannelID, "Error", "Could not determine the voice channel to use.", 0xff0000)
		case errors.Is(err, audio.ErrWrongChannel):
			c.sendEmbed(s, m.ChannelID, "Error", "Playback is bound to a different voice channel.", 0xff0000)
		default:
			c.logger.Error("playback loop failed", zap.Uint64("guild", guildID), zap.Error(err))
			c.sendEmbed(s, m.ChannelID, "Error", "Playback failed. Check the logs for details.", 0xff0000)
		}
		c.presence.Clear()
	}()
}
